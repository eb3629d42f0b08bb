package models

// All lists every persisted model, in dependency order, for AutoMigrate in tests and sqlite mode.
func All() []any {
	return []any{
		&User{},
		&Address{},
		&Product{},
		&VariantStock{},
		&Cart{},
		&CartItem{},
		&OrderNumberSequence{},
		&Order{},
		&OrderItem{},
		&OrderStatusHistory{},
		&Transaction{},
		&WishlistItem{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
