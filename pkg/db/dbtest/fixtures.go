package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
	"github.com/angelmondragon/fashionstore-backend/pkg/enums"
)

// Seeder inserts fixture rows and fails the test on any error.
type Seeder struct {
	t    testing.TB
	conn *gorm.DB
}

// NewSeeder binds a seeder to conn.
func NewSeeder(t testing.TB, conn *gorm.DB) *Seeder {
	return &Seeder{t: t, conn: conn}
}

// User inserts an active user.
func (s *Seeder) User(staff bool) models.User {
	s.t.Helper()
	user := models.User{
		FirstName:   "Asha",
		LastName:    "Rao",
		PhoneNumber: "+91" + uuid.NewString()[:10],
		IsActive:    true,
		IsStaff:     staff,
	}
	s.create(&user)
	return user
}

// Address inserts an address owned by userID.
func (s *Seeder) Address(userID uuid.UUID) models.Address {
	s.t.Helper()
	addr := models.Address{
		UserID:        userID,
		LocationName:  "Home",
		StreetAddress: "12 MG Road",
		City:          "Bengaluru",
		State:         "Karnataka",
		PostalCode:    "560001",
	}
	s.create(&addr)
	return addr
}

// ProductOption tweaks a seeded product.
type ProductOption func(*models.Product)

// WithDiscount sets an absolute discount.
func WithDiscount(amount string) ProductOption {
	return func(p *models.Product) { p.Discount = decimal.RequireFromString(amount) }
}

// WithDiscountPercent sets a percentage discount.
func WithDiscountPercent(pct string) ProductOption {
	return func(p *models.Product) { p.DiscountPercent = decimal.RequireFromString(pct) }
}

// Inactive marks the product as delisted.
func Inactive() ProductOption {
	return func(p *models.Product) { p.IsActive = false }
}

// Product inserts an active product with the given price.
func (s *Seeder) Product(name, price string, opts ...ProductOption) models.Product {
	s.t.Helper()
	product := models.Product{
		Name:            name,
		SKU:             "SKU-" + uuid.NewString()[:8],
		Price:           decimal.RequireFromString(price),
		Discount:        decimal.Zero,
		DiscountPercent: decimal.Zero,
		IsActive:        true,
	}
	for _, opt := range opts {
		opt(&product)
	}
	s.create(&product)
	return product
}

// Stock inserts a variant stock row.
func (s *Seeder) Stock(productID uuid.UUID, size, color string, qty int) models.VariantStock {
	s.t.Helper()
	stock := models.VariantStock{ProductID: productID, Size: size, Color: color, Quantity: qty}
	s.create(&stock)
	return stock
}

// SetStock overwrites the quantity of an existing variant.
func (s *Seeder) SetStock(productID uuid.UUID, size, color string, qty int) {
	s.t.Helper()
	err := s.conn.Model(&models.VariantStock{}).
		Where("product_id = ? AND size = ? AND color = ?", productID, size, color).
		Update("quantity", qty).Error
	if err != nil {
		s.t.Fatalf("set stock: %v", err)
	}
}

// SetPrice overwrites a product price.
func (s *Seeder) SetPrice(productID uuid.UUID, price string) {
	s.t.Helper()
	err := s.conn.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("price", decimal.RequireFromString(price)).Error
	if err != nil {
		s.t.Fatalf("set price: %v", err)
	}
}

// Order inserts a PENDING order header without items.
func (s *Seeder) Order(userID, addressID uuid.UUID, total string) models.Order {
	s.t.Helper()
	amount := decimal.RequireFromString(total)
	order := models.Order{
		OrderNumber:       "ORD-1999-" + uuid.NewString()[:6],
		UserID:            userID,
		ShippingAddressID: addressID,
		Status:            enums.OrderStatusPending,
		PaymentStatus:     enums.PaymentStatusPending,
		Subtotal:          amount,
		TaxAmount:         decimal.Zero,
		ShippingAmount:    decimal.Zero,
		DiscountAmount:    decimal.Zero,
		TotalAmount:       amount,
	}
	s.create(&order)
	return order
}

// Transaction inserts a gateway transaction for order opened at createdAt.
func (s *Seeder) Transaction(order models.Order, gatewayOrderID string, status enums.TransactionStatus, createdAt time.Time) models.Transaction {
	s.t.Helper()
	txn := models.Transaction{
		UserID:         order.UserID,
		OrderID:        order.ID,
		GatewayOrderID: gatewayOrderID,
		Status:         status,
		Amount:         order.TotalAmount,
		Currency:       "INR",
		CreatedAt:      createdAt,
	}
	s.create(&txn)
	return txn
}

func (s *Seeder) create(value any) {
	s.t.Helper()
	if err := s.conn.Create(value).Error; err != nil {
		s.t.Fatalf("seed %T: %v", value, err)
	}
}
