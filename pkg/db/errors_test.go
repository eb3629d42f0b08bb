package db

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolation_Postgres(t *testing.T) {
	pgxErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "ux_orders_order_number"})
	if !IsUniqueViolation(pgxErr, "ux_orders_order_number") {
		t.Fatal("expected pgx unique violation to match constraint")
	}
	if IsUniqueViolation(pgxErr, "ux_carts_user_id") {
		t.Fatal("did not expect other constraint to match")
	}

	pqErr := &pq.Error{Code: "23505", Constraint: "ux_carts_user_id"}
	if !IsUniqueViolation(pqErr, "ux_carts_user_id") {
		t.Fatal("expected pq unique violation to match constraint")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatal("foreign key violation is not a unique violation")
	}
}

func TestIsUniqueViolation_SQLiteMessageColumns(t *testing.T) {
	err := fmt.Errorf("UNIQUE constraint failed: orders.order_number")
	if !IsUniqueViolation(err, "ux_orders_order_number") {
		t.Fatal("expected sqlite message to map onto the order number constraint")
	}
	if IsUniqueViolation(err, "ux_cart_items_variant") {
		t.Fatal("did not expect cart item constraint to match")
	}
}
