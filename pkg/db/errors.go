package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint failure. When
// constraintName is set the failing constraint (or, for sqlite, one of its
// columns in the message) must match it.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && (constraintName == "" || pgErr.ConstraintName == constraintName)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation && (constraintName == "" || pqErr.Constraint == constraintName)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return constraintName == "" || strings.Contains(msg, constraintName) || sqliteColumnsMatch(msg, constraintName)
	case strings.Contains(msg, "duplicate key value"):
		return constraintName == "" || strings.Contains(msg, constraintName)
	}
	return false
}

// sqlite reports "UNIQUE constraint failed: table.col" instead of the index
// name, so fall back to the columns registered for known constraints.
func sqliteColumnsMatch(msg, constraintName string) bool {
	column, ok := sqliteUniqueColumns[constraintName]
	if !ok {
		return false
	}
	return strings.Contains(msg, column)
}

var sqliteUniqueColumns = map[string]string{
	"ux_orders_order_number":         "orders.order_number",
	"ux_carts_user_id":               "carts.user_id",
	"ux_cart_items_variant":          "cart_items.cart_id",
	"ux_wishlist_items_user_product": "wishlist_items.user_id",
	"ux_products_sku":                "products.sku",
}
