package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
)

// OrderNumberConstraint is the unique index guarding order_number.
const OrderNumberConstraint = "ux_orders_order_number"

// FormatOrderNumber renders ORD-{yyyy}-{nnnnnn}.
func FormatOrderNumber(year, seq int) string {
	return fmt.Sprintf("%s%06d", orderNumberPrefix(year), seq)
}

func orderNumberPrefix(year int) string {
	return fmt.Sprintf("ORD-%04d-", year)
}

func orderNumberSuffix(number string, year int) (int, bool) {
	prefix := orderNumberPrefix(year)
	if !strings.HasPrefix(number, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(number, prefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// allocateOrderNumber hands out the next number for year. The counter row is
// seeded from the orders table the first time a year is seen, and is pulled
// forward if rows were ever written around it.
func allocateOrderNumber(ctx context.Context, repo Repository, year int) (string, error) {
	floor, err := repo.MaxOrderNumberSuffix(ctx, year)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read order number floor")
	}
	if err := repo.EnsureSequence(ctx, year, floor); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed order number sequence")
	}
	next, err := repo.IncrementSequence(ctx, year)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order number sequence")
	}
	if next <= floor {
		next = floor + 1
		if err := repo.SetSequence(ctx, year, next); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "realign order number sequence")
		}
	}
	return FormatOrderNumber(year, next), nil
}
