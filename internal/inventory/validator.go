// Package inventory checks requested quantities against variant stock. It never reserves or decrements.
package inventory

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
)

// StockReader resolves the on-hand quantity of one variant.
type StockReader interface {
	GetVariantStock(ctx context.Context, productID uuid.UUID, size, color string) (int, error)
}

// Line is a requested variant quantity.
type Line struct {
	ProductID uuid.UUID
	Size      string
	Color     string
	Quantity  int
}

// HasStock reports whether the variant has at least line.Quantity units on hand.
func HasStock(ctx context.Context, stock StockReader, line Line) (bool, error) {
	_, ok, err := check(ctx, stock, line)
	return ok, err
}

// Require returns a VALIDATION_ERROR naming field when the variant cannot cover line.Quantity.
func Require(ctx context.Context, stock StockReader, field string, line Line) error {
	available, ok, err := check(ctx, stock, line)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock").WithDetails(map[string]any{
		"field":     field,
		"productId": line.ProductID.String(),
		"size":      line.Size,
		"color":     line.Color,
		"requested": line.Quantity,
		"available": available,
	})
}

func check(ctx context.Context, stock StockReader, line Line) (int, bool, error) {
	available, err := stock.GetVariantStock(ctx, line.ProductID, line.Size, line.Color)
	if err != nil {
		return 0, false, err
	}
	return available, available >= line.Quantity, nil
}
