package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
	"github.com/angelmondragon/fashionstore-backend/pkg/money"
)

var hundred = decimal.NewFromInt(100)

// EffectivePrice is the price a shopper sees. An absolute discount wins over a
// percentage; the two never stack.
func EffectivePrice(product models.Product) decimal.Decimal {
	switch {
	case product.Discount.IsPositive():
		return money.Round2(product.Price.Sub(product.Discount))
	case product.DiscountPercent.IsPositive():
		factor := hundred.Sub(product.DiscountPercent).Div(hundred)
		return money.Round2(product.Price.Mul(factor))
	default:
		return money.Round2(product.Price)
	}
}
