package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
)

func TestEffectivePrice(t *testing.T) {
	cases := []struct {
		name     string
		price    string
		discount string
		percent  string
		want     string
	}{
		{name: "absolute discount", price: "100", discount: "20", percent: "0", want: "80.00"},
		{name: "percentage discount", price: "100", discount: "0", percent: "25", want: "75.00"},
		{name: "no discount", price: "100", discount: "0", percent: "0", want: "100.00"},
		{name: "absolute wins over percentage", price: "100", discount: "10", percent: "50", want: "90.00"},
		{name: "percentage rounds to paise", price: "999.99", discount: "0", percent: "15", want: "849.99"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			product := models.Product{
				Price:           decimal.RequireFromString(tc.price),
				Discount:        decimal.RequireFromString(tc.discount),
				DiscountPercent: decimal.RequireFromString(tc.percent),
			}
			assert.Equal(t, tc.want, EffectivePrice(product).StringFixed(2))
		})
	}
}
