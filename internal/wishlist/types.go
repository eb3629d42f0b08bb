package wishlist

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fashionstore-backend/internal/catalog"
	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
	"github.com/angelmondragon/fashionstore-backend/pkg/money"
)

// WishlistItemDTO is one saved product with its current prices.
type WishlistItemDTO struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"productId"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku"`
	Price          string    `json:"price"`
	EffectivePrice string    `json:"effectivePrice"`
	IsActive       bool      `json:"isActive"`
	AddedAt        time.Time `json:"addedAt"`
}

// WishlistItemsPageDTO returns a cursor-paginated wishlist view.
type WishlistItemsPageDTO struct {
	Items      []WishlistItemDTO `json:"items"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

// WishlistIDsDTO is a lightweight projection containing only product IDs.
type WishlistIDsDTO struct {
	ProductIDs []uuid.UUID `json:"productIds"`
}

func newWishlistItemDTO(item models.WishlistItem) WishlistItemDTO {
	dto := WishlistItemDTO{
		ID:        item.ID,
		ProductID: item.ProductID,
		AddedAt:   item.CreatedAt,
	}
	if item.Product != nil {
		dto.Name = item.Product.Name
		dto.SKU = item.Product.SKU
		dto.Price = money.Format(item.Product.Price)
		dto.EffectivePrice = money.Format(catalog.EffectivePrice(*item.Product))
		dto.IsActive = item.Product.IsActive
	}
	return dto
}
