package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/fashionstore-backend/api/validators"
	cartsvc "github.com/angelmondragon/fashionstore-backend/internal/cart"
)

type addItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Size      string    `json:"size" validate:"required,max=20"`
	Color     string    `json:"color" validate:"required,max=50"`
	Quantity  int       `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// Quantity bounds are enforced by the service.
func (p addItemRequest) toInput() cartsvc.AddItemInput {
	return cartsvc.AddItemInput{
		ProductID: p.ProductID,
		Size:      validators.SanitizeString(p.Size, 20),
		Color:     validators.SanitizeString(p.Color, 50),
		Quantity:  p.Quantity,
	}
}
