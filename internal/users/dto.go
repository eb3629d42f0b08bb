package users

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
)

// AddressDTO is the transport shape of a saved address.
type AddressDTO struct {
	ID            uuid.UUID `json:"id"`
	LocationName  string    `json:"locationName"`
	StreetAddress string    `json:"streetAddress"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	PostalCode    string    `json:"postalCode"`
	Country       string    `json:"country"`
}

// AddressFromModel maps a stored address; nil stays nil.
func AddressFromModel(a *models.Address) *AddressDTO {
	if a == nil {
		return nil
	}
	return &AddressDTO{
		ID:            a.ID,
		LocationName:  a.LocationName,
		StreetAddress: a.StreetAddress,
		City:          a.City,
		State:         a.State,
		PostalCode:    a.PostalCode,
		Country:       a.Country,
	}
}
