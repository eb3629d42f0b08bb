package wishlist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionstore-backend/internal/catalog"
	"github.com/angelmondragon/fashionstore-backend/pkg/auth"
	"github.com/angelmondragon/fashionstore-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
	"github.com/angelmondragon/fashionstore-backend/pkg/pagination"
)

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	WishlistRepo *Repository
	Catalog      catalog.Store
}

// Service exposes business rules for wishlist management.
type Service interface {
	GetWishlist(ctx context.Context, actor auth.Actor, userID uuid.UUID, params pagination.Params) (WishlistItemsPageDTO, error)
	GetWishlistIDs(ctx context.Context, actor auth.Actor, userID uuid.UUID) (WishlistIDsDTO, error)
	AddItem(ctx context.Context, actor auth.Actor, userID, productID uuid.UUID) (*WishlistItemDTO, error)
	RemoveItem(ctx context.Context, actor auth.Actor, userID, productID uuid.UUID) error
	Clear(ctx context.Context, actor auth.Actor, userID uuid.UUID) (int64, error)
}

type service struct {
	wishlistRepo *Repository
	catalog      catalog.Store
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.WishlistRepo == nil {
		return nil, fmt.Errorf("wishlist repo is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog store is required")
	}
	return &service{
		wishlistRepo: params.WishlistRepo,
		catalog:      params.Catalog,
	}, nil
}

// GetWishlist returns the paginated wishlist for a user.
func (s *service) GetWishlist(ctx context.Context, actor auth.Actor, userID uuid.UUID, params pagination.Params) (WishlistItemsPageDTO, error) {
	if err := authorize(actor, userID); err != nil {
		return WishlistItemsPageDTO{}, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return WishlistItemsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]any{"field": "cursor"})
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.wishlistRepo.ListItems(ctx, userID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return WishlistItemsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}

	page := WishlistItemsPageDTO{Items: make([]WishlistItemDTO, 0, len(rows))}
	if len(rows) > limit {
		last := rows[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:limit]
	}
	for _, row := range rows {
		page.Items = append(page.Items, newWishlistItemDTO(row))
	}
	return page, nil
}

// GetWishlistIDs returns only the saved product IDs.
func (s *service) GetWishlistIDs(ctx context.Context, actor auth.Actor, userID uuid.UUID) (WishlistIDsDTO, error) {
	if err := authorize(actor, userID); err != nil {
		return WishlistIDsDTO{}, err
	}
	ids, err := s.wishlistRepo.ListProductIDs(ctx, userID)
	if err != nil {
		return WishlistIDsDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist ids")
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return WishlistIDsDTO{ProductIDs: ids}, nil
}

// AddItem saves a product for the user. Saving it twice is a validation error.
func (s *service) AddItem(ctx context.Context, actor auth.Actor, userID, productID uuid.UUID) (*WishlistItemDTO, error) {
	if err := authorize(actor, userID); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, fieldError("productId", "product id is required")
	}
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	if _, err := s.wishlistRepo.AddItem(ctx, userID, productID); err != nil {
		if db.IsUniqueViolation(err, WishlistConstraint) {
			return nil, fieldError("productId", "product is already in the wishlist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	item, err := s.wishlistRepo.FindItem(ctx, userID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist item")
	}
	dto := newWishlistItemDTO(*item)
	return &dto, nil
}

// RemoveItem deletes a saved product, NOT_FOUND when it was never saved.
func (s *service) RemoveItem(ctx context.Context, actor auth.Actor, userID, productID uuid.UUID) error {
	if err := authorize(actor, userID); err != nil {
		return err
	}
	if productID == uuid.Nil {
		return fieldError("productId", "product id is required")
	}
	removed, err := s.wishlistRepo.RemoveItem(ctx, userID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	if removed == 0 {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, gorm.ErrRecordNotFound, "wishlist item not found")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, actor auth.Actor, userID uuid.UUID) (int64, error) {
	if err := authorize(actor, userID); err != nil {
		return 0, err
	}
	removed, err := s.wishlistRepo.ClearItems(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear wishlist")
	}
	return removed, nil
}

func authorize(actor auth.Actor, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !actor.CanAccess(userID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "wishlist belongs to another user")
	}
	return nil
}

func fieldError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]any{"field": field})
}

