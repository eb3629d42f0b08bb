package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionstore-backend/internal/catalog"
	"github.com/angelmondragon/fashionstore-backend/internal/inventory"
	"github.com/angelmondragon/fashionstore-backend/internal/users"
	"github.com/angelmondragon/fashionstore-backend/pkg/auth"
	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
)

const (
	// MinLineQuantity and MaxLineQuantity bound the quantity of one cart line.
	MinLineQuantity = 1
	MaxLineQuantity = 999
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes cart operations. Every mutation runs in one transaction.
type Service interface {
	GetOrCreateCart(ctx context.Context, actor auth.Actor, userID uuid.UUID) (*CartView, error)
	AddItem(ctx context.Context, actor auth.Actor, userID uuid.UUID, input AddItemInput) (*CartView, error)
	UpdateItemQuantity(ctx context.Context, actor auth.Actor, userID, itemID uuid.UUID, quantity int) (*CartView, error)
	RemoveItem(ctx context.Context, actor auth.Actor, userID, itemID uuid.UUID) (*CartView, error)
	ClearCart(ctx context.Context, actor auth.Actor, userID uuid.UUID) (*CartView, error)
}

// AddItemInput is one variant to add to the cart.
type AddItemInput struct {
	ProductID uuid.UUID
	Size      string
	Color     string
	Quantity  int
}

type service struct {
	repo    CartRepository
	tx      txRunner
	catalog catalog.Store
	users   users.Directory
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, store catalog.Store, dir users.Directory) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if store == nil {
		return nil, fmt.Errorf("catalog store required")
	}
	if dir == nil {
		return nil, fmt.Errorf("user directory required")
	}
	return &service{repo: repo, tx: tx, catalog: store, users: dir}, nil
}

func (s *service) GetOrCreateCart(ctx context.Context, actor auth.Actor, userID uuid.UUID) (*CartView, error) {
	if err := authorize(actor, userID); err != nil {
		return nil, err
	}
	var view *CartView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.ensureCart(ctx, tx, repo, userID)
		if err != nil {
			return err
		}
		view, err = s.loadView(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) AddItem(ctx context.Context, actor auth.Actor, userID uuid.UUID, input AddItemInput) (*CartView, error) {
	if err := authorize(actor, userID); err != nil {
		return nil, err
	}
	input.Size = strings.TrimSpace(input.Size)
	input.Color = strings.TrimSpace(input.Color)
	if err := validateAddItem(input); err != nil {
		return nil, err
	}

	var view *CartView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		store := s.catalog.WithTx(tx)

		product, err := store.GetProduct(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
				WithDetails(map[string]any{"field": "productId", "productId": product.ID.String()})
		}

		cart, err := s.ensureCart(ctx, tx, repo, userID)
		if err != nil {
			return err
		}

		existing, err := repo.FindItemByVariant(ctx, cart.ID, input.ProductID, input.Size, input.Color)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		requested := input.Quantity
		if existing != nil {
			requested += existing.Quantity
		}
		if requested > MaxLineQuantity {
			return quantityError(requested)
		}
		line := inventory.Line{ProductID: input.ProductID, Size: input.Size, Color: input.Color, Quantity: requested}
		if err := inventory.Require(ctx, store, "quantity", line); err != nil {
			return err
		}

		if existing != nil {
			if err := repo.UpdateItemQuantity(ctx, existing.ID, requested); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
		} else {
			item := &models.CartItem{
				CartID:    cart.ID,
				ProductID: input.ProductID,
				Size:      input.Size,
				Color:     input.Color,
				Quantity:  requested,
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert cart item")
			}
		}

		view, err = s.loadView(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) UpdateItemQuantity(ctx context.Context, actor auth.Actor, userID, itemID uuid.UUID, quantity int) (*CartView, error) {
	if err := authorize(actor, userID); err != nil {
		return nil, err
	}
	if quantity < MinLineQuantity || quantity > MaxLineQuantity {
		return nil, quantityError(quantity)
	}

	var view *CartView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.findCart(ctx, repo, userID)
		if err != nil {
			return err
		}
		item, err := repo.FindItem(ctx, cart.ID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		line := inventory.Line{ProductID: item.ProductID, Size: item.Size, Color: item.Color, Quantity: quantity}
		if err := inventory.Require(ctx, s.catalog.WithTx(tx), "quantity", line); err != nil {
			return err
		}
		if err := repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}

		view, err = s.loadView(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) RemoveItem(ctx context.Context, actor auth.Actor, userID, itemID uuid.UUID) (*CartView, error) {
	if err := authorize(actor, userID); err != nil {
		return nil, err
	}
	var view *CartView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.findCart(ctx, repo, userID)
		if err != nil {
			return err
		}
		removed, err := repo.DeleteItem(ctx, cart.ID, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}
		if removed == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		view, err = s.loadView(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) ClearCart(ctx context.Context, actor auth.Actor, userID uuid.UUID) (*CartView, error) {
	if err := authorize(actor, userID); err != nil {
		return nil, err
	}
	var view *CartView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.ensureCart(ctx, tx, repo, userID)
		if err != nil {
			return err
		}
		if _, err := repo.DeleteItems(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		view = newCartView(cart, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ensureCart returns the user's cart, creating it on first use. A concurrent
// creator loses on ux_carts_user_id and both re-read the same row.
func (s *service) ensureCart(ctx context.Context, tx *gorm.DB, repo CartRepository, userID uuid.UUID) (*models.Cart, error) {
	if _, err := s.users.WithTx(tx).GetUser(ctx, userID); err != nil {
		return nil, err
	}
	cart, err := repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := repo.CreateIfAbsent(ctx, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	cart, err = repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}
	return cart, nil
}

func (s *service) findCart(ctx context.Context, repo CartRepository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) loadView(ctx context.Context, repo CartRepository, cart *models.Cart) (*CartView, error) {
	items, err := repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	return newCartView(cart, items), nil
}

func authorize(actor auth.Actor, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !actor.CanAccess(userID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to another user")
	}
	return nil
}

func validateAddItem(input AddItemInput) error {
	if input.ProductID == uuid.Nil {
		return fieldError("productId", "product id is required")
	}
	if input.Size == "" {
		return fieldError("size", "size is required")
	}
	if input.Color == "" {
		return fieldError("color", "color is required")
	}
	if input.Quantity < MinLineQuantity || input.Quantity > MaxLineQuantity {
		return quantityError(input.Quantity)
	}
	return nil
}

func quantityError(quantity int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between %d and %d", MinLineQuantity, MaxLineQuantity)).
		WithDetails(map[string]any{"field": "quantity", "requested": quantity})
}

func fieldError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]any{"field": field})
}
