package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
)

// Store is the read-only catalog surface used by carts, orders and the inventory validator.
type Store interface {
	WithTx(tx *gorm.DB) Store
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	GetVariantStock(ctx context.Context, productID uuid.UUID, size, color string) (int, error)
	TotalStock(ctx context.Context, productID uuid.UUID) (int, error)
}

type store struct {
	repo *Repository
}

// NewStore builds a catalog store over the repository.
func NewStore(repo *Repository) (Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &store{repo: repo}, nil
}

func (s *store) WithTx(tx *gorm.DB) Store {
	if tx == nil {
		return s
	}
	return &store{repo: s.repo.WithTx(tx)}
}

// GetProduct returns NOT_FOUND when the product does not exist.
func (s *store) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *store) GetVariantStock(ctx context.Context, productID uuid.UUID, size, color string) (int, error) {
	qty, err := s.repo.VariantQuantity(ctx, productID, strings.TrimSpace(size), strings.TrimSpace(color))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant stock")
	}
	return qty, nil
}

func (s *store) TotalStock(ctx context.Context, productID uuid.UUID) (int, error) {
	total, err := s.repo.SumQuantity(ctx, productID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum variant stock")
	}
	return total, nil
}
