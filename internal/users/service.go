package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
)

// Directory is the read-only identity and address lookup.
type Directory interface {
	WithTx(tx *gorm.DB) Directory
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error)
}

type directory struct {
	repo *Repository
}

// NewDirectory wraps the repository with error mapping.
func NewDirectory(repo *Repository) (Directory, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &directory{repo: repo}, nil
}

func (d *directory) WithTx(tx *gorm.DB) Directory {
	if tx == nil {
		return d
	}
	return &directory{repo: d.repo.WithTx(tx)}
}

func (d *directory) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := d.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (d *directory) GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	addr, err := d.repo.FindAddress(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	return addr, nil
}
