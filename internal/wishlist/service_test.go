package wishlist

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fashionstore-backend/internal/catalog"
	"github.com/angelmondragon/fashionstore-backend/pkg/auth"
	"github.com/angelmondragon/fashionstore-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
	"github.com/angelmondragon/fashionstore-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *dbtest.Seeder, auth.Actor) {
	t.Helper()
	client := dbtest.Open(t)
	store, err := catalog.NewStore(catalog.NewRepository(client.DB()))
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{WishlistRepo: NewRepository(client.DB()), Catalog: store})
	require.NoError(t, err)
	seed := dbtest.NewSeeder(t, client.DB())
	user := seed.User(false)
	return svc, seed, auth.Actor{UserID: user.ID}
}

func TestAddItem(t *testing.T) {
	svc, seed, actor := newTestService(t)
	ctx := context.Background()
	dress := seed.Product("Linen Dress", "2499.00", dbtest.WithDiscountPercent("10"))

	item, err := svc.AddItem(ctx, actor, actor.UserID, dress.ID)
	require.NoError(t, err)
	assert.Equal(t, dress.ID, item.ProductID)
	assert.Equal(t, "Linen Dress", item.Name)
	assert.Equal(t, "2499.00", item.Price)
	assert.Equal(t, "2249.10", item.EffectivePrice)

	_, err = svc.AddItem(ctx, actor, actor.UserID, dress.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, "productId", typed.Details().(map[string]any)["field"])

	_, err = svc.AddItem(ctx, actor, actor.UserID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AddItem(ctx, auth.Actor{UserID: uuid.New()}, actor.UserID, dress.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestRemoveAndClear(t *testing.T) {
	svc, seed, actor := newTestService(t)
	ctx := context.Background()
	a := seed.Product("Scarf", "399.00")
	b := seed.Product("Belt", "699.00")
	_, err := svc.AddItem(ctx, actor, actor.UserID, a.ID)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, actor, actor.UserID, b.ID)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(ctx, actor, actor.UserID, a.ID))
	err = svc.RemoveItem(ctx, actor, actor.UserID, a.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	ids, err := svc.GetWishlistIDs(ctx, actor, actor.UserID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, ids.ProductIDs)

	staff := auth.Actor{UserID: uuid.New(), IsStaff: true}
	removed, err := svc.Clear(ctx, staff, actor.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	ids, err = svc.GetWishlistIDs(ctx, actor, actor.UserID)
	require.NoError(t, err)
	assert.Empty(t, ids.ProductIDs)
}

func TestGetWishlistPaginates(t *testing.T) {
	svc, seed, actor := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		p := seed.Product("Item", "100.00")
		_, err := svc.AddItem(ctx, actor, actor.UserID, p.ID)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	page, err := svc.GetWishlist(ctx, actor, actor.UserID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.GetWishlist(ctx, actor, actor.UserID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.NextCursor)

	_, err = svc.GetWishlist(ctx, actor, actor.UserID, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
