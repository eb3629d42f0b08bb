package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fashionstore-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
)

func TestDirectoryLookups(t *testing.T) {
	client := dbtest.Open(t)
	seed := dbtest.NewSeeder(t, client.DB())
	dir, err := NewDirectory(NewRepository(client.DB()))
	require.NoError(t, err)
	ctx := context.Background()

	user := seed.User(false)
	addr := seed.Address(user.ID)

	got, err := dir.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	gotAddr, err := dir.GetAddress(ctx, addr.ID)
	require.NoError(t, err)
	assert.Equal(t, "India", gotAddr.Country)
	assert.Equal(t, user.ID, gotAddr.UserID)

	_, err = dir.GetUser(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = dir.GetAddress(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNewDirectoryRequiresRepo(t *testing.T) {
	_, err := NewDirectory(nil)
	require.Error(t, err)
}
