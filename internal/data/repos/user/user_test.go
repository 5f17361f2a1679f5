package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/library-backend/internal/data/repos/testutil"
	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.SQLite(t)
	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	u := &types.User{Username: "reader", Email: "reader@example.com", FirstName: "A", LastName: "B"}
	require.NoError(t, repo.Create(dbc, u))
	require.NotEqual(t, uuid.Nil, u.ID)

	got, err := repo.GetByUsername(dbc, "reader")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "reader@example.com", got.Email)

	missing, err := repo.GetByUsername(dbc, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	exists, err := repo.UsernameExists(dbc, "reader")
	require.NoError(t, err)
	assert.True(t, exists)

	require.Error(t, repo.Create(dbc, &types.User{Username: "reader"}), "usernames are unique")

	require.NoError(t, repo.UpdateProfile(dbc, u.ID, Profile{Email: "new@example.com", FirstName: "C"}))
	got, err = repo.GetByUsername(dbc, "reader")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, "C", got.FirstName)
	assert.Empty(t, got.LastName)

	require.NoError(t, repo.Delete(dbc, u.ID))
	exists, err = repo.UsernameExists(dbc, "reader")
	require.NoError(t, err)
	assert.False(t, exists)
}
