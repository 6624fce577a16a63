package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncruz89/share-space-app-backend/internal/models"
	"github.com/ncruz89/share-space-app-backend/internal/store"
)

func seedUser(t *testing.T, s *Store, id, username, email string) {
	t.Helper()
	require.NoError(t, s.CreateUser(context.Background(), &models.User{
		ID:        id,
		Username:  username,
		Email:     email,
		CreatedAt: time.Now(),
	}))
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	s := New()
	seedUser(t, s, "u1", "alice", "a@x.com")

	err := s.CreateUser(context.Background(), &models.User{ID: "u2", Username: "bob", Email: "a@x.com"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	err = s.CreateUser(context.Background(), &models.User{ID: "u3", Username: "alice", Email: "c@x.com"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	count, err := s.CountUsers(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestCreateAndDeletePlaceKeepUserListConsistent(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s, "u1", "alice", "a@x.com")

	place := &models.Place{ID: "p1", Title: "Tower", CreatorID: "u1"}
	require.NoError(t, s.CreatePlace(ctx, place))

	user, err := s.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, user.Places)

	loaded, creator, err := s.FindPlaceWithCreator(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Tower", loaded.Title)
	assert.Equal(t, "u1", creator.ID)

	require.NoError(t, s.DeletePlace(ctx, "p1", "u1"))

	_, err = s.FindPlaceByID(ctx, "p1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	user, err = s.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, user.Places)
}

func TestCreatePlaceForMissingUserWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.CreatePlace(ctx, &models.Place{ID: "p1", CreatorID: "ghost"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	count, err := s.CountPlaces(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReturnedUsersDoNotAliasStoredState(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s, "u1", "alice", "a@x.com")
	require.NoError(t, s.CreatePlace(ctx, &models.Place{ID: "p1", CreatorID: "u1"}))

	user, err := s.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	user.Places[0] = "tampered"

	again, err := s.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, again.Places)
}
