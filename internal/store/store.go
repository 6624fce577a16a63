// Package store declares the persistence contract shared by the Postgres,
// Mongo and in-memory backends.
//
// The two place write operations, CreatePlace and DeletePlace, are atomic:
// the place record and the owning user's place list change together or not
// at all.
package store

import (
	"context"
	"errors"

	"github.com/ncruz89/share-space-app-backend/internal/models"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a unique username or email is taken.
	ErrDuplicate = errors.New("store: duplicate record")
)

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

type PlaceStore interface {
	FindPlaceByID(ctx context.Context, id string) (*models.Place, error)
	// FindPlaceWithCreator loads a place together with its creator record.
	FindPlaceWithCreator(ctx context.Context, id string) (*models.Place, *models.User, error)
	ListPlacesByCreator(ctx context.Context, creatorID string) ([]models.Place, error)
	// UpdatePlace persists title and description only.
	UpdatePlace(ctx context.Context, place *models.Place) error
	// CreatePlace inserts place and appends its id to the creator's place
	// list in one transaction. ErrNotFound when the creator is gone.
	CreatePlace(ctx context.Context, place *models.Place) error
	// DeletePlace removes the place and pulls its id from the creator's
	// place list in one transaction.
	DeletePlace(ctx context.Context, placeID, creatorID string) error
	CountPlaces(ctx context.Context) (int64, error)
}

type Store interface {
	UserStore
	PlaceStore
	Ping(ctx context.Context) error
	Close() error
}
