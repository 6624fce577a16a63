// Package memory is an in-process store used for local runs and tests.
// A single mutex makes the place write operations atomic.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ncruz89/share-space-app-backend/internal/models"
	"github.com/ncruz89/share-space-app-backend/internal/store"
)

type Store struct {
	mu     sync.RWMutex
	users  map[string]models.User
	places map[string]models.Place
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:  make(map[string]models.User),
		places: make(map[string]models.Place),
	}
}

func copyUser(u models.User) *models.User {
	u.Places = append([]string(nil), u.Places...)
	if u.Places == nil {
		u.Places = []string{}
	}
	return &u
}

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return store.ErrDuplicate
	}
	for _, existing := range s.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return store.ErrDuplicate
		}
	}
	s.users[user.ID] = *copyUser(*user)
	return nil
}

func (s *Store) FindUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return copyUser(user), nil
}

func (s *Store) findUser(match func(models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if match(user) {
			return copyUser(user), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Email == email })
}

func (s *Store) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Username == username })
}

func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, *copyUser(user))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountUsers(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func (s *Store) FindPlaceByID(_ context.Context, id string) (*models.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	place, exists := s.places[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &place, nil
}

func (s *Store) FindPlaceWithCreator(_ context.Context, id string) (*models.Place, *models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	place, exists := s.places[id]
	if !exists {
		return nil, nil, store.ErrNotFound
	}
	creator, exists := s.users[place.CreatorID]
	if !exists {
		return &place, nil, nil
	}
	return &place, copyUser(creator), nil
}

func (s *Store) ListPlacesByCreator(_ context.Context, creatorID string) ([]models.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Place, 0)
	for _, place := range s.places {
		if place.CreatorID == creatorID {
			out = append(out, place)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdatePlace(_ context.Context, place *models.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.places[place.ID]
	if !exists {
		return store.ErrNotFound
	}
	existing.Title = place.Title
	existing.Description = place.Description
	existing.UpdatedAt = place.UpdatedAt
	s.places[place.ID] = existing
	return nil
}

func (s *Store) CreatePlace(_ context.Context, place *models.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creator, exists := s.users[place.CreatorID]
	if !exists {
		return store.ErrNotFound
	}
	if _, taken := s.places[place.ID]; taken {
		return store.ErrDuplicate
	}

	creator.Places = append(append([]string(nil), creator.Places...), place.ID)
	s.users[creator.ID] = creator
	s.places[place.ID] = *place
	return nil
}

func (s *Store) DeletePlace(_ context.Context, placeID, creatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.places[placeID]; !exists {
		return store.ErrNotFound
	}

	if creator, exists := s.users[creatorID]; exists {
		kept := make([]string, 0, len(creator.Places))
		for _, id := range creator.Places {
			if id != placeID {
				kept = append(kept, id)
			}
		}
		creator.Places = kept
		s.users[creatorID] = creator
	}
	delete(s.places, placeID)
	return nil
}

func (s *Store) CountPlaces(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.places)), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
