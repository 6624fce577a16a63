package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/ncruz89/share-space-app-backend/internal/models"
	"github.com/ncruz89/share-space-app-backend/internal/store"
)

const (
	pqUniqueViolation      = "23505"
	pqForeignKeyViolation  = "23503"
	pqInvalidTextRepresent = "22P02"

	userColumns  = `id, username, email, password, image, places, created_at, updated_at`
	placeColumns = `id, title, description, address, lat, lng, image, creator_id, created_at, updated_at`
)

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	places := pq.StringArray{}
	if err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Image,
		&places, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.Places = []string(places)
	if user.Places == nil {
		user.Places = []string{}
	}
	return &user, nil
}

func scanPlace(row rowScanner) (*models.Place, error) {
	var place models.Place
	if err := row.Scan(
		&place.ID, &place.Title, &place.Description, &place.Address,
		&place.Location.Lat, &place.Location.Lng, &place.Image, &place.CreatorID,
		&place.CreatedAt, &place.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &place, nil
}

// translate maps driver errors onto the store sentinels. A malformed UUID in
// a lookup can never match a row, so it reads as not found.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return store.ErrDuplicate
		case pqInvalidTextRepresent, pqForeignKeyViolation:
			return store.ErrNotFound
		}
	}
	return err
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	places := user.Places
	if places == nil {
		places = []string{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password, image, places, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Image, pq.Array(places), user.CreatedAt, user.UpdatedAt,
	)
	return translate(err)
}

func (s *Store) findUser(ctx context.Context, column, value string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)
	user, err := scanUser(row)
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, "id", id)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email", email)
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, "username", username)
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func (s *Store) FindPlaceByID(ctx context.Context, id string) (*models.Place, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+placeColumns+` FROM places WHERE id = $1`, id)
	place, err := scanPlace(row)
	if err != nil {
		return nil, translate(err)
	}
	return place, nil
}

func (s *Store) FindPlaceWithCreator(ctx context.Context, id string) (*models.Place, *models.User, error) {
	place, err := s.FindPlaceByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	creator, err := s.FindUserByID(ctx, place.CreatorID)
	if errors.Is(err, store.ErrNotFound) {
		return place, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return place, creator, nil
}

func (s *Store) ListPlacesByCreator(ctx context.Context, creatorID string) ([]models.Place, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+placeColumns+` FROM places WHERE creator_id = $1 ORDER BY created_at ASC`, creatorID)
	if err != nil {
		if errors.Is(translate(err), store.ErrNotFound) {
			return []models.Place{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	places := make([]models.Place, 0)
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		places = append(places, *place)
	}
	return places, rows.Err()
}

func (s *Store) UpdatePlace(ctx context.Context, place *models.Place) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE places SET title = $1, description = $2, updated_at = $3 WHERE id = $4`,
		place.Title, place.Description, place.UpdatedAt, place.ID,
	)
	if err != nil {
		return translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreatePlace(ctx context.Context, place *models.Place) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create place: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE users SET places = array_append(places, $1), updated_at = $2 WHERE id = $3`,
		place.ID, place.UpdatedAt, place.CreatorID,
	)
	if err != nil {
		return translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO places (`+placeColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		place.ID, place.Title, place.Description, place.Address,
		place.Location.Lat, place.Location.Lng, place.Image, place.CreatorID,
		place.CreatedAt, place.UpdatedAt,
	); err != nil {
		return translate(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create place: %w", err)
	}
	return nil
}

func (s *Store) DeletePlace(ctx context.Context, placeID, creatorID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete place: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM places WHERE id = $1`, placeID)
	if err != nil {
		return translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET places = array_remove(places, $1) WHERE id = $2`,
		placeID, creatorID,
	); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete place: %w", err)
	}
	return nil
}

func (s *Store) CountPlaces(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM places`).Scan(&count)
	return count, err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		slog.Warn("close database", "error", err)
		return err
	}
	return nil
}
