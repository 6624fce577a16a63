package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ncruz89/share-space-app-backend/internal/apperr"
	"github.com/ncruz89/share-space-app-backend/internal/models"
	"github.com/ncruz89/share-space-app-backend/internal/store"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Matches(hashed, password string) bool
}

type Signup struct {
	Username string
	Email    string
	Password string
	ImageRef string
}

// Session is returned by signup and login.
type Session struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

var errInvalidCredentials = apperr.Authorization("Invalid credentials, login failed.")

// Compared against on unknown usernames so both login failures pay the same
// hashing cost.
const decoyPassword = "share-places-decoy-password"

type UserService struct {
	store         store.UserStore
	tokens        TokenIssuer
	hasher        PasswordHasher
	logger        *slog.Logger
	publicBaseURL string
	decoyHash     string
	now           func() time.Time
	newID         func() string
}

func NewUserService(st store.UserStore, tokens TokenIssuer, hasher PasswordHasher, logger *slog.Logger, publicBaseURL string) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	decoyHash, err := hasher.Hash(decoyPassword)
	if err != nil {
		logger.Warn("could not prepare decoy password hash", "error", err)
	}
	return &UserService{
		store:         st,
		tokens:        tokens,
		hasher:        hasher,
		logger:        logger,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		decoyHash:     decoyHash,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// List returns every user. Password hashes never leave the service.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal("Could not retrieve users, please try again later.", err)
	}
	for i := range users {
		users[i].PasswordHash = ""
		users[i].Image = imageURL(s.publicBaseURL, users[i].Image)
	}
	return users, nil
}

func (s *UserService) Register(ctx context.Context, input Signup) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	_, err := s.store.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperr.Validation("Email already exists, please login instead.")
	case !errors.Is(err, store.ErrNotFound):
		return nil, apperr.Internal("Signing up failed, please try again later.", err)
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperr.Internal("Could not create user, please try again.", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           s.newID(),
		Username:     strings.TrimSpace(input.Username),
		Email:        email,
		PasswordHash: hashed,
		Image:        input.ImageRef,
		Places:       []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Validation("User already exists, please login instead.")
		}
		return nil, apperr.Internal("Signing up failed, please try again later.", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Internal("Signing up failed, please try again later.", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return &Session{UserID: user.ID, Username: user.Username, Token: token}, nil
}

// Login checks credentials by username. An unknown user and a wrong password
// produce the same error.
func (s *UserService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.store.FindUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		s.hasher.Matches(s.decoyHash, password)
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Internal("Logging in failed, please try again later.", err)
	}

	if !s.hasher.Matches(user.PasswordHash, password) {
		return nil, errInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Internal("Logging in failed, please try again later.", err)
	}

	return &Session{UserID: user.ID, Username: user.Username, Token: token}, nil
}
