// Package services holds the place write coordinator and the account flows.
// Every error they return is an *apperr.Error.
package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ncruz89/share-space-app-backend/internal/apperr"
	"github.com/ncruz89/share-space-app-backend/internal/geocode"
	"github.com/ncruz89/share-space-app-backend/internal/models"
	"github.com/ncruz89/share-space-app-backend/internal/store"
)

const tracerName = "github.com/ncruz89/share-space-app-backend/internal/services"

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Coordinates(ctx context.Context, address string) (models.Location, error)
}

// FileRemover deletes a stored image by reference.
type FileRemover interface {
	Remove(ref string) error
}

// WriteRecorder observes place write outcomes.
type WriteRecorder interface {
	RecordPlaceWrite(operation string, err error)
}

type NewPlace struct {
	Title       string
	Description string
	Address     string
	ImageRef    string
}

type PlaceChanges struct {
	Title       string
	Description string
}

type PlaceService struct {
	store         store.Store
	geocoder      Geocoder
	files         FileRemover
	recorder      WriteRecorder
	logger        *slog.Logger
	tracer        trace.Tracer
	publicBaseURL string
	now           func() time.Time
	newID         func() string
}

type PlaceOption func(*PlaceService)

func WithPlaceLogger(logger *slog.Logger) PlaceOption {
	return func(s *PlaceService) { s.logger = logger }
}

func WithWriteRecorder(recorder WriteRecorder) PlaceOption {
	return func(s *PlaceService) { s.recorder = recorder }
}

// WithPublicBaseURL makes returned image references absolute URLs.
func WithPublicBaseURL(baseURL string) PlaceOption {
	return func(s *PlaceService) { s.publicBaseURL = strings.TrimRight(baseURL, "/") }
}

func NewPlaceService(st store.Store, geocoder Geocoder, files FileRemover, opts ...PlaceOption) *PlaceService {
	s := &PlaceService{
		store:    st,
		geocoder: geocoder,
		files:    files,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PlaceService) present(place models.Place) models.Place {
	place.Image = imageURL(s.publicBaseURL, place.Image)
	return place
}

func (s *PlaceService) record(operation string, err error) {
	if s.recorder != nil {
		s.recorder.RecordPlaceWrite(operation, err)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.From(err).Message)
	}
	span.End()
}

func (s *PlaceService) GetByID(ctx context.Context, placeID string) (*models.Place, error) {
	place, err := s.store.FindPlaceByID(ctx, placeID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Could not find a place for the provided id.")
	}
	if err != nil {
		return nil, apperr.Internal("Something went wrong, could not find a place.", err)
	}
	out := s.present(*place)
	return &out, nil
}

// ListByUser returns the places created by userID. Unknown users have none.
func (s *PlaceService) ListByUser(ctx context.Context, userID string) ([]models.Place, error) {
	places, err := s.store.ListPlacesByCreator(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Something went wrong, could not fetch user places.", err)
	}
	out := make([]models.Place, 0, len(places))
	for _, place := range places {
		out = append(out, s.present(place))
	}
	return out, nil
}

// Create geocodes the address and stores the place together with the
// creator's place list entry.
func (s *PlaceService) Create(ctx context.Context, userID string, input NewPlace) (_ *models.Place, err error) {
	ctx, span := s.tracer.Start(ctx, "PlaceService.Create", trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() {
		s.record("create", err)
		endSpan(span, err)
	}()

	location, err := s.geocoder.Coordinates(ctx, input.Address)
	if err != nil {
		if !errors.Is(err, geocode.ErrNotFound) {
			s.logger.Warn("geocoding failed", "address", input.Address, "error", err)
		}
		return nil, apperr.Wrap(apperr.KindValidation, "Could not find location for the specified address.", err)
	}

	now := s.now().UTC()
	place := &models.Place{
		ID:          s.newID(),
		Title:       input.Title,
		Description: input.Description,
		Address:     input.Address,
		Location:    location,
		Image:       input.ImageRef,
		CreatorID:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.store.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Could not find user for provided id.")
		}
		return nil, apperr.Internal("Creating place failed, please try again.", err)
	}

	if err := s.store.CreatePlace(ctx, place); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Could not find user for provided id.")
		}
		return nil, apperr.Internal("Creating place failed, please try again.", err)
	}

	span.SetAttributes(attribute.String("place.id", place.ID))
	s.logger.Info("place created", "place_id", place.ID, "user_id", userID)
	out := s.present(*place)
	return &out, nil
}

// Update changes title and description of a place owned by userID.
func (s *PlaceService) Update(ctx context.Context, userID, placeID string, changes PlaceChanges) (_ *models.Place, err error) {
	ctx, span := s.tracer.Start(ctx, "PlaceService.Update", trace.WithAttributes(
		attribute.String("user.id", userID), attribute.String("place.id", placeID)))
	defer func() {
		s.record("update", err)
		endSpan(span, err)
	}()

	place, err := s.store.FindPlaceByID(ctx, placeID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Could not find a place for the provided id.")
	}
	if err != nil {
		return nil, apperr.Internal("Something went wrong, could not update place.", err)
	}

	if place.CreatorID != userID {
		return nil, apperr.Authorization("You are not allowed to edit this place.")
	}

	place.Title = changes.Title
	place.Description = changes.Description
	place.UpdatedAt = s.now().UTC()

	if err := s.store.UpdatePlace(ctx, place); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Could not find a place for the provided id.")
		}
		return nil, apperr.Internal("Something went wrong, could not update place.", err)
	}

	out := s.present(*place)
	return &out, nil
}

// Delete removes a place owned by userID, then its image. A leftover image
// file is only logged.
func (s *PlaceService) Delete(ctx context.Context, userID, placeID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "PlaceService.Delete", trace.WithAttributes(
		attribute.String("user.id", userID), attribute.String("place.id", placeID)))
	defer func() {
		s.record("delete", err)
		endSpan(span, err)
	}()

	place, creator, err := s.store.FindPlaceWithCreator(ctx, placeID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Could not find place for this id.")
	}
	if err != nil {
		return apperr.Internal("Something went wrong, could not delete place.", err)
	}

	if creator == nil || creator.ID != userID || place.CreatorID != userID {
		return apperr.Authorization("You are not allowed to delete this place.")
	}

	if err := s.store.DeletePlace(ctx, place.ID, creator.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Could not find place for this id.")
		}
		return apperr.Internal("Something went wrong, could not delete place.", err)
	}

	if err := s.files.Remove(place.Image); err != nil {
		s.logger.Warn("remove image of deleted place", "place_id", place.ID, "path", place.Image, "error", err)
	}
	s.logger.Info("place deleted", "place_id", place.ID, "user_id", userID)
	return nil
}

// imageURL turns a stored reference into the address clients fetch it from.
func imageURL(baseURL, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	ref = strings.TrimLeft(ref, "/")
	if baseURL == "" {
		return "/" + ref
	}
	return baseURL + "/" + ref
}
