// Package mongodb is the MongoDB implementation of store.Store. Place writes
// run inside multi-document transactions, so the server must be a replica
// set or a sharded cluster.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ncruz89/share-space-app-backend/internal/config"
	"github.com/ncruz89/share-space-app-backend/internal/models"
	"github.com/ncruz89/share-space-app-backend/internal/store"
)

const (
	usersCollection  = "users"
	placesCollection = "places"
)

// Connect opens a client against cfg.MongoURI and pings the primary.
func Connect(ctx context.Context, cfg config.Config) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	slog.Info("connected to mongo", "database", cfg.MongoDatabase)
	return client, nil
}

type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	places *mongo.Collection
}

var _ store.Store = (*Store)(nil)

func NewStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client: client,
		users:  db.Collection(usersCollection),
		places: db.Collection(placesCollection),
	}
}

// EnsureIndexes creates the unique user indexes and the creator lookup index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = s.places.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "creator", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create place indexes: %w", err)
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	default:
		return err
	}
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	doc := *user
	if doc.Places == nil {
		doc.Places = []string{}
	}
	_, err := s.users.InsertOne(ctx, doc)
	return translate(err)
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translate(err)
	}
	if user.Places == nil {
		user.Places = []string{}
	}
	return &user, nil
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := s.users.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return s.users.CountDocuments(ctx, bson.D{})
}

func (s *Store) FindPlaceByID(ctx context.Context, id string) (*models.Place, error) {
	var place models.Place
	if err := s.places.FindOne(ctx, bson.M{"_id": id}).Decode(&place); err != nil {
		return nil, translate(err)
	}
	return &place, nil
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
	cursor, err := s.places.Find(ctx, bson.M{"creator": creatorID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	places := make([]models.Place, 0)
	if err := cursor.All(ctx, &places); err != nil {
		return nil, err
	}
	return places, nil
}

func (s *Store) UpdatePlace(ctx context.Context, place *models.Place) error {
	result, err := s.places.UpdateOne(ctx, bson.M{"_id": place.ID}, bson.M{
		"$set": bson.M{
			"title":       place.Title,
			"description": place.Description,
			"updated_at":  place.UpdatedAt,
		},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// withTransaction runs fn inside a session transaction. fn receives the
// session context and must use it for every operation.
func (s *Store) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *Store) CreatePlace(ctx context.Context, place *models.Place) error {
	return s.withTransaction(ctx, func(ctx context.Context) error {
		return s.insertPlaceForCreator(ctx, place)
	})
}

// insertPlaceForCreator pushes the place id onto the creator, then inserts
// the place. ErrNotFound when no creator matched.
func (s *Store) insertPlaceForCreator(ctx context.Context, place *models.Place) error {
	result, err := s.users.UpdateOne(ctx, bson.M{"_id": place.CreatorID}, bson.M{
		"$push": bson.M{"places": place.ID},
		"$set":  bson.M{"updated_at": place.UpdatedAt},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}

	if _, err := s.places.InsertOne(ctx, place); err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) DeletePlace(ctx context.Context, placeID, creatorID string) error {
	return s.withTransaction(ctx, func(ctx context.Context) error {
		return s.removePlaceFromCreator(ctx, placeID, creatorID)
	})
}

// removePlaceFromCreator deletes the place, then pulls its id from the
// creator. ErrNotFound when the place was already gone.
func (s *Store) removePlaceFromCreator(ctx context.Context, placeID, creatorID string) error {
	result, err := s.places.DeleteOne(ctx, bson.M{"_id": placeID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}

	_, err = s.users.UpdateOne(ctx, bson.M{"_id": creatorID}, bson.M{
		"$pull": bson.M{"places": placeID},
	})
	return err
}

func (s *Store) CountPlaces(ctx context.Context) (int64, error) {
	return s.places.CountDocuments(ctx, bson.D{})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}
