package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	sessionserrors "studiobook/internal/sessions/errors"
	"studiobook/pkg/config"
	"studiobook/pkg/model"
)

const (
	UserCollectionName = "Users"
)

// UserRepository is the read-only view of the user directory this service
// consults for notification recipients. Account management lives elsewhere.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type mongoUserRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoUserRepository(cfg *config.Config) UserRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoUserRepository{
		cfg:        cfg,
		collection: db.Collection(UserCollectionName),
	}
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter, err := userIDFilter(id)
	if err != nil {
		return nil, err
	}

	var user model.User
	err = r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sessionserrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &user, nil
}

// userIDFilter accepts both ObjectID hex and plain string identifiers, since
// the gateway forwards whichever form the directory was seeded with.
func userIDFilter(id string) (bson.M, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty user id", sessionserrors.ErrInvalidID)
	}
	if objectID, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": objectID}, nil
	}
	return bson.M{"_id": id}, nil
}
