package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	sessionserrors "studiobook/internal/sessions/errors"
	"studiobook/pkg/config"
	"studiobook/pkg/model"
)

const (
	CollectionName = "Sessions"
)

// StatusChange carries the fields written by every status transition.
type StatusChange struct {
	Status    model.Status
	UpdatedBy string
	UpdatedAt time.Time
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	CreateMany(ctx context.Context, sessions []*model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Session, error)
	FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Session, error)
	Count(ctx context.Context) (int64, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	FindByStartRange(ctx context.Context, from, to time.Time, approvedOnly bool) ([]*model.Session, error)
	Update(ctx context.Context, id string, session *model.Session) error
	UpdateStatus(ctx context.Context, id string, change StatusChange) error
	UpdateStatusByParent(ctx context.Context, parentID string, notBefore *time.Time, change StatusChange) (int64, error)
	UpdatePayment(ctx context.Context, id string, isPaid bool) error
	Delete(ctx context.Context, id string) error
	DeleteByParent(ctx context.Context, parentID string) (int64, error)
	DeleteSeries(ctx context.Context, parentID string) (int64, error)
}

type mongoSessionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSessionRepository(cfg *config.Config) SessionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSessionRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoSessionRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoSessionRepository) Create(ctx context.Context, session *model.Session) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	session.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		session.ID = oid.Hex()
	}
	return nil
}

// CreateMany batch-inserts generated occurrences after expansion completes.
func (r *mongoSessionRepository) CreateMany(ctx context.Context, sessions []*model.Session) error {
	if len(sessions) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]any, 0, len(sessions))
	for _, s := range sessions {
		s.CreatedAt = now
		docs = append(docs, s)
	}

	result, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to create sessions: %w", err)
	}

	for i, inserted := range result.InsertedIDs {
		if oid, ok := inserted.(primitive.ObjectID); ok && i < len(sessions) {
			sessions[i].ID = oid.Hex()
		}
	}
	return nil
}

func (r *mongoSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", sessionserrors.ErrInvalidID, id)
	}

	var session model.Session
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sessionserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return &session, nil
}

func (r *mongoSessionRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Session, error) {
	return r.find(ctx, bson.M{}, limit, offset)
}

func (r *mongoSessionRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Session, error) {
	return r.find(ctx, bson.M{"user_id": userID}, limit, offset)
}

func (r *mongoSessionRepository) find(ctx context.Context, filter bson.M, limit int, offset int64) ([]*model.Session, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	return sessions, nil
}

func (r *mongoSessionRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, bson.M{})
}

func (r *mongoSessionRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, bson.M{"user_id": userID})
}

func (r *mongoSessionRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// FindByStartRange returns sessions starting within [from, to], sorted by
// start time. With approvedOnly set, only approved sessions are returned;
// this is the calendar view for non-admin callers.
func (r *mongoSessionRepository) FindByStartRange(ctx context.Context, from, to time.Time, approvedOnly bool) ([]*model.Session, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"start_time": bson.M{"$gte": from, "$lte": to},
	}
	if approvedOnly {
		filter["status"] = model.StatusApproved
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find sessions in range: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	return sessions, nil
}

func (r *mongoSessionRepository) Update(ctx context.Context, id string, session *model.Session) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", sessionserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"title":       session.Title,
			"description": session.Description,
			"start_time":  session.StartTime,
			"end_time":    session.EndTime,
			"status":      session.Status,
			"is_paid":     session.IsPaid,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	if result.MatchedCount == 0 {
		return sessionserrors.ErrNotFound
	}
	return nil
}

func (r *mongoSessionRepository) UpdateStatus(ctx context.Context, id string, change StatusChange) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", sessionserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$set": statusFields(change),
	})
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}

	if result.MatchedCount == 0 {
		return sessionserrors.ErrNotFound
	}
	return nil
}

// UpdateStatusByParent applies a status change to every occurrence linked to
// parentID, optionally restricted to those starting at or after notBefore.
// This is a bulk conditional write, not a transaction: a crash mid-way can
// leave a partially updated series.
func (r *mongoSessionRepository) UpdateStatusByParent(ctx context.Context, parentID string, notBefore *time.Time, change StatusChange) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"parent_session_id": parentID}
	if notBefore != nil {
		filter["start_time"] = bson.M{"$gte": *notBefore}
	}

	result, err := r.collection.UpdateMany(ctx, filter, bson.M{
		"$set": statusFields(change),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to update sessions by parent: %w", err)
	}

	return result.ModifiedCount, nil
}

func (r *mongoSessionRepository) UpdatePayment(ctx context.Context, id string, isPaid bool) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", sessionserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$set": bson.M{"is_paid": isPaid},
	})
	if err != nil {
		return fmt.Errorf("failed to update session payment: %w", err)
	}

	if result.MatchedCount == 0 {
		return sessionserrors.ErrNotFound
	}
	return nil
}

func (r *mongoSessionRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", sessionserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if result.DeletedCount == 0 {
		return sessionserrors.ErrNotFound
	}
	return nil
}

func (r *mongoSessionRepository) DeleteByParent(ctx context.Context, parentID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"parent_session_id": parentID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions by parent: %w", err)
	}
	return result.DeletedCount, nil
}

// DeleteSeries removes the parent and every linked occurrence in one bulk
// delete.
func (r *mongoSessionRepository) DeleteSeries(ctx context.Context, parentID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(parentID)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", sessionserrors.ErrInvalidID, parentID)
	}

	filter := bson.M{"$or": []bson.M{
		{"_id": objectID},
		{"parent_session_id": parentID},
	}}

	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session series: %w", err)
	}
	return result.DeletedCount, nil
}

func statusFields(change StatusChange) bson.M {
	return bson.M{
		"status":            change.Status,
		"status_updated_at": change.UpdatedAt,
		"status_updated_by": change.UpdatedBy,
	}
}
