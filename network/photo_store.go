package network

import (
	"context"
	"time"

	"github.com/op/go-logging"
	"github.com/snapmission/photo-services/constants"
	"github.com/snapmission/photo-services/internal/storeerrors"
	"github.com/snapmission/photo-services/models/photo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PhotoStore is the record store for the photo pipeline. The unique
// (user_id, mission_id) index behind Insert is the only cross-request
// synchronization primitive in the whole system; everything layered
// above it is advisory.
//
// Insert returns storeerrors.ErrDuplicateRecord on a unique-index
// violation, and lookups return storeerrors.ErrRecordNotFound, so callers
// never see raw driver errors for those two cases.
type PhotoStore interface {
	EnsureIndexes(ctx context.Context) error
	Insert(ctx context.Context, p *photo.Photo) error
	FindByID(ctx context.Context, id string) (*photo.Photo, error)
	FindByUserAndMission(ctx context.Context, userID, missionID string) (*photo.Photo, error)
	ReplaceContent(ctx context.Context, id primitive.ObjectID, p *photo.Photo) error
	UpdateFields(ctx context.Context, id string, update *photo.Update) (*photo.Photo, error)
	MarkShared(ctx context.Context, id string) (*photo.Photo, error)
	ListByUser(ctx context.Context, userID string) ([]*photo.Photo, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]*photo.Photo, error)
	ListPublic(ctx context.Context, limit, skip int) ([]*photo.Photo, error)
	ListPublicByMission(ctx context.Context, missionID string) ([]*photo.Photo, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) ([]string, error)
}

// MongoPhotoStore keeps one document per (user, mission) pair in the
// photos collection.
type MongoPhotoStore struct {
	photos *mongo.Collection
	logger *logging.Logger
}

func NewMongoPhotoStore(db *mongo.Database, logger *logging.Logger) *MongoPhotoStore {
	return &MongoPhotoStore{
		photos: db.Collection("photos"),
		logger: logger,
	}
}

// EnsureIndexes creates the unique compound index that enforces the
// one-photo-per-user-per-mission invariant. Creating an index that
// already exists is a no-op, so this runs at every startup.
func (s *MongoPhotoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.photos.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "mission_id", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("uniq_user_mission"),
	})
	return err
}

func (s *MongoPhotoStore) Insert(ctx context.Context, p *photo.Photo) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.photos.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return storeerrors.ErrDuplicateRecord
	}
	return err
}

func (s *MongoPhotoStore) FindByID(ctx context.Context, id string) (*photo.Photo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, storeerrors.ErrRecordNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *MongoPhotoStore) FindByUserAndMission(ctx context.Context, userID, missionID string) (*photo.Photo, error) {
	return s.findOne(ctx, bson.M{"user_id": userID, "mission_id": missionID})
}

func (s *MongoPhotoStore) findOne(ctx context.Context, filter bson.M) (*photo.Photo, error) {
	p := &photo.Photo{}
	err := s.photos.FindOne(ctx, filter).Decode(p)
	if err == mongo.ErrNoDocuments {
		return nil, storeerrors.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ReplaceContent overwrites the object key and all mutable fields of
// an existing record in place, implementing replace-not-accumulate.
// The record id and created_at survive; is_shared resets because the
// shared flag described the photo that was just replaced.
func (s *MongoPhotoStore) ReplaceContent(ctx context.Context, id primitive.ObjectID, p *photo.Photo) error {
	result, err := s.photos.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"object_key": p.ObjectKey,
			"comment":    p.Comment,
			"is_public":  p.IsPublic,
			"is_shared":  false,
			"file_size":  p.FileSize,
			"mime_type":  p.MimeType,
			"width":      p.Width,
			"height":     p.Height,
			"updated_at": time.Now().UTC(),
		},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return storeerrors.ErrRecordNotFound
	}
	return nil
}

func (s *MongoPhotoStore) UpdateFields(ctx context.Context, id string, update *photo.Update) (*photo.Photo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, storeerrors.ErrRecordNotFound
	}
	fields := bson.M{"updated_at": time.Now().UTC()}
	if update.Comment != nil {
		fields["comment"] = *update.Comment
	}
	if update.IsPublic != nil {
		fields["is_public"] = *update.IsPublic
	}
	return s.findOneAndUpdate(ctx, oid, bson.M{"$set": fields})
}

// MarkShared flags a record as having completed an external share.
func (s *MongoPhotoStore) MarkShared(ctx context.Context, id string) (*photo.Photo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, storeerrors.ErrRecordNotFound
	}
	fields := bson.M{"is_shared": true, "updated_at": time.Now().UTC()}
	return s.findOneAndUpdate(ctx, oid, bson.M{"$set": fields})
}

func (s *MongoPhotoStore) findOneAndUpdate(ctx context.Context, oid primitive.ObjectID, update bson.M) (*photo.Photo, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	p := &photo.Photo{}
	err := s.photos.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(p)
	if err == mongo.ErrNoDocuments {
		return nil, storeerrors.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *MongoPhotoStore) ListByUser(ctx context.Context, userID string) ([]*photo.Photo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.findMany(ctx, bson.M{"user_id": userID}, opts)
}

// ListRecent returns the caller's most recently touched photos,
// limit clamped to [1, MaxRecentLimit].
func (s *MongoPhotoStore) ListRecent(ctx context.Context, userID string, limit int) ([]*photo.Photo, error) {
	limit = ClampLimit(limit, constants.DefaultRecentLimit, constants.MaxRecentLimit)
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(int64(limit))
	return s.findMany(ctx, bson.M{"user_id": userID}, opts)
}

// ListPublic returns public photos newest first, paginated via limit
// and skip. Limit is clamped to [1, MaxPublicLimit].
func (s *MongoPhotoStore) ListPublic(ctx context.Context, limit, skip int) ([]*photo.Photo, error) {
	limit = ClampLimit(limit, constants.DefaultPublicLimit, constants.MaxPublicLimit)
	if skip < 0 {
		skip = 0
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip))
	return s.findMany(ctx, bson.M{"is_public": true}, opts)
}

func (s *MongoPhotoStore) ListPublicByMission(ctx context.Context, missionID string) ([]*photo.Photo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.findMany(ctx, bson.M{"mission_id": missionID, "is_public": true}, opts)
}

func (s *MongoPhotoStore) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*photo.Photo, error) {
	cursor, err := s.photos.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	photos := make([]*photo.Photo, 0)
	for cursor.Next(ctx) {
		p := &photo.Photo{}
		if err = cursor.Decode(p); err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, cursor.Err()
}

func (s *MongoPhotoStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return storeerrors.ErrRecordNotFound
	}
	result, err := s.photos.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return storeerrors.ErrRecordNotFound
	}
	return nil
}

// DeleteByUser removes all of a user's records, for account deletion.
// It returns the object keys of the deleted records so the caller can
// clean up the backing blobs best-effort.
func (s *MongoPhotoStore) DeleteByUser(ctx context.Context, userID string) ([]string, error) {
	photos, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(photos))
	for _, p := range photos {
		if p.ObjectKey != "" {
			keys = append(keys, p.ObjectKey)
		}
	}
	_, err = s.photos.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// ClampLimit applies the default when the caller sent no limit, and
// clamps the rest into [1, max].
func ClampLimit(requested, defaultLimit, max int) int {
	if requested == 0 {
		return defaultLimit
	}
	if requested < 1 {
		return 1
	}
	if requested > max {
		return max
	}
	return requested
}
