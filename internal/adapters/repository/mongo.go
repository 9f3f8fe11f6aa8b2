package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/mingle/internal/domain/model"
)

// Collection names used by MongoStore.
const (
	mongoSubmissions = "survey_submissions"
	mongoProfiles    = "user_profiles"
	mongoGrids       = "match_grids"
)

// MongoStore is a Backend on MongoDB. Submissions and grids are upserted by
// their natural key, which unique indexes enforce.
type MongoStore struct {
	client      *mongo.Client
	submissions *mongo.Collection
	profiles    *mongo.Collection
	grids       *mongo.Collection
}

// OpenMongoStore connects to uri and prepares the indexes.
func OpenMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:      client,
		submissions: db.Collection(mongoSubmissions),
		profiles:    db.Collection(mongoProfiles),
		grids:       db.Collection(mongoGrids),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.submissions, mongo.IndexModel{Keys: bson.D{{Key: "eventId", Value: 1}, {Key: "userId", Value: 1}}, Options: unique}},
		{s.submissions, mongo.IndexModel{Keys: bson.D{{Key: "eventId", Value: 1}, {Key: "submittedAt", Value: 1}}}},
		{s.profiles, mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}}, Options: unique}},
		{s.grids, mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "eventId", Value: 1}}, Options: unique}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("create index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

func upsert() *options.ReplaceOptions {
	return options.Replace().SetUpsert(true)
}

// PutSubmission implements SubmissionStore.
func (s *MongoStore) PutSubmission(ctx context.Context, sub model.SurveySubmission) error {
	filter := bson.M{"eventId": sub.EventID, "userId": sub.UserID}
	if _, err := s.submissions.ReplaceOne(ctx, filter, toSubmissionRecord(sub), upsert()); err != nil {
		return fmt.Errorf("put submission: %w", err)
	}
	return nil
}

// ListByEvent implements SubmissionStore.
func (s *MongoStore) ListByEvent(ctx context.Context, eventID, excludingUserID string) ([]model.SurveySubmission, error) {
	filter := bson.M{"eventId": eventID, "userId": bson.M{"$ne": excludingUserID}}
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: 1}, {Key: "userId", Value: 1}})

	cur, err := s.submissions.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	var recs []submissionRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	out := make([]model.SurveySubmission, 0, len(recs))
	for _, rec := range recs {
		sub, err := rec.model()
		if err != nil {
			return nil, fmt.Errorf("list submissions: %w", err)
		}
		out = append(out, sub)
	}
	return out, nil
}

// GetUserInterests implements InterestLookup.
func (s *MongoStore) GetUserInterests(ctx context.Context, userID string) ([]string, error) {
	var rec profileRecord
	err := s.profiles.FindOne(ctx, bson.M{"userId": userID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get interests: %w", err)
	}
	return interestsOrEmpty(rec.Interests), nil
}

// PutInterests implements ProfileStore.
func (s *MongoStore) PutInterests(ctx context.Context, userID string, interests []string) error {
	rec := profileRecord{UserID: userID, Interests: interestsOrEmpty(interests)}
	if _, err := s.profiles.ReplaceOne(ctx, bson.M{"userId": userID}, rec, upsert()); err != nil {
		return fmt.Errorf("put interests: %w", err)
	}
	return nil
}

// PutGrid implements GridStore.
func (s *MongoStore) PutGrid(ctx context.Context, g model.MatchGrid) error {
	filter := bson.M{"userId": g.UserID, "eventId": g.EventID}
	if _, err := s.grids.ReplaceOne(ctx, filter, toGridRecord(g), upsert()); err != nil {
		return fmt.Errorf("put grid: %w", err)
	}
	return nil
}

// GetGrid implements GridStore.
func (s *MongoStore) GetGrid(ctx context.Context, userID, eventID string) (model.MatchGrid, error) {
	var rec gridRecord
	err := s.grids.FindOne(ctx, bson.M{"userId": userID, "eventId": eventID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.MatchGrid{}, fmt.Errorf("get grid: %w", ErrNotFound)
	}
	if err != nil {
		return model.MatchGrid{}, fmt.Errorf("get grid: %w", err)
	}
	return rec.model(), nil
}

// Close implements Backend.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
