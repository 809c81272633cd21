package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/model"
)

const snapshotsCollection = "metric_snapshots"

// MongoStore persists snapshots in a MongoDB collection, append-only.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to MongoDB and ensures the query indexes exist.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo metrics store requires a connection URI")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(snapshotsCollection),
	}

	if err := store.createIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	log.Info().Str("database", database).Msg("Connected to MongoDB metrics store")
	return store, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "platform", Value: 1}, {Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "agent_name", Value: 1}, {Key: "timestamp", Value: 1}}},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create metric indexes: %w", err)
	}
	return nil
}

// Store implements Store.
func (s *MongoStore) Store(ctx context.Context, snapshot model.MetricSnapshot) error {
	if _, err := s.collection.InsertOne(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to insert metric snapshot: %w", err)
	}
	return nil
}

// Query implements Store.
func (s *MongoStore) Query(ctx context.Context, q Query) ([]model.MetricSnapshot, error) {
	filter := bson.M{}
	if q.AgentName != "" {
		filter["agent_name"] = q.AgentName
	}
	if q.Platform != "" {
		filter["platform"] = q.Platform
	}

	timeRange := bson.M{}
	if !q.Start.IsZero() {
		timeRange["$gte"] = q.Start
	}
	if !q.End.IsZero() {
		timeRange["$lt"] = q.End
	}
	if len(timeRange) > 0 {
		filter["timestamp"] = timeRange
	}

	cursor, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query metric snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var snapshots []model.MetricSnapshot
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode metric snapshots: %w", err)
	}
	return snapshots, nil
}

// PlatformSummary implements Store.
func (s *MongoStore) PlatformSummary(ctx context.Context, platform common.PlatformType, start, end time.Time) (model.PlatformReport, error) {
	snapshots, err := s.Query(ctx, Query{Platform: platform, Start: start, End: end})
	if err != nil {
		return model.PlatformReport{}, err
	}
	return Summarize(platform, snapshots), nil
}

// Close implements Store.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
