package audit

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoRecorder implements Recorder on a MongoDB collection.
type MongoRecorder struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoRecorder connects, pings and makes sure the lookup index exists.
func NewMongoRecorder(ctx context.Context, connectionString, database, collection string) (*MongoRecorder, error) {
	opts := options.Client().ApplyURI(connectionString)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	m := &MongoRecorder{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}
	if err := m.ensureIndex(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return m, nil
}

func (m *MongoRecorder) ensureIndex(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "project_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("status_project_created"),
	}
	if _, err := m.collection.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("creating index on %s: %w", m.collection.Name(), err)
	}
	return nil
}

func (m *MongoRecorder) Record(ctx context.Context, req ApprovalRequest) error {
	if _, err := m.collection.InsertOne(ctx, req); err != nil {
		return fmt.Errorf("inserting approval request %s: %w", req.ID, err)
	}
	return nil
}

func (m *MongoRecorder) Pending(ctx context.Context, projectID int64, limit int) ([]ApprovalRequest, error) {
	filter := bson.D{{Key: "status", Value: string(StatusPending)}}
	if projectID != 0 {
		filter = append(filter, bson.E{Key: "project_id", Value: projectID})
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("querying pending approvals: %w", err)
	}

	requests := make([]ApprovalRequest, 0)
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("decoding pending approvals: %w", err)
	}
	return requests, nil
}

func (m *MongoRecorder) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
