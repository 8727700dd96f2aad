package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

const (
	snapshotsCollection     = "metrics_snapshots"
	optimizationsCollection = "optimization_runs"
)

// Repository defines the interface for metrics and optimization history.
type Repository interface {
	SaveMetricsSnapshot(ctx context.Context, record models.MetricsRecord) error
	SaveOptimizationRun(ctx context.Context, record models.OptimizationRecord) error
	RecentSnapshots(ctx context.Context, limit int64) ([]models.MetricsRecord, error)
}

// HistoryRepository implements the Repository interface for MongoDB.
type HistoryRepository struct {
	client *mongo.Client
	dbName string
}

// Connect dials uri, verifies the connection and returns a history repository.
func Connect(ctx context.Context, uri string, dbName string) (*HistoryRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return NewHistoryRepository(client, dbName), nil
}

// NewHistoryRepository wraps an already connected client.
func NewHistoryRepository(client *mongo.Client, dbName string) *HistoryRepository {
	return &HistoryRepository{client: client, dbName: dbName}
}

func (r *HistoryRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// SaveMetricsSnapshot stores a computed metrics snapshot.
func (r *HistoryRepository) SaveMetricsSnapshot(ctx context.Context, record models.MetricsRecord) error {
	if _, err := r.collection(snapshotsCollection).InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert metrics snapshot: %w", err)
	}
	return nil
}

// SaveOptimizationRun stores the outcome of one optimization run.
func (r *HistoryRepository) SaveOptimizationRun(ctx context.Context, record models.OptimizationRecord) error {
	if _, err := r.collection(optimizationsCollection).InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert optimization run: %w", err)
	}
	return nil
}

// RecentSnapshots returns up to limit snapshots, newest first.
func (r *HistoryRepository) RecentSnapshots(ctx context.Context, limit int64) ([]models.MetricsRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().SetSort(bson.D{{Key: "computed_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection(snapshotsCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.MetricsRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode metrics snapshots: %w", err)
	}
	return records, nil
}

// Close closes the MongoDB connection.
func (r *HistoryRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
