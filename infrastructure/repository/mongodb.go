// Package repository stores run history in MongoDB or SQLite.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB is a connection to the run history database.
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	logger   *slog.Logger
}

// MongoDBConfig contains configuration for the MongoDB history store.
type MongoDBConfig struct {
	URI      string
	Database string

	// ConnectTimeout bounds connecting, the initial ping and index setup.
	ConnectTimeout time.Duration
}

// DefaultMongoDBConfig returns a local, unauthenticated configuration.
func DefaultMongoDBConfig() *MongoDBConfig {
	return &MongoDBConfig{
		URI:            "mongodb://localhost:27017",
		Database:       "webharness",
		ConnectTimeout: 10 * time.Second,
	}
}

// NewMongoDB connects, verifies the server answers, and makes sure the
// runs collection is indexed for per-flow history queries.
func NewMongoDB(ctx context.Context, cfg *MongoDBConfig, logger *slog.Logger) (*MongoDB, error) {
	if cfg == nil {
		cfg = DefaultMongoDBConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	setupCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(setupCtx, options.Client().
		ApplyURI(cfg.URI).
		SetAppName("webharness"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(setupCtx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m := &MongoDB{
		client:   client,
		database: client.Database(cfg.Database),
		logger:   logger,
	}
	if err := m.ensureRunIndexes(setupCtx); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}

	logger.Info("Run history connected", "store", "mongodb", "database", cfg.Database)
	return m, nil
}

// ensureRunIndexes creates the {flow, started} index used when listing the
// history of one flow. Creating an existing index is a no-op.
func (m *MongoDB) ensureRunIndexes(ctx context.Context) error {
	_, err := m.Collection(RunCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "flow", Value: 1}, {Key: "started", Value: -1}},
		Options: options.Index().SetName("flow_started"),
	})
	if err != nil {
		return fmt.Errorf("failed to create run indexes: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (m *MongoDB) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

// Collection returns a collection of the history database.
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}
