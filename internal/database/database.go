// Package database manages the MongoDB connection and the indexes the API
// relies on.
package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"smartspend/internal/config"
	"smartspend/internal/logger"
)

const (
	usersCollection        = "users"
	transactionsCollection = "transactions"
)

// Manager wraps the shared MongoDB client. The driver's connection pool is
// the only shared resource between requests; its checkout discipline is the
// driver's concern.
type Manager struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewManager connects to MongoDB using the supplied configuration and
// verifies the connection with a ping.
func NewManager(ctx context.Context, cfg *config.Config) (*Manager, error) {
	clientOptions := options.Client().ApplyURI(cfg.MongoURI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Manager{client: client, db: client.Database(cfg.MongoDB)}, nil
}

// EnsureIndexes creates the indexes the application depends on: a unique
// index on users.email and a compound (user, date desc) index on
// transactions for scoped range queries. Index creation is idempotent.
func (m *Manager) EnsureIndexes(ctx context.Context) error {
	logger.Get().Info("Ensuring MongoDB indexes...")

	_, err := m.Users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users.email index: %w", err)
	}

	_, err = m.Transactions().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "date", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create transactions (user, date) index: %w", err)
	}

	logger.Get().Info("MongoDB indexes ready")
	return nil
}

// Users returns the users collection.
func (m *Manager) Users() *mongo.Collection {
	return m.db.Collection(usersCollection)
}

// Transactions returns the transactions collection.
func (m *Manager) Transactions() *mongo.Collection {
	return m.db.Collection(transactionsCollection)
}

// Close disconnects the underlying client.
func (m *Manager) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
