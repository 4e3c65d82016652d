package profile

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig locates the user collection holding profile documents.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	// Timeout bounds connect and each update call.
	Timeout time.Duration
}

// Mongo implements [Store] over a MongoDB user collection. Documents are
// keyed by userId and updated with partial $set writes, so fields owned by
// other services are never clobbered.
type Mongo struct {
	users   *mongo.Collection
	client  *mongo.Client
	timeout time.Duration
}

// NewMongo connects, pings, and returns the store.
func NewMongo(cfg MongoConfig) (*Mongo, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Collection == "" {
		cfg.Collection = "users"
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("profile: connect failed: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("profile: ping failed: %w", err)
	}

	return &Mongo{
		users:   client.Database(cfg.Database).Collection(cfg.Collection),
		client:  client,
		timeout: cfg.Timeout,
	}, nil
}

// SetTwoFactorEnabled implements [Store].
func (m *Mongo) SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool) error {
	return m.set(ctx, userID, bson.M{"twoFactorEnabled": enabled})
}

// SetBackupCodeCount implements [Store].
func (m *Mongo) SetBackupCodeCount(ctx context.Context, userID string, count int) error {
	return m.set(ctx, userID, bson.M{"twoFactorBackupCodesCount": count})
}

func (m *Mongo) set(ctx context.Context, userID string, fields bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	fields["updatedAt"] = time.Now().UTC()
	_, err := m.users.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": fields},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("profile: update failed for %s: %w", userID, err)
	}
	return nil
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
