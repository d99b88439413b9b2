package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	UsersCollection             = "users"
	PostsCollection             = "posts"
	JobsCollection              = "jobs"
	ConversationsCollection     = "conversations"
	MessagesCollection          = "messages"
	NotificationsCollection     = "notifications"
	PushSubscriptionsCollection = "push_subscriptions"
)

var Client *mongo.Client

// ConnectMongo dials uri, pings it and returns the named database.
func ConnectMongo(uri, name string) (*mongo.Database, error) {
	if uri == "" {
		zap.S().Warn("MONGODB_URI not set, using default localhost")
		uri = "mongodb://127.0.0.1:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "ping")
	}

	Client = client
	zap.S().Info("Connected to MongoDB successfully")
	return client.Database(name), nil
}

// ConnectWithRetry keeps dialing until it succeeds or attempts run out.
func ConnectWithRetry(uri, name string, attempts int, wait time.Duration) (*mongo.Database, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := ConnectMongo(uri, name)
		if err == nil {
			return db, nil
		}
		lastErr = err
		zap.S().Warnf("MongoDB connection attempt %d/%d failed: %v", i, attempts, err)
		time.Sleep(wait)
	}
	return nil, errors.Wrapf(lastErr, "mongo unreachable after %d attempts", attempts)
}

// EnsureIndexes creates the indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		PostsCollection: {
			{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "isDeleted", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		JobsCollection: {
			{Keys: bson.D{{Key: "company", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "deadline", Value: 1}}},
		},
		ConversationsCollection: {
			{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "updatedAt", Value: -1}}},
		},
		MessagesCollection: {
			{Keys: bson.D{{Key: "conversation", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "conversation", Value: 1}, {Key: "read", Value: 1}, {Key: "sender", Value: 1}}},
		},
		NotificationsCollection: {
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "read", Value: 1}}},
		},
		PushSubscriptionsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "create indexes on %s", coll)
		}
	}
	return nil
}

func DisconnectMongo() error {
	if Client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := Client.Disconnect(ctx); err != nil {
		return err
	}

	zap.S().Info("Disconnected from MongoDB")
	return nil
}
