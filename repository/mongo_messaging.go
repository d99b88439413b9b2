package repository

import (
	"context"
	"time"

	"networked/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoConversations struct {
	coll *mongo.Collection
}

func (r *mongoConversations) FindOrCreate(ctx context.Context, a, b primitive.ObjectID, job *primitive.ObjectID) (*models.Conversation, error) {
	key := models.ConversationKey(a, b, job)
	now := time.Now()
	onInsert := bson.M{
		"participants": bson.A{a, b},
		"job":          job,
		"createdAt":    now,
		"updatedAt":    now,
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conv models.Conversation
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"key": key}, bson.M{"$setOnInsert": onInsert}, opts).Decode(&conv)
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent upsert won the insert; read its document.
		err = r.coll.FindOne(ctx, bson.M{"key": key}).Decode(&conv)
	}
	if err != nil {
		return nil, errors.Wrap(err, "upsert conversation")
	}
	return &conv, nil
}

func (r *mongoConversations) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&conv); err != nil {
		return nil, notFound(err)
	}
	return &conv, nil
}

func (r *mongoConversations) ListForUser(ctx context.Context, user primitive.ObjectID) ([]models.Conversation, error) {
	cursor, err := r.coll.Find(ctx,
		bson.M{"participants": user},
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	convs := []models.Conversation{}
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *mongoConversations) IDsForUser(ctx context.Context, user primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := r.coll.Find(ctx,
		bson.M{"participants": user},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// SetLastMessage never moves updatedAt backwards.
func (r *mongoConversations) SetLastMessage(ctx context.Context, id, messageID primitive.ObjectID, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set": bson.M{"lastMessage": messageID},
			"$max": bson.M{"updatedAt": at},
		},
	)
	return err
}

type mongoMessages struct {
	coll *mongo.Collection
}

func (r *mongoMessages) Create(ctx context.Context, m *models.Message) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, m); err != nil {
		return errors.Wrap(err, "insert message")
	}
	return nil
}

func (r *mongoMessages) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Message, error) {
	msgs := []models.Message{}
	if len(ids) == 0 {
		return msgs, nil
	}
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *mongoMessages) ListByConversation(ctx context.Context, conversation primitive.ObjectID) ([]models.Message, error) {
	cursor, err := r.coll.Find(ctx,
		bson.M{"conversation": conversation},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	msgs := []models.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *mongoMessages) MarkRead(ctx context.Context, conversation, viewer primitive.ObjectID) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"conversation": conversation, "sender": bson.M{"$ne": viewer}, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongoMessages) CountUnread(ctx context.Context, conversations []primitive.ObjectID, viewer primitive.ObjectID) (int64, error) {
	if len(conversations) == 0 {
		return 0, nil
	}
	return r.coll.CountDocuments(ctx, bson.M{
		"conversation": bson.M{"$in": conversations},
		"sender":       bson.M{"$ne": viewer},
		"read":         false,
	})
}

type mongoNotifications struct {
	coll *mongo.Collection
}

func (r *mongoNotifications) Create(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, n); err != nil {
		return errors.Wrap(err, "insert notification")
	}
	return nil
}

func (r *mongoNotifications) ListForRecipient(ctx context.Context, recipient primitive.ObjectID, limit int64) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.coll.Find(ctx, bson.M{"recipient": recipient}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	list := []models.Notification{}
	if err := cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *mongoNotifications) MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"recipient": recipient, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongoNotifications) MarkRead(ctx context.Context, id, recipient primitive.ObjectID) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "recipient": recipient},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *mongoNotifications) CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"recipient": recipient, "read": false})
}

type mongoPushSubscriptions struct {
	coll *mongo.Collection
}

func (r *mongoPushSubscriptions) Upsert(ctx context.Context, s *models.PushSubscription) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"userId": s.UserID},
		bson.M{"$set": bson.M{"userId": s.UserID, "sub": s.Sub}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *mongoPushSubscriptions) FindByUser(ctx context.Context, user primitive.ObjectID) (*models.PushSubscription, error) {
	var s models.PushSubscription
	if err := r.coll.FindOne(ctx, bson.M{"userId": user}).Decode(&s); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *mongoPushSubscriptions) DeleteByUser(ctx context.Context, user primitive.ObjectID) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"userId": user})
	return err
}
