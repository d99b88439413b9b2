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

type mongoPosts struct {
	coll *mongo.Collection
}

func (r *mongoPosts) Create(ctx context.Context, p *models.Post) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.EnsureLists()
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		return errors.Wrap(err, "insert post")
	}
	return nil
}

func (r *mongoPosts) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var p models.Post
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *mongoPosts) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Post, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *mongoPosts) Feed(ctx context.Context, q FeedQuery) ([]models.Post, error) {
	or := bson.A{bson.M{"author": q.Viewer}}
	if len(q.Connections) > 0 {
		or = append(or, bson.M{
			"author":     bson.M{"$in": q.Connections},
			"visibility": bson.M{"$in": bson.A{models.VisibilityPublic, models.VisibilityConnections}},
		})
	}
	if len(q.Following) > 0 {
		or = append(or, bson.M{
			"author":     bson.M{"$in": q.Following},
			"visibility": models.VisibilityPublic,
		})
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return r.find(ctx, bson.M{"isDeleted": false, "$or": or}, opts)
}

func (r *mongoPosts) List(ctx context.Context, f PostFilter) ([]models.Post, error) {
	filter := bson.M{"isDeleted": false}
	if f.Search != "" {
		filter["content"] = containsPattern(f.Search)
	}
	order := -1
	if f.Oldest {
		order = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: order}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	return r.find(ctx, filter, opts)
}

func (r *mongoPosts) CountLive(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"isDeleted": false})
}

func (r *mongoPosts) AddReaction(ctx context.Context, postID primitive.ObjectID, rx models.Reaction) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": postID, "isDeleted": false, "reactions.user": bson.M{"$ne": rx.User}},
		bson.M{"$push": bson.M{"reactions": rx}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoPosts) RemoveReaction(ctx context.Context, postID, userID primitive.ObjectID) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$pull": bson.M{"reactions": bson.M{"user": userID}}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoPosts) SetReactionKind(ctx context.Context, postID, userID primitive.ObjectID, kind models.ReactionKind) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": postID, "reactions.user": userID},
		bson.M{"$set": bson.M{"reactions.$.type": kind}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoPosts) AddComment(ctx context.Context, postID primitive.ObjectID, c models.Comment) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": postID, "isDeleted": false},
		bson.M{"$push": bson.M{"comments": c}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoPosts) SoftDelete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "isDeleted": false},
		bson.M{"$set": bson.M{"isDeleted": true, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoPosts) SoftDeleteComment(ctx context.Context, postID, commentID primitive.ObjectID) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": postID, "comments._id": commentID},
		bson.M{"$set": bson.M{"comments.$.isDeleted": true}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoPosts) SoftDeleteByAuthor(ctx context.Context, author primitive.ObjectID) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"author": author, "isDeleted": false},
		bson.M{"$set": bson.M{"isDeleted": true, "updatedAt": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
