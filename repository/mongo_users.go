package repository

import (
	"context"
	"regexp"
	"strings"
	"time"

	"networked/database"
	"networked/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewMongoStore wires every repository to its collection in db.
func NewMongoStore(db *mongo.Database) *Store {
	return &Store{
		Users:             &mongoUsers{coll: db.Collection(database.UsersCollection)},
		Posts:             &mongoPosts{coll: db.Collection(database.PostsCollection)},
		Jobs:              &mongoJobs{coll: db.Collection(database.JobsCollection)},
		Conversations:     &mongoConversations{coll: db.Collection(database.ConversationsCollection)},
		Messages:          &mongoMessages{coll: db.Collection(database.MessagesCollection)},
		Notifications:     &mongoNotifications{coll: db.Collection(database.NotificationsCollection)},
		PushSubscriptions: &mongoPushSubscriptions{coll: db.Collection(database.PushSubscriptionsCollection)},
	}
}

func notFound(err error) error {
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	return err
}

func containsPattern(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(s)), Options: "i"}
}

type mongoUsers struct {
	coll *mongo.Collection
}

func (r *mongoUsers) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.EnsureLists()
	if _, err := r.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return errors.Wrap(err, "insert user")
	}
	return nil
}

func (r *mongoUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *mongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.coll.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *mongoUsers) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func userFilter(f UserFilter) bson.M {
	filter := bson.M{}
	if f.Search != "" {
		rx := containsPattern(f.Search)
		filter["$or"] = bson.A{
			bson.M{"firstName": rx},
			bson.M{"lastName": rx},
			bson.M{"email": rx},
			bson.M{"headline": rx},
			bson.M{"companyName": rx},
			bson.M{"skills.title": rx},
			bson.M{"skills.technology": rx},
		}
	}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Banned != nil {
		filter["isBanned"] = *f.Banned
	}
	if f.ExcludeID != nil {
		filter["_id"] = bson.M{"$ne": *f.ExcludeID}
	}
	return filter
}

func (r *mongoUsers) Search(ctx context.Context, f UserFilter) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	cursor, err := r.coll.Find(ctx, userFilter(f), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *mongoUsers) Count(ctx context.Context, f UserFilter) (int64, error) {
	return r.coll.CountDocuments(ctx, userFilter(f))
}

func (r *mongoUsers) Recent(ctx context.Context, limit int64) ([]models.User, error) {
	return r.Search(ctx, UserFilter{Limit: limit})
}

func (r *mongoUsers) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) error {
	set := bson.M{}
	put := func(key string, v *string) {
		if v != nil {
			set[key] = *v
		}
	}
	put("firstName", upd.FirstName)
	put("lastName", upd.LastName)
	put("headline", upd.Headline)
	put("bio", upd.Bio)
	put("phone", upd.Phone)
	put("address", upd.Address)
	put("city", upd.City)
	put("country", upd.Country)
	put("website", upd.Website)
	put("linkedin", upd.LinkedIn)
	put("github", upd.GitHub)
	put("companyName", upd.CompanyName)
	put("companyDescription", upd.CompanyDescription)
	put("companySize", upd.CompanySize)
	put("industry", upd.Industry)
	put("photo", upd.Photo)
	put("cvVideo", upd.CVVideo)
	if len(set) == 0 {
		return nil
	}
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (r *mongoUsers) LinkGoogle(ctx context.Context, id primitive.ObjectID, googleID string) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"googleId": googleID}})
}

func (r *mongoUsers) SetLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastLogin": at}})
}

func (r *mongoUsers) SetBan(ctx context.Context, id primitive.ObjectID, banned bool, reason string) error {
	update := bson.M{"$set": bson.M{"isBanned": true, "banReason": reason}}
	if !banned {
		update = bson.M{"$set": bson.M{"isBanned": false}, "$unset": bson.M{"banReason": ""}}
	}
	return r.updateOne(ctx, bson.M{"_id": id}, update)
}

func (r *mongoUsers) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUsers) PushItem(ctx context.Context, id primitive.ObjectID, list ProfileList, item interface{}) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{string(list): item}})
}

func (r *mongoUsers) PullItem(ctx context.Context, id primitive.ObjectID, list ProfileList, itemID primitive.ObjectID) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$pull": bson.M{string(list): bson.M{"_id": itemID}}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoUsers) AddToSet(ctx context.Context, id primitive.ObjectID, set RelationSet, other primitive.ObjectID) (bool, error) {
	if id == other {
		return false, nil
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{string(set): other}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, ErrNotFound
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoUsers) Pull(ctx context.Context, id primitive.ObjectID, set RelationSet, other primitive.ObjectID) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$pull": bson.M{string(set): other}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, ErrNotFound
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoUsers) AddPendingRequest(ctx context.Context, target, requester primitive.ObjectID) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{
			"_id":                target,
			"pendingConnections": bson.M{"$ne": requester},
			"connections":        bson.M{"$ne": requester},
		},
		bson.M{"$addToSet": bson.M{"pendingConnections": requester}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoUsers) PromotePending(ctx context.Context, user, requester primitive.ObjectID) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": user, "pendingConnections": requester},
		bson.M{
			"$pull":     bson.M{"pendingConnections": requester},
			"$addToSet": bson.M{"connections": requester},
		},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoUsers) PullEverywhere(ctx context.Context, other primitive.ObjectID) (int64, error) {
	sets := []RelationSet{SetConnections, SetPending, SetFollowers, SetFollowing}
	match := make(bson.A, 0, len(sets))
	pull := bson.M{}
	for _, set := range sets {
		match = append(match, bson.M{string(set): other})
		pull[string(set)] = other
	}
	res, err := r.coll.UpdateMany(ctx, bson.M{"$or": match}, bson.M{"$pull": pull})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongoUsers) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
