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

type mongoJobs struct {
	coll *mongo.Collection
}

func (r *mongoJobs) Create(ctx context.Context, j *models.Job) error {
	if j.ID.IsZero() {
		j.ID = primitive.NewObjectID()
	}
	j.EnsureLists()
	if _, err := r.coll.InsertOne(ctx, j); err != nil {
		return errors.Wrap(err, "insert job")
	}
	return nil
}

func (r *mongoJobs) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Job, error) {
	var j models.Job
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&j); err != nil {
		return nil, notFound(err)
	}
	return &j, nil
}

func (r *mongoJobs) Search(ctx context.Context, f JobFilter) ([]models.Job, error) {
	filter := bson.M{}
	if f.ActiveOnly {
		filter["isActive"] = true
	}
	if f.Company != nil {
		filter["company"] = *f.Company
	}
	if f.Search != "" {
		rx := containsPattern(f.Search)
		filter["$or"] = bson.A{
			bson.M{"title": rx},
			bson.M{"description": rx},
			bson.M{"skills": rx},
		}
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.RemoteOnly {
		filter["remote"] = true
	}
	if f.Location != "" {
		filter["location"] = containsPattern(f.Location)
	}

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	jobs := []models.Job{}
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *mongoJobs) CountActive(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"isActive": true})
}

func (r *mongoJobs) CountPendingApplications(ctx context.Context, company primitive.ObjectID) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "company", Value: company}}}},
		{{Key: "$unwind", Value: "$applications"}},
		{{Key: "$match", Value: bson.D{{Key: "applications.status", Value: models.ApplicationPending}}}},
		{{Key: "$count", Value: "pending"}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var out []struct {
		Pending int64 `bson:"pending"`
	}
	if err := cursor.All(ctx, &out); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Pending, nil
}

func (r *mongoJobs) AddApplication(ctx context.Context, jobID primitive.ObjectID, a models.Application) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": jobID, "isActive": true, "applications.applicant": bson.M{"$ne": a.Applicant}},
		bson.M{"$push": bson.M{"applications": a}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoJobs) SetApplicationStatus(ctx context.Context, jobID, company, applicant primitive.ObjectID, from, to models.ApplicationStatus) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{
			"_id":     jobID,
			"company": company,
			"applications": bson.M{"$elemMatch": bson.M{
				"applicant": applicant,
				"status":    from,
			}},
		},
		bson.M{"$set": bson.M{"applications.$.status": to, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoJobs) Close(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoJobs) CloseByCompany(ctx context.Context, company primitive.ObjectID) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"company": company, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongoJobs) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"isActive": true, "deadline": bson.M{"$lt": now}},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": now}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
