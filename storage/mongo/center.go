package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mutabaa-app/mutabaa/core/center"
)

// nameCollation matches the case-insensitive unique index on name.
var nameCollation = &options.Collation{Locale: "en", Strength: 2}

type centerDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (doc centerDoc) toCenter() center.Center {
	return center.Center{
		ID:        doc.ID.Hex(),
		Name:      doc.Name,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

type centerRepository struct {
	coll *mongo.Collection
}

var _ center.Repository = (*centerRepository)(nil) // interface compliance check

func NewCenterRepository(db *mongo.Database) center.Repository {
	return &centerRepository{coll: db.Collection(centersCollection)}
}

func (repo *centerRepository) CreateCenter(ctx context.Context, ctr center.Center) (center.Center, error) {
	doc := centerDoc{Name: ctr.Name, CreatedAt: ctr.CreatedAt, UpdatedAt: ctr.UpdatedAt}
	res, err := repo.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return center.Center{}, center.ErrNameExists
		}
		return center.Center{}, errors.Wrap(err, "inserting center")
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toCenter(), nil
}

func (repo *centerRepository) GetCenterByID(ctx context.Context, id string) (center.Center, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return center.Center{}, center.ErrNotFound
	}
	var doc centerDoc
	if err := repo.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return center.Center{}, center.ErrNotFound
		}
		return center.Center{}, errors.Wrap(err, "finding center")
	}
	return doc.toCenter(), nil
}

func (repo *centerRepository) GetCenterByName(ctx context.Context, name string) (center.Center, error) {
	var doc centerDoc
	err := repo.coll.FindOne(ctx, bson.M{"name": name}, options.FindOne().SetCollation(nameCollation)).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return center.Center{}, center.ErrNotFound
		}
		return center.Center{}, errors.Wrap(err, "finding center")
	}
	return doc.toCenter(), nil
}

func (repo *centerRepository) QueryAllCenters(ctx context.Context) ([]center.Center, error) {
	cur, err := repo.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "finding centers")
	}
	var docs []centerDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding centers")
	}
	centers := make([]center.Center, 0, len(docs))
	for _, doc := range docs {
		centers = append(centers, doc.toCenter())
	}
	return centers, nil
}

func (repo *centerRepository) UpdateCenter(ctx context.Context, ctr center.Center) (center.Center, error) {
	oid, err := primitive.ObjectIDFromHex(ctr.ID)
	if err != nil {
		return center.Center{}, center.ErrNotFound
	}

	var doc centerDoc
	err = repo.coll.FindOneAndUpdate(
		ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"name": ctr.Name, "updatedAt": ctr.UpdatedAt}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return center.Center{}, center.ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return center.Center{}, center.ErrNameExists
		}
		return center.Center{}, errors.Wrap(err, "updating center")
	}
	return doc.toCenter(), nil
}

func (repo *centerRepository) DeleteCenter(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return center.ErrNotFound
	}
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.Wrap(err, "deleting center")
	}
	if res.DeletedCount == 0 {
		return center.ErrNotFound
	}
	return nil
}
