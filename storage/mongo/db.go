// Package mongodb implements the repositories on MongoDB.
package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mutabaa-app/mutabaa/core"
)

const (
	studentsCollection = "students"
	sessionsCollection = "sessions"
	recordsCollection  = "records"
	centersCollection  = "centers"
	usersCollection    = "users"
)

func Open(conf *core.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Database.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}
	if err := ping(ctx, client); err != nil {
		return nil, err
	}
	return client.Database(conf.Database.Name), nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, client *mongo.Client) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = client.Ping(ctx, readpref.Primary())
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// EnsureIndexes creates the indexes the repositories rely on. It is
// idempotent and safe to run at every startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	caseInsensitive := options.Index().SetUnique(true).SetCollation(&options.Collation{Locale: "en", Strength: 2})

	idx := map[string][]mongo.IndexModel{
		studentsCollection: {
			{Keys: bson.D{{Key: "studentId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "mainCenter", Value: 1}}},
		},
		sessionsCollection: {
			{Keys: bson.D{{Key: "weekNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		recordsCollection: {
			// one fact row per (student, session)
			{Keys: bson.D{{Key: "student", Value: 1}, {Key: "session", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "session", Value: 1}, {Key: "center", Value: 1}}},
			{Keys: bson.D{{Key: "student", Value: 1}}},
		},
		centersCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: caseInsensitive},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		},
	}

	for coll, models := range idx {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}
