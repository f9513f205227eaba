package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mutabaa-app/mutabaa/core/session"
)

type sessionDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	WeekNumber  int                `bson:"weekNumber"`
	Type        string             `bson:"sessionType"`
	FullMark    float64            `bson:"fullMark"`
	IsActive    bool               `bson:"isActive"`
	StartDate   time.Time          `bson:"startDate"`
	EndDate     time.Time          `bson:"endDate"`
	Description string             `bson:"description,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func newSessionDoc(sess session.Session) sessionDoc {
	return sessionDoc{
		WeekNumber:  sess.WeekNumber,
		Type:        sess.Type.Display(),
		FullMark:    sess.FullMark,
		IsActive:    sess.IsActive,
		StartDate:   sess.StartDate,
		EndDate:     sess.EndDate,
		Description: sess.Description,
		CreatedAt:   sess.CreatedAt,
		UpdatedAt:   sess.UpdatedAt,
	}
}

func (doc sessionDoc) toSession() session.Session {
	typ, _ := session.ParseType(doc.Type)
	return session.Session{
		ID:          doc.ID.Hex(),
		WeekNumber:  doc.WeekNumber,
		Type:        typ,
		FullMark:    doc.FullMark,
		IsActive:    doc.IsActive,
		StartDate:   doc.StartDate,
		EndDate:     doc.EndDate,
		Description: doc.Description,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

type sessionRepository struct {
	coll *mongo.Collection
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *mongo.Database) session.Repository {
	return &sessionRepository{coll: db.Collection(sessionsCollection)}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	doc := newSessionDoc(sess)
	res, err := repo.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return session.Session{}, session.ErrWeekExists
		}
		return session.Session{}, errors.Wrap(err, "inserting session")
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toSession(), nil
}

func (repo *sessionRepository) GetSessionByID(ctx context.Context, id string) (session.Session, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return session.Session{}, session.ErrNotFound
	}
	return repo.findOne(ctx, bson.M{"_id": oid})
}

func (repo *sessionRepository) GetSessionByWeekNumber(ctx context.Context, week int) (session.Session, error) {
	return repo.findOne(ctx, bson.M{"weekNumber": week})
}

func (repo *sessionRepository) findOne(ctx context.Context, filter bson.M) (session.Session, error) {
	var doc sessionDoc
	if err := repo.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, errors.Wrap(err, "finding session")
	}
	return doc.toSession(), nil
}

func (repo *sessionRepository) QueryAllSessions(ctx context.Context) ([]session.Session, error) {
	cur, err := repo.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "weekNumber", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "finding sessions")
	}
	var docs []sessionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding sessions")
	}
	sessions := make([]session.Session, 0, len(docs))
	for _, doc := range docs {
		sessions = append(sessions, doc.toSession())
	}
	return sessions, nil
}

func (repo *sessionRepository) DeleteSession(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return session.ErrNotFound
	}
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	if res.DeletedCount == 0 {
		return session.ErrNotFound
	}
	return nil
}
