package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mutabaa-app/mutabaa/core/record"
)

type recordDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Student      primitive.ObjectID `bson:"student"`
	Session      primitive.ObjectID `bson:"session"`
	Attendance   string             `bson:"attendance"`
	Grade        string             `bson:"grade,omitempty"`
	Issue        bool               `bson:"issue"`
	Center       string             `bson:"center,omitempty"`
	MainCenter   string             `bson:"mainCenter,omitempty"`
	MakeupReason string             `bson:"makeupReason,omitempty"`
	Notes        string             `bson:"notes,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (doc recordDoc) toRecord() record.Record {
	attendance, _ := record.ParseAttendance(doc.Attendance)
	return record.Record{
		ID:           doc.ID.Hex(),
		StudentID:    doc.Student.Hex(),
		SessionID:    doc.Session.Hex(),
		Attendance:   attendance,
		Grade:        doc.Grade,
		Issue:        doc.Issue,
		Center:       doc.Center,
		MainCenter:   doc.MainCenter,
		MakeupReason: doc.MakeupReason,
		Notes:        doc.Notes,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

type recordRepository struct {
	coll *mongo.Collection
}

var _ record.Repository = (*recordRepository)(nil) // interface compliance check

func NewRecordRepository(db *mongo.Database) record.Repository {
	return &recordRepository{coll: db.Collection(recordsCollection)}
}

func (repo *recordRepository) GetRecord(ctx context.Context, studentID, sessionID string) (record.Record, error) {
	filter, err := keyFilter(studentID, sessionID)
	if err != nil {
		return record.Record{}, record.ErrNotFound
	}
	var doc recordDoc
	if err := repo.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return record.Record{}, record.ErrNotFound
		}
		return record.Record{}, errors.Wrap(err, "finding record")
	}
	return doc.toRecord(), nil
}

func (repo *recordRepository) UpsertRecord(ctx context.Context, rec record.Record) (record.Record, error) {
	filter, err := keyFilter(rec.StudentID, rec.SessionID)
	if err != nil {
		return record.Record{}, errors.Wrap(err, "invalid record keys")
	}

	now := time.Now().UTC()
	set := bson.M{"updatedAt": now}
	setIf(set, "attendance", rec.Attendance.Display())
	setIf(set, "grade", rec.Grade)
	setIf(set, "center", rec.Center)
	setIf(set, "mainCenter", rec.MainCenter)
	setIf(set, "makeupReason", rec.MakeupReason)
	setIf(set, "notes", rec.Notes)
	if rec.Issue {
		set["issue"] = true
	}

	setOnInsert := bson.M{"createdAt": now}
	if rec.Attendance == "" {
		setOnInsert["attendance"] = record.AttendanceAbsent.Display()
	}
	if rec.Grade == "" {
		setOnInsert["grade"] = record.NoGrade
	}
	if !rec.Issue {
		setOnInsert["issue"] = false
	}

	var doc recordDoc
	err = repo.coll.FindOneAndUpdate(
		ctx, filter,
		bson.M{"$set": set, "$setOnInsert": setOnInsert},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return record.Record{}, errors.Wrap(err, "upserting record")
	}
	return doc.toRecord(), nil
}

func (repo *recordRepository) BulkInsertRecords(ctx context.Context, recs []record.Record) error {
	if len(recs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(recs))
	for _, rec := range recs {
		filter, err := keyFilter(rec.StudentID, rec.SessionID)
		if err != nil {
			return errors.Wrap(err, "invalid record keys")
		}
		attendance := rec.Attendance
		if attendance == "" {
			attendance = record.AttendanceAbsent
		}
		grade := rec.Grade
		if grade == "" {
			grade = record.NoGrade
		}
		doc := bson.M{
			"attendance": attendance.Display(),
			"grade":      grade,
			"issue":      rec.Issue,
			"center":     rec.Center,
			"mainCenter": rec.MainCenter,
			"createdAt":  now,
			"updatedAt":  now,
		}
		// existing (student, session) rows are left alone
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(bson.M{"$setOnInsert": doc}).
			SetUpsert(true))
	}

	_, err := repo.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return errors.Wrap(err, "bulk inserting records")
}

func (repo *recordRepository) QueryRecordsBySession(ctx context.Context, sessionID string) ([]record.Record, error) {
	oid, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return nil, nil
	}
	return repo.find(ctx, bson.M{"session": oid})
}

func (repo *recordRepository) QueryRecordsByStudent(ctx context.Context, studentID string) ([]record.Record, error) {
	oid, err := primitive.ObjectIDFromHex(studentID)
	if err != nil {
		return nil, nil
	}
	return repo.find(ctx, bson.M{"student": oid})
}

func (repo *recordRepository) FilterRecords(ctx context.Context, filter record.QueryFilter) ([]record.Record, error) {
	query := bson.M{}
	if filter.SessionID != "" {
		oid, err := primitive.ObjectIDFromHex(filter.SessionID)
		if err != nil {
			return nil, nil
		}
		query["session"] = oid
	}
	if filter.Center != "" {
		query["center"] = filter.Center
	}
	if len(filter.Attendance) > 0 {
		displays := make([]string, 0, len(filter.Attendance))
		for _, a := range filter.Attendance {
			displays = append(displays, a.Display())
		}
		query["attendance"] = bson.M{"$in": displays}
	}
	if filter.HasGrade != nil {
		if *filter.HasGrade {
			query["grade"] = bson.M{"$exists": true, "$nin": bson.A{"", record.NoGrade}}
		} else {
			query["$or"] = bson.A{
				bson.M{"grade": bson.M{"$exists": false}},
				bson.M{"grade": bson.M{"$in": bson.A{"", record.NoGrade}}},
			}
		}
	}
	if filter.Issue != nil {
		query["issue"] = *filter.Issue
	}
	return repo.find(ctx, query)
}

func (repo *recordRepository) SetMissingGrades(ctx context.Context, sessionID, grade string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return 0, nil
	}
	res, err := repo.coll.UpdateMany(ctx,
		bson.M{
			"session": oid,
			"$or": bson.A{
				bson.M{"grade": bson.M{"$exists": false}},
				bson.M{"grade": nil},
				bson.M{"grade": ""},
			},
		},
		bson.M{"$set": bson.M{"grade": grade, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return 0, errors.Wrap(err, "setting missing grades")
	}
	return res.ModifiedCount, nil
}

func (repo *recordRepository) CountRecordsByCenter(ctx context.Context, center string) (int64, error) {
	count, err := repo.coll.CountDocuments(ctx, bson.M{
		"$or": bson.A{bson.M{"center": center}, bson.M{"mainCenter": center}},
	})
	return count, errors.Wrap(err, "counting records")
}

func (repo *recordRepository) DeleteRecordsByFilter(ctx context.Context, sessionID, center string) (int64, error) {
	filter := bson.M{}
	if sessionID != "" {
		oid, err := primitive.ObjectIDFromHex(sessionID)
		if err != nil {
			return 0, nil
		}
		filter["session"] = oid
	}
	if center != "" {
		filter["center"] = center
	}
	res, err := repo.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, errors.Wrap(err, "deleting records")
	}
	return res.DeletedCount, nil
}

func (repo *recordRepository) DeleteRecordsByStudent(ctx context.Context, studentID string) error {
	oid, err := primitive.ObjectIDFromHex(studentID)
	if err != nil {
		return nil
	}
	_, err = repo.coll.DeleteMany(ctx, bson.M{"student": oid})
	return errors.Wrap(err, "deleting student records")
}

func (repo *recordRepository) DeleteRecordsBySession(ctx context.Context, sessionID string) error {
	oid, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return nil
	}
	_, err = repo.coll.DeleteMany(ctx, bson.M{"session": oid})
	return errors.Wrap(err, "deleting session records")
}

func (repo *recordRepository) find(ctx context.Context, filter bson.M) ([]record.Record, error) {
	cur, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "finding records")
	}
	var docs []recordDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding records")
	}
	recs := make([]record.Record, 0, len(docs))
	for _, doc := range docs {
		recs = append(recs, doc.toRecord())
	}
	return recs, nil
}

// keyFilter builds the unique (student, session) filter.
func keyFilter(studentID, sessionID string) (bson.M, error) {
	studentOID, err := primitive.ObjectIDFromHex(studentID)
	if err != nil {
		return nil, errors.Wrap(err, "parsing student ID")
	}
	sessionOID, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "parsing session ID")
	}
	return bson.M{"student": studentOID, "session": sessionOID}, nil
}
