package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mutabaa-app/mutabaa/core/student"
)

// studentDoc persists the Arabic display strings the spreadsheets and
// the frontend speak; conversion to the internal tokens happens here.
type studentDoc struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	StudentID         string             `bson:"studentId"`
	FullName          string             `bson:"fullName"`
	PhoneNumber       string             `bson:"phoneNumber,omitempty"`
	ParentPhoneNumber string             `bson:"parentPhoneNumber,omitempty"`
	Gender            string             `bson:"gender,omitempty"`
	Division          string             `bson:"division,omitempty"`
	MainCenter        string             `bson:"mainCenter"`
	CreatedAt         time.Time          `bson:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"`
}

func newStudentDoc(std student.Student) studentDoc {
	return studentDoc{
		StudentID:         std.StudentID,
		FullName:          std.FullName,
		PhoneNumber:       std.PhoneNumber,
		ParentPhoneNumber: std.ParentPhoneNumber,
		Gender:            std.Gender.Display(),
		Division:          std.Division.Display(),
		MainCenter:        std.MainCenter,
		CreatedAt:         std.CreatedAt,
		UpdatedAt:         std.UpdatedAt,
	}
}

func (doc studentDoc) toStudent() student.Student {
	gender, _ := student.ParseGender(doc.Gender)
	division, _ := student.ParseDivision(doc.Division)
	return student.Student{
		ID:                doc.ID.Hex(),
		StudentID:         doc.StudentID,
		FullName:          doc.FullName,
		PhoneNumber:       doc.PhoneNumber,
		ParentPhoneNumber: doc.ParentPhoneNumber,
		Gender:            gender,
		Division:          division,
		MainCenter:        doc.MainCenter,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}
}

type studentRepository struct {
	coll *mongo.Collection
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *mongo.Database) student.Repository {
	return &studentRepository{coll: db.Collection(studentsCollection)}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	doc := newStudentDoc(std)
	res, err := repo.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return student.Student{}, student.ErrStudentIDExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toStudent(), nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return student.Student{}, student.ErrNotFound
	}
	return repo.findOne(ctx, bson.M{"_id": oid})
}

func (repo *studentRepository) GetStudentByStudentID(ctx context.Context, studentID string) (student.Student, error) {
	return repo.findOne(ctx, bson.M{"studentId": studentID})
}

func (repo *studentRepository) findOne(ctx context.Context, filter bson.M) (student.Student, error) {
	var doc studentDoc
	if err := repo.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student")
	}
	return doc.toStudent(), nil
}

func (repo *studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	return repo.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "fullName", Value: 1}}))
}

func (repo *studentRepository) SearchStudents(ctx context.Context, query string, limit int) ([]student.Student, error) {
	regex := primitive.Regex{Pattern: regexEscape(query), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"studentId": regex},
		bson.M{"fullName": regex},
		bson.M{"phoneNumber": regex},
		bson.M{"parentPhoneNumber": regex},
	}}
	return repo.find(ctx, filter, options.Find().SetLimit(int64(limit)))
}

func (repo *studentRepository) FilterStudentsByCenter(ctx context.Context, center string) ([]student.Student, error) {
	return repo.find(ctx, bson.M{"mainCenter": center},
		options.Find().SetSort(bson.D{{Key: "fullName", Value: 1}}))
}

func (repo *studentRepository) FilterStudentsByIDs(ctx context.Context, ids []string) ([]student.Student, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	return repo.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

func (repo *studentRepository) CountStudentsByCenter(ctx context.Context, center string) (int64, error) {
	count, err := repo.coll.CountDocuments(ctx, bson.M{"mainCenter": center})
	return count, errors.Wrap(err, "counting students")
}

func (repo *studentRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]student.Student, error) {
	cur, err := repo.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "finding students")
	}
	var docs []studentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding students")
	}
	students := make([]student.Student, 0, len(docs))
	for _, doc := range docs {
		students = append(students, doc.toStudent())
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	oid, err := primitive.ObjectIDFromHex(std.ID)
	if err != nil {
		return student.Student{}, student.ErrNotFound
	}

	set := bson.M{"updatedAt": std.UpdatedAt}
	setIf(set, "studentId", std.StudentID)
	setIf(set, "fullName", std.FullName)
	setIf(set, "phoneNumber", std.PhoneNumber)
	setIf(set, "parentPhoneNumber", std.ParentPhoneNumber)
	setIf(set, "gender", std.Gender.Display())
	setIf(set, "division", std.Division.Display())
	setIf(set, "mainCenter", std.MainCenter)

	var doc studentDoc
	err = repo.coll.FindOneAndUpdate(
		ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	return doc.toStudent(), nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return student.ErrNotFound
	}
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if res.DeletedCount == 0 {
		return student.ErrNotFound
	}
	return nil
}
