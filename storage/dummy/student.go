package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mutabaa-app/mutabaa/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		students = append(students, *s)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].FullName < students[j].FullName })
	return students
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, s := range repo.db.table {
		if s.StudentID == std.StudentID {
			return student.Student{}, student.ErrStudentIDExists
		}
	}
	std.ID = uuid.NewString()
	repo.db.table[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if std, ok := repo.db.table[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentByStudentID(_ context.Context, studentID string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, std := range repo.db.table {
		if std.StudentID == studentID {
			return *std, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryAllStudents(_ context.Context) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *studentRepository) SearchStudents(_ context.Context, query string, limit int) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	q := strings.ToLower(query)
	var matches []student.Student
	for _, std := range repo.query() {
		if strings.Contains(strings.ToLower(std.StudentID), q) ||
			strings.Contains(strings.ToLower(std.FullName), q) ||
			strings.Contains(strings.ToLower(std.PhoneNumber), q) ||
			strings.Contains(strings.ToLower(std.ParentPhoneNumber), q) {
			matches = append(matches, std)
			if limit > 0 && len(matches) >= limit {
				break
			}
		}
	}
	return matches, nil
}

func (repo *studentRepository) FilterStudentsByCenter(_ context.Context, center string) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var students []student.Student
	for _, std := range repo.query() {
		if strings.EqualFold(std.MainCenter, center) {
			students = append(students, std)
		}
	}
	return students, nil
}

func (repo *studentRepository) FilterStudentsByIDs(_ context.Context, ids []string) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var students []student.Student
	for _, id := range ids {
		if std, ok := repo.db.table[id]; ok {
			students = append(students, *std)
		}
	}
	return students, nil
}

func (repo *studentRepository) CountStudentsByCenter(_ context.Context, center string) (int64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int64
	for _, std := range repo.db.table {
		if strings.EqualFold(std.MainCenter, center) {
			count++
		}
	}
	return count, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[std.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}

	// only save set fields
	if std.StudentID != "" {
		orig.StudentID = std.StudentID
	}
	if std.FullName != "" {
		orig.FullName = std.FullName
	}
	if std.PhoneNumber != "" {
		orig.PhoneNumber = std.PhoneNumber
	}
	if std.ParentPhoneNumber != "" {
		orig.ParentPhoneNumber = std.ParentPhoneNumber
	}
	if std.Gender != "" {
		orig.Gender = std.Gender
	}
	if std.Division != "" {
		orig.Division = std.Division
	}
	if std.MainCenter != "" {
		orig.MainCenter = std.MainCenter
	}
	orig.UpdatedAt = std.UpdatedAt

	repo.db.table[std.ID] = orig
	return *orig, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
