package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/mutabaa-app/mutabaa/core"
	"github.com/mutabaa-app/mutabaa/core/record"
	"github.com/mutabaa-app/mutabaa/core/session"
	"github.com/mutabaa-app/mutabaa/core/student"
)

// processStudentRow upserts one roster row by student ID. The selected
// center always overwrites the student's main center, even on update:
// re-uploading a student under another center moves them.
func (svc *Service) processStudentRow(ctx context.Context, row Row, center string) (rowResult, error) {
	res := rowResult{id: core.CleanString(row.Get(fieldID))}

	center = core.CleanString(center)
	if center == "" {
		return res, errors.New("center selection is required for student data upload")
	}

	id := core.CleanString(row.Get(fieldID))
	name := core.CleanString(row.Get(fieldName))
	phone := core.CleanString(row.Get(fieldStudentPhone))
	parentPhone := core.CleanString(row.Get(fieldParentPhone))

	var missing []string
	if id == "" {
		missing = append(missing, fieldID)
	}
	if name == "" {
		missing = append(missing, fieldName)
	}
	if phone == "" {
		missing = append(missing, fieldStudentPhone)
	}
	if len(missing) > 0 {
		return res, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	idClean := core.CleanDigits(id)
	if len(idClean) != 11 {
		return res, fmt.Errorf("ID must be exactly 11 digits (got %d)", len(idClean))
	}
	res.id = idClean

	phoneClean := core.CleanDigits(phone)
	if len(phoneClean) != 11 {
		return res, fmt.Errorf("Student Phone must be exactly 11 digits (got %d)", len(phoneClean))
	}
	parentPhoneClean := core.CleanDigits(parentPhone)
	if parentPhone != "" && len(parentPhoneClean) != 11 {
		return res, fmt.Errorf("Parent Phone must be exactly 11 digits (got %d)", len(parentPhoneClean))
	}

	gender, err := student.ParseGender(row.Get(fieldGender))
	if err != nil {
		return res, fmt.Errorf("invalid Gender value: %s", core.CleanString(row.Get(fieldGender)))
	}
	division, err := student.ParseDivision(row.Get(fieldDivision))
	if err != nil {
		return res, fmt.Errorf("invalid Division value: %s", core.CleanString(row.Get(fieldDivision)))
	}

	existing, err := svc.students.GetByStudentID(ctx, idClean)
	switch errors.Cause(err) {
	case nil:
		us := student.UpdateStudent{
			FullName:          name,
			PhoneNumber:       phoneClean,
			ParentPhoneNumber: parentPhoneClean,
			Gender:            gender,   // kept if the row omits it
			Division:          division, // kept if the row omits it
			MainCenter:        center,
		}
		if _, err := svc.students.Update(ctx, existing.ID, us); err != nil {
			return res, err
		}
		res.action = actionUpdated
		return res, nil
	case student.ErrNotFound:
		ns := student.NewStudent{
			StudentID:         idClean,
			FullName:          name,
			PhoneNumber:       phoneClean,
			ParentPhoneNumber: parentPhoneClean,
			Gender:            gender,
			Division:          division,
			MainCenter:        center,
		}
		if _, err := svc.students.Create(ctx, ns); err != nil {
			return res, err
		}
		res.action = actionCreated
		return res, nil
	default:
		return res, err
	}
}

// processAttendanceRow records presence (or an issue flag) for one student.
// Attendance away from the student's main center becomes makeup attendance
// with a reason naming both centers.
func (svc *Service) processAttendanceRow(ctx context.Context, row Row, sess session.Session, kind Kind, center string) (rowResult, error) {
	id := core.CleanString(row.Get(fieldID))
	res := rowResult{id: id}

	if center == "" {
		return res, errors.New("center is required for processing")
	}

	std, err := svc.students.GetByStudentID(ctx, id)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return res, errStudentNotFound
		}
		return res, err
	}

	rec := record.Record{
		StudentID:  std.ID,
		SessionID:  sess.ID,
		Center:     center,
		MainCenter: std.MainCenter,
	}
	switch kind {
	case KindAttendance:
		if std.MainCenter != center {
			rec.Attendance = record.AttendanceMakeup
			rec.MakeupReason = makeupReason(center, std.MainCenter)
		} else {
			rec.Attendance = record.AttendancePresent
		}
	case KindIssues:
		rec.Issue = true
	}

	if _, err := svc.records.Upsert(ctx, rec); err != nil {
		return res, err
	}
	res.action = actionProcessed
	return res, nil
}

// processGradeRow records one student's grade. The upload's center is
// advisory here: the record is always attributed to the student's own main
// center. A grade cell of "0" is a real grade, not a missing one.
func (svc *Service) processGradeRow(ctx context.Context, row Row, sess session.Session, center string) (rowResult, error) {
	res := rowResult{id: core.CleanString(row.Get(fieldID))}

	if center == "" {
		return res, errors.New("يجب تحديد السنتر / المجموعة لرفع الدرجات")
	}

	grade := core.CleanString(row.Get(fieldGrade))
	if grade == "" {
		return res, errors.New("الدرجة مطلوبة (Grade is required)")
	}
	id := core.CleanString(row.Get(fieldID))
	if id == "" {
		return res, errors.New("كود الطالب مطلوب (Student ID is required)")
	}

	idClean := core.CleanDigits(id)
	if len(idClean) != 11 {
		return res, fmt.Errorf("Student ID must be exactly 11 digits (got %d digits)", len(idClean))
	}
	res.id = idClean

	std, err := svc.students.GetByStudentID(ctx, idClean)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return res, errStudentNotFound
		}
		return res, err
	}

	rec := record.Record{
		StudentID:  std.ID,
		SessionID:  sess.ID,
		Grade:      grade,
		Center:     std.MainCenter,
		MainCenter: std.MainCenter,
	}
	if _, err := svc.records.Upsert(ctx, rec); err != nil {
		return res, err
	}
	res.action = actionProcessed
	return res, nil
}

func makeupReason(center, mainCenter string) string {
	return fmt.Sprintf("حضور في سنتر / مجموعة %s بدلاً من السنتر / المجموعة الأساسي %s", center, mainCenter)
}
