package report

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/mutabaa-app/mutabaa/core/record"
	"github.com/mutabaa-app/mutabaa/core/session"
	"github.com/mutabaa-app/mutabaa/core/student"
)

const exportSheet = "Report"

type Service struct {
	students *student.Service
	sessions *session.Service
	records  *record.Service
}

func NewService(students *student.Service, sessions *session.Service, records *record.Service) *Service {
	return &Service{students: students, sessions: sessions, records: records}
}

// Query returns the records matching the report kind and filter, joined with
// their students. Records whose student has since been deleted are skipped.
func (svc *Service) Query(ctx context.Context, kind Kind, filter Filter) ([]Entry, error) {
	qf := record.QueryFilter{SessionID: filter.SessionID, Center: filter.Center}
	switch kind {
	case KindAttendance:
		qf.Attendance = []record.Attendance{record.AttendancePresent, record.AttendanceMakeup}
	case KindAbsence:
		qf.Attendance = []record.Attendance{record.AttendanceAbsent}
	case KindGrades:
		hasGrade := true
		qf.HasGrade = &hasGrade
	case KindIssues:
		issue := true
		qf.Issue = &issue
	default:
		return nil, ErrInvalidKind
	}

	recs, err := svc.records.Filter(ctx, qf)
	if err != nil {
		return nil, errors.Wrap(err, "filtering records")
	}
	if len(recs) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.StudentID)
	}
	students, err := svc.students.FilterByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "joining students")
	}
	byID := make(map[string]student.Student, len(students))
	for _, std := range students {
		byID[std.ID] = std
	}

	entries := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		std, ok := byID[rec.StudentID]
		if !ok {
			continue
		}
		entries = append(entries, Entry{Record: rec, Student: std})
	}
	return entries, nil
}

// Export renders the report as a styled workbook with the fixed column
// layout and returns it with its localized filename.
func (svc *Service) Export(ctx context.Context, kind Kind, filter Filter) (*excelize.File, string, error) {
	entries, err := svc.Query(ctx, kind, filter)
	if err != nil {
		return nil, "", err
	}
	if len(entries) == 0 {
		return nil, "", ErrNoData
	}

	headers := []string{"كود الطالب", "الاسم الكامل", "رقم الهاتف", "رقم ولي الأمر", "السنتر / المجموعة"}
	widths := []float64{15, 30, 15, 15, 20}
	if kind == KindGrades {
		headers = append(headers, "الدرجة")
		widths = append(widths, 10)
	}

	rows := make([][]interface{}, 0, len(entries))
	for _, e := range entries {
		row := []interface{}{
			orDash(e.Student.StudentID),
			orDash(e.Student.FullName),
			orDash(e.Student.PhoneNumber),
			orDash(e.Student.ParentPhoneNumber),
			orDash(e.Student.MainCenter),
		}
		if kind == KindGrades {
			row = append(row, e.Record.Grade)
		}
		rows = append(rows, row)
	}

	f, err := buildWorkbook(exportSheet, headers, widths, rows)
	if err != nil {
		return nil, "", err
	}

	sessionName := "الكل"
	if filter.SessionID != "" {
		sess, err := svc.sessions.GetByID(ctx, filter.SessionID)
		if err != nil {
			return nil, "", errors.Wrap(err, "resolving session")
		}
		sessionName = sess.Name()
	}
	centerName := filter.Center
	if centerName == "" {
		centerName = "الكل"
	}
	filename := fmt.Sprintf("%s %s %s.xlsx", centerName, sessionName, kind.Display())
	return f, filename, nil
}

// ExportCenter renders the full roster of one center as a workbook.
func (svc *Service) ExportCenter(ctx context.Context, centerName string) (*excelize.File, string, error) {
	students, err := svc.students.FilterByCenter(ctx, centerName)
	if err != nil {
		return nil, "", errors.Wrap(err, "listing center students")
	}
	if len(students) == 0 {
		return nil, "", ErrNoData
	}

	headers := []string{"كود الطالب", "اسم الطالب", "رقم الطالب", "رقم ولي الامر", "الشعبة", "النوع"}
	widths := []float64{15, 30, 15, 15, 15, 10}
	rows := make([][]interface{}, 0, len(students))
	for _, std := range students {
		rows = append(rows, []interface{}{
			std.StudentID,
			std.FullName,
			std.PhoneNumber,
			std.ParentPhoneNumber,
			std.Division.Display(),
			std.Gender.Display(),
		})
	}

	sheet := fmt.Sprintf("بيانات سنتر %s", centerName)
	f, err := buildWorkbook(sheet, headers, widths, rows)
	if err != nil {
		return nil, "", err
	}
	return f, sheet + ".xlsx", nil
}

func buildWorkbook(sheet string, headers []string, widths []float64, rows [][]interface{}) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName(f.GetSheetName(0), sheet)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, errors.Wrap(err, "writing header")
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, widths[i])
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, errors.Wrap(err, "writing row")
			}
		}
	}

	if err := applyStyling(f, sheet, len(headers), len(rows)+1); err != nil {
		return nil, err
	}
	return f, nil
}

// applyStyling borders and centers every cell and bolds the header row.
func applyStyling(f *excelize.File, sheet string, cols, rowCount int) error {
	border := []excelize.Border{
		{Type: "top", Style: 1, Color: "000000"},
		{Type: "left", Style: 1, Color: "000000"},
		{Type: "bottom", Style: 1, Color: "000000"},
		{Type: "right", Style: 1, Color: "000000"},
	}
	alignment := &excelize.Alignment{Vertical: "center", Horizontal: "center", WrapText: true}

	bodyStyle, err := f.NewStyle(&excelize.Style{Border: border, Alignment: alignment})
	if err != nil {
		return errors.Wrap(err, "creating body style")
	}
	headStyle, err := f.NewStyle(&excelize.Style{
		Border:    border,
		Alignment: alignment,
		Font:      &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}

	lastCol, _ := excelize.ColumnNumberToName(cols)
	if err := f.SetCellStyle(sheet, "A1", fmt.Sprintf("%s%d", lastCol, rowCount), bodyStyle); err != nil {
		return errors.Wrap(err, "styling body")
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headStyle); err != nil {
		return errors.Wrap(err, "styling header")
	}
	return f.SetRowHeight(sheet, 1, 60)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
