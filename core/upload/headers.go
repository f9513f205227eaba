package upload

// Canonical logical field names. Downstream row processors only ever see
// these keys, whatever script convention the uploaded header row used.
const (
	fieldID           = "ID"
	fieldName         = "Student Name"
	fieldStudentPhone = "Student Phone"
	fieldParentPhone  = "Parent Phone"
	fieldGender       = "Gender"
	fieldDivision     = "Division"
	fieldGrade        = "Grade"
)

var (
	// Student sheets come in two accepted six-column conventions.
	studentHeadersEN = []string{"ID", "Student Name", "Student Phone", "Parent Phone", "Gender", "Division"}
	studentHeadersAR = []string{"رقم الـ ID", "اسم الطالب", "رقم الطالب", "رقم ولي الأمر", "النوع", "الشعبة"}

	// Attendance/issues sheets must contain these four Arabic columns.
	attendanceHeaders = []string{"رقم ولي الامر", "رقم الطالب", "اسم الطالب", "كود الطالب"}

	// Grade sheets use this five-column Arabic convention. It is enforced
	// per row rather than up front: a sheet without the grade column fails
	// row by row, not at the header check.
	gradeHeaders = []string{"رقم وليامر", "رقم الطالب", "اسم الطالب", "كود الطالب", "الدرجة"}

	// headerFields maps every accepted physical header to its logical field.
	headerFields = map[string]string{
		"ID":          fieldID,
		"رقم الـ ID":  fieldID,
		"كود الطالب":  fieldID,
		"Student Name": fieldName,
		"اسم الطالب":  fieldName,
		"Student Phone": fieldStudentPhone,
		"رقم الطالب":  fieldStudentPhone,
		"Parent Phone": fieldParentPhone,
		"رقم ولي الأمر": fieldParentPhone,
		"رقم ولي الامر": fieldParentPhone,
		"رقم وليامر":  fieldParentPhone,
		"Gender":      fieldGender,
		"النوع":       fieldGender,
		"Division":    fieldDivision,
		"الشعبة":      fieldDivision,
		"الدرجة":      fieldGrade,
	}
)

func containsAll(found []string, wanted []string) bool {
	return len(missingFrom(found, wanted)) == 0
}

func missingFrom(found []string, wanted []string) []string {
	var missing []string
	for _, w := range wanted {
		ok := false
		for _, f := range found {
			if f == w {
				ok = true
				break
			}
		}
		if !ok {
			missing = append(missing, w)
		}
	}
	return missing
}

// validateHeaders checks the trimmed header row against the accepted set(s)
// for the upload kind.
func validateHeaders(kind Kind, found []string) error {
	switch kind {
	case KindStudents:
		if containsAll(found, studentHeadersEN) || containsAll(found, studentHeadersAR) {
			return nil
		}
		return &HeaderMismatchError{
			Expected: [][]string{studentHeadersEN, studentHeadersAR},
			Found:    found,
		}
	case KindAttendance, KindIssues:
		if missing := missingFrom(found, attendanceHeaders); len(missing) > 0 {
			return &HeaderMismatchError{
				Expected: [][]string{attendanceHeaders},
				Missing:  missing,
				Found:    found,
			}
		}
	}
	// grades: validated inside the row processor
	return nil
}
