package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	. "github.com/mutabaa-app/mutabaa/apps/api/echo"
	"github.com/mutabaa-app/mutabaa/core"
	"github.com/mutabaa-app/mutabaa/core/center"
	"github.com/mutabaa-app/mutabaa/core/record"
	"github.com/mutabaa-app/mutabaa/core/report"
	"github.com/mutabaa-app/mutabaa/core/session"
	"github.com/mutabaa-app/mutabaa/core/student"
	"github.com/mutabaa-app/mutabaa/core/upload"
	"github.com/mutabaa-app/mutabaa/core/user"
	emailsvc "github.com/mutabaa-app/mutabaa/services/email"
	dummydb "github.com/mutabaa-app/mutabaa/storage/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app Server

	userSvc    *user.Service
	studentSvc *student.Service
	sessionSvc *session.Service
	recordSvc  *record.Service
	centerSvc  *center.Service
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	// error responses must keep their production shape
	core.Conf.Debug = false
	core.Conf.TestMode = true

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	studentRepo := dummydb.NewStudentRepository(db)
	recordRepo := dummydb.NewRecordRepository(db)
	sessionRepo := dummydb.NewSessionRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewServiceMock(dummydb.NewUserRepository(db), mailSvc)

	recordSvc := record.NewService(recordRepo)
	studentSvc := student.NewService(studentRepo, recordRepo)
	sessionSvc := session.NewService(sessionRepo, studentRepo, recordRepo)
	centerSvc := center.NewService(dummydb.NewCenterRepository(db), recordRepo)
	uploadSvc := upload.NewService(studentSvc, sessionSvc, recordSvc, nil)
	reportSvc := report.NewService(studentSvc, sessionSvc, recordSvc)

	app := NewServer(&Options{
		DisableReqLogs: true,
		Logger:         core.NopLogger{},
		UserSvc:        usrSvc,
		StudentSvc:     studentSvc,
		SessionSvc:     sessionSvc,
		RecordSvc:      recordSvc,
		CenterSvc:      centerSvc,
		UploadSvc:      uploadSvc,
		ReportSvc:      reportSvc,
	})
	return &testEnv{
		app:        app,
		userSvc:    usrSvc,
		studentSvc: studentSvc,
		sessionSvc: sessionSvc,
		recordSvc:  recordSvc,
		centerSvc:  centerSvc,
	}
}

func (env *testEnv) createUser(t *testing.T, uname string, roles []string) user.User {
	t.Helper()
	usr, err := env.userSvc.Create(context.Background(), user.NewUser{
		Name:     "User " + uname,
		Username: uname,
		Email:    uname + "@test.cd",
		Password: "LeSecret#123",
		Roles:    roles,
	})
	if err != nil {
		t.Fatalf("createUser(%s): %v", uname, err)
	}
	return usr
}

func (env *testEnv) createStudent(t *testing.T, studentID, name, centerName string) student.Student {
	t.Helper()
	std, err := env.studentSvc.Create(context.Background(), student.NewStudent{
		StudentID:   studentID,
		FullName:    name,
		PhoneNumber: "01000000000",
		MainCenter:  centerName,
	})
	if err != nil {
		t.Fatalf("createStudent(%s): %v", studentID, err)
	}
	return std
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if tt.wantCode == 0 {
		tt.wantCode = http.StatusOK
	}
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
