package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"testing"

	"github.com/mutabaa-app/mutabaa/apps/api/echo"
	"github.com/mutabaa-app/mutabaa/core/user"
	emailsvc "github.com/mutabaa-app/mutabaa/services/email"
)

func Test_userApi_login(t *testing.T) {
	env := setup(t)

	usr := env.createUser(t, "awe001", user.StaffRoles)
	deactivated := env.createUser(t, "gone01", user.StaffRoles)
	if _, err := env.userSvc.Update(context.Background(), deactivated.ID, user.UpdateUser{IsActive: bPtr(false)}); err != nil {
		t.Fatalf("deactivating user: %v", err)
	}

	tests := []httpTest{
		{
			name: "empty credentials", body: marchallObj(t, echoapi.LoginRequest{}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown user", body: marchallObj(t, echoapi.LoginRequest{Username: "lol", Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: marchallObj(t, echoapi.LoginRequest{Username: usr.Username, Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: marchallObj(t, echoapi.LoginRequest{Username: deactivated.Username, Password: "LeSecret#123"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "login with username", body: marchallObj(t, echoapi.LoginRequest{Username: usr.Username, Password: "LeSecret#123"}),
			wantCode: http.StatusOK,
		},
		{
			name: "login with email", body: marchallObj(t, echoapi.LoginRequest{Username: usr.Email, Password: "LeSecret#123"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			env.app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK {
				var resp echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshalling LoginResponse: %v", err)
				}
				if resp.Token == "" {
					t.Error("expected a token")
				}
			}
		})
	}
}

func Test_userApi_adminGuards(t *testing.T) {
	env := setup(t)

	staff := env.createUser(t, "staff01", user.StaffRoles)
	admin := env.createUser(t, "admin01", user.AllRoles)

	tests := []httpTest{
		{name: "query: auth required", method: http.MethodGet, path: "/v1/users",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "query: admin required", method: http.MethodGet, path: "/v1/users", token: getToken(t, staff),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "register: admin required", method: http.MethodPost, path: "/v1/users/register", token: getToken(t, staff),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "roles: admin ok", method: http.MethodGet, path: "/v1/users/roles", token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)},
		{name: "query: admin ok", method: http.MethodGet, path: "/v1/users", token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallList(t, admin, staff)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_register(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "admin01", user.AllRoles)
	adminToken := getToken(t, admin)

	t.Run("creates an active user", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name:            "New Staff",
			Username:        "staff001",
			Email:           "staff001@test.cd",
			Password:        "LeSecret#123",
			PasswordConfirm: "LeSecret#123",
			Roles:           user.StaffRoles,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("unmarshalling User: %v", err)
		}
		if !usr.IsActive {
			t.Error("expected an active user")
		}
		if !usr.IsStaff() {
			t.Error("expected a staff user")
		}
	})

	t.Run("rejects duplicate username", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name:            "Copy Cat",
			Username:        "admin01",
			Email:           "copycat@test.cd",
			Password:        "LeSecret#123",
			PasswordConfirm: "LeSecret#123",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
}

func Test_userApi_passwordReset(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "forget1", user.StaffRoles)

	emailsvc.SentMessages = nil

	body := marchallObj(t, echoapi.PasswordResetRequest{Email: usr.Email})
	req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("expected 1 sent message, got %d", len(emailsvc.SentMessages))
	}

	// pull uid & token out of the emailed link
	re := regexp.MustCompile(`uid=([^&\s]+)&token=([^&\s]+)`)
	match := re.FindStringSubmatch(emailsvc.SentMessages[0].TextContent)
	if match == nil {
		t.Fatalf("reset link not found in mail body:\n%s", emailsvc.SentMessages[0].TextContent)
	}
	uid, _ := url.QueryUnescape(match[1])
	token, _ := url.QueryUnescape(match[2])

	confirm := marchallObj(t, user.ResetUserPassword{
		UID:             uid,
		Token:           token,
		Password:        "NewSecret#456",
		PasswordConfirm: "NewSecret#456",
	})
	req, rec = newRequest(http.MethodPost, "/v1/users/password-reset-confirm", confirm)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}

	refreshed, err := env.userSvc.GetByID(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}
	if err := refreshed.CheckPassword("NewSecret#456"); err != nil {
		t.Error("new password was not set")
	}

	// a used token no longer verifies
	req, rec = newRequest(http.MethodPost, "/v1/users/password-reset-confirm", confirm)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
	}
}

func Test_userApi_detail(t *testing.T) {
	env := setup(t)
	staff := env.createUser(t, "staff01", user.StaffRoles)
	other := env.createUser(t, "staff02", user.StaffRoles)
	admin := env.createUser(t, "admin01", user.AllRoles)

	tests := []httpTest{
		{name: "self ok", method: http.MethodGet, path: "/v1/users/" + staff.ID, token: getToken(t, staff),
			wantCode: http.StatusOK, wantData: marchallObj(t, staff)},
		{name: "admin ok", method: http.MethodGet, path: "/v1/users/" + staff.ID, token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallObj(t, staff)},
		{name: "other's detail hidden", method: http.MethodGet, path: "/v1/users/" + other.ID, token: getToken(t, staff),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "self delete forbidden", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: getToken(t, admin),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func bPtr(b bool) *bool { return &b }
