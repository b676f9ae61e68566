package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/medtech/go-cds/internal/api/middleware"
	"github.com/medtech/go-cds/internal/domain/user"
)

type fakeUserStore struct {
	byEmail map[string]*user.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: map[string]*user.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, u *user.User) error {
	if _, ok := f.byEmail[u.Email]; ok {
		return user.ErrEmailTaken
	}
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*user.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

var authSecret = []byte("auth-test-secret")

func newAuthHandler() (*AuthHandler, *fakeUserStore) {
	store := newFakeUserStore()
	return NewAuthHandler(store, authSecret, time.Hour, nil), store
}

func postAuth(h *AuthHandler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.PublicRoutes().ServeHTTP(rec, req)
	return rec
}

func TestRegisterAndLogin(t *testing.T) {
	h, store := newAuthHandler()

	rec := postAuth(h, "/register/doctor", `{"email":"doc@example.com","name":"Dr. Smith","password":"hunter2hunter2","specialty":"cardiology"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Error("missing token")
	}
	if resp.User.Role != user.RoleDoctor {
		t.Errorf("role = %s, want doctor", resp.User.Role)
	}
	if strings.Contains(rec.Body.String(), store.byEmail["doc@example.com"].PasswordHash) {
		t.Error("password hash leaked in response")
	}

	rec = postAuth(h, "/login", `{"email":"doc@example.com","password":"hunter2hunter2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = postAuth(h, "/login", `{"email":"doc@example.com","password":"wrong-password"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}
	rec = postAuth(h, "/login", `{"email":"nobody@example.com","password":"whatever123"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown email status = %d, want 401", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	h, _ := newAuthHandler()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad email", `{"email":"not-an-email","name":"X","password":"longenough"}`, http.StatusBadRequest},
		{"short password", `{"email":"a@b.com","name":"X","password":"short"}`, http.StatusBadRequest},
		{"missing name", `{"email":"a@b.com","password":"longenough"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := postAuth(h, "/register/patient", tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h, _ := newAuthHandler()
	body := `{"email":"dup@example.com","name":"X","password":"longenough"}`

	if rec := postAuth(h, "/register/patient", body); rec.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", rec.Code)
	}
	if rec := postAuth(h, "/register/patient", body); rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", rec.Code)
	}
}

func TestTokenWorksWithAuthMiddleware(t *testing.T) {
	h, _ := newAuthHandler()

	rec := postAuth(h, "/register/doctor", `{"email":"doc@example.com","name":"Dr. Smith","password":"hunter2hunter2"}`)
	var resp AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	protected := middleware.Auth(authSecret)(http.HandlerFunc(h.Me))
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	meRec := httptest.NewRecorder()
	protected.ServeHTTP(meRec, req)

	if meRec.Code != http.StatusOK {
		t.Fatalf("me status = %d, body %s", meRec.Code, meRec.Body.String())
	}
	var me user.User
	if err := json.Unmarshal(meRec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Email != "doc@example.com" {
		t.Errorf("me email = %s", me.Email)
	}
}

func TestMeWithoutClaims(t *testing.T) {
	h, _ := newAuthHandler()
	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest("GET", "/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
