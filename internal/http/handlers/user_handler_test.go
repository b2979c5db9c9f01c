package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-task-backend/internal/apperr"
	"github.com/tbourn/go-task-backend/internal/auth"
	"github.com/tbourn/go-task-backend/internal/domain"
	"github.com/tbourn/go-task-backend/internal/http/envelope"
	"github.com/tbourn/go-task-backend/internal/http/middleware"
	"github.com/tbourn/go-task-backend/internal/services"
)

// ---------- shared helpers ----------

// asUser marks every request as authenticated by uid ("" leaves it anonymous).
func asUser(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid != "" {
			c.Set(middleware.UserIDKey, uid)
		}
		c.Next()
	}
}

func newEngine(uid string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.BeginRequest(), middleware.Recovery(), middleware.BodyLimit(1<<10), asUser(uid))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string, hdr ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.Len() == 0 {
		return w, nil
	}
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return w, m
}

func errDetail(t *testing.T, m map[string]any) map[string]any {
	t.Helper()
	if m["success"] != false {
		t.Fatalf("expected error envelope, got %v", m)
	}
	d, ok := m["error_detail"].(map[string]any)
	if !ok {
		t.Fatalf("missing error_detail: %v", m)
	}
	return d
}

// ---------- fake auth service ----------

type fakeAuth struct {
	gotReg   services.Registration
	gotLogin [2]string
	sess     *services.Session
	user     *domain.User
	err      error
}

func (f *fakeAuth) Register(ctx context.Context, in services.Registration) (*services.Session, error) {
	f.gotReg = in
	return f.sess, f.err
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (*services.Session, error) {
	f.gotLogin = [2]string{username, password}
	return f.sess, f.err
}

func (f *fakeAuth) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func userRoutes(h *Handlers, uid string) *gin.Engine {
	r := newEngine(uid)
	g := r.Group("/api/user", envelope.Group("user"))
	g.POST("/register", envelope.Wrap("User registered successfully", http.StatusCreated, h.Register))
	g.POST("/login", envelope.Wrap("Login successful", http.StatusOK, h.Login))
	g.GET("", envelope.Wrap("User retrieval success", http.StatusOK, h.GetUser))
	return r
}

// ---------- tests ----------

func TestRegister_Success_SetsCookieAndMetadata(t *testing.T) {
	u := &domain.User{ID: 1, Username: "alice", Email: "alice@example.com"}
	fa := &fakeAuth{sess: &services.Session{User: u, Token: "jwt-1", ExpiresAt: time.Now().Add(time.Hour)}}
	r := userRoutes(New(fa, nil), "")

	w, m := doJSON(t, r, http.MethodPost, "/api/user/register",
		`{"user":{"username":"alice","email":"alice@example.com","password":"longenough"}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if m["success"] != true || m["message"] != "User registered successfully" || m["route_group"] != "user" {
		t.Fatalf("unexpected envelope: %v", m)
	}
	if fa.gotReg.Username != "alice" || fa.gotReg.Password != "longenough" {
		t.Fatalf("service got %+v", fa.gotReg)
	}

	data := m["data"].(map[string]any)["user"].(map[string]any)
	if data["username"] != "alice" || data["email"] != "alice@example.com" {
		t.Fatalf("user payload: %v", data)
	}
	if _, ok := data["password"]; ok {
		t.Fatalf("password must never be serialized")
	}
	if _, ok := data["id"]; ok {
		t.Fatalf("id is not part of the user payload")
	}
	if meta := m["metadata"].(map[string]any); meta["access_token"] != "jwt-1" {
		t.Fatalf("metadata: %v", meta)
	}

	cookie := w.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, auth.CookieName+"=jwt-1") || !strings.Contains(cookie, "HttpOnly") {
		t.Fatalf("cookie: %q", cookie)
	}
}

func TestRegister_BindingErrorsAreValidation(t *testing.T) {
	fa := &fakeAuth{}
	r := userRoutes(New(fa, nil), "")

	cases := []struct {
		name, body, debug string
	}{
		{"empty body", "", "request body is empty"},
		{"malformed", `{"user":`, ""},
		{"missing fields", `{"user":{}}`, "username is required"},
		{"bad email", `{"user":{"username":"a","email":"nope","password":"longenough"}}`, "email must be a valid email address"},
		{"short password", `{"user":{"username":"a","email":"a@b.co","password":"x"}}`, "password must be at least 8 characters"},
		{"wrong type", `{"user":{"username":5}}`, "must be string"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, m := doJSON(t, r, http.MethodPost, "/api/user/register", tc.body, "Content-Type", "application/json")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			d := errDetail(t, m)
			if d["error_code"] != "validation_error" || d["error_message"] != "Invalid request data" {
				t.Fatalf("detail: %v", d)
			}
			if dbg, _ := d["debug_message"].(string); !strings.Contains(dbg, tc.debug) {
				t.Fatalf("debug %q does not contain %q", dbg, tc.debug)
			}
		})
	}
	if fa.gotReg.Username != "" {
		t.Fatalf("service must not be called on bad input")
	}
}

func TestRegister_TooLargeBody(t *testing.T) {
	r := userRoutes(New(&fakeAuth{}, nil), "")
	big := `{"user":{"username":"` + strings.Repeat("a", 2048) + `"}}`
	w, m := doJSON(t, r, http.MethodPost, "/api/user/register", big)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if d := errDetail(t, m); d["debug_message"] != "HTTP 413: request body too large" {
		t.Fatalf("detail: %v", d)
	}
}

func TestRegister_ConflictPassesThrough(t *testing.T) {
	fa := &fakeAuth{err: apperr.Conflict("User with this username or email already exists", "Registration failed for user: alice")}
	r := userRoutes(New(fa, nil), "")

	w, m := doJSON(t, r, http.MethodPost, "/api/user/register",
		`{"user":{"username":"alice","email":"alice@example.com","password":"longenough"}}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
	d := errDetail(t, m)
	if d["error_code"] != "conflict_error" || d["error_type"] != "validation" {
		t.Fatalf("detail: %v", d)
	}
	if m["status_code"] != float64(409) || m["route_group"] != "user" {
		t.Fatalf("envelope: %v", m)
	}
}

func TestLogin(t *testing.T) {
	u := &domain.User{ID: 2, Username: "bob"}
	fa := &fakeAuth{sess: &services.Session{User: u, Token: "jwt-2", ExpiresAt: time.Now().Add(time.Hour)}}
	r := userRoutes(New(fa, nil), "")

	w, m := doJSON(t, r, http.MethodPost, "/api/user/login", `{"user":{"username":"bob","password":"pw"}}`)
	if w.Code != http.StatusOK || m["message"] != "Login successful" {
		t.Fatalf("login: %d %v", w.Code, m)
	}
	if fa.gotLogin != [2]string{"bob", "pw"} {
		t.Fatalf("service got %v", fa.gotLogin)
	}

	fa.err = services.ErrInvalidCredentials
	w, m = doJSON(t, r, http.MethodPost, "/api/user/login", `{"user":{"username":"bob","password":"bad"}}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if d := errDetail(t, m); d["error_code"] != "unauthorized_error" || d["error_message"] != "Invalid Credentials" {
		t.Fatalf("detail: %v", d)
	}
	if _, ok := errDetail(t, m)["debug_message"]; ok {
		t.Fatalf("debug_message must be absent when not supplied")
	}
}

func TestGetUser(t *testing.T) {
	fa := &fakeAuth{user: &domain.User{ID: 3, Username: "carol"}}

	w, m := doJSON(t, userRoutes(New(fa, nil), "3"), http.MethodGet, "/api/user", "")
	if w.Code != http.StatusOK || m["message"] != "User retrieval success" {
		t.Fatalf("get: %d %v", w.Code, m)
	}

	w, m = doJSON(t, userRoutes(New(fa, nil), ""), http.MethodGet, "/api/user", "")
	if w.Code != http.StatusUnauthorized || errDetail(t, m)["error_code"] != "unauthorized_error" {
		t.Fatalf("anonymous: %d %v", w.Code, m)
	}

	fa.err = services.ErrUserNotFound
	w, m = doJSON(t, userRoutes(New(fa, nil), "3"), http.MethodGet, "/api/user", "")
	if w.Code != http.StatusNotFound || errDetail(t, m)["error_code"] != "not_found_error" {
		t.Fatalf("missing: %d %v", w.Code, m)
	}

	fa.err = errors.New("db down")
	w, m = doJSON(t, userRoutes(New(fa, nil), "3"), http.MethodGet, "/api/user", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("infra: %d", w.Code)
	}
	if dbg := errDetail(t, m)["debug_message"]; dbg != "Unhandled exception: *errors.errorString: db down" {
		t.Fatalf("debug: %v", dbg)
	}
}
