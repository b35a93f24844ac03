package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lookatme/backend/internal/admin"
	"github.com/lookatme/backend/internal/models"
)

type stubAdminService struct {
	stats     models.Statistics
	users     []models.User
	posts     []models.AdminPost
	err       error
	roleErr   error
	deleteErr error

	gotActor  int64
	gotTarget int64
	gotRole   string
}

func (s *stubAdminService) Statistics(context.Context) (models.Statistics, error) {
	return s.stats, s.err
}

func (s *stubAdminService) ListUsers(context.Context) ([]models.User, error) {
	return s.users, s.err
}

func (s *stubAdminService) ChangeRole(_ context.Context, actorID, userID int64, role string) error {
	s.gotActor, s.gotTarget, s.gotRole = actorID, userID, role
	return s.roleErr
}

func (s *stubAdminService) DeleteUser(_ context.Context, actorID, userID int64) error {
	s.gotActor, s.gotTarget = actorID, userID
	return s.deleteErr
}

func (s *stubAdminService) ListPosts(context.Context) ([]models.AdminPost, error) {
	return s.posts, s.err
}

func (s *stubAdminService) DeletePost(_ context.Context, postID int64) error {
	s.gotTarget = postID
	return s.deleteErr
}

func TestAdminHandlerLogin(t *testing.T) {
	store := newInMemoryUserStore()
	store.addUser(t, "root@example.com", "password123", models.RoleAdmin)
	store.addUser(t, "plain@example.com", "password123", models.RoleUser)

	cases := []struct {
		name       string
		body       loginRequest
		limiter    RateLimiter
		wantStatus int
	}{
		{"admin", loginRequest{Email: "root@example.com", Password: "password123"}, nil, http.StatusOK},
		{"wrongPassword", loginRequest{Email: "root@example.com", Password: "letmein!!"}, nil, http.StatusUnauthorized},
		{"notAdmin", loginRequest{Email: "plain@example.com", Password: "password123"}, nil, http.StatusForbidden},
		{"notAdminWrongPassword", loginRequest{Email: "plain@example.com", Password: "letmein!!"}, nil, http.StatusForbidden},
		{"unknown", loginRequest{Email: "ghost@example.com", Password: "password123"}, nil, http.StatusUnauthorized},
		{"missingFields", loginRequest{Email: "root@example.com"}, nil, http.StatusBadRequest},
		{"rateLimited", loginRequest{Email: "root@example.com", Password: "password123"}, denyLimiter{}, http.StatusTooManyRequests},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := AdminHandler{Users: store, Sessions: newTestManager(), Limiter: tc.limiter}
			rec := httptest.NewRecorder()

			handler.Login(rec, postJSON(t, "/admin/api/login", tc.body))

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if tc.wantStatus == http.StatusOK && accessCookie(rec) == nil {
				t.Fatal("expected access cookie on admin login")
			}
		})
	}
}

func TestAdminHandlerLogout(t *testing.T) {
	store := newInMemoryUserStore()
	id := store.addUser(t, "root@example.com", "password123", models.RoleAdmin)
	if err := store.UpdateStatus(context.Background(), id, models.StatusOnline); err != nil {
		t.Fatalf("update status: %v", err)
	}

	manager := newTestManager()
	tokens, err := manager.Issue(context.Background(), id)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	handler := AdminHandler{Users: store, Sessions: manager, SecureCookies: true}
	rec := httptest.NewRecorder()
	handler.Logout(rec, postJSON(t, "/admin/api/logout", refreshRequest{RefreshToken: tokens.RefreshToken}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	cookie := accessCookie(rec)
	if cookie == nil || cookie.MaxAge >= 0 || !cookie.Secure {
		t.Fatalf("expected secure access cookie to be cleared, got %+v", cookie)
	}
	if stored, _ := store.FindByID(context.Background(), id); stored.Status != models.StatusOffline {
		t.Fatalf("expected admin offline after logout, got %q", stored.Status)
	}
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err == nil {
		t.Fatal("expected refresh token to be revoked")
	}

	rec = httptest.NewRecorder()
	handler.Logout(rec, httptest.NewRequest(http.MethodGet, "/admin/api/logout", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected method not allowed got %d", rec.Code)
	}
}

func TestAdminHandlerChangeRole(t *testing.T) {
	cases := []struct {
		name       string
		id         string
		body       string
		err        error
		wantStatus int
	}{
		{"ok", "7", `{"role":"premium"}`, nil, http.StatusOK},
		{"badID", "abc", `{"role":"premium"}`, nil, http.StatusBadRequest},
		{"badBody", "7", `{`, nil, http.StatusBadRequest},
		{"invalidRole", "7", `{"role":"owner"}`, admin.ErrInvalidRole, http.StatusBadRequest},
		{"selfDemotion", "7", `{"role":"user"}`, admin.ErrSelfDemotion, http.StatusBadRequest},
		{"missing", "7", `{"role":"user"}`, admin.ErrNotFound, http.StatusNotFound},
		{"internal", "7", `{"role":"user"}`, errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubAdminService{roleErr: tc.err}
			req := httptest.NewRequest(http.MethodPost, "/admin/api/users/"+tc.id+"/role", strings.NewReader(tc.body))
			req.SetPathValue("id", tc.id)
			rec := httptest.NewRecorder()

			AdminHandler{Admin: svc}.ChangeRole(rec, withUser(req, 1))

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if tc.name == "ok" && (svc.gotActor != 1 || svc.gotTarget != 7 || svc.gotRole != "premium") {
				t.Fatalf("unexpected service call: actor=%d target=%d role=%q", svc.gotActor, svc.gotTarget, svc.gotRole)
			}
		})
	}
}

func TestAdminHandlerDeleteUser(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ok", nil, http.StatusOK},
		{"self", admin.ErrSelfDeletion, http.StatusBadRequest},
		{"missing", admin.ErrNotFound, http.StatusNotFound},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubAdminService{deleteErr: tc.err}
			req := httptest.NewRequest(http.MethodDelete, "/admin/api/users/4", nil)
			req.SetPathValue("id", "4")
			rec := httptest.NewRecorder()

			AdminHandler{Admin: svc}.DeleteUser(rec, withUser(req, 2))

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, rec.Code)
			}
			if svc.gotActor != 2 || svc.gotTarget != 4 {
				t.Fatalf("unexpected service call: actor=%d target=%d", svc.gotActor, svc.gotTarget)
			}
		})
	}
}

func TestAdminHandlerPosts(t *testing.T) {
	svc := &stubAdminService{posts: []models.AdminPost{{ID: 3, UserEmail: "a@example.com", Content: "spam"}}}
	handler := AdminHandler{Admin: svc}

	rec := httptest.NewRecorder()
	handler.ListPosts(rec, httptest.NewRequest(http.MethodGet, "/admin/api/posts", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	var list []models.AdminPost
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != 1 || list[0].UserEmail != "a@example.com" {
		t.Fatalf("unexpected posts payload: %+v", list)
	}

	req := httptest.NewRequest(http.MethodDelete, "/admin/api/posts/3", nil)
	req.SetPathValue("id", "3")
	rec = httptest.NewRecorder()
	handler.DeletePost(rec, req)
	if rec.Code != http.StatusOK || svc.gotTarget != 3 {
		t.Fatalf("expected post 3 deleted, got status %d target %d", rec.Code, svc.gotTarget)
	}

	svc.deleteErr = admin.ErrNotFound
	rec = httptest.NewRecorder()
	handler.DeletePost(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected not found got %d", rec.Code)
	}
}

func TestAdminHandlerReadFailures(t *testing.T) {
	handler := AdminHandler{Admin: &stubAdminService{err: errors.New("db down")}}

	for name, fn := range map[string]http.HandlerFunc{
		"stats": handler.Stats,
		"users": handler.ListUsers,
		"posts": handler.ListPosts,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			fn(rec, httptest.NewRequest(http.MethodGet, "/admin/api/"+name, nil))
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("expected internal error got %d", rec.Code)
			}
		})
	}
}
