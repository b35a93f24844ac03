package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lookatme/backend/internal/auth"
	"github.com/lookatme/backend/internal/friends"
	"github.com/lookatme/backend/internal/models"
)

type stubFriendService struct {
	sendStatus string
	sendErr    error
	acceptErr  error
	listErr    error

	summary models.FriendSummary
	pending models.PendingRequests
	count   models.PendingCount
	list    []models.Friend
	results []models.UserSearchResult

	gotUser   int64
	gotTarget int64
	gotTerm   string
}

func (s *stubFriendService) SendRequest(_ context.Context, userID, targetID int64) (string, error) {
	s.gotUser, s.gotTarget = userID, targetID
	return s.sendStatus, s.sendErr
}

func (s *stubFriendService) AcceptRequest(_ context.Context, userID, fromUserID int64) error {
	s.gotUser, s.gotTarget = userID, fromUserID
	return s.acceptErr
}

func (s *stubFriendService) Summary(_ context.Context, userID int64) (models.FriendSummary, error) {
	s.gotUser = userID
	return s.summary, s.listErr
}

func (s *stubFriendService) ListFriends(_ context.Context, userID int64, term string) ([]models.Friend, error) {
	s.gotUser, s.gotTerm = userID, term
	return s.list, s.listErr
}

func (s *stubFriendService) OnlineFriends(_ context.Context, userID int64) ([]models.Friend, error) {
	s.gotUser = userID
	return s.list, s.listErr
}

func (s *stubFriendService) Search(_ context.Context, userID int64, term string) ([]models.UserSearchResult, error) {
	s.gotUser, s.gotTerm = userID, term
	return s.results, s.listErr
}

func (s *stubFriendService) Pending(_ context.Context, userID int64) (models.PendingRequests, error) {
	s.gotUser = userID
	return s.pending, s.listErr
}

func (s *stubFriendService) PendingCount(_ context.Context, userID int64) (models.PendingCount, error) {
	s.gotUser = userID
	return s.count, s.listErr
}

func withUser(req *http.Request, userID int64) *http.Request {
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}

func TestFriendHandlerRequest(t *testing.T) {
	svc := &stubFriendService{sendStatus: models.FriendPending}
	handler := FriendHandler{Friends: svc}

	req := withUser(postJSON(t, "/api/friends/request", friendRequestBody{TargetID: 7}), 3)
	rec := httptest.NewRecorder()

	handler.Request(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if svc.gotUser != 3 || svc.gotTarget != 7 {
		t.Fatalf("expected request from 3 to 7, got %d -> %d", svc.gotUser, svc.gotTarget)
	}

	var resp successResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Status != models.FriendPending {
		t.Fatalf("unexpected response payload: %+v", resp)
	}
}

func TestFriendHandlerRequestFailures(t *testing.T) {
	body := friendRequestBody{TargetID: 7}

	cases := []struct {
		name       string
		svc        *stubFriendService
		user       int64
		body       any
		wantStatus int
		wantError  string
	}{
		{"anonymous", &stubFriendService{}, 0, body, http.StatusUnauthorized, "authentication required"},
		{"missingTarget", &stubFriendService{}, 3, friendRequestBody{}, http.StatusBadRequest, "targetId is required"},
		{"self", &stubFriendService{sendErr: friends.ErrSelfRequest}, 3, body, http.StatusBadRequest, "Cannot add yourself"},
		{"unknownTarget", &stubFriendService{sendErr: friends.ErrUserNotFound}, 3, body, http.StatusNotFound, "User not found"},
		{"internal", &stubFriendService{sendErr: friends.ErrRequestFailed}, 3, body, http.StatusInternalServerError, "Failed to send friend request"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := postJSON(t, "/api/friends/request", tc.body)
			if tc.user != 0 {
				req = withUser(req, tc.user)
			}
			rec := httptest.NewRecorder()

			FriendHandler{Friends: tc.svc}.Request(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, rec.Code)
			}
			if got := decodeError(t, rec); got != tc.wantError {
				t.Fatalf("expected error %q got %q", tc.wantError, got)
			}
		})
	}
}

func TestFriendHandlerAccept(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ok", nil, http.StatusOK},
		{"noRequest", friends.ErrRequestNotFound, http.StatusNotFound},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubFriendService{acceptErr: tc.err}
			req := withUser(postJSON(t, "/api/friends/accept", acceptRequestBody{FromUserID: 9}), 4)
			rec := httptest.NewRecorder()

			FriendHandler{Friends: svc}.Accept(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, rec.Code)
			}
			if svc.gotUser != 4 || svc.gotTarget != 9 {
				t.Fatalf("expected accept by 4 of 9, got %d/%d", svc.gotUser, svc.gotTarget)
			}
		})
	}
}

func TestFriendHandlerSummary(t *testing.T) {
	svc := &stubFriendService{
		summary: models.FriendSummary{Total: 4, Online: 1},
		count:   models.PendingCount{Incoming: 2, Outgoing: 3},
	}

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/friends/summary", nil), 1)
	rec := httptest.NewRecorder()
	FriendHandler{Friends: svc}.Summary(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp friendSummaryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := friendSummaryResponse{Total: 4, Online: 1, PendingIncoming: 2, PendingOutgoing: 3}
	if resp != want {
		t.Fatalf("expected %+v got %+v", want, resp)
	}
}

func TestFriendHandlerListAndSearch(t *testing.T) {
	svc := &stubFriendService{
		list:    []models.Friend{{ID: 2, Name: "Grace", Status: models.StatusOnline, RelationID: 11}},
		results: []models.UserSearchResult{{ID: 5, Name: "Linus", FriendStatus: models.FriendNone}},
	}
	handler := FriendHandler{Friends: svc}

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/friends/list?q=gra", nil), 1)
	rec := httptest.NewRecorder()
	handler.List(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if svc.gotTerm != "gra" {
		t.Fatalf("expected search term to be forwarded, got %q", svc.gotTerm)
	}
	var list []models.Friend
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].RelationID != 11 {
		t.Fatalf("unexpected list payload: %+v", list)
	}

	req = withUser(httptest.NewRequest(http.MethodGet, "/api/friends/search?q=lin", nil), 1)
	rec = httptest.NewRecorder()
	handler.Search(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"friendStatus":"none"`) {
		t.Fatalf("expected friend status in search payload, got %s", rec.Body.String())
	}

	req = withUser(httptest.NewRequest(http.MethodGet, "/api/friends/online", nil), 1)
	rec = httptest.NewRecorder()
	handler.Online(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
}

func TestFriendHandlerPending(t *testing.T) {
	svc := &stubFriendService{pending: models.PendingRequests{
		Incoming: []models.IncomingRequest{{ID: 1, FromUserID: 8, Name: "Ken"}},
		Outgoing: []models.OutgoingRequest{},
	}}

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/friends/pending", nil), 2)
	rec := httptest.NewRecorder()
	FriendHandler{Friends: svc}.Pending(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	var resp models.PendingRequests
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Incoming) != 1 || resp.Incoming[0].FromUserID != 8 || resp.Outgoing == nil {
		t.Fatalf("unexpected pending payload: %+v", resp)
	}
}

func TestFriendHandlerReadFailures(t *testing.T) {
	handler := FriendHandler{Friends: &stubFriendService{listErr: errors.New("db down")}}

	reads := map[string]http.HandlerFunc{
		"summary": handler.Summary,
		"list":    handler.List,
		"online":  handler.Online,
		"search":  handler.Search,
		"pending": handler.Pending,
	}
	for name, fn := range reads {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/friends/"+name, nil)
			rec := httptest.NewRecorder()
			fn(rec, withUser(req, 1))
			if rec.Code != http.StatusMethodNotAllowed {
				t.Fatalf("expected method not allowed got %d", rec.Code)
			}

			req = httptest.NewRequest(http.MethodGet, "/api/friends/"+name+"?q=x", nil)
			rec = httptest.NewRecorder()
			fn(rec, withUser(req, 1))
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("expected internal error got %d", rec.Code)
			}
		})
	}
}
