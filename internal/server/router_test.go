package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/univento/leaderboard-service/internal/handlers"
	"github.com/univento/leaderboard-service/internal/logger"
	"github.com/univento/leaderboard-service/internal/middleware"
	"github.com/univento/leaderboard-service/internal/requestdata"
	"github.com/univento/leaderboard-service/internal/services"
	"github.com/univento/leaderboard-service/internal/sse"
	"github.com/univento/leaderboard-service/internal/types"
)

const testSecret = "router-test-secret"

type stubScoreService struct {
	lastInput services.ScoreUpdateInput
	entry     *types.ScoreEntry
	err       error
}

func (s *stubScoreService) ApplyScoreUpdate(ctx context.Context, in services.ScoreUpdateInput) (*types.ScoreEntry, error) {
	s.lastInput = in
	return s.entry, s.err
}

type stubLeaderboardService struct {
	entries []*types.ScoreEntry
	entry   *types.ScoreEntry
	err     error
}

func (s *stubLeaderboardService) GetEventLeaderboard(ctx context.Context, eventID uuid.UUID) ([]*types.ScoreEntry, error) {
	return s.entries, s.err
}

func (s *stubLeaderboardService) GetParticipantScore(ctx context.Context, eventID, userID uuid.UUID) (*types.ScoreEntry, error) {
	return s.entry, s.err
}

type stubAggregationService struct {
	performers []*types.TopPerformer
	standings  []*types.CollegeStanding
}

func (s *stubAggregationService) GetTopPerformers(ctx context.Context) ([]*types.TopPerformer, error) {
	return s.performers, nil
}

func (s *stubAggregationService) GetCollegeLeaderboard(ctx context.Context) ([]*types.CollegeStanding, error) {
	return s.standings, nil
}

type testFixture struct {
	router *gin.Engine
	scores *stubScoreService
	board  *stubLeaderboardService
	aggs   *stubAggregationService
}

func newTestRouter(t *testing.T) *testFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)

	scores := &stubScoreService{entry: &types.ScoreEntry{ID: uuid.New(), Score: 50, Rank: 1}}
	board := &stubLeaderboardService{}
	aggs := &stubAggregationService{}

	auth := services.NewAuthService(log, testSecret)
	router := NewRouter(RouterConfig{
		AuthMiddleware:     middleware.NewAuthMiddleware(log, auth),
		LeaderboardHandler: handlers.NewLeaderboardHandler(scores, board, aggs),
		RealtimeHandler:    handlers.NewRealtimeHandler(log, sse.NewSSEHub(log)),
	})
	return &testFixture{router: router, scores: scores, board: board, aggs: aggs}
}

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doRequest(fx *testFixture, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthcheck(t *testing.T) {
	fx := newTestRouter(t)
	rec := doRequest(fx, http.MethodGet, "/healthcheck", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("body: want=ok got=%q", rec.Body.String())
	}
}

func TestEventLeaderboardIsPublic(t *testing.T) {
	fx := newTestRouter(t)
	fx.board.entries = []*types.ScoreEntry{
		{ID: uuid.New(), UserName: "Alice", Score: 80, Rank: 1},
		{ID: uuid.New(), UserName: "Bob", Score: 60, Rank: 2},
	}

	rec := doRequest(fx, http.MethodGet, "/api/leaderboard/event/"+uuid.New().String(), "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("success flag: got %v", body["success"])
	}
	if body["count"] != float64(2) {
		t.Fatalf("count: want=2 got=%v", body["count"])
	}
}

func TestEventLeaderboardRejectsBadUUID(t *testing.T) {
	fx := newTestRouter(t)
	rec := doRequest(fx, http.MethodGet, "/api/leaderboard/event/not-a-uuid", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false || body["code"] != "validation_error" {
		t.Fatalf("error envelope: got %v", body)
	}
}

func TestParticipantScoreRequiresAuth(t *testing.T) {
	fx := newTestRouter(t)
	path := "/api/leaderboard/event/" + uuid.New().String() + "/user/" + uuid.New().String()

	rec := doRequest(fx, http.MethodGet, path, "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: want=401 got=%d", rec.Code)
	}

	fx.board.entry = &types.ScoreEntry{ID: uuid.New(), UserName: "Alice", Score: 80, Rank: 1}
	rec = doRequest(fx, http.MethodGet, path, tokenFor(t, ""), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("participant token: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestUpdateScoreRoleGate(t *testing.T) {
	fx := newTestRouter(t)
	path := "/api/leaderboard/event/" + uuid.New().String() + "/user/" + uuid.New().String()
	body := `{"points": 50, "userName": "Alice"}`

	rec := doRequest(fx, http.MethodPut, path, tokenFor(t, requestdata.RoleParticipant), body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("participant: want=403 got=%d", rec.Code)
	}
	if envelope := decodeBody(t, rec); envelope["code"] != "forbidden" {
		t.Fatalf("forbidden code: got %v", envelope["code"])
	}

	for _, role := range []string{requestdata.RoleOrganizer, requestdata.RoleAdmin} {
		rec = doRequest(fx, http.MethodPut, path, tokenFor(t, role), body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: want=200 got=%d body=%s", role, rec.Code, rec.Body.String())
		}
		envelope := decodeBody(t, rec)
		if envelope["message"] != "Score updated successfully" {
			t.Fatalf("message: got %v", envelope["message"])
		}
	}

	if fx.scores.lastInput.Points == nil || *fx.scores.lastInput.Points != 50 {
		t.Fatalf("points not forwarded: %+v", fx.scores.lastInput)
	}
	if fx.scores.lastInput.UserName != "Alice" {
		t.Fatalf("userName not forwarded: %+v", fx.scores.lastInput)
	}
}

func TestUpdateScoreRejectsExpiredToken(t *testing.T) {
	fx := newTestRouter(t)
	path := "/api/leaderboard/event/" + uuid.New().String() + "/user/" + uuid.New().String()

	claims := jwt.MapClaims{
		"sub":  uuid.New().String(),
		"role": requestdata.RoleAdmin,
		"exp":  time.Now().Add(-time.Hour).Unix(),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	rec := doRequest(fx, http.MethodPut, path, expired, `{"points": 1, "userName": "x"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token: want=401 got=%d", rec.Code)
	}
}

func TestTopAndCollegesArePublic(t *testing.T) {
	fx := newTestRouter(t)
	fx.aggs.performers = []*types.TopPerformer{{UserID: uuid.New(), UserName: "Alice", TotalScore: 120}}
	fx.aggs.standings = []*types.CollegeStanding{{College: "MIT", TotalScore: 150}}

	for _, path := range []string{"/api/leaderboard/top", "/api/leaderboard/colleges"} {
		rec := doRequest(fx, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: want=200 got=%d", path, rec.Code)
		}
		body := decodeBody(t, rec)
		if body["count"] != float64(1) {
			t.Fatalf("%s count: want=1 got=%v", path, body["count"])
		}
	}
}

func TestRealtimeJoinRequiresAuth(t *testing.T) {
	fx := newTestRouter(t)
	body := `{"eventId": "` + uuid.New().String() + `"}`

	rec := doRequest(fx, http.MethodPost, "/realtime/join", "", body)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: want=401 got=%d", rec.Code)
	}

	// Authenticated but without an open stream: join has no client to bind.
	rec = doRequest(fx, http.MethodPost, "/realtime/join", tokenFor(t, ""), body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("join without stream: want=409 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if envelope := decodeBody(t, rec); envelope["code"] != "conflict" {
		t.Fatalf("conflict code: got %v", envelope["code"])
	}
}

func TestSplitOrigins(t *testing.T) {
	got := SplitOrigins(" http://a.example , ,http://b.example")
	if len(got) != 2 || got[0] != "http://a.example" || got[1] != "http://b.example" {
		t.Fatalf("SplitOrigins: got %v", got)
	}
}
