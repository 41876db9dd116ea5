package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dontpanic_backend/internal/config"
	"dontpanic_backend/internal/middleware"
	"dontpanic_backend/internal/model"
	"dontpanic_backend/internal/repository"
	"dontpanic_backend/internal/service"
	"dontpanic_backend/internal/testutil"
	"dontpanic_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	db     *gorm.DB
	cfg    *config.Config
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}}

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	scenarios := repository.NewScenarioRepository(db)
	storage := &service.StorageService{Provider: &service.LocalStorageProvider{Root: t.TempDir()}}

	scenarioSvc := service.NewScenarioService(db, scenarios, sessions, storage, nil)
	sessionSvc := service.NewSessionService(db, sessions, scenarios, scenarioSvc, nil)
	scoreSvc := service.NewScoreService(sessions, scenarios, users, nil)

	scenarioCtl := NewScenarioController(scenarioSvc, sessionSvc)
	sessionCtl := NewSessionController(sessionSvc)
	statsCtl := NewStatsController(scoreSvc)

	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg, users))
	{
		api.POST("/scenarios/:id/start", scenarioCtl.StartScenario)
		api.GET("/sessions/:id", sessionCtl.GetSession)
		api.POST("/sessions/:id/decisions", sessionCtl.RecordDecision)
		api.POST("/sessions/:id/complete", sessionCtl.CompleteSession)
		api.POST("/sessions/:id/abandon", sessionCtl.AbandonSession)
		api.GET("/me/stats", statsCtl.MyStats)

		instructor := api.Group("/instructor")
		instructor.Use(middleware.RoleMiddleware(model.Instructor))
		instructor.GET("/dashboard", statsCtl.Dashboard)
	}

	return &testServer{db: db, cfg: cfg, router: r}
}

func (s *testServer) token(t *testing.T, u *model.User) string {
	t.Helper()
	tok, err := util.GenerateJWT(u, s.cfg.JWT.Secret, s.cfg.JWT.ExpireTime)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: decode response %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, resp
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	srv := newTestServer(t)
	code, _ := srv.do(t, http.MethodGet, "/api/me/stats", "", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", code)
	}

	code, _ = srv.do(t, http.MethodGet, "/api/me/stats", "not-a-jwt", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("status with bad token = %d, want 401", code)
	}
}

func TestTraineeCannotOpenDashboard(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	trainee := testutil.SeedUser(t, ctx, srv.db, "erin", model.Trainee)
	instructor := testutil.SeedUser(t, ctx, srv.db, "ivan", model.Instructor)

	if code, _ := srv.do(t, http.MethodGet, "/api/instructor/dashboard", srv.token(t, trainee), nil); code != http.StatusForbidden {
		t.Fatalf("trainee status = %d, want 403", code)
	}
	if code, _ := srv.do(t, http.MethodGet, "/api/instructor/dashboard", srv.token(t, instructor), nil); code != http.StatusOK {
		t.Fatalf("instructor status = %d, want 200", code)
	}
}

func TestDeactivatedUserTokenRejected(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	instructor := testutil.SeedUser(t, ctx, srv.db, "ivan", model.Instructor)
	tok := srv.token(t, instructor)

	if err := srv.db.Model(&model.User{}).Where("id = ?", instructor.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if code, _ := srv.do(t, http.MethodGet, "/api/instructor/dashboard", tok, nil); code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", code)
	}
}

func TestStartTwiceReturnsExistingSession(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	trainee := testutil.SeedUser(t, ctx, srv.db, "erin", model.Trainee)
	author := testutil.SeedUser(t, ctx, srv.db, "ivan", model.Instructor)
	scenario := testutil.SeedScenario(t, ctx, srv.db, author.ID, "Phishing wave")
	tok := srv.token(t, trainee)
	path := fmt.Sprintf("/api/scenarios/%d/start", scenario.ID)

	code, resp := srv.do(t, http.MethodPost, path, tok, nil)
	if code != http.StatusCreated {
		t.Fatalf("first start status = %d (%s), want 201", code, resp.Message)
	}
	var started model.TrainingSession
	if err := json.Unmarshal(resp.Data, &started); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if started.Status != model.StatusInProgress {
		t.Fatalf("status = %q, want in_progress", started.Status)
	}

	code, resp = srv.do(t, http.MethodPost, path, tok, nil)
	if code != http.StatusConflict {
		t.Fatalf("second start status = %d, want 409", code)
	}
	var conflict struct {
		SessionID uint `json:"sessionId"`
	}
	if err := json.Unmarshal(resp.Data, &conflict); err != nil {
		t.Fatalf("decode conflict: %v", err)
	}
	if conflict.SessionID != started.ID {
		t.Fatalf("conflict sessionId = %d, want %d", conflict.SessionID, started.ID)
	}
}

func TestCompleteWithoutScoreUsesDecisions(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	trainee := testutil.SeedUser(t, ctx, srv.db, "erin", model.Trainee)
	author := testutil.SeedUser(t, ctx, srv.db, "ivan", model.Instructor)
	scenario := testutil.SeedScenario(t, ctx, srv.db, author.ID, "Phishing wave")
	session := testutil.SeedSession(t, ctx, srv.db, trainee.ID, scenario.ID, model.StatusInProgress, 0)
	tok := srv.token(t, trainee)

	for _, d := range []service.DecisionInput{{Stage: 0, Option: 0}, {Stage: 1, Option: 0}} {
		code, resp := srv.do(t, http.MethodPost, fmt.Sprintf("/api/sessions/%d/decisions", session.ID), tok, d)
		if code != http.StatusCreated {
			t.Fatalf("decision status = %d (%s), want 201", code, resp.Message)
		}
	}

	completePath := fmt.Sprintf("/api/sessions/%d/complete", session.ID)
	code, resp := srv.do(t, http.MethodPost, completePath, tok, nil)
	if code != http.StatusOK {
		t.Fatalf("complete status = %d (%s), want 200", code, resp.Message)
	}
	var done model.TrainingSession
	if err := json.Unmarshal(resp.Data, &done); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if done.Score != 100 || done.Outcome != model.OutcomeSuccess {
		t.Fatalf("score/outcome = %d/%q, want 100/success", done.Score, done.Outcome)
	}
	if done.DetectionScore != 20 || done.CommunicationScore != 30 {
		t.Fatalf("category scores = %d/%d, want 20/30", done.DetectionScore, done.CommunicationScore)
	}

	// 第二次完成必须失败
	if code, _ := srv.do(t, http.MethodPost, completePath, tok, map[string]int{"score": 50}); code != http.StatusConflict {
		t.Fatalf("second complete status = %d, want 409", code)
	}
	if code, _ := srv.do(t, http.MethodPost, fmt.Sprintf("/api/sessions/%d/abandon", session.ID), tok, nil); code != http.StatusConflict {
		t.Fatalf("abandon after complete status = %d, want 409", code)
	}
}

func TestCompleteRejectsOutOfRangeScore(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	trainee := testutil.SeedUser(t, ctx, srv.db, "erin", model.Trainee)
	author := testutil.SeedUser(t, ctx, srv.db, "ivan", model.Instructor)
	scenario := testutil.SeedScenario(t, ctx, srv.db, author.ID, "Phishing wave")
	session := testutil.SeedSession(t, ctx, srv.db, trainee.ID, scenario.ID, model.StatusInProgress, 0)

	code, _ := srv.do(t, http.MethodPost, fmt.Sprintf("/api/sessions/%d/complete", session.ID), srv.token(t, trainee), map[string]int{"score": 101})
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
}

func TestOtherTraineeCannotReadSession(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, ctx, srv.db, "erin", model.Trainee)
	other := testutil.SeedUser(t, ctx, srv.db, "mallory", model.Trainee)
	author := testutil.SeedUser(t, ctx, srv.db, "ivan", model.Instructor)
	scenario := testutil.SeedScenario(t, ctx, srv.db, author.ID, "Phishing wave")
	session := testutil.SeedSession(t, ctx, srv.db, owner.ID, scenario.ID, model.StatusInProgress, 0)
	path := fmt.Sprintf("/api/sessions/%d", session.ID)

	if code, _ := srv.do(t, http.MethodGet, path, srv.token(t, other), nil); code != http.StatusForbidden {
		t.Fatalf("other trainee status = %d, want 403", code)
	}
	if code, _ := srv.do(t, http.MethodGet, path, srv.token(t, author), nil); code != http.StatusOK {
		t.Fatalf("instructor status = %d, want 200", code)
	}
	if code, _ := srv.do(t, http.MethodGet, "/api/sessions/9999", srv.token(t, owner), nil); code != http.StatusNotFound {
		t.Fatalf("missing session status = %d, want 404", code)
	}
}
