package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"dontpanic_backend/internal/config"
	"dontpanic_backend/internal/model"
	"dontpanic_backend/internal/repository"
	"dontpanic_backend/internal/testutil"

	"gorm.io/gorm"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingCache 记录失效调用，其余行为同内存缓存
type recordingCache struct {
	mu          sync.Mutex
	summaries   map[uint]*UserSummary
	invalidated []uint
}

func newRecordingCache() *recordingCache {
	return &recordingCache{summaries: map[uint]*UserSummary{}}
}

func (c *recordingCache) GetUserSummary(_ context.Context, userID uint) (*UserSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.summaries[userID]
	return s, ok
}

func (c *recordingCache) SetUserSummary(_ context.Context, userID uint, s *UserSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries[userID] = s
}

func (c *recordingCache) InvalidateUser(_ context.Context, userID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.summaries, userID)
	c.invalidated = append(c.invalidated, userID)
}

type testEnv struct {
	db        *gorm.DB
	clock     *fakeClock
	cache     *recordingCache
	users     *repository.UserRepository
	sessions  *repository.SessionRepository
	scenRepo  *repository.ScenarioRepository
	scenarios *ScenarioService
	session   *SessionService
	scores    *ScoreService
	auth      *AuthService
	userSvc   *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	cache := newRecordingCache()

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	scenRepo := repository.NewScenarioRepository(db)
	storage := &StorageService{Provider: &LocalStorageProvider{Root: t.TempDir()}}

	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}}

	env := &testEnv{
		db:       db,
		clock:    clock,
		cache:    cache,
		users:    users,
		sessions: sessions,
		scenRepo: scenRepo,
	}
	env.scenarios = NewScenarioService(db, scenRepo, sessions, storage, cache)
	env.scenarios.now = clock.Now
	env.session = NewSessionService(db, sessions, scenRepo, env.scenarios, cache)
	env.session.now = clock.Now
	env.scores = NewScoreService(sessions, scenRepo, users, cache)
	env.scores.now = clock.Now
	env.auth = NewAuthService(users, cfg)
	env.auth.now = clock.Now
	env.userSvc = NewUserService(db, users, env.auth, env.scores, env.session, env.scenarios)
	return env
}

func (e *testEnv) trainee(t *testing.T, name string) *model.User {
	t.Helper()
	return testutil.SeedUser(t, context.Background(), e.db, name, model.Trainee)
}

func (e *testEnv) instructor(t *testing.T, name string) *model.User {
	t.Helper()
	return testutil.SeedUser(t, context.Background(), e.db, name, model.Instructor)
}

func (e *testEnv) scenario(t *testing.T, author *model.User) *model.Scenario {
	t.Helper()
	return testutil.SeedScenario(t, context.Background(), e.db, author.ID, "Ransomware on file server")
}
