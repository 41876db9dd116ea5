package service

import (
	"context"
	"dontpanic_backend/internal/model"
	"dontpanic_backend/internal/repository"
	"dontpanic_backend/internal/util"
	"dontpanic_backend/pkg/logger"
	"dontpanic_backend/pkg/monitoring"
	"dontpanic_backend/pkg/tracing"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 轨迹比较交换失败后的重试次数
const traceRetries = 3

type DecisionInput struct {
	Stage  int    `json:"stage"`
	Option int    `json:"option"`
	Note   string `json:"note"`
}

type SessionService struct {
	DB           *gorm.DB
	SessionRepo  *repository.SessionRepository
	ScenarioRepo *repository.ScenarioRepository
	Scenarios    *ScenarioService
	Cache        StatsCache
	now          func() time.Time
}

func NewSessionService(db *gorm.DB, sessionRepo *repository.SessionRepository,
	scenarioRepo *repository.ScenarioRepository, scenarios *ScenarioService, cache StatsCache) *SessionService {
	if cache == nil {
		cache = noopStatsCache{}
	}
	return &SessionService{
		DB:           db,
		SessionRepo:  sessionRepo,
		ScenarioRepo: scenarioRepo,
		Scenarios:    scenarios,
		Cache:        cache,
		now:          time.Now,
	}
}

// Start 创建进行中的会话。同一用户同一场景已有进行中的会话时返回 *util.ConflictError，
// 由 active_key 唯一索引保证并发开始时只有一个成功
func (s *SessionService) Start(ctx context.Context, actor *model.User, scenarioID uint) (_ *model.TrainingSession, err error) {
	ctx, span := tracing.Start(ctx, "SessionService.Start")
	defer func() { tracing.End(span, err) }()

	if err := RequireRole(actor, "session.start", model.Trainee, model.Instructor); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("user.id", int(actor.ID)), attribute.Int("scenario.id", int(scenarioID)))

	scenario, err := s.ScenarioRepo.FindByID(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	if !scenario.IsActive {
		return nil, util.Validation("scenario %d is not active", scenarioID)
	}

	key := model.ActiveKeyFor(actor.ID, scenarioID)
	session := &model.TrainingSession{
		UserID:      actor.ID,
		ScenarioID:  scenarioID,
		Status:      model.StatusInProgress,
		ActiveKey:   &key,
		StartedAt:   s.now(),
		SessionData: `{"decisions":[]}`,
	}

	if err := s.SessionRepo.Create(ctx, session); err != nil {
		if !errors.Is(err, util.ErrConflict) {
			return nil, err
		}
		conflict := &util.ConflictError{Msg: "an in-progress session already exists for this scenario"}
		if existing, ferr := s.SessionRepo.FindActive(ctx, actor.ID, scenarioID); ferr == nil {
			conflict.SessionID = existing.ID
		}
		return nil, conflict
	}

	s.Cache.InvalidateUser(ctx, actor.ID)
	monitoring.SessionTransitions.WithLabelValues("start").Inc()
	logger.Log.Info("Training session started",
		zap.Uint("sessionId", session.ID),
		zap.Uint("userId", actor.ID),
		zap.Uint("scenarioId", scenarioID),
	)
	return session, nil
}

// Resume 返回该场景下进行中的会话
func (s *SessionService) Resume(ctx context.Context, actor *model.User, scenarioID uint) (*model.TrainingSession, error) {
	if err := RequireRole(actor, "session.resume", model.Trainee, model.Instructor); err != nil {
		return nil, err
	}
	return s.SessionRepo.FindActive(ctx, actor.ID, scenarioID)
}

// RecordDecision 校验选项后追加到决策轨迹，不修改分数
func (s *SessionService) RecordDecision(ctx context.Context, actor *model.User, sessionID uint, in DecisionInput) (_ *model.Decision, err error) {
	ctx, span := tracing.Start(ctx, "SessionService.RecordDecision")
	defer func() { tracing.End(span, err) }()

	session, err := s.SessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := RequireOwner(actor, "session.decide", session); err != nil {
		return nil, err
	}
	if !session.IsInProgress() {
		return nil, util.InvalidState("session %d is %s", session.ID, session.Status)
	}

	scenario, err := s.ScenarioRepo.FindByID(ctx, session.ScenarioID)
	if err != nil {
		return nil, err
	}
	content, err := scenario.Content()
	if err != nil {
		return nil, err
	}
	stage, option, ok := content.Option(in.Stage, in.Option)
	if !ok {
		return nil, util.Validation("stage %d option %d does not exist in scenario %d", in.Stage, in.Option, scenario.ID)
	}

	decision := model.NewDecision(in.Stage, in.Option, strings.TrimSpace(in.Note), s.now())
	decision.StageID = stage.ID
	decision.Category = stage.Stage
	decision.Points = option.Points

	for attempt := 0; attempt < traceRetries; attempt++ {
		trace, err := model.ParseSessionTrace(session.SessionData)
		if err != nil {
			return nil, err
		}
		trace.Append(decision)
		next, err := trace.Encode()
		if err != nil {
			return nil, err
		}

		updated, err := s.SessionRepo.UpdateTrace(ctx, session.ID, session.SessionData, next)
		if err != nil {
			return nil, err
		}
		if updated {
			return &decision, nil
		}

		// 状态或轨迹已被并发修改，重新读取后判断
		session, err = s.SessionRepo.FindByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if !session.IsInProgress() {
			return nil, util.InvalidState("session %d is %s", session.ID, session.Status)
		}
	}
	return nil, util.ErrConflict
}

// Complete 完成会话：同一事务内条件更新状态、累加游玩次数并重算场景平均分
func (s *SessionService) Complete(ctx context.Context, actor *model.User, sessionID uint, score int, categories map[string]int) (_ *model.TrainingSession, err error) {
	ctx, span := tracing.Start(ctx, "SessionService.Complete")
	defer func() { tracing.End(span, err) }()

	session, err := s.SessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := RequireOwner(actor, "session.complete", session); err != nil {
		return nil, err
	}
	if !session.IsInProgress() {
		return nil, util.InvalidState("session %d is already %s", session.ID, session.Status)
	}
	if score < model.MinScore || score > model.MaxScore {
		return nil, util.Validation("score must be between %d and %d, got %d", model.MinScore, model.MaxScore, score)
	}
	cats, err := model.CategoryScoresFromMap(categories)
	if err != nil {
		return nil, util.Validation("%v", err)
	}

	session.Complete(s.now(), score, cats)

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		finished, err := s.SessionRepo.WithTx(tx).Finish(ctx, session)
		if err != nil {
			return err
		}
		if !finished {
			return util.InvalidState("session %d is no longer in progress", session.ID)
		}

		scenarios := s.Scenarios.WithTx(tx)
		if err := scenarios.RecordPlay(ctx, session.ScenarioID); err != nil {
			return err
		}
		_, err = scenarios.RecomputeAverage(ctx, session.ScenarioID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Cache.InvalidateUser(ctx, session.UserID)
	monitoring.SessionTransitions.WithLabelValues("complete").Inc()
	monitoring.SessionScores.WithLabelValues(string(session.Outcome)).Observe(float64(session.Score))
	logger.Log.Info("Training session completed",
		zap.Uint("sessionId", session.ID),
		zap.Uint("userId", session.UserID),
		zap.Int("score", session.Score),
		zap.String("outcome", string(session.Outcome)),
	)
	return session, nil
}

func (s *SessionService) Abandon(ctx context.Context, actor *model.User, sessionID uint) (_ *model.TrainingSession, err error) {
	ctx, span := tracing.Start(ctx, "SessionService.Abandon")
	defer func() { tracing.End(span, err) }()

	session, err := s.SessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := RequireOwner(actor, "session.abandon", session); err != nil {
		return nil, err
	}
	if !session.IsInProgress() {
		return nil, util.InvalidState("session %d is already %s", session.ID, session.Status)
	}

	ok, err := s.SessionRepo.Abandon(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.InvalidState("session %d is no longer in progress", session.ID)
	}

	s.Cache.InvalidateUser(ctx, session.UserID)
	monitoring.SessionTransitions.WithLabelValues("abandon").Inc()
	return s.SessionRepo.FindByID(ctx, session.ID)
}

func (s *SessionService) Get(ctx context.Context, actor *model.User, sessionID uint) (*model.TrainingSession, error) {
	session, err := s.SessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := RequireOwnerOrInstructor(actor, "session.view", session); err != nil {
		return nil, err
	}
	return session, nil
}

// ListForUser 按开始时间倒序；查看他人记录需要讲师权限
func (s *SessionService) ListForUser(ctx context.Context, actor *model.User, userID uint, limit int) ([]model.TrainingSession, error) {
	if actor == nil || actor.ID != userID {
		if err := RequireRole(actor, "session.list", model.Instructor); err != nil {
			return nil, err
		}
	} else if err := RequireRole(actor, "session.list", model.Trainee, model.Instructor); err != nil {
		return nil, err
	}
	return s.SessionRepo.List(ctx, repository.SessionFilter{UserID: userID, Limit: limit})
}

// Preview 按当前决策轨迹计算建议得分，不写入任何数据
func (s *SessionService) Preview(ctx context.Context, actor *model.User, sessionID uint) (*model.Evaluation, error) {
	session, err := s.Get(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	scenario, err := s.ScenarioRepo.FindByID(ctx, session.ScenarioID)
	if err != nil {
		return nil, err
	}
	content, err := scenario.Content()
	if err != nil {
		return nil, err
	}
	trace, err := model.ParseSessionTrace(session.SessionData)
	if err != nil {
		return nil, err
	}
	ev := content.Evaluate(trace.Decisions)
	return &ev, nil
}
