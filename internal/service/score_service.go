package service

import (
	"context"
	"dontpanic_backend/internal/model"
	"dontpanic_backend/internal/repository"
	"dontpanic_backend/internal/util"
	"time"
)

// ScoreService 只读的统计汇总，不修改任何会话
type ScoreService struct {
	SessionRepo  *repository.SessionRepository
	ScenarioRepo *repository.ScenarioRepository
	UserRepo     *repository.UserRepository
	Cache        StatsCache
	now          func() time.Time
}

func NewScoreService(sessionRepo *repository.SessionRepository, scenarioRepo *repository.ScenarioRepository,
	userRepo *repository.UserRepository, cache StatsCache) *ScoreService {
	if cache == nil {
		cache = noopStatsCache{}
	}
	return &ScoreService{
		SessionRepo:  sessionRepo,
		ScenarioRepo: scenarioRepo,
		UserRepo:     userRepo,
		Cache:        cache,
		now:          time.Now,
	}
}

type ScenarioStats struct {
	ScenarioID uint    `json:"scenarioId"`
	Attempts   int64   `json:"attempts"`
	AvgScore   float64 `json:"avgScore"`
}

type UserSummary struct {
	UserID             uint                        `json:"userId"`
	TotalSessions      int64                       `json:"totalSessions"`
	CompletedSessions  int64                       `json:"completedSessions"`
	InProgressSessions int64                       `json:"inProgressSessions"`
	AverageScore       float64                     `json:"averageScore"`
	CategoryAverages   repository.CategoryAverages `json:"categoryAverages"`
	GeneratedAt        time.Time                   `json:"generatedAt"`
}

// UserAverage 已完成会话的平均分，保留两位小数
func (s *ScoreService) UserAverage(ctx context.Context, userID uint) (float64, error) {
	avg, err := s.SessionRepo.AverageCompletedScore(ctx, repository.SessionFilter{UserID: userID})
	if err != nil {
		return 0, err
	}
	return util.Round2(avg), nil
}

func (s *ScoreService) UserCompletionCount(ctx context.Context, userID uint) (int64, error) {
	return s.SessionRepo.Count(ctx, repository.SessionFilter{UserID: userID, Status: model.StatusCompleted})
}

// ScenarioCompletionRate completed / total * 100，没有会话时为 0
func (s *ScoreService) ScenarioCompletionRate(ctx context.Context, scenarioID uint) (float64, error) {
	total, err := s.SessionRepo.Count(ctx, repository.SessionFilter{ScenarioID: scenarioID})
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	completed, err := s.SessionRepo.Count(ctx, repository.SessionFilter{ScenarioID: scenarioID, Status: model.StatusCompleted})
	if err != nil {
		return 0, err
	}
	return util.Round2(float64(completed) / float64(total) * 100), nil
}

func (s *ScoreService) ScenarioStats(ctx context.Context, scenarioID uint) (*ScenarioStats, error) {
	attempts, err := s.SessionRepo.Count(ctx, repository.SessionFilter{ScenarioID: scenarioID, Status: model.StatusCompleted})
	if err != nil {
		return nil, err
	}
	avg, err := s.SessionRepo.AverageCompletedScore(ctx, repository.SessionFilter{ScenarioID: scenarioID})
	if err != nil {
		return nil, err
	}
	return &ScenarioStats{ScenarioID: scenarioID, Attempts: attempts, AvgScore: util.Round2(avg)}, nil
}

// UserSummary 优先读缓存；会话状态变化、删除场景或用户时失效
func (s *ScoreService) UserSummary(ctx context.Context, userID uint) (*UserSummary, error) {
	if cached, ok := s.Cache.GetUserSummary(ctx, userID); ok {
		return cached, nil
	}

	total, err := s.SessionRepo.Count(ctx, repository.SessionFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	completed, err := s.UserCompletionCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	inProgress, err := s.SessionRepo.Count(ctx, repository.SessionFilter{UserID: userID, Status: model.StatusInProgress})
	if err != nil {
		return nil, err
	}
	avg, err := s.UserAverage(ctx, userID)
	if err != nil {
		return nil, err
	}
	cats, err := s.SessionRepo.CategoryAveragesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	cats.Detection = util.Round2(cats.Detection)
	cats.Containment = util.Round2(cats.Containment)
	cats.Eradication = util.Round2(cats.Eradication)
	cats.Recovery = util.Round2(cats.Recovery)
	cats.Communication = util.Round2(cats.Communication)

	summary := &UserSummary{
		UserID:             userID,
		TotalSessions:      total,
		CompletedSessions:  completed,
		InProgressSessions: inProgress,
		AverageScore:       avg,
		CategoryAverages:   cats,
		GeneratedAt:        s.now(),
	}
	s.Cache.SetUserSummary(ctx, userID, summary)
	return summary, nil
}

type ScenarioReport struct {
	ScenarioStats
	Title          string  `json:"title"`
	IncidentType   string  `json:"incidentType"`
	TimesPlayed    int     `json:"timesPlayed"`
	CompletionRate float64 `json:"completionRate"`
}

// Report 每个场景的统计，供讲师报表使用
func (s *ScoreService) Report(ctx context.Context, actor *model.User) ([]ScenarioReport, error) {
	if err := RequireRole(actor, "report.view", model.Instructor); err != nil {
		return nil, err
	}

	scenarios, err := s.ScenarioRepo.List(ctx, repository.ScenarioFilter{})
	if err != nil {
		return nil, err
	}
	aggs, err := s.SessionRepo.CompletedByScenario(ctx)
	if err != nil {
		return nil, err
	}
	byScenario := make(map[uint]repository.ScenarioAggregate, len(aggs))
	for _, a := range aggs {
		byScenario[a.ScenarioID] = a
	}

	reports := make([]ScenarioReport, 0, len(scenarios))
	for _, sc := range scenarios {
		rate, err := s.ScenarioCompletionRate(ctx, sc.ID)
		if err != nil {
			return nil, err
		}
		agg := byScenario[sc.ID]
		reports = append(reports, ScenarioReport{
			ScenarioStats: ScenarioStats{
				ScenarioID: sc.ID,
				Attempts:   agg.Attempts,
				AvgScore:   util.Round2(agg.AvgScore),
			},
			Title:          sc.Title,
			IncidentType:   sc.IncidentType,
			TimesPlayed:    sc.TimesPlayed,
			CompletionRate: rate,
		})
	}
	return reports, nil
}

type Dashboard struct {
	Trainees          int64                   `json:"trainees"`
	Scenarios         int64                   `json:"scenarios"`
	TotalSessions     int64                   `json:"totalSessions"`
	CompletedSessions int64                   `json:"completedSessions"`
	CompletionRate    float64                 `json:"completionRate"`
	RecentSessions    []model.TrainingSession `json:"recentSessions"`
}

func (s *ScoreService) Dashboard(ctx context.Context, actor *model.User) (*Dashboard, error) {
	if err := RequireRole(actor, "dashboard.view", model.Instructor); err != nil {
		return nil, err
	}

	var (
		d   Dashboard
		err error
	)
	if d.Trainees, err = s.UserRepo.CountByRole(ctx, model.Trainee); err != nil {
		return nil, err
	}
	if d.Scenarios, err = s.ScenarioRepo.Count(ctx); err != nil {
		return nil, err
	}
	if d.TotalSessions, err = s.SessionRepo.Count(ctx, repository.SessionFilter{}); err != nil {
		return nil, err
	}
	if d.CompletedSessions, err = s.SessionRepo.Count(ctx, repository.SessionFilter{Status: model.StatusCompleted}); err != nil {
		return nil, err
	}
	if d.TotalSessions > 0 {
		d.CompletionRate = util.Round2(float64(d.CompletedSessions) / float64(d.TotalSessions) * 100)
	}
	if d.RecentSessions, err = s.SessionRepo.List(ctx, repository.SessionFilter{Limit: util.RecentActivity}); err != nil {
		return nil, err
	}
	return &d, nil
}
