package service

import (
	"context"
	"dontpanic_backend/internal/config"
	"dontpanic_backend/internal/model"
	"dontpanic_backend/internal/repository"
	"dontpanic_backend/internal/util"
	"dontpanic_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserService 讲师侧的用户管理
type UserService struct {
	DB        *gorm.DB
	UserRepo  *repository.UserRepository
	Auth      *AuthService
	Scores    *ScoreService
	Sessions  *SessionService
	Scenarios *ScenarioService
}

func NewUserService(db *gorm.DB, userRepo *repository.UserRepository, auth *AuthService, scores *ScoreService,
	sessions *SessionService, scenarios *ScenarioService) *UserService {
	return &UserService{
		DB:        db,
		UserRepo:  userRepo,
		Auth:      auth,
		Scores:    scores,
		Sessions:  sessions,
		Scenarios: scenarios,
	}
}

// TraineeRow 学员列表中的一行
type TraineeRow struct {
	model.User
	CompletedSessions int64   `json:"completedSessions"`
	AverageScore      float64 `json:"averageScore"`
}

func (s *UserService) ListTrainees(ctx context.Context, actor *model.User) ([]TraineeRow, error) {
	if err := RequireRole(actor, "user.list", model.Instructor); err != nil {
		return nil, err
	}
	users, err := s.UserRepo.ListByRole(ctx, model.Trainee)
	if err != nil {
		return nil, err
	}

	rows := make([]TraineeRow, 0, len(users))
	for _, u := range users {
		completed, err := s.Scores.UserCompletionCount(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		avg, err := s.Scores.UserAverage(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, TraineeRow{User: u, CompletedSessions: completed, AverageScore: avg})
	}
	return rows, nil
}

type UserDetail struct {
	User     *model.User             `json:"user"`
	Summary  *UserSummary            `json:"summary"`
	Sessions []model.TrainingSession `json:"sessions"`
}

func (s *UserService) Detail(ctx context.Context, actor *model.User, userID uint) (*UserDetail, error) {
	if err := RequireRole(actor, "user.view", model.Instructor); err != nil {
		return nil, err
	}
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary, err := s.Scores.UserSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.Sessions.ListForUser(ctx, actor, userID, util.DefaultPageLimit)
	if err != nil {
		return nil, err
	}
	return &UserDetail{User: user, Summary: summary, Sessions: sessions}, nil
}

// SetActive 启用或停用账号，讲师不能停用自己
func (s *UserService) SetActive(ctx context.Context, actor *model.User, userID uint, active bool) (*model.User, error) {
	if err := RequireRole(actor, "user.set_active", model.Instructor); err != nil {
		return nil, err
	}
	if actor.ID == userID && !active {
		return nil, util.Validation("instructors cannot deactivate themselves")
	}
	if err := s.UserRepo.SetActive(ctx, userID, active); err != nil {
		return nil, err
	}
	logger.Log.Info("User active flag changed",
		zap.Uint("userId", userID),
		zap.Bool("active", active),
		zap.Uint("changedBy", actor.ID),
	)
	return s.UserRepo.FindByID(ctx, userID)
}

// Delete 删除用户及其全部会话，讲师不能删除自己
func (s *UserService) Delete(ctx context.Context, actor *model.User, userID uint) error {
	if err := RequireRole(actor, "user.delete", model.Instructor); err != nil {
		return err
	}
	if actor.ID == userID {
		return util.Validation("instructors cannot delete themselves")
	}

	// 删除会话后重算受影响场景的平均分，与删除在同一事务内
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scenarios := s.Scenarios.WithTx(tx)
		scenarioIDs, err := scenarios.SessionRepo.ScenarioIDsForUser(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.UserRepo.WithTx(tx).Delete(ctx, userID); err != nil {
			return err
		}
		for _, id := range scenarioIDs {
			if _, err := scenarios.RecomputeAverage(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.Scores != nil {
		s.Scores.Cache.InvalidateUser(ctx, userID)
	}
	logger.Log.Info("User deleted", zap.Uint("userId", userID), zap.Uint("deletedBy", actor.ID))
	return nil
}

// EnsureDefaultInstructor 没有任何讲师时按种子配置创建一个
func (s *UserService) EnsureDefaultInstructor(ctx context.Context, seed config.SeedConfig) (*model.User, error) {
	if seed.InstructorUsername == "" || seed.InstructorPassword == "" {
		return nil, nil
	}
	count, err := s.UserRepo.CountByRole(ctx, model.Instructor)
	if err != nil || count > 0 {
		return nil, err
	}

	email := seed.InstructorEmail
	if email == "" {
		email = seed.InstructorUsername + "@dontpanic.local"
	}
	user, err := s.Auth.createUser(ctx, seed.InstructorUsername, email, seed.InstructorPassword, model.Instructor)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Default instructor created", zap.String("username", user.Username))
	return user, nil
}

// CreateInstructor 供运维脚本使用，不经过 HTTP 注册流程
func (s *UserService) CreateInstructor(ctx context.Context, username, email, password string) (*model.User, error) {
	if len(password) < minPasswordLen {
		return nil, util.Validation("password must be at least %d characters", minPasswordLen)
	}
	return s.Auth.createUser(ctx, username, email, password, model.Instructor)
}
