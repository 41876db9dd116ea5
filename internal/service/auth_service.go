package service

import (
	"context"
	"dontpanic_backend/internal/config"
	"dontpanic_backend/internal/model"
	"dontpanic_backend/internal/repository"
	"dontpanic_backend/internal/util"
	"dontpanic_backend/pkg/logger"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 80
	minPasswordLen = 6
)

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
	now      func() time.Time
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
		now:      time.Now,
	}
}

// Register 公开注册只创建学员账号，讲师账号由脚本或种子配置创建
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return nil, util.Validation("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	if !strings.Contains(email, "@") || len(email) > 120 {
		return nil, util.Validation("invalid email address")
	}
	if len(password) < minPasswordLen {
		return nil, util.Validation("password must be at least %d characters", minPasswordLen)
	}

	return s.createUser(ctx, username, email, password, model.Trainee)
}

func (s *AuthService) createUser(ctx context.Context, username, email, password string, role model.UserRole) (*model.User, error) {
	if !role.Valid() {
		return nil, util.Validation("invalid role %q", role)
	}
	if exists, err := s.UserRepo.ExistsByUsername(ctx, username); err != nil {
		return nil, err
	} else if exists {
		return nil, util.ErrUsernameTaken
	}
	if exists, err := s.UserRepo.ExistsByEmail(ctx, email); err != nil {
		return nil, err
	} else if exists {
		return nil, util.ErrEmailRegistered
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: username,
		Email:    email,
		Password: string(hashedPassword),
		Role:     role,
		IsActive: true,
	}
	// 并发注册时唯一索引兜底
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	logger.Log.Info("User registered", zap.Uint("userId", user.ID), zap.String("role", string(role)))
	return user, nil
}

// Login 支持用户名或邮箱登录，返回 JWT
func (s *AuthService) Login(ctx context.Context, identifier, password string) (string, *model.User, error) {
	identifier = strings.TrimSpace(identifier)

	var (
		user *model.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.UserRepo.FindByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.UserRepo.FindByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return "", nil, util.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}
	if !user.IsActive {
		logger.Log.Warn("Login rejected for disabled account", zap.Uint("userId", user.ID))
		return "", nil, util.ErrAccountDisabled
	}

	now := s.now()
	if err := s.UserRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return "", nil, err
	}
	user.LastLogin = &now

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// CurrentUser 按令牌中的用户 ID 重新读取，停用状态以数据库为准
func (s *AuthService) CurrentUser(ctx context.Context, claims *util.Claims) (*model.User, error) {
	if claims == nil {
		return nil, util.AccessDenied("missing credentials")
	}
	return s.UserRepo.FindByID(ctx, claims.UserID)
}
