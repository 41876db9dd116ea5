package service

import (
	"dontpanic_backend/internal/model"
	"dontpanic_backend/internal/util"
	"dontpanic_backend/pkg/logger"
	"dontpanic_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// RequireRole 显式的权限守卫，在每个操作开头调用；停用账号一律拒绝
func RequireRole(user *model.User, op string, roles ...model.UserRole) error {
	if user == nil {
		return deny(nil, op, "anonymous")
	}
	if !user.IsActive {
		return deny(user, op, "account disabled")
	}
	for _, role := range roles {
		if user.Role == role {
			return nil
		}
	}
	return deny(user, op, "role "+string(user.Role)+" not allowed")
}

// RequireOwner 会话只能由其所属用户操作
func RequireOwner(user *model.User, op string, session *model.TrainingSession) error {
	if user == nil {
		return deny(nil, op, "anonymous")
	}
	if !user.IsActive {
		return deny(user, op, "account disabled")
	}
	if session.UserID != user.ID {
		return deny(user, op, "not the session owner")
	}
	return nil
}

// RequireOwnerOrInstructor 只读访问：本人或讲师
func RequireOwnerOrInstructor(user *model.User, op string, session *model.TrainingSession) error {
	if user != nil && user.IsActive && user.IsInstructor() {
		return nil
	}
	return RequireOwner(user, op, session)
}

func deny(user *model.User, op, reason string) error {
	var userID uint
	if user != nil {
		userID = user.ID
	}
	logger.Log.Warn("Access denied",
		zap.Uint("userId", userID),
		zap.String("operation", op),
		zap.String("reason", reason),
	)
	monitoring.AccessDenials.WithLabelValues(op).Inc()
	return util.AccessDenied("%s: %s", op, reason)
}
