package middleware

import (
	"context"
	"dontpanic_backend/internal/config"
	"dontpanic_backend/internal/model"
	"dontpanic_backend/internal/service"
	"dontpanic_backend/internal/util"
	"dontpanic_backend/pkg/logger"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const currentUserKey = "currentUser"

// UserLoader 按 ID 读取用户，停用状态以数据库为准
type UserLoader interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

func AuthMiddleware(cfg *config.Config, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("JWT rejected", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, util.ErrNotFound) {
				util.Unauthorized(c)
			} else {
				util.LogInternalError(c, err)
			}
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// RoleMiddleware 路由级的角色检查，判定逻辑与服务层的 RequireRole 相同
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}
		if err := service.RequireRole(user, c.FullPath(), roles...); err != nil {
			util.HandleError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
