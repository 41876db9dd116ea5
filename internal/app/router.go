package app

import (
	"dontpanic_backend/internal/config"
	"dontpanic_backend/internal/middleware"
	"dontpanic_backend/internal/model"
	"dontpanic_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg, repos.user))
	{
		// 学员/通用 授权接口
		a.registerTraineeRoutes(authGroup, c)

		// 3. 讲师相关接口
		a.registerInstructorRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerTraineeRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.GetProfile)
	group.GET("/me/stats", c.stats.MyStats)

	scenarios := group.Group("/scenarios")
	{
		scenarios.GET("", c.scenario.ListScenarios)
		scenarios.GET("/:id", c.scenario.GetScenario)
		scenarios.POST("/:id/start", c.scenario.StartScenario)
	}

	sessions := group.Group("/sessions")
	{
		sessions.GET("", c.session.ListSessions)
		sessions.GET("/:id", c.session.GetSession)
		sessions.GET("/:id/preview", c.session.PreviewSession)
		sessions.POST("/:id/decisions", c.session.RecordDecision)
		sessions.POST("/:id/complete", c.session.CompleteSession)
		sessions.POST("/:id/abandon", c.session.AbandonSession)
	}
}

func (a *App) registerInstructorRoutes(group *gin.RouterGroup, c *controllers) {
	instructor := group.Group("/instructor")
	instructor.Use(middleware.RoleMiddleware(model.Instructor))
	{
		instructor.GET("/dashboard", c.stats.Dashboard)
		instructor.GET("/reports", c.stats.Reports)

		instructor.POST("/scenarios", c.scenario.CreateScenario)
		instructor.POST("/scenarios/import", c.scenario.ImportScenario)
		instructor.PUT("/scenarios/:id", c.scenario.UpdateScenario)
		instructor.DELETE("/scenarios/:id", c.scenario.DeleteScenario)
		instructor.POST("/scenarios/:id/export", c.scenario.ExportScenario)

		instructor.GET("/users", c.user.ListUsers)
		instructor.GET("/users/:id", c.user.GetUser)
		instructor.DELETE("/users/:id", c.user.DeleteUser)
		instructor.PATCH("/users/:id/active", c.user.SetUserActive)
	}
}
