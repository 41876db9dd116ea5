package controller

import (
	"dontpanic_backend/internal/middleware"
	"dontpanic_backend/internal/service"
	"dontpanic_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StatsController struct {
	ScoreService *service.ScoreService
}

func NewStatsController(scoreService *service.ScoreService) *StatsController {
	return &StatsController{ScoreService: scoreService}
}

// MyStats godoc
// @Summary 个人统计
// @Tags 统计
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.UserSummary}
// @Router /api/me/stats [get]
func (c *StatsController) MyStats(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)
	summary, err := c.ScoreService.UserSummary(ctx.Request.Context(), user.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// Dashboard godoc
// @Summary 讲师仪表盘
// @Tags 讲师
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.Dashboard}
// @Router /api/instructor/dashboard [get]
func (c *StatsController) Dashboard(ctx *gin.Context) {
	d, err := c.ScoreService.Dashboard(ctx.Request.Context(), middleware.CurrentUser(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, d)
}

// Reports godoc
// @Summary 场景报表
// @Tags 讲师
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.ScenarioReport}
// @Router /api/instructor/reports [get]
func (c *StatsController) Reports(ctx *gin.Context) {
	reports, err := c.ScoreService.Report(ctx.Request.Context(), middleware.CurrentUser(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, reports)
}
