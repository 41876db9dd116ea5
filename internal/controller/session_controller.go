package controller

import (
	"dontpanic_backend/internal/middleware"
	"dontpanic_backend/internal/model"
	"dontpanic_backend/internal/service"
	"dontpanic_backend/internal/util"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	SessionService *service.SessionService
}

func NewSessionController(sessionService *service.SessionService) *SessionController {
	return &SessionController{SessionService: sessionService}
}

// ListSessions godoc
// @Summary 我的训练记录
// @Tags 训练
// @Produce  json
// @Security ApiKeyAuth
// @Param   limit query int false "条数" default(20)
// @Success 200 {object} util.Response{data=[]model.TrainingSession}
// @Router /api/sessions [get]
func (c *SessionController) ListSessions(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)
	sessions, err := c.SessionService.ListForUser(ctx.Request.Context(), user, user.ID, util.ParseLimit(ctx.Query("limit")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, sessions)
}

// GetSession godoc
// @Summary 训练详情
// @Description 包含解析后的决策轨迹
// @Tags 训练
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "会话ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/sessions/{id} [get]
func (c *SessionController) GetSession(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	session, err := c.SessionService.Get(ctx.Request.Context(), middleware.CurrentUser(ctx), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	trace, err := model.ParseSessionTrace(session.SessionData)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"session":         session,
		"decisions":       trace.Decisions,
		"durationMinutes": session.DurationMinutes(),
	})
}

// RecordDecision godoc
// @Summary 提交决策
// @Tags 训练
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "会话ID"
// @Param   body body service.DecisionInput true "决策"
// @Success 201 {object} util.Response{data=model.Decision}
// @Failure 409 {object} util.Response "会话已结束"
// @Router /api/sessions/{id}/decisions [post]
func (c *SessionController) RecordDecision(ctx *gin.Context) {
	var req service.DecisionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	id := util.MustParseUint(ctx.Param("id"))
	decision, err := c.SessionService.RecordDecision(ctx.Request.Context(), middleware.CurrentUser(ctx), id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, decision)
}

// CompleteRequest score 为空时使用按决策轨迹计算的建议得分
type CompleteRequest struct {
	Score          *int           `json:"score"`
	CategoryScores map[string]int `json:"categoryScores"`
}

// CompleteSession godoc
// @Summary 完成训练
// @Tags 训练
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "会话ID"
// @Param   body body CompleteRequest true "最终得分"
// @Success 200 {object} util.Response{data=model.TrainingSession}
// @Failure 400 {object} util.Response "分数超出范围"
// @Failure 409 {object} util.Response "会话已结束"
// @Router /api/sessions/{id}/complete [post]
func (c *SessionController) CompleteSession(ctx *gin.Context) {
	var req CompleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		util.BadRequest(ctx, err.Error())
		return
	}
	user := middleware.CurrentUser(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	if req.Score == nil {
		ev, err := c.SessionService.Preview(ctx.Request.Context(), user, id)
		if err != nil {
			util.HandleError(ctx, err)
			return
		}
		req.Score = &ev.SuggestedScore
		if req.CategoryScores == nil {
			req.CategoryScores = ev.Categories.Map()
		}
	}

	session, err := c.SessionService.Complete(ctx.Request.Context(), user, id, *req.Score, req.CategoryScores)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// AbandonSession godoc
// @Summary 放弃训练
// @Tags 训练
// @Security ApiKeyAuth
// @Param   id path int true "会话ID"
// @Success 200 {object} util.Response{data=model.TrainingSession}
// @Router /api/sessions/{id}/abandon [post]
func (c *SessionController) AbandonSession(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	session, err := c.SessionService.Abandon(ctx.Request.Context(), middleware.CurrentUser(ctx), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// PreviewSession godoc
// @Summary 预估得分
// @Tags 训练
// @Security ApiKeyAuth
// @Param   id path int true "会话ID"
// @Success 200 {object} util.Response{data=model.Evaluation}
// @Router /api/sessions/{id}/preview [get]
func (c *SessionController) PreviewSession(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	ev, err := c.SessionService.Preview(ctx.Request.Context(), middleware.CurrentUser(ctx), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, ev)
}
