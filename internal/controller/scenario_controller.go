package controller

import (
	"dontpanic_backend/internal/middleware"
	"dontpanic_backend/internal/repository"
	"dontpanic_backend/internal/service"
	"dontpanic_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ScenarioController struct {
	ScenarioService *service.ScenarioService
	SessionService  *service.SessionService
}

func NewScenarioController(scenarioService *service.ScenarioService, sessionService *service.SessionService) *ScenarioController {
	return &ScenarioController{
		ScenarioService: scenarioService,
		SessionService:  sessionService,
	}
}

// ListScenarios godoc
// @Summary 场景列表
// @Description 学员只能看到已启用的场景
// @Tags 场景
// @Produce  json
// @Security ApiKeyAuth
// @Param   incidentType query string false "事件类型"
// @Param   difficulty query int false "难度 1-5"
// @Success 200 {object} util.Response{data=[]model.Scenario}
// @Router /api/scenarios [get]
func (c *ScenarioController) ListScenarios(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)
	difficulty, _ := strconv.Atoi(ctx.Query("difficulty"))

	filter := repository.ScenarioFilter{
		IncidentType: ctx.Query("incidentType"),
		Difficulty:   difficulty,
		ActiveOnly:   !user.IsInstructor(),
	}
	scenarios, err := c.ScenarioService.List(ctx.Request.Context(), filter)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, scenarios)
}

// GetScenario godoc
// @Summary 场景详情
// @Tags 场景
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "场景ID"
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response
// @Router /api/scenarios/{id} [get]
func (c *ScenarioController) GetScenario(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	scenario, err := c.ScenarioService.Get(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if !scenario.IsActive && !user.IsInstructor() {
		util.NotFound(ctx)
		return
	}
	content, err := scenario.Content()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	data := gin.H{"scenario": scenario, "content": content}
	if active, err := c.SessionService.Resume(ctx.Request.Context(), user, id); err == nil {
		data["activeSessionId"] = active.ID
	}
	util.Success(ctx, data)
}

// StartScenario godoc
// @Summary 开始训练
// @Description 已有进行中的会话时返回 409，data.sessionId 为该会话
// @Tags 场景
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "场景ID"
// @Success 201 {object} util.Response{data=model.TrainingSession}
// @Failure 409 {object} util.Response
// @Router /api/scenarios/{id}/start [post]
func (c *ScenarioController) StartScenario(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	session, err := c.SessionService.Start(ctx.Request.Context(), middleware.CurrentUser(ctx), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, session)
}

// CreateScenario godoc
// @Summary 创建场景
// @Tags 讲师
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.ScenarioInput true "场景"
// @Success 201 {object} util.Response{data=model.Scenario}
// @Failure 400 {object} util.Response
// @Router /api/instructor/scenarios [post]
func (c *ScenarioController) CreateScenario(ctx *gin.Context) {
	var req service.ScenarioInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	scenario, err := c.ScenarioService.Create(ctx.Request.Context(), middleware.CurrentUser(ctx), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, scenario)
}

// UpdateScenario godoc
// @Summary 修改场景
// @Description 只修改请求中出现的字段，校验失败时不写入
// @Tags 讲师
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "场景ID"
// @Param   body body service.ScenarioPatch true "修改内容"
// @Success 200 {object} util.Response{data=model.Scenario}
// @Router /api/instructor/scenarios/{id} [put]
func (c *ScenarioController) UpdateScenario(ctx *gin.Context) {
	var req service.ScenarioPatch
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	id := util.MustParseUint(ctx.Param("id"))
	scenario, err := c.ScenarioService.Update(ctx.Request.Context(), middleware.CurrentUser(ctx), id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, scenario)
}

// DeleteScenario godoc
// @Summary 删除场景
// @Description 同时删除该场景的全部训练记录
// @Tags 讲师
// @Security ApiKeyAuth
// @Param   id path int true "场景ID"
// @Success 200 {object} util.Response
// @Router /api/instructor/scenarios/{id} [delete]
func (c *ScenarioController) DeleteScenario(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if err := c.ScenarioService.Delete(ctx.Request.Context(), middleware.CurrentUser(ctx), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": id})
}

// ExportScenario godoc
// @Summary 导出场景到对象存储
// @Tags 讲师
// @Security ApiKeyAuth
// @Param   id path int true "场景ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/instructor/scenarios/{id}/export [post]
func (c *ScenarioController) ExportScenario(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	key, err := c.ScenarioService.Export(ctx.Request.Context(), middleware.CurrentUser(ctx), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"key": key})
}

type ImportScenarioRequest struct {
	Key string `json:"key" binding:"required"`
}

// ImportScenario godoc
// @Summary 从对象存储导入场景
// @Description 导入的场景默认停用
// @Tags 讲师
// @Accept  json
// @Security ApiKeyAuth
// @Param   body body ImportScenarioRequest true "存储 key"
// @Success 201 {object} util.Response{data=model.Scenario}
// @Router /api/instructor/scenarios/import [post]
func (c *ScenarioController) ImportScenario(ctx *gin.Context) {
	var req ImportScenarioRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	scenario, err := c.ScenarioService.Import(ctx.Request.Context(), middleware.CurrentUser(ctx), req.Key)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, scenario)
}
