package controller

import (
	"dontpanic_backend/internal/middleware"
	"dontpanic_backend/internal/service"
	"dontpanic_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// UserController 讲师侧的学员管理
type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// ListUsers godoc
// @Summary 学员列表
// @Tags 讲师
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.TraineeRow}
// @Router /api/instructor/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	rows, err := c.UserService.ListTrainees(ctx.Request.Context(), middleware.CurrentUser(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// GetUser godoc
// @Summary 学员详情
// @Tags 讲师
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response{data=service.UserDetail}
// @Router /api/instructor/users/{id} [get]
func (c *UserController) GetUser(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	detail, err := c.UserService.Detail(ctx.Request.Context(), middleware.CurrentUser(ctx), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetUserActive godoc
// @Summary 启用/停用账号
// @Tags 讲师
// @Accept  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Param   body body SetActiveRequest true "状态"
// @Success 200 {object} util.Response{data=model.User}
// @Router /api/instructor/users/{id}/active [patch]
func (c *UserController) SetUserActive(ctx *gin.Context) {
	var req SetActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	id := util.MustParseUint(ctx.Param("id"))
	user, err := c.UserService.SetActive(ctx.Request.Context(), middleware.CurrentUser(ctx), id, *req.Active)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// DeleteUser godoc
// @Summary 删除用户及其训练记录
// @Tags 讲师
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/instructor/users/{id} [delete]
func (c *UserController) DeleteUser(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if err := c.UserService.Delete(ctx.Request.Context(), middleware.CurrentUser(ctx), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
