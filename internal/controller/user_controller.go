package controller

import (
	"io"
	"prep_backend/internal/model"
	"prep_backend/internal/repository"
	"prep_backend/internal/service"
	"prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

var avatarTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

const maxAvatarSize = 5 << 20

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// GetProfile godoc
// @Summary 获取个人资料
// @Tags 用户
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.User} "获取成功"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/users/profile [get]
func (c *UserController) GetProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	user, err := c.UserService.GetUserByID(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// UpdateProfileRequest nil 字段保持不变
// swagger:model UpdateProfileRequest
type UpdateProfileRequest struct {
	Name           *string `json:"name" binding:"omitempty,min=1,max=100"`
	PhoneNumber    *string `json:"phoneNumber" binding:"omitempty,phone,max=20"`
	ContactDetails *string `json:"contactDetails" binding:"omitempty,max=500"`
}

func (r UpdateProfileRequest) toUpdate() service.ProfileUpdate {
	return service.ProfileUpdate{
		Name:           r.Name,
		PhoneNumber:    r.PhoneNumber,
		ContactDetails: r.ContactDetails,
	}
}

// UpdateProfile godoc
// @Summary 修改个人资料
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body UpdateProfileRequest true "需要修改的字段"
// @Success 200 {object} util.Response{data=model.User} "修改成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "手机号已被使用"
// @Router /api/users/profile [patch]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.UpdateProfile(userID, req.toUpdate())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// UploadAvatar godoc
// @Summary 上传头像
// @Tags 用户
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   avatar formData file true "头像图片"
// @Success 200 {object} util.Response{data=model.User} "上传成功"
// @Failure 400 {object} util.Response "文件类型或大小不合法"
// @Router /api/users/profile/avatar [post]
func (c *UserController) UploadAvatar(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	file, err := ctx.FormFile("avatar")
	if err != nil {
		util.BadRequest(ctx, "avatar file is required")
		return
	}
	if file.Size > maxAvatarSize {
		util.BadRequest(ctx, "avatar must be smaller than 5MB")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	contentType, err := util.ValidateMimeType(src, avatarTypes)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	user, err := c.UserService.UploadAvatar(ctx.Request.Context(), userID, file.Filename, src, file.Size, contentType)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// ListUsers godoc
// @Summary 用户列表
// @Tags 管理端-用户
// @Produce  json
// @Security ApiKeyAuth
// @Param   search query string false "姓名、邮箱或手机号"
// @Param   role query string false "角色"
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "获取成功"
// @Router /api/admin/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	filter := repository.UserFilter{
		Search: ctx.Query("search"),
		Role:   ctx.Query("role"),
	}

	users, total, err := c.UserService.ListUsers(filter, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.NewPage(users, total, page, limit))
}

// GetUser godoc
// @Summary 用户详情
// @Tags 管理端-用户
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response{data=model.User} "获取成功"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id} [get]
func (c *UserController) GetUser(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	user, err := c.UserService.GetUserByID(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// swagger:model AdminUpdateUserRequest
type AdminUpdateUserRequest struct {
	UpdateProfileRequest
	Email    *string `json:"email" binding:"omitempty,max=100"`
	Role     *string `json:"role" binding:"omitempty,oneof=student content_admin super_admin"`
	IsActive *bool   `json:"isActive"`
}

// UpdateUser godoc
// @Summary 修改用户
// @Tags 管理端-用户
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Param   body body AdminUpdateUserRequest true "需要修改的字段"
// @Success 200 {object} util.Response{data=model.User} "修改成功"
// @Failure 404 {object} util.Response "用户不存在"
// @Failure 409 {object} util.Response "邮箱或手机号已被使用"
// @Router /api/admin/users/{id} [patch]
func (c *UserController) UpdateUser(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var req AdminUpdateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	in := service.AdminUserUpdate{
		ProfileUpdate: req.toUpdate(),
		Email:         req.Email,
		IsActive:      req.IsActive,
	}
	if req.Role != nil {
		role := model.UserRole(*req.Role)
		in.Role = &role
	}

	user, err := c.UserService.UpdateUser(id, in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// DeleteUser godoc
// @Summary 删除用户
// @Tags 管理端-用户
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response "删除成功"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id} [delete]
func (c *UserController) DeleteUser(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	if err := c.UserService.DeleteUser(id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "User deleted"})
}

// ListAdmins godoc
// @Summary 管理员列表
// @Tags 管理端-管理员
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=util.PageResponse} "获取成功"
// @Router /api/admin/admins [get]
func (c *UserController) ListAdmins(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	admins, total, err := c.UserService.ListAdmins(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.NewPage(admins, total, page, limit))
}

// swagger:model CreateAdminRequest
type CreateAdminRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateAdmin godoc
// @Summary 创建内容管理员
// @Tags 管理端-管理员
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body CreateAdminRequest true "管理员信息"
// @Success 201 {object} util.Response{data=model.User} "创建成功"
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Router /api/admin/admins [post]
func (c *UserController) CreateAdmin(ctx *gin.Context) {
	var req CreateAdminRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.CreateContentAdmin(service.CreateAdminInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, user)
}

// swagger:model SetActiveRequest
type SetActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// SetAdminActive godoc
// @Summary 启用或停用管理员
// @Tags 管理端-管理员
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Param   body body SetActiveRequest true "是否启用"
// @Success 200 {object} util.Response{data=model.User} "修改成功"
// @Failure 400 {object} util.Response "目标用户不是管理员"
// @Router /api/admin/admins/{id}/status [patch]
func (c *UserController) SetAdminActive(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var req SetActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.SetAdminActive(id, *req.IsActive)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// Roles godoc
// @Summary 角色与权限列表
// @Tags 管理端-管理员
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.RoleInfo} "获取成功"
// @Router /api/admin/roles [get]
func (c *UserController) Roles(ctx *gin.Context) {
	util.Success(ctx, c.UserService.Roles())
}
