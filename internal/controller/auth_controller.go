package controller

import (
	"prep_backend/internal/service"
	"prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService    *service.AuthService
	LoyaltyService *service.LoyaltyService
}

func NewAuthController(authService *service.AuthService, loyaltyService *service.LoyaltyService) *AuthController {
	return &AuthController{
		AuthService:    authService,
		LoyaltyService: loyaltyService,
	}
}

// RegisterRequest 注册请求，邮箱与手机号至少填写一个
// swagger:model RegisterRequest
type RegisterRequest struct {
	Name            string `json:"name" binding:"required,max=100"`
	Email           string `json:"email" binding:"omitempty,email"`
	PhoneNumber     string `json:"phoneNumber" binding:"omitempty,phone,max=20"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// Register godoc
// @Summary 注册新用户
// @Description 创建未激活账号并发送 6 位验证码
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body RegisterRequest true "用户注册信息"
// @Success 201 {object} util.Response{data=object} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "邮箱或手机号已被注册"
// @Router /api/users/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.AuthService.Register(ctx.Request.Context(), service.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		PhoneNumber:     req.PhoneNumber,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{
		"id":         user.ID,
		"identifier": user.Identifier(),
		"message":    "Registration successful, please verify the OTP sent to you",
	})
}

// swagger:model VerifyOTPRequest
type VerifyOTPRequest struct {
	EmailOrPhone string `json:"emailOrPhone" binding:"required"`
	OTP          string `json:"otp" binding:"required"`
}

// VerifyOTP godoc
// @Summary 验证 OTP
// @Description 验证码正确且未过期时激活账号并返回令牌
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body VerifyOTPRequest true "验证信息"
// @Success 200 {object} util.Response{data=service.AuthResult} "验证成功"
// @Failure 400 {object} util.Response "验证码错误或过期"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/users/verify-otp [post]
func (c *AuthController) VerifyOTP(ctx *gin.Context) {
	var req VerifyOTPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AuthService.VerifyOTP(req.EmailOrPhone, req.OTP)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// swagger:model IdentifierRequest
type IdentifierRequest struct {
	EmailOrPhone string `json:"emailOrPhone" binding:"required"`
}

// ResendOTP godoc
// @Summary 重新发送验证码
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body IdentifierRequest true "邮箱或手机号"
// @Success 200 {object} util.Response "已发送"
// @Failure 404 {object} util.Response "用户不存在"
// @Failure 429 {object} util.Response "请求过于频繁"
// @Router /api/users/resend-otp [post]
func (c *AuthController) ResendOTP(ctx *gin.Context) {
	var req IdentifierRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.AuthService.ResendOTP(ctx.Request.Context(), req.EmailOrPhone); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "OTP sent"})
}

// swagger:model LoginRequest
type LoginRequest struct {
	EmailOrPhone string `json:"emailOrPhone" binding:"required"`
	Password     string `json:"password" binding:"required"`
}

// Login godoc
// @Summary 用户登录
// @Description 包含 @ 时按邮箱登录，否则按手机号；登录同时更新连续天数与登录积分
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "用户登录凭据"
// @Success 200 {object} util.Response{data=object} "登录成功"
// @Failure 401 {object} util.Response "账号或密码错误"
// @Failure 403 {object} util.Response "账号未验证"
// @Router /api/users/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, event, err := c.AuthService.Login(req.EmailOrPhone, req.Password, ctx.ClientIP(), ctx.Request.UserAgent())
	if err != nil {
		respondError(ctx, err)
		return
	}

	loyalty := c.LoyaltyService.Apply(event.UserID, func() (*service.LoyaltyResult, error) {
		return c.LoyaltyService.HandleLogin(event)
	})

	util.Success(ctx, gin.H{
		"token":   result.Token,
		"user":    result.User,
		"loyalty": loyalty,
	})
}

// swagger:model PasswordResetConfirmRequest
type PasswordResetConfirmRequest struct {
	EmailOrPhone    string `json:"emailOrPhone" binding:"required"`
	OTP             string `json:"otp" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// RequestPasswordReset godoc
// @Summary 申请重置密码
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body IdentifierRequest true "邮箱或手机号"
// @Success 200 {object} util.Response "验证码已发送"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/users/password-reset/request [post]
func (c *AuthController) RequestPasswordReset(ctx *gin.Context) {
	var req IdentifierRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.AuthService.RequestPasswordReset(ctx.Request.Context(), req.EmailOrPhone); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Password reset OTP sent"})
}

// ConfirmPasswordReset godoc
// @Summary 确认重置密码
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body PasswordResetConfirmRequest true "验证码与新密码"
// @Success 200 {object} util.Response "重置成功"
// @Failure 400 {object} util.Response "验证码错误或密码不符合要求"
// @Router /api/users/password-reset/confirm [post]
func (c *AuthController) ConfirmPasswordReset(ctx *gin.Context) {
	var req PasswordResetConfirmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.AuthService.ConfirmPasswordReset(req.EmailOrPhone, req.OTP, req.NewPassword, req.ConfirmPassword); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Password has been reset"})
}
