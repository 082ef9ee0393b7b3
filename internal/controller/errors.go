package controller

import (
	"errors"
	"net/http"
	"prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// errorStatus 业务错误到 HTTP 状态码的映射，未列出的按 500 处理
var errorStatus = []struct {
	err    error
	status int
}{
	{util.ErrUserNotFound, http.StatusNotFound},
	{util.ErrNotFound, http.StatusNotFound},
	{util.ErrVideoNotFound, http.StatusNotFound},
	{util.ErrSubjectNotFound, http.StatusNotFound},
	{util.ErrRewardNotFound, http.StatusNotFound},
	{util.ErrRedemptionNotFound, http.StatusNotFound},
	{util.ErrPlanNotFound, http.StatusNotFound},
	{util.ErrVoucherNotFound, http.StatusNotFound},
	{util.ErrPaymentNotFound, http.StatusNotFound},
	{util.ErrNoActiveSubscription, http.StatusNotFound},

	{util.ErrEmailRegistered, http.StatusConflict},
	{util.ErrPhoneRegistered, http.StatusConflict},
	{util.ErrSlugTaken, http.StatusConflict},
	{util.ErrOrderConflict, http.StatusConflict},
	{util.ErrAlreadySubscribed, http.StatusConflict},
	{util.ErrRedemptionFinal, http.StatusConflict},

	{util.ErrInvalidCredentials, http.StatusUnauthorized},
	{util.ErrInvalidSignature, http.StatusUnauthorized},

	{util.ErrAccountInactive, http.StatusForbidden},
	{util.ErrPermissionDenied, http.StatusForbidden},
	{util.ErrAccessDenied, http.StatusForbidden},

	{util.ErrOTPThrottled, http.StatusTooManyRequests},
	{util.ErrGatewayFailure, http.StatusBadGateway},

	{util.ErrContactRequired, http.StatusBadRequest},
	{util.ErrInvalidPhone, http.StatusBadRequest},
	{util.ErrPasswordMismatch, http.StatusBadRequest},
	{util.ErrPasswordTooShort, http.StatusBadRequest},
	{util.ErrInvalidOTP, http.StatusBadRequest},
	{util.ErrNotAdmin, http.StatusBadRequest},
	{util.ErrInvalidRole, http.StatusBadRequest},
	{util.ErrInvalidVideoExt, http.StatusBadRequest},
	{util.ErrInvalidSource, http.StatusBadRequest},
	{util.ErrInsufficientPoints, http.StatusBadRequest},
	{util.ErrRewardInactive, http.StatusBadRequest},
	{util.ErrInvalidStatus, http.StatusBadRequest},
	{util.ErrVoucherInvalid, http.StatusBadRequest},
	{util.ErrPlanInactive, http.StatusBadRequest},
	{util.ErrInvalidPlanType, http.StatusBadRequest},
	{util.ErrInvalidVoucherCount, http.StatusBadRequest},
	{util.ErrInvalidWebhook, http.StatusBadRequest},
}

// respondError 按错误类型写入响应
func respondError(ctx *gin.Context, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			util.Error(ctx, e.status, e.err.Error())
			return
		}
	}
	util.LogInternalError(ctx, err)
}

// currentUserID 认证中间件之后调用
func currentUserID(ctx *gin.Context) (uint, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return 0, false
	}
	return claims.UserID, true
}

func paramID(ctx *gin.Context, name string) (uint, bool) {
	id, ok := util.ParamID(ctx, name)
	if !ok {
		util.BadRequest(ctx, "invalid "+name)
	}
	return id, ok
}

// videoParam 与 /content/videos/:slug 共用路径参数名
func videoParam(ctx *gin.Context) (uint, bool) {
	id, ok := util.ParamID(ctx, "slug")
	if !ok {
		util.BadRequest(ctx, "invalid video id")
	}
	return id, ok
}
