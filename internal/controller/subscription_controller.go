package controller

import (
	"io"
	"prep_backend/internal/model"
	"prep_backend/internal/service"
	"prep_backend/internal/util"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

type SubscriptionController struct {
	SubService *service.SubscriptionService
}

func NewSubscriptionController(subService *service.SubscriptionService) *SubscriptionController {
	return &SubscriptionController{SubService: subService}
}

// Plans godoc
// @Summary 订阅套餐
// @Tags 订阅
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.SubscriptionPlan} "获取成功"
// @Router /api/subscription/plans [get]
func (c *SubscriptionController) Plans(ctx *gin.Context) {
	plans, err := c.SubService.ListPlans()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, plans)
}

// swagger:model SubscribeRequest
type SubscribeRequest struct {
	PlanID uint `json:"planId" binding:"required"`
}

// Subscribe godoc
// @Summary 订阅套餐
// @Description 免费套餐直接开通；付费套餐返回支付链接和支付单号
// @Tags 订阅
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body SubscribeRequest true "套餐ID"
// @Success 200 {object} util.Response{data=service.InitiateResult} "发起成功"
// @Failure 404 {object} util.Response "套餐不存在"
// @Failure 502 {object} util.Response "支付网关请求失败"
// @Router /api/subscription/subscribe [post]
func (c *SubscriptionController) Subscribe(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req SubscribeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.SubService.Initiate(ctx.Request.Context(), userID, req.PlanID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Verify godoc
// @Summary 确认支付结果
// @Description 向网关查询交易状态；已结算的支付直接返回当前状态
// @Tags 订阅
// @Produce  json
// @Security ApiKeyAuth
// @Param   reference query string true "支付单号"
// @Success 200 {object} util.Response{data=service.SettleResult} "查询成功"
// @Failure 404 {object} util.Response "支付不存在"
// @Failure 502 {object} util.Response "支付网关请求失败"
// @Router /api/subscription/verify [get]
func (c *SubscriptionController) Verify(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	reference := ctx.Query("reference")
	if reference == "" {
		util.BadRequest(ctx, "reference is required")
		return
	}

	result, err := c.SubService.Verify(ctx.Request.Context(), userID, reference)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Webhook godoc
// @Summary 支付网关回调
// @Description 校验签名后结算支付，重复通知不会重复开通
// @Tags 订阅
// @Accept  json
// @Produce  json
// @Success 200 {object} util.Response{data=service.SettleResult} "处理成功"
// @Failure 400 {object} util.Response "回调内容不合法"
// @Failure 401 {object} util.Response "签名错误"
// @Router /api/subscription/webhook [post]
func (c *SubscriptionController) Webhook(ctx *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody))
	if err != nil {
		util.BadRequest(ctx, "unable to read body")
		return
	}

	result, err := c.SubService.Webhook(body, ctx.Request.Header)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Current godoc
// @Summary 当前订阅
// @Tags 订阅
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.UserSubscription} "获取成功"
// @Failure 404 {object} util.Response "没有有效订阅"
// @Router /api/subscription/current [get]
func (c *SubscriptionController) Current(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	sub, err := c.SubService.Current(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if sub == nil {
		respondError(ctx, util.ErrNoActiveSubscription)
		return
	}
	util.Success(ctx, sub)
}

// Payments godoc
// @Summary 支付记录
// @Tags 订阅
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Payment} "获取成功"
// @Router /api/subscription/payments [get]
func (c *SubscriptionController) Payments(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	payments, err := c.SubService.Payments(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, payments)
}

// swagger:model RedeemVoucherRequest
type RedeemVoucherRequest struct {
	Code string `json:"code" binding:"required,max=20"`
}

// RedeemVoucher godoc
// @Summary 使用兑换码
// @Tags 订阅
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body RedeemVoucherRequest true "兑换码"
// @Success 200 {object} util.Response{data=model.UserSubscription} "兑换成功"
// @Failure 400 {object} util.Response "兑换码已使用或已过期"
// @Failure 404 {object} util.Response "兑换码不存在"
// @Router /api/subscription/vouchers/redeem [post]
func (c *SubscriptionController) RedeemVoucher(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req RedeemVoucherRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.SubService.RedeemVoucher(userID, model.NormalizeVoucherCode(req.Code))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// ---- 管理端 ----

// swagger:model PlanRequest
type PlanRequest struct {
	Name         string  `json:"name" binding:"required,max=100"`
	PlanType     string  `json:"planType" binding:"required"`
	Description  string  `json:"description"`
	Price        float64 `json:"price" binding:"gte=0"`
	DurationDays int     `json:"durationDays" binding:"gte=0"`
	VideoLimit   int     `json:"videoLimit" binding:"gte=0"`
	IsActive     *bool   `json:"isActive"`
}

func (r PlanRequest) apply(p *model.SubscriptionPlan) {
	p.Name = r.Name
	p.PlanType = model.PlanType(r.PlanType)
	p.Description = r.Description
	p.Price = r.Price
	p.DurationDays = r.DurationDays
	p.VideoLimit = r.VideoLimit
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
}

// AdminPlans godoc
// @Summary 套餐列表（含停用）
// @Tags 管理端-订阅
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.SubscriptionPlan} "获取成功"
// @Router /api/admin/plans [get]
func (c *SubscriptionController) AdminPlans(ctx *gin.Context) {
	plans, err := c.SubService.AllPlans()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, plans)
}

// CreatePlan godoc
// @Summary 新建套餐
// @Tags 管理端-订阅
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body PlanRequest true "套餐信息"
// @Success 201 {object} util.Response{data=model.SubscriptionPlan} "创建成功"
// @Failure 400 {object} util.Response "套餐类型不合法"
// @Router /api/admin/plans [post]
func (c *SubscriptionController) CreatePlan(ctx *gin.Context) {
	var req PlanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	plan := &model.SubscriptionPlan{IsActive: true}
	req.apply(plan)
	if err := c.SubService.CreatePlan(plan); err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, plan)
}

// UpdatePlan godoc
// @Summary 修改套餐
// @Tags 管理端-订阅
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "套餐ID"
// @Param   body body PlanRequest true "套餐信息"
// @Success 200 {object} util.Response{data=model.SubscriptionPlan} "修改成功"
// @Failure 404 {object} util.Response "套餐不存在"
// @Router /api/admin/plans/{id} [put]
func (c *SubscriptionController) UpdatePlan(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req PlanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	plan, err := c.SubService.UpdatePlan(id, req.apply)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, plan)
}

// DeletePlan godoc
// @Summary 删除套餐
// @Tags 管理端-订阅
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "套餐ID"
// @Success 200 {object} util.Response "删除成功"
// @Router /api/admin/plans/{id} [delete]
func (c *SubscriptionController) DeletePlan(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.SubService.DeletePlan(id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Plan deleted"})
}

// ListSubscriptions godoc
// @Summary 订阅记录
// @Tags 管理端-订阅
// @Produce  json
// @Security ApiKeyAuth
// @Param   userId query int false "用户ID"
// @Param   active query bool false "只看有效订阅"
// @Success 200 {object} util.Response{data=util.PageResponse} "获取成功"
// @Router /api/admin/subscriptions [get]
func (c *SubscriptionController) ListSubscriptions(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	userID := util.MustParseUint(ctx.Query("userId"))
	activeOnly := ctx.Query("active") == "true"

	list, total, err := c.SubService.ListSubscriptions(userID, activeOnly, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.NewPage(list, total, page, limit))
}

// swagger:model GenerateVouchersRequest
type GenerateVouchersRequest struct {
	PlanID     uint       `json:"planId" binding:"required"`
	Count      int        `json:"count" binding:"required,min=1,max=500"`
	ExpiryDate *time.Time `json:"expiryDate"`
}

// GenerateVouchers godoc
// @Summary 批量生成兑换码
// @Tags 管理端-订阅
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body GenerateVouchersRequest true "套餐、数量与过期时间"
// @Success 201 {object} util.Response{data=[]model.VoucherCode} "生成成功"
// @Failure 404 {object} util.Response "套餐不存在"
// @Router /api/admin/vouchers [post]
func (c *SubscriptionController) GenerateVouchers(ctx *gin.Context) {
	var req GenerateVouchersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	vouchers, err := c.SubService.GenerateVouchers(req.PlanID, req.Count, req.ExpiryDate)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, vouchers)
}

// ListVouchers godoc
// @Summary 兑换码列表
// @Tags 管理端-订阅
// @Produce  json
// @Security ApiKeyAuth
// @Param   planId query int false "套餐ID"
// @Param   used query bool false "是否已使用"
// @Success 200 {object} util.Response{data=util.PageResponse} "获取成功"
// @Router /api/admin/vouchers [get]
func (c *SubscriptionController) ListVouchers(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	planID := util.MustParseUint(ctx.Query("planId"))

	var used *bool
	if raw := ctx.Query("used"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			util.BadRequest(ctx, "invalid used flag")
			return
		}
		used = &v
	}

	list, total, err := c.SubService.ListVouchers(planID, used, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.NewPage(list, total, page, limit))
}
