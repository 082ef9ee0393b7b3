package controller

import (
	"prep_backend/internal/model"
	"prep_backend/internal/service"
	"prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RewardController struct {
	RewardService *service.RewardService
}

func NewRewardController(rewardService *service.RewardService) *RewardController {
	return &RewardController{RewardService: rewardService}
}

// Summary godoc
// @Summary 积分与连续天数概览
// @Tags 积分奖励
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.PointsSummary} "获取成功"
// @Router /api/rewards/summary [get]
func (c *RewardController) Summary(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	summary, err := c.RewardService.Summary(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// Transactions godoc
// @Summary 积分流水
// @Tags 积分奖励
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "获取成功"
// @Router /api/rewards/transactions [get]
func (c *RewardController) Transactions(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	page, limit := util.Pagination(ctx)

	list, total, err := c.RewardService.Transactions(userID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.NewPage(list, total, page, limit))
}

// Available godoc
// @Summary 可兑换奖励
// @Tags 积分奖励
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Reward} "获取成功"
// @Router /api/rewards/available [get]
func (c *RewardController) Available(ctx *gin.Context) {
	rewards, err := c.RewardService.AvailableRewards()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, rewards)
}

// MyRedemptions godoc
// @Summary 我的兑换记录
// @Tags 积分奖励
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.RewardRedemption} "获取成功"
// @Router /api/rewards/redemptions [get]
func (c *RewardController) MyRedemptions(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	list, err := c.RewardService.MyRedemptions(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// swagger:model RedeemRewardRequest
type RedeemRewardRequest struct {
	RecipientInfo string `json:"recipientInfo" binding:"max=500"`
}

// Redeem godoc
// @Summary 兑换奖励
// @Description 扣减可用积分并创建待审核的兑换记录
// @Tags 积分奖励
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "奖励ID"
// @Param   body body RedeemRewardRequest false "收件信息"
// @Success 201 {object} util.Response{data=model.RewardRedemption} "兑换成功"
// @Failure 400 {object} util.Response "积分不足或奖励已下架"
// @Failure 404 {object} util.Response "奖励不存在"
// @Router /api/rewards/{id}/redeem [post]
func (c *RewardController) Redeem(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	rewardID, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var req RedeemRewardRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	redemption, err := c.RewardService.Redeem(userID, rewardID, req.RecipientInfo)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, redemption)
}

// ---- 管理端 ----

// swagger:model RewardRequest
type RewardRequest struct {
	Name           string `json:"name" binding:"required,max=100"`
	RewardType     string `json:"rewardType" binding:"required,oneof=data subscription other"`
	Description    string `json:"description"`
	PointsRequired int    `json:"pointsRequired" binding:"required,gt=0"`
	IsActive       *bool  `json:"isActive"`
}

// ListRewards godoc
// @Summary 奖励列表（含下架）
// @Tags 管理端-奖励
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Reward} "获取成功"
// @Router /api/admin/rewards [get]
func (c *RewardController) ListRewards(ctx *gin.Context) {
	rewards, err := c.RewardService.ListRewards()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, rewards)
}

// CreateReward godoc
// @Summary 新建奖励
// @Tags 管理端-奖励
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body RewardRequest true "奖励信息"
// @Success 201 {object} util.Response{data=model.Reward} "创建成功"
// @Router /api/admin/rewards [post]
func (c *RewardController) CreateReward(ctx *gin.Context) {
	var req RewardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reward := &model.Reward{
		Name:           req.Name,
		RewardType:     model.RewardType(req.RewardType),
		Description:    req.Description,
		PointsRequired: req.PointsRequired,
		IsActive:       req.IsActive == nil || *req.IsActive,
	}
	if err := c.RewardService.CreateReward(reward); err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, reward)
}

// UpdateReward godoc
// @Summary 修改奖励
// @Tags 管理端-奖励
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "奖励ID"
// @Param   body body RewardRequest true "奖励信息"
// @Success 200 {object} util.Response{data=model.Reward} "修改成功"
// @Failure 404 {object} util.Response "奖励不存在"
// @Router /api/admin/rewards/{id} [put]
func (c *RewardController) UpdateReward(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req RewardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reward, err := c.RewardService.UpdateReward(id, func(r *model.Reward) {
		r.Name = req.Name
		r.RewardType = model.RewardType(req.RewardType)
		r.Description = req.Description
		r.PointsRequired = req.PointsRequired
		if req.IsActive != nil {
			r.IsActive = *req.IsActive
		}
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, reward)
}

// DeleteReward godoc
// @Summary 删除奖励
// @Tags 管理端-奖励
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "奖励ID"
// @Success 200 {object} util.Response "删除成功"
// @Router /api/admin/rewards/{id} [delete]
func (c *RewardController) DeleteReward(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.RewardService.DeleteReward(id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Reward deleted"})
}

// ListRedemptions godoc
// @Summary 兑换记录列表
// @Tags 管理端-奖励
// @Produce  json
// @Security ApiKeyAuth
// @Param   status query string false "pending/approved/delivered/rejected"
// @Success 200 {object} util.Response{data=util.PageResponse} "获取成功"
// @Router /api/admin/redemptions [get]
func (c *RewardController) ListRedemptions(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	list, total, err := c.RewardService.ListRedemptions(model.RedemptionStatus(ctx.Query("status")), page, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, util.NewPage(list, total, page, limit))
}

// swagger:model RedemptionStatusRequest
type RedemptionStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes"`
}

// UpdateRedemptionStatus godoc
// @Summary 更新兑换状态
// @Description 首次改为 rejected 时退还积分
// @Tags 管理端-奖励
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "兑换记录ID"
// @Param   body body RedemptionStatusRequest true "新状态"
// @Success 200 {object} util.Response{data=model.RewardRedemption} "更新成功"
// @Failure 400 {object} util.Response "状态不合法"
// @Router /api/admin/redemptions/{id}/status [patch]
func (c *RewardController) UpdateRedemptionStatus(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req RedemptionStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	redemption, err := c.RewardService.UpdateRedemptionStatus(id, model.RedemptionStatus(req.Status), req.Notes)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, redemption)
}

// ListRules godoc
// @Summary 积分规则列表
// @Tags 管理端-奖励
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.PointsRule} "获取成功"
// @Router /api/admin/points-rules [get]
func (c *RewardController) ListRules(ctx *gin.Context) {
	rules, err := c.RewardService.ListRules()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, rules)
}

// swagger:model RuleUpdateRequest
type RuleUpdateRequest struct {
	Points      *int    `json:"points" binding:"omitempty,gte=0"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

// UpdateRule godoc
// @Summary 修改积分规则
// @Tags 管理端-奖励
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "规则ID"
// @Param   body body RuleUpdateRequest true "需要修改的字段"
// @Success 200 {object} util.Response{data=model.PointsRule} "修改成功"
// @Router /api/admin/points-rules/{id} [patch]
func (c *RewardController) UpdateRule(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req RuleUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	rule, err := c.RewardService.UpdateRule(id, service.RuleUpdate{
		Points:      req.Points,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, rule)
}
