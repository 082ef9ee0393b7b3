package controller

import (
	"prep_backend/internal/service"
	"prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ProgressController 观看进度、收藏与学习分析
type ProgressController struct {
	ProgressService *service.ProgressService
	LoyaltyService  *service.LoyaltyService
}

func NewProgressController(progressService *service.ProgressService, loyaltyService *service.LoyaltyService) *ProgressController {
	return &ProgressController{
		ProgressService: progressService,
		LoyaltyService:  loyaltyService,
	}
}

// swagger:model ProgressRequest
type ProgressRequest struct {
	Position int `json:"position" binding:"gte=0"`
	Duration int `json:"duration" binding:"gte=0"`
}

// GetProgress godoc
// @Summary 获取观看进度
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   slug path int true "视频ID"
// @Success 200 {object} util.Response{data=model.ViewHistory} "获取成功"
// @Failure 404 {object} util.Response "视频不存在"
// @Router /api/content/videos/{slug}/progress [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	videoID, ok := videoParam(ctx)
	if !ok {
		return
	}

	history, err := c.ProgressService.GetProgress(userID, videoID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, history)
}

// RecordProgress godoc
// @Summary 上报观看进度
// @Description 观看位置达到时长 90% 视为完成，首次观看与首次完成会获得积分
// @Tags 学习进度
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   slug path int true "视频ID"
// @Param   body body ProgressRequest true "播放位置与时长（秒）"
// @Success 200 {object} util.Response{data=object} "更新成功"
// @Failure 404 {object} util.Response "视频不存在"
// @Router /api/content/videos/{slug}/progress [post]
func (c *ProgressController) RecordProgress(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	videoID, ok := videoParam(ctx)
	if !ok {
		return
	}

	var req ProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	history, event, err := c.ProgressService.RecordProgress(userID, videoID, req.Position, req.Duration)
	if err != nil {
		respondError(ctx, err)
		return
	}

	loyalty := c.LoyaltyService.Apply(userID, func() (*service.LoyaltyResult, error) {
		return c.LoyaltyService.HandleProgress(event)
	})

	util.Success(ctx, gin.H{
		"progress": history,
		"loyalty":  loyalty,
	})
}

// Bookmarks godoc
// @Summary 收藏列表
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Bookmark} "获取成功"
// @Router /api/content/bookmarks [get]
func (c *ProgressController) Bookmarks(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	bookmarks, err := c.ProgressService.Bookmarks(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, bookmarks)
}

// AddBookmark godoc
// @Summary 收藏视频
// @Description 重复收藏返回已有记录
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   videoId path int true "视频ID"
// @Success 201 {object} util.Response{data=model.Bookmark} "收藏成功"
// @Failure 404 {object} util.Response "视频不存在"
// @Router /api/content/bookmarks/{videoId} [post]
func (c *ProgressController) AddBookmark(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	videoID, ok := paramID(ctx, "videoId")
	if !ok {
		return
	}

	bookmark, err := c.ProgressService.AddBookmark(userID, videoID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, bookmark)
}

// RemoveBookmark godoc
// @Summary 取消收藏
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   videoId path int true "视频ID"
// @Success 200 {object} util.Response "取消成功"
// @Failure 404 {object} util.Response "未收藏"
// @Router /api/content/bookmarks/{videoId} [delete]
func (c *ProgressController) RemoveBookmark(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	videoID, ok := paramID(ctx, "videoId")
	if !ok {
		return
	}

	if err := c.ProgressService.RemoveBookmark(userID, videoID); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Bookmark removed"})
}

// Dashboard godoc
// @Summary 学习概况
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.ProgressDashboard} "获取成功"
// @Router /api/content/progress/dashboard [get]
func (c *ProgressController) Dashboard(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	dash, err := c.ProgressService.Dashboard(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, dash)
}

// SubjectProgress godoc
// @Summary 科目学习进度
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   slug path string true "科目 slug"
// @Success 200 {object} util.Response{data=repository.SubjectProgress} "获取成功"
// @Failure 404 {object} util.Response "科目不存在"
// @Router /api/content/progress/subjects/{slug} [get]
func (c *ProgressController) SubjectProgress(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	progress, err := c.ProgressService.SubjectProgress(userID, ctx.Param("slug"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// RecentActivity godoc
// @Summary 最近观看
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.ViewHistory} "获取成功"
// @Router /api/content/progress/recent [get]
func (c *ProgressController) RecentActivity(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	items, err := c.ProgressService.RecentActivity(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// CurrentVideo godoc
// @Summary 正在观看的视频
// @Description 没有未完成的视频时 data 为 null
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.ViewHistory} "获取成功"
// @Router /api/content/progress/current [get]
func (c *ProgressController) CurrentVideo(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	history, err := c.ProgressService.CurrentVideo(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, history)
}

// Performance godoc
// @Summary 学习表现
// @Tags 学习分析
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.PerformanceStats} "获取成功"
// @Router /api/content/analytics/performance [get]
func (c *ProgressController) Performance(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	stats, err := c.ProgressService.Performance(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// TimeSpent godoc
// @Summary 累计学习时长
// @Tags 学习分析
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.TimeSpent} "获取成功"
// @Router /api/content/analytics/time-spent [get]
func (c *ProgressController) TimeSpent(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	spent, err := c.ProgressService.TimeSpent(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, spent)
}

// SubjectStrengths godoc
// @Summary 各科目完成度
// @Tags 学习分析
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]repository.SubjectProgress} "获取成功"
// @Router /api/content/analytics/subject-strengths [get]
func (c *ProgressController) SubjectStrengths(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	rows, err := c.ProgressService.SubjectStrengths(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// Recommendations godoc
// @Summary 推荐学习科目
// @Tags 学习分析
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]repository.SubjectProgress} "获取成功"
// @Router /api/content/analytics/recommendations [get]
func (c *ProgressController) Recommendations(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	rows, err := c.ProgressService.Recommendations(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}
