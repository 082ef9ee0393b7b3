package controller

import (
	"prep_backend/internal/service"
	"prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	DashboardService *service.DashboardService
}

func NewDashboardController(dashboardService *service.DashboardService) *DashboardController {
	return &DashboardController{DashboardService: dashboardService}
}

// @Summary 获取仪表盘数据
// @Description 观看统计、连续天数、积分、最近收藏与观看、当前订阅
// @Tags 仪表盘
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.Dashboard}
// @Router /api/dashboard/stats [get]
func (c *DashboardController) GetDashboard(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	dashboard, err := c.DashboardService.GetUserDashboard(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, dashboard)
}

// @Summary 平台概览
// @Description 学生数、视频数、有效订阅与收入等汇总
// @Tags 管理端-概览
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=repository.PlatformStats}
// @Router /api/admin/analytics/overview [get]
func (c *DashboardController) PlatformStats(ctx *gin.Context) {
	stats, err := c.DashboardService.PlatformStats()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// @Summary 平台设置
// @Description 来自配置文件，修改配置后自动生效
// @Tags 管理端-概览
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.PlatformSettings}
// @Router /api/admin/settings [get]
func (c *DashboardController) Settings(ctx *gin.Context) {
	util.Success(ctx, c.DashboardService.Settings())
}
