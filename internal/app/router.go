package app

import (
	"prep_backend/docs"
	"prep_backend/internal/config"
	"prep_backend/internal/middleware"
	"prep_backend/internal/policy"
	"prep_backend/internal/util"
	"prep_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.NoRoute(util.NotFound)

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要登录的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
	}

	// 3. 管理端，按 policy 判断权限
	a.registerAdminRoutes(router, c, repos, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)

		users := public.Group("/users")
		users.POST("/register", c.auth.Register)
		users.POST("/verify-otp", c.auth.VerifyOTP)
		users.POST("/resend-otp", c.auth.ResendOTP)
		users.POST("/login", c.auth.Login)
		users.POST("/password-reset/request", c.auth.RequestPasswordReset)
		users.POST("/password-reset/confirm", c.auth.ConfirmPasswordReset)

		content := public.Group("/content")
		content.GET("/education-levels", c.content.EducationLevels)
		content.GET("/class-levels", c.content.ClassLevels)
		content.GET("/subjects", c.content.Subjects)
		content.GET("/courses", c.content.Courses)
		content.GET("/featured", c.content.Featured)
		content.GET("/free-samples", c.content.FreeSamples)
		content.GET("/videos", c.content.Videos)
		content.GET("/videos/:slug", c.content.Video)

		public.GET("/subscription/plans", c.subscription.Plans)
		// 网关回调靠签名校验，不走登录
		public.POST("/subscription/webhook", c.subscription.Webhook)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	users := rg.Group("/users")
	{
		users.GET("/profile", c.user.GetProfile)
		users.PATCH("/profile", c.user.UpdateProfile)
		users.POST("/profile/avatar", c.user.UploadAvatar)
	}

	content := rg.Group("/content")
	{
		content.GET("/videos/:slug/progress", c.progress.GetProgress)
		content.POST("/videos/:slug/progress", c.progress.RecordProgress)
		content.GET("/videos/:slug/access", c.content.CheckAccess)

		content.GET("/bookmarks", c.progress.Bookmarks)
		content.POST("/bookmarks/:videoId", c.progress.AddBookmark)
		content.DELETE("/bookmarks/:videoId", c.progress.RemoveBookmark)

		content.GET("/progress/dashboard", c.progress.Dashboard)
		content.GET("/progress/recent", c.progress.RecentActivity)
		content.GET("/progress/current", c.progress.CurrentVideo)
		content.GET("/progress/subjects/:slug", c.progress.SubjectProgress)

		content.GET("/analytics/performance", c.progress.Performance)
		content.GET("/analytics/time-spent", c.progress.TimeSpent)
		content.GET("/analytics/subject-strengths", c.progress.SubjectStrengths)
		content.GET("/analytics/recommendations", c.progress.Recommendations)
	}

	rewards := rg.Group("/rewards")
	{
		rewards.GET("/summary", c.reward.Summary)
		rewards.GET("/transactions", c.reward.Transactions)
		rewards.GET("/available", c.reward.Available)
		rewards.GET("/redemptions", c.reward.MyRedemptions)
		rewards.POST("/:id/redeem", c.reward.Redeem)
	}

	subscription := rg.Group("/subscription")
	{
		subscription.POST("/subscribe", c.subscription.Subscribe)
		subscription.GET("/verify", c.subscription.Verify)
		subscription.GET("/current", c.subscription.Current)
		subscription.GET("/payments", c.subscription.Payments)
		subscription.POST("/vouchers/redeem", c.subscription.RedeemVoucher)
	}

	rg.GET("/dashboard/stats", c.dashboard.GetDashboard)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))

	content := admin.Group("/")
	content.Use(middleware.Require(policy.ManageContent))
	{
		content.POST("/education-levels", c.content.CreateEducationLevel)
		content.PUT("/education-levels/:id", c.content.UpdateEducationLevel)
		content.DELETE("/education-levels/:id", c.content.DeleteEducationLevel)

		content.POST("/class-levels", c.content.CreateClassLevel)
		content.PUT("/class-levels/:id", c.content.UpdateClassLevel)
		content.DELETE("/class-levels/:id", c.content.DeleteClassLevel)

		content.POST("/subjects", c.content.CreateSubject)
		content.PUT("/subjects/:id", c.content.UpdateSubject)
		content.DELETE("/subjects/:id", c.content.DeleteSubject)

		content.GET("/videos", c.content.AdminVideos)
		content.GET("/videos/:id", c.content.GetVideo)
		content.POST("/videos", c.content.CreateVideo)
		content.PUT("/videos/:id", c.content.UpdateVideo)
		content.DELETE("/videos/:id", c.content.DeleteVideo)
		content.POST("/videos/:id/upload", c.content.UploadVideo)
	}

	admin.GET("/analytics/overview", middleware.Require(policy.ViewAnalytics), c.dashboard.PlatformStats)

	admin.GET("/users", middleware.Require(policy.ViewUsers), c.user.ListUsers)
	admin.GET("/users/:id", middleware.Require(policy.ViewUsers), c.user.GetUser)
	admin.PATCH("/users/:id", middleware.Require(policy.ManageUsers), c.user.UpdateUser)
	admin.DELETE("/users/:id", middleware.Require(policy.ManageUsers), c.user.DeleteUser)

	admins := admin.Group("/")
	admins.Use(middleware.Require(policy.ManageAdmins))
	{
		admins.GET("/admins", c.user.ListAdmins)
		admins.POST("/admins", c.user.CreateAdmin)
		admins.PATCH("/admins/:id/status", c.user.SetAdminActive)
		admins.GET("/roles", c.user.Roles)
	}

	rewards := admin.Group("/")
	rewards.Use(middleware.Require(policy.ManageRewards))
	{
		rewards.GET("/rewards", c.reward.ListRewards)
		rewards.POST("/rewards", c.reward.CreateReward)
		rewards.PUT("/rewards/:id", c.reward.UpdateReward)
		rewards.DELETE("/rewards/:id", c.reward.DeleteReward)
		rewards.GET("/redemptions", c.reward.ListRedemptions)
		rewards.PATCH("/redemptions/:id/status", c.reward.UpdateRedemptionStatus)
		rewards.GET("/points-rules", c.reward.ListRules)
		rewards.PATCH("/points-rules/:id", c.reward.UpdateRule)
	}

	subs := admin.Group("/")
	subs.Use(middleware.Require(policy.ManageSubscriptions))
	{
		subs.GET("/plans", c.subscription.AdminPlans)
		subs.POST("/plans", c.subscription.CreatePlan)
		subs.PUT("/plans/:id", c.subscription.UpdatePlan)
		subs.DELETE("/plans/:id", c.subscription.DeletePlan)
		subs.GET("/subscriptions", c.subscription.ListSubscriptions)
		subs.GET("/vouchers", c.subscription.ListVouchers)
		subs.POST("/vouchers", c.subscription.GenerateVouchers)
	}

	admin.GET("/settings", middleware.Require(policy.ViewSettings), c.dashboard.Settings)
}
