package controller

import (
	"net/http"
	"prep_backend/internal/model"
	"prep_backend/internal/repository"
	"prep_backend/internal/service"
	"prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ContentController 目录浏览与管理端内容维护
type ContentController struct {
	CatalogService *service.CatalogService
	ContentService *service.ContentService
}

func NewContentController(catalogService *service.CatalogService, contentService *service.ContentService) *ContentController {
	return &ContentController{
		CatalogService: catalogService,
		ContentService: contentService,
	}
}

// EducationLevels godoc
// @Summary 学段列表
// @Tags 内容
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.EducationLevel} "获取成功"
// @Router /api/content/education-levels [get]
func (c *ContentController) EducationLevels(ctx *gin.Context) {
	levels, err := c.CatalogService.EducationLevels()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, levels)
}

// ClassLevels godoc
// @Summary 年级列表
// @Tags 内容
// @Produce  json
// @Param   educationLevel query string false "学段 slug"
// @Success 200 {object} util.Response{data=[]model.ClassLevel} "获取成功"
// @Router /api/content/class-levels [get]
func (c *ContentController) ClassLevels(ctx *gin.Context) {
	levels, err := c.CatalogService.ClassLevels(ctx.Query("educationLevel"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, levels)
}

// Subjects godoc
// @Summary 科目列表
// @Tags 内容
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Subject} "获取成功"
// @Router /api/content/subjects [get]
func (c *ContentController) Subjects(ctx *gin.Context) {
	subjects, err := c.CatalogService.Subjects()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, subjects)
}

// Courses godoc
// @Summary 课程列表
// @Description 每个科目附带视频数量与免费视频数量
// @Tags 内容
// @Produce  json
// @Success 200 {object} util.Response{data=[]repository.SubjectSummary} "获取成功"
// @Router /api/content/courses [get]
func (c *ContentController) Courses(ctx *gin.Context) {
	courses, err := c.CatalogService.Courses()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// Featured godoc
// @Summary 推荐课程
// @Description 含免费视频的科目
// @Tags 内容
// @Produce  json
// @Success 200 {object} util.Response{data=[]repository.SubjectSummary} "获取成功"
// @Router /api/content/featured [get]
func (c *ContentController) Featured(ctx *gin.Context) {
	courses, err := c.CatalogService.Featured()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// FreeSamples godoc
// @Summary 免费试看视频
// @Tags 内容
// @Produce  json
// @Success 200 {object} util.Response{data=[]service.VideoView} "获取成功"
// @Router /api/content/free-samples [get]
func (c *ContentController) FreeSamples(ctx *gin.Context) {
	videos, err := c.CatalogService.FreeSamples()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, videos)
}

// Videos godoc
// @Summary 视频列表
// @Tags 内容
// @Produce  json
// @Param   subject query string false "科目 slug"
// @Param   classLevel query string false "年级 slug"
// @Param   educationLevel query string false "学段 slug"
// @Param   free query bool false "只看免费"
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "获取成功"
// @Router /api/content/videos [get]
func (c *ContentController) Videos(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	filter := repository.VideoFilter{
		SubjectSlug:        ctx.Query("subject"),
		ClassLevelSlug:     ctx.Query("classLevel"),
		EducationLevelSlug: ctx.Query("educationLevel"),
		FreeOnly:           ctx.Query("free") == "true",
	}

	videos, total, err := c.CatalogService.Videos(filter, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.NewPage(videos, total, page, limit))
}

// Video godoc
// @Summary 视频详情
// @Description 参数为 slug 或数字 ID
// @Tags 内容
// @Produce  json
// @Param   slug path string true "视频 slug 或 ID"
// @Success 200 {object} util.Response{data=service.VideoView} "获取成功"
// @Failure 404 {object} util.Response "视频不存在"
// @Router /api/content/videos/{slug} [get]
func (c *ContentController) Video(ctx *gin.Context) {
	video, err := c.CatalogService.Video(ctx.Param("slug"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, service.NewVideoView(*video))
}

// CheckAccess godoc
// @Summary 检查观看权限
// @Description 付费视频需要有效订阅，有权限时返回播放地址
// @Tags 内容
// @Produce  json
// @Security ApiKeyAuth
// @Param   slug path int true "视频ID"
// @Success 200 {object} util.Response{data=service.VideoAccess} "获取成功"
// @Failure 404 {object} util.Response "视频不存在"
// @Router /api/content/videos/{slug}/access [get]
func (c *ContentController) CheckAccess(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	videoID, ok := videoParam(ctx)
	if !ok {
		return
	}

	access, err := c.CatalogService.CheckAccess(userID, videoID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, access)
}

// ---- 管理端 ----

// swagger:model EducationLevelRequest
type EducationLevelRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Slug        string `json:"slug" binding:"omitempty,max=120"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// CreateEducationLevel godoc
// @Summary 新建学段
// @Tags 管理端-内容
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body EducationLevelRequest true "学段信息"
// @Success 201 {object} util.Response{data=model.EducationLevel} "创建成功"
// @Failure 409 {object} util.Response "slug 已被使用"
// @Router /api/admin/education-levels [post]
func (c *ContentController) CreateEducationLevel(ctx *gin.Context) {
	var req EducationLevelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	level := &model.EducationLevel{Name: req.Name, Slug: req.Slug, Description: req.Description, Order: req.Order}
	if err := c.CatalogService.CreateEducationLevel(level); err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, level)
}

// UpdateEducationLevel godoc
// @Summary 修改学段
// @Tags 管理端-内容
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "学段ID"
// @Param   body body EducationLevelRequest true "学段信息"
// @Success 200 {object} util.Response{data=model.EducationLevel} "修改成功"
// @Failure 404 {object} util.Response "学段不存在"
// @Router /api/admin/education-levels/{id} [put]
func (c *ContentController) UpdateEducationLevel(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req EducationLevelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	level, err := c.CatalogService.UpdateEducationLevel(id, func(l *model.EducationLevel) {
		l.Name = req.Name
		l.Slug = req.Slug
		l.Description = req.Description
		l.Order = req.Order
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, level)
}

// DeleteEducationLevel godoc
// @Summary 删除学段
// @Tags 管理端-内容
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "学段ID"
// @Success 200 {object} util.Response "删除成功"
// @Router /api/admin/education-levels/{id} [delete]
func (c *ContentController) DeleteEducationLevel(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.CatalogService.DeleteEducationLevel(id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Education level deleted"})
}

// swagger:model ClassLevelRequest
type ClassLevelRequest struct {
	Name             string `json:"name" binding:"required,max=100"`
	Slug             string `json:"slug" binding:"omitempty,max=120"`
	EducationLevelID uint   `json:"educationLevelId" binding:"required"`
	Description      string `json:"description"`
	Order            int    `json:"order"`
}

// CreateClassLevel godoc
// @Summary 新建年级
// @Tags 管理端-内容
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body ClassLevelRequest true "年级信息"
// @Success 201 {object} util.Response{data=model.ClassLevel} "创建成功"
// @Failure 404 {object} util.Response "学段不存在"
// @Router /api/admin/class-levels [post]
func (c *ContentController) CreateClassLevel(ctx *gin.Context) {
	var req ClassLevelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	level := &model.ClassLevel{
		Name:             req.Name,
		Slug:             req.Slug,
		EducationLevelID: req.EducationLevelID,
		Description:      req.Description,
		Order:            req.Order,
	}
	if err := c.CatalogService.CreateClassLevel(level); err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, level)
}

// UpdateClassLevel godoc
// @Summary 修改年级
// @Tags 管理端-内容
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "年级ID"
// @Param   body body ClassLevelRequest true "年级信息"
// @Success 200 {object} util.Response{data=model.ClassLevel} "修改成功"
// @Router /api/admin/class-levels/{id} [put]
func (c *ContentController) UpdateClassLevel(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req ClassLevelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	level, err := c.CatalogService.UpdateClassLevel(id, func(l *model.ClassLevel) {
		l.Name = req.Name
		l.Slug = req.Slug
		l.EducationLevelID = req.EducationLevelID
		l.EducationLevel = nil
		l.Description = req.Description
		l.Order = req.Order
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, level)
}

// DeleteClassLevel godoc
// @Summary 删除年级
// @Tags 管理端-内容
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "年级ID"
// @Success 200 {object} util.Response "删除成功"
// @Router /api/admin/class-levels/{id} [delete]
func (c *ContentController) DeleteClassLevel(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.CatalogService.DeleteClassLevel(id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Class level deleted"})
}

// swagger:model SubjectRequest
type SubjectRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Slug        string `json:"slug" binding:"omitempty,max=120"`
	Description string `json:"description"`
	Icon        string `json:"icon" binding:"omitempty,max=255"`
}

// CreateSubject godoc
// @Summary 新建科目
// @Tags 管理端-内容
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body SubjectRequest true "科目信息"
// @Success 201 {object} util.Response{data=model.Subject} "创建成功"
// @Router /api/admin/subjects [post]
func (c *ContentController) CreateSubject(ctx *gin.Context) {
	var req SubjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	subject := &model.Subject{Name: req.Name, Slug: req.Slug, Description: req.Description, Icon: req.Icon}
	if err := c.CatalogService.CreateSubject(subject); err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, subject)
}

// UpdateSubject godoc
// @Summary 修改科目
// @Tags 管理端-内容
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "科目ID"
// @Param   body body SubjectRequest true "科目信息"
// @Success 200 {object} util.Response{data=model.Subject} "修改成功"
// @Router /api/admin/subjects/{id} [put]
func (c *ContentController) UpdateSubject(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req SubjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	subject, err := c.CatalogService.UpdateSubject(id, func(s *model.Subject) {
		s.Name = req.Name
		s.Slug = req.Slug
		s.Description = req.Description
		s.Icon = req.Icon
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, subject)
}

// DeleteSubject godoc
// @Summary 删除科目
// @Tags 管理端-内容
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "科目ID"
// @Success 200 {object} util.Response "删除成功"
// @Router /api/admin/subjects/{id} [delete]
func (c *ContentController) DeleteSubject(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.CatalogService.DeleteSubject(id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Subject deleted"})
}

// VideoRequest 视频来源为 upload 时文件通过上传接口提交
// swagger:model VideoRequest
type VideoRequest struct {
	Title          string `json:"title" binding:"required,max=200"`
	Slug           string `json:"slug" binding:"omitempty,max=220"`
	Description    string `json:"description"`
	SubjectID      uint   `json:"subjectId" binding:"required"`
	ClassLevelID   uint   `json:"classLevelId" binding:"required"`
	VideoSource    string `json:"videoSource" binding:"required,oneof=youtube drive upload"`
	VideoID        string `json:"videoId" binding:"omitempty,max=100"`
	AccessToken    string `json:"accessToken" binding:"omitempty,max=255"`
	Thumbnail      string `json:"thumbnail" binding:"omitempty,max=500"`
	Duration       int    `json:"duration" binding:"gte=0"`
	IsFree         bool   `json:"isFree"`
	OrderInSubject int    `json:"orderInSubject" binding:"gte=0"`
}

func (r VideoRequest) toInput() service.VideoInput {
	return service.VideoInput{
		Title:          r.Title,
		Slug:           r.Slug,
		Description:    r.Description,
		SubjectID:      r.SubjectID,
		ClassLevelID:   r.ClassLevelID,
		VideoSource:    model.VideoSource(r.VideoSource),
		VideoID:        r.VideoID,
		AccessToken:    r.AccessToken,
		Thumbnail:      r.Thumbnail,
		Duration:       r.Duration,
		IsFree:         r.IsFree,
		OrderInSubject: r.OrderInSubject,
	}
}

// AdminVideos godoc
// @Summary 管理端视频列表
// @Tags 管理端-内容
// @Produce  json
// @Security ApiKeyAuth
// @Param   subject query string false "科目 slug"
// @Param   classLevel query string false "年级 slug"
// @Success 200 {object} util.Response{data=util.PageResponse} "获取成功"
// @Router /api/admin/videos [get]
func (c *ContentController) AdminVideos(ctx *gin.Context) {
	c.Videos(ctx)
}

// GetVideo godoc
// @Summary 管理端视频详情
// @Tags 管理端-内容
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "视频ID"
// @Success 200 {object} util.Response{data=model.VideoLesson} "获取成功"
// @Router /api/admin/videos/{id} [get]
func (c *ContentController) GetVideo(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	video, err := c.CatalogService.VideoByID(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, video)
}

// CreateVideo godoc
// @Summary 新建视频
// @Tags 管理端-内容
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body VideoRequest true "视频信息"
// @Success 201 {object} util.Response{data=model.VideoLesson} "创建成功"
// @Failure 409 {object} util.Response "同科目同年级排序号已被占用"
// @Router /api/admin/videos [post]
func (c *ContentController) CreateVideo(ctx *gin.Context) {
	var req VideoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	video, err := c.CatalogService.CreateVideo(req.toInput())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, video)
}

// UpdateVideo godoc
// @Summary 修改视频
// @Tags 管理端-内容
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "视频ID"
// @Param   body body VideoRequest true "视频信息"
// @Success 200 {object} util.Response{data=model.VideoLesson} "修改成功"
// @Router /api/admin/videos/{id} [put]
func (c *ContentController) UpdateVideo(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req VideoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	video, err := c.CatalogService.UpdateVideo(id, req.toInput())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, video)
}

// DeleteVideo godoc
// @Summary 删除视频
// @Tags 管理端-内容
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "视频ID"
// @Success 200 {object} util.Response "删除成功"
// @Router /api/admin/videos/{id} [delete]
func (c *ContentController) DeleteVideo(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.CatalogService.DeleteVideo(id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Video deleted"})
}

// UploadVideo godoc
// @Summary 上传视频文件
// @Description 文件暂存后异步写入存储，并提取时长和缩略图
// @Tags 管理端-内容
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "视频ID"
// @Param   file formData file true "视频文件"
// @Success 202 {object} util.Response{data=model.VideoLesson} "已接收，处理中"
// @Failure 400 {object} util.Response "文件类型不支持"
// @Router /api/admin/videos/{id}/upload [post]
func (c *ContentController) UploadVideo(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}

	video, err := c.ContentService.UploadLessonVideo(ctx.Request.Context(), id, file)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, util.Response{Code: http.StatusAccepted, Message: "processing", Data: video})
}
