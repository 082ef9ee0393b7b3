package repository

import (
	"prep_backend/internal/model"

	"gorm.io/gorm"
)

type CatalogRepository struct {
	DB *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: db}
}

// VideoFilter 视频列表筛选，按 slug 过滤
type VideoFilter struct {
	SubjectSlug        string
	ClassLevelSlug     string
	EducationLevelSlug string
	FreeOnly           bool
}

// SubjectSummary 课程（科目）及其视频数量
type SubjectSummary struct {
	model.Subject
	VideoCount     int64 `json:"videoCount"`
	FreeVideoCount int64 `json:"freeVideoCount"`
}

func (r *CatalogRepository) Create(value interface{}) error {
	return r.DB.Create(value).Error
}

func (r *CatalogRepository) Save(value interface{}) error {
	return r.DB.Save(value).Error
}

func (r *CatalogRepository) DeleteByID(value interface{}, id uint) error {
	res := r.DB.Delete(value, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *CatalogRepository) ListEducationLevels() ([]model.EducationLevel, error) {
	var levels []model.EducationLevel
	err := r.DB.Preload("ClassLevels", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC, id ASC")
	}).Order("sort_order ASC, id ASC").Find(&levels).Error
	return levels, err
}

func (r *CatalogRepository) FindEducationLevel(id uint) (*model.EducationLevel, error) {
	var level model.EducationLevel
	err := r.DB.First(&level, id).Error
	return &level, err
}

func (r *CatalogRepository) ListClassLevels(educationSlug string) ([]model.ClassLevel, error) {
	var levels []model.ClassLevel
	query := r.DB.Model(&model.ClassLevel{}).Preload("EducationLevel")
	if educationSlug != "" {
		query = query.Joins("JOIN education_levels el ON el.id = class_levels.education_level_id").
			Where("el.slug = ?", educationSlug)
	}
	err := query.Order("class_levels.sort_order ASC, class_levels.id ASC").Find(&levels).Error
	return levels, err
}

func (r *CatalogRepository) FindClassLevel(id uint) (*model.ClassLevel, error) {
	var level model.ClassLevel
	err := r.DB.First(&level, id).Error
	return &level, err
}

func (r *CatalogRepository) ListSubjects() ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.DB.Order("name ASC").Find(&subjects).Error
	return subjects, err
}

func (r *CatalogRepository) FindSubject(id uint) (*model.Subject, error) {
	var subject model.Subject
	err := r.DB.First(&subject, id).Error
	return &subject, err
}

func (r *CatalogRepository) FindSubjectBySlug(slug string) (*model.Subject, error) {
	var subject model.Subject
	err := r.DB.Where("slug = ?", slug).First(&subject).Error
	return &subject, err
}

// SubjectSummaries 每个科目的视频总数与免费视频数，onlyWithFree 为 true 时只返回有免费视频的科目
func (r *CatalogRepository) SubjectSummaries(onlyWithFree bool) ([]SubjectSummary, error) {
	var subjects []model.Subject
	if err := r.DB.Order("name ASC").Find(&subjects).Error; err != nil {
		return nil, err
	}

	type countRow struct {
		SubjectID uint
		Total     int64
		Free      int64
	}
	var counts []countRow
	err := r.DB.Model(&model.VideoLesson{}).
		Select("subject_id, COUNT(*) AS total, SUM(CASE WHEN is_free THEN 1 ELSE 0 END) AS free").
		Group("subject_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	bySubject := make(map[uint]countRow, len(counts))
	for _, c := range counts {
		bySubject[c.SubjectID] = c
	}

	out := make([]SubjectSummary, 0, len(subjects))
	for _, s := range subjects {
		c := bySubject[s.ID]
		if onlyWithFree && c.Free == 0 {
			continue
		}
		out = append(out, SubjectSummary{Subject: s, VideoCount: c.Total, FreeVideoCount: c.Free})
	}
	return out, nil
}

func (r *CatalogRepository) videoQuery(filter VideoFilter) *gorm.DB {
	query := r.DB.Model(&model.VideoLesson{})
	if filter.SubjectSlug != "" {
		query = query.Where("video_lessons.subject_id IN (?)",
			r.DB.Model(&model.Subject{}).Select("id").Where("slug = ?", filter.SubjectSlug))
	}
	if filter.ClassLevelSlug != "" {
		query = query.Where("video_lessons.class_level_id IN (?)",
			r.DB.Model(&model.ClassLevel{}).Select("id").Where("slug = ?", filter.ClassLevelSlug))
	}
	if filter.EducationLevelSlug != "" {
		query = query.Where("video_lessons.class_level_id IN (?)",
			r.DB.Model(&model.ClassLevel{}).Select("class_levels.id").
				Joins("JOIN education_levels el ON el.id = class_levels.education_level_id").
				Where("el.slug = ?", filter.EducationLevelSlug))
	}
	if filter.FreeOnly {
		query = query.Where("video_lessons.is_free = ?", true)
	}
	return query
}

func (r *CatalogRepository) ListVideos(filter VideoFilter, offset, limit int) ([]model.VideoLesson, int64, error) {
	var videos []model.VideoLesson
	var total int64

	if err := r.videoQuery(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.videoQuery(filter).Preload("Subject").Preload("ClassLevel").
		Order("video_lessons.subject_id ASC, video_lessons.order_in_subject ASC").
		Offset(offset).Limit(limit).
		Find(&videos).Error
	return videos, total, err
}

func (r *CatalogRepository) FindVideo(id uint) (*model.VideoLesson, error) {
	var video model.VideoLesson
	err := r.DB.Preload("Subject").Preload("ClassLevel").First(&video, id).Error
	return &video, err
}

func (r *CatalogRepository) FindVideoBySlug(slug string) (*model.VideoLesson, error) {
	var video model.VideoLesson
	err := r.DB.Preload("Subject").Preload("ClassLevel").Where("slug = ?", slug).First(&video).Error
	return &video, err
}

// RandomFreeVideos 随机返回最多 limit 个免费视频
func (r *CatalogRepository) RandomFreeVideos(limit int) ([]model.VideoLesson, error) {
	random := "RANDOM()"
	if r.DB.Dialector.Name() == "mysql" {
		random = "RAND()"
	}

	var videos []model.VideoLesson
	err := r.DB.Preload("Subject").Preload("ClassLevel").
		Where("is_free = ?", true).
		Order(random).
		Limit(limit).
		Find(&videos).Error
	return videos, err
}

func (r *CatalogRepository) CountVideosBySubject(subjectID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.VideoLesson{}).Where("subject_id = ?", subjectID).Count(&count).Error
	return count, err
}

// OrderTaken 判断 (subject, class_level, order) 是否已被其他视频占用
func (r *CatalogRepository) OrderTaken(subjectID, classLevelID uint, order int, excludeID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.VideoLesson{}).
		Where("subject_id = ? AND class_level_id = ? AND order_in_subject = ? AND id <> ?", subjectID, classLevelID, order, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *CatalogRepository) UpdateVideoProcessing(id uint, status model.ProcessingStatus, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["processing_status"] = status
	return r.DB.Model(&model.VideoLesson{}).Where("id = ?", id).Updates(updates).Error
}
