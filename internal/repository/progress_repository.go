package repository

import (
	"errors"
	"prep_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// SubjectProgress 单个科目的完成情况
type SubjectProgress struct {
	SubjectID   uint    `json:"subjectId"`
	SubjectName string  `json:"subjectName"`
	SubjectSlug string  `json:"subjectSlug"`
	Total       int64   `json:"total"`
	Completed   int64   `json:"completed"`
	Ratio       float64 `json:"ratio"`
}

// FindHistory 查找观看记录，不存在返回 gorm.ErrRecordNotFound
func (r *ProgressRepository) FindHistory(userID, videoID uint) (*model.ViewHistory, error) {
	var h model.ViewHistory
	err := r.DB.Where("user_id = ? AND video_id = ?", userID, videoID).First(&h).Error
	return &h, err
}

// GetOrCreateHistory 返回观看记录以及是否为新建
func (r *ProgressRepository) GetOrCreateHistory(userID, videoID uint) (*model.ViewHistory, bool, error) {
	h, err := r.FindHistory(userID, videoID)
	if err == nil {
		return h, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	h = &model.ViewHistory{UserID: userID, VideoID: videoID}
	if err := r.DB.Create(h).Error; err != nil {
		// 并发创建时唯一索引冲突，重新读取
		existing, findErr := r.FindHistory(userID, videoID)
		if findErr != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return h, true, nil
}

// SaveProgress 写入进度：已观看时长只增不减，完成标记只会被置为 true
func (r *ProgressRepository) SaveProgress(h *model.ViewHistory) error {
	updates := map[string]interface{}{
		"last_position":    h.LastPosition,
		"watched_duration": gorm.Expr("CASE WHEN watched_duration < ? THEN ? ELSE watched_duration END", h.WatchedDuration, h.WatchedDuration),
		"updated_at":       time.Now(),
	}
	if h.IsCompleted {
		updates["is_completed"] = true
	}
	if err := r.DB.Model(&model.ViewHistory{}).Where("id = ?", h.ID).Updates(updates).Error; err != nil {
		return err
	}
	return r.DB.First(h, h.ID).Error
}

func (r *ProgressRepository) RecentHistory(userID uint, limit int) ([]model.ViewHistory, error) {
	var rows []model.ViewHistory
	err := r.DB.Preload("Video").Preload("Video.Subject").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// CurrentVideo 最近更新且未完成的观看记录
func (r *ProgressRepository) CurrentVideo(userID uint) (*model.ViewHistory, error) {
	var h model.ViewHistory
	err := r.DB.Preload("Video").Preload("Video.Subject").
		Where("user_id = ? AND is_completed = ?", userID, false).
		Order("updated_at DESC").
		First(&h).Error
	return &h, err
}

func (r *ProgressRepository) CountWatched(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.ViewHistory{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *ProgressRepository) CountCompleted(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.ViewHistory{}).
		Where("user_id = ? AND is_completed = ?", userID, true).
		Count(&count).Error
	return count, err
}

// WatchTotals 返回总观看秒数与平均观看秒数
func (r *ProgressRepository) WatchTotals(userID uint) (sum int64, avg float64, err error) {
	var row struct {
		Total   int64
		Average float64
	}
	err = r.DB.Model(&model.ViewHistory{}).
		Select("COALESCE(SUM(watched_duration), 0) AS total, COALESCE(AVG(watched_duration), 0) AS average").
		Where("user_id = ?", userID).
		Scan(&row).Error
	return row.Total, row.Average, err
}

// SubjectProgress 按科目统计视频总数与用户完成数，subjectID 为 0 时统计全部科目
func (r *ProgressRepository) SubjectProgress(userID, subjectID uint) ([]SubjectProgress, error) {
	var rows []SubjectProgress
	query := r.DB.Table("subjects").
		Select(`subjects.id AS subject_id, subjects.name AS subject_name, subjects.slug AS subject_slug,
			COUNT(video_lessons.id) AS total,
			COUNT(view_histories.id) AS completed`).
		Joins("LEFT JOIN video_lessons ON video_lessons.subject_id = subjects.id AND video_lessons.deleted_at IS NULL").
		Joins("LEFT JOIN view_histories ON view_histories.video_id = video_lessons.id AND view_histories.user_id = ? AND view_histories.is_completed = ?", userID, true).
		Where("subjects.deleted_at IS NULL")
	if subjectID != 0 {
		query = query.Where("subjects.id = ?", subjectID)
	}
	err := query.Group("subjects.id, subjects.name, subjects.slug").
		Order("subjects.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Total > 0 {
			rows[i].Ratio = float64(rows[i].Completed) / float64(rows[i].Total)
		}
	}
	return rows, nil
}

// AddBookmark 重复收藏不报错
func (r *ProgressRepository) AddBookmark(userID, videoID uint) (*model.Bookmark, error) {
	var b model.Bookmark
	err := r.DB.Where(model.Bookmark{UserID: userID, VideoID: videoID}).FirstOrCreate(&b).Error
	return &b, err
}

func (r *ProgressRepository) RemoveBookmark(userID, videoID uint) (bool, error) {
	res := r.DB.Where("user_id = ? AND video_id = ?", userID, videoID).Delete(&model.Bookmark{})
	return res.RowsAffected > 0, res.Error
}

func (r *ProgressRepository) IsBookmarked(userID, videoID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Bookmark{}).Where("user_id = ? AND video_id = ?", userID, videoID).Count(&count).Error
	return count > 0, err
}

func (r *ProgressRepository) ListBookmarks(userID uint, limit int) ([]model.Bookmark, error) {
	var rows []model.Bookmark
	query := r.DB.Preload("Video").Preload("Video.Subject").
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&rows).Error
	return rows, err
}
