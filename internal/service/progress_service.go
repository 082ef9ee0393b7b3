package service

import (
	"errors"
	"prep_backend/internal/model"
	"prep_backend/internal/repository"
	"prep_backend/internal/util"

	"gorm.io/gorm"
)

// ProgressEvent 进度更新结果，由控制器转交积分服务
type ProgressEvent struct {
	UserID          uint
	VideoID         uint
	VideoTitle      string
	Created         bool
	Completed       bool
	WatchedDuration int
}

type ProgressDashboard struct {
	TotalWatched   int64 `json:"totalWatched"`
	TotalCompleted int64 `json:"totalCompleted"`
}

type PerformanceStats struct {
	VideosWatched       int64   `json:"videosWatched"`
	VideosCompleted     int64   `json:"videosCompleted"`
	CompletionRate      float64 `json:"completionRate"`
	AverageWatchSeconds float64 `json:"averageWatchSeconds"`
}

type TimeSpent struct {
	TotalSeconds int64   `json:"totalSeconds"`
	TotalMinutes float64 `json:"totalMinutes"`
	TotalHours   float64 `json:"totalHours"`
}

type ProgressService struct {
	ProgressRepo *repository.ProgressRepository
	CatalogRepo  *repository.CatalogRepository
}

func NewProgressService(progressRepo *repository.ProgressRepository, catalogRepo *repository.CatalogRepository) *ProgressService {
	return &ProgressService{
		ProgressRepo: progressRepo,
		CatalogRepo:  catalogRepo,
	}
}

// RecordProgress 更新播放位置并返回本次事件；duration 为 0 时使用视频自身时长
func (s *ProgressService) RecordProgress(userID, videoID uint, position, duration int) (*model.ViewHistory, *ProgressEvent, error) {
	video, err := s.CatalogRepo.FindVideo(videoID)
	if err != nil {
		return nil, nil, notFound(err, util.ErrVideoNotFound)
	}
	if duration <= 0 {
		duration = video.Duration
	}

	history, created, err := s.ProgressRepo.GetOrCreateHistory(userID, videoID)
	if err != nil {
		return nil, nil, err
	}
	history.UpdateWatchProgress(position, duration)
	if err := s.ProgressRepo.SaveProgress(history); err != nil {
		return nil, nil, err
	}

	event := &ProgressEvent{
		UserID:          userID,
		VideoID:         videoID,
		VideoTitle:      video.Title,
		Created:         created,
		Completed:       history.IsCompleted,
		WatchedDuration: history.WatchedDuration,
	}
	return history, event, nil
}

// GetProgress 没有观看记录时返回零值记录
func (s *ProgressService) GetProgress(userID, videoID uint) (*model.ViewHistory, error) {
	if _, err := s.CatalogRepo.FindVideo(videoID); err != nil {
		return nil, notFound(err, util.ErrVideoNotFound)
	}
	history, err := s.ProgressRepo.FindHistory(userID, videoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.ViewHistory{UserID: userID, VideoID: videoID}, nil
	}
	return history, err
}

func (s *ProgressService) AddBookmark(userID, videoID uint) (*model.Bookmark, error) {
	if _, err := s.CatalogRepo.FindVideo(videoID); err != nil {
		return nil, notFound(err, util.ErrVideoNotFound)
	}
	return s.ProgressRepo.AddBookmark(userID, videoID)
}

func (s *ProgressService) RemoveBookmark(userID, videoID uint) error {
	removed, err := s.ProgressRepo.RemoveBookmark(userID, videoID)
	if err != nil {
		return err
	}
	if !removed {
		return util.ErrNotFound
	}
	return nil
}

func (s *ProgressService) Bookmarks(userID uint) ([]model.Bookmark, error) {
	return s.ProgressRepo.ListBookmarks(userID, 0)
}

func (s *ProgressService) Dashboard(userID uint) (*ProgressDashboard, error) {
	watched, err := s.ProgressRepo.CountWatched(userID)
	if err != nil {
		return nil, err
	}
	completed, err := s.ProgressRepo.CountCompleted(userID)
	if err != nil {
		return nil, err
	}
	return &ProgressDashboard{TotalWatched: watched, TotalCompleted: completed}, nil
}

func (s *ProgressService) SubjectProgress(userID uint, slug string) (*repository.SubjectProgress, error) {
	subject, err := s.CatalogRepo.FindSubjectBySlug(slug)
	if err != nil {
		return nil, notFound(err, util.ErrSubjectNotFound)
	}
	rows, err := s.ProgressRepo.SubjectProgress(userID, subject.ID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &repository.SubjectProgress{SubjectID: subject.ID, SubjectName: subject.Name, SubjectSlug: subject.Slug}, nil
	}
	return &rows[0], nil
}

func (s *ProgressService) RecentActivity(userID uint) ([]model.ViewHistory, error) {
	return s.ProgressRepo.RecentHistory(userID, util.RecentActivityLimit)
}

// CurrentVideo 没有进行中的视频时返回 nil
func (s *ProgressService) CurrentVideo(userID uint) (*model.ViewHistory, error) {
	history, err := s.ProgressRepo.CurrentVideo(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return history, err
}

func (s *ProgressService) Performance(userID uint) (*PerformanceStats, error) {
	dash, err := s.Dashboard(userID)
	if err != nil {
		return nil, err
	}
	_, avg, err := s.ProgressRepo.WatchTotals(userID)
	if err != nil {
		return nil, err
	}
	stats := &PerformanceStats{
		VideosWatched:       dash.TotalWatched,
		VideosCompleted:     dash.TotalCompleted,
		AverageWatchSeconds: avg,
	}
	if dash.TotalWatched > 0 {
		stats.CompletionRate = float64(dash.TotalCompleted) / float64(dash.TotalWatched)
	}
	return stats, nil
}

func (s *ProgressService) TimeSpent(userID uint) (*TimeSpent, error) {
	sum, _, err := s.ProgressRepo.WatchTotals(userID)
	if err != nil {
		return nil, err
	}
	return &TimeSpent{
		TotalSeconds: sum,
		TotalMinutes: float64(sum) / 60,
		TotalHours:   float64(sum) / 3600,
	}, nil
}

// SubjectStrengths 每个科目的完成比例，只包含有视频的科目
func (s *ProgressService) SubjectStrengths(userID uint) ([]repository.SubjectProgress, error) {
	rows, err := s.ProgressRepo.SubjectProgress(userID, 0)
	if err != nil {
		return nil, err
	}
	out := make([]repository.SubjectProgress, 0, len(rows))
	for _, r := range rows {
		if r.Total > 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

// Recommendations 最多推荐 3 个尚未完成任何视频的科目
func (s *ProgressService) Recommendations(userID uint) ([]repository.SubjectProgress, error) {
	rows, err := s.ProgressRepo.SubjectProgress(userID, 0)
	if err != nil {
		return nil, err
	}
	out := make([]repository.SubjectProgress, 0, util.RecommendationLimit)
	for _, r := range rows {
		if r.Total > 0 && r.Completed == 0 {
			out = append(out, r)
			if len(out) == util.RecommendationLimit {
				break
			}
		}
	}
	return out, nil
}
