package service

import (
	"prep_backend/internal/config"
	"prep_backend/internal/model"
	"prep_backend/internal/repository"
	"prep_backend/internal/util"
	"sync"
	"time"
)

type DashboardService struct {
	ProgressRepo *repository.ProgressRepository
	StreakRepo   *repository.StreakRepository
	PointsRepo   *repository.PointsRepository
	SubService   *SubscriptionService
	StatsRepo    *repository.DashboardRepository

	mu  sync.RWMutex
	cfg *config.Config
}

func NewDashboardService(
	progressRepo *repository.ProgressRepository,
	streakRepo *repository.StreakRepository,
	pointsRepo *repository.PointsRepository,
	subService *SubscriptionService,
	statsRepo *repository.DashboardRepository,
	cfg *config.Config,
) *DashboardService {
	return &DashboardService{
		ProgressRepo: progressRepo,
		StreakRepo:   streakRepo,
		PointsRepo:   pointsRepo,
		SubService:   subService,
		StatsRepo:    statsRepo,
		cfg:          cfg,
	}
}

// Dashboard 学生首页数据
type Dashboard struct {
	TotalVideosWatched   int64                   `json:"totalVideosWatched"`
	TotalVideosCompleted int64                   `json:"totalVideosCompleted"`
	CurrentStreak        int                     `json:"currentStreak"`
	LongestStreak        int                     `json:"longestStreak"`
	TotalPoints          int                     `json:"totalPoints"`
	AvailablePoints      int                     `json:"availablePoints"`
	Bookmarks            []VideoView             `json:"bookmarks"`
	RecentVideos         []VideoView             `json:"recentVideos"`
	Subscription         *model.UserSubscription `json:"subscription"`
}

// PlatformSettings 管理端只读的平台设置
type PlatformSettings struct {
	SiteName        string `json:"siteName"`
	SupportEmail    string `json:"supportEmail"`
	MaintenanceMode bool   `json:"maintenanceMode"`
	PaymentGateway  string `json:"paymentGateway"`
	Currency        string `json:"currency"`
	StorageType     string `json:"storageType"`
}

func (s *DashboardService) GetUserDashboard(userID uint) (*Dashboard, error) {
	watched, err := s.ProgressRepo.CountWatched(userID)
	if err != nil {
		return nil, err
	}
	completed, err := s.ProgressRepo.CountCompleted(userID)
	if err != nil {
		return nil, err
	}

	streak, err := s.StreakRepo.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	points, err := s.PointsRepo.Balance(userID)
	if err != nil {
		return nil, err
	}

	// 最近收藏与观看各取 10 条
	bookmarks, err := s.ProgressRepo.ListBookmarks(userID, util.DashboardListLimit)
	if err != nil {
		return nil, err
	}
	history, err := s.ProgressRepo.RecentHistory(userID, util.DashboardListLimit)
	if err != nil {
		return nil, err
	}

	sub, err := s.SubService.Current(userID)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		TotalVideosWatched:   watched,
		TotalVideosCompleted: completed,
		CurrentStreak:        streak.CurrentStreakDays,
		LongestStreak:        streak.LongestStreakDays,
		TotalPoints:          points.TotalPoints,
		AvailablePoints:      points.AvailablePoints,
		Bookmarks:            make([]VideoView, 0, len(bookmarks)),
		RecentVideos:         make([]VideoView, 0, len(history)),
		Subscription:         sub,
	}
	for _, b := range bookmarks {
		if b.Video != nil {
			d.Bookmarks = append(d.Bookmarks, NewVideoView(*b.Video))
		}
	}
	for _, h := range history {
		if h.Video != nil {
			d.RecentVideos = append(d.RecentVideos, NewVideoView(*h.Video))
		}
	}
	return d, nil
}

// UpdateConfig 配置热加载后替换设置来源
func (s *DashboardService) UpdateConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *DashboardService) Settings() PlatformSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return PlatformSettings{
		SiteName:        s.cfg.Platform.SiteName,
		SupportEmail:    s.cfg.Platform.SupportEmail,
		MaintenanceMode: s.cfg.Platform.MaintenanceMode,
		PaymentGateway:  s.cfg.Payment.Gateway,
		Currency:        s.cfg.Payment.Currency,
		StorageType:     s.cfg.Storage.Type,
	}
}

// PlatformStats 管理端概览
func (s *DashboardService) PlatformStats() (*repository.PlatformStats, error) {
	return s.StatsRepo.PlatformStats(time.Now())
}
