package repository

import (
	"prep_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

// PlatformStats 管理端概览统计
type PlatformStats struct {
	TotalStudents       int64   `json:"totalStudents"`
	NewStudentsThisWeek int64   `json:"newStudentsThisWeek"`
	TotalVideos         int64   `json:"totalVideos"`
	FreeVideos          int64   `json:"freeVideos"`
	ActiveSubscriptions int64   `json:"activeSubscriptions"`
	SuccessfulPayments  int64   `json:"successfulPayments"`
	Revenue             float64 `json:"revenue"`
	CompletedViews      int64   `json:"completedViews"`
	PendingRedemptions  int64   `json:"pendingRedemptions"`
}

type DashboardRepository struct {
	DB *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) *DashboardRepository {
	return &DashboardRepository{DB: db}
}

func (r *DashboardRepository) count(value interface{}, query string, args ...interface{}) (int64, error) {
	var n int64
	q := r.DB.Model(value)
	if query != "" {
		q = q.Where(query, args...)
	}
	err := q.Count(&n).Error
	return n, err
}

// PlatformStats now 用于计算本周新增和有效订阅
func (r *DashboardRepository) PlatformStats(now time.Time) (*PlatformStats, error) {
	var (
		stats PlatformStats
		err   error
	)
	weekAgo := now.AddDate(0, 0, -7)

	if stats.TotalStudents, err = r.count(&model.User{}, "role = ?", model.Student); err != nil {
		return nil, err
	}
	if stats.NewStudentsThisWeek, err = r.count(&model.User{}, "role = ? AND created_at >= ?", model.Student, weekAgo); err != nil {
		return nil, err
	}
	if stats.TotalVideos, err = r.count(&model.VideoLesson{}, ""); err != nil {
		return nil, err
	}
	if stats.FreeVideos, err = r.count(&model.VideoLesson{}, "is_free = ?", true); err != nil {
		return nil, err
	}
	if stats.ActiveSubscriptions, err = r.count(&model.UserSubscription{}, "is_active = ? AND end_date >= ?", true, now); err != nil {
		return nil, err
	}
	if stats.SuccessfulPayments, err = r.count(&model.Payment{}, "status = ?", model.PaymentSuccess); err != nil {
		return nil, err
	}
	if stats.CompletedViews, err = r.count(&model.ViewHistory{}, "is_completed = ?", true); err != nil {
		return nil, err
	}
	if stats.PendingRedemptions, err = r.count(&model.RewardRedemption{}, "status = ?", model.RedemptionPending); err != nil {
		return nil, err
	}

	err = r.DB.Model(&model.Payment{}).
		Where("status = ?", model.PaymentSuccess).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.Revenue).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
