package repository

import (
	"errors"
	"prep_backend/internal/model"

	"gorm.io/gorm"
)

type StreakRepository struct {
	DB *gorm.DB
}

// NewStreakRepository 创建连续天数仓库实例
func NewStreakRepository(db *gorm.DB) *StreakRepository {
	return &StreakRepository{DB: db}
}

// FindByUser 获取用户的连续天数记录，缺失时补建
func (r *StreakRepository) FindByUser(userID uint) (*model.UserStreak, error) {
	var streak model.UserStreak
	err := r.DB.Where("user_id = ?", userID).First(&streak).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		streak = model.UserStreak{UserID: userID}
		err = r.DB.Create(&streak).Error
	}
	if err != nil {
		return nil, err
	}
	return &streak, nil
}

// SaveCounters 只写入连续天数相关字段
func (r *StreakRepository) SaveCounters(streak *model.UserStreak) error {
	return r.DB.Model(streak).
		Select("current_streak_days", "longest_streak_days", "last_activity_date").
		Updates(streak).Error
}
