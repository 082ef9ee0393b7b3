package model

import "time"

// CompletionRatio 观看位置达到时长的 90% 即视为完成
const CompletionRatio = 0.9

// Bookmark 收藏，(user, video) 唯一
// swagger:model Bookmark
type Bookmark struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	UserID    uint         `gorm:"not null;uniqueIndex:idx_bookmark_user_video" json:"userId"`
	VideoID   uint         `gorm:"not null;uniqueIndex:idx_bookmark_user_video" json:"videoId"`
	Video     *VideoLesson `gorm:"foreignKey:VideoID" json:"video,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

func (Bookmark) TableName() string {
	return "bookmarks"
}

// ViewHistory 观看进度，(user, video) 唯一
// swagger:model ViewHistory
type ViewHistory struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	UserID          uint         `gorm:"not null;uniqueIndex:idx_history_user_video" json:"userId"`
	VideoID         uint         `gorm:"not null;uniqueIndex:idx_history_user_video" json:"videoId"`
	Video           *VideoLesson `gorm:"foreignKey:VideoID" json:"video,omitempty"`
	LastPosition    int          `gorm:"default:0" json:"lastPosition"`
	WatchedDuration int          `gorm:"default:0" json:"watchedDuration"`
	IsCompleted     bool         `gorm:"default:false" json:"isCompleted"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `gorm:"index" json:"updatedAt"`
}

func (ViewHistory) TableName() string {
	return "view_histories"
}

// UpdateWatchProgress 更新播放位置；已观看时长只增不减，完成标记一旦置位不再清除
func (h *ViewHistory) UpdateWatchProgress(position, duration int) {
	if position < 0 {
		position = 0
	}
	h.LastPosition = position
	if position > h.WatchedDuration {
		h.WatchedDuration = position
	}
	if ReachesCompletion(position, duration) {
		h.IsCompleted = true
	}
}

// ReachesCompletion position >= 0.9 * duration，时长未知时不判定完成
func ReachesCompletion(position, duration int) bool {
	if duration <= 0 {
		return false
	}
	return float64(position) >= CompletionRatio*float64(duration)
}
