package model

import "time"

// UserStreak 连续学习天数
// swagger:model UserStreak
type UserStreak struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"uniqueIndex;not null" json:"userId"`
	CurrentStreakDays int        `gorm:"default:0" json:"currentStreakDays"`
	LongestStreakDays int        `gorm:"default:0" json:"longestStreakDays"`
	LastActivityDate  *time.Time `json:"lastActivityDate"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (UserStreak) TableName() string {
	return "user_streaks"
}

// Touch 记录一次当天的活动，返回是否发生了变化。
// 同一天重复调用不变；昨天有活动则 +1；间隔更久重置为 1。
func (s *UserStreak) Touch(now time.Time) bool {
	today := StartOfDay(now)

	if s.LastActivityDate != nil {
		last := StartOfDay(s.LastActivityDate.In(now.Location()))
		switch {
		case last.Equal(today):
			return false
		case last.AddDate(0, 0, 1).Equal(today):
			s.CurrentStreakDays++
		default:
			s.CurrentStreakDays = 1
		}
	} else {
		s.CurrentStreakDays = 1
	}

	if s.CurrentStreakDays > s.LongestStreakDays {
		s.LongestStreakDays = s.CurrentStreakDays
	}
	s.LastActivityDate = &today
	return true
}

type PointsAction string

const (
	ActionLogin           PointsAction = "login"
	ActionVideoWatch      PointsAction = "video_watch"
	ActionCompleteVideo   PointsAction = "complete_video"
	ActionStreakMilestone PointsAction = "streak_milestone"
)

// PointsRule 积分规则
// swagger:model PointsRule
type PointsRule struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	ActionType  PointsAction `gorm:"size:30;uniqueIndex;not null" json:"actionType"`
	Points      int          `gorm:"not null" json:"points"`
	Description string       `gorm:"size:255" json:"description"`
	IsActive    bool         `json:"isActive"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func (PointsRule) TableName() string {
	return "points_rules"
}

// UserPoints 积分账户，始终满足 available = total - redeemed
// swagger:model UserPoints
type UserPoints struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"uniqueIndex;not null" json:"userId"`
	TotalPoints     int       `gorm:"default:0" json:"totalPoints"`
	RedeemedPoints  int       `gorm:"default:0" json:"redeemedPoints"`
	AvailablePoints int       `gorm:"default:0" json:"availablePoints"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (UserPoints) TableName() string {
	return "user_points"
}

// Credit 增加积分
func (p *UserPoints) Credit(points int) {
	p.TotalPoints += points
	p.AvailablePoints += points
}

// Debit 扣减可用积分，余额不足时返回 false 且不修改
func (p *UserPoints) Debit(points int) bool {
	if points > p.AvailablePoints {
		return false
	}
	p.RedeemedPoints += points
	p.AvailablePoints -= points
	return true
}

type TransactionType string

const (
	TransactionEarned   TransactionType = "earned"
	TransactionRedeemed TransactionType = "redeemed"
)

const (
	DefaultEarnReason   = "Points earned"
	DefaultRedeemReason = "Points redeemed"
)

// PointsTransaction 积分流水，只追加
// swagger:model PointsTransaction
type PointsTransaction struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          uint            `gorm:"index;not null" json:"userId"`
	Points          int             `gorm:"not null" json:"points"`
	TransactionType TransactionType `gorm:"size:10;not null" json:"transactionType"`
	Reason          string          `gorm:"size:255" json:"reason"`
	VideoID         *uint           `gorm:"index" json:"videoId,omitempty"`
	CreatedAt       time.Time       `gorm:"index" json:"createdAt"`
}

func (PointsTransaction) TableName() string {
	return "points_transactions"
}

type RewardType string

const (
	RewardData         RewardType = "data"
	RewardSubscription RewardType = "subscription"
	RewardOther        RewardType = "other"
)

// swagger:model Reward
type Reward struct {
	BaseModel
	Name           string     `gorm:"size:100;not null" json:"name"`
	RewardType     RewardType `gorm:"size:20;not null" json:"rewardType"`
	Description    string     `gorm:"type:text" json:"description"`
	PointsRequired int        `gorm:"not null" json:"pointsRequired"`
	IsActive       bool       `json:"isActive"`
}

func (Reward) TableName() string {
	return "rewards"
}

type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "pending"
	RedemptionApproved  RedemptionStatus = "approved"
	RedemptionDelivered RedemptionStatus = "delivered"
	RedemptionRejected  RedemptionStatus = "rejected"
)

func (s RedemptionStatus) Valid() bool {
	switch s {
	case RedemptionPending, RedemptionApproved, RedemptionDelivered, RedemptionRejected:
		return true
	}
	return false
}

// swagger:model RewardRedemption
type RewardRedemption struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	UserID        uint             `gorm:"index;not null" json:"userId"`
	User          *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	RewardID      uint             `gorm:"index;not null" json:"rewardId"`
	Reward        *Reward          `gorm:"foreignKey:RewardID" json:"reward,omitempty"`
	PointsSpent   int              `gorm:"not null" json:"pointsSpent"`
	Status        RedemptionStatus `gorm:"size:10;default:'pending'" json:"status"`
	RecipientInfo string           `gorm:"size:255" json:"recipientInfo"`
	Notes         string           `gorm:"type:text" json:"notes"`
	Refunded      bool             `gorm:"default:false" json:"refunded"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

func (RewardRedemption) TableName() string {
	return "reward_redemptions"
}
