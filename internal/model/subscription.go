package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PlanType string

const (
	PlanFree     PlanType = "free"
	PlanStandard PlanType = "standard"
	PlanScholar  PlanType = "scholar"
)

func (t PlanType) Valid() bool {
	switch t {
	case PlanFree, PlanStandard, PlanScholar:
		return true
	}
	return false
}

const (
	DefaultPlanDurationDays = 30
	DefaultPlanVideoLimit   = 5
)

// swagger:model SubscriptionPlan
type SubscriptionPlan struct {
	BaseModel
	Name         string   `gorm:"size:100;not null" json:"name"`
	PlanType     PlanType `gorm:"size:20;not null" json:"planType"`
	Description  string   `gorm:"type:text" json:"description"`
	Price        float64  `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	DurationDays int      `gorm:"not null;default:30" json:"durationDays"`
	VideoLimit   int      `gorm:"not null;default:5" json:"videoLimit"`
	IsActive     bool     `json:"isActive"`
}

func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

func (p *SubscriptionPlan) IsFree() bool {
	return p.Price <= 0
}

// VoucherCode 单次使用的兑换码
// swagger:model VoucherCode
type VoucherCode struct {
	BaseModel
	Code       string            `gorm:"size:20;uniqueIndex;not null" json:"code"`
	PlanID     uint              `gorm:"index;not null" json:"planId"`
	Plan       *SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	IsUsed     bool              `gorm:"default:false" json:"isUsed"`
	UsedByID   *uint             `gorm:"index" json:"usedById,omitempty"`
	UsedAt     *time.Time        `json:"usedAt,omitempty"`
	ExpiryDate *time.Time        `json:"expiryDate,omitempty"`
}

func (VoucherCode) TableName() string {
	return "voucher_codes"
}

// NormalizeVoucherCode 兑换码统一为大写去空格
func NormalizeVoucherCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValid 未使用且未过期
func (v *VoucherCode) IsValid(now time.Time) bool {
	if v.IsUsed {
		return false
	}
	return v.ExpiryDate == nil || v.ExpiryDate.After(now)
}

// swagger:model UserSubscription
type UserSubscription struct {
	BaseModel
	UserID           uint              `gorm:"index;not null" json:"userId"`
	PlanID           uint              `gorm:"index;not null" json:"planId"`
	Plan             *SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	StartDate        time.Time         `gorm:"not null" json:"startDate"`
	EndDate          *time.Time        `gorm:"index" json:"endDate"`
	IsActive         bool              `json:"isActive"`
	PaymentReference string            `gorm:"size:100;index" json:"paymentReference,omitempty"`
	VoucherID        *uint             `gorm:"index" json:"voucherId,omitempty"`
}

func (UserSubscription) TableName() string {
	return "user_subscriptions"
}

// ApplyWindow 未设置结束时间时按套餐时长补全；已过期则强制置为非激活
func (s *UserSubscription) ApplyWindow(durationDays int, now time.Time) {
	if s.EndDate == nil {
		if durationDays <= 0 {
			durationDays = DefaultPlanDurationDays
		}
		end := s.StartDate.AddDate(0, 0, durationDays)
		s.EndDate = &end
	}
	if s.EndDate.Before(now) {
		s.IsActive = false
	}
}

// CoversTime start <= t <= end 且处于激活状态
func (s *UserSubscription) CoversTime(t time.Time) bool {
	if !s.IsActive || s.EndDate == nil {
		return false
	}
	return !t.Before(s.StartDate) && !t.After(*s.EndDate)
}

// BeforeSave 每次保存都重新计算有效期
func (s *UserSubscription) BeforeSave(tx *gorm.DB) error {
	duration := 0
	if s.EndDate == nil {
		if s.Plan != nil && s.Plan.ID == s.PlanID {
			duration = s.Plan.DurationDays
		} else {
			var plan SubscriptionPlan
			if err := tx.Session(&gorm.Session{NewDB: true}).Unscoped().First(&plan, s.PlanID).Error; err != nil {
				return err
			}
			duration = plan.DurationDays
		}
	}
	s.ApplyWindow(duration, time.Now())
	return nil
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// swagger:model Payment
type Payment struct {
	BaseModel
	UserID          uint              `gorm:"index;not null" json:"userId"`
	PlanID          uint              `gorm:"index;not null" json:"planId"`
	Plan            *SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Amount          float64           `gorm:"type:decimal(10,2);not null" json:"amount"`
	Reference       string            `gorm:"size:100;uniqueIndex;not null" json:"reference"`
	Gateway         string            `gorm:"size:20" json:"gateway"`
	Status          PaymentStatus     `gorm:"size:10;default:'pending'" json:"status"`
	GatewayResponse datatypes.JSON    `json:"gatewayResponse,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}
