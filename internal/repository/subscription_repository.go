package repository

import (
	"errors"
	"prep_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository struct {
	DB *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{DB: db}
}

func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{DB: tx}
}

// ---- 套餐 ----

func (r *SubscriptionRepository) CreatePlan(plan *model.SubscriptionPlan) error {
	return r.DB.Create(plan).Error
}

func (r *SubscriptionRepository) UpdatePlan(plan *model.SubscriptionPlan) error {
	return r.DB.Save(plan).Error
}

func (r *SubscriptionRepository) DeletePlan(id uint) error {
	res := r.DB.Delete(&model.SubscriptionPlan{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *SubscriptionRepository) FindPlan(id uint) (*model.SubscriptionPlan, error) {
	var plan model.SubscriptionPlan
	err := r.DB.First(&plan, id).Error
	return &plan, err
}

func (r *SubscriptionRepository) ListPlans(activeOnly bool) ([]model.SubscriptionPlan, error) {
	var plans []model.SubscriptionPlan
	query := r.DB.Model(&model.SubscriptionPlan{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("price ASC, id ASC").Find(&plans).Error
	return plans, err
}

// ---- 用户订阅 ----

// CreateSubscription 保存时由模型钩子补全结束时间
func (r *SubscriptionRepository) CreateSubscription(sub *model.UserSubscription) error {
	return r.DB.Omit(clause.Associations).Create(sub).Error
}

func (r *SubscriptionRepository) SaveSubscription(sub *model.UserSubscription) error {
	return r.DB.Omit(clause.Associations).Save(sub).Error
}

// LatestActivePaid 最近一条付费套餐的有效订阅，用于判断付费视频权限
func (r *SubscriptionRepository) LatestActivePaid(userID uint) (*model.UserSubscription, error) {
	var sub model.UserSubscription
	err := r.DB.Preload("Plan").
		Joins("JOIN subscription_plans ON subscription_plans.id = user_subscriptions.plan_id").
		Where("user_subscriptions.user_id = ? AND user_subscriptions.is_active = ? AND subscription_plans.price > ?", userID, true, 0).
		Order("user_subscriptions.end_date DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// LatestActive 按 end_date 最晚的激活订阅，没有则返回 nil
func (r *SubscriptionRepository) LatestActive(userID uint) (*model.UserSubscription, error) {
	var sub model.UserSubscription
	err := r.DB.Preload("Plan").
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("end_date DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) ListSubscriptions(userID uint, activeOnly bool, offset, limit int) ([]model.UserSubscription, int64, error) {
	var rows []model.UserSubscription
	var total int64
	query := r.DB.Model(&model.UserSubscription{})
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Plan").Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, total, err
}

// ExpiredActive 结束时间已过但仍标记为激活的订阅
func (r *SubscriptionRepository) ExpiredActive(now time.Time, limit int) ([]model.UserSubscription, error) {
	var rows []model.UserSubscription
	err := r.DB.Preload("Plan").
		Where("is_active = ? AND end_date < ?", true, now).
		Order("end_date ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ---- 兑换码 ----

func (r *SubscriptionRepository) CreateVouchers(vouchers []model.VoucherCode) error {
	return r.DB.Create(&vouchers).Error
}

func (r *SubscriptionRepository) FindVoucher(code string) (*model.VoucherCode, error) {
	var voucher model.VoucherCode
	err := r.DB.Preload("Plan").Where("code = ?", model.NormalizeVoucherCode(code)).First(&voucher).Error
	return &voucher, err
}

// UseVoucher 单条条件更新：未使用且未过期才会标记为已使用，返回是否成功
func (r *SubscriptionRepository) UseVoucher(voucherID, userID uint, now time.Time) (bool, error) {
	res := r.DB.Model(&model.VoucherCode{}).
		Where("id = ? AND is_used = ? AND (expiry_date IS NULL OR expiry_date > ?)", voucherID, false, now).
		Updates(map[string]interface{}{
			"is_used":    true,
			"used_by_id": userID,
			"used_at":    now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *SubscriptionRepository) ListVouchers(planID uint, used *bool, offset, limit int) ([]model.VoucherCode, int64, error) {
	var rows []model.VoucherCode
	var total int64
	query := r.DB.Model(&model.VoucherCode{})
	if planID != 0 {
		query = query.Where("plan_id = ?", planID)
	}
	if used != nil {
		query = query.Where("is_used = ?", *used)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Plan").Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, total, err
}
