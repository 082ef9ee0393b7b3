package repository

import (
	"prep_backend/internal/model"
	"prep_backend/internal/util"

	"gorm.io/gorm"
)

type RewardRepository struct {
	DB *gorm.DB
}

func NewRewardRepository(db *gorm.DB) *RewardRepository {
	return &RewardRepository{DB: db}
}

func (r *RewardRepository) WithTx(tx *gorm.DB) *RewardRepository {
	return &RewardRepository{DB: tx}
}

func (r *RewardRepository) Create(reward *model.Reward) error {
	return r.DB.Create(reward).Error
}

func (r *RewardRepository) Update(reward *model.Reward) error {
	return r.DB.Save(reward).Error
}

func (r *RewardRepository) Delete(id uint) error {
	res := r.DB.Delete(&model.Reward{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *RewardRepository) FindByID(id uint) (*model.Reward, error) {
	var reward model.Reward
	err := r.DB.First(&reward, id).Error
	return &reward, err
}

// List activeOnly 为 true 时只返回启用的奖励
func (r *RewardRepository) List(activeOnly bool) ([]model.Reward, error) {
	var rewards []model.Reward
	query := r.DB.Model(&model.Reward{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("points_required ASC, id ASC").Find(&rewards).Error
	return rewards, err
}

func (r *RewardRepository) CreateRedemption(redemption *model.RewardRedemption) error {
	return r.DB.Create(redemption).Error
}

func (r *RewardRepository) FindRedemption(id uint) (*model.RewardRedemption, error) {
	var redemption model.RewardRedemption
	err := r.DB.Preload("Reward").Preload("User").First(&redemption, id).Error
	return &redemption, err
}

func (r *RewardRepository) UserRedemptions(userID uint) ([]model.RewardRedemption, error) {
	var rows []model.RewardRedemption
	err := r.DB.Preload("Reward").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *RewardRepository) ListRedemptions(status model.RedemptionStatus, offset, limit int) ([]model.RewardRedemption, int64, error) {
	var rows []model.RewardRedemption
	var total int64
	query := r.DB.Model(&model.RewardRedemption{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Reward").Preload("User").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

// TransitionStatus 更新兑换状态，返回本次是否需要退还积分。
// 退款后 refunded 置为 true，此后状态固定为 rejected，只允许修改备注。
func (r *RewardRepository) TransitionStatus(id uint, status model.RedemptionStatus, notes *string) (refund bool, err error) {
	updates := map[string]interface{}{"status": status}
	if notes != nil {
		updates["notes"] = *notes
	}
	if status == model.RedemptionRejected {
		updates["refunded"] = true
	}

	res := r.DB.Model(&model.RewardRedemption{}).
		Where("id = ? AND refunded = ?", id, false).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return status == model.RedemptionRejected, nil
	}

	// 已退款：重复 rejected 只更新备注，其它状态拒绝
	if status != model.RedemptionRejected {
		return false, util.ErrRedemptionFinal
	}
	if notes != nil {
		err = r.DB.Model(&model.RewardRedemption{}).Where("id = ?", id).Update("notes", *notes).Error
	}
	return false, err
}
