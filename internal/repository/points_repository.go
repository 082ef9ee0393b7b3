package repository

import (
	"errors"
	"prep_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type PointsRepository struct {
	DB *gorm.DB
}

func NewPointsRepository(db *gorm.DB) *PointsRepository {
	return &PointsRepository{DB: db}
}

// WithTx 返回绑定到事务的仓库
func (r *PointsRepository) WithTx(tx *gorm.DB) *PointsRepository {
	return &PointsRepository{DB: tx}
}

func (r *PointsRepository) Balance(userID uint) (*model.UserPoints, error) {
	var points model.UserPoints
	err := r.DB.Where("user_id = ?", userID).First(&points).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		points = model.UserPoints{UserID: userID}
		err = r.DB.Create(&points).Error
	}
	if err != nil {
		return nil, err
	}
	return &points, nil
}

// AddPoints 增加总积分与可用积分并写入 earned 流水
func (r *PointsRepository) AddPoints(userID uint, amount int, reason string, videoID *uint) (*model.PointsTransaction, error) {
	if reason == "" {
		reason = model.DefaultEarnReason
	}
	entry := &model.PointsTransaction{
		UserID:          userID,
		Points:          amount,
		TransactionType: model.TransactionEarned,
		Reason:          reason,
		VideoID:         videoID,
	}
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := (&PointsRepository{DB: tx}).Balance(userID); err != nil {
			return err
		}
		if err := tx.Model(&model.UserPoints{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
			"total_points":     gorm.Expr("total_points + ?", amount),
			"available_points": gorm.Expr("available_points + ?", amount),
		}).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// RedeemPoints 可用积分不足时返回 (nil, false, nil)，不修改任何数据
func (r *PointsRepository) RedeemPoints(userID uint, amount int, reason string) (*model.PointsTransaction, bool, error) {
	if reason == "" {
		reason = model.DefaultRedeemReason
	}
	var entry *model.PointsTransaction
	ok := false
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.UserPoints{}).
			Where("user_id = ? AND available_points >= ?", userID, amount).
			Updates(map[string]interface{}{
				"redeemed_points":  gorm.Expr("redeemed_points + ?", amount),
				"available_points": gorm.Expr("available_points - ?", amount),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		entry = &model.PointsTransaction{
			UserID:          userID,
			Points:          amount,
			TransactionType: model.TransactionRedeemed,
			Reason:          reason,
		}
		ok = true
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, false, err
	}
	return entry, ok, nil
}

// HasVideoTransaction 判断某视频是否已有以 reasonPrefix 开头的 earned 流水
// HasEarnedSince since 之后是否已有同一原因的入账
func (r *PointsRepository) HasEarnedSince(userID uint, reason string, since time.Time) (bool, error) {
	var count int64
	err := r.DB.Model(&model.PointsTransaction{}).
		Where("user_id = ? AND transaction_type = ? AND reason = ? AND created_at >= ?",
			userID, model.TransactionEarned, reason, since).
		Count(&count).Error
	return count > 0, err
}

func (r *PointsRepository) HasVideoTransaction(userID, videoID uint, reasonPrefix string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.PointsTransaction{}).
		Where("user_id = ? AND video_id = ? AND transaction_type = ? AND reason LIKE ?",
			userID, videoID, model.TransactionEarned, reasonPrefix+"%").
		Count(&count).Error
	return count > 0, err
}

func (r *PointsRepository) Transactions(userID uint, offset, limit int) ([]model.PointsTransaction, int64, error) {
	var rows []model.PointsTransaction
	var total int64
	query := r.DB.Model(&model.PointsTransaction{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, total, err
}

// ActiveRule 查找启用中的积分规则，不存在或未启用返回 nil
func (r *PointsRepository) ActiveRule(action model.PointsAction) (*model.PointsRule, error) {
	var rule model.PointsRule
	err := r.DB.Where("action_type = ? AND is_active = ?", action, true).First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *PointsRepository) ListRules() ([]model.PointsRule, error) {
	var rules []model.PointsRule
	err := r.DB.Order("action_type ASC").Find(&rules).Error
	return rules, err
}

func (r *PointsRepository) FindRule(id uint) (*model.PointsRule, error) {
	var rule model.PointsRule
	err := r.DB.First(&rule, id).Error
	return &rule, err
}

func (r *PointsRepository) SaveRule(rule *model.PointsRule) error {
	return r.DB.Save(rule).Error
}
