package repository

import (
	"prep_backend/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	DB *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{DB: tx}
}

func (r *PaymentRepository) Create(payment *model.Payment) error {
	return r.DB.Create(payment).Error
}

func (r *PaymentRepository) FindByReference(reference string) (*model.Payment, error) {
	var payment model.Payment
	err := r.DB.Preload("Plan").Where("reference = ?", reference).First(&payment).Error
	return &payment, err
}

// MarkSettled 只有 pending 状态的支付会被更新，返回是否由本次调用完成状态变更
func (r *PaymentRepository) MarkSettled(reference string, status model.PaymentStatus, gatewayResponse datatypes.JSON) (bool, error) {
	updates := map[string]interface{}{"status": status}
	if len(gatewayResponse) > 0 {
		updates["gateway_response"] = gatewayResponse
	}
	res := r.DB.Model(&model.Payment{}).
		Where("reference = ? AND status = ?", reference, model.PaymentPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *PaymentRepository) ListByUser(userID uint, limit int) ([]model.Payment, error) {
	var rows []model.Payment
	err := r.DB.Preload("Plan").Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
