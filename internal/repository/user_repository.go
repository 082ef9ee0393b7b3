package repository

import (
	"prep_backend/internal/model"
	"strings"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// UserFilter 管理端用户筛选条件
type UserFilter struct {
	Search     string
	Role       string
	AdminsOnly bool
}

// Create 创建用户，同时初始化连续天数和积分账户
func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if err := tx.Create(&model.UserStreak{UserID: user.ID}).Error; err != nil {
			return err
		}
		return tx.Create(&model.UserPoints{UserID: user.ID}).Error
	})
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", strings.ToLower(email)).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByPhone(phone string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("phone_number = ?", phone).First(&user).Error
	return &user, err
}

// FindByIdentifier 包含 @ 按邮箱查找，否则按手机号
func (r *UserRepository) FindByIdentifier(identifier string) (*model.User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return r.FindByEmail(identifier)
	}
	return r.FindByPhone(identifier)
}

func (r *UserRepository) EmailTaken(email string, excludeID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.User{}).
		Where("email = ? AND id <> ?", strings.ToLower(email), excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) PhoneTaken(phone string, excludeID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.User{}).
		Where("phone_number = ? AND id <> ?", phone, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

func (r *UserRepository) Delete(id uint) error {
	return r.DB.Delete(&model.User{}, id).Error
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_seen", time.Now()).Error
}

// RecordLogin 更新最近登录信息并写入登录记录
func (r *UserRepository) RecordLogin(user *model.User, ip, userAgent string, at time.Time) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Updates(map[string]interface{}{
			"last_login_ip":   ip,
			"last_login_date": at,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&model.LoginHistory{
			UserID:     user.ID,
			IPAddress:  ip,
			DeviceInfo: model.TruncateDeviceInfo(userAgent),
			CreatedAt:  at,
		}).Error
	})
}

func (r *UserRepository) LoginHistory(userID uint, limit int) ([]model.LoginHistory, error) {
	var rows []model.LoginHistory
	err := r.DB.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *UserRepository) List(filter UserFilter, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	query := r.DB.Model(&model.User{})
	if filter.AdminsOnly {
		query = query.Where("role IN ?", []model.UserRole{model.ContentAdmin, model.SuperAdmin})
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Search != "" {
		term := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR phone_number LIKE ?", term, term)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, total, err
}
