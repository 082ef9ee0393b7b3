package service

import (
	"context"
	"errors"
	"io"
	"prep_backend/internal/model"
	"prep_backend/internal/policy"
	"prep_backend/internal/repository"
	"prep_backend/internal/util"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ProfileUpdate 个人资料可修改字段，nil 表示不修改
type ProfileUpdate struct {
	Name           *string
	PhoneNumber    *string
	ContactDetails *string
}

// AdminUserUpdate 管理员修改用户
type AdminUserUpdate struct {
	ProfileUpdate
	Email    *string
	Role     *model.UserRole
	IsActive *bool
}

type CreateAdminInput struct {
	Name     string
	Email    string
	Password string
}

// RoleInfo 角色及其权限，管理端角色列表使用
type RoleInfo struct {
	Role    model.UserRole  `json:"role"`
	Actions []policy.Action `json:"actions"`
}

// UserService 处理用户资料与管理端用户操作
type UserService struct {
	UserRepo *repository.UserRepository
	Storage  *StorageService
}

func NewUserService(userRepo *repository.UserRepository, storage *StorageService) *UserService {
	return &UserService{
		UserRepo: userRepo,
		Storage:  storage,
	}
}

func (s *UserService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

func (s *UserService) applyProfile(user *model.User, in ProfileUpdate) error {
	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.ContactDetails != nil {
		user.ContactDetails = *in.ContactDetails
	}
	if in.PhoneNumber != nil {
		phone := strings.TrimSpace(*in.PhoneNumber)
		if phone == "" {
			if user.EmailAddress() == "" {
				return util.ErrContactRequired
			}
			user.PhoneNumber = nil
			return nil
		}
		if !isDigits(phone) {
			return util.ErrInvalidPhone
		}
		taken, err := s.UserRepo.PhoneTaken(phone, user.ID)
		if err != nil {
			return err
		}
		if taken {
			return util.ErrPhoneRegistered
		}
		user.PhoneNumber = &phone
	}
	return nil
}

func (s *UserService) UpdateProfile(userID uint, in ProfileUpdate) (*model.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if err := s.applyProfile(user, in); err != nil {
		return nil, err
	}
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// UploadAvatar 上传头像并更新用户记录
func (s *UserService) UploadAvatar(ctx context.Context, userID uint, filename string, reader io.Reader, size int64, contentType string) (*model.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	url, err := s.Storage.Put(ctx, ObjectKey("avatars", filename), reader, size, contentType)
	if err != nil {
		return nil, err
	}
	user.Avatar = url
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListUsers(filter repository.UserFilter, page, limit int) ([]model.User, int64, error) {
	return s.UserRepo.List(filter, util.Offset(page, limit), limit)
}

func (s *UserService) UpdateUser(id uint, in AdminUserUpdate) (*model.User, error) {
	user, err := s.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.applyProfile(user, in.ProfileUpdate); err != nil {
		return nil, err
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email == "" {
			if user.Phone() == "" {
				return nil, util.ErrContactRequired
			}
			user.Email = nil
		} else {
			taken, err := s.UserRepo.EmailTaken(email, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, util.ErrEmailRegistered
			}
			user.Email = &email
		}
	}
	if in.Role != nil {
		switch *in.Role {
		case model.Student, model.ContentAdmin, model.SuperAdmin:
			user.Role = *in.Role
		default:
			return nil, util.ErrInvalidRole
		}
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) DeleteUser(id uint) error {
	if _, err := s.GetUserByID(id); err != nil {
		return err
	}
	return s.UserRepo.Delete(id)
}

func (s *UserService) ListAdmins(page, limit int) ([]model.User, int64, error) {
	return s.UserRepo.List(repository.UserFilter{AdminsOnly: true}, util.Offset(page, limit), limit)
}

// CreateContentAdmin 创建已激活的内容管理员
func (s *UserService) CreateContentAdmin(in CreateAdminInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, util.ErrContactRequired
	}
	if len(in.Password) < minPasswordLength {
		return nil, util.ErrPasswordTooShort
	}
	taken, err := s.UserRepo.EmailTaken(email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, util.ErrEmailRegistered
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Name:            strings.TrimSpace(in.Name),
		Email:           &email,
		Password:        string(hashedPassword),
		Role:            model.ContentAdmin,
		IsActive:        true,
		IsEmailVerified: true,
	}
	if err := s.UserRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetAdminActive 启用或停用管理员账号
func (s *UserService) SetAdminActive(id uint, active bool) (*model.User, error) {
	user, err := s.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	if !user.Role.IsAdmin() {
		return nil, util.ErrNotAdmin
	}
	user.IsActive = active
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Roles() []RoleInfo {
	roles := []model.UserRole{model.Student, model.ContentAdmin, model.SuperAdmin}
	out := make([]RoleInfo, 0, len(roles))
	for _, r := range roles {
		actions := policy.Actions(r)
		if actions == nil {
			actions = []policy.Action{}
		}
		out = append(out, RoleInfo{Role: r, Actions: actions})
	}
	return out
}
