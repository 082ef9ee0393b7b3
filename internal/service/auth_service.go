package service

import (
	"context"
	"errors"
	"fmt"
	"prep_backend/internal/config"
	"prep_backend/internal/model"
	"prep_backend/internal/repository"
	"prep_backend/internal/util"
	"prep_backend/pkg/logger"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type RegisterInput struct {
	Name            string
	Email           string
	PhoneNumber     string
	Password        string
	ConfirmPassword string
}

// LoginEvent 登录成功后交给积分与连续天数处理
type LoginEvent struct {
	UserID uint
	At     time.Time
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type AuthService struct {
	UserRepo *repository.UserRepository
	Mailer   Mailer
	Redis    *redis.Client
	Cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, mailer Mailer, rdb *redis.Client, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Mailer:   mailer,
		Redis:    rdb,
		Cfg:      cfg,
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validatePassword(password, confirm string) error {
	if len(password) < minPasswordLength {
		return util.ErrPasswordTooShort
	}
	if password != confirm {
		return util.ErrPasswordMismatch
	}
	return nil
}

// Register 创建未激活用户并发送验证码
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	phone := strings.TrimSpace(in.PhoneNumber)
	if email == "" && phone == "" {
		return nil, util.ErrContactRequired
	}
	if phone != "" && !isDigits(phone) {
		return nil, util.ErrInvalidPhone
	}
	if err := validatePassword(in.Password, in.ConfirmPassword); err != nil {
		return nil, err
	}

	user := &model.User{Name: strings.TrimSpace(in.Name), Role: model.Student}
	if email != "" {
		taken, err := s.UserRepo.EmailTaken(email, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, util.ErrEmailRegistered
		}
		user.Email = &email
	}
	if phone != "" {
		taken, err := s.UserRepo.PhoneTaken(phone, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, util.ErrPhoneRegistered
		}
		user.PhoneNumber = &phone
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user.Password = string(hashedPassword)

	if err := s.issueOTP(user); err != nil {
		return nil, err
	}
	if err := s.UserRepo.Create(user); err != nil {
		return nil, err
	}

	s.sendOTP(ctx, user, "Verify your Prep account")
	return user, nil
}

func (s *AuthService) issueOTP(user *model.User) error {
	code, err := util.GenerateOTP(s.Cfg.OTP.Length)
	if err != nil {
		return err
	}
	expiry := time.Now().Add(s.Cfg.OTPExpiry())
	user.OTPCode = code
	user.OTPExpiry = &expiry
	return nil
}

// sendOTP 发送失败只记录日志，验证码仍可通过重发获取
func (s *AuthService) sendOTP(ctx context.Context, user *model.User, subject string) {
	email := user.EmailAddress()
	if email == "" {
		logger.Log.Info("OTP issued for phone-only user",
			zap.Uint("user_id", user.ID),
			zap.String("phone", user.Phone()),
		)
		return
	}

	minutes := s.Cfg.OTP.ExpiryMinutes
	plain := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", user.OTPCode, minutes)
	html := fmt.Sprintf("<p>Your verification code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>", user.OTPCode, minutes)
	if err := s.Mailer.Send(ctx, user.Name, email, subject, plain, html); err != nil {
		logger.Log.Error("Failed to send OTP email", zap.Uint("user_id", user.ID), zap.Error(err))
	}
}

func (s *AuthService) findByIdentifier(identifier string) (*model.User, error) {
	user, err := s.UserRepo.FindByIdentifier(identifier)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

// throttle 配置了 Redis 时每个用户在冷却时间内只能请求一次
func (s *AuthService) throttle(ctx context.Context, userID uint) error {
	if s.Redis == nil || s.Cfg.OTP.ResendCooldownS <= 0 {
		return nil
	}
	key := fmt.Sprintf("otp:resend:%d", userID)
	ok, err := s.Redis.SetNX(ctx, key, 1, time.Duration(s.Cfg.OTP.ResendCooldownS)*time.Second).Result()
	if err != nil {
		logger.Log.Warn("OTP throttle unavailable", zap.Error(err))
		return nil
	}
	if !ok {
		return util.ErrOTPThrottled
	}
	return nil
}

func (s *AuthService) ResendOTP(ctx context.Context, identifier string) error {
	user, err := s.findByIdentifier(identifier)
	if err != nil {
		return err
	}
	if err := s.throttle(ctx, user.ID); err != nil {
		return err
	}
	if err := s.issueOTP(user); err != nil {
		return err
	}
	if err := s.UserRepo.Update(user); err != nil {
		return err
	}
	s.sendOTP(ctx, user, "Your Prep verification code")
	return nil
}

// VerifyOTP 验证码正确且未过期时激活账号并签发令牌
func (s *AuthService) VerifyOTP(identifier, code string) (*AuthResult, error) {
	user, err := s.findByIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	if !user.OTPMatches(code, time.Now()) {
		return nil, util.ErrInvalidOTP
	}

	user.ClearOTP()
	user.IsActive = true
	if user.EmailAddress() != "" {
		user.IsEmailVerified = true
	}
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Login(identifier, password, ip, userAgent string) (*AuthResult, *LoginEvent, error) {
	user, err := s.UserRepo.FindByIdentifier(identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, util.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, util.ErrAccountInactive
	}

	now := time.Now()
	if err := s.UserRepo.RecordLogin(user, ip, userAgent, now); err != nil {
		return nil, nil, err
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, nil, err
	}
	return &AuthResult{Token: token, User: user}, &LoginEvent{UserID: user.ID, At: now}, nil
}

// RequestPasswordReset 发送重置密码用的验证码
func (s *AuthService) RequestPasswordReset(ctx context.Context, identifier string) error {
	user, err := s.findByIdentifier(identifier)
	if err != nil {
		return err
	}
	if err := s.throttle(ctx, user.ID); err != nil {
		return err
	}
	if err := s.issueOTP(user); err != nil {
		return err
	}
	if err := s.UserRepo.Update(user); err != nil {
		return err
	}
	s.sendOTP(ctx, user, "Reset your Prep password")
	return nil
}

func (s *AuthService) ConfirmPasswordReset(identifier, code, password, confirm string) error {
	if err := validatePassword(password, confirm); err != nil {
		return err
	}
	user, err := s.findByIdentifier(identifier)
	if err != nil {
		return err
	}
	if !user.OTPMatches(code, time.Now()) {
		return util.ErrInvalidOTP
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashedPassword)
	user.ClearOTP()
	return s.UserRepo.Update(user)
}

func (s *AuthService) GetCurrentUser(c *gin.Context) *model.User {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		return nil
	}

	user, err := s.UserRepo.FindByID(claims.UserID)
	if err != nil {
		return nil
	}
	return user
}
