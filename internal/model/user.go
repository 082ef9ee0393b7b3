package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

type UserRole string

const (
	Student      UserRole = "student"
	ContentAdmin UserRole = "content_admin"
	SuperAdmin   UserRole = "super_admin"
)

func (r UserRole) IsAdmin() bool {
	return r == ContentAdmin || r == SuperAdmin
}

// swagger:model User
type User struct {
	BaseModel
	Name            string     `gorm:"size:100" json:"name"`
	Email           *string    `gorm:"size:100;uniqueIndex" json:"email"`
	PhoneNumber     *string    `gorm:"size:20;uniqueIndex" json:"phoneNumber"`
	Password        string     `gorm:"size:100;not null" json:"-"`
	Role            UserRole   `gorm:"size:20;default:'student'" json:"role"`
	Avatar          string     `gorm:"size:255" json:"avatar"`
	ContactDetails  string     `gorm:"type:text" json:"contactDetails"`
	IsActive        bool       `gorm:"default:false" json:"isActive"`
	IsEmailVerified bool       `gorm:"default:false" json:"isEmailVerified"`
	OTPCode         string     `gorm:"column:otp_code;size:10" json:"-"`
	OTPExpiry       *time.Time `gorm:"column:otp_expiry" json:"-"`
	LastLoginIP     string     `gorm:"size:45" json:"lastLoginIp"`
	LastLoginDate   *time.Time `json:"lastLoginDate"`
	LastSeen        *time.Time `json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}

// EmailAddress 返回邮箱，未设置时为空串
func (u *User) EmailAddress() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

func (u *User) Phone() string {
	if u.PhoneNumber == nil {
		return ""
	}
	return *u.PhoneNumber
}

// Identifier 用于日志和邮件中展示的用户标识
func (u *User) Identifier() string {
	if e := u.EmailAddress(); e != "" {
		return e
	}
	return u.Phone()
}

// OTPMatches 验证码匹配且未过期
func (u *User) OTPMatches(code string, now time.Time) bool {
	if u.OTPCode == "" || u.OTPExpiry == nil {
		return false
	}
	if strings.TrimSpace(code) != u.OTPCode {
		return false
	}
	return now.Before(*u.OTPExpiry)
}

// ClearOTP 验证成功后清除验证码
func (u *User) ClearOTP() {
	u.OTPCode = ""
	u.OTPExpiry = nil
}

// LoginHistory 登录记录
// swagger:model LoginHistory
type LoginHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index;not null" json:"userId"`
	IPAddress  string    `gorm:"size:45" json:"ipAddress"`
	DeviceInfo string    `gorm:"size:255" json:"deviceInfo"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (LoginHistory) TableName() string {
	return "login_histories"
}

// TruncateDeviceInfo 设备信息最多保留 255 个字符
func TruncateDeviceInfo(ua string) string {
	if utf8.RuneCountInString(ua) <= 255 {
		return ua
	}
	return string([]rune(ua)[:255])
}
