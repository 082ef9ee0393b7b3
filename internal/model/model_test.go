package model

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
}

func TestStreakTouch(t *testing.T) {
	s := &UserStreak{}

	assert.True(t, s.Touch(day(2024, 3, 1)))
	assert.Equal(t, 1, s.CurrentStreakDays)
	assert.Equal(t, 1, s.LongestStreakDays)

	// 同一天重复调用
	assert.False(t, s.Touch(day(2024, 3, 1).Add(5*time.Hour)))
	assert.Equal(t, 1, s.CurrentStreakDays)

	assert.True(t, s.Touch(day(2024, 3, 2)))
	assert.True(t, s.Touch(day(2024, 3, 3)))
	assert.Equal(t, 3, s.CurrentStreakDays)
	assert.Equal(t, 3, s.LongestStreakDays)

	// 中断两天后重置
	assert.True(t, s.Touch(day(2024, 3, 6)))
	assert.Equal(t, 1, s.CurrentStreakDays)
	assert.Equal(t, 3, s.LongestStreakDays)
	assert.Equal(t, StartOfDay(day(2024, 3, 6)), *s.LastActivityDate)
}

func TestStreakTouchAcrossMonthBoundary(t *testing.T) {
	last := StartOfDay(day(2024, 2, 29))
	s := &UserStreak{CurrentStreakDays: 4, LongestStreakDays: 4, LastActivityDate: &last}

	assert.True(t, s.Touch(day(2024, 3, 1)))
	assert.Equal(t, 5, s.CurrentStreakDays)
	assert.Equal(t, 5, s.LongestStreakDays)
}

func TestUserPointsCreditDebit(t *testing.T) {
	p := &UserPoints{}
	p.Credit(50)
	assert.Equal(t, 50, p.TotalPoints)
	assert.Equal(t, 50, p.AvailablePoints)

	assert.False(t, p.Debit(60))
	assert.Equal(t, 50, p.AvailablePoints)
	assert.Equal(t, 0, p.RedeemedPoints)

	assert.True(t, p.Debit(20))
	assert.Equal(t, 30, p.AvailablePoints)
	assert.Equal(t, 20, p.RedeemedPoints)
	assert.Equal(t, p.TotalPoints-p.RedeemedPoints, p.AvailablePoints)
}

func TestUpdateWatchProgress(t *testing.T) {
	h := &ViewHistory{}

	h.UpdateWatchProgress(54, 60)
	assert.True(t, h.IsCompleted)
	assert.Equal(t, 54, h.WatchedDuration)
	assert.Equal(t, 54, h.LastPosition)

	h.UpdateWatchProgress(30, 60)
	assert.True(t, h.IsCompleted)
	assert.Equal(t, 54, h.WatchedDuration)
	assert.Equal(t, 30, h.LastPosition)
}

func TestUpdateWatchProgressBelowThreshold(t *testing.T) {
	h := &ViewHistory{}
	h.UpdateWatchProgress(53, 60)
	assert.False(t, h.IsCompleted)

	h.UpdateWatchProgress(10, 0)
	assert.False(t, h.IsCompleted)
	assert.Equal(t, 53, h.WatchedDuration)
}

func TestVoucherIsValid(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&VoucherCode{}).IsValid(now))
	assert.True(t, (&VoucherCode{ExpiryDate: &future}).IsValid(now))
	assert.False(t, (&VoucherCode{ExpiryDate: &past}).IsValid(now))
	assert.False(t, (&VoucherCode{IsUsed: true}).IsValid(now))
}

func TestSubscriptionApplyWindow(t *testing.T) {
	now := time.Now()

	s := &UserSubscription{StartDate: now, IsActive: true}
	s.ApplyWindow(30, now)
	assert.Equal(t, now.AddDate(0, 0, 30), *s.EndDate)
	assert.True(t, s.IsActive)
	assert.True(t, s.CoversTime(now.Add(time.Hour)))

	expired := &UserSubscription{StartDate: now.AddDate(0, 0, -40), IsActive: true}
	expired.ApplyWindow(30, now)
	assert.False(t, expired.IsActive)
	assert.False(t, expired.CoversTime(now))
}

func TestVideoURL(t *testing.T) {
	cases := []struct {
		video VideoLesson
		want  string
	}{
		{VideoLesson{VideoSource: SourceYouTube, VideoID: "abc"}, "https://www.youtube.com/embed/abc"},
		{VideoLesson{VideoSource: SourceYouTube, VideoID: "abc", AccessToken: "t1"}, "https://www.youtube.com/embed/abc?access_token=t1"},
		{VideoLesson{VideoSource: SourceDrive, VideoID: "xyz"}, "https://drive.google.com/file/d/xyz/preview"},
		{VideoLesson{VideoSource: SourceUpload, VideoFile: "/uploads/videos/a.mp4"}, "/uploads/videos/a.mp4"},
		{VideoLesson{VideoSource: SourceYouTube}, ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.video.VideoURL())
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "intro-to-algebra", Slugify("  Intro to Algebra! "))
	assert.Equal(t, "jss-1", Slugify("JSS 1"))
}

func TestOTPMatches(t *testing.T) {
	now := time.Now()
	exp := now.Add(10 * time.Minute)
	u := &User{OTPCode: "123456", OTPExpiry: &exp}

	assert.True(t, u.OTPMatches("123456", now))
	assert.False(t, u.OTPMatches("654321", now))
	assert.False(t, u.OTPMatches("123456", now.Add(11*time.Minute)))

	u.ClearOTP()
	assert.False(t, u.OTPMatches("", now))
}

func TestTruncateDeviceInfoKeepsRunes(t *testing.T) {
	short := "Mozilla/5.0 (iPhone)"
	assert.Equal(t, short, TruncateDeviceInfo(short))

	// 每个字符 3 字节，按字节截断会切开最后一个字符
	ua := "Mozilla/5.0 " + strings.Repeat("浏", 300)
	got := TruncateDeviceInfo(ua)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 255, utf8.RuneCountInString(got))
	assert.True(t, strings.HasPrefix(ua, got))

	ascii := strings.Repeat("a", 300)
	assert.Len(t, TruncateDeviceInfo(ascii), 255)
}
