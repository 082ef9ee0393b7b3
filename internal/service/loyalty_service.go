package service

import (
	"fmt"
	"prep_backend/internal/config"
	"prep_backend/internal/model"
	"prep_backend/internal/repository"
	"prep_backend/pkg/logger"
	"prep_backend/pkg/monitoring"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	loginReason          = "Daily login reward"
	completedVideoPrefix = "Completed video: "
	watchedVideoPrefix   = "Watched video: "
)

// LoyaltyResult 一次活动处理后发放的积分与当前连续天数
type LoyaltyResult struct {
	PointsAwarded int               `json:"pointsAwarded"`
	Streak        *model.UserStreak `json:"streak,omitempty"`
}

// LoyaltyService 处理登录、观看进度带来的连续天数与积分
type LoyaltyService struct {
	StreakRepo *repository.StreakRepository
	PointsRepo *repository.PointsRepository
	Cfg        *config.Config
}

func NewLoyaltyService(streakRepo *repository.StreakRepository, pointsRepo *repository.PointsRepository, cfg *config.Config) *LoyaltyService {
	return &LoyaltyService{
		StreakRepo: streakRepo,
		PointsRepo: pointsRepo,
		Cfg:        cfg,
	}
}

func (s *LoyaltyService) milestones() []int {
	if s.Cfg != nil && len(s.Cfg.Loyalty.StreakMilestones) > 0 {
		return s.Cfg.Loyalty.StreakMilestones
	}
	return config.DefaultStreakMilestones
}

// touchStreak 记录当天活动；连续天数变化且到达节点时发放奖励
func (s *LoyaltyService) touchStreak(userID uint, now time.Time, result *LoyaltyResult) (bool, error) {
	streak, err := s.StreakRepo.FindByUser(userID)
	if err != nil {
		return false, err
	}
	result.Streak = streak

	if !streak.Touch(now) {
		return false, nil
	}
	if err := s.StreakRepo.SaveCounters(streak); err != nil {
		return false, err
	}

	for i, m := range s.milestones() {
		if streak.CurrentStreakDays != m {
			continue
		}
		rule, err := s.PointsRepo.ActiveRule(model.ActionStreakMilestone)
		if err != nil {
			return true, err
		}
		if rule == nil {
			break
		}
		bonus := rule.Points * (i + 1)
		if err := s.award(userID, model.ActionStreakMilestone, bonus, fmt.Sprintf("%d-day streak milestone bonus", m), nil); err != nil {
			return true, err
		}
		result.PointsAwarded += bonus
		break
	}
	return true, nil
}

func (s *LoyaltyService) award(userID uint, action model.PointsAction, points int, reason string, videoID *uint) error {
	if points <= 0 {
		return nil
	}
	if _, err := s.PointsRepo.AddPoints(userID, points, reason, videoID); err != nil {
		return err
	}
	monitoring.PointsAwarded.WithLabelValues(string(action)).Add(float64(points))
	return nil
}

// awardVideoOnce 同一视频同一类奖励只发放一次，检查与写入在同一事务中
func (s *LoyaltyService) awardVideoOnce(userID, videoID uint, action model.PointsAction, prefix, title string) (int, error) {
	rule, err := s.PointsRepo.ActiveRule(action)
	if err != nil || rule == nil || rule.Points <= 0 {
		return 0, err
	}

	awarded := 0
	err = s.PointsRepo.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.PointsRepo.WithTx(tx)
		exists, err := repo.HasVideoTransaction(userID, videoID, strings.TrimSpace(prefix))
		if err != nil || exists {
			return err
		}
		vid := videoID
		if _, err := repo.AddPoints(userID, rule.Points, prefix+title, &vid); err != nil {
			return err
		}
		awarded = rule.Points
		return nil
	})
	if err != nil {
		return 0, err
	}
	if awarded > 0 {
		monitoring.PointsAwarded.WithLabelValues(string(action)).Add(float64(awarded))
	}
	return awarded, nil
}

// HandleLogin 登录后更新连续天数；当天还没有登录积分流水时发放登录积分
func (s *LoyaltyService) HandleLogin(event *LoginEvent) (*LoyaltyResult, error) {
	result := &LoyaltyResult{}
	if event == nil {
		return result, nil
	}

	if _, err := s.touchStreak(event.UserID, event.At, result); err != nil {
		return result, err
	}

	rule, err := s.PointsRepo.ActiveRule(model.ActionLogin)
	if err != nil || rule == nil || rule.Points <= 0 {
		return result, err
	}

	awarded := false
	err = s.PointsRepo.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.PointsRepo.WithTx(tx)
		exists, err := repo.HasEarnedSince(event.UserID, loginReason, model.StartOfDay(event.At))
		if err != nil || exists {
			return err
		}
		if _, err := repo.AddPoints(event.UserID, rule.Points, loginReason, nil); err != nil {
			return err
		}
		awarded = true
		return nil
	})
	if err != nil {
		return result, err
	}
	if awarded {
		monitoring.PointsAwarded.WithLabelValues(string(model.ActionLogin)).Add(float64(rule.Points))
		result.PointsAwarded += rule.Points
	}
	return result, nil
}

// HandleProgress 完成视频奖励 complete_video；非首次记录且已观看则奖励 video_watch，每个视频各一次
func (s *LoyaltyService) HandleProgress(event *ProgressEvent) (*LoyaltyResult, error) {
	result := &LoyaltyResult{}
	if event == nil {
		return result, nil
	}

	if _, err := s.touchStreak(event.UserID, time.Now(), result); err != nil {
		return result, err
	}

	var (
		points int
		err    error
	)
	switch {
	case event.Completed:
		points, err = s.awardVideoOnce(event.UserID, event.VideoID, model.ActionCompleteVideo, completedVideoPrefix, event.VideoTitle)
	case !event.Created && event.WatchedDuration > 0:
		points, err = s.awardVideoOnce(event.UserID, event.VideoID, model.ActionVideoWatch, watchedVideoPrefix, event.VideoTitle)
	}
	if err != nil {
		return result, err
	}
	result.PointsAwarded += points
	return result, nil
}

// Apply 副作用失败只写日志并返回 nil，不影响主流程的响应
func (s *LoyaltyService) Apply(userID uint, fn func() (*LoyaltyResult, error)) *LoyaltyResult {
	result, err := fn()
	if err != nil {
		logger.Log.Error("Loyalty update failed", zap.Uint("user_id", userID), zap.Error(err))
		return nil
	}
	return result
}
