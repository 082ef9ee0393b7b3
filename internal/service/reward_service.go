package service

import (
	"errors"
	"fmt"
	"prep_backend/internal/model"
	"prep_backend/internal/repository"
	"prep_backend/internal/util"
	"prep_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PointsSummary 积分概览
type PointsSummary struct {
	TotalPoints     int `json:"totalPoints"`
	RedeemedPoints  int `json:"redeemedPoints"`
	AvailablePoints int `json:"availablePoints"`
	CurrentStreak   int `json:"currentStreak"`
	LongestStreak   int `json:"longestStreak"`
}

// RuleUpdate 管理端修改积分规则
type RuleUpdate struct {
	Points      *int
	Description *string
	IsActive    *bool
}

type RewardService struct {
	RewardRepo *repository.RewardRepository
	PointsRepo *repository.PointsRepository
	StreakRepo *repository.StreakRepository
}

func NewRewardService(rewardRepo *repository.RewardRepository, pointsRepo *repository.PointsRepository, streakRepo *repository.StreakRepository) *RewardService {
	return &RewardService{
		RewardRepo: rewardRepo,
		PointsRepo: pointsRepo,
		StreakRepo: streakRepo,
	}
}

func (s *RewardService) Summary(userID uint) (*PointsSummary, error) {
	points, err := s.PointsRepo.Balance(userID)
	if err != nil {
		return nil, err
	}
	streak, err := s.StreakRepo.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	return &PointsSummary{
		TotalPoints:     points.TotalPoints,
		RedeemedPoints:  points.RedeemedPoints,
		AvailablePoints: points.AvailablePoints,
		CurrentStreak:   streak.CurrentStreakDays,
		LongestStreak:   streak.LongestStreakDays,
	}, nil
}

func (s *RewardService) Transactions(userID uint, page, limit int) ([]model.PointsTransaction, int64, error) {
	return s.PointsRepo.Transactions(userID, util.Offset(page, limit), limit)
}

func (s *RewardService) AvailableRewards() ([]model.Reward, error) {
	return s.RewardRepo.List(true)
}

func (s *RewardService) MyRedemptions(userID uint) ([]model.RewardRedemption, error) {
	return s.RewardRepo.UserRedemptions(userID)
}

// Redeem 扣减积分并创建待处理的兑换记录，两者在同一事务中
func (s *RewardService) Redeem(userID, rewardID uint, recipientInfo string) (*model.RewardRedemption, error) {
	reward, err := s.RewardRepo.FindByID(rewardID)
	if err != nil {
		return nil, notFound(err, util.ErrRewardNotFound)
	}
	if !reward.IsActive {
		return nil, util.ErrRewardInactive
	}

	redemption := &model.RewardRedemption{
		UserID:        userID,
		RewardID:      reward.ID,
		PointsSpent:   reward.PointsRequired,
		Status:        model.RedemptionPending,
		RecipientInfo: recipientInfo,
	}
	err = s.PointsRepo.DB.Transaction(func(tx *gorm.DB) error {
		_, ok, err := s.PointsRepo.WithTx(tx).RedeemPoints(userID, reward.PointsRequired, fmt.Sprintf("Redeemed reward: %s", reward.Name))
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrInsufficientPoints
		}
		return s.RewardRepo.WithTx(tx).CreateRedemption(redemption)
	})
	if err != nil {
		return nil, err
	}
	redemption.Reward = reward
	return redemption, nil
}

// ---- 管理端 ----

func (s *RewardService) ListRewards() ([]model.Reward, error) {
	return s.RewardRepo.List(false)
}

func (s *RewardService) CreateReward(reward *model.Reward) error {
	return s.RewardRepo.Create(reward)
}

func (s *RewardService) UpdateReward(id uint, apply func(*model.Reward)) (*model.Reward, error) {
	reward, err := s.RewardRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err, util.ErrRewardNotFound)
	}
	apply(reward)
	if err := s.RewardRepo.Update(reward); err != nil {
		return nil, err
	}
	return reward, nil
}

func (s *RewardService) DeleteReward(id uint) error {
	return notFound(s.RewardRepo.Delete(id), util.ErrRewardNotFound)
}

func (s *RewardService) ListRedemptions(status model.RedemptionStatus, page, limit int) ([]model.RewardRedemption, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, util.ErrInvalidStatus
	}
	return s.RewardRepo.ListRedemptions(status, util.Offset(page, limit), limit)
}

// UpdateRedemptionStatus 变为 rejected 时退还积分，每条兑换只退一次
func (s *RewardService) UpdateRedemptionStatus(id uint, status model.RedemptionStatus, notes *string) (*model.RewardRedemption, error) {
	if !status.Valid() {
		return nil, util.ErrInvalidStatus
	}
	redemption, err := s.RewardRepo.FindRedemption(id)
	if err != nil {
		return nil, notFound(err, util.ErrRedemptionNotFound)
	}

	err = s.RewardRepo.DB.Transaction(func(tx *gorm.DB) error {
		refund, err := s.RewardRepo.WithTx(tx).TransitionStatus(id, status, notes)
		if err != nil || !refund {
			return err
		}
		name := ""
		if redemption.Reward != nil {
			name = redemption.Reward.Name
		}
		_, err = s.PointsRepo.WithTx(tx).AddPoints(redemption.UserID, redemption.PointsSpent, "Refund for rejected redemption: "+name, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.RewardRepo.FindRedemption(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrRedemptionNotFound
		}
		return nil, err
	}
	logger.Log.Info("Redemption status updated",
		zap.Uint("redemption_id", id),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}

func (s *RewardService) ListRules() ([]model.PointsRule, error) {
	return s.PointsRepo.ListRules()
}

func (s *RewardService) UpdateRule(id uint, in RuleUpdate) (*model.PointsRule, error) {
	rule, err := s.PointsRepo.FindRule(id)
	if err != nil {
		return nil, notFound(err, util.ErrNotFound)
	}
	if in.Points != nil {
		rule.Points = *in.Points
	}
	if in.Description != nil {
		rule.Description = *in.Description
	}
	if in.IsActive != nil {
		rule.IsActive = *in.IsActive
	}
	if err := s.PointsRepo.SaveRule(rule); err != nil {
		return nil, err
	}
	return rule, nil
}
