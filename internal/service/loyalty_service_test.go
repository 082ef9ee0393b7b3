package service

import (
	"errors"
	"testing"
	"time"

	"prep_backend/internal/model"
	"prep_backend/internal/repository"
	"prep_backend/internal/testutil"
	"prep_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type loyaltyFixture struct {
	db       *gorm.DB
	user     *model.User
	catalog  *testutil.Catalog
	progress *ProgressService
	loyalty  *LoyaltyService
	rewards  *RewardService
	points   *repository.PointsRepository
}

func newLoyaltyFixture(t *testing.T) *loyaltyFixture {
	db := testutil.NewDB(t)
	pointsRepo := repository.NewPointsRepository(db)
	streakRepo := repository.NewStreakRepository(db)
	return &loyaltyFixture{
		db:       db,
		user:     testutil.CreateUser(t, db, "loyal@example.com", "password123"),
		catalog:  testutil.CreateCatalog(t, db),
		progress: NewProgressService(repository.NewProgressRepository(db), repository.NewCatalogRepository(db)),
		loyalty:  NewLoyaltyService(streakRepo, pointsRepo, testConfig()),
		rewards:  NewRewardService(repository.NewRewardRepository(db), pointsRepo, streakRepo),
		points:   pointsRepo,
	}
}

func (f *loyaltyFixture) balance(t *testing.T) *model.UserPoints {
	p, err := f.points.Balance(f.user.ID)
	require.NoError(t, err)
	return p
}

func TestHandleLoginAwardsOncePerDay(t *testing.T) {
	f := newLoyaltyFixture(t)
	now := time.Now()

	result, err := f.loyalty.HandleLogin(&LoginEvent{UserID: f.user.ID, At: now})
	require.NoError(t, err)
	assert.Equal(t, 5, result.PointsAwarded)
	assert.Equal(t, 1, result.Streak.CurrentStreakDays)

	result, err = f.loyalty.HandleLogin(&LoginEvent{UserID: f.user.ID, At: now.Add(time.Minute)})
	require.NoError(t, err)
	assert.Zero(t, result.PointsAwarded)

	p := f.balance(t)
	assert.Equal(t, 5, p.TotalPoints)
	assert.Equal(t, p.TotalPoints-p.RedeemedPoints, p.AvailablePoints)
}

func TestLoginRewardAfterProgressSameDay(t *testing.T) {
	f := newLoyaltyFixture(t)

	// 先看视频，连续天数已在当天更新
	_, event, err := f.progress.RecordProgress(f.user.ID, f.catalog.Free.ID, 10, 60)
	require.NoError(t, err)
	result, err := f.loyalty.HandleProgress(event)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Streak.CurrentStreakDays)

	result, err = f.loyalty.HandleLogin(&LoginEvent{UserID: f.user.ID, At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, 5, result.PointsAwarded)
	assert.Equal(t, 1, result.Streak.CurrentStreakDays)

	result, err = f.loyalty.HandleLogin(&LoginEvent{UserID: f.user.ID, At: time.Now()})
	require.NoError(t, err)
	assert.Zero(t, result.PointsAwarded)

	var count int64
	require.NoError(t, f.db.Model(&model.PointsTransaction{}).
		Where("user_id = ? AND reason = ?", f.user.ID, "Daily login reward").Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, 5, f.balance(t).TotalPoints)
}

func TestApplyDropsResultOnError(t *testing.T) {
	f := newLoyaltyFixture(t)

	result := f.loyalty.Apply(f.user.ID, func() (*LoyaltyResult, error) {
		return &LoyaltyResult{PointsAwarded: 5}, errors.New("streak update failed")
	})
	assert.Nil(t, result)

	result = f.loyalty.Apply(f.user.ID, func() (*LoyaltyResult, error) {
		return &LoyaltyResult{PointsAwarded: 5}, nil
	})
	require.NotNil(t, result)
	assert.Equal(t, 5, result.PointsAwarded)
}

func TestStreakMilestoneBonus(t *testing.T) {
	f := newLoyaltyFixture(t)

	// 已连续 6 天，今天是第 7 天
	yesterday := model.StartOfDay(time.Now()).AddDate(0, 0, -1)
	require.NoError(t, f.db.Model(&model.UserStreak{}).Where("user_id = ?", f.user.ID).
		Updates(map[string]interface{}{"current_streak_days": 6, "longest_streak_days": 6, "last_activity_date": yesterday}).Error)

	result, err := f.loyalty.HandleLogin(&LoginEvent{UserID: f.user.ID, At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, 7, result.Streak.CurrentStreakDays)
	// 登录 5 分 + 第一个节点 20 × 1
	assert.Equal(t, 25, result.PointsAwarded)

	var tx model.PointsTransaction
	require.NoError(t, f.db.Where("user_id = ? AND reason = ?", f.user.ID, "7-day streak milestone bonus").First(&tx).Error)
	assert.Equal(t, 20, tx.Points)
}

func TestProgressAwardsEachVideoOnce(t *testing.T) {
	f := newLoyaltyFixture(t)
	video := f.catalog.Free

	_, event, err := f.progress.RecordProgress(f.user.ID, video.ID, 10, 60)
	require.NoError(t, err)
	assert.True(t, event.Created)
	result, err := f.loyalty.HandleProgress(event)
	require.NoError(t, err)
	assert.Zero(t, result.PointsAwarded)

	_, event, err = f.progress.RecordProgress(f.user.ID, video.ID, 20, 60)
	require.NoError(t, err)
	result, err = f.loyalty.HandleProgress(event)
	require.NoError(t, err)
	assert.Equal(t, 2, result.PointsAwarded)

	_, event, err = f.progress.RecordProgress(f.user.ID, video.ID, 25, 60)
	require.NoError(t, err)
	result, err = f.loyalty.HandleProgress(event)
	require.NoError(t, err)
	assert.Zero(t, result.PointsAwarded)

	history, event, err := f.progress.RecordProgress(f.user.ID, video.ID, 54, 60)
	require.NoError(t, err)
	assert.True(t, history.IsCompleted)
	result, err = f.loyalty.HandleProgress(event)
	require.NoError(t, err)
	assert.Equal(t, 10, result.PointsAwarded)

	history, event, err = f.progress.RecordProgress(f.user.ID, video.ID, 30, 60)
	require.NoError(t, err)
	assert.True(t, history.IsCompleted)
	assert.Equal(t, 54, history.WatchedDuration)
	assert.Equal(t, 30, history.LastPosition)
	result, err = f.loyalty.HandleProgress(event)
	require.NoError(t, err)
	assert.Zero(t, result.PointsAwarded)

	assert.Equal(t, 12, f.balance(t).TotalPoints)
}

func TestRedeemAndRejectRefund(t *testing.T) {
	f := newLoyaltyFixture(t)
	reward := &model.Reward{Name: "1GB Data", RewardType: model.RewardData, PointsRequired: 30, IsActive: true}
	require.NoError(t, f.rewards.CreateReward(reward))

	_, err := f.rewards.Redeem(f.user.ID, reward.ID, "08011112222")
	assert.ErrorIs(t, err, util.ErrInsufficientPoints)
	assert.Zero(t, f.balance(t).RedeemedPoints)

	_, err = f.points.AddPoints(f.user.ID, 40, "", nil)
	require.NoError(t, err)

	redemption, err := f.rewards.Redeem(f.user.ID, reward.ID, "08011112222")
	require.NoError(t, err)
	assert.Equal(t, model.RedemptionPending, redemption.Status)
	p := f.balance(t)
	assert.Equal(t, 10, p.AvailablePoints)
	assert.Equal(t, 30, p.RedeemedPoints)

	notes := "out of stock"
	updated, err := f.rewards.UpdateRedemptionStatus(redemption.ID, model.RedemptionRejected, &notes)
	require.NoError(t, err)
	assert.Equal(t, model.RedemptionRejected, updated.Status)
	assert.Equal(t, 40, f.balance(t).AvailablePoints)

	// 再次置为 rejected 不会重复退款
	_, err = f.rewards.UpdateRedemptionStatus(redemption.ID, model.RedemptionRejected, nil)
	require.NoError(t, err)
	p = f.balance(t)
	assert.Equal(t, 40, p.AvailablePoints)
	assert.Equal(t, p.TotalPoints-p.RedeemedPoints, p.AvailablePoints)

	// 已退款的兑换不能改回其它状态，再次 rejected 也不会再退
	_, err = f.rewards.UpdateRedemptionStatus(redemption.ID, model.RedemptionApproved, nil)
	assert.ErrorIs(t, err, util.ErrRedemptionFinal)
	_, err = f.rewards.UpdateRedemptionStatus(redemption.ID, model.RedemptionRejected, nil)
	require.NoError(t, err)
	p = f.balance(t)
	assert.Equal(t, 40, p.TotalPoints)
	assert.Equal(t, 40, p.AvailablePoints)
	assert.Equal(t, p.TotalPoints-p.RedeemedPoints, p.AvailablePoints)

	found, err := f.rewards.RewardRepo.FindRedemption(redemption.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RedemptionRejected, found.Status)
	assert.True(t, found.Refunded)

	_, err = f.rewards.UpdateRedemptionStatus(redemption.ID, "lost", nil)
	assert.ErrorIs(t, err, util.ErrInvalidStatus)
}

func TestRedeemInactiveReward(t *testing.T) {
	f := newLoyaltyFixture(t)
	reward := &model.Reward{Name: "Hidden", RewardType: model.RewardOther, PointsRequired: 1}
	require.NoError(t, f.rewards.CreateReward(reward))

	_, err := f.rewards.Redeem(f.user.ID, reward.ID, "")
	assert.ErrorIs(t, err, util.ErrRewardInactive)
	_, err = f.rewards.Redeem(f.user.ID, 9999, "")
	assert.ErrorIs(t, err, util.ErrRewardNotFound)
}
