package repository

import (
	"testing"
	"time"

	"prep_backend/internal/model"
	"prep_backend/internal/testutil"
	"prep_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepositoryCreateInitialisesAccounts(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)

	email := "learner@example.com"
	user := &model.User{Name: "Learner", Email: &email, Password: "x", Role: model.Student}
	require.NoError(t, repo.Create(user))

	var streak model.UserStreak
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&streak).Error)
	var points model.UserPoints
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&points).Error)

	found, err := repo.FindByIdentifier("  Learner@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	taken, err := repo.EmailTaken(email, 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.EmailTaken(email, user.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestUserRepositoryRecordLogin(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	user := testutil.CreateUser(t, db, "login@example.com", "password123")

	require.NoError(t, repo.RecordLogin(user, "10.0.0.1", "test-agent", time.Now()))

	rows, err := repo.LoginHistory(user.ID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "10.0.0.1", rows[0].IPAddress)

	reloaded, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", reloaded.LastLoginIP)
	assert.NotNil(t, reloaded.LastLoginDate)
}

func TestCatalogRepositoryFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCatalogRepository(db)
	cat := testutil.CreateCatalog(t, db)

	videos, total, err := repo.ListVideos(VideoFilter{SubjectSlug: "mathematics"}, 0, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, videos, 2)
	assert.Equal(t, cat.Free.ID, videos[0].ID)

	videos, total, err = repo.ListVideos(VideoFilter{EducationLevelSlug: "senior-secondary", FreeOnly: true}, 0, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "intro-to-algebra", videos[0].Slug)

	_, total, err = repo.ListVideos(VideoFilter{ClassLevelSlug: "ss2"}, 0, 20)
	require.NoError(t, err)
	assert.Zero(t, total)

	summaries, err := repo.SubjectSummaries(true)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.EqualValues(t, 2, summaries[0].VideoCount)
	assert.EqualValues(t, 1, summaries[0].FreeVideoCount)

	samples, err := repo.RandomFreeVideos(12)
	require.NoError(t, err)
	assert.Len(t, samples, 1)

	taken, err := repo.OrderTaken(cat.Subject.ID, cat.Class.ID, 1, 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.OrderTaken(cat.Subject.ID, cat.Class.ID, 1, cat.Free.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestProgressRepositoryWatchedDurationNeverDecreases(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProgressRepository(db)
	user := testutil.CreateUser(t, db, "p@example.com", "password123")
	cat := testutil.CreateCatalog(t, db)

	h, created, err := repo.GetOrCreateHistory(user.ID, cat.Free.ID)
	require.NoError(t, err)
	assert.True(t, created)

	h.UpdateWatchProgress(54, 60)
	require.NoError(t, repo.SaveProgress(h))
	assert.True(t, h.IsCompleted)
	assert.Equal(t, 54, h.WatchedDuration)

	// 另一个请求持有旧快照并写入较小的值
	stale := &model.ViewHistory{ID: h.ID, UserID: user.ID, VideoID: cat.Free.ID}
	stale.UpdateWatchProgress(30, 60)
	require.NoError(t, repo.SaveProgress(stale))
	assert.Equal(t, 54, stale.WatchedDuration)
	assert.Equal(t, 30, stale.LastPosition)
	assert.True(t, stale.IsCompleted)

	_, created, err = repo.GetOrCreateHistory(user.ID, cat.Free.ID)
	require.NoError(t, err)
	assert.False(t, created)

	sum, avg, err := repo.WatchTotals(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 54, sum)
	assert.InDelta(t, 54.0, avg, 0.001)

	rows, err := repo.SubjectProgress(user.ID, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 2, rows[0].Total)
	assert.EqualValues(t, 1, rows[0].Completed)
	assert.InDelta(t, 0.5, rows[0].Ratio, 0.001)
}

func TestProgressRepositoryBookmarks(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProgressRepository(db)
	user := testutil.CreateUser(t, db, "b@example.com", "password123")
	cat := testutil.CreateCatalog(t, db)

	first, err := repo.AddBookmark(user.ID, cat.Paid.ID)
	require.NoError(t, err)
	second, err := repo.AddBookmark(user.ID, cat.Paid.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	list, err := repo.ListBookmarks(user.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Quadratic Equations", list[0].Video.Title)

	removed, err := repo.RemoveBookmark(user.ID, cat.Paid.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.RemoveBookmark(user.ID, cat.Paid.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestPointsRepositoryLedgerInvariant(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPointsRepository(db)
	user := testutil.CreateUser(t, db, "pts@example.com", "password123")

	videoID := uint(7)
	_, err := repo.AddPoints(user.ID, 30, "Completed video: Algebra", &videoID)
	require.NoError(t, err)
	_, err = repo.AddPoints(user.ID, 5, "", nil)
	require.NoError(t, err)

	_, ok, err := repo.RedeemPoints(user.ID, 100, "")
	require.NoError(t, err)
	assert.False(t, ok)

	entry, ok, err := repo.RedeemPoints(user.ID, 20, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.DefaultRedeemReason, entry.Reason)

	balance, err := repo.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 35, balance.TotalPoints)
	assert.Equal(t, 20, balance.RedeemedPoints)
	assert.Equal(t, 15, balance.AvailablePoints)
	assert.Equal(t, balance.TotalPoints-balance.RedeemedPoints, balance.AvailablePoints)

	rows, total, err := repo.Transactions(user.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, rows, 3)

	has, err := repo.HasVideoTransaction(user.ID, videoID, "Completed video:")
	require.NoError(t, err)
	assert.True(t, has)
	has, err = repo.HasVideoTransaction(user.ID, videoID, "Watched video:")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestPointsRepositoryActiveRule(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPointsRepository(db)

	rule, err := repo.ActiveRule(model.ActionLogin)
	require.NoError(t, err)
	require.NotNil(t, rule)

	rule.IsActive = false
	require.NoError(t, repo.SaveRule(rule))

	rule, err = repo.ActiveRule(model.ActionLogin)
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestRewardRepositoryRejectOnlyOnce(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewRewardRepository(db)
	user := testutil.CreateUser(t, db, "r@example.com", "password123")

	reward := &model.Reward{Name: "Data bundle", RewardType: model.RewardData, PointsRequired: 10, IsActive: true}
	require.NoError(t, repo.Create(reward))
	redemption := &model.RewardRedemption{UserID: user.ID, RewardID: reward.ID, PointsSpent: 10, Status: model.RedemptionPending}
	require.NoError(t, repo.CreateRedemption(redemption))

	entered, err := repo.TransitionStatus(redemption.ID, model.RedemptionRejected, nil)
	require.NoError(t, err)
	assert.True(t, entered)

	notes := "duplicate request"
	entered, err = repo.TransitionStatus(redemption.ID, model.RedemptionRejected, &notes)
	require.NoError(t, err)
	assert.False(t, entered)

	// rejected 之后不能改回 approved，再 rejected 也不再触发退款
	entered, err = repo.TransitionStatus(redemption.ID, model.RedemptionApproved, nil)
	assert.ErrorIs(t, err, util.ErrRedemptionFinal)
	assert.False(t, entered)
	entered, err = repo.TransitionStatus(redemption.ID, model.RedemptionRejected, nil)
	require.NoError(t, err)
	assert.False(t, entered)

	found, err := repo.FindRedemption(redemption.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RedemptionRejected, found.Status)
	assert.Equal(t, notes, found.Notes)
	assert.True(t, found.Refunded)
}

func TestRewardRepositoryApproveThenReject(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewRewardRepository(db)
	user := testutil.CreateUser(t, db, "a@example.com", "password123")

	reward := &model.Reward{Name: "Airtime", RewardType: model.RewardOther, PointsRequired: 10, IsActive: true}
	require.NoError(t, repo.Create(reward))
	redemption := &model.RewardRedemption{UserID: user.ID, RewardID: reward.ID, PointsSpent: 10, Status: model.RedemptionPending}
	require.NoError(t, repo.CreateRedemption(redemption))

	refund, err := repo.TransitionStatus(redemption.ID, model.RedemptionApproved, nil)
	require.NoError(t, err)
	assert.False(t, refund)

	refund, err = repo.TransitionStatus(redemption.ID, model.RedemptionRejected, nil)
	require.NoError(t, err)
	assert.True(t, refund)
}

func TestSubscriptionRepositoryUseVoucherOnce(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSubscriptionRepository(db)
	user := testutil.CreateUser(t, db, "v@example.com", "password123")
	plan := testutil.FindPlan(t, db, model.PlanStandard)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, repo.CreateVouchers([]model.VoucherCode{
		{Code: "FRESHCODE001", PlanID: plan.ID},
		{Code: "EXPIREDCODE1", PlanID: plan.ID, ExpiryDate: &past},
	}))

	voucher, err := repo.FindVoucher(" freshcode001 ")
	require.NoError(t, err)

	ok, err := repo.UseVoucher(voucher.ID, user.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.UseVoucher(voucher.ID, user.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	expired, err := repo.FindVoucher("EXPIREDCODE1")
	require.NoError(t, err)
	ok, err = repo.UseVoucher(expired.ID, user.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	expired, err = repo.FindVoucher("EXPIREDCODE1")
	require.NoError(t, err)
	assert.False(t, expired.IsUsed)
	assert.Nil(t, expired.UsedByID)
}

func TestSubscriptionRepositoryWindowOnSave(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSubscriptionRepository(db)
	user := testutil.CreateUser(t, db, "s@example.com", "password123")
	plan := testutil.FindPlan(t, db, model.PlanStandard)

	start := time.Now()
	sub := &model.UserSubscription{UserID: user.ID, PlanID: plan.ID, StartDate: start, IsActive: true}
	require.NoError(t, repo.CreateSubscription(sub))
	require.NotNil(t, sub.EndDate)
	assert.WithinDuration(t, start.AddDate(0, 0, plan.DurationDays), *sub.EndDate, time.Second)

	active, err := repo.LatestActive(user.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, sub.ID, active.ID)

	past := time.Now().Add(-time.Minute)
	active.EndDate = &past
	require.NoError(t, repo.SaveSubscription(active))
	assert.False(t, active.IsActive)

	active, err = repo.LatestActive(user.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestPaymentRepositoryMarkSettledOnce(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPaymentRepository(db)
	user := testutil.CreateUser(t, db, "pay@example.com", "password123")
	plan := testutil.FindPlan(t, db, model.PlanStandard)

	payment := &model.Payment{UserID: user.ID, PlanID: plan.ID, Amount: plan.Price, Reference: "REF0000000000001", Status: model.PaymentPending}
	require.NoError(t, repo.Create(payment))

	changed, err := repo.MarkSettled(payment.Reference, model.PaymentSuccess, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = repo.MarkSettled(payment.Reference, model.PaymentFailed, nil)
	require.NoError(t, err)
	assert.False(t, changed)

	found, err := repo.FindByReference(payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentSuccess, found.Status)

	_, err = repo.FindByReference("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
