package service

import (
	"context"
	"fmt"
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

type subscriptionFixture struct {
	db      *gorm.DB
	user    *model.User
	gateway *fakeGateway
	svc     *SubscriptionService
}

func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
	db := testutil.NewDB(t)
	gateway := &fakeGateway{}
	svc := NewSubscriptionService(
		repository.NewSubscriptionRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewUserRepository(db),
		gateway,
		testConfig(),
	)
	return &subscriptionFixture{
		db:      db,
		user:    testutil.CreateUser(t, db, "subscriber@example.com", "password123"),
		gateway: gateway,
		svc:     svc,
	}
}

func (f *subscriptionFixture) countSubscriptions(t *testing.T) int64 {
	var n int64
	require.NoError(t, f.db.Model(&model.UserSubscription{}).Where("user_id = ?", f.user.ID).Count(&n).Error)
	return n
}

func TestInitiateFreePlanActivatesDirectly(t *testing.T) {
	f := newSubscriptionFixture(t)
	plan := testutil.FindPlan(t, f.db, model.PlanFree)

	result, err := f.svc.Initiate(context.Background(), f.user.ID, plan.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Subscription)
	assert.Empty(t, result.Reference)
	assert.Empty(t, f.gateway.initReqs)
	assert.True(t, result.Subscription.IsActive)
	require.NotNil(t, result.Subscription.EndDate)
	assert.WithinDuration(t, result.Subscription.StartDate.AddDate(0, 0, plan.DurationDays), *result.Subscription.EndDate, time.Second)

	current, err := f.svc.Current(f.user.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, plan.ID, current.PlanID)
}

func TestFreePlanDoesNotUnlockPaidVideos(t *testing.T) {
	f := newSubscriptionFixture(t)
	catalog := testutil.CreateCatalog(t, f.db)
	subRepo := repository.NewSubscriptionRepository(f.db)
	catalogSvc := NewCatalogService(repository.NewCatalogRepository(f.db), subRepo)
	free := testutil.FindPlan(t, f.db, model.PlanFree)

	_, err := f.svc.Initiate(context.Background(), f.user.ID, free.ID)
	require.NoError(t, err)

	// 已有有效订阅时不能重复开通免费套餐
	_, err = f.svc.Initiate(context.Background(), f.user.ID, free.ID)
	assert.ErrorIs(t, err, util.ErrAlreadySubscribed)
	assert.EqualValues(t, 1, f.countSubscriptions(t))

	access, err := catalogSvc.CheckAccess(f.user.ID, catalog.Paid.ID)
	require.NoError(t, err)
	assert.False(t, access.CanWatch)
	assert.Empty(t, access.VideoURL)

	access, err = catalogSvc.CheckAccess(f.user.ID, catalog.Free.ID)
	require.NoError(t, err)
	assert.True(t, access.CanWatch)

	standard := testutil.FindPlan(t, f.db, model.PlanStandard)
	end := time.Now().AddDate(0, 0, standard.DurationDays)
	require.NoError(t, subRepo.SaveSubscription(&model.UserSubscription{
		UserID: f.user.ID, PlanID: standard.ID, StartDate: time.Now().Add(-time.Minute), EndDate: &end, IsActive: true,
	}))

	access, err = catalogSvc.CheckAccess(f.user.ID, catalog.Paid.ID)
	require.NoError(t, err)
	assert.True(t, access.CanWatch)
	assert.NotEmpty(t, access.VideoURL)
}

func TestInitiatePaidPlanCreatesPendingPayment(t *testing.T) {
	f := newSubscriptionFixture(t)
	plan := testutil.FindPlan(t, f.db, model.PlanStandard)

	result, err := f.svc.Initiate(context.Background(), f.user.ID, plan.ID)
	require.NoError(t, err)
	assert.Len(t, result.Reference, util.PaymentReferenceLen)
	assert.Equal(t, "https://pay.test/"+result.Reference, result.AuthorizationURL)

	require.Len(t, f.gateway.initReqs, 1)
	req := f.gateway.initReqs[0]
	assert.Equal(t, "subscriber@example.com", req.Email)
	assert.Equal(t, plan.Price, req.Amount)

	var payment model.Payment
	require.NoError(t, f.db.Where("reference = ?", result.Reference).First(&payment).Error)
	assert.Equal(t, model.PaymentPending, payment.Status)
	assert.Zero(t, f.countSubscriptions(t))
}

func TestInitiatePhoneOnlyUserUsesFallbackEmail(t *testing.T) {
	f := newSubscriptionFixture(t)
	phone := "08099990000"
	user := &model.User{Name: "Phone", PhoneNumber: &phone, Password: "x", Role: model.Student, IsActive: true}
	require.NoError(t, f.svc.UserRepo.Create(user))
	plan := testutil.FindPlan(t, f.db, model.PlanScholar)

	_, err := f.svc.Initiate(context.Background(), user.ID, plan.ID)
	require.NoError(t, err)
	require.Len(t, f.gateway.initReqs, 1)
	assert.Equal(t, fmt.Sprintf("user%d@users.prep.test", user.ID), f.gateway.initReqs[0].Email)
}

func TestInitiateGatewayFailureStoresNothing(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.gateway.initErr = fmt.Errorf("%w: timeout", util.ErrGatewayFailure)
	plan := testutil.FindPlan(t, f.db, model.PlanStandard)

	_, err := f.svc.Initiate(context.Background(), f.user.ID, plan.ID)
	assert.ErrorIs(t, err, util.ErrGatewayFailure)

	var n int64
	require.NoError(t, f.db.Model(&model.Payment{}).Count(&n).Error)
	assert.Zero(t, n)
}

func (f *subscriptionFixture) pendingPayment(t *testing.T) string {
	plan := testutil.FindPlan(t, f.db, model.PlanStandard)
	result, err := f.svc.Initiate(context.Background(), f.user.ID, plan.ID)
	require.NoError(t, err)
	return result.Reference
}

func TestVerifySuccessIsIdempotent(t *testing.T) {
	f := newSubscriptionFixture(t)
	ref := f.pendingPayment(t)
	f.gateway.verify = &GatewayStatus{Reference: ref, Outcome: OutcomeSuccess, Raw: []byte(`{"status":"success"}`)}

	result, err := f.svc.Verify(context.Background(), f.user.ID, ref)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentSuccess, result.Status)
	require.NotNil(t, result.Subscription)
	assert.Equal(t, ref, result.Subscription.PaymentReference)

	again, err := f.svc.Verify(context.Background(), f.user.ID, ref)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentSuccess, again.Status)
	assert.Nil(t, again.Subscription)

	// webhook 晚到也不会重复开通
	f.gateway.webhook = &GatewayStatus{Reference: ref, Outcome: OutcomeSuccess}
	_, err = f.svc.Webhook([]byte(`{}`), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.countSubscriptions(t))
}

func TestVerifyGatewayFailureMarksFailed(t *testing.T) {
	f := newSubscriptionFixture(t)
	ref := f.pendingPayment(t)
	f.gateway.verify = &GatewayStatus{Reference: ref, Outcome: OutcomeFailed}

	result, err := f.svc.Verify(context.Background(), f.user.ID, ref)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, result.Status)
	assert.Zero(t, f.countSubscriptions(t))
}

func TestVerifyGatewayPendingMarksFailed(t *testing.T) {
	f := newSubscriptionFixture(t)
	ref := f.pendingPayment(t)
	f.gateway.verify = &GatewayStatus{Reference: ref, Outcome: OutcomePending}

	result, err := f.svc.Verify(context.Background(), f.user.ID, ref)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, result.Status)
	assert.Zero(t, f.countSubscriptions(t))
}

func TestVerifyTransportErrorKeepsPending(t *testing.T) {
	f := newSubscriptionFixture(t)
	ref := f.pendingPayment(t)
	f.gateway.verifyErr = fmt.Errorf("%w: connection refused", util.ErrGatewayFailure)

	_, err := f.svc.Verify(context.Background(), f.user.ID, ref)
	assert.ErrorIs(t, err, util.ErrGatewayFailure)

	var payment model.Payment
	require.NoError(t, f.db.Where("reference = ?", ref).First(&payment).Error)
	assert.Equal(t, model.PaymentPending, payment.Status)

	_, err = f.svc.Verify(context.Background(), f.user.ID, "missing-ref")
	assert.ErrorIs(t, err, util.ErrPaymentNotFound)
}

func TestWebhookSignatureAndPending(t *testing.T) {
	f := newSubscriptionFixture(t)
	ref := f.pendingPayment(t)

	f.gateway.webhookEr = util.ErrInvalidSignature
	_, err := f.svc.Webhook([]byte(`{}`), nil)
	assert.ErrorIs(t, err, util.ErrInvalidSignature)

	f.gateway.webhookEr = nil
	f.gateway.webhook = &GatewayStatus{Reference: ref, Outcome: OutcomePending}
	result, err := f.svc.Webhook([]byte(`{}`), nil)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, result.Status)

	f.gateway.webhook = &GatewayStatus{Reference: ref, Outcome: OutcomeSuccess}
	result, err = f.svc.Webhook([]byte(`{}`), nil)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentSuccess, result.Status)
	assert.Equal(t, int64(1), f.countSubscriptions(t))
}

func TestRedeemVoucherOnce(t *testing.T) {
	f := newSubscriptionFixture(t)
	plan := testutil.FindPlan(t, f.db, model.PlanScholar)

	vouchers, err := f.svc.GenerateVouchers(plan.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, vouchers, 2)

	sub, err := f.svc.RedeemVoucher(f.user.ID, " "+vouchers[0].Code+" ")
	require.NoError(t, err)
	assert.Equal(t, plan.ID, sub.PlanID)
	require.NotNil(t, sub.VoucherID)
	assert.Equal(t, vouchers[0].ID, *sub.VoucherID)

	_, err = f.svc.RedeemVoucher(f.user.ID, vouchers[0].Code)
	assert.ErrorIs(t, err, util.ErrVoucherInvalid)
	_, err = f.svc.RedeemVoucher(f.user.ID, "NOSUCHCODE")
	assert.ErrorIs(t, err, util.ErrVoucherNotFound)
	assert.Equal(t, int64(1), f.countSubscriptions(t))

	_, err = f.svc.GenerateVouchers(plan.ID, util.MaxVoucherBatchSize+1, nil)
	assert.ErrorIs(t, err, util.ErrInvalidVoucherCount)
}

func TestRedeemExpiredVoucher(t *testing.T) {
	f := newSubscriptionFixture(t)
	plan := testutil.FindPlan(t, f.db, model.PlanStandard)
	past := time.Now().Add(-time.Hour)

	vouchers, err := f.svc.GenerateVouchers(plan.ID, 1, &past)
	require.NoError(t, err)

	_, err = f.svc.RedeemVoucher(f.user.ID, vouchers[0].Code)
	assert.ErrorIs(t, err, util.ErrVoucherInvalid)

	var v model.VoucherCode
	require.NoError(t, f.db.First(&v, vouchers[0].ID).Error)
	assert.False(t, v.IsUsed)
	assert.Nil(t, v.UsedByID)
}

func TestCurrentDeactivatesExpired(t *testing.T) {
	f := newSubscriptionFixture(t)
	plan := testutil.FindPlan(t, f.db, model.PlanStandard)

	start := time.Now().AddDate(0, 0, -40)
	end := start.AddDate(0, 0, 30)
	// 直接写入，绕过保存规则，模拟过期但仍标记激活的旧数据
	require.NoError(t, f.db.Exec(
		"INSERT INTO user_subscriptions (created_at, updated_at, user_id, plan_id, start_date, end_date, is_active, payment_reference) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		start, start, f.user.ID, plan.ID, start, end, true, "",
	).Error)

	current, err := f.svc.Current(f.user.ID)
	require.NoError(t, err)
	assert.Nil(t, current)

	var sub model.UserSubscription
	require.NoError(t, f.db.Where("user_id = ?", f.user.ID).First(&sub).Error)
	assert.False(t, sub.IsActive)
}

func TestSchedulerSweepExpired(t *testing.T) {
	f := newSubscriptionFixture(t)
	plan := testutil.FindPlan(t, f.db, model.PlanStandard)

	start := time.Now().AddDate(0, 0, -40)
	end := start.AddDate(0, 0, 30)
	require.NoError(t, f.db.Exec(
		"INSERT INTO user_subscriptions (created_at, updated_at, user_id, plan_id, start_date, end_date, is_active, payment_reference) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		start, start, f.user.ID, plan.ID, start, end, true, "",
	).Error)
	_, err := f.svc.Initiate(context.Background(), f.user.ID, testutil.FindPlan(t, f.db, model.PlanFree).ID)
	require.NoError(t, err)

	scheduler := NewSubscriptionScheduler(f.svc.SubRepo)
	n, err := scheduler.SweepExpired(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var active int64
	require.NoError(t, f.db.Model(&model.UserSubscription{}).Where("is_active = ?", true).Count(&active).Error)
	assert.Equal(t, int64(1), active)
}
