package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"prep_backend/internal/config"
	"prep_backend/internal/model"
	"prep_backend/internal/repository"
	"prep_backend/internal/util"
	"prep_backend/pkg/logger"
	"prep_backend/pkg/monitoring"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InitiateResult 发起订阅的结果；免费套餐直接返回订阅，不生成支付
type InitiateResult struct {
	Reference        string                  `json:"reference,omitempty"`
	AuthorizationURL string                  `json:"authorizationUrl,omitempty"`
	AccessCode       string                  `json:"accessCode,omitempty"`
	Subscription     *model.UserSubscription `json:"subscription,omitempty"`
}

// SettleResult 支付结算后的状态
type SettleResult struct {
	Reference    string                  `json:"reference"`
	Status       model.PaymentStatus     `json:"status"`
	Subscription *model.UserSubscription `json:"subscription,omitempty"`
}

type SubscriptionService struct {
	SubRepo     *repository.SubscriptionRepository
	PaymentRepo *repository.PaymentRepository
	UserRepo    *repository.UserRepository
	Gateway     PaymentGateway
	Cfg         *config.Config
}

func NewSubscriptionService(
	subRepo *repository.SubscriptionRepository,
	paymentRepo *repository.PaymentRepository,
	userRepo *repository.UserRepository,
	gateway PaymentGateway,
	cfg *config.Config,
) *SubscriptionService {
	return &SubscriptionService{
		SubRepo:     subRepo,
		PaymentRepo: paymentRepo,
		UserRepo:    userRepo,
		Gateway:     gateway,
		Cfg:         cfg,
	}
}

func (s *SubscriptionService) ListPlans() ([]model.SubscriptionPlan, error) {
	return s.SubRepo.ListPlans(true)
}

// Current 最近的激活订阅；已过期的在读取时重新保存，由保存规则置为非激活
func (s *SubscriptionService) Current(userID uint) (*model.UserSubscription, error) {
	sub, err := s.SubRepo.LatestActive(userID)
	if err != nil || sub == nil {
		return nil, err
	}
	if sub.EndDate != nil && sub.EndDate.Before(time.Now()) {
		if err := s.SubRepo.SaveSubscription(sub); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return sub, nil
}

func (s *SubscriptionService) activate(repo *repository.SubscriptionRepository, userID uint, plan *model.SubscriptionPlan, reference string, voucherID *uint) (*model.UserSubscription, error) {
	sub := &model.UserSubscription{
		UserID:           userID,
		PlanID:           plan.ID,
		Plan:             plan,
		StartDate:        time.Now(),
		IsActive:         true,
		PaymentReference: reference,
		VoucherID:        voucherID,
	}
	if err := repo.CreateSubscription(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubscriptionService) customerEmail(user *model.User) string {
	if email := user.EmailAddress(); email != "" {
		return email
	}
	return fmt.Sprintf("user%d@%s", user.ID, s.Cfg.Payment.FallbackEmailHost)
}

// Initiate 发起订阅：免费套餐直接开通，付费套餐向网关下单并写入 pending 支付
func (s *SubscriptionService) Initiate(ctx context.Context, userID, planID uint) (*InitiateResult, error) {
	plan, err := s.SubRepo.FindPlan(planID)
	if err != nil {
		return nil, notFound(err, util.ErrPlanNotFound)
	}
	if !plan.IsActive {
		return nil, util.ErrPlanInactive
	}

	if plan.IsFree() {
		current, err := s.Current(userID)
		if err != nil {
			return nil, err
		}
		if current != nil {
			return nil, util.ErrAlreadySubscribed
		}
		sub, err := s.activate(s.SubRepo, userID, plan, "", nil)
		if err != nil {
			return nil, err
		}
		return &InitiateResult{Subscription: sub}, nil
	}

	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, notFound(err, util.ErrUserNotFound)
	}
	reference, err := util.GenerateReference()
	if err != nil {
		return nil, err
	}

	initRes, err := s.Gateway.Initialize(ctx, InitializeRequest{
		Reference:    reference,
		Amount:       plan.Price,
		Currency:     s.Cfg.Payment.Currency,
		Email:        s.customerEmail(user),
		CustomerName: user.Name,
		CallbackURL:  s.Cfg.Payment.CallbackURL,
	})
	if err != nil {
		logger.Log.Error("Payment initialization failed",
			zap.String("gateway", s.Gateway.Name()),
			zap.String("reference", reference),
			zap.Error(err),
		)
		return nil, err
	}

	payment := &model.Payment{
		UserID:          userID,
		PlanID:          plan.ID,
		Amount:          plan.Price,
		Reference:       reference,
		Gateway:         s.Gateway.Name(),
		Status:          model.PaymentPending,
		GatewayResponse: datatypes.JSON(initRes.Raw),
	}
	if err := s.PaymentRepo.Create(payment); err != nil {
		return nil, err
	}
	return &InitiateResult{
		Reference:        reference,
		AuthorizationURL: initRes.AuthorizationURL,
		AccessCode:       initRes.AccessCode,
	}, nil
}

// settle 在一个事务内完成 pending -> success|failed，只有本次完成状态变更时才创建订阅
func (s *SubscriptionService) settle(payment *model.Payment, status model.PaymentStatus, raw []byte) (*SettleResult, error) {
	result := &SettleResult{Reference: payment.Reference, Status: status}
	changed := false

	err := s.PaymentRepo.DB.Transaction(func(tx *gorm.DB) error {
		ok, err := s.PaymentRepo.WithTx(tx).MarkSettled(payment.Reference, status, datatypes.JSON(raw))
		if err != nil || !ok {
			return err
		}
		changed = true
		if status != model.PaymentSuccess {
			return nil
		}
		plan := payment.Plan
		if plan == nil {
			if plan, err = s.SubRepo.WithTx(tx).FindPlan(payment.PlanID); err != nil {
				return notFound(err, util.ErrPlanNotFound)
			}
		}
		sub, err := s.activate(s.SubRepo.WithTx(tx), payment.UserID, plan, payment.Reference, nil)
		if err != nil {
			return err
		}
		result.Subscription = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		// 已被另一路请求结算，返回当前状态
		current, err := s.PaymentRepo.FindByReference(payment.Reference)
		if err != nil {
			return nil, notFound(err, util.ErrPaymentNotFound)
		}
		result.Status = current.Status
		return result, nil
	}

	monitoring.PaymentsSettled.WithLabelValues(payment.Gateway, string(status)).Inc()
	logger.Log.Info("Payment settled",
		zap.String("reference", payment.Reference),
		zap.String("status", string(status)),
		zap.Uint("user_id", payment.UserID),
	)
	return result, nil
}

// Verify 客户端轮询确认支付；非 pending 的支付直接返回当前状态
func (s *SubscriptionService) Verify(ctx context.Context, userID uint, reference string) (*SettleResult, error) {
	payment, err := s.PaymentRepo.FindByReference(reference)
	if err != nil {
		return nil, notFound(err, util.ErrPaymentNotFound)
	}
	if userID != 0 && payment.UserID != userID {
		return nil, util.ErrPaymentNotFound
	}
	if payment.Status != model.PaymentPending {
		return &SettleResult{Reference: reference, Status: payment.Status}, nil
	}

	status, err := s.Gateway.Verify(ctx, reference)
	if err != nil {
		// 网关不可达时保持 pending，客户端可重试
		return nil, err
	}
	settled := model.PaymentFailed
	if status.Outcome == OutcomeSuccess {
		settled = model.PaymentSuccess
	}
	return s.settle(payment, settled, status.Raw)
}

// Webhook 网关异步通知；签名错误返回 ErrInvalidSignature，仍在处理中的事件忽略
func (s *SubscriptionService) Webhook(body []byte, header http.Header) (*SettleResult, error) {
	eventID := uuid.NewString()
	status, err := s.Gateway.ParseWebhook(body, header)
	if err != nil {
		logger.Log.Warn("Rejected payment webhook",
			zap.String("event_id", eventID),
			zap.String("gateway", s.Gateway.Name()),
			zap.Error(err),
		)
		if errors.Is(err, util.ErrInvalidSignature) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidWebhook, err)
	}

	logger.Log.Info("Payment webhook received",
		zap.String("event_id", eventID),
		zap.String("reference", status.Reference),
		zap.String("outcome", string(status.Outcome)),
	)

	payment, err := s.PaymentRepo.FindByReference(status.Reference)
	if err != nil {
		return nil, notFound(err, util.ErrPaymentNotFound)
	}
	switch status.Outcome {
	case OutcomeSuccess:
		return s.settle(payment, model.PaymentSuccess, status.Raw)
	case OutcomeFailed:
		return s.settle(payment, model.PaymentFailed, status.Raw)
	}
	return &SettleResult{Reference: payment.Reference, Status: payment.Status}, nil
}

// RedeemVoucher 兑换码使用与订阅创建在同一事务中
func (s *SubscriptionService) RedeemVoucher(userID uint, code string) (*model.UserSubscription, error) {
	voucher, err := s.SubRepo.FindVoucher(code)
	if err != nil {
		return nil, notFound(err, util.ErrVoucherNotFound)
	}
	now := time.Now()
	if !voucher.IsValid(now) {
		return nil, util.ErrVoucherInvalid
	}

	var sub *model.UserSubscription
	err = s.SubRepo.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.SubRepo.WithTx(tx)
		ok, err := repo.UseVoucher(voucher.ID, userID, now)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrVoucherInvalid
		}
		plan := voucher.Plan
		if plan == nil {
			if plan, err = repo.FindPlan(voucher.PlanID); err != nil {
				return notFound(err, util.ErrPlanNotFound)
			}
		}
		vid := voucher.ID
		sub, err = s.activate(repo, userID, plan, "", &vid)
		return err
	})
	if err != nil {
		return nil, err
	}

	monitoring.VouchersRedeemed.Inc()
	logger.Log.Info("Voucher redeemed",
		zap.Uint("user_id", userID),
		zap.Uint("voucher_id", voucher.ID),
	)
	return sub, nil
}

func (s *SubscriptionService) Payments(userID uint) ([]model.Payment, error) {
	return s.PaymentRepo.ListByUser(userID, util.DashboardListLimit)
}

// ---- 管理端 ----

func (s *SubscriptionService) AllPlans() ([]model.SubscriptionPlan, error) {
	return s.SubRepo.ListPlans(false)
}

func normalizePlan(plan *model.SubscriptionPlan) error {
	if !plan.PlanType.Valid() {
		return util.ErrInvalidPlanType
	}
	if plan.DurationDays <= 0 {
		plan.DurationDays = model.DefaultPlanDurationDays
	}
	if plan.VideoLimit < 0 {
		plan.VideoLimit = 0
	}
	return nil
}

func (s *SubscriptionService) CreatePlan(plan *model.SubscriptionPlan) error {
	if err := normalizePlan(plan); err != nil {
		return err
	}
	return s.SubRepo.CreatePlan(plan)
}

func (s *SubscriptionService) UpdatePlan(id uint, apply func(*model.SubscriptionPlan)) (*model.SubscriptionPlan, error) {
	plan, err := s.SubRepo.FindPlan(id)
	if err != nil {
		return nil, notFound(err, util.ErrPlanNotFound)
	}
	apply(plan)
	if err := normalizePlan(plan); err != nil {
		return nil, err
	}
	if err := s.SubRepo.UpdatePlan(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *SubscriptionService) DeletePlan(id uint) error {
	return notFound(s.SubRepo.DeletePlan(id), util.ErrPlanNotFound)
}

func (s *SubscriptionService) ListSubscriptions(userID uint, activeOnly bool, page, limit int) ([]model.UserSubscription, int64, error) {
	return s.SubRepo.ListSubscriptions(userID, activeOnly, util.Offset(page, limit), limit)
}

// GenerateVouchers 批量生成兑换码，单批最多 500 个
func (s *SubscriptionService) GenerateVouchers(planID uint, count int, expiry *time.Time) ([]model.VoucherCode, error) {
	if count < 1 || count > util.MaxVoucherBatchSize {
		return nil, util.ErrInvalidVoucherCount
	}
	if _, err := s.SubRepo.FindPlan(planID); err != nil {
		return nil, notFound(err, util.ErrPlanNotFound)
	}

	seen := make(map[string]bool, count)
	vouchers := make([]model.VoucherCode, 0, count)
	for len(vouchers) < count {
		code, err := util.GenerateVoucherCode()
		if err != nil {
			return nil, err
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		vouchers = append(vouchers, model.VoucherCode{Code: code, PlanID: planID, ExpiryDate: expiry})
	}
	if err := s.SubRepo.CreateVouchers(vouchers); err != nil {
		return nil, err
	}
	logger.Log.Info("Vouchers generated", zap.Uint("plan_id", planID), zap.Int("count", count))
	return vouchers, nil
}

func (s *SubscriptionService) ListVouchers(planID uint, used *bool, page, limit int) ([]model.VoucherCode, int64, error) {
	return s.SubRepo.ListVouchers(planID, used, util.Offset(page, limit), limit)
}
