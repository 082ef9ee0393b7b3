package service

import (
	"prep_backend/internal/repository"
	"prep_backend/pkg/logger"
	"prep_backend/pkg/monitoring"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const expirySweepBatch = 200

// SubscriptionScheduler 定时重新保存已过期但仍激活的订阅，由保存规则置为非激活
type SubscriptionScheduler struct {
	SubRepo *repository.SubscriptionRepository
	cron    *cron.Cron
}

func NewSubscriptionScheduler(subRepo *repository.SubscriptionRepository) *SubscriptionScheduler {
	return &SubscriptionScheduler{SubRepo: subRepo}
}

// Start 按 cron 表达式注册任务并启动
func (s *SubscriptionScheduler) Start(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		n, err := s.SweepExpired(time.Now())
		if err != nil {
			logger.Log.Error("Subscription expiry sweep failed", zap.Error(err))
			return
		}
		logger.Log.Info("Subscription expiry sweep finished", zap.Int("deactivated", n))
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	logger.Log.Info("Subscription scheduler started", zap.String("spec", spec))
	return nil
}

func (s *SubscriptionScheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// SweepExpired 分批处理，返回被置为非激活的数量
func (s *SubscriptionScheduler) SweepExpired(now time.Time) (int, error) {
	total := 0
	for {
		rows, err := s.SubRepo.ExpiredActive(now, expirySweepBatch)
		if err != nil {
			return total, err
		}
		if len(rows) == 0 {
			return total, nil
		}
		for i := range rows {
			if err := s.SubRepo.SaveSubscription(&rows[i]); err != nil {
				return total, err
			}
			if !rows[i].IsActive {
				total++
				monitoring.SubscriptionsExpired.Inc()
			}
		}
		if len(rows) < expirySweepBatch {
			return total, nil
		}
	}
}
