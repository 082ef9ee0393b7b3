package database

import (
	"fmt"
	"prep_backend/internal/config"
	"prep_backend/internal/model"
	applog "prep_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models 需要迁移的全部模型
var Models = []interface{}{
	&model.User{},
	&model.LoginHistory{},
	&model.EducationLevel{},
	&model.ClassLevel{},
	&model.Subject{},
	&model.VideoLesson{},
	&model.Bookmark{},
	&model.ViewHistory{},
	&model.UserStreak{},
	&model.PointsRule{},
	&model.UserPoints{},
	&model.PointsTransaction{},
	&model.Reward{},
	&model.RewardRedemption{},
	&model.SubscriptionPlan{},
	&model.VoucherCode{},
	&model.UserSubscription{},
	&model.Payment{},
}

// DefaultPointsRules 默认积分规则
var DefaultPointsRules = []model.PointsRule{
	{ActionType: model.ActionLogin, Points: 5, Description: "Daily login reward", IsActive: true},
	{ActionType: model.ActionVideoWatch, Points: 2, Description: "Watching a video lesson", IsActive: true},
	{ActionType: model.ActionCompleteVideo, Points: 10, Description: "Completing a video lesson", IsActive: true},
	{ActionType: model.ActionStreakMilestone, Points: 20, Description: "Reaching a streak milestone", IsActive: true},
}

// DefaultPlans 默认订阅套餐
var DefaultPlans = []model.SubscriptionPlan{
	{Name: "Free", PlanType: model.PlanFree, Description: "Free sample lessons", Price: 0, DurationDays: model.DefaultPlanDurationDays, VideoLimit: model.DefaultPlanVideoLimit, IsActive: true},
	{Name: "Standard", PlanType: model.PlanStandard, Description: "Full catalog access for 30 days", Price: 2000, DurationDays: 30, VideoLimit: 0, IsActive: true},
	{Name: "Scholar", PlanType: model.PlanScholar, Description: "Full catalog access for a school term", Price: 5000, DurationDays: 90, VideoLimit: 0, IsActive: true},
}

// Dialector 根据配置选择数据库驱动
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// InitDB 建立连接；migrate 为 true 时执行迁移与默认数据初始化
func InitDB(cfg *config.DatabaseConfig, mode string, migrate bool) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if mode == "debug" {
		logLevel = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	applog.Log.Info("Database connection established", zap.String("driver", dialector.Name()))

	if migrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		applog.Log.Info("Database migration completed")
	}
	return db, nil
}

// Migrate 自动迁移并补齐默认积分规则与套餐
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return err
	}
	return Seed(db)
}

func Seed(db *gorm.DB) error {
	for _, d := range DefaultPointsRules {
		rule := d
		if err := db.Where(model.PointsRule{ActionType: rule.ActionType}).FirstOrCreate(&rule).Error; err != nil {
			return err
		}
	}

	for _, d := range DefaultPlans {
		plan := d
		var count int64
		if err := db.Model(&model.SubscriptionPlan{}).Where("plan_type = ?", plan.PlanType).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&plan).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
