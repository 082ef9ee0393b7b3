package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	OTP       OTPConfig       `mapstructure:"otp"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Mail      MailConfig      `mapstructure:"mail"`
	Loyalty   LoyaltyConfig   `mapstructure:"loyalty"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Platform  PlatformConfig  `mapstructure:"platform"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port    string
	Mode    string
	BaseURL string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"sslmode"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// OTPConfig 验证码配置
type OTPConfig struct {
	Length          int `mapstructure:"length"`
	ExpiryMinutes   int `mapstructure:"expiry_minutes"`
	ResendCooldownS int `mapstructure:"resend_cooldown_seconds"`
}

// PaymentConfig 支付网关配置，Gateway 为 paystack 或 midtrans
type PaymentConfig struct {
	Gateway            string `mapstructure:"gateway"`
	Currency           string `mapstructure:"currency"`
	CallbackURL        string `mapstructure:"callback_url"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	PaystackBaseURL    string `mapstructure:"paystack_base_url"`
	PaystackSecretKey  string `mapstructure:"paystack_secret_key"`
	MidtransServerKey  string `mapstructure:"midtrans_server_key"`
	MidtransProduction bool   `mapstructure:"midtrans_production"`
	FallbackEmailHost  string `mapstructure:"fallback_email_host"`
}

type MailConfig struct {
	Provider       string `mapstructure:"provider"`
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	FromEmail      string `mapstructure:"from_email"`
	FromName       string `mapstructure:"from_name"`
}

type LoyaltyConfig struct {
	StreakMilestones []int `mapstructure:"streak_milestones"`
}

type SchedulerConfig struct {
	ExpirySweepEnabled bool   `mapstructure:"expiry_sweep_enabled"`
	ExpirySweepSpec    string `mapstructure:"expiry_sweep_spec"`
}

type PlatformConfig struct {
	SiteName        string `mapstructure:"site_name"`
	SupportEmail    string `mapstructure:"support_email"`
	MaintenanceMode bool   `mapstructure:"maintenance_mode"`
}

// DefaultStreakMilestones 连续学习天数奖励节点
var DefaultStreakMilestones = []int{7, 14, 30, 60, 90, 180, 365}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("PREP")
	v.AutomaticEnv()

	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.base_url", "SERVER_BASE_URL")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Payment
	v.BindEnv("payment.gateway", "PAYMENT_GATEWAY")
	v.BindEnv("payment.callback_url", "PAYMENT_CALLBACK_URL")
	v.BindEnv("payment.paystack_secret_key", "PAYSTACK_SECRET_KEY")
	v.BindEnv("payment.midtrans_server_key", "MIDTRANS_SERVER_KEY")
	v.BindEnv("payment.midtrans_production", "MIDTRANS_PRODUCTION")

	// Mail
	v.BindEnv("mail.provider", "MAIL_PROVIDER")
	v.BindEnv("mail.sendgrid_api_key", "SENDGRID_API_KEY")
	v.BindEnv("mail.from_email", "MAIL_FROM_EMAIL")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("jwt.expire_hours", 72)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")
	v.SetDefault("rate_limit.max_requests", 1000)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("otp.length", 6)
	v.SetDefault("otp.expiry_minutes", 10)
	v.SetDefault("otp.resend_cooldown_seconds", 60)
	v.SetDefault("payment.gateway", "paystack")
	v.SetDefault("payment.currency", "NGN")
	v.SetDefault("payment.timeout_seconds", 30)
	v.SetDefault("payment.paystack_base_url", "https://api.paystack.co")
	v.SetDefault("payment.fallback_email_host", "users.prep.local")
	v.SetDefault("mail.provider", "log")
	v.SetDefault("mail.from_name", "Prep")
	v.SetDefault("scheduler.expiry_sweep_enabled", false)
	v.SetDefault("scheduler.expiry_sweep_spec", "0 * * * *")
	v.SetDefault("platform.site_name", "Prep Platform")
}

// normalize 校验并补全配置
func (c *Config) normalize() error {
	c.JWT.ExpireTime = c.JWT.ExpireTime * time.Hour

	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}

	switch c.Payment.Gateway {
	case "paystack", "midtrans":
	default:
		return fmt.Errorf("unsupported payment gateway %q", c.Payment.Gateway)
	}

	if len(c.Loyalty.StreakMilestones) == 0 {
		c.Loyalty.StreakMilestones = DefaultStreakMilestones
	}
	if c.OTP.Length <= 0 {
		c.OTP.Length = 6
	}
	if c.OTP.ExpiryMinutes <= 0 {
		c.OTP.ExpiryMinutes = 10
	}
	return nil
}

func (c *Config) OTPExpiry() time.Duration {
	return time.Duration(c.OTP.ExpiryMinutes) * time.Minute
}

func (c *Config) PaymentTimeout() time.Duration {
	if c.Payment.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Payment.TimeoutSeconds) * time.Second
}
