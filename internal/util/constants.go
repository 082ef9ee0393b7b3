package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	GatewayPaystack = "paystack"
	GatewayMidtrans = "midtrans"
)

// 文件上传相关常量
const (
	MimeVideo = "video/"
	MimeImage = "image/"
)

var (
	AllowedVideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".wmv", ".flv", ".webm"}
	AllowedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
)

const (
	// 列表类接口的固定条数
	RecentActivityLimit = 10
	FreeSampleLimit     = 12
	RecommendationLimit = 3
	DashboardListLimit  = 10
	PaymentReferenceLen = 16
	VoucherCodeLen      = 12
	MaxVoucherBatchSize = 500
)
