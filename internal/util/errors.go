package util

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailRegistered      = errors.New("a user with this email already exists")
	ErrPhoneRegistered      = errors.New("a user with this phone number already exists")
	ErrContactRequired      = errors.New("either email or phone number is required")
	ErrInvalidPhone         = errors.New("phone number must contain only digits")
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrPasswordTooShort     = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountInactive      = errors.New("account is not verified")
	ErrInvalidOTP           = errors.New("invalid or expired OTP")
	ErrOTPThrottled         = errors.New("please wait before requesting another OTP")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrNotAdmin             = errors.New("user is not an admin")
	ErrInvalidRole          = errors.New("invalid role")
	ErrSlugTaken            = errors.New("slug already in use")
	ErrNotFound             = errors.New("resource not found")
	ErrVideoNotFound        = errors.New("video not found")
	ErrSubjectNotFound      = errors.New("subject not found")
	ErrOrderConflict        = errors.New("order already used for this subject and class level")
	ErrInvalidVideoExt      = errors.New("unsupported video file extension")
	ErrInvalidSource        = errors.New("invalid video source")
	ErrAccessDenied         = errors.New("an active subscription is required to watch this video")
	ErrInsufficientPoints   = errors.New("insufficient points")
	ErrRewardNotFound       = errors.New("reward not found")
	ErrRewardInactive       = errors.New("reward is not available")
	ErrRedemptionNotFound   = errors.New("redemption not found")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrPlanNotFound         = errors.New("subscription plan not found")
	ErrVoucherNotFound      = errors.New("voucher not found")
	ErrVoucherInvalid       = errors.New("voucher is used or expired")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrGatewayFailure       = errors.New("payment gateway request failed")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrInvalidWebhook       = errors.New("invalid webhook payload")
	ErrAlreadySubscribed    = errors.New("an active subscription already exists")
	ErrRedemptionFinal      = errors.New("redemption was rejected and refunded")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrPlanInactive         = errors.New("subscription plan is not available")
	ErrInvalidPlanType      = errors.New("invalid plan type")
	ErrInvalidVoucherCount  = errors.New("voucher count must be between 1 and 500")
)
