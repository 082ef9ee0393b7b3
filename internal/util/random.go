package util

import (
	"crypto/rand"
	"math/big"
)

const (
	digits       = "0123456789"
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	voucherChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

func randomFrom(charset string, n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(charset)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b), nil
}

// GenerateOTP 生成 n 位数字验证码
func GenerateOTP(n int) (string, error) {
	return randomFrom(digits, n)
}

// GenerateReference 生成支付流水号
func GenerateReference() (string, error) {
	return randomFrom(alphanumeric, PaymentReferenceLen)
}

// GenerateVoucherCode 去掉易混淆字符的大写兑换码
func GenerateVoucherCode() (string, error) {
	return randomFrom(voucherChars, VoucherCodeLen)
}
