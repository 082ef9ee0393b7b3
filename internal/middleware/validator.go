package middleware

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// phoneDigits 手机号只允许数字，空值交给 required/omitempty 处理
func phoneDigits(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RegisterValidators 在 gin 的校验器上注册自定义 tag
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		err = v.RegisterValidation("phone", phoneDigits)
	})
	return err
}
