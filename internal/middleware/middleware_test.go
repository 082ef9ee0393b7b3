package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"prep_backend/internal/config"
	"prep_backend/internal/model"
	"prep_backend/internal/policy"
	"prep_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, secret string, role model.UserRole) string {
	email := "staff@example.com"
	tok, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: 7}, Email: &email, Role: role}, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func newRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(cfg), func(c *gin.Context) {
		util.Success(c, util.GetUserFromContext(c).UserID)
	})
	r.GET("/admin/users", AuthMiddleware(cfg), Require(policy.ManageUsers), func(c *gin.Context) {
		util.Success(c, nil)
	})
	r.GET("/admin/content", AuthMiddleware(cfg), Require(policy.ManageContent), func(c *gin.Context) {
		util.Success(c, nil)
	})
	return r
}

func do(r http.Handler, path, tok string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "secret"}}
	r := newRouter(cfg)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", ""))
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "not-a-token"))
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", token(t, "other-secret", model.Student)))
	assert.Equal(t, http.StatusOK, do(r, "/me", token(t, "secret", model.Student)))
}

func TestRequirePolicy(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "secret"}}
	r := newRouter(cfg)

	student := token(t, "secret", model.Student)
	contentAdmin := token(t, "secret", model.ContentAdmin)
	superAdmin := token(t, "secret", model.SuperAdmin)

	assert.Equal(t, http.StatusForbidden, do(r, "/admin/content", student))
	assert.Equal(t, http.StatusOK, do(r, "/admin/content", contentAdmin))
	assert.Equal(t, http.StatusForbidden, do(r, "/admin/users", contentAdmin))
	assert.Equal(t, http.StatusOK, do(r, "/admin/users", superAdmin))
}

func TestPhoneValidator(t *testing.T) {
	require.NoError(t, RegisterValidators())

	type form struct {
		Phone string `binding:"omitempty,phone"`
	}
	assert.NoError(t, binding.Validator.ValidateStruct(&form{Phone: "08012345678"}))
	assert.NoError(t, binding.Validator.ValidateStruct(&form{}))
	assert.Error(t, binding.Validator.ValidateStruct(&form{Phone: "+234-801"}))
}
