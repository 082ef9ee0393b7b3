package util

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"prep_backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP(t *testing.T) {
	otp, err := GenerateOTP(6)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), otp)
}

func TestGenerateReferenceAndVoucher(t *testing.T) {
	ref, err := GenerateReference()
	require.NoError(t, err)
	assert.Len(t, ref, PaymentReferenceLen)

	code, err := GenerateVoucherCode()
	require.NoError(t, err)
	assert.Len(t, code, VoucherCodeLen)
	assert.Equal(t, model.NormalizeVoucherCode(code), code)
}

func TestJWTRoundTrip(t *testing.T) {
	email := "ada@example.com"
	user := &model.User{Email: &email, Role: model.ContentAdmin}
	user.ID = 42

	token, err := GenerateJWT(user, "secret-secret-secret-secret-secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret-secret-secret-secret-secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, model.ContentAdmin, claims.Role)
	assert.Equal(t, email, claims.Email)

	_, err = ParseJWT(token, "another-secret")
	assert.Error(t, err)
}

func TestExpiredJWTRejected(t *testing.T) {
	user := &model.User{Role: model.Student}
	token, err := GenerateJWT(user, "k", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(token, "k")
	assert.Error(t, err)
}

func TestHasAllowedExt(t *testing.T) {
	assert.True(t, HasAllowedExt("lesson.MP4", AllowedVideoExtensions))
	assert.False(t, HasAllowedExt("lesson.exe", AllowedVideoExtensions))
	assert.Equal(t, "my-video.mp4", SafeFilename("../tmp/my video.mp4"))
}

func TestValidateMimeType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000000000")
	mime, err := ValidateMimeType(bytes.NewReader(png), []string{MimeImage})
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, err = ValidateMimeType(bytes.NewReader([]byte("plain text")), []string{MimeVideo})
	assert.Error(t, err)
}

func TestPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=0&limit=500", nil)

	page, limit := Pagination(c)
	assert.Equal(t, 1, page)
	assert.Equal(t, 100, limit)
	assert.Equal(t, 0, Offset(page, limit))
}
