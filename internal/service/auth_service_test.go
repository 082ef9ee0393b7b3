package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"prep_backend/internal/config"
	"prep_backend/internal/model"
	"prep_backend/internal/repository"
	"prep_backend/internal/testutil"
	"prep_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		OTP: config.OTPConfig{Length: 6, ExpiryMinutes: 10},
		Payment: config.PaymentConfig{
			Gateway:           util.GatewayPaystack,
			Currency:          "NGN",
			CallbackURL:       "https://prep.test/callback",
			FallbackEmailHost: "users.prep.test",
		},
		Loyalty:  config.LoyaltyConfig{StreakMilestones: config.DefaultStreakMilestones},
		Platform: config.PlatformConfig{SiteName: "Prep Platform", SupportEmail: "help@prep.test"},
		Storage:  config.StorageConfig{Type: util.StorageLocal},
	}
}

type sentMail struct {
	To      string
	Subject string
	Plain   string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) Send(ctx context.Context, toName, toEmail, subject, plain, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: toEmail, Subject: subject, Plain: plain})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// fakeGateway 记录调用并返回预设结果
type fakeGateway struct {
	initErr   error
	verify    *GatewayStatus
	verifyErr error
	webhook   *GatewayStatus
	webhookEr error
	initReqs  []InitializeRequest
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	g.initReqs = append(g.initReqs, req)
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &InitializeResult{
		AuthorizationURL: "https://pay.test/" + req.Reference,
		AccessCode:       "code-" + req.Reference,
		Raw:              []byte(`{"status":true}`),
	}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, reference string) (*GatewayStatus, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.verify, nil
}

func (g *fakeGateway) ParseWebhook(body []byte, header http.Header) (*GatewayStatus, error) {
	if g.webhookEr != nil {
		return nil, g.webhookEr
	}
	return g.webhook, nil
}

func newAuthService(t *testing.T) (*AuthService, *fakeMailer, *repository.UserRepository) {
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db)
	mailer := &fakeMailer{}
	return NewAuthService(repo, mailer, nil, testConfig()), mailer, repo
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"no contact", RegisterInput{Password: "password123", ConfirmPassword: "password123"}, util.ErrContactRequired},
		{"bad phone", RegisterInput{PhoneNumber: "080-123", Password: "password123", ConfirmPassword: "password123"}, util.ErrInvalidPhone},
		{"short password", RegisterInput{Email: "a@b.com", Password: "short", ConfirmPassword: "short"}, util.ErrPasswordTooShort},
		{"mismatch", RegisterInput{Email: "a@b.com", Password: "password123", ConfirmPassword: "password124"}, util.ErrPasswordMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRegisterVerifyAndLogin(t *testing.T) {
	svc, mailer, repo := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{
		Name: "Ada", Email: "Ada@Example.com", Password: "password123", ConfirmPassword: "password123",
	})
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	assert.Len(t, user.OTPCode, 6)
	assert.Equal(t, 1, mailer.count())

	_, err = svc.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "password123", ConfirmPassword: "password123"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	_, _, err = svc.Login("ada@example.com", "password123", "127.0.0.1", "test")
	assert.ErrorIs(t, err, util.ErrAccountInactive)

	_, err = svc.VerifyOTP("ada@example.com", "000000x")
	assert.ErrorIs(t, err, util.ErrInvalidOTP)

	result, err := svc.VerifyOTP("ada@example.com", user.OTPCode)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.True(t, result.User.IsActive)
	assert.True(t, result.User.IsEmailVerified)

	// 验证码只能使用一次
	_, err = svc.VerifyOTP("ada@example.com", user.OTPCode)
	assert.ErrorIs(t, err, util.ErrInvalidOTP)

	_, _, err = svc.Login("ada@example.com", "wrong-password", "127.0.0.1", "test")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, _, err = svc.Login("nobody@example.com", "password123", "127.0.0.1", "test")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	auth, event, err := svc.Login("ada@example.com", "password123", "10.1.1.1", "agent")
	require.NoError(t, err)
	assert.NotEmpty(t, auth.Token)
	require.NotNil(t, event)
	assert.Equal(t, user.ID, event.UserID)

	claims, err := util.ParseJWT(auth.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.Student, claims.Role)

	history, err := repo.LoginHistory(user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestExpiredOTPRejected(t *testing.T) {
	svc, _, repo := newAuthService(t)

	phone := "08012345678"
	user, err := svc.Register(context.Background(), RegisterInput{
		Name: "Phone", PhoneNumber: phone, Password: "password123", ConfirmPassword: "password123",
	})
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	user.OTPExpiry = &past
	require.NoError(t, repo.Update(user))

	_, err = svc.VerifyOTP(phone, user.OTPCode)
	assert.ErrorIs(t, err, util.ErrInvalidOTP)
}

func TestPasswordReset(t *testing.T) {
	svc, mailer, repo := newAuthService(t)
	ctx := context.Background()
	db := repo.DB
	user := testutil.CreateUser(t, db, "reset@example.com", "password123")

	assert.ErrorIs(t, svc.RequestPasswordReset(ctx, "missing@example.com"), util.ErrUserNotFound)
	require.NoError(t, svc.RequestPasswordReset(ctx, "reset@example.com"))
	assert.Equal(t, 1, mailer.count())

	reloaded, err := repo.FindByID(user.ID)
	require.NoError(t, err)

	err = svc.ConfirmPasswordReset("reset@example.com", reloaded.OTPCode, "newpassword1", "newpassword2")
	assert.ErrorIs(t, err, util.ErrPasswordMismatch)
	require.NoError(t, svc.ConfirmPasswordReset("reset@example.com", reloaded.OTPCode, "newpassword1", "newpassword1"))

	_, _, err = svc.Login("reset@example.com", "password123", "", "")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, _, err = svc.Login("reset@example.com", "newpassword1", "", "")
	assert.NoError(t, err)
}
