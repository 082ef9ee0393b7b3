package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"prep_backend/internal/config"
	"prep_backend/internal/util"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// GatewayOutcome 网关返回的交易结果
type GatewayOutcome string

const (
	OutcomeSuccess GatewayOutcome = "success"
	OutcomeFailed  GatewayOutcome = "failed"
	OutcomePending GatewayOutcome = "pending"
)

type InitializeRequest struct {
	Reference    string
	Amount       float64
	Currency     string
	Email        string
	CustomerName string
	CallbackURL  string
}

type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Raw              json.RawMessage
}

// GatewayStatus 查询或回调得到的交易状态
type GatewayStatus struct {
	Reference string
	Outcome   GatewayOutcome
	Raw       json.RawMessage
}

// PaymentGateway 支付网关：发起、查询、解析回调
type PaymentGateway interface {
	Name() string
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*GatewayStatus, error)
	ParseWebhook(body []byte, header http.Header) (*GatewayStatus, error)
}

// NewPaymentGateway 按 payment.gateway 选择实现
func NewPaymentGateway(cfg *config.Config) (PaymentGateway, error) {
	p := cfg.Payment
	switch p.Gateway {
	case util.GatewayPaystack:
		return NewPaystackGateway(p.PaystackBaseURL, p.PaystackSecretKey, cfg.PaymentTimeout()), nil
	case util.GatewayMidtrans:
		return NewMidtransGateway(p.MidtransServerKey, p.MidtransProduction), nil
	}
	return nil, fmt.Errorf("unsupported payment gateway %q", p.Gateway)
}

// ---- Paystack ----

type PaystackGateway struct {
	Client *resty.Client
	Secret string
}

func NewPaystackGateway(baseURL, secret string, timeout time.Duration) *PaystackGateway {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(secret).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &PaystackGateway{Client: client, Secret: secret}
}

func (g *PaystackGateway) Name() string { return util.GatewayPaystack }

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (g *PaystackGateway) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	body := map[string]interface{}{
		"email":        req.Email,
		"amount":       int64(math.Round(req.Amount * 100)),
		"reference":    req.Reference,
		"callback_url": req.CallbackURL,
	}
	if req.Currency != "" {
		body["currency"] = req.Currency
	}

	var env paystackEnvelope
	resp, err := g.Client.R().SetContext(ctx).SetBody(body).SetResult(&env).SetError(&env).Post("/transaction/initialize")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGatewayFailure, err)
	}
	if resp.IsError() || !env.Status {
		return nil, fmt.Errorf("%w: paystack initialize returned %d: %s", util.ErrGatewayFailure, resp.StatusCode(), env.Message)
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGatewayFailure, err)
	}
	return &InitializeResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Raw:              json.RawMessage(resp.Body()),
	}, nil
}

func paystackOutcome(status string) GatewayOutcome {
	switch strings.ToLower(status) {
	case "success":
		return OutcomeSuccess
	case "ongoing", "pending", "processing", "queued":
		return OutcomePending
	}
	return OutcomeFailed
}

func (g *PaystackGateway) Verify(ctx context.Context, reference string) (*GatewayStatus, error) {
	var env paystackEnvelope
	resp, err := g.Client.R().
		SetContext(ctx).
		SetPathParam("reference", reference).
		SetResult(&env).
		SetError(&env).
		Get("/transaction/verify/{reference}")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGatewayFailure, err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: paystack verify returned %d", util.ErrGatewayFailure, resp.StatusCode())
	}

	result := &GatewayStatus{Reference: reference, Outcome: OutcomeFailed, Raw: json.RawMessage(resp.Body())}
	if !env.Status {
		return result, nil
	}
	var data struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &data); err == nil {
		result.Outcome = paystackOutcome(data.Status)
	}
	return result, nil
}

// ParseWebhook 校验 x-paystack-signature（HMAC-SHA512）后解析事件
func (g *PaystackGateway) ParseWebhook(body []byte, header http.Header) (*GatewayStatus, error) {
	signature := header.Get("x-paystack-signature")
	mac := hmac.New(sha512.New, []byte(g.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if signature == "" || !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return nil, util.ErrInvalidSignature
	}

	var event struct {
		Event string `json:"event"`
		Data  struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}

	outcome := OutcomePending
	switch event.Event {
	case "charge.success":
		outcome = OutcomeSuccess
	case "charge.failed":
		outcome = OutcomeFailed
	}
	return &GatewayStatus{Reference: event.Data.Reference, Outcome: outcome, Raw: json.RawMessage(body)}, nil
}

// ---- Midtrans ----

type MidtransGateway struct {
	Snap      snap.Client
	Core      coreapi.Client
	ServerKey string
}

func NewMidtransGateway(serverKey string, production bool) *MidtransGateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	g := &MidtransGateway{ServerKey: serverKey}
	g.Snap.New(serverKey, env)
	g.Core.New(serverKey, env)
	return g
}

func (g *MidtransGateway) Name() string { return util.GatewayMidtrans }

func (g *MidtransGateway) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: int64(math.Round(req.Amount)),
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.CustomerName,
			Email: req.Email,
		},
	}
	if req.CallbackURL != "" {
		snapReq.Callbacks = &snap.Callbacks{Finish: req.CallbackURL}
	}

	resp, mErr := g.Snap.CreateTransaction(snapReq)
	if mErr != nil {
		return nil, fmt.Errorf("%w: %s", util.ErrGatewayFailure, mErr.GetMessage())
	}
	raw, _ := json.Marshal(resp)
	return &InitializeResult{
		AuthorizationURL: resp.RedirectURL,
		AccessCode:       resp.Token,
		Raw:              raw,
	}, nil
}

func midtransOutcome(transactionStatus, fraudStatus string) GatewayOutcome {
	switch strings.ToLower(transactionStatus) {
	case "settlement":
		return OutcomeSuccess
	case "capture":
		if strings.ToLower(fraudStatus) == "accept" || fraudStatus == "" {
			return OutcomeSuccess
		}
		if strings.ToLower(fraudStatus) == "challenge" {
			return OutcomePending
		}
		return OutcomeFailed
	case "pending", "authorize":
		return OutcomePending
	}
	return OutcomeFailed
}

func (g *MidtransGateway) Verify(ctx context.Context, reference string) (*GatewayStatus, error) {
	resp, mErr := g.Core.CheckTransaction(reference)
	if mErr != nil {
		// 404 表示网关没有这笔交易
		if mErr.StatusCode == http.StatusNotFound {
			return &GatewayStatus{Reference: reference, Outcome: OutcomeFailed}, nil
		}
		return nil, fmt.Errorf("%w: %s", util.ErrGatewayFailure, mErr.GetMessage())
	}
	raw, _ := json.Marshal(resp)
	return &GatewayStatus{
		Reference: reference,
		Outcome:   midtransOutcome(resp.TransactionStatus, resp.FraudStatus),
		Raw:       raw,
	}, nil
}

// ParseWebhook 校验 SHA512(order_id + status_code + gross_amount + server_key)
func (g *MidtransGateway) ParseWebhook(body []byte, header http.Header) (*GatewayStatus, error) {
	var notif struct {
		OrderID           string `json:"order_id"`
		StatusCode        string `json:"status_code"`
		GrossAmount       string `json:"gross_amount"`
		SignatureKey      string `json:"signature_key"`
		TransactionStatus string `json:"transaction_status"`
		FraudStatus       string `json:"fraud_status"`
	}
	if err := json.Unmarshal(body, &notif); err != nil {
		return nil, err
	}

	sum := sha512.Sum512([]byte(notif.OrderID + notif.StatusCode + notif.GrossAmount + g.ServerKey))
	expected := hex.EncodeToString(sum[:])
	if notif.SignatureKey == "" || !hmac.Equal([]byte(strings.ToLower(notif.SignatureKey)), []byte(expected)) {
		return nil, util.ErrInvalidSignature
	}
	return &GatewayStatus{
		Reference: notif.OrderID,
		Outcome:   midtransOutcome(notif.TransactionStatus, notif.FraudStatus),
		Raw:       json.RawMessage(body),
	}, nil
}
