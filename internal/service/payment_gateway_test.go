package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"prep_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paystackServer(t *testing.T, verifyStatus string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/transaction/initialize", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(200000), body["amount"])
		assert.Equal(t, "REF123", body["reference"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":true,"message":"ok","data":{"authorization_url":"https://checkout.test/abc","access_code":"abc","reference":"REF123"}}`)
	})
	mux.HandleFunc("/transaction/verify/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":true,"message":"ok","data":{"status":%q,"reference":"REF123"}}`, verifyStatus)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPaystackInitializeAndVerify(t *testing.T) {
	srv := paystackServer(t, "success")
	g := NewPaystackGateway(srv.URL, "sk_test", 5*time.Second)

	res, err := g.Initialize(context.Background(), InitializeRequest{
		Reference: "REF123", Amount: 2000, Currency: "NGN", Email: "a@b.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/abc", res.AuthorizationURL)
	assert.Equal(t, "abc", res.AccessCode)

	status, err := g.Verify(context.Background(), "REF123")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, status.Outcome)
}

func TestPaystackVerifyAbandoned(t *testing.T) {
	srv := paystackServer(t, "abandoned")
	g := NewPaystackGateway(srv.URL, "sk_test", 5*time.Second)

	status, err := g.Verify(context.Background(), "REF123")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, status.Outcome)
}

func TestPaystackTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	g := NewPaystackGateway(srv.URL, "sk_test", 5*time.Second)

	_, err := g.Verify(context.Background(), "REF123")
	assert.ErrorIs(t, err, util.ErrGatewayFailure)
	_, err = g.Initialize(context.Background(), InitializeRequest{Reference: "REF123", Amount: 1})
	assert.ErrorIs(t, err, util.ErrGatewayFailure)
}

func TestPaystackWebhookSignature(t *testing.T) {
	g := NewPaystackGateway("http://unused", "sk_test", time.Second)
	body := []byte(`{"event":"charge.success","data":{"reference":"REF123","status":"success"}}`)

	mac := hmac.New(sha512.New, []byte("sk_test"))
	mac.Write(body)
	header := http.Header{}
	header.Set("x-paystack-signature", hex.EncodeToString(mac.Sum(nil)))

	status, err := g.ParseWebhook(body, header)
	require.NoError(t, err)
	assert.Equal(t, "REF123", status.Reference)
	assert.Equal(t, OutcomeSuccess, status.Outcome)

	header.Set("x-paystack-signature", "deadbeef")
	_, err = g.ParseWebhook(body, header)
	assert.ErrorIs(t, err, util.ErrInvalidSignature)

	_, err = g.ParseWebhook(body, http.Header{})
	assert.ErrorIs(t, err, util.ErrInvalidSignature)
}

func midtransBody(serverKey, orderID, statusCode, gross, status, fraud string) []byte {
	sum := sha512.Sum512([]byte(orderID + statusCode + gross + serverKey))
	body, _ := json.Marshal(map[string]string{
		"order_id":           orderID,
		"status_code":        statusCode,
		"gross_amount":       gross,
		"signature_key":      hex.EncodeToString(sum[:]),
		"transaction_status": status,
		"fraud_status":       fraud,
	})
	return body
}

func TestMidtransWebhook(t *testing.T) {
	g := NewMidtransGateway("SB-server-key", false)

	cases := []struct {
		status, fraud string
		want          GatewayOutcome
	}{
		{"settlement", "", OutcomeSuccess},
		{"capture", "accept", OutcomeSuccess},
		{"capture", "challenge", OutcomePending},
		{"pending", "", OutcomePending},
		{"expire", "", OutcomeFailed},
		{"deny", "", OutcomeFailed},
	}
	for _, tc := range cases {
		t.Run(tc.status+"/"+tc.fraud, func(t *testing.T) {
			body := midtransBody("SB-server-key", "ORDER1", "200", "2000.00", tc.status, tc.fraud)
			status, err := g.ParseWebhook(body, nil)
			require.NoError(t, err)
			assert.Equal(t, "ORDER1", status.Reference)
			assert.Equal(t, tc.want, status.Outcome)
		})
	}

	forged := midtransBody("other-key", "ORDER1", "200", "2000.00", "settlement", "")
	_, err := g.ParseWebhook(forged, nil)
	assert.ErrorIs(t, err, util.ErrInvalidSignature)
}
