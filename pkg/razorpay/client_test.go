package razorpay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fashionstore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
	"github.com/angelmondragon/fashionstore-backend/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), config.RazorpayConfig{
		KeyID:     "rzp_test_key",
		KeySecret: "shh",
		BaseURL:   srv.URL + "/",
	}, logger.New(logger.Options{ServiceName: "razorpay-test", Output: io.Discard}))
	require.NoError(t, err)
	c.backoff = func() retry.Backoff {
		return retry.WithMaxRetries(maxRetries, retry.NewConstant(time.Millisecond))
	}
	return c
}

func TestNewClientValidatesConfig(t *testing.T) {
	logg := logger.New(logger.Options{Output: io.Discard})
	tests := []struct {
		name string
		cfg  config.RazorpayConfig
		want error
	}{
		{name: "missing key id", cfg: config.RazorpayConfig{KeySecret: "s", BaseURL: "https://x"}, want: errKeyIDRequired},
		{name: "missing secret", cfg: config.RazorpayConfig{KeyID: "k", BaseURL: "https://x"}, want: errSecretRequired},
		{name: "missing base url", cfg: config.RazorpayConfig{KeyID: "k", KeySecret: "s"}, want: errBaseURLMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(context.Background(), tt.cfg, logg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	_, err := NewClient(context.Background(), config.RazorpayConfig{KeyID: "k", KeySecret: "s", BaseURL: "https://x"}, nil)
	assert.ErrorIs(t, err, errLoggerRequired)
}

func TestCreateOrderSendsBasicAuthAndDecodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "shh", pass)

		var body CreateOrderParams
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(49900), body.Amount)
		assert.Equal(t, "INR", body.Currency)
		assert.Equal(t, "ORD-2026-000001", body.Receipt)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_Nx1","entity":"order","amount":49900,"currency":"INR","receipt":"ORD-2026-000001","status":"created","attempts":0}`))
	})

	order, err := c.CreateOrder(context.Background(), CreateOrderParams{Amount: 49900, Currency: "INR", Receipt: "ORD-2026-000001"})
	require.NoError(t, err)
	assert.Equal(t, "order_Nx1", order.ID)
	assert.Equal(t, "created", order.Status)
	assert.Contains(t, string(order.Raw), `"entity":"order"`)
	assert.Equal(t, "rzp_test_key", c.KeyID())
}

func TestCreateOrderRetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"order_retry","amount":100,"currency":"INR","status":"created"}`))
	})

	order, err := c.CreateOrder(context.Background(), CreateOrderParams{Amount: 100, Currency: "INR"})
	require.NoError(t, err)
	assert.Equal(t, "order_retry", order.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCreateOrderMapsClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount exceeds maximum","field":"amount"}}`))
	})

	_, err := c.CreateOrder(context.Background(), CreateOrderParams{Amount: 100, Currency: "INR"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Contains(t, typed.Message(), "amount exceeds maximum")
	details := typed.Details().(map[string]any)
	assert.Equal(t, "BAD_REQUEST_ERROR", details["gateway_code"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCreateOrderGivesUpAfterRetries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.CreateOrder(context.Background(), CreateOrderParams{Amount: 100, Currency: "INR"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestCreateOrderRejectsBadParams(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not be sent")
	})
	_, err := c.CreateOrder(context.Background(), CreateOrderParams{Amount: 0, Currency: "INR"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = c.CreateOrder(context.Background(), CreateOrderParams{Amount: 10})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDomainCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeDependency},
		{http.StatusForbidden, pkgerrors.CodeForbidden},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusTooManyRequests, pkgerrors.CodeRateLimit},
		{http.StatusBadRequest, pkgerrors.CodeValidation},
		{http.StatusUnprocessableEntity, pkgerrors.CodeInvalidState},
		{http.StatusInternalServerError, pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, domainCodeForStatus(tt.status), "status %d", tt.status)
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "[REDACTED]", redact("gateway_signature", "abc"))
	assert.Equal(t, "ORD-1", redact("receipt", "ORD-1"))
}
