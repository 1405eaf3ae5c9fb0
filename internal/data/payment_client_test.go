package data

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	bizErrors "github.com/elakshat/mystamoura-e-commerce-launch/internal/errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeGateway(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/orders", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_test_key" || pass != "rzp_test_secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"Authentication failed"}}`))
			return
		}
		var body razorpayOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if body.Amount < 100 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"Order amount less than minimum amount allowed"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         "order_Test123",
			"entity":     "order",
			"amount":     body.Amount,
			"currency":   body.Currency,
			"receipt":    body.Receipt,
			"status":     "created",
			"created_at": 1760600000,
		})
	})
	mux.HandleFunc("GET /v1/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.PathValue("id") != "order_Test123" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"order_Test123","amount":118000,"currency":"INR","receipt":"MYS-20261016-0001","status":"paid","created_at":1760600000}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGatewayClient(t *testing.T, endpoint string) biz.GatewayClient {
	t.Helper()
	c := &conf.Bootstrap{Gateway: &conf.Gateway{
		Endpoint:  endpoint,
		KeyID:     "rzp_test_key",
		KeySecret: "rzp_test_secret",
		Timeout:   "2s",
	}}
	gw, err := NewGatewayClient(c, log.DefaultLogger)
	require.NoError(t, err)
	return gw
}

func TestGatewayClientCreateOrder(t *testing.T) {
	srv := newFakeGateway(t)
	gw := newTestGatewayClient(t, srv.URL)
	require.True(t, gw.Configured())
	assert.Equal(t, "rzp_test_key", gw.KeyID())

	order, err := gw.CreateOrder(context.Background(), &biz.GatewayOrderRequest{
		OrderNumber: "MYS-20261016-0001",
		Amount:      decimal.RequireFromString("1180.00"),
		Currency:    "INR",
		Notes:       map[string]string{"order_number": "MYS-20261016-0001"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order_Test123", order.ID)
	assert.Equal(t, int64(118000), order.Amount)
	assert.Equal(t, "MYS-20261016-0001", order.Receipt)
	assert.Equal(t, "created", order.Status)
}

func TestGatewayClientCreateOrderRejected(t *testing.T) {
	srv := newFakeGateway(t)
	gw := newTestGatewayClient(t, srv.URL)

	_, err := gw.CreateOrder(context.Background(), &biz.GatewayOrderRequest{
		OrderNumber: "MYS-20261016-0002",
		Amount:      decimal.RequireFromString("0.50"),
		Currency:    "INR",
	})
	require.Error(t, err)
	se := kerrors.FromError(err)
	assert.Equal(t, int32(bizErrors.ErrCodeGatewayRequest), se.Code)
	assert.Equal(t, "Order amount less than minimum amount allowed", se.Message)
}

func TestGatewayClientFetchOrder(t *testing.T) {
	srv := newFakeGateway(t)
	gw := newTestGatewayClient(t, srv.URL)

	order, err := gw.FetchOrder(context.Background(), "order_Test123")
	require.NoError(t, err)
	assert.Equal(t, "MYS-20261016-0001", order.Receipt)
	assert.Equal(t, int64(118000), order.Amount)

	_, err = gw.FetchOrder(context.Background(), "order_Missing")
	require.Error(t, err)
	se := kerrors.FromError(err)
	assert.Equal(t, int32(http.StatusNotFound), se.Code)
	assert.Equal(t, "The id provided does not exist", se.Message)
}

func TestGatewayClientNotConfigured(t *testing.T) {
	gw, err := NewGatewayClient(&conf.Bootstrap{Gateway: &conf.Gateway{KeyID: "rzp_test_key"}}, log.DefaultLogger)
	require.NoError(t, err)
	assert.False(t, gw.Configured())

	_, err = gw.CreateOrder(context.Background(), &biz.GatewayOrderRequest{OrderNumber: "MYS-20261016-0003"})
	assert.True(t, bizErrors.Is(err, bizErrors.ErrCodeGatewayNotConfigured))
	_, err = gw.FetchOrder(context.Background(), "order_Test123")
	assert.True(t, bizErrors.Is(err, bizErrors.ErrCodeGatewayNotConfigured))
}

func TestMailerDisabledWithoutKey(t *testing.T) {
	m := NewMailer(&conf.Bootstrap{Notification: &conf.Notification{From: "Store <orders@example.com>"}}, log.DefaultLogger)
	assert.False(t, m.Enabled())
	assert.NoError(t, m.Send(context.Background(), &biz.EmailMessage{To: []string{"a@example.com"}, Subject: "hi"}))

	m = NewMailer(&conf.Bootstrap{Notification: &conf.Notification{ResendAPIKey: "re_test"}}, log.DefaultLogger)
	assert.True(t, m.Enabled())
}
