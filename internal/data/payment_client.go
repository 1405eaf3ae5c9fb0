package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	bizErrors "github.com/elakshat/mystamoura-e-commerce-launch/internal/errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

const defaultGatewayTimeout = 15 * time.Second

// razorpayClient Razorpay 订单 API 客户端
type razorpayClient struct {
	cc    *khttp.Client
	keyID string
	log   *log.Helper
}

// razorpayOrderRequest is the body of POST /v1/orders. Amount is in minor units.
type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// NewGatewayClient 创建支付网关客户端。凭证缺失时返回未配置的客户端，
// 调用方通过 Configured 判断。
func NewGatewayClient(c *conf.Bootstrap, logger log.Logger) (biz.GatewayClient, error) {
	helper := log.NewHelper(logger)
	gw := c.Gateway
	if !gw.Configured() {
		return &razorpayClient{log: helper}, nil
	}

	cc, err := khttp.NewClient(context.Background(),
		khttp.WithEndpoint(gw.Endpoint),
		khttp.WithTimeout(conf.Duration(gw.Timeout, defaultGatewayTimeout)),
		khttp.WithTransport(&basicAuthTransport{
			username: gw.KeyID,
			password: gw.KeySecret,
			base:     http.DefaultTransport,
		}),
		khttp.WithErrorDecoder(decodeGatewayError),
	)
	if err != nil {
		return nil, fmt.Errorf("create gateway client: %w", err)
	}
	return &razorpayClient{cc: cc, keyID: gw.KeyID, log: helper}, nil
}

func (c *razorpayClient) Configured() bool {
	return c.cc != nil
}

func (c *razorpayClient) KeyID() string {
	return c.keyID
}

// CreateOrder 创建网关订单。不做重试，避免重复创建可扣款订单。
func (c *razorpayClient) CreateOrder(ctx context.Context, req *biz.GatewayOrderRequest) (*biz.GatewayOrder, error) {
	if !c.Configured() {
		return nil, bizErrors.GatewayNotConfigured()
	}
	amount, err := biz.MinorUnits(req.Amount)
	if err != nil {
		return nil, bizErrors.Validation("Amount exceeds the maximum allowed", map[string]string{"amount": err.Error()})
	}
	body := &razorpayOrderRequest{
		Amount:   amount,
		Currency: req.Currency,
		Receipt:  req.OrderNumber,
		Notes:    req.Notes,
	}

	start := time.Now()
	var reply biz.GatewayOrder
	if err := c.cc.Invoke(ctx, http.MethodPost, "/v1/orders", body, &reply); err != nil {
		c.log.Errorf("POST /v1/orders receipt=%s failed after %s: %v", req.OrderNumber, since(start), err)
		var se *kerrors.Error
		if errors.As(err, &se) {
			return nil, bizErrors.GatewayRequest(se.Message)
		}
		return nil, bizErrors.Internal(fmt.Errorf("create gateway order: %w", err))
	}
	c.log.Debugf("POST /v1/orders receipt=%s -> %s in %s", req.OrderNumber, reply.ID, since(start))
	return &reply, nil
}

// FetchOrder 查询网关订单，网关返回的 HTTP 状态原样透传
func (c *razorpayClient) FetchOrder(ctx context.Context, gatewayOrderID string) (*biz.GatewayOrder, error) {
	if !c.Configured() {
		return nil, bizErrors.GatewayNotConfigured()
	}
	var reply biz.GatewayOrder
	path := "/v1/orders/" + url.PathEscape(gatewayOrderID)
	if err := c.cc.Invoke(ctx, http.MethodGet, path, nil, &reply); err != nil {
		var se *kerrors.Error
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, bizErrors.Internal(fmt.Errorf("fetch gateway order %s: %w", gatewayOrderID, err))
	}
	return &reply, nil
}

// decodeGatewayError turns a non-2xx response into a kratos error carrying
// the response status and the gateway's description.
func decodeGatewayError(_ context.Context, res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		return nil
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err == nil {
		var body razorpayErrorBody
		if json.Unmarshal(data, &body) == nil && body.Error.Description != "" {
			return kerrors.New(res.StatusCode, body.Error.Code, body.Error.Description)
		}
	}
	return kerrors.New(res.StatusCode, kerrors.UnknownReason, http.StatusText(res.StatusCode)).WithCause(err)
}

type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(r)
}
