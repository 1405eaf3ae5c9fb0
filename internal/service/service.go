package service

import (
	"context"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/pkg/realip"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewStorefrontService)

// StorefrontService 店铺订单与支付服务
type StorefrontService struct {
	orders   *biz.OrderUsecase
	checkout *biz.CheckoutUsecase
	payments *biz.PaymentUsecase
	contact  *biz.ContactUsecase
	env      string
	database bool
	gateway  bool
	ips      *realip.Resolver
	log      *log.Helper
}

// NewStorefrontService 创建服务实例
func NewStorefrontService(c *conf.Bootstrap, orders *biz.OrderUsecase, checkout *biz.CheckoutUsecase, payments *biz.PaymentUsecase, contact *biz.ContactUsecase, logger log.Logger) *StorefrontService {
	helper := log.NewHelper(logger)
	ips, err := realip.New(c.Security.Proxies())
	if err != nil {
		helper.Errorf("ignoring trusted proxies: %v", err)
	}
	return &StorefrontService{
		orders:   orders,
		checkout: checkout,
		payments: payments,
		contact:  contact,
		env:      c.Env,
		database: c.Data != nil && c.Data.Database.Source != "",
		gateway:  c.Gateway.Configured(),
		ips:      ips,
		log:      helper,
	}
}

// Health 健康检查
func (s *StorefrontService) Health(context.Context) *HealthReply {
	return &HealthReply{
		Status:      "ok",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Environment: s.env,
		Database:    s.database,
		Gateway:     s.gateway,
	}
}

// requestHeader 从 transport 中读取请求头
func requestHeader(ctx context.Context, key string) string {
	if tr, ok := transport.FromServerContext(ctx); ok {
		return tr.RequestHeader().Get(key)
	}
	return ""
}

// clientIP returns the peer address, or the forwarded client behind a
// trusted proxy.
func (s *StorefrontService) clientIP(ctx context.Context) string {
	if req, ok := http.RequestFromServerContext(ctx); ok {
		return s.ips.FromRequest(req)
	}
	return ""
}
