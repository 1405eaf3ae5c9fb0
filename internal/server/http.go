package server

import (
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/auth"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/constants"
	bizErrors "github.com/elakshat/mystamoura-e-commerce-launch/internal/errors"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/pkg/ratelimit"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/pkg/realip"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/service"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/middleware/selector"
	"github.com/go-kratos/kratos/v2/middleware/tracing"
	"github.com/go-kratos/kratos/v2/middleware/validate"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/gorilla/handlers"
	"github.com/unrolled/secure"
)

const defaultRequestTimeout = 30 * time.Second

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Bootstrap, svc *service.StorefrontService, store ratelimit.Store, logger log.Logger) *http.Server {
	helper := log.NewHelper(logger)
	limiter := ratelimit.New(store, constants.RedisKeyRateLimit,
		c.Security.RateLimit.Requests, conf.Duration(c.Security.RateLimit.Window, 15*time.Minute), logger)
	encodeError := newErrorEncoder(c.IsDevelopment())
	ips, err := realip.New(c.Security.Proxies())
	if err != nil {
		helper.Errorf("ignoring trusted proxies: %v", err)
	}

	mws := []middleware.Middleware{
		recovery.Recovery(),
		tracing.Server(),
		logging.Server(logger),
		// 添加参数验证中间件
		validate.Validator(),
	}
	if secret := c.Security.AdminJwtSecret; secret != "" {
		mws = append(mws, selector.Server(auth.Server(secret), auth.RequireAdmin()).
			Path(service.OperationUpdateOrderStatus).
			Build())
	} else {
		helper.Warn("admin JWT secret is not configured, order status updates are not authenticated")
	}
	if secret := c.Security.UserJwtSecret; secret != "" {
		mws = append(mws, selector.Server(auth.Optional(secret)).
			Path(service.OperationCreateOrder).
			Build())
	}

	var opts = []http.ServerOption{
		http.Middleware(mws...),
		http.Filter(
			handlers.CORS(
				handlers.AllowedOrigins(c.Security.Origins()),
				handlers.AllowedMethods([]string{"GET", "POST", "PUT", "OPTIONS"}),
				handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "Idempotency-Key"}),
				handlers.AllowCredentials(),
			),
			secure.New(secure.Options{
				FrameDeny:          true,
				ContentTypeNosniff: true,
				BrowserXssFilter:   true,
				ReferrerPolicy:     "no-referrer",
				IsDevelopment:      c.IsDevelopment(),
			}).Handler,
			rateLimitFilter(limiter, ips, encodeError),
		),
		http.ErrorEncoder(encodeError),
		http.Timeout(conf.Duration(c.Server.Http.Timeout, defaultRequestTimeout)),
	}
	if c.Server.Http.Addr != "" {
		opts = append(opts, http.Address(c.Server.Http.Addr))
	}
	srv := http.NewServer(opts...)

	// 注册业务路由
	registerRoutes(srv, svc)

	return srv
}

type errorReply struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// newErrorEncoder renders {success:false,error,details}. Outside development
// unclassified errors are reported without their message.
func newErrorEncoder(dev bool) http.EncodeErrorFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
		se := kerrors.FromError(err)
		// validate 中间件会包一层，取出原始的业务错误
		if se.Reason == "VALIDATOR" {
			if inner := new(kerrors.Error); errors.As(se.Unwrap(), &inner) {
				se = inner
			}
		}
		status := bizErrors.HTTPStatus(int(se.Code))

		reply := errorReply{Error: se.Message, Details: se.Metadata}
		switch {
		case dev && se.Code == bizErrors.ErrCodeInternal && se.Unwrap() != nil:
			reply.Error = se.Unwrap().Error()
		case !dev && status >= stdhttp.StatusInternalServerError && se.Reason == kerrors.UnknownReason:
			reply.Error = "Internal server error"
			reply.Details = nil
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply)
	}
}

// rateLimitFilter applies the per-IP window to /api/* routes.
func rateLimitFilter(limiter *ratelimit.Limiter, ips *realip.Resolver, encodeError http.EncodeErrorFunc) http.FilterFunc {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") || r.Method == stdhttp.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow(r.Context(), ips.FromRequest(r)) {
				encodeError(w, r, bizErrors.RateLimited())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
