package server

import (
	"context"
	stdhttp "net/http"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/service"

	"github.com/go-kratos/kratos/v2/transport/http"
)

func registerRoutes(srv *http.Server, svc *service.StorefrontService) {
	r := srv.Route("/")

	// 注册健康检查端点
	r.GET("/health", func(ctx http.Context) error {
		return ctx.Result(stdhttp.StatusOK, svc.Health(ctx))
	})

	r.POST("/api/payment/create-order", handle(service.OperationCreatePayment, stdhttp.StatusOK, bindBody[service.CreatePaymentRequest], svc.CreatePayment))
	r.POST("/api/payment/verify", handle(service.OperationVerifyPayment, stdhttp.StatusOK, bindBody[service.VerifyPaymentRequest], svc.VerifyPayment))
	r.GET("/api/payment/status/{orderId}", handle(service.OperationPaymentStatus, stdhttp.StatusOK,
		func(ctx http.Context, in *service.PaymentStatusRequest) error {
			in.OrderID = ctx.Vars().Get("orderId")
			return nil
		}, svc.PaymentStatus))

	r.POST("/api/orders/create", handle(service.OperationCreateOrder, stdhttp.StatusCreated, bindBody[service.CreateOrderRequest], svc.CreateOrder))
	r.GET("/api/orders/{orderNumber}", handle(service.OperationGetOrder, stdhttp.StatusOK,
		func(ctx http.Context, in *service.GetOrderRequest) error {
			in.OrderNumber = ctx.Vars().Get("orderNumber")
			return nil
		}, svc.GetOrder))
	r.PUT("/api/orders/{orderNumber}/status", handle(service.OperationUpdateOrderStatus, stdhttp.StatusOK,
		func(ctx http.Context, in *service.UpdateOrderStatusRequest) error {
			if err := ctx.Bind(in); err != nil {
				return err
			}
			in.OrderNumber = ctx.Vars().Get("orderNumber")
			return nil
		}, svc.UpdateOrderStatus))

	r.POST("/api/contact", handle(service.OperationSubmitContact, stdhttp.StatusCreated, bindBody[service.ContactRequest], svc.SubmitContact))
}

func bindBody[T any](ctx http.Context, in *T) error {
	return ctx.Bind(in)
}

// handle adapts a service method to a route, running the server middleware
// chain under the given operation name.
func handle[Req, Reply any](operation string, status int, bind func(http.Context, *Req) error, call func(context.Context, *Req) (*Reply, error)) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in Req
		if err := bind(ctx, &in); err != nil {
			return err
		}
		http.SetOperation(ctx, operation)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return call(ctx, req.(*Req))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(status, out)
	}
}
