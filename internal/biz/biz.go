package biz

import (
	"context"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewOrderUsecase,
	NewCheckoutUsecase,
	NewPaymentUsecase,
	NewNotificationUsecase,
	NewContactUsecase,
)

// Transaction 事务接口，由 data 层实现
type Transaction interface {
	Exec(ctx context.Context, fn func(ctx context.Context) error) error
}
