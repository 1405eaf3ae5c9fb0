package errors

import (
	"fmt"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// Validation builds a 400 error. fields carries per-field messages.
func Validation(message string, fields map[string]string) *kerrors.Error {
	e := kerrors.New(ErrCodeValidation, "VALIDATION_FAILED", message)
	if len(fields) > 0 {
		e = e.WithMetadata(fields)
	}
	return e
}

func RateLimited() *kerrors.Error {
	return kerrors.New(ErrCodeRateLimited, "RATE_LIMITED", "Too many requests from this IP, please try again later.")
}

func Unauthorized(message string) *kerrors.Error {
	return kerrors.New(ErrCodeUnauthorized, "UNAUTHORIZED", message)
}

func Forbidden(message string) *kerrors.Error {
	return kerrors.New(ErrCodeForbidden, "FORBIDDEN", message)
}

func OrderNotFound() *kerrors.Error {
	return kerrors.New(ErrCodeOrderNotFound, "ORDER_NOT_FOUND", "Order not found")
}

func OrderCreateFailed(cause error) *kerrors.Error {
	return kerrors.New(ErrCodeOrderCreateFailed, "ORDER_CREATE_FAILED", "Failed to create order").WithCause(cause)
}

func OrderUpdateFailed(cause error) *kerrors.Error {
	return kerrors.New(ErrCodeOrderUpdateFailed, "ORDER_UPDATE_FAILED", "Failed to update order").WithCause(cause)
}

func StorageDisabled() *kerrors.Error {
	return kerrors.New(ErrCodeStorageDisabled, "STORAGE_DISABLED", "Database not configured")
}

func InvalidTransition(from, to string) *kerrors.Error {
	return kerrors.New(ErrCodeInvalidTransition, "INVALID_STATUS_TRANSITION",
		fmt.Sprintf("Cannot change order status from %s to %s", from, to))
}

func OrderNotPayable(status, paymentStatus string) *kerrors.Error {
	return kerrors.New(ErrCodeOrderNotPayable, "ORDER_NOT_PAYABLE",
		fmt.Sprintf("Order cannot be paid in its current state (%s/%s)", status, paymentStatus))
}

func GatewayNotConfigured() *kerrors.Error {
	return kerrors.New(ErrCodeGatewayNotConfigured, "GATEWAY_NOT_CONFIGURED", "Payment gateway not configured")
}

// GatewayRequest passes the gateway's own description through to the caller.
func GatewayRequest(description string) *kerrors.Error {
	if description == "" {
		description = "Payment gateway rejected the request"
	}
	return kerrors.New(ErrCodeGatewayRequest, "GATEWAY_REQUEST_FAILED", description)
}

func SignatureMismatch() *kerrors.Error {
	return kerrors.New(ErrCodeSignatureMismatch, "SIGNATURE_MISMATCH", "Payment verification failed")
}

func CheckoutInProgress() *kerrors.Error {
	return kerrors.New(ErrCodeCheckoutInProgress, "CHECKOUT_IN_PROGRESS", "This checkout is already being processed")
}

func CouponInvalid(reason string) *kerrors.Error {
	return kerrors.New(ErrCodeCouponInvalid, "COUPON_INVALID", reason)
}

func ProductUnavailable(name string) *kerrors.Error {
	return kerrors.New(ErrCodeProductUnavailable, "PRODUCT_UNAVAILABLE", fmt.Sprintf("%s is no longer available", name))
}

func Internal(cause error) *kerrors.Error {
	return kerrors.New(ErrCodeInternal, "INTERNAL", "Internal server error").WithCause(cause)
}
