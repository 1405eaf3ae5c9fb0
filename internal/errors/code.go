package errors

import (
	stderrors "errors"
	"net/http"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// 店铺服务错误码定义
// 错误码格式：SSMMEE (6位数字)，其中 SS=14 表示 storefront
// 模块划分：
//   01: 请求校验与访问控制
//   02: 订单模块
//   03: 支付网关
//   04: 支付校验
//   05: 结账流程

// 请求模块 (140100-140199)
const (
	// ErrCodeValidation 请求参数校验失败
	ErrCodeValidation = 140101
	// ErrCodeRateLimited 请求过于频繁
	ErrCodeRateLimited = 140102
	// ErrCodeUnauthorized 未认证
	ErrCodeUnauthorized = 140103
	// ErrCodeForbidden 无权限
	ErrCodeForbidden = 140104
)

// 订单模块 (140200-140299)
const (
	// ErrCodeOrderNotFound 订单不存在
	ErrCodeOrderNotFound = 140201
	// ErrCodeOrderCreateFailed 订单创建失败
	ErrCodeOrderCreateFailed = 140202
	// ErrCodeInvalidTransition 非法的订单状态流转
	ErrCodeInvalidTransition = 140203
	// ErrCodeOrderNotPayable 订单当前状态不可支付
	ErrCodeOrderNotPayable = 140204
	// ErrCodeOrderUpdateFailed 订单更新失败
	ErrCodeOrderUpdateFailed = 140205
	// ErrCodeStorageDisabled 未配置数据库
	ErrCodeStorageDisabled = 140206
)

// 支付网关模块 (140300-140399)
const (
	// ErrCodeGatewayNotConfigured 支付网关未配置
	ErrCodeGatewayNotConfigured = 140301
	// ErrCodeGatewayRequest 支付网关拒绝请求
	ErrCodeGatewayRequest = 140302
)

// 支付校验模块 (140400-140499)
const (
	// ErrCodeSignatureMismatch 支付签名校验失败
	ErrCodeSignatureMismatch = 140401
)

// 结账模块 (140500-140599)
const (
	// ErrCodeCheckoutInProgress 同一购物车的结账正在处理
	ErrCodeCheckoutInProgress = 140501
	// ErrCodeCouponInvalid 优惠券不可用
	ErrCodeCouponInvalid = 140502
	// ErrCodeProductUnavailable 商品不可购买
	ErrCodeProductUnavailable = 140503
)

// ErrCodeInternal 未分类的内部错误
const ErrCodeInternal = 140901

var statusByCode = map[int]int{
	ErrCodeValidation:           http.StatusBadRequest,
	ErrCodeRateLimited:          http.StatusTooManyRequests,
	ErrCodeUnauthorized:         http.StatusUnauthorized,
	ErrCodeForbidden:            http.StatusForbidden,
	ErrCodeOrderNotFound:        http.StatusNotFound,
	ErrCodeOrderCreateFailed:    http.StatusInternalServerError,
	ErrCodeInvalidTransition:    http.StatusBadRequest,
	ErrCodeOrderNotPayable:      http.StatusBadRequest,
	ErrCodeOrderUpdateFailed:    http.StatusInternalServerError,
	ErrCodeStorageDisabled:      http.StatusServiceUnavailable,
	ErrCodeGatewayNotConfigured: http.StatusInternalServerError,
	ErrCodeGatewayRequest:       http.StatusBadRequest,
	ErrCodeSignatureMismatch:    http.StatusBadRequest,
	ErrCodeCheckoutInProgress:   http.StatusConflict,
	ErrCodeCouponInvalid:        http.StatusBadRequest,
	ErrCodeProductUnavailable:   http.StatusBadRequest,
	ErrCodeInternal:             http.StatusInternalServerError,
}

// HTTPStatus maps a business or plain HTTP error code to a response status.
func HTTPStatus(code int) int {
	if code >= 100 && code < 600 {
		return code
	}
	if s, ok := statusByCode[code]; ok {
		return s
	}
	if code >= 140100 && code < 140900 {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Is reports whether err carries the given business code.
func Is(err error, code int) bool {
	var se *kerrors.Error
	if !stderrors.As(err, &se) {
		return false
	}
	return int(se.Code) == code
}
