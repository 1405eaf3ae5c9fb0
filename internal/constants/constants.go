package constants

import "time"

// 订单状态
const (
	OrderStatusPending    = "pending"
	OrderStatusPaid       = "paid"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
)

// 支付状态 (与订单状态相互独立)
const (
	PaymentStatusPending   = "pending"   // 货到付款，等待收款
	PaymentStatusAwaiting  = "awaiting"  // 在线支付，等待网关回调
	PaymentStatusCompleted = "completed" // 支付成功
	PaymentStatusFailed    = "failed"    // 签名校验失败
)

// 支付方式
const (
	PaymentMethodCOD      = "cod"
	PaymentMethodRazorpay = "razorpay"
)

// 支持的币种
var SupportedCurrencies = map[string]bool{
	"INR": true,
	"USD": true,
	"EUR": true,
}

// 操作日志动作
const (
	ActivityPaymentReceived           = "payment_received"
	ActivityPaymentVerificationFailed = "payment_verification_failed"
	ActivityOrderStatusUpdated        = "order_status_updated"
	ActivityContactFormSubmission     = "contact_form_submission"
)

// 操作日志实体类型
const (
	EntityOrder   = "order"
	EntityContact = "contact"
)

// 店铺设置 key (site_settings 表)
const (
	SettingsKeyTax      = "tax"
	SettingsKeyShipping = "shipping"
	SettingsKeyGateway  = "razorpay"
)

// 默认设置
const (
	DefaultShippingBasePrice     = 99
	DefaultShippingFreeThreshold = 999
	DefaultTaxRate               = 0
	DefaultCountry               = "India"
	DefaultCurrency              = "INR"
)

// 下单限制
const (
	// MaxItemQuantity 单个商品行的最大数量
	MaxItemQuantity = 100
	// MaxOrderAmount 订单金额上限，与 decimal(12,2) 列一致
	MaxOrderAmount = "9999999999.99"
)

// 缓存与锁相关常量
const (
	// SettingsCacheExpiration 店铺设置缓存时间
	SettingsCacheExpiration = time.Minute
	// CheckoutLockExpiration 结账防重锁过期时间
	CheckoutLockExpiration = 30 * time.Second
	// CheckoutResultExpiration 结账结果缓存时间 (幂等重放)
	CheckoutResultExpiration = 10 * time.Minute
	// NotificationDedupeExpiration 订单通知去重时间
	NotificationDedupeExpiration = 7 * 24 * time.Hour
	// DefaultStaleOrderAge 待支付订单超过该时间视为滞留
	DefaultStaleOrderAge = 24 * time.Hour
	// DefaultNotificationTimeout 单次邮件发送超时时间
	DefaultNotificationTimeout = 10 * time.Second
)

// Redis key 前缀
const (
	RedisKeyCheckoutLock   = "storefront:checkout:lock:"
	RedisKeyCheckoutResult = "storefront:checkout:result:"
	RedisKeyNotified       = "storefront:notify:"
	RedisKeyRateLimit      = "storefront:ratelimit:"
	RedisKeySettings       = "storefront:settings"
)

// 分页相关常量
const (
	// DefaultPageSize 默认分页大小
	DefaultPageSize = 50
	// MaxPageSize 最大分页大小
	MaxPageSize = 200
)
