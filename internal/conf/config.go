package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/pkg/realip"
)

type Bootstrap struct {
	Env          string        `yaml:"env" json:"env"`
	Server       *Server       `yaml:"server" json:"server"`
	Data         *Data         `yaml:"data" json:"data"`
	Gateway      *Gateway      `yaml:"gateway" json:"gateway"`
	Notification *Notification `yaml:"notification" json:"notification"`
	Security     *Security     `yaml:"security" json:"security"`
	Order        *Order        `yaml:"order" json:"order"`
	Log          *Log          `yaml:"log" json:"log"`
	Telemetry    *Telemetry    `yaml:"telemetry" json:"telemetry"`
}

type Server struct {
	Http struct {
		Addr    string `yaml:"addr" json:"addr"`
		Timeout string `yaml:"timeout" json:"timeout"`
	} `yaml:"http" json:"http"`
}

type Data struct {
	Database struct {
		Driver          string `yaml:"driver" json:"driver"`
		Source          string `yaml:"source" json:"source"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
		AutoMigrate     bool   `yaml:"auto_migrate" json:"auto_migrate"`
		// NonTransactionalItems inserts order items after the order row is
		// committed. Item failures are then logged instead of rolled back.
		NonTransactionalItems bool `yaml:"non_transactional_items" json:"non_transactional_items"`
	} `yaml:"database" json:"database"`
	Redis struct {
		Addr         string `yaml:"addr" json:"addr"`
		Password     string `yaml:"password" json:"password"`
		Db           int32  `yaml:"db" json:"db"`
		PoolSize     int    `yaml:"pool_size" json:"pool_size"`
		ReadTimeout  string `yaml:"read_timeout" json:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout" json:"write_timeout"`
		DialTimeout  string `yaml:"dial_timeout" json:"dial_timeout"`
	} `yaml:"redis" json:"redis"`
}

// Gateway holds the payment gateway credentials. Secrets only ever come from
// here (file or environment), never from the database.
type Gateway struct {
	Name      string `yaml:"name" json:"name"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	KeyID     string `yaml:"key_id" json:"key_id"`
	KeySecret string `yaml:"key_secret" json:"key_secret"`
	Timeout   string `yaml:"timeout" json:"timeout"`
}

type Notification struct {
	ResendAPIKey string `yaml:"resend_api_key" json:"resend_api_key"`
	From         string `yaml:"from" json:"from"`
	AdminEmail   string `yaml:"admin_email" json:"admin_email"`
	StoreName    string `yaml:"store_name" json:"store_name"`
	Timeout      string `yaml:"timeout" json:"timeout"`
}

type Security struct {
	AllowedOrigins string `yaml:"allowed_origins" json:"allowed_origins"`
	AdminJwtSecret string `yaml:"admin_jwt_secret" json:"admin_jwt_secret"`
	// UserJwtSecret verifies optional customer tokens on checkout.
	UserJwtSecret string `yaml:"user_jwt_secret" json:"user_jwt_secret"`
	// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For is honoured.
	TrustedProxies string `yaml:"trusted_proxies" json:"trusted_proxies"`
	RateLimit      struct {
		Requests int    `yaml:"requests" json:"requests"`
		Window   string `yaml:"window" json:"window"`
	} `yaml:"rate_limit" json:"rate_limit"`
}

type Order struct {
	NumberPrefix      string `yaml:"number_prefix" json:"number_prefix"`
	MaxNumberAttempts int    `yaml:"max_number_attempts" json:"max_number_attempts"`
	StaleAfter        string `yaml:"stale_after" json:"stale_after"`
	IdempotencyTTL    string `yaml:"idempotency_ttl" json:"idempotency_ttl"`
	CheckoutLockTTL   string `yaml:"checkout_lock_ttl" json:"checkout_lock_ttl"`
	SettingsCacheTTL  string `yaml:"settings_cache_ttl" json:"settings_cache_ttl"`
}

type Log struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	Output     string `yaml:"output" json:"output"`
	FilePath   string `yaml:"file_path" json:"file_path"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

type Telemetry struct {
	OtlpEndpoint string `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure" json:"insecure"`
}

// Validate validates the configuration and fills in defaults for optional sections.
func (b *Bootstrap) Validate() error {
	if b.Server == nil {
		return fmt.Errorf("server configuration is required")
	}
	if b.Server.Http.Addr == "" {
		return fmt.Errorf("server.http.addr is required")
	}
	if b.Env == "" {
		b.Env = "development"
	}
	if b.Data == nil {
		b.Data = &Data{}
	}
	switch b.Data.Database.Driver {
	case "", "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("data.database.driver %q is not supported", b.Data.Database.Driver)
	}
	if b.Gateway == nil {
		b.Gateway = &Gateway{}
	}
	if b.Gateway.Name == "" {
		b.Gateway.Name = "razorpay"
	}
	if b.Gateway.Endpoint == "" {
		b.Gateway.Endpoint = "https://api.razorpay.com"
	}
	if b.Notification == nil {
		b.Notification = &Notification{}
	}
	if b.Notification.From == "" {
		b.Notification.From = "Mystamoura <orders@mystamoura.com>"
	}
	if b.Notification.StoreName == "" {
		b.Notification.StoreName = "Mystamoura"
	}
	if b.Security == nil {
		b.Security = &Security{}
	}
	if b.Security.RateLimit.Requests <= 0 {
		b.Security.RateLimit.Requests = 100
	}
	if b.Security.RateLimit.Window == "" {
		b.Security.RateLimit.Window = "15m"
	}
	if _, err := realip.New(b.Security.Proxies()); err != nil {
		return fmt.Errorf("security.trusted_proxies: %w", err)
	}
	if b.Order == nil {
		b.Order = &Order{}
	}
	if b.Order.NumberPrefix == "" {
		b.Order.NumberPrefix = "MYS"
	}
	if b.Order.MaxNumberAttempts <= 0 {
		b.Order.MaxNumberAttempts = 5
	}
	if b.Log == nil {
		b.Log = &Log{Level: "info", Format: "json", Output: "stdout"}
	}
	if b.Telemetry == nil {
		b.Telemetry = &Telemetry{}
	}
	for name, v := range map[string]string{
		"server.http.timeout":             b.Server.Http.Timeout,
		"data.database.conn_max_lifetime": b.Data.Database.ConnMaxLifetime,
		"gateway.timeout":                 b.Gateway.Timeout,
		"notification.timeout":            b.Notification.Timeout,
		"security.rate_limit.window":      b.Security.RateLimit.Window,
		"order.stale_after":               b.Order.StaleAfter,
		"order.idempotency_ttl":           b.Order.IdempotencyTTL,
		"order.checkout_lock_ttl":         b.Order.CheckoutLockTTL,
		"order.settings_cache_ttl":        b.Order.SettingsCacheTTL,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Warnings reports settings that are missing but not fatal at startup.
func (b *Bootstrap) Warnings() []string {
	var out []string
	if b.Gateway == nil || !b.Gateway.Configured() {
		out = append(out, "payment gateway credentials are not configured, online payments are disabled")
	}
	if b.Data == nil || b.Data.Database.Source == "" {
		out = append(out, "database is not configured, orders will only be assigned a number")
	}
	if b.Notification == nil || b.Notification.ResendAPIKey == "" {
		out = append(out, "email API key is not configured, order notifications are skipped")
	}
	return out
}

// IsDevelopment reports whether internal error messages may be shown to clients.
func (b *Bootstrap) IsDevelopment() bool {
	return b.Env == "" || b.Env == "development"
}

// Configured reports whether both gateway credentials are present.
func (g *Gateway) Configured() bool {
	return g != nil && g.KeyID != "" && g.KeySecret != ""
}

// Origins splits the comma separated allowed origin list.
func (s *Security) Origins() []string {
	raw := ""
	if s != nil {
		raw = s.AllowedOrigins
	}
	if strings.TrimSpace(raw) == "" {
		raw = "http://localhost:5173,http://localhost:3000"
	}
	return splitList(raw)
}

// Proxies splits the comma separated trusted proxy list.
func (s *Security) Proxies() []string {
	if s == nil {
		return nil
	}
	return splitList(s.TrustedProxies)
}

func splitList(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Duration parses v, falling back to def when v is empty or malformed.
func Duration(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
