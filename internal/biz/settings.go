package biz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"
)

// Setting is one of the known site setting shapes stored under a key.
type Setting interface {
	SettingKey() string
}

// TaxSettings 税率设置 (百分比)
type TaxSettings struct {
	Rate decimal.Decimal `json:"rate"`
}

func (TaxSettings) SettingKey() string { return constants.SettingsKeyTax }

// ShippingSettings 运费设置
type ShippingSettings struct {
	BasePrice     decimal.Decimal  `json:"base_price"`
	FreeThreshold decimal.Decimal  `json:"free_threshold"`
	TaxPercentage *decimal.Decimal `json:"tax_percentage,omitempty"`
}

func (ShippingSettings) SettingKey() string { return constants.SettingsKeyShipping }

// GatewaySettings 支付网关开关。凭证只从配置读取，这里即使存了也不会使用。
type GatewaySettings struct {
	Enabled      bool `json:"enabled"`
	TestMode     bool `json:"test_mode"`
	StoresSecret bool `json:"-"`
}

func (GatewaySettings) SettingKey() string { return constants.SettingsKeyGateway }

var settingSchemas = map[string]*jsonschema.Schema{
	constants.SettingsKeyTax: jsonschema.MustCompileString("settings/tax.json", `{
		"type": "object",
		"required": ["rate"],
		"properties": {
			"rate": {"type": "number", "minimum": 0, "maximum": 100}
		}
	}`),
	constants.SettingsKeyShipping: jsonschema.MustCompileString("settings/shipping.json", `{
		"type": "object",
		"required": ["base_price", "free_threshold"],
		"properties": {
			"base_price": {"type": "number", "minimum": 0},
			"free_threshold": {"type": "number", "minimum": 0},
			"tax_percentage": {"type": "number", "minimum": 0, "maximum": 100}
		}
	}`),
	constants.SettingsKeyGateway: jsonschema.MustCompileString("settings/razorpay.json", `{
		"type": "object",
		"required": ["enabled"],
		"properties": {
			"enabled": {"type": "boolean"},
			"test_mode": {"type": "boolean"},
			"key_id": {"type": "string"},
			"key_secret": {"type": "string"}
		}
	}`),
}

// DecodeSetting validates raw against the schema registered for key and
// returns the typed setting. Unknown keys return (nil, nil).
func DecodeSetting(key string, raw []byte) (Setting, error) {
	schema, ok := settingSchemas[key]
	if !ok {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("setting %s: %w", key, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("setting %s: %w", key, err)
	}

	switch key {
	case constants.SettingsKeyTax:
		var s TaxSettings
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
		return s, nil
	case constants.SettingsKeyShipping:
		var s ShippingSettings
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
		return s, nil
	default:
		var s GatewaySettings
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
		var probe struct {
			KeySecret string `json:"key_secret"`
		}
		_ = json.Unmarshal(raw, &probe)
		s.StoresSecret = probe.KeySecret != ""
		return s, nil
	}
}

// SettingsSnapshot is read once per checkout or payment flow and passed down
// explicitly so a settings change mid-flow cannot alter the computed totals.
type SettingsSnapshot struct {
	Tax      TaxSettings      `json:"tax"`
	Shipping ShippingSettings `json:"shipping"`
	Gateway  GatewaySettings  `json:"gateway"`
	hasTax   bool
	LoadedAt time.Time `json:"loaded_at"`
}

// DefaultSettings 默认设置：运费 99，满 999 免运费，税率 0
func DefaultSettings() *SettingsSnapshot {
	return &SettingsSnapshot{
		Tax: TaxSettings{Rate: decimal.NewFromInt(constants.DefaultTaxRate)},
		Shipping: ShippingSettings{
			BasePrice:     decimal.NewFromInt(constants.DefaultShippingBasePrice),
			FreeThreshold: decimal.NewFromInt(constants.DefaultShippingFreeThreshold),
		},
		Gateway:  GatewaySettings{Enabled: true},
		LoadedAt: time.Now().UTC(),
	}
}

// Apply overlays a decoded setting onto the snapshot.
func (s *SettingsSnapshot) Apply(setting Setting) {
	switch v := setting.(type) {
	case TaxSettings:
		s.Tax = v
		s.hasTax = true
	case ShippingSettings:
		s.Shipping = v
		// 兼容旧数据：税率曾存放在运费设置里
		if !s.hasTax && v.TaxPercentage != nil {
			s.Tax = TaxSettings{Rate: *v.TaxPercentage}
		}
	case GatewaySettings:
		s.Gateway = v
	}
}

// SettingsRepo 店铺设置仓库接口
type SettingsRepo interface {
	Snapshot(ctx context.Context) (*SettingsSnapshot, error)
}

// loadSettings reads the snapshot, falling back to defaults when the store is
// unavailable.
func loadSettings(ctx context.Context, repo SettingsRepo, logger *log.Helper) *SettingsSnapshot {
	if repo == nil {
		return DefaultSettings()
	}
	snap, err := repo.Snapshot(ctx)
	if err != nil || snap == nil {
		logger.Warnf("Failed to load site settings, using defaults: %v", err)
		return DefaultSettings()
	}
	return snap
}
