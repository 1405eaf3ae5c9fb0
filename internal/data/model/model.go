package model

// All lists every table owned by the service, in migration order.
func All() []any {
	return []any{
		&Order{},
		&OrderItem{},
		&Product{},
		&ProductVariant{},
		&Coupon{},
		&SiteSetting{},
		&ActivityLog{},
	}
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringVal dereferences p, returning "" for nil.
func StringVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
