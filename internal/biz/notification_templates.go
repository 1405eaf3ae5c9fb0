package biz

import (
	"bytes"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
)

var emailTemplates = template.Must(template.New("emails").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return "₹" + d.StringFixed(2) },
	"date":  func(t time.Time) string { return t.Format("02 Jan 2006, 15:04") },
}).Parse(`
{{define "customer"}}<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h1 style="color:#1a1a1a">Thank you for your order!</h1>
<p>Hi {{.Order.ShippingAddress.FullName}},</p>
<p>We have received your order <strong>{{.Order.OrderNumber}}</strong>{{if .Paid}} and your payment was successful{{end}}.</p>
{{template "items" .}}
{{template "totals" .}}
<h3>Shipping to</h3>
<p>{{with .Order.ShippingAddress}}{{.FullName}}<br>{{.AddressLine1}}{{if .AddressLine2}}<br>{{.AddressLine2}}{{end}}<br>{{.City}}, {{.State}} {{.PostalCode}}<br>{{.Country}}<br>Phone: {{.Phone}}{{end}}</p>
<p>Payment method: {{if eq .Order.PaymentMethod "cod"}}Cash on delivery{{else}}Online ({{.Order.PaymentMethod}}){{end}}</p>
<p>{{.StoreName}}</p>
</div>{{end}}

{{define "admin"}}<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h1>New order {{.Order.OrderNumber}}</h1>
<p>Placed {{date .Order.CreatedAt}}. Status: {{.Order.Status}} / payment {{.Order.PaymentStatus}}{{if .Order.PaymentID}} ({{.Order.PaymentID}}){{end}}.</p>
<p>Customer: {{.Order.ShippingAddress.FullName}}, {{.Order.ShippingAddress.Phone}}{{if .CustomerEmail}}, {{.CustomerEmail}}{{end}}</p>
{{template "items" .}}
{{template "totals" .}}
{{if .Order.Notes}}<p>Notes: {{.Order.Notes}}</p>{{end}}
</div>{{end}}

{{define "items"}}<table style="width:100%;border-collapse:collapse">
<tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th></tr>
{{range .Order.Items}}<tr><td>{{.ProductName}}{{if .VariantSize}} ({{.VariantSize}}){{end}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money .TotalPrice}}</td></tr>
{{end}}</table>{{end}}

{{define "totals"}}<table style="width:100%;margin-top:12px">
<tr><td>Subtotal</td><td align="right">{{money .Order.Subtotal}}</td></tr>
{{if .Order.DiscountAmount.IsPositive}}<tr><td>Discount</td><td align="right">-{{money .Order.DiscountAmount}}</td></tr>{{end}}
<tr><td>Shipping</td><td align="right">{{if .Order.ShippingAmount.IsZero}}Free{{else}}{{money .Order.ShippingAmount}}{{end}}</td></tr>
<tr><td>Tax</td><td align="right">{{money .Order.TaxAmount}}</td></tr>
<tr><td><strong>Total</strong></td><td align="right"><strong>{{money .Order.Total}}</strong></td></tr>
</table>{{end}}

{{define "stale"}}<div style="font-family:Arial,sans-serif">
<h1>{{len .Orders}} order(s) awaiting payment for more than {{.Age}}</h1>
<table style="border-collapse:collapse">
<tr><th align="left">Order</th><th>Payment</th><th align="right">Total</th><th>Created</th></tr>
{{range .Orders}}<tr><td>{{.OrderNumber}}</td><td>{{.PaymentStatus}}</td><td align="right">{{money .Total}}</td><td>{{date .CreatedAt}}</td></tr>
{{end}}</table>
<p>These orders have not been cancelled automatically.</p>
</div>{{end}}

{{define "contact"}}<div style="font-family:Arial,sans-serif">
<h1>New contact message</h1>
<p>From: {{.Name}} &lt;{{.Email}}&gt;{{if .Phone}}, {{.Phone}}{{end}}</p>
{{if .Subject}}<p>Subject: {{.Subject}}</p>{{end}}
<p>{{.Message}}</p>
</div>{{end}}
`))

func renderEmail(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
