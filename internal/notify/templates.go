package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

type confirmationLine struct {
	Name      string
	Quantity  int
	UnitPrice string
	Total     string
}

type confirmationData struct {
	OrderID    string
	Lines      []confirmationLine
	Subtotal   string
	Discount   string
	Total      string
	HasCoupon  bool
	ShipTo     models.ShippingAddress
	PaymentRef string
}

const textConfirmation = `Thank you for your order {{.OrderID}}.
{{range .Lines}}
{{.Name}} x{{.Quantity}} @ {{.UnitPrice}} = {{.Total}}{{end}}

Subtotal: {{.Subtotal}}{{if .HasCoupon}}
Discount: -{{.Discount}}{{end}}
Total paid: {{.Total}}

Shipping to:
{{.ShipTo.AddressLine1}}{{if .ShipTo.AddressLine2}}, {{.ShipTo.AddressLine2}}{{end}}
{{.ShipTo.City}}, {{.ShipTo.State}} {{.ShipTo.Pincode}}, {{.ShipTo.Country}}

Payment reference: {{.PaymentRef}}
`

const htmlConfirmation = `<h2>Thank you for your order</h2>
<p>Order <b>{{.OrderID}}</b></p>
<table>
<tr><th>Item</th><th>Qty</th><th>Price</th><th>Total</th></tr>
{{range .Lines}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice}}</td><td>{{.Total}}</td></tr>
{{end}}</table>
<p>Subtotal: {{.Subtotal}}</p>
{{if .HasCoupon}}<p>Discount: -{{.Discount}}</p>{{end}}
<p><b>Total paid: {{.Total}}</b></p>
<p>Shipping to: {{.ShipTo.AddressLine1}}{{if .ShipTo.AddressLine2}}, {{.ShipTo.AddressLine2}}{{end}}, {{.ShipTo.City}}, {{.ShipTo.State}} {{.ShipTo.Pincode}}, {{.ShipTo.Country}}</p>
<p>Payment reference: {{.PaymentRef}}</p>
`

var (
	textTmpl = texttemplate.Must(texttemplate.New("confirmation").Parse(textConfirmation))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("confirmation").Parse(htmlConfirmation))
)

func money(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}

// OrderConfirmation renders the email sent after a successful payment.
// names maps product ids to display names; unknown ids fall back to the id.
func OrderConfirmation(o *models.Order, names map[uuid.UUID]string) (Message, error) {
	data := confirmationData{
		OrderID:    o.ID.String(),
		Subtotal:   money(o.OrderPrice),
		Discount:   money(o.OrderPrice.Sub(o.DiscountedOrderPrice)),
		Total:      money(o.DiscountedOrderPrice),
		HasCoupon:  o.CouponID != nil,
		ShipTo:     o.Address,
		PaymentRef: o.PaymentID,
	}
	for _, it := range o.Items {
		name, ok := names[it.ProductID]
		if !ok {
			name = it.ProductID.String()
		}
		data.Lines = append(data.Lines, confirmationLine{
			Name:      name,
			Quantity:  it.Quantity,
			UnitPrice: money(it.UnitPrice),
			Total:     money(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))),
		})
	}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("notify: render text: %w", err)
	}
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("notify: render html: %w", err)
	}

	return Message{
		To:      o.CustomerEmail,
		Subject: "Your order " + o.ID.String() + " is confirmed",
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
