package mail

import (
	"context"
	"fmt"
	"strings"

	"gigantefleur/storefront/internal/model"
)

// OrderMailer sends the order confirmation to the customer.
type OrderMailer struct {
	sender Sender
	from   string
}

func NewOrderMailer(sender Sender, from string) *OrderMailer {
	return &OrderMailer{sender: sender, from: from}
}

func (m *OrderMailer) SendOrderConfirmation(ctx context.Context, order model.Order) error {
	if order.UserEmail == "" {
		return fmt.Errorf("order %s has no customer email", order.ID)
	}
	subject := fmt.Sprintf("Your Gigante Fleur order %s", order.ID)
	return m.sender.Send(ctx, m.from, order.UserEmail, subject, confirmationBody(order))
}

func confirmationBody(order model.Order) string {
	var b strings.Builder
	name := order.UserName
	if name == "" {
		name = order.UserEmail
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "Thank you for your order. Order ID: %s\n\n", order.ID)
	for _, li := range order.Items {
		fmt.Fprintf(&b, "  %d x %s (%s)\n", li.Quantity, li.Title, li.PriceText)
	}
	fmt.Fprintf(&b, "\nTotal: $%.2f\n", order.Total)
	fmt.Fprintf(&b, "Status: %s\n", order.Status)
	return b.String()
}
