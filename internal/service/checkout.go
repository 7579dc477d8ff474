package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gigantefleur/storefront/internal/model"
)

var (
	ErrLoginRequired = errors.New("please login to place an order")
	ErrEmptyCart     = errors.New("cart is empty")
)

type CheckoutService struct {
	sessions *SessionManager
	cart     *CartManager
	orders   OrderStore
	mailer   Mailer
	now      func() time.Time
}

// NewCheckoutService wires order placement. mailer may be nil.
func NewCheckoutService(sessions *SessionManager, cart *CartManager, orders OrderStore, mailer Mailer) *CheckoutService {
	return &CheckoutService{
		sessions: sessions,
		cart:     cart,
		orders:   orders,
		mailer:   mailer,
		now:      time.Now,
	}
}

// Checkout writes the cart as a pending order for the current session and
// takes the ordered lines off the cart. The cart is left as is when the order
// cannot be written.
func (s *CheckoutService) Checkout(ctx context.Context) (model.Order, error) {
	session := s.sessions.Current()
	if session == nil {
		return model.Order{}, ErrLoginRequired
	}

	items := s.cart.Items()
	if len(items) == 0 {
		return model.Order{}, ErrEmptyCart
	}

	order := model.Order{
		UserID:    session.ID,
		UserEmail: session.Email,
		UserName:  session.Name,
		Items:     items,
		Total:     Total(items),
		Status:    model.OrderPending,
		CreatedAt: s.now().UTC(),
		ShippingAddress: model.ShippingAddress{
			Name:  session.Name,
			Email: session.Email,
		},
	}

	id, err := s.orders.Create(ctx, order)
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to place order: %w", err)
	}
	order.ID = id
	log.Printf("[checkout] order %s placed by %s, total %.2f", id, session.Email, order.Total)

	s.cart.RemoveOrdered(ctx, items)

	if s.mailer != nil {
		if err := s.mailer.SendOrderConfirmation(ctx, order); err != nil {
			log.Printf("[checkout] confirmation mail for order %s failed: %v", id, err)
		}
	}
	return order, nil
}
