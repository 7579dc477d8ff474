package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigantefleur/storefront/internal/model"
	"gigantefleur/storefront/internal/repository"
)

type checkoutFixture struct {
	sessions *SessionManager
	cart     *CartManager
	orders   *fakeOrders
	mailer   *fakeMailer
	svc      *CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	store := repository.NewMemoryKV()
	auth := newFakeAuth()
	auth.identity = &model.Identity{UID: "uid-1", Email: "rose@gigantefleur.com", DisplayName: "Rose"}

	f := &checkoutFixture{
		sessions: newTestSessions(auth, nil, store),
		cart:     NewCartManager(store),
		orders:   &fakeOrders{},
		mailer:   &fakeMailer{},
	}
	f.svc = NewCheckoutService(f.sessions, f.cart, f.orders, f.mailer)
	f.svc.now = func() time.Time { return time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC) }
	return f
}

func TestCheckout_PlacesOrderAndClearsCart(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	_, err := f.sessions.Login(ctx, "rose@gigantefleur.com", "secret", "")
	require.NoError(t, err)
	require.NoError(t, f.cart.Add(ctx, flower("1", "$10.00"), 2))
	require.NoError(t, f.cart.Add(ctx, flower("2", "$4.50"), 1))

	order, err := f.svc.Checkout(ctx)
	require.NoError(t, err)

	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, "uid-1", order.UserID)
	assert.Equal(t, "Rose", order.UserName)
	assert.Equal(t, model.OrderPending, order.Status)
	assert.InDelta(t, 24.50, order.Total, 1e-9)
	assert.Equal(t, time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC), order.CreatedAt)
	assert.Equal(t, model.ShippingAddress{Name: "Rose", Email: "rose@gigantefleur.com"}, order.ShippingAddress)
	assert.Len(t, order.Items, 2)

	assert.Zero(t, f.cart.Count())
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "order-1", f.mailer.sent[0].ID)
}

func TestCheckout_RequiresLogin(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	require.NoError(t, f.cart.Add(ctx, flower("1", "$10"), 1))

	_, err := f.svc.Checkout(ctx)

	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.Empty(t, f.orders.orders)
	assert.Equal(t, 1, f.cart.Count())
}

func TestCheckout_EmptyCart(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	_, err := f.sessions.Login(ctx, "rose@gigantefleur.com", "secret", "")
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_OrderFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.orders.err = errRemoteDown
	_, err := f.sessions.Login(ctx, "rose@gigantefleur.com", "secret", "")
	require.NoError(t, err)
	require.NoError(t, f.cart.Add(ctx, flower("1", "$10"), 3))

	_, err = f.svc.Checkout(ctx)

	assert.ErrorIs(t, err, errRemoteDown)
	assert.Equal(t, 3, f.cart.QuantityOf("1"))
	assert.Empty(t, f.mailer.sent)
}

func TestCheckout_MailFailureIgnored(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.mailer.err = errors.New("smtp down")
	_, err := f.sessions.Login(ctx, "rose@gigantefleur.com", "secret", "")
	require.NoError(t, err)
	require.NoError(t, f.cart.Add(ctx, flower("1", "$10"), 1))

	_, err = f.svc.Checkout(ctx)

	require.NoError(t, err)
	assert.Zero(t, f.cart.Count())
}

// racingOrders runs during inside Create, before the order is stored.
type racingOrders struct {
	fakeOrders
	during func()
}

func (r *racingOrders) Create(ctx context.Context, order model.Order) (string, error) {
	r.during()
	return r.fakeOrders.Create(ctx, order)
}

func TestCheckout_KeepsLinesAddedWhileOrdering(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	_, err := f.sessions.Login(ctx, "rose@gigantefleur.com", "secret", "")
	require.NoError(t, err)
	require.NoError(t, f.cart.Add(ctx, flower("1", "$10"), 2))
	require.NoError(t, f.cart.Add(ctx, flower("2", "$4"), 1))

	orders := &racingOrders{during: func() {
		require.NoError(t, f.cart.Add(ctx, flower("late", "$3"), 1))
		require.NoError(t, f.cart.Add(ctx, flower("1", "$10"), 1))
	}}
	svc := NewCheckoutService(f.sessions, f.cart, orders, f.mailer)

	order, err := svc.Checkout(ctx)
	require.NoError(t, err)

	assert.Len(t, order.Items, 2)
	assert.InDelta(t, 24.0, order.Total, 1e-9)
	assert.True(t, f.cart.Contains("late"))
	assert.Equal(t, 1, f.cart.QuantityOf("1"))
	assert.False(t, f.cart.Contains("2"))
	assert.Equal(t, 2, f.cart.Count())
}
