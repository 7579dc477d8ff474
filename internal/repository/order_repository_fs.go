package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"gigantefleur/storefront/internal/model"
)

const ordersCollection = "orders"

// OrderRepositoryFS writes orders; they are never read back by the storefront.
type OrderRepositoryFS struct {
	Client *firestore.Client
}

func NewOrderRepositoryFS(client *firestore.Client) *OrderRepositoryFS {
	return &OrderRepositoryFS{Client: client}
}

func (r *OrderRepositoryFS) Create(ctx context.Context, order model.Order) (string, error) {
	if r == nil || r.Client == nil {
		return "", ErrUnavailable
	}
	ref, _, err := r.Client.Collection(ordersCollection).Add(ctx, order)
	if err != nil {
		return "", fmt.Errorf("failed to create order: %w", err)
	}
	return ref.ID, nil
}
