package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"gigantefleur/storefront/internal/model"
)

const usersCollection = "users"

// UserRepositoryFS keeps user profiles in "users", one document per auth uid.
type UserRepositoryFS struct {
	Client *firestore.Client
}

func NewUserRepositoryFS(client *firestore.Client) *UserRepositoryFS {
	return &UserRepositoryFS{Client: client}
}

func (r *UserRepositoryFS) Save(ctx context.Context, p model.UserProfile) error {
	if r == nil || r.Client == nil {
		return ErrUnavailable
	}
	uid := strings.TrimSpace(p.UID)
	if uid == "" {
		return errors.New("user uid is empty")
	}
	if _, err := r.Client.Collection(usersCollection).Doc(uid).Set(ctx, p); err != nil {
		return fmt.Errorf("failed to save user %s: %w", uid, err)
	}
	return nil
}

// FindByEmail returns the first profile whose email matches.
func (r *UserRepositoryFS) FindByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	if r == nil || r.Client == nil {
		return nil, ErrUnavailable
	}

	it := r.Client.Collection(usersCollection).
		Where("email", "==", strings.TrimSpace(email)).
		Limit(1).
		Documents(ctx)
	defer it.Stop()

	snap, err := it.Next()
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	var p model.UserProfile
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", snap.Ref.ID, err)
	}
	if p.UID == "" {
		p.UID = snap.Ref.ID
	}
	return &p, nil
}
