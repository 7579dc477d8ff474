package service

import (
	"context"
	"encoding/json"
	"log"

	"gigantefleur/storefront/internal/model"
)

// Persistent-store keys. Each key is owned by exactly one manager.
const (
	SessionKey = "currentUser"
	CartKey    = "cartItems"
	CatalogKey = "flowers"
)

// KeyValueStore is the local persistent store.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type AuthService interface {
	SignIn(ctx context.Context, email, password string) (*model.Identity, error)
	SignUp(ctx context.Context, email, password string) (*model.Identity, error)
	SignOut(ctx context.Context) error
	// Subscribe calls fn with the current identity and on every change;
	// nil means signed out.
	Subscribe(fn func(*model.Identity)) (unsubscribe func())
}

type UserDirectory interface {
	Save(ctx context.Context, p model.UserProfile) error
	FindByEmail(ctx context.Context, email string) (*model.UserProfile, error)
}

type FlowerStore interface {
	Add(ctx context.Context, item model.CatalogItem) (string, error)
	GetAll(ctx context.Context) ([]model.CatalogItem, error)
	Update(ctx context.Context, id string, patch model.CatalogPatch) error
	Delete(ctx context.Context, id string) error
}

type ImageStore interface {
	Upload(ctx context.Context, objectPath, contentType string, data []byte) (string, error)
}

type OrderStore interface {
	Create(ctx context.Context, order model.Order) (string, error)
}

type Mailer interface {
	SendOrderConfirmation(ctx context.Context, order model.Order) error
}

// loadJSON decodes the value under key into v. Missing, unreadable and
// malformed values are all reported as absent.
func loadJSON(ctx context.Context, store KeyValueStore, key string, v any) bool {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		log.Printf("[store] failed to read %s: %v", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		log.Printf("[store] ignoring malformed %s: %v", key, err)
		return false
	}
	return true
}

// saveJSON writes v under key. The store contract is infallible, so a write
// error is logged and dropped.
func saveJSON(ctx context.Context, store KeyValueStore, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Printf("[store] failed to encode %s: %v", key, err)
		return
	}
	if err := store.Set(ctx, key, string(raw)); err != nil {
		log.Printf("[store] failed to write %s: %v", key, err)
	}
}

func deleteKey(ctx context.Context, store KeyValueStore, key string) {
	if err := store.Delete(ctx, key); err != nil {
		log.Printf("[store] failed to delete %s: %v", key, err)
	}
}
