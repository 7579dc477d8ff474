package identity

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	fbauth "firebase.google.com/go/v4/auth"

	"gigantefleur/storefront/internal/model"
)

// PersistenceKey is where the signed-in Firebase user is kept, separate from
// the storefront's own session record.
const PersistenceKey = "firebase:authUser"

type Persistence interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Admin is the part of the Firebase Admin auth client used here.
// *fbauth.Client satisfies it.
type Admin interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*fbauth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// Auth holds the current Firebase user and publishes auth-state changes,
// mirroring onAuthStateChanged of the web SDK.
type Auth struct {
	client *Client
	admin  Admin
	store  Persistence
	now    func() time.Time

	mu        sync.Mutex
	current   *User
	listeners map[int]func(*model.Identity)
	nextID    int
}

// NewAuth builds the auth state holder. admin may be nil, in which case
// sign-out is local only and revocation is not checked.
func NewAuth(client *Client, store Persistence, admin Admin) *Auth {
	return &Auth{
		client:    client,
		admin:     admin,
		store:     store,
		now:       time.Now,
		listeners: make(map[int]func(*model.Identity)),
	}
}

// Restore loads the persisted user, refreshing its ID token when expired.
// A user that cannot be refreshed is dropped.
func (a *Auth) Restore(ctx context.Context) error {
	raw, ok, err := a.store.Get(ctx, PersistenceKey)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.UID == "" || u.RefreshToken == "" {
		log.Printf("[identity] dropping unreadable persisted user")
		a.setUser(ctx, nil)
		return nil
	}

	if u.expiresWithin(0, a.now()) {
		refreshed, err := a.client.Refresh(ctx, &u)
		if err != nil {
			log.Printf("[identity] refresh of persisted user %s failed: %v", u.UID, err)
			a.setUser(ctx, nil)
			return nil
		}
		u = *refreshed
	}

	a.setUser(ctx, &u)
	return nil
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (*model.Identity, error) {
	u, err := a.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	a.setUser(ctx, u)
	return u.Identity(), nil
}

func (a *Auth) SignUp(ctx context.Context, email, password string) (*model.Identity, error) {
	u, err := a.client.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	a.setUser(ctx, u)
	return u.Identity(), nil
}

// SignOut revokes the user's refresh tokens when an admin client is
// configured. Local state is cleared even if revocation fails.
func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	u := a.current
	a.mu.Unlock()

	var err error
	if u != nil && a.admin != nil {
		err = a.admin.RevokeRefreshTokens(ctx, u.UID)
	}
	a.setUser(ctx, nil)
	return err
}

// Current returns the signed-in identity, or nil.
func (a *Auth) Current() *model.Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current.Identity()
}

// Subscribe registers fn for auth-state changes and calls it once right away
// with the current state. The returned func removes the subscription.
func (a *Auth) Subscribe(fn func(*model.Identity)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	current := a.current.Identity()
	a.mu.Unlock()

	fn(current)

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

// Watch periodically checks the current user until ctx is done. Tokens that
// expire before the next check are refreshed; revoked or rejected tokens sign
// the user out.
func (a *Auth) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.check(ctx, interval)
		}
	}
}

func (a *Auth) check(ctx context.Context, horizon time.Duration) {
	a.mu.Lock()
	u := a.current
	a.mu.Unlock()
	if u == nil {
		return
	}

	if a.admin != nil && u.IDToken != "" && !u.expiresWithin(0, a.now()) {
		_, err := a.admin.VerifyIDTokenAndCheckRevoked(ctx, u.IDToken)
		if err != nil && (fbauth.IsIDTokenRevoked(err) || fbauth.IsUserDisabled(err) || fbauth.IsUserNotFound(err)) {
			log.Printf("[identity] user %s no longer valid: %v", u.UID, err)
			a.setUser(ctx, nil)
			return
		}
	}

	if !u.expiresWithin(horizon, a.now()) {
		return
	}
	refreshed, err := a.client.Refresh(ctx, u)
	if err != nil {
		var apiErr *ErrorResponse
		if errors.As(err, &apiErr) {
			log.Printf("[identity] refresh rejected for %s: %v", u.UID, err)
			a.setUser(ctx, nil)
			return
		}
		log.Printf("[identity] refresh failed for %s, will retry: %v", u.UID, err)
		return
	}
	a.setUser(ctx, refreshed)
}

// setUser replaces the current user, persists it and notifies listeners when
// the signed-in uid changed.
func (a *Auth) setUser(ctx context.Context, u *User) {
	a.mu.Lock()
	prev := a.current
	a.current = u
	changed := (prev == nil) != (u == nil) || (prev != nil && u != nil && prev.UID != u.UID)
	var listeners []func(*model.Identity)
	if changed {
		for _, fn := range a.listeners {
			listeners = append(listeners, fn)
		}
	}
	a.mu.Unlock()

	if u == nil {
		if err := a.store.Delete(ctx, PersistenceKey); err != nil {
			log.Printf("[identity] failed to clear persisted user: %v", err)
		}
	} else if raw, err := json.Marshal(u); err == nil {
		if err := a.store.Set(ctx, PersistenceKey, string(raw)); err != nil {
			log.Printf("[identity] failed to persist user: %v", err)
		}
	}

	for _, fn := range listeners {
		fn(u.Identity())
	}
}
