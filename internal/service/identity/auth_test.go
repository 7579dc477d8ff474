package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigantefleur/storefront/internal/model"
	"gigantefleur/storefront/internal/repository"
)

type fakeAdmin struct {
	mu        sync.Mutex
	revoked   []string
	revokeErr error
}

func (f *fakeAdmin) VerifyIDTokenAndCheckRevoked(context.Context, string) (*fbauth.Token, error) {
	return &fbauth.Token{}, nil
}

func (f *fakeAdmin) RevokeRefreshTokens(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, uid)
	return f.revokeErr
}

type recorder struct {
	mu     sync.Mutex
	events []*model.Identity
}

func (r *recorder) listen(id *model.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, id)
}

var testNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestAuth(ts *httptest.Server, store Persistence, admin Admin) *Auth {
	a := NewAuth(newTestClient(ts), store, admin)
	a.now = func() time.Time { return testNow }
	return a
}

func identityServer(t *testing.T, refreshStatus int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/accounts:signInWithPassword", "/v1/accounts:signUp":
			json.NewEncoder(w).Encode(accountResponse{LocalID: "uid-1", Email: "rose@gigantefleur.com", IDToken: "id", RefreshToken: "refresh", ExpiresIn: "3600"})
		case "/token-api/token":
			if refreshStatus != http.StatusOK {
				w.WriteHeader(refreshStatus)
				w.Write([]byte(`{"error":{"code":400,"message":"TOKEN_EXPIRED"}}`))
				return
			}
			json.NewEncoder(w).Encode(refreshResponse{UserID: "uid-1", IDToken: "fresh", RefreshToken: "refresh-2", ExpiresIn: "3600"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestAuth_SubscribeSignInSignOut(t *testing.T) {
	ctx := context.Background()
	ts := identityServer(t, http.StatusOK)
	store := repository.NewMemoryKV()
	admin := &fakeAdmin{}
	auth := newTestAuth(ts, store, admin)

	rec := &recorder{}
	unsubscribe := auth.Subscribe(rec.listen)
	defer unsubscribe()

	id, err := auth.SignIn(ctx, "rose@gigantefleur.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", id.UID)

	_, ok, _ := store.Get(ctx, PersistenceKey)
	assert.True(t, ok)

	admin.revokeErr = errors.New("admin unavailable")
	err = auth.SignOut(ctx)
	assert.EqualError(t, err, "admin unavailable")
	assert.Equal(t, []string{"uid-1"}, admin.revoked)
	assert.Nil(t, auth.Current())

	_, ok, _ = store.Get(ctx, PersistenceKey)
	assert.False(t, ok)

	require.Len(t, rec.events, 3)
	assert.Nil(t, rec.events[0])
	assert.Equal(t, "uid-1", rec.events[1].UID)
	assert.Nil(t, rec.events[2])
}

func TestAuth_Unsubscribe(t *testing.T) {
	ts := identityServer(t, http.StatusOK)
	auth := newTestAuth(ts, repository.NewMemoryKV(), nil)

	rec := &recorder{}
	unsubscribe := auth.Subscribe(rec.listen)
	unsubscribe()

	_, err := auth.SignUp(context.Background(), "rose@gigantefleur.com", "secret")
	require.NoError(t, err)
	assert.Len(t, rec.events, 1)
}

func TestAuth_RestoreRefreshesExpiredUser(t *testing.T) {
	ctx := context.Background()
	ts := identityServer(t, http.StatusOK)
	store := repository.NewMemoryKV()

	stale, _ := json.Marshal(User{UID: "uid-1", Email: "rose@gigantefleur.com", IDToken: "old", RefreshToken: "refresh", ExpiresAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, store.Set(ctx, PersistenceKey, string(stale)))

	auth := newTestAuth(ts, store, nil)
	require.NoError(t, auth.Restore(ctx))

	require.NotNil(t, auth.Current())
	assert.Equal(t, "uid-1", auth.Current().UID)

	raw, _, _ := store.Get(ctx, PersistenceKey)
	var persisted User
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Equal(t, "fresh", persisted.IDToken)
}

func TestAuth_RestoreDropsUnrefreshableUser(t *testing.T) {
	ctx := context.Background()
	ts := identityServer(t, http.StatusBadRequest)
	store := repository.NewMemoryKV()

	stale, _ := json.Marshal(User{UID: "uid-1", RefreshToken: "refresh", ExpiresAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, store.Set(ctx, PersistenceKey, string(stale)))

	auth := newTestAuth(ts, store, nil)
	require.NoError(t, auth.Restore(ctx))

	assert.Nil(t, auth.Current())
	_, ok, _ := store.Get(ctx, PersistenceKey)
	assert.False(t, ok)
}

func TestAuth_RestoreCorruptValue(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryKV()
	require.NoError(t, store.Set(ctx, PersistenceKey, "{not json"))

	auth := NewAuth(NewClient(Config{}), store, nil)
	require.NoError(t, auth.Restore(ctx))

	assert.Nil(t, auth.Current())
}

func TestAuth_CheckSignsOutWhenRefreshRejected(t *testing.T) {
	ctx := context.Background()
	ts := identityServer(t, http.StatusBadRequest)
	auth := newTestAuth(ts, repository.NewMemoryKV(), nil)

	_, err := auth.SignIn(ctx, "rose@gigantefleur.com", "secret")
	require.NoError(t, err)

	rec := &recorder{}
	auth.Subscribe(rec.listen)

	// token expires 2026-01-01T01:00, inside a two hour horizon
	auth.check(ctx, 2*time.Hour)

	assert.Nil(t, auth.Current())
	require.Len(t, rec.events, 2)
	assert.Nil(t, rec.events[1])
}

func TestAuth_CheckRefreshesWithoutNotifying(t *testing.T) {
	ctx := context.Background()
	ts := identityServer(t, http.StatusOK)
	auth := newTestAuth(ts, repository.NewMemoryKV(), &fakeAdmin{})

	_, err := auth.SignIn(ctx, "rose@gigantefleur.com", "secret")
	require.NoError(t, err)

	rec := &recorder{}
	auth.Subscribe(rec.listen)
	auth.check(ctx, 2*time.Hour)

	require.NotNil(t, auth.Current())
	assert.Len(t, rec.events, 1)
}
