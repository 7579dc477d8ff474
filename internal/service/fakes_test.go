package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gigantefleur/storefront/internal/model"
	"gigantefleur/storefront/internal/repository"
)

var errRemoteDown = errors.New("remote unavailable")

type fakeAuth struct {
	mu         sync.Mutex
	signInErr  error
	signUpErr  error
	signOutErr error
	identity   *model.Identity
	signedOut  int
	listeners  map[int]func(*model.Identity)
	next       int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{listeners: map[int]func(*model.Identity){}}
}

func (f *fakeAuth) SignIn(_ context.Context, email, _ string) (*model.Identity, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	id := f.identity
	if id == nil {
		id = &model.Identity{UID: "uid-1", Email: email}
	}
	f.emit(id)
	return id, nil
}

func (f *fakeAuth) SignUp(_ context.Context, email, _ string) (*model.Identity, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	id := &model.Identity{UID: "uid-new", Email: email}
	f.emit(id)
	return id, nil
}

func (f *fakeAuth) SignOut(context.Context) error {
	f.mu.Lock()
	f.signedOut++
	f.mu.Unlock()
	f.emit(nil)
	return f.signOutErr
}

func (f *fakeAuth) Subscribe(fn func(*model.Identity)) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	f.mu.Unlock()

	fn(nil)
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeAuth) emit(id *model.Identity) {
	f.mu.Lock()
	var fns []func(*model.Identity)
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}

func (f *fakeAuth) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

type fakeUsers struct {
	mu       sync.Mutex
	profiles map[string]model.UserProfile
	saveErr  error
}

func (f *fakeUsers) Save(_ context.Context, p model.UserProfile) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profiles == nil {
		f.profiles = map[string]model.UserProfile{}
	}
	f.profiles[p.UID] = p
	return nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.Email == email {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

// fakeFlowers is an in-memory remote catalog that can be switched offline.
type fakeFlowers struct {
	mu      sync.Mutex
	offline bool
	docs    []model.CatalogItem
	nextID  int
	updates []string
	deletes []string
}

func (f *fakeFlowers) setOffline(v bool) {
	f.mu.Lock()
	f.offline = v
	f.mu.Unlock()
}

func (f *fakeFlowers) Add(_ context.Context, item model.CatalogItem) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return "", errRemoteDown
	}
	f.nextID++
	item.ID = fmt.Sprintf("doc-%d", f.nextID)
	f.docs = append(f.docs, item)
	return item.ID, nil
}

func (f *fakeFlowers) GetAll(context.Context) ([]model.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, errRemoteDown
	}
	out := make([]model.CatalogItem, len(f.docs))
	copy(out, f.docs)
	return out, nil
}

func (f *fakeFlowers) Update(_ context.Context, id string, patch model.CatalogPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, id)
	if f.offline {
		return errRemoteDown
	}
	for i := range f.docs {
		if f.docs[i].ID == id {
			f.docs[i] = patch.Apply(f.docs[i])
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeFlowers) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	if f.offline {
		return errRemoteDown
	}
	kept := f.docs[:0]
	for _, d := range f.docs {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	f.docs = kept
	return nil
}

type fakeImages struct {
	err         error
	paths       []string
	contentType string
}

func (f *fakeImages) Upload(_ context.Context, objectPath, contentType string, _ []byte) (string, error) {
	f.paths = append(f.paths, objectPath)
	f.contentType = contentType
	if f.err != nil {
		return "", f.err
	}
	return "https://storage.example/" + objectPath, nil
}

type fakeOrders struct {
	err    error
	orders []model.Order
}

func (f *fakeOrders) Create(_ context.Context, order model.Order) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.orders = append(f.orders, order)
	return fmt.Sprintf("order-%d", len(f.orders)), nil
}

type fakeMailer struct {
	err  error
	sent []model.Order
}

func (f *fakeMailer) SendOrderConfirmation(_ context.Context, order model.Order) error {
	f.sent = append(f.sent, order)
	return f.err
}

// failingKV fails every call, like a store whose backend went away.
type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errRemoteDown
}

func (failingKV) Set(context.Context, string, string) error { return errRemoteDown }

func (failingKV) Delete(context.Context, string) error { return errRemoteDown }
