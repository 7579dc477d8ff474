package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gigantefleur/storefront/internal/model"
	"gigantefleur/storefront/internal/repository"
)

const avatarTemplate = "https://ui-avatars.com/api/?name=%s&background=e91e63&color=fff"

var ErrInvalidRole = errors.New("invalid role")

// AuthError is returned by Login and Register. Message is the remote
// service's message, shown to the user as is.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// FallbackCredentials is the single credential pair accepted when the remote
// auth service rejects or cannot serve a sign-in.
type FallbackCredentials struct {
	Email    string
	Password string
	Name     string
}

func (f FallbackCredentials) matches(email, password string) bool {
	return f.Email != "" && f.Password != "" && email == f.Email && password == f.Password
}

type SessionManager struct {
	auth     AuthService
	users    UserDirectory
	store    KeyValueStore
	fallback FallbackCredentials
	now      func() time.Time
	newID    func() string

	mu          sync.RWMutex
	current     *model.Session
	unsubscribe func()
}

// NewSessionManager wires the session owner. users may be nil.
func NewSessionManager(auth AuthService, users UserDirectory, store KeyValueStore, fallback FallbackCredentials) *SessionManager {
	return &SessionManager{
		auth:     auth,
		users:    users,
		store:    store,
		fallback: fallback,
		now:      time.Now,
		newID:    ephemeralID,
	}
}

// ephemeralID is time ordered so ids sort by creation.
func ephemeralID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "demo_admin_" + uuid.NewString()
	}
	return "demo_admin_" + id.String()
}

// Restore adopts a stored ephemeral session as is. Any other state is driven
// by the auth service's subscription from here on.
func (m *SessionManager) Restore(ctx context.Context) error {
	if stored, ok := m.stored(ctx); ok && stored.IsEphemeral {
		m.mu.Lock()
		m.current = stored
		m.mu.Unlock()
		log.Printf("[session] restored ephemeral session %s", stored.ID)
		return nil
	}

	m.Close()
	// auth events outlive the request that started the subscription
	bg := context.WithoutCancel(ctx)
	unsubscribe := m.auth.Subscribe(func(id *model.Identity) {
		m.onAuthState(bg, id)
	})

	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
	return nil
}

func (m *SessionManager) onAuthState(ctx context.Context, id *model.Identity) {
	if id == nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		// an ephemeral session was never known to the auth service
		if stored, ok := m.stored(ctx); ok && stored.IsEphemeral {
			return
		}
		m.current = nil
		deleteKey(ctx, m.store, SessionKey)
		return
	}

	s := m.sessionFrom(ctx, id, "", model.RoleAdmin)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
	saveJSON(ctx, m.store, SessionKey, s)
}

// Login signs in remotely, falling back to the fixed credential pair when the
// remote call fails. role defaults to admin; any other unknown role is
// rejected before the remote call.
func (m *SessionManager) Login(ctx context.Context, email, password string, role model.Role) (*model.Session, error) {
	if role == "" {
		role = model.RoleAdmin
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	id, err := m.auth.SignIn(ctx, email, password)
	if err == nil {
		s := m.sessionFrom(ctx, id, "", role)
		m.set(ctx, s)
		return s, nil
	}

	if m.fallback.matches(email, password) {
		log.Printf("[session] remote sign-in failed, using fallback credentials: %v", err)
		name := m.fallback.Name
		if name == "" {
			name = localPart(email)
		}
		s := &model.Session{
			ID:          m.newID(),
			Email:       m.fallback.Email,
			Name:        name,
			Role:        model.RoleAdmin,
			AvatarURL:   avatarURL(name),
			IsEphemeral: true,
		}
		m.set(ctx, s)
		return s, nil
	}

	msg := err.Error()
	if msg == "" {
		msg = "Invalid credentials"
	}
	return nil, &AuthError{Message: msg, Err: err}
}

// Register creates a remote account. There is no local fallback.
func (m *SessionManager) Register(ctx context.Context, email, password, name string, role model.Role) (*model.Session, error) {
	if role == "" {
		role = model.RoleAdmin
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	id, err := m.auth.SignUp(ctx, email, password)
	if err != nil {
		return nil, &AuthError{Message: err.Error(), Err: err}
	}

	s := m.sessionFrom(ctx, id, name, role)
	m.set(ctx, s)

	if m.users != nil {
		profile := model.UserProfile{UID: s.ID, Email: s.Email, Name: s.Name, Role: s.Role, CreatedAt: m.now().UTC()}
		if err := m.users.Save(ctx, profile); err != nil {
			log.Printf("[session] failed to save profile for %s: %v", s.ID, err)
		}
	}
	return s, nil
}

// Logout always clears the local session; remote errors are only logged.
func (m *SessionManager) Logout(ctx context.Context) {
	if err := m.auth.SignOut(ctx); err != nil {
		log.Printf("[session] remote sign-out failed: %v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	deleteKey(ctx, m.store, SessionKey)
}

// Current returns a copy of the active session, or nil when anonymous.
func (m *SessionManager) Current() *model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	s := *m.current
	return &s
}

func (m *SessionManager) IsAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil && m.current.Role == model.RoleAdmin
}

// Close ends the auth-state subscription, if any.
func (m *SessionManager) Close() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (m *SessionManager) set(ctx context.Context, s *model.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
	saveJSON(ctx, m.store, SessionKey, s)
}

func (m *SessionManager) stored(ctx context.Context) (*model.Session, bool) {
	var s model.Session
	if !loadJSON(ctx, m.store, SessionKey, &s) {
		return nil, false
	}
	if err := s.Validate(); err != nil {
		log.Printf("[session] ignoring stored session: %v", err)
		return nil, false
	}
	return &s, true
}

// sessionFrom derives a session from a remote identity. The name is the
// explicit name, then the display name, then the users profile, then the
// email local-part.
func (m *SessionManager) sessionFrom(ctx context.Context, id *model.Identity, name string, role model.Role) *model.Session {
	if name == "" {
		name = id.DisplayName
	}
	if name == "" {
		name = m.profileName(ctx, id.Email)
	}
	if name == "" {
		name = localPart(id.Email)
	}

	avatar := id.PhotoURL
	if avatar == "" {
		avatar = avatarURL(name)
	}

	return &model.Session{
		ID:        id.UID,
		Email:     id.Email,
		Name:      name,
		Role:      role,
		AvatarURL: avatar,
	}
}

func (m *SessionManager) profileName(ctx context.Context, email string) string {
	if m.users == nil || email == "" {
		return ""
	}
	p, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrUnavailable) {
			log.Printf("[session] profile lookup for %s failed: %v", email, err)
		}
		return ""
	}
	return p.Name
}

func localPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// avatarURL renders the initials-avatar template. Spaces are encoded as %20
// like encodeURIComponent does.
func avatarURL(name string) string {
	return fmt.Sprintf(avatarTemplate, strings.ReplaceAll(url.QueryEscape(name), "+", "%20"))
}
