package identity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gigantefleur/storefront/internal/model"
)

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// accountResponse is shared by accounts:signInWithPassword and accounts:signUp.
type accountResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type refreshResponse struct {
	UserID       string `json:"user_id"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
}

// User is a signed-in Firebase user together with its tokens.
type User struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName,omitempty"`
	PhotoURL     string    `json:"photoURL,omitempty"`
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func (u *User) Identity() *model.Identity {
	if u == nil {
		return nil
	}
	return &model.Identity{
		UID:         u.UID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
	}
}

func (u *User) expiresWithin(d time.Duration, now time.Time) bool {
	return !u.ExpiresAt.After(now.Add(d))
}

func expiry(now time.Time, expiresIn string) time.Time {
	secs, err := strconv.Atoi(strings.TrimSpace(expiresIn))
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return now.Add(time.Duration(secs) * time.Second)
}

type APIError struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// ErrorResponse is the error envelope returned by the Google identity APIs,
// e.g. {"error":{"code":400,"message":"EMAIL_NOT_FOUND"}}.
type ErrorResponse struct {
	Err struct {
		Code    int        `json:"code"`
		Message string     `json:"message"`
		Errors  []APIError `json:"errors"`
	} `json:"error"`
}

// Error returns the remote message verbatim; callers surface it to users.
func (e *ErrorResponse) Error() string {
	if e.Err.Message != "" {
		return e.Err.Message
	}
	return fmt.Sprintf("identity api error: status %d", e.Err.Code)
}
