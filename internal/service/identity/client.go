package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

type Config struct {
	// APIURL is the Identity Toolkit base, e.g. https://identitytoolkit.googleapis.com/v1
	APIURL string
	// TokenURL is the Secure Token base, e.g. https://securetoken.googleapis.com/v1
	TokenURL string
	APIKey   string
}

// Client talks to the Firebase Auth REST endpoints that the web SDK uses.
type Client struct {
	client *http.Client
	config Config
	now    func() time.Time
}

func NewClient(cfg Config) *Client {
	return &Client{
		client: &http.Client{
			Transport: &KeyTransport{
				APIKey: cfg.APIKey,
				Base:   http.DefaultTransport,
			},
			Timeout: 10 * time.Second,
		},
		config: cfg,
		now:    time.Now,
	}
}

// KeyTransport adds the web API key to every request
type KeyTransport struct {
	APIKey string
	Base   http.RoundTripper
}

func (t *KeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	q := req.URL.Query()
	q.Set("key", t.APIKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br")
	return t.Base.RoundTrip(req)
}

// SignInWithPassword signs in an existing email/password account.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*User, error) {
	return c.account(ctx, "accounts:signInWithPassword", email, password)
}

// SignUp creates a new email/password account and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password string) (*User, error) {
	return c.account(ctx, "accounts:signUp", email, password)
}

func (c *Client) account(ctx context.Context, method, email, password string) (*User, error) {
	body, err := json.Marshal(passwordRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s", strings.TrimRight(c.config.APIURL, "/"), method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out accountResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &User{
		UID:          out.LocalID,
		Email:        out.Email,
		DisplayName:  out.DisplayName,
		PhotoURL:     out.PhotoURL,
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    expiry(c.now(), out.ExpiresIn),
	}, nil
}

// Refresh exchanges a refresh token for a new ID token. Profile fields of
// the returned user are copied from u.
func (c *Client) Refresh(ctx context.Context, u *User) (*User, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", u.RefreshToken)

	endpoint := fmt.Sprintf("%s/token", strings.TrimRight(c.config.TokenURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out refreshResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	next := *u
	next.IDToken = out.IDToken
	if out.RefreshToken != "" {
		next.RefreshToken = out.RefreshToken
	}
	next.ExpiresAt = expiry(c.now(), out.ExpiresIn)
	return &next, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}

	if resp.Header.Get("Content-Encoding") == "br" {
		resp.Body = &readCloserWrapper{Reader: brotli.NewReader(resp.Body), Closer: resp.Body}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var apiErr ErrorResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Err.Message != "" {
			return &apiErr
		}
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

type readCloserWrapper struct {
	io.Reader
	io.Closer
}

func (r *readCloserWrapper) Read(p []byte) (n int, err error) {
	return r.Reader.Read(p)
}

func (r *readCloserWrapper) Close() error {
	return r.Closer.Close()
}
