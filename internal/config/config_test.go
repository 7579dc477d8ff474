package config

import (
	"context"
	"errors"
	"testing"
	"time"

	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "gigante-fleur")
	t.Setenv("FIREBASE_API_KEY", "key")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("FIREBASE_STORAGE_BUCKET", "")
	t.Setenv("AUTH_TOKEN_CHECK_INTERVAL", "")
	t.Setenv("FALLBACK_ADMIN_EMAIL", "")
	t.Setenv("FALLBACK_ADMIN_PASSWORD", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "gigante-fleur.appspot.com", cfg.Firebase.StorageBucket)
	assert.Equal(t, 5*time.Minute, cfg.Firebase.TokenCheck)
	assert.Equal(t, "admin@gigantefleur.com", cfg.Fallback.Email)
	assert.Equal(t, "admin123", cfg.Fallback.Password)
}

func TestLoad_MissingProject(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")

	_, err := Load()
	assert.ErrorContains(t, err, "FIREBASE_PROJECT_ID")
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "gigante-fleur")
	t.Setenv("FIREBASE_API_KEY", "")
	t.Setenv("FIREBASE_API_KEY_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "FIREBASE_API_KEY")
}

func TestLoad_CORSList(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "gigante-fleur")
	t.Setenv("FIREBASE_API_KEY", "key")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

type fakeSecrets struct {
	name string
	data string
	err  error
}

func (f *fakeSecrets) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.name = req.GetName()
	if f.err != nil {
		return nil, f.err
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(f.data)},
	}, nil
}

func TestResolveWith(t *testing.T) {
	cfg := &Config{}
	cfg.Firebase.ProjectID = "gigante-fleur"
	cfg.Firebase.APIKeySecret = "firebase-web-key"

	sm := &fakeSecrets{data: " secret-key\n"}
	require.NoError(t, resolveWith(context.Background(), sm, cfg))

	assert.Equal(t, "projects/gigante-fleur/secrets/firebase-web-key/versions/latest", sm.name)
	assert.Equal(t, "secret-key", cfg.Firebase.APIKey)
}

func TestResolveWith_Error(t *testing.T) {
	cfg := &Config{}
	cfg.Firebase.APIKeySecret = "projects/p/secrets/s/versions/3"

	sm := &fakeSecrets{err: errors.New("permission denied")}
	err := resolveWith(context.Background(), sm, cfg)

	assert.ErrorContains(t, err, "projects/p/secrets/s/versions/3")
	assert.Empty(t, cfg.Firebase.APIKey)
}

func TestResolveSecrets_NoSecretConfigured(t *testing.T) {
	cfg := &Config{}
	cfg.Firebase.APIKey = "already-set"
	cfg.Firebase.APIKeySecret = "ignored"

	assert.NoError(t, ResolveSecrets(context.Background(), cfg))
	assert.Equal(t, "already-set", cfg.Firebase.APIKey)
}
