package config

import (
	"context"
	"fmt"
	"log"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// SecretAccessor is the part of the Secret Manager client used here.
type SecretAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// ResolveSecrets fills values that are configured as Secret Manager references.
// It is a no-op when nothing refers to a secret.
func ResolveSecrets(ctx context.Context, cfg *Config, opts ...option.ClientOption) error {
	if cfg.Firebase.APIKey != "" || cfg.Firebase.APIKeySecret == "" {
		return nil
	}

	sm, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create secretmanager client: %w", err)
	}
	defer sm.Close()

	return resolveWith(ctx, sm, cfg)
}

func resolveWith(ctx context.Context, sm SecretAccessor, cfg *Config) error {
	name := secretVersionName(cfg.Firebase.ProjectID, cfg.Firebase.APIKeySecret)
	resp, err := sm.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return fmt.Errorf("failed to access secret %s: %w", name, err)
	}
	if resp == nil || resp.Payload == nil {
		return fmt.Errorf("secret %s has an empty payload", name)
	}

	cfg.Firebase.APIKey = strings.TrimSpace(string(resp.Payload.Data))
	log.Printf("[config] firebase api key loaded from secret manager (%s)", name)
	return nil
}

// secretVersionName accepts either a bare secret id or a full resource name.
func secretVersionName(projectID, secret string) string {
	secret = strings.TrimSpace(secret)
	if strings.HasPrefix(secret, "projects/") {
		if strings.Contains(secret, "/versions/") {
			return secret
		}
		return secret + "/versions/latest"
	}
	return "projects/" + projectID + "/secrets/" + secret + "/versions/latest"
}
