package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

const secretPrefix = "sm://"

type secretAccessor interface {
	Access(ctx context.Context, name string) (string, error)
	Close() error
}

type secretManagerAccessor struct {
	client *secretmanager.Client
}

func (a *secretManagerAccessor) Access(ctx context.Context, name string) (string, error) {
	resp, err := a.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	return strings.TrimSpace(string(resp.GetPayload().GetData())), nil
}

func (a *secretManagerAccessor) Close() error {
	return a.client.Close()
}

// newSecretAccessor is replaced in tests.
var newSecretAccessor = func(ctx context.Context) (secretAccessor, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}
	return &secretManagerAccessor{client: client}, nil
}

func (c *Credentials) fields() []*string {
	return []*string{
		&c.GroqAPIKey,
		&c.DeepSeekAPIKey,
		&c.GeminiAPIKey,
		&c.DashScopeAPIKey,
		&c.VolcEngineAccessKey,
		&c.VolcEngineSecretKey,
		&c.GCSBucket,
	}
}

func resolveSecrets(ctx context.Context, cfg *Config) error {
	var refs []*string
	for _, field := range cfg.Credentials.fields() {
		if strings.HasPrefix(*field, secretPrefix) {
			refs = append(refs, field)
		}
	}
	if len(refs) == 0 {
		return nil
	}

	accessor, err := newSecretAccessor(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = accessor.Close() }()

	for _, field := range refs {
		name := secretVersionName(*field, cfg.GCPProject)
		value, err := accessor.Access(ctx, name)
		if err != nil {
			return err
		}
		slog.Debug("Resolved secret", "name", name)
		*field = value
	}

	return nil
}

// secretVersionName expands sm://name, sm://name/versions/3 and
// sm://projects/p/secrets/name into a full secret version resource name.
func secretVersionName(ref, project string) string {
	name := strings.TrimPrefix(ref, secretPrefix)
	if !strings.HasPrefix(name, "projects/") {
		name = fmt.Sprintf("projects/%s/secrets/%s", project, name)
	}
	if !strings.Contains(name, "/versions/") {
		name += "/versions/latest"
	}
	return name
}
