package storage_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/vidpipe/component"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/storage"
	_ "github.com/kbukum/vidpipe/storage/local"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  storage.Config
		want string
	}{
		{"local defaults", storage.Config{}, ""},
		{"s3 needs bucket", storage.Config{Provider: storage.ProviderS3}, "bucket is required"},
		{"s3 half credentials", storage.Config{Provider: storage.ProviderS3, Bucket: "b", AccessKey: "a"}, "set together"},
		{"unknown provider", storage.Config{Provider: "gcs"}, "unsupported provider"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestComponent_Local(t *testing.T) {
	c := storage.NewComponent(storage.Config{
		Provider:   storage.ProviderLocal,
		BasePath:   t.TempDir(),
		BaseURL:    "http://media.test",
		SigningKey: "k",
	}, logger.Nop())
	signer := c.Signer()
	ctx := context.Background()

	if _, err := signer.SignedURL(ctx, "a.mp4", time.Minute); err == nil {
		t.Error("expected error before Start")
	}
	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before Start, got %s", h.Status)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	url, err := signer.SignedURL(ctx, "a.mp4", time.Minute)
	if err != nil || !strings.HasPrefix(url, "http://media.test/a.mp4?") {
		t.Errorf("unexpected url %q (%v)", url, err)
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %s (%s)", h.Status, h.Message)
	}
	if d := c.Describe(); d.Details != "provider=local" {
		t.Errorf("unexpected details %q", d.Details)
	}
}

func TestNew_UnregisteredProvider(t *testing.T) {
	_, err := storage.New(context.Background(), storage.Config{Provider: storage.ProviderS3, Bucket: "b"}, logger.Nop())
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Errorf("expected not registered error, got %v", err)
	}
}
