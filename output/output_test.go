package output

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/store/memstore"
)

type fakeSigner struct {
	key string
	ttl time.Duration
	err error
}

func (f *fakeSigner) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.key, f.ttl = key, ttl
	if f.err != nil {
		return "", f.err
	}
	return "https://media.example/" + key + "?sig=x", nil
}

func seed(t *testing.T) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	if err := s.CreatePipeline(ctx, &pipeline.Pipeline{ID: "p1", Title: "episode"}); err != nil {
		t.Fatal(err)
	}
	nodes := []*pipeline.Node{
		{ID: "done", PipelineID: "p1", Type: "compose-video", Output: datatypes.JSONMap{"type": "video", "s3Key": "final.mp4"}},
		{ID: "asset", PipelineID: "p1", Type: "asset", Asset: datatypes.JSONMap{"type": "image", "source": "logo.png"}},
		{ID: "empty", PipelineID: "p1", Type: "mix-audio"},
	}
	for _, n := range nodes {
		n.EnsureDocuments()
		if err := s.CreateNode(ctx, n); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestResolve(t *testing.T) {
	tests := []struct {
		node    string
		wantKey string
		wantErr errors.ErrorCode
	}{
		{"done", "final.mp4", ""},
		{"asset", "logo.png", ""},
		{"empty", "", errors.ErrCodeNoOutput},
		{"missing", "", errors.ErrCodeNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.node, func(t *testing.T) {
			signer := &fakeSigner{}
			r := NewResolver(seed(t), signer, 15*time.Minute)
			u, err := r.Resolve(context.Background(), tc.node)
			if tc.wantErr != "" {
				if !errors.IsCode(err, tc.wantErr) {
					t.Fatalf("expected %s, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if u.Key != tc.wantKey || signer.key != tc.wantKey || signer.ttl != 15*time.Minute {
				t.Errorf("unexpected signing %+v (signer key %q ttl %v)", u, signer.key, signer.ttl)
			}
		})
	}
}

func TestResolve_SignerFailure(t *testing.T) {
	r := NewResolver(seed(t), &fakeSigner{err: stderrors.New("no credentials")}, 0)
	_, err := r.Resolve(context.Background(), "done")
	if !errors.IsCode(err, errors.ErrCodeExternalService) {
		t.Errorf("expected EXTERNAL_SERVICE_ERROR, got %v", err)
	}
}

func TestConfig(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	if err := c.Validate(); err != nil || c.TTL() != time.Hour {
		t.Fatalf("expected 1h default, got %v, %v", c.TTL(), err)
	}
	for _, bad := range []string{"soon", "-5m"} {
		c.URLTTL = bad
		if err := c.Validate(); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
