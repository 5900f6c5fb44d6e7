// Package local signs URLs for objects kept on the local filesystem and
// served by vidpipe's own media route. Importing it registers the "local"
// storage provider.
package local

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/storage"
)

// Query parameters carried by a signed URL.
const (
	ParamExpires   = "expires"
	ParamSignature = "signature"
)

var (
	ErrExpired      = errors.New("storage: signed url expired")
	ErrBadSignature = errors.New("storage: invalid signature")
)

func init() {
	storage.RegisterFactory(storage.ProviderLocal, func(_ context.Context, cfg storage.Config, log *logger.Logger) (storage.SignedURLProvider, error) {
		if cfg.SigningKey == "" {
			log.Warn("storage.signing_key is empty; local URLs are signed with an empty key")
		}
		return New(cfg.BasePath, cfg.BaseURL, []byte(cfg.SigningKey)), nil
	})
}

// Signer issues and verifies HMAC-SHA256 signed URLs.
type Signer struct {
	basePath string
	baseURL  string
	key      []byte
	now      func() time.Time
}

var (
	_ storage.SignedURLProvider = (*Signer)(nil)
	_ storage.Checker           = (*Signer)(nil)
)

// New creates a signer for files under basePath exposed at baseURL.
func New(basePath, baseURL string, key []byte) *Signer {
	return &Signer{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		key:      key,
		now:      time.Now,
	}
}

func (s *Signer) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", fmt.Errorf("storage: empty key")
	}
	expires := strconv.FormatInt(s.now().Add(ttl).Unix(), 10)
	q := url.Values{}
	q.Set(ParamExpires, expires)
	q.Set(ParamSignature, s.sign(key, expires))
	return s.baseURL + "/" + (&url.URL{Path: key}).EscapedPath() + "?" + q.Encode(), nil
}

// Verify checks a signature produced by SignedURL.
func (s *Signer) Verify(key, expires, signature string) error {
	key = strings.TrimPrefix(key, "/")
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	want, err := hex.DecodeString(s.sign(key, expires))
	if err != nil {
		return ErrBadSignature
	}
	got, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(want, got) {
		return ErrBadSignature
	}
	if s.now().Unix() > exp {
		return ErrExpired
	}
	return nil
}

// Path maps key to a file under the base path, refusing keys that escape it.
func (s *Signer) Path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	full := filepath.Join(s.basePath, clean)
	base := filepath.Clean(s.basePath)
	if full != base && !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: key %q escapes base path", key)
	}
	return full, nil
}

// Check verifies the base directory exists.
func (s *Signer) Check(context.Context) error {
	fi, err := os.Stat(s.basePath)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("storage: %s is not a directory", s.basePath)
	}
	return nil
}

func (s *Signer) sign(key, expires string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(key))
	mac.Write([]byte{0})
	mac.Write([]byte(expires))
	return hex.EncodeToString(mac.Sum(nil))
}
