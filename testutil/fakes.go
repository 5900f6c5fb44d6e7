package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/vidpipe/compute"
	"github.com/kbukum/vidpipe/storage"
)

// Invoker records submissions. Err, when set, is returned from Submit.
type Invoker struct {
	mu    sync.Mutex
	calls []compute.Invocation
	Err   error
}

var _ compute.Invoker = (*Invoker)(nil)

func (i *Invoker) Submit(_ context.Context, inv compute.Invocation) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls = append(i.calls, inv)
	return i.Err
}

// Calls returns a copy of the recorded invocations.
func (i *Invoker) Calls() []compute.Invocation {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]compute.Invocation(nil), i.calls...)
}

// LastToken returns the process_uuid of the latest submission.
func (i *Invoker) LastToken() string {
	calls := i.Calls()
	if len(calls) == 0 {
		return ""
	}
	token, _ := calls[len(calls)-1].Payload["process_uuid"].(string)
	return token
}

// Signer returns predictable URLs under BaseURL.
type Signer struct {
	BaseURL string
	Err     error
}

var _ storage.SignedURLProvider = Signer{}

func (s Signer) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	base := s.BaseURL
	if base == "" {
		base = "https://cdn.test"
	}
	return fmt.Sprintf("%s/%s?ttl=%s", base, key, ttl), nil
}

// SeqTokens returns a token source yielding prefix1, prefix2, ...
func SeqTokens(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}
