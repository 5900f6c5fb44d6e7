// Package httpinvoke submits invocations as HTTP POSTs to
// <base_url>/<function>. Only 202 Accepted counts as a submission.
package httpinvoke

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kbukum/vidpipe/compute"
	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/httpclient"
)

// Invoker posts payloads through an httpclient.Client.
type Invoker struct {
	client *httpclient.Client
}

var _ compute.Invoker = (*Invoker)(nil)

// New builds an invoker from compute config.
func New(cfg compute.Config) (*Invoker, error) {
	hc := httpclient.Config{
		BaseURL:        cfg.BaseURL,
		Timeout:        cfg.TimeoutDuration(),
		BearerToken:    cfg.BearerToken,
		Headers:        map[string]string{"X-Invocation-Type": "Event"},
		CircuitBreaker: cfg.Breaker(),
	}
	client, err := httpclient.New(hc)
	if err != nil {
		return nil, fmt.Errorf("compute http client: %w", err)
	}
	return &Invoker{client: client}, nil
}

func (i *Invoker) Submit(ctx context.Context, inv compute.Invocation) error {
	resp, err := i.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   url.PathEscape(inv.Function),
		Body:   inv.Payload,
	})
	if err != nil {
		return errors.SubmissionFailed(inv.Function, err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return errors.SubmissionFailed(inv.Function, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return nil
}
