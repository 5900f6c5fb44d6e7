package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kbukum/vidpipe/resilience"
)

// Client sends requests built from Request values.
type Client struct {
	http   *http.Client
	config Config
	cb     *resilience.CircuitBreaker
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		http:   &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone(), Timeout: cfg.Timeout},
		config: cfg,
	}
	if cfg.CircuitBreaker != nil {
		cbCfg := *cfg.CircuitBreaker
		if cbCfg.IsFailure == nil {
			cbCfg.IsFailure = IsServerSide
		}
		c.cb = resilience.NewCircuitBreaker(cbCfg)
	}
	return c, nil
}

// Do sends req. A non-2xx status returns both the response and an *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.cb == nil {
		return c.send(ctx, req)
	}
	var resp *Response
	err := c.cb.Execute(func() error {
		var err error
		resp, err = c.send(ctx, req)
		return err
	})
	return resp, err
}

// Breaker returns the circuit breaker, or nil.
func (c *Client) Breaker() *resilience.CircuitBreaker { return c.cb }

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, transportError(ErrCodeTimeout, err)
		}
		return nil, transportError(ErrCodeConnection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ErrCodeConnection, fmt.Errorf("read response body: %w", err))
	}
	out := &Response{StatusCode: resp.StatusCode, Headers: flatten(resp.Header), Body: body}
	if e := ClassifyStatusCode(resp.StatusCode, body); e != nil {
		return out, e
	}
	return out, nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	url := req.Path
	if c.config.BaseURL != "" && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(url, "/")
	}

	body, contentType, err := encode(req.Body)
	if err != nil {
		return nil, &Error{Code: ErrCodeValidation, Message: fmt.Sprintf("encode body: %v", err), Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, &Error{Code: ErrCodeValidation, Message: err.Error(), Err: err}
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}
	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil && contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.config.BearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.BearerToken)
	}
	return httpReq, nil
}

func encode(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

func flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
