// Package httpclient is a small JSON-over-HTTP client with default
// headers, bearer authentication, status classification and an optional
// circuit breaker.
//
//	c, _ := httpclient.New(httpclient.Config{BaseURL: "https://compute.internal"})
//	resp, err := c.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/invoke/merge", Body: payload})
package httpclient
