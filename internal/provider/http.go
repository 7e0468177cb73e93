package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"
)

// maxResponseSize bounds how much of an upstream response body is read.
const maxResponseSize = 16 << 20 // 16 MB

// sharedTransport is the pooled transport every adapter's client reuses.
// Individual adapters differ only in their per-attempt timeout.
var sharedTransport = &http.Transport{
	DialContext: (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
}

// newHTTPClient returns a client with connection pooling and the adapter's
// per-attempt timeout applied.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: sharedTransport,
		Timeout:   effectiveTimeout(timeout),
	}
}

// postJSON marshals payload, POSTs it, and decodes a 2xx response into out.
// Failures come back already classified. The header function, if non-nil,
// sets provider-specific auth headers on the outgoing request.
func postJSON(ctx context.Context, client *http.Client, url string, payload any, out any, header func(*http.Request)) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Error{Kind: ErrBadRequest, Message: "marshalling request: " + err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: ErrBadRequest, Message: "creating request: " + err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if header != nil {
		header(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return classifyTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Kind: ErrEmptyResult, Status: resp.StatusCode, Message: "unparseable response: " + err.Error(), Err: err}
	}
	return nil
}
