// Package jsonrpc is the JSON-RPC 2.0 transport shared by the Stellar and NEAR watchers. Responses are returned as
// gjson results so callers can pick fields without mirroring every RPC schema in Go types.
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout           = 10 * time.Second
	DefaultRequestsPerSecond = 10

	maxConcurrentConnections = 10
	maxResponseSize          = 32 << 20
)

// Error is an error object returned by the RPC node. Such errors are never retried.
type Error struct {
	Code    int
	Message string
	// Name and Cause are set by NEAR nodes, e.g. HANDLER_ERROR / UNKNOWN_BLOCK.
	Name  string
	Cause string
	Data  string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
	if e.Cause != "" {
		msg += " (" + e.Cause + ")"
	}
	if e.Data != "" {
		msg += ": " + e.Data
	}
	return msg
}

// IsCause reports whether err is an RPC error with the given NEAR cause name.
func IsCause(err error, cause string) bool {
	var rpcErr *Error
	return errors.As(err, &rpcErr) && rpcErr.Cause == cause
}

type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	// MaxRetryTime bounds the retries of one call. Zero selects Timeout, so a call never outlives one request
	// timeout by much and later attempts are left to the next poll.
	MaxRetryTime time.Duration
}

type Client struct {
	url          string
	http         *http.Client
	limiter      *rate.Limiter
	maxRetryTime time.Duration
	id           atomic.Uint64
}

func NewClient(url string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if opts.MaxRetryTime <= 0 {
		opts.MaxRetryTime = opts.Timeout
	}

	// Customize the Transport to have larger connection pool (default is only 2 per host)
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxConnsPerHost = maxConcurrentConnections
	t.MaxIdleConnsPerHost = maxConcurrentConnections

	return &Client{
		url:          url,
		http:         &http.Client{Timeout: opts.Timeout, Transport: t},
		limiter:      rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		maxRetryTime: opts.MaxRetryTime,
	}
}

func (c *Client) URL() string {
	return c.url
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Call invokes method and returns the "result" member of the response. Transport failures, 5xx and 429 responses
// are retried with exponential backoff until ctx is done or the retry budget is spent.
func (c *Client) Call(ctx context.Context, method string, params any) (gjson.Result, error) {
	body, err := c.encode(method, params)
	if err != nil {
		return gjson.Result{}, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = c.maxRetryTime

	var result gjson.Result
	err = backoff.Retry(func() error {
		var err error
		result, err = c.do(ctx, body)
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", method, err)
	}
	return result, nil
}

// CallOnce is Call without retries. It is meant for calls that submit transactions: a failed attempt is left to the
// next relay cycle, which rebuilds the transaction from fresh chain state.
func (c *Client) CallOnce(ctx context.Context, method string, params any) (gjson.Result, error) {
	body, err := c.encode(method, params)
	if err != nil {
		return gjson.Result{}, err
	}
	result, err := c.do(ctx, body)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		return gjson.Result{}, fmt.Errorf("%s: %w", method, err)
	}
	return result, nil
}

func (c *Client) encode(method string, params any) ([]byte, error) {
	body, err := json.Marshal(&request{
		JSONRPC: "2.0",
		ID:      c.id.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, body []byte) (gjson.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return gjson.Result{}, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		// NEAR reports handler errors with status 500 and a JSON-RPC error body. Those are final.
		if rpcErr := parseError(b); rpcErr != nil {
			return gjson.Result{}, backoff.Permanent(rpcErr)
		}
		return gjson.Result{}, fmt.Errorf("http status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return gjson.Result{}, backoff.Permanent(fmt.Errorf("http status %d", resp.StatusCode))
	}

	if !gjson.ValidBytes(b) {
		return gjson.Result{}, backoff.Permanent(errors.New("invalid json in response"))
	}
	if rpcErr := parseError(b); rpcErr != nil {
		return gjson.Result{}, backoff.Permanent(rpcErr)
	}
	result := gjson.GetBytes(b, "result")
	if !result.Exists() {
		return gjson.Result{}, backoff.Permanent(errors.New("response has neither result nor error"))
	}
	return result, nil
}

func parseError(b []byte) *Error {
	if !gjson.ValidBytes(b) {
		return nil
	}
	e := gjson.GetBytes(b, "error")
	if !e.Exists() || e.Type == gjson.Null {
		return nil
	}
	rpcErr := &Error{
		Code:    int(e.Get("code").Int()),
		Message: e.Get("message").String(),
		Name:    e.Get("name").String(),
		Cause:   e.Get("cause.name").String(),
	}
	if data := e.Get("data"); data.Exists() {
		if data.Type == gjson.String {
			rpcErr.Data = data.String()
		} else {
			rpcErr.Data = data.Raw
		}
	}
	return rpcErr
}
