package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"forward-visa/internal/forward"
)

const maxErrBody = 4 << 10

type Options struct {
	URL       string
	SecretKey string
	Timeout   time.Duration // per attempt; 30s when zero
	Retries   int           // extra attempts after a transport error

	RetryInterval time.Duration // initial backoff; 500ms when zero
	HTTPClient    *http.Client
	Resolver      TemplateResolver
	Log           *zap.Logger
}

type Client struct {
	httpClient *http.Client
	url        string
	secretKey  string
	timeout    time.Duration
	retries    int
	interval   time.Duration
	resolver   TemplateResolver
	log        *zap.Logger
}

// Response is a 2xx answer from the Forward API.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	Attempts   int
}

func New(o Options) *Client {
	hc := o.HTTPClient
	if hc == nil {
		tr := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			ForceAttemptHTTP2:   true,
		}
		hc = &http.Client{Transport: tr}
	}
	c := &Client{
		httpClient: hc,
		url:        o.URL,
		secretKey:  o.SecretKey,
		timeout:    o.Timeout,
		retries:    o.Retries,
		interval:   o.RetryInterval,
		resolver:   o.Resolver,
		log:        o.Log,
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if c.retries < 0 {
		c.retries = 0
	}
	if c.interval <= 0 {
		c.interval = 500 * time.Millisecond
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.resolver == nil {
		c.resolver = Delegated{Log: c.log}
	}
	return c
}

// Send resolves the envelope and POSTs it. Only transport errors are
// retried; a non-2xx answer is returned as *forward.HTTPStatusError.
func (c *Client) Send(ctx context.Context, req *forward.Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	resolved, err := c.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("resolve templates: %w", err)
	}
	payload, err := forward.Marshal(resolved)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	start := time.Now()
	var (
		resp     *Response
		attempts int
	)
	op := func() error {
		attempts++
		r, err := c.do(ctx, payload)
		if err != nil {
			var te *forward.TransportError
			if errors.As(err, &te) && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}
		resp = r
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.interval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.retries)), ctx)

	notify := func(err error, wait time.Duration) {
		c.log.Warn("forward request failed, retrying",
			zap.Int("attempt", attempts), zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		// cancelled while waiting between attempts
		var te *forward.TransportError
		if ctx.Err() != nil && !errors.As(err, &te) {
			return nil, &forward.TransportError{Op: "retry", URL: c.url, Err: err}
		}
		return nil, err
	}
	resp.Duration = time.Since(start)
	resp.Attempts = attempts
	return resp, nil
}

func (c *Client) do(ctx context.Context, payload []byte) (*Response, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(cctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.log.Debug("posting envelope", zap.String("url", c.url), zap.Int("bytes", len(payload)))
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &forward.TransportError{Op: "do", URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &forward.TransportError{Op: "read", URL: c.url, Err: err}
	}
	if resp.StatusCode/100 != 2 {
		return nil, &forward.HTTPStatusError{StatusCode: resp.StatusCode, Body: limitBody(data, maxErrBody)}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func limitBody(b []byte, max int) string {
	b = bytes.TrimSpace(b)
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...[truncated]"
}
