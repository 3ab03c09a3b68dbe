package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

// DefaultTimeout bounds a single upstream request when Client.PerRequestTimeout is zero.
const DefaultTimeout = 20 * time.Second

// DefaultMaxBodyBytes caps how much of an upstream body is read.
const DefaultMaxBodyBytes int64 = 8 << 20

// ErrUpstream covers every way an upstream call can fail: transport errors,
// timeouts, redirects that are not followed, and any status other than 200.
var ErrUpstream = errors.New("upstream error")

// Page is a successfully fetched upstream document.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	// Body is the response decoded to UTF-8 using the declared or sniffed charset.
	Body string
}

// Client issues single-attempt GET requests with a bounded timeout.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// PerRequestTimeout bounds each request. Zero means DefaultTimeout.
	PerRequestTimeout time.Duration
	// RedirectMaxHops enables following redirects. Zero means redirects are
	// not followed and a 3xx response is reported as ErrUpstream.
	RedirectMaxHops int
	// Admit, when set, is consulted for every redirect target.
	Admit func(rawURL string) error
	// MaxBodyBytes caps the body size. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirectFunc()}
}

// Get fetches url once. Any failure wraps ErrUpstream.
func (c *Client) Get(ctx context.Context, url string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("%w: new request: %v", ErrUpstream, err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	timeout := c.PerRequestTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	defer cancel()
	req = req.WithContext(ctx)

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return Page{}, fmt.Errorf("%w: unexpected status: %d", ErrUpstream, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := c.readBody(resp.Body, contentType)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	final := url
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return Page{URL: final, StatusCode: resp.StatusCode, ContentType: contentType, Body: body}, nil
}

func (c *Client) readBody(r io.Reader, contentType string) (string, error) {
	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > limit {
		return "", fmt.Errorf("body exceeds %d bytes", limit)
	}
	decoded, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		// Unknown charset label: fall back to the raw bytes.
		return string(raw), nil
	}
	b, err := io.ReadAll(decoded)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	return string(b), nil
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	return func(req *http.Request, via []*http.Request) error {
		if max <= 0 {
			return http.ErrUseLastResponse
		}
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if c.Admit != nil {
			if err := c.Admit(req.URL.String()); err != nil {
				return fmt.Errorf("redirect to %s: %w", req.URL.Redacted(), err)
			}
		}
		return nil
	}
}
