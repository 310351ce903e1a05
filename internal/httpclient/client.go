package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// RequestBuilder creates requests against one target with an optional fixed
// header set.
type RequestBuilder struct {
	target  *url.URL
	headers http.Header
}

// NewRequestBuilder parses target and remembers headers for requests that
// ask for them.
func NewRequestBuilder(target string, headers http.Header) (*RequestBuilder, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("target URL is required")
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse target: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("target %q must be absolute", target)
	}

	clean := http.Header{}
	for key, values := range headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		for _, value := range values {
			if strings.ContainsAny(value, "\r\n") {
				return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
			}
			clean.Add(canonicalKey, value)
		}
	}

	parsed.Path = strings.TrimRight(parsed.Path, "/")
	return &RequestBuilder{target: parsed, headers: clean}, nil
}

// URL joins path onto the target. The path is appended verbatim so trailing
// slashes and empty segments survive.
func (b *RequestBuilder) URL(path string) string {
	if path == "" {
		return b.target.String()
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return b.target.String() + path
}

// Build creates a request for path. A nil body sends nothing; withHeaders
// attaches the fixed header set.
func (b *RequestBuilder) Build(ctx context.Context, method, path string, body BodySource, withHeaders bool) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	if body == nil {
		body = emptyBodySource{}
	}

	reader, err := body.NewReader()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, b.URL(path), reader)
	if err != nil {
		_ = reader.Close()
		return nil, err
	}

	if withHeaders {
		req.Header = b.headers.Clone()
	}
	if ct := body.ContentType(); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	if length, ok := body.ContentLength(); ok {
		req.ContentLength = length
	}
	if req.ContentLength > 0 {
		req.GetBody = body.NewReader
	}

	return req, nil
}

// NewClient creates the shared client whose transport every session reuses.
func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   64,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// NewSessionClient returns a client sharing base's transport and timeout but
// holding its own empty cookie jar, so each session logs in independently.
func NewSessionClient(base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	// cookiejar.New only fails on a broken PublicSuffixList, and nil has none.
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Transport:     base.Transport,
		Timeout:       base.Timeout,
		CheckRedirect: base.CheckRedirect,
		Jar:           jar,
	}
}

// SessionFactory returns a constructor of per-session clients over base.
func SessionFactory(base *http.Client) func() *http.Client {
	return func() *http.Client {
		return NewSessionClient(base)
	}
}
