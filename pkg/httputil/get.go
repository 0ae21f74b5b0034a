package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/vizlab/pkg/buildinfo"
	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/observability"
)

// MaxBodySize caps downloaded files. World topologies at 50m resolution are
// a few MB.
const MaxBodySize = 64 << 20

// DefaultTimeout applies to each attempt when client is nil.
const DefaultTimeout = 30 * time.Second

// Attempts and InitialDelay configure Get's retry loop.
var (
	Attempts     = 3
	InitialDelay = time.Second
)

var defaultClient = &http.Client{Timeout: DefaultTimeout}

// Get downloads rawURL and returns the body. A nil client uses a shared
// client with DefaultTimeout.
//
// Errors carry ErrCodeNetwork, ErrCodeTimeout or ErrCodeFileNotFound (404).
func Get(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	if err := errors.ValidateURL(rawURL); err != nil {
		return nil, err
	}
	if client == nil {
		client = defaultClient
	}
	u, _ := url.Parse(rawURL)

	var body []byte
	err := Retry(ctx, Attempts, InitialDelay, func() error {
		b, err := getOnce(ctx, client, u)
		body = b
		return err
	})
	if err != nil {
		if re, ok := err.(*RetryableError); ok {
			err = re.Err
		}
		return nil, err
	}
	return body, nil
}

func getOnce(ctx context.Context, client *http.Client, u *url.URL) ([]byte, error) {
	hooks := observability.HTTP()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request for %s", u)
	}
	req.Header.Set("User-Agent", "vizlab/"+buildinfo.Version)

	hooks.OnRequest(ctx, req.Method, u.Host, u.Path)
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, u.Host, u.Path, err)
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "fetch %s", u)
		}
		return nil, Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", u))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, u.Host, u.Path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode, u); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read %s", u))
	}
	if len(body) > MaxBodySize {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s exceeds %d bytes", u, MaxBodySize)
	}
	return body, nil
}

func checkStatus(code int, u *url.URL) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeFileNotFound, "%s: not found", u)
	case code == http.StatusTooManyRequests || code >= 500:
		return Retryable(errors.New(errors.ErrCodeNetwork, "%s: %s", u, statusText(code)))
	}
	return errors.New(errors.ErrCodeNetwork, "%s: %s", u, statusText(code))
}

func statusText(code int) string {
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}
