package supplier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/angelmondragon/distribridge/pkg/config"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
	"github.com/angelmondragon/distribridge/pkg/logger"
	"github.com/angelmondragon/distribridge/pkg/resilience"
)

const maxResponseBytes = 8 << 20

// errNotFound marks a 404 from the supplier.
var errNotFound = errors.New("supplier resource not found")

// ClientParams configure the supplier gateway.
type ClientParams struct {
	Config     config.SupplierConfig
	HTTPClient *http.Client
	Logger     *logger.Logger
}

// Client speaks the supplier's XML-over-HTTP API. All calls are rate limited
// and run through a circuit breaker.
type Client struct {
	baseURL   *url.URL
	accountID string
	apiKey    string
	language  string
	charset   string
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *resilience.Breaker
	logg      *logger.Logger
}

// NewClient validates the configuration and builds a Client.
func NewClient(params ClientParams) (*Client, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg := params.Config
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("supplier base url required")
	}
	if cfg.AccountID == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("supplier credentials required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse supplier base url: %w", err)
	}
	httpClient := params.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL:   base,
		accountID: cfg.AccountID,
		apiKey:    cfg.APIKey,
		language:  cfg.Language,
		charset:   cfg.Charset,
		http:      httpClient,
		limiter:   rate.NewLimiter(limit, burst),
		breaker: resilience.NewBreaker(resilience.BreakerConfig{
			Name:             "supplier",
			FailureThreshold: cfg.BreakerFailures,
			Timeout:          cfg.BreakerTimeout,
		}, params.Logger),
		logg: params.Logger,
	}, nil
}

// endpoint builds an API URL from a path relative to the base URL. Path
// segments must already be escaped.
func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.baseURL.String(), "/") + "/" + strings.TrimLeft(path, "/")
}

// reference resolves a URL handed out by the supplier (dispatch documents).
// Only the supplier host is allowed so credentials never leave it.
func (c *Client) reference(ref string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", ref, err)
	}
	resolved := c.baseURL.ResolveReference(parsed)
	if !strings.EqualFold(resolved.Host, c.baseURL.Host) {
		return "", fmt.Errorf("refusing foreign host %q", resolved.Host)
	}
	return resolved.String(), nil
}

// do performs one request and returns the response body. 4xx responses are
// permanent errors and never trip the breaker.
func (c *Client) do(ctx context.Context, method, target string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	return c.breaker.Execute(func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, resilience.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.SetBasicAuth(c.accountID, c.apiKey)
		req.Header.Set("Accept", "application/xml")
		if c.language != "" {
			req.Header.Set("Accept-Language", c.language)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/xml; charset=utf-8")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, resilience.Permanent(errNotFound)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return payload, resilience.Permanent(&HTTPError{Status: resp.StatusCode, Message: errorMessage(payload, c.charset)})
		case resp.StatusCode >= 500:
			return nil, &HTTPError{Status: resp.StatusCode, Message: errorMessage(payload, c.charset)}
		}
		return payload, nil
	})
}

// HTTPError is a non-2xx supplier response.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("supplier returned %d", e.Status)
	}
	return fmt.Sprintf("supplier returned %d: %s", e.Status, e.Message)
}

// errorMessage pulls a human readable message out of an error body, which
// may or may not be XML.
func errorMessage(payload []byte, charset string) string {
	if len(bytes.TrimSpace(payload)) == 0 {
		return ""
	}
	if root, err := parseXML(payload, charset); err == nil {
		if msg := root.str("message", "errorMessage", "error", "description", "MESSAGE"); msg != "" {
			return msg
		}
		if msg := root.value(); msg != "" {
			return truncate(msg, 500)
		}
	}
	return truncate(strings.TrimSpace(string(payload)), 500)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func dependencyError(err error, action string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
