package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/distribridge/pkg/config"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
	"github.com/angelmondragon/distribridge/pkg/logger"
	"github.com/angelmondragon/distribridge/pkg/resilience"
)

// Session authenticates admin API calls for one shop.
type Session struct {
	Shop        string
	AccessToken string
}

// ClientParams configure the storefront gateway.
type ClientParams struct {
	Config     config.StorefrontConfig
	HTTPClient *http.Client
	Logger     *logger.Logger
	// BaseURL replaces https://{shop} when set (tests, proxies).
	BaseURL string
}

// Client executes GraphQL admin API calls. Each shop gets its own circuit
// breaker so one unhealthy shop does not stall the others.
type Client struct {
	apiVersion      string
	baseURL         string
	http            *http.Client
	logg            *logger.Logger
	breakerFailures uint32
	breakerTimeout  time.Duration

	mu       sync.Mutex
	breakers map[string]*resilience.Breaker
}

// NewClient validates params and builds a Client.
func NewClient(params ClientParams) (*Client, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Config.APIVersion == "" {
		return nil, fmt.Errorf("storefront api version required")
	}
	httpClient := params.HTTPClient
	if httpClient == nil {
		timeout := params.Config.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		apiVersion:      params.Config.APIVersion,
		baseURL:         strings.TrimRight(params.BaseURL, "/"),
		http:            httpClient,
		logg:            params.Logger,
		breakerFailures: params.Config.BreakerFailures,
		breakerTimeout:  params.Config.BreakerTimeout,
		breakers:        map[string]*resilience.Breaker{},
	}, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// UserError is a mutation-level validation error returned alongside data.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// UserErrors is returned when a mutation answers with userErrors.
type UserErrors []UserError

func (e UserErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ue := range e {
		if len(ue.Field) > 0 {
			msgs = append(msgs, strings.Join(ue.Field, ".")+": "+ue.Message)
			continue
		}
		msgs = append(msgs, ue.Message)
	}
	return "user errors: " + strings.Join(msgs, "; ")
}

func (e UserErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// NormalizeShop strips scheme and trailing slashes from a shop domain.
func NormalizeShop(shop string) string {
	shop = strings.TrimSpace(strings.ToLower(shop))
	shop = strings.TrimPrefix(shop, "https://")
	shop = strings.TrimPrefix(shop, "http://")
	return strings.TrimSuffix(shop, "/")
}

func (c *Client) endpoint(shop string) string {
	base := c.baseURL
	if base == "" {
		base = "https://" + NormalizeShop(shop)
	}
	return fmt.Sprintf("%s/admin/api/%s/graphql.json", base, c.apiVersion)
}

func (c *Client) breaker(shop string) *resilience.Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := NormalizeShop(shop)
	b, ok := c.breakers[key]
	if !ok {
		b = resilience.NewBreaker(resilience.BreakerConfig{
			Name:             "storefront:" + key,
			FailureThreshold: c.breakerFailures,
			Timeout:          c.breakerTimeout,
		}, c.logg)
		c.breakers[key] = b
	}
	return b
}

// Execute runs a query or mutation and decodes data into out.
func (c *Client) Execute(ctx context.Context, sess Session, query string, variables map[string]any, out any) error {
	if sess.Shop == "" || sess.AccessToken == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "storefront session required")
	}
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	body, err := c.breaker(sess.Shop).Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(sess.Shop), bytes.NewReader(payload))
		if err != nil {
			return nil, resilience.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Shopify-Access-Token", sess.AccessToken)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			statusErr := fmt.Errorf("storefront api status %d: %s", resp.StatusCode, snippet(raw))
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return nil, resilience.Permanent(statusErr)
			}
			return nil, statusErr
		}
		return raw, nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storefront request")
	}

	var gql graphQLResponse
	if err := json.Unmarshal(body, &gql); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode storefront response")
	}
	if len(gql.Errors) > 0 {
		msgs := make([]string, len(gql.Errors))
		for i, e := range gql.Errors {
			msgs[i] = e.Message
		}
		return pkgerrors.New(pkgerrors.CodeDependency, "graphql errors: "+strings.Join(msgs, "; "))
	}
	if out == nil || len(gql.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gql.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode storefront data")
	}
	return nil
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 300 {
		return s[:300]
	}
	return s
}
