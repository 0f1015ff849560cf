package rainforest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dariomedina/shelfrival-backend/pkg/config"
	pkgerrors "github.com/dariomedina/shelfrival-backend/pkg/errors"
	"github.com/dariomedina/shelfrival-backend/pkg/logger"
)

const (
	defaultBaseURL           = "https://api.rainforestapi.com/request"
	defaultVideoCount        = 20
	errorBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("rainforest api key is required")

// Client wraps the Rainforest product data API. All calls are keyed by
// api_key and request type via query parameters.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	videoCount int
	logger     *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured request base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Rainforest client from configuration.
func NewClient(cfg config.RainforestConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	videoCount := cfg.VideoCount
	if videoCount <= 0 {
		videoCount = defaultVideoCount
	}

	client := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		videoCount: videoCount,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logg,
	}
	if trimmed := strings.TrimSpace(cfg.BaseURL); trimmed != "" {
		client.baseURL = trimmed
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// GetProduct fetches the full product payload for one ASIN, including videos.
func (c *Client) GetProduct(ctx context.Context, asin, amazonDomain string) (*RawProduct, error) {
	asin = strings.TrimSpace(asin)
	if asin == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asin is required")
	}

	params := url.Values{}
	params.Set("type", "product")
	params.Set("asin", asin)
	params.Set("amazon_domain", amazonDomain)
	params.Set("videos", "true")
	params.Set("video_count", strconv.Itoa(c.videoCount))

	var payload productResponse
	if err := c.do(ctx, "product", params, &payload); err != nil {
		return nil, err
	}

	if payload.Product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no product found for ASIN %s", asin)).
			WithDetails(map[string]any{"asin": asin, "amazon_domain": amazonDomain})
	}

	return payload.Product, nil
}

// Search runs a keyword search and returns lightweight product summaries.
func (c *Client) Search(ctx context.Context, term, amazonDomain string) ([]SearchResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search term is required")
	}

	params := url.Values{}
	params.Set("type", "search")
	params.Set("search_term", term)
	params.Set("amazon_domain", amazonDomain)

	var payload searchResponse
	if err := c.do(ctx, "search", params, &payload); err != nil {
		return nil, err
	}

	return payload.SearchResults, nil
}

func (c *Client) do(ctx context.Context, op string, params url.Values, dest any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "rainforest client not configured")
	}

	params.Set("api_key", c.apiKey)
	reqURL := c.baseURL + "?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("build %s request", op))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log(ctx, op, 0, time.Since(start), err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("execute %s request", op))
	}
	defer func() { _ = resp.Body.Close() }()

	c.log(ctx, op, resp.StatusCode, time.Since(start), nil)

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		return pkgerrors.Wrap(codeForStatus(resp.StatusCode), cause, fmt.Sprintf("%s request failed", op))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s response", op))
	}
	return nil
}

func (c *Client) log(ctx context.Context, op string, status int, elapsed time.Duration, err error) {
	if c.logger == nil {
		return
	}
	ctx = c.logger.WithFields(ctx, map[string]any{
		"operation":   op,
		"status":      status,
		"duration_ms": elapsed.Milliseconds(),
	})
	if err != nil {
		c.logger.Error(ctx, "rainforest request failed", err)
		return
	}
	c.logger.Debug(ctx, "rainforest request")
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}
