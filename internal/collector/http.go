package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/volaengine/vola/internal/config"
	"github.com/volaengine/vola/internal/model"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.Endpoint, e.StatusCode)
}

// HTTPClient implements AnalyticsClient against the VOLA analytics API.
type HTTPClient struct {
	BaseURL       string
	StockPath     string
	SentimentPath string
	UserAgent     string
	Client        *http.Client
	Limiter       *rate.Limiter
	logger        *zap.Logger
}

// NewHTTPClient creates a client with optional proxy support.
// Both endpoints share one limiter; a burst of 2 lets a query cycle issue
// its two requests together.
func NewHTTPClient(cfg config.APIConfig, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	return &HTTPClient{
		BaseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		StockPath:     cfg.StockPath,
		SentimentPath: cfg.SentimentPath,
		UserAgent:     cfg.UserAgent,
		Client: &http.Client{
			Timeout:   cfg.GetTimeout(),
			Transport: transport,
		},
		Limiter: rate.NewLimiter(limit, 2),
		logger:  logger,
	}
}

func (c *HTTPClient) Name() string { return "http" }

func (c *HTTPClient) FetchStock(ctx context.Context, symbol string) (*model.StockSnapshot, error) {
	var snap model.StockSnapshot
	if err := c.getJSON(ctx, c.endpoint(c.StockPath, symbol), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *HTTPClient) FetchSentiment(ctx context.Context, symbol string) (*model.SentimentSnapshot, error) {
	var snap model.SentimentSnapshot
	if err := c.getJSON(ctx, c.endpoint(c.SentimentPath, symbol), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *HTTPClient) endpoint(path, symbol string) string {
	return c.BaseURL + strings.ReplaceAll(path, config.SymbolPlaceholder, url.PathEscape(symbol))
}

func (c *HTTPClient) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	c.logger.Debug("fetched", zap.String("endpoint", endpoint), zap.Int("bytes", len(body)))
	return nil
}
