// Package topstep is the broker API adapter: authentication, account
// search, trade history and open positions over the JSON POST endpoints.
package topstep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL      = "https://api.topstepx.com"
	DefaultAuthEndpoint = "/api/Auth/loginKey"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRequestRate  = 5 // requests per second

	// Tokens are valid for an hour; relogin inside the refresh margin.
	tokenLifetime        = time.Hour
	DefaultRefreshMargin = 5 * time.Minute
)

// APIError is a non-success response from the broker API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error: %s", e.Message)
}

// Config holds client settings and credentials.
type Config struct {
	BaseURL       string
	AuthEndpoint  string
	Timeout       time.Duration
	MaxRetries    int
	RequestRate   float64 // requests per second across all endpoints
	RefreshMargin time.Duration
	Username      string
	APIKey        string
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.AuthEndpoint == "" {
		c.AuthEndpoint = DefaultAuthEndpoint
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RequestRate <= 0 {
		c.RequestRate = DefaultRequestRate
	}
	if c.RefreshMargin <= 0 {
		c.RefreshMargin = DefaultRefreshMargin
	}
}

// Client is an authenticated, rate-limited broker API client. Safe for
// concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient builds a Client; zero config fields get defaults.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestRate), 1),
		log:     log,
	}
}

type loginRequest struct {
	UserName string `json:"userName"`
	APIKey   string `json:"apiKey"`
}

type loginResponse struct {
	Success      bool   `json:"success"`
	Token        string `json:"token"`
	ErrorMessage string `json:"errorMessage"`
}

// Login authenticates with the API key and stores the bearer token.
func (c *Client) Login(ctx context.Context) error {
	if c.cfg.Username == "" || c.cfg.APIKey == "" {
		return &APIError{Message: "missing API credentials"}
	}

	c.log.Info().Str("username", c.cfg.Username).Msg("authenticating")

	var resp loginResponse
	if err := c.post(ctx, c.cfg.AuthEndpoint, loginRequest{
		UserName: c.cfg.Username,
		APIKey:   c.cfg.APIKey,
	}, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if !resp.Success || resp.Token == "" {
		msg := resp.ErrorMessage
		if msg == "" {
			msg = "login rejected"
		}
		return &APIError{Message: msg}
	}

	c.mu.Lock()
	c.token = resp.Token
	c.tokenExpiry = time.Now().Add(tokenLifetime)
	c.mu.Unlock()

	c.log.Info().Dur("lifetime", tokenLifetime).Msg("authentication successful")
	return nil
}

// EnsureAuthenticated logs in if there is no token or the current one is
// inside the refresh margin.
func (c *Client) EnsureAuthenticated(ctx context.Context) error {
	c.mu.Lock()
	valid := c.token != "" && time.Now().Before(c.tokenExpiry.Add(-c.cfg.RefreshMargin))
	c.mu.Unlock()
	if valid {
		return nil
	}
	return c.Login(ctx)
}

func (c *Client) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// post sends a JSON POST with retries and exponential backoff. 401 is not
// retried; the caller re-authenticates.
func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	url := c.cfg.BaseURL + endpoint

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			c.log.Warn().Str("url", url).Int("attempt", attempt+1).Err(lastErr).
				Dur("backoff", backoff).Msg("request failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		lastErr = c.doOnce(ctx, url, payload, out)
		if lastErr == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(lastErr, &apiErr) && apiErr.StatusCode != 0 {
			// The server answered; retrying the same request will not help.
			return lastErr
		}
	}
	return fmt.Errorf("request failed after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

func (c *Client) doOnce(ctx context.Context, url string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: string(data)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
