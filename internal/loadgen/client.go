package loadgen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/mingle/internal/auth"
)

// client calls the service as a given user.
type client struct {
	http    *http.Client
	baseURL string
	tokens  *auth.Manager
}

func newClient(cfg *Config) (*client, error) {
	var opts []auth.Option
	if cfg.JWTIssuer != "" {
		opts = append(opts, auth.WithIssuer(cfg.JWTIssuer))
	}
	tokens, err := auth.NewManager(cfg.JWTSecret, opts...)
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}
	return &client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		tokens:  tokens,
	}, nil
}

// do sends body as JSON and decodes a 2xx response into out. It returns the
// status code and how long the round trip took.
func (c *client) do(ctx context.Context, method, path, userID string, body, out any) (int, time.Duration, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		token, err := c.tokens.Issue(userID)
		if err != nil {
			return 0, 0, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, time.Since(start), err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		return resp.StatusCode, elapsed, err
	}
	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, elapsed, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, elapsed, nil
}
