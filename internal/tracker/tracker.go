// Package tracker is a thin client for the experiment-tracking service.
// It exists so bootstrap can verify the stored credential before a run
// burns GPU time on an auth failure.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/shakespeare-labs/sgpt/internal/platform/env"
	"github.com/shakespeare-labs/sgpt/internal/secrets"
)

var ErrUnauthorized = errors.New("tracker_unauthorized")

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func ConfigFromEnv() (Config, error) {
	timeout, err := env.Duration("SGPT_TRACKER_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		BaseURL: env.String("SGPT_TRACKER_URL", "https://api.wandb.ai"),
		Timeout: timeout,
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return Config{}, errors.New("tracker base URL is required")
	}
	return cfg, nil
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client whose requests carry the credential as a bearer
// token. The secret value lives only inside the oauth2 token source.
func New(cfg Config, key secrets.Secret) (*Client, error) {
	if key.IsZero() {
		return nil, errors.New("tracker credential is required")
	}
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: key.Reveal()})
	httpClient := oauth2.NewClient(context.Background(), source)
	httpClient.Timeout = cfg.Timeout
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
	}, nil
}

// Verify checks the credential against the tracker's identity endpoint.
func (c *Client) Verify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/viewer", nil)
	if err != nil {
		return fmt.Errorf("build tracker request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reach tracker: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 400:
		return fmt.Errorf("tracker returned %s", resp.Status)
	}
	return nil
}
