// Package uac fetches per-zone advisory payloads from the Utah Avalanche
// Center JSON endpoints.
package uac

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/slopesignal/slope-signal/internal/domain"
)

const userAgent = "SlopeSignal/0.1 contact@slopesignal.dev"

// Client fetches advisory payloads over HTTP with a fixed timeout.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a provider client.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchAdvisory retrieves the current advisory from a zone's forecast URL.
// A payload with an empty advisory list returns (nil, nil): "no current
// advisory" is a valid state, not a failure.
func (c *Client) FetchAdvisory(ctx context.Context, url string) (*domain.Advisory, error) {
	c.logger.Debug("fetching advisory", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch advisory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("provider error: status %d: %s", resp.StatusCode, body)
	}

	var p payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode advisory payload: %w", err)
	}

	if len(p.Advisories) == 0 {
		return nil, nil
	}
	return &p.Advisories[0].Advisory, nil
}

// Provider payload envelope.

type payload struct {
	Advisories []advisoryWrapper `json:"advisories"`
}

type advisoryWrapper struct {
	Advisory domain.Advisory `json:"advisory"`
}
