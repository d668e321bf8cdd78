// Package artifacts fetches job file contents from the control plane API.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rx3lixir/ci-analytics/internal/config"
	"github.com/rx3lixir/ci-analytics/pkg/logger"
)

const defaultTimeout = 30 * time.Second

// Client talks to the control plane files API.
type Client struct {
	baseURL  string
	clientID string
	secret   string
	http     *http.Client
	logger   logger.Logger
}

// New creates an artifacts client from the API configuration.
func New(cfg *config.APIConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:  cfg.URL,
		clientID: cfg.ClientID,
		secret:   cfg.Secret,
		http:     &http.Client{Timeout: defaultTimeout},
		logger:   log,
	}
}

// FileContent downloads the raw content of one stored file.
func (c *Client) FileContent(ctx context.Context, fileID string) ([]byte, error) {
	url := fmt.Sprintf("%s/api/v2/files/%s/content", c.baseURL, fileID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build file content request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.secret)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch file %s: %w", fileID, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch file %s: status %d", fileID, res.StatusCode)
	}

	content, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s content: %w", fileID, err)
	}

	c.logger.Debug("fetched file content", "file_id", fileID, "size", len(content))
	return content, nil
}
