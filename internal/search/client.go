// Package search is the OpenSearch adapter: document get/push/update/search
// primitives plus index lifecycle operations (create with mapping, sync
// watermark metadata, alias resolution and publication).
package search

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/opensearch-project/opensearch-go"

	"github.com/rx3lixir/ci-analytics/internal/config"
	"github.com/rx3lixir/ci-analytics/pkg/logger"
)

// retryOnStatus lists the statuses worth retrying at the transport level.
var retryOnStatus = []int{502, 503, 504, 429}

type Client struct {
	client *opensearch.Client
	logger logger.Logger
}

// New creates a search client from the service config.
func New(cfg *config.SearchConfig, log logger.Logger) (*Client, error) {
	osConfig := opensearch.Config{
		Addresses:     []string{cfg.URL},
		Transport:     newTransport(cfg),
		RetryOnStatus: retryOnStatus,
		MaxRetries:    cfg.MaxRetries,
	}

	osClient, err := opensearch.NewClient(osConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	return &Client{
		client: osClient,
		logger: log,
	}, nil
}

// newTransport builds the HTTP transport for the cluster. The configured
// timeout bounds how long a request may wait on response headers, so a hung
// store call fails instead of stalling a sync run forever.
func newTransport(cfg *config.SearchConfig) *http.Transport {
	return &http.Transport{
		MaxIdleConnsPerHost:   cfg.MaxIdleConns,
		ResponseHeaderTimeout: cfg.Timeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}
}

// Ping checks that the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.client.Ping(
		c.client.Ping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch ping failed with status: %s", res.Status())
	}

	return nil
}
