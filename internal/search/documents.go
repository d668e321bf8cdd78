package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rx3lixir/ci-analytics/pkg/metrics"
)

// Hit is one search result with its document id.
type Hit struct {
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
}

// Result is a decoded search response.
type Result struct {
	Total int64
	Hits  []Hit
}

// Get fetches a document by id. The result is tri-state: (doc, true, nil) on
// a hit, (nil, false, nil) when the document does not exist, and a non-nil
// error when the store itself failed, so callers can tell "absent" from
// "unreachable".
func (c *Client) Get(ctx context.Context, index, id string) (json.RawMessage, bool, error) {
	start := time.Now()
	res, err := c.client.Get(
		index,
		id,
		c.client.Get.WithContext(ctx),
	)
	if err != nil {
		metrics.RecordStoreOperation("get", index, "error", time.Since(start))
		return nil, false, fmt.Errorf("failed to get document %s from %s: %w", id, index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		metrics.RecordStoreOperation("get", index, "miss", time.Since(start))
		return nil, false, nil
	}
	if res.IsError() {
		metrics.RecordStoreOperation("get", index, "error", time.Since(start))
		return nil, false, fmt.Errorf("failed to get document %s from %s: %s", id, index, res.Status())
	}

	var body struct {
		Source json.RawMessage `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("failed to decode document %s from %s: %w", id, index, err)
	}

	metrics.RecordStoreOperation("get", index, "hit", time.Since(start))
	return body.Source, true, nil
}

// Push creates a document, create-only semantics: a conflict means another
// pass already wrote this id and is logged as a no-op.
func (c *Client) Push(ctx context.Context, index, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", id, err)
	}

	start := time.Now()
	res, err := c.client.Create(
		index,
		id,
		bytes.NewReader(body),
		c.client.Create.WithContext(ctx),
	)
	if err != nil {
		metrics.RecordStoreOperation("push", index, "error", time.Since(start))
		return fmt.Errorf("failed to push document %s to %s: %w", id, index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 409 {
		metrics.RecordStoreOperation("push", index, "conflict", time.Since(start))
		c.logger.Debug("document already exists, push skipped",
			"index", index,
			"doc_id", id,
		)
		return nil
	}
	if res.IsError() {
		metrics.RecordStoreOperation("push", index, "error", time.Since(start))
		return fmt.Errorf("failed to push document %s to %s: %s", id, index, res.Status())
	}

	metrics.RecordStoreOperation("push", index, "success", time.Since(start))
	return nil
}

// Update merges the given fields into an existing document.
func (c *Client) Update(ctx context.Context, index, id string, partial any) error {
	body, err := json.Marshal(map[string]any{"doc": partial})
	if err != nil {
		return fmt.Errorf("failed to marshal update for %s: %w", id, err)
	}

	start := time.Now()
	res, err := c.client.Update(
		index,
		id,
		bytes.NewReader(body),
		c.client.Update.WithContext(ctx),
	)
	if err != nil {
		metrics.RecordStoreOperation("update", index, "error", time.Since(start))
		return fmt.Errorf("failed to update document %s in %s: %w", id, index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		metrics.RecordStoreOperation("update", index, "error", time.Since(start))
		return fmt.Errorf("failed to update document %s in %s: %s", id, index, res.Status())
	}

	metrics.RecordStoreOperation("update", index, "success", time.Since(start))
	return nil
}

// Search runs a query-string search. An empty hit list is a normal outcome.
func (c *Client) Search(ctx context.Context, index, query string) (*Result, error) {
	res, err := c.client.Search(
		c.client.Search.WithContext(ctx),
		c.client.Search.WithIndex(index),
		c.client.Search.WithQuery(query),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search on %s failed: %s", index, res.Status())
	}

	return decodeSearchResult(res.Body)
}

// SearchBody runs a structured query against the index.
func (c *Client) SearchBody(ctx context.Context, index string, query any) (*Result, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := c.client.Search(
		c.client.Search.WithContext(ctx),
		c.client.Search.WithIndex(index),
		c.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search on %s failed: %s", index, res.Status())
	}

	return decodeSearchResult(res.Body)
}

func decodeSearchResult(body io.Reader) (*Result, error) {
	var response struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []Hit `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return &Result{
		Total: response.Hits.Total.Value,
		Hits:  response.Hits.Hits,
	}, nil
}
