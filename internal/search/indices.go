package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/opensearchapi"
)

// InitIndex creates the index with the given body if it does not exist yet.
// Idempotent: an existing index is left untouched.
func (c *Client) InitIndex(ctx context.Context, index string, body map[string]any) error {
	_, err := c.EnsureIndex(ctx, index, body)
	return err
}

// EnsureIndex creates the index with the given body if absent and reports
// whether this call created it, so the caller can seed the sync watermark
// exactly once.
func (c *Client) EnsureIndex(ctx context.Context, index string, body map[string]any) (bool, error) {
	exists, err := c.indexExists(ctx, index)
	if err != nil {
		return false, fmt.Errorf("failed to check index existence: %w", err)
	}
	if exists {
		return false, nil
	}

	createOpts := []func(*opensearchapi.IndicesCreateRequest){
		c.client.Indices.Create.WithContext(ctx),
	}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("failed to marshal index body: %w", err)
		}
		createOpts = append(createOpts, c.client.Indices.Create.WithBody(bytes.NewReader(raw)))
	}

	res, err := c.client.Indices.Create(index, createOpts...)
	if err != nil {
		return false, fmt.Errorf("failed to create index %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return false, fmt.Errorf("failed to create index %s: %s", index, res.Status())
	}

	c.logger.Info("index created", "index", index)
	return true, nil
}

func (c *Client) indexExists(ctx context.Context, index string) (bool, error) {
	res, err := c.client.Indices.Exists(
		[]string{index},
		c.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	return res.StatusCode == 200, nil
}

// UpdateWatermark merges the given sync dates into the index _meta mapping.
// Empty fields are left untouched.
func (c *Client) UpdateWatermark(ctx context.Context, index, firstSyncDate, lastSyncDate string) error {
	meta := map[string]any{}
	if firstSyncDate != "" {
		meta["first_sync_date"] = firstSyncDate
	}
	if lastSyncDate != "" {
		meta["last_sync_date"] = lastSyncDate
	}
	if len(meta) == 0 {
		return nil
	}

	body, err := json.Marshal(map[string]any{"_meta": meta})
	if err != nil {
		return fmt.Errorf("failed to marshal watermark: %w", err)
	}

	res, err := c.client.Indices.PutMapping(
		bytes.NewReader(body),
		c.client.Indices.PutMapping.WithIndex(index),
		c.client.Indices.PutMapping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to update watermark on %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to update watermark on %s: %s", index, res.Status())
	}

	c.logger.Debug("watermark updated",
		"index", index,
		"first_sync_date", firstSyncDate,
		"last_sync_date", lastSyncDate,
	)
	return nil
}

// Watermark returns the first/last sync dates stored on the index, empty
// strings when unset.
func (c *Client) Watermark(ctx context.Context, index string) (string, string, error) {
	res, err := c.client.Indices.GetMapping(
		c.client.Indices.GetMapping.WithIndex(index),
		c.client.Indices.GetMapping.WithContext(ctx),
	)
	if err != nil {
		return "", "", fmt.Errorf("failed to get mapping of %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return "", "", fmt.Errorf("failed to get mapping of %s: %s", index, res.Status())
	}

	var mappings map[string]struct {
		Mappings struct {
			Meta struct {
				FirstSyncDate string `json:"first_sync_date"`
				LastSyncDate  string `json:"last_sync_date"`
			} `json:"_meta"`
		} `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&mappings); err != nil {
		return "", "", fmt.Errorf("failed to decode mapping of %s: %w", index, err)
	}

	m, ok := mappings[index]
	if !ok {
		return "", "", nil
	}
	return m.Mappings.Meta.FirstSyncDate, m.Mappings.Meta.LastSyncDate, nil
}

// LatestAlias returns the lexicographically last alias starting with the
// prefix, or "" when none exists.
func (c *Client) LatestAlias(ctx context.Context, prefix string) (string, error) {
	res, err := c.client.Cat.Aliases(
		c.client.Cat.Aliases.WithContext(ctx),
		c.client.Cat.Aliases.WithFormat("json"),
	)
	if err != nil {
		return "", fmt.Errorf("failed to list aliases: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return "", fmt.Errorf("failed to list aliases: %s", res.Status())
	}

	var aliases []struct {
		Alias string `json:"alias"`
	}
	if err := json.NewDecoder(res.Body).Decode(&aliases); err != nil {
		return "", fmt.Errorf("failed to decode aliases: %w", err)
	}

	var matching []string
	for _, a := range aliases {
		if strings.HasPrefix(a.Alias, prefix+"-") {
			matching = append(matching, a.Alias)
		}
	}
	if len(matching) == 0 {
		return "", nil
	}
	sort.Strings(matching)
	return matching[len(matching)-1], nil
}

// NewIndexName mints a unique index name for a full resync. A random suffix
// keeps two rapid resyncs from colliding on timestamp resolution.
func NewIndexName(prefix string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().Unix(), uuid.NewString()[:8])
}

// newAliasName generates a sortable alias name: the RFC3339 timestamp makes
// lexicographic max pick the newest publication.
func newAliasName(prefix string) string {
	now := time.Now().UTC().Format(time.RFC3339)
	return fmt.Sprintf("%s-%s", prefix, strings.ReplaceAll(now, ":", "-"))
}

// PublishAlias points a freshly generated alias at the index. Older aliases
// with the same prefix are left in place; readers always resolve the latest.
func (c *Client) PublishAlias(ctx context.Context, prefix, index string) error {
	alias := newAliasName(prefix)

	res, err := c.client.Indices.PutAlias(
		[]string{index},
		alias,
		c.client.Indices.PutAlias.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to publish alias %s for %s: %w", alias, index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to publish alias %s for %s: %s", alias, index, res.Status())
	}

	c.logger.Info("alias published",
		"alias", alias,
		"index", index,
	)
	return nil
}
