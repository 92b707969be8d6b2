package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultPageLimit = 100

// HTTPClient implements Client against an Open-Cloud-style standard
// datastore API: paginated entry listing plus point entry lookups,
// authenticated with an API key header.
type HTTPClient struct {
	baseURL   string // e.g. https://apis.roblox.com/datastores/v1/universes/123
	datastore string
	apiKey    string
	pageLimit int
	client    *http.Client
}

// HTTPClientOptions configures an HTTPClient.
type HTTPClientOptions struct {
	BaseURL        string
	Datastore      string
	APIKey         string
	PageLimit      int
	RequestTimeout time.Duration
}

// NewHTTPClient creates a store client. RequestTimeout bounds each
// individual request so a hung call cannot stall the poll cycle.
func NewHTTPClient(opts HTTPClientOptions) *HTTPClient {
	limit := opts.PageLimit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:   opts.BaseURL,
		datastore: opts.Datastore,
		apiKey:    opts.APIKey,
		pageLimit: limit,
		client:    &http.Client{Timeout: timeout},
	}
}

// listResponse is the wire shape of one listing page.
type listResponse struct {
	Keys []struct {
		Key string `json:"key"`
	} `json:"keys"`
	NextPageCursor string `json:"nextPageCursor"`
}

// ListKeys fetches one page of entry keys under prefix.
func (c *HTTPClient) ListKeys(ctx context.Context, prefix, cursor string) (Page, error) {
	q := url.Values{}
	q.Set("datastoreName", c.datastore)
	q.Set("prefix", prefix)
	q.Set("limit", strconv.Itoa(c.pageLimit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	body, err := c.get(ctx, "/standard-datastores/datastore/entries", q)
	if err != nil {
		return Page{}, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Page{}, fmt.Errorf("decode listing page: %w", err)
	}

	page := Page{NextCursor: resp.NextPageCursor}
	for _, k := range resp.Keys {
		page.Keys = append(page.Keys, k.Key)
	}
	return page, nil
}

// GetEntry fetches the raw document stored under key. Returns ErrNotFound
// when the store has no such entry.
func (c *HTTPClient) GetEntry(ctx context.Context, key string) ([]byte, error) {
	q := url.Values{}
	q.Set("datastoreName", c.datastore)
	q.Set("entryKey", key)

	return c.get(ctx, "/standard-datastores/datastore/entries/entry", q)
}

func (c *HTTPClient) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("store returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read store response: %w", err)
	}
	return body, nil
}
