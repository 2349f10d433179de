// Package ledgerapi provides a client for the ledger backend's REST API.
package ledgerapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/source"
)

const (
	requestTimeout  = 10 * time.Second
	maxBodySize     = 8 << 20 // 8 MB
	defaultPageSize = 100
	maxPages        = 10000
)

var (
	// ErrUnauthorized indicates the API token is missing, expired or invalid.
	ErrUnauthorized = errors.New("ledgerapi: unauthorized (token expired or invalid)")
	// ErrRateLimited indicates the API rate limit was hit.
	ErrRateLimited = errors.New("ledgerapi: rate limited")
)

// Client fetches transactions and categories from the ledger backend.
type Client struct {
	baseURL  string
	token    string
	source   string
	http     *http.Client
	PageSize int
}

// NewClient creates a client for the API rooted at baseURL, which must be
// an absolute http(s) URL. token may be empty for unauthenticated backends.
func NewClient(baseURL, token string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("ledgerapi: invalid base url %q", baseURL)
	}
	return &Client{
		baseURL:  baseURL,
		token:    strings.TrimSpace(token),
		source:   "api:" + u.Host,
		http:     &http.Client{},
		PageSize: defaultPageSize,
	}, nil
}

// SourceName labels transactions fetched through this client.
func (c *Client) SourceName() string {
	return c.source
}

// FetchAll fetches categories and every transaction since the given time.
// Transactions are required; a category failure is reported in Error.
func (c *Client) FetchAll(ctx context.Context, since time.Time) *SyncData {
	result := &SyncData{FetchedAt: time.Now()}

	txs, skipped, err := c.FetchTransactions(ctx, Query{Since: since})
	if err != nil {
		result.Error = err
		return result
	}
	result.Transactions = txs
	result.Skipped = skipped

	cats, err := c.FetchCategories(ctx)
	if err != nil {
		result.Error = err
		return result
	}
	result.Categories = cats

	names := make(map[string]string, len(cats))
	for _, cat := range cats {
		names[cat.ID] = cat.Name
	}
	for i := range result.Transactions {
		tx := &result.Transactions[i]
		if tx.Category == "" && tx.CategoryID != "" {
			tx.Category = names[tx.CategoryID]
		}
	}
	return result
}

// FetchTransactions pages through /v1/transactions until a short page.
// Records that do not convert are skipped and counted.
func (c *Client) FetchTransactions(ctx context.Context, q Query) ([]model.Transaction, int, error) {
	limit := c.PageSize
	if limit <= 0 {
		limit = defaultPageSize
	}

	var (
		out     []model.Transaction
		skipped int
	)
	for page := 0; page < maxPages; page++ {
		params := q.values()
		params.Set("skip", strconv.Itoa(page*limit))
		params.Set("limit", strconv.Itoa(limit))

		body, err := c.get(ctx, "/v1/transactions", params)
		if err != nil {
			return nil, 0, err
		}

		var raws []source.RawTransaction
		if err := json.Unmarshal(body, &raws); err != nil {
			return nil, 0, fmt.Errorf("ledgerapi: parsing transactions: %w", err)
		}
		for _, raw := range raws {
			tx, err := raw.ToTransaction(c.source, string(raw.ID))
			if err != nil {
				skipped++
				continue
			}
			out = append(out, tx)
		}
		if len(raws) < limit {
			return out, skipped, nil
		}
	}
	return out, skipped, fmt.Errorf("ledgerapi: gave up after %d pages", maxPages)
}

// FetchCategories returns the user's categories.
func (c *Client) FetchCategories(ctx context.Context) ([]model.Category, error) {
	body, err := c.get(ctx, "/v1/categories", nil)
	if err != nil {
		return nil, err
	}

	var raws []source.RawCategory
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("ledgerapi: parsing categories: %w", err)
	}
	cats := make([]model.Category, 0, len(raws))
	for _, rc := range raws {
		cats = append(cats, rc.ToCategory())
	}
	return cats, nil
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Type != "" {
		v.Set("transaction_type", string(q.Type))
	}
	if q.CategoryID != "" {
		v.Set("category_id", q.CategoryID)
	}
	if !q.Since.IsZero() {
		v.Set("start_date", q.Since.UTC().Format(time.RFC3339))
	}
	if !q.Until.IsZero() {
		v.Set("end_date", q.Until.UTC().Format(time.RFC3339))
	}
	return v
}

// get performs an authenticated GET request and returns the response body.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("ledgerapi: creating request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "github.com/theirongolddev/spendcast/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledgerapi: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ledgerapi: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("ledgerapi: reading response: %w", err)
	}
	return body, nil
}
