// Package audit polls a mint-audit service and turns its findings into
// human-readable status messages.
package audit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Mint is one row of the audit service's mint listing.
type Mint struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	URL       string `json:"url" db:"url"`
	State     string `json:"state" db:"state"`
	Balance   int64  `json:"balance" db:"balance"`
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
}

// Swap is one entry of the audit service's swap log: a round trip of
// funds through a mint, timed and checked.
type Swap struct {
	ID        string `json:"id"`
	MintID    string `json:"mint_id"`
	Amount    int64  `json:"amount"`
	Fee       int64  `json:"fee"`
	State     string `json:"state"`
	Error     string `json:"error"`
	TimeTaken int64  `json:"time_taken"`
	CreatedAt int64  `json:"created_at"`
}

// Client fetches the audit service's JSON endpoints.
type Client struct {
	BaseURL string

	http *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// Mints returns the current mint listing.
func (c *Client) Mints(ctx context.Context) ([]Mint, error) {
	var mints []Mint
	if err := c.get(ctx, "/mints", &mints); err != nil {
		return nil, err
	}
	return mints, nil
}

// Swaps returns the most recent swaps, newest first.
func (c *Client) Swaps(ctx context.Context, limit int) ([]Swap, error) {
	var swaps []Swap
	if err := c.get(ctx, fmt.Sprintf("/swaps?limit=%d", limit), &swaps); err != nil {
		return nil, err
	}
	return swaps, nil
}
