package metalsdev

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"time"

	"metalprice/internal/provider"
)

// ErrUnsuccessful is returned when the API answers with a non-success status.
var ErrUnsuccessful = errors.New("metals.dev: unsuccessful response")

// LatestResponse is the body of GET /v1/latest.
type LatestResponse struct {
	Status       string      `json:"status"`
	Currency     string      `json:"currency"`
	Unit         string      `json:"unit"`
	Metals       *Metals     `json:"metals"`
	Timestamps   *Timestamps `json:"timestamps"`
	ErrorCode    int         `json:"error_code"`
	ErrorMessage string      `json:"error_message"`
}

// Metals holds spot prices per unit. Fields absent upstream stay nil.
type Metals struct {
	Gold      *float64 `json:"gold"`
	Silver    *float64 `json:"silver"`
	Platinum  *float64 `json:"platinum"`
	Palladium *float64 `json:"palladium"`
}

// Timestamps reports when the metal and currency rates were last updated.
type Timestamps struct {
	Metal    *time.Time `json:"metal"`
	Currency *time.Time `json:"currency"`
}

// LatestURL returns the fully qualified /v1/latest URL, credentials included.
// Relays wrap this URL verbatim.
func (c *Client) LatestURL(currency, unit string) string {
	query := maps.Clone(c.query)
	query.Set("currency", currency)
	query.Set("unit", unit)
	return fmt.Sprintf("%s/v1/latest?%s", c.baseURL, query.Encode())
}

// Latest retrieves the latest spot prices in currency per unit.
func (c *Client) Latest(ctx context.Context, currency, unit string, opts ...ClientOption) (*LatestResponse, error) {
	var override = &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      c.query,
	}
	for _, opt := range opts {
		opt(override)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, override.LatestURL(currency, unit), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("unauthorized")

	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited")

	default:
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	return DecodeLatest(res.Body)
}

// DecodeLatest parses a /v1/latest body and rejects non-success payloads.
func DecodeLatest(r io.Reader) (*LatestResponse, error) {
	var body LatestResponse
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding latest response: %w", err)
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("%w: status=%q code=%d msg=%q", ErrUnsuccessful, body.Status, body.ErrorCode, body.ErrorMessage)
	}
	if body.Metals == nil {
		return nil, fmt.Errorf("%w: no metals object", ErrUnsuccessful)
	}
	return &body, nil
}

// Quote validates the gold figure against goldFloor and completes silver
// from silverRatio when the payload carries none.
func (r *LatestResponse) Quote(goldFloor, silverRatio float64) (provider.Quote, error) {
	if r == nil || r.Metals == nil {
		return provider.Quote{}, provider.ErrMissingGold
	}
	return provider.Complete(r.Metals.Gold, r.Metals.Silver, goldFloor, silverRatio)
}
