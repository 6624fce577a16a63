// Package geocode resolves free-form addresses to coordinates through the
// Google Geocoding JSON API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ncruz89/share-space-app-backend/internal/models"
)

var (
	// ErrNotFound means the provider returned no usable result.
	ErrNotFound = errors.New("geocode: no results for address")
	// ErrUpstream covers transport failures and unexpected provider replies.
	ErrUpstream = errors.New("geocode: provider unavailable")
)

const maxResponseBytes = 1 << 20

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a client whose outbound calls are traced and bounded by
// timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type response struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location models.Location `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Coordinates returns the location of the first result for address.
func (c *Client) Coordinates(ctx context.Context, address string) (models.Location, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return models.Location{}, fmt.Errorf("%w: bad base url: %v", ErrUpstream, err)
	}
	query := endpoint.Query()
	query.Set("address", address)
	query.Set("key", c.apiKey)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return models.Location{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Location{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Location{}, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var payload response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return models.Location{}, fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}

	switch payload.Status {
	case "OK":
	case "ZERO_RESULTS":
		return models.Location{}, ErrNotFound
	default:
		return models.Location{}, fmt.Errorf("%w: %s %s", ErrUpstream, payload.Status, payload.ErrorMessage)
	}

	if len(payload.Results) == 0 {
		return models.Location{}, ErrNotFound
	}
	return payload.Results[0].Geometry.Location, nil
}
