// Package at is the HTTP client for the Auckland Transport GTFS v3 API and
// the matching GTFS-realtime trip updates feed.
package at

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/SeitzDaniel/auckland-transport/internal/config"
)

// Failure kinds callers branch on with errors.Is. Anything not wrapped in
// one of these is a transient failure: the next poll cycle is the retry,
// the client itself never retries.
var (
	ErrUnauthorized = errors.New("api key rejected")
	ErrNotFound     = errors.New("not found")
	ErrMalformed    = errors.New("malformed response")
)

type Client struct {
	baseURL     string
	realtimeURL string
	key         string
	httpClient  *http.Client

	realtime realtimeCache
}

func NewClient(cfg config.Config, apiKey string) *Client {
	return &Client{
		baseURL:     cfg.APIBaseURL,
		realtimeURL: cfg.RealtimeURL,
		key:         apiKey,
		httpClient:  &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// ListStops fetches the full stops directory. A successful response also
// proves the API key is accepted.
func (c *Client) ListStops(ctx context.Context) ([]Stop, error) {
	body, err := c.get(ctx, c.baseURL+"/stops")
	if err != nil {
		return nil, err
	}

	var resp stopsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode stops: %v: %w", err, ErrMalformed)
	}

	stops := make([]Stop, 0, len(resp.Data))
	for _, r := range resp.Data {
		stops = append(stops, r.toStop())
	}
	return stops, nil
}

// StopTrips fetches the scheduled calls at one stop for a 24 hour range
// beginning at startHour on the given service date (YYYY-MM-DD).
func (c *Client) StopTrips(ctx context.Context, stopID, date string, startHour int) ([]StopTrip, error) {
	q := url.Values{}
	q.Set("filter[date]", date)
	q.Set("filter[start_hour]", strconv.Itoa(startHour))
	q.Set("filter[hour_range]", "24")

	u := fmt.Sprintf("%s/stops/%s/stoptrips?%s", c.baseURL, url.PathEscape(stopID), q.Encode())
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var resp stopTripsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode stoptrips for %s: %v: %w", stopID, err, ErrMalformed)
	}

	trips := make([]StopTrip, 0, len(resp.Data))
	for _, r := range resp.Data {
		trips = append(trips, r.toStopTrip())
	}
	return trips, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("fetch %s: %w", rawURL, ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", rawURL, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, nil
}
