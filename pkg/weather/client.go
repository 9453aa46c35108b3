package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client fetches current cloud cover from the Open-Meteo forecast API
type Client struct {
	baseURL    string
	latitude   float64
	longitude  float64
	httpClient *http.Client
	logger     *slog.Logger
}

// forecastResponse is the subset of the Open-Meteo payload we read
type forecastResponse struct {
	Current struct {
		Time       string   `json:"time"`
		CloudCover *float64 `json:"cloud_cover"`
	} `json:"current"`
}

// NewClient creates a weather client for a fixed location
func NewClient(baseURL string, latitude, longitude float64, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		latitude:  latitude,
		longitude: longitude,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// CloudCover returns the current cloud cover as a fraction in [0,1]
func (c *Client) CloudCover(ctx context.Context) (float64, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(c.latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(c.longitude, 'f', 4, 64))
	q.Set("current", "cloud_cover")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("weather API returned status %d: %s", resp.StatusCode, string(body))
	}

	var forecast forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return 0, fmt.Errorf("failed to decode weather response: %w", err)
	}
	if forecast.Current.CloudCover == nil {
		return 0, fmt.Errorf("weather response has no cloud_cover")
	}

	cover := *forecast.Current.CloudCover / 100
	if cover < 0 {
		cover = 0
	}
	if cover > 1 {
		cover = 1
	}

	c.logger.Debug("Fetched cloud cover",
		"cloud_cover", cover,
		"observed_at", forecast.Current.Time)

	return cover, nil
}
