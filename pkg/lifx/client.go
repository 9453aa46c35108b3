package lifx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultSelector targets every light on the account
const DefaultSelector = "all"

// Color is the HSBK colour block of a light
type Color struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Kelvin     float64 `json:"kelvin"`
}

// Light is one entry of GET /lights/{selector}
type Light struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Connected  bool    `json:"connected"`
	Power      string  `json:"power"`
	Color      Color   `json:"color"`
	Brightness float64 `json:"brightness"`
}

// StateRequest is the body of PUT /lights/{selector}/state
type StateRequest struct {
	Color      string   `json:"color,omitempty"`
	Brightness *float64 `json:"brightness,omitempty"`
	Duration   float64  `json:"duration,omitempty"`
	Power      string   `json:"power,omitempty"`
}

// Response is the raw outcome of a state change. Non-2xx codes are returned, not turned into errors.
type Response struct {
	StatusCode int
	Body       string
}

// Client talks to the LIFX HTTP API
type Client struct {
	baseURL    string
	token      string
	selector   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a LIFX client. An empty selector means all lights.
func NewClient(baseURL, token, selector string, timeout time.Duration, logger *slog.Logger) *Client {
	if selector == "" {
		selector = DefaultSelector
	}
	return &Client{
		baseURL:  baseURL,
		token:    token,
		selector: selector,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ListLights returns every light matched by the selector
func (c *Client) ListLights(ctx context.Context) ([]Light, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/lights/"+url.PathEscape(c.selector), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("LIFX request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("LIFX returned status %d: %s", resp.StatusCode, string(body))
	}

	var lights []Light
	if err := json.NewDecoder(resp.Body).Decode(&lights); err != nil {
		return nil, fmt.Errorf("failed to decode lights: %w", err)
	}

	c.logger.Debug("Listed LIFX lights", "selector", c.selector, "count", len(lights))
	return lights, nil
}

// SetState changes the lights matched by the selector
func (c *Client) SetState(ctx context.Context, state StateRequest) (*Response, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/lights/"+url.PathEscape(c.selector)+"/state", payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("LIFX request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read LIFX response: %w", err)
	}

	c.logger.Debug("Set LIFX state",
		"selector", c.selector,
		"color", state.Color,
		"status", resp.StatusCode)

	return &Response{StatusCode: resp.StatusCode, Body: string(body)}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create LIFX request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
