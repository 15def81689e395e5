// Package client talks to the remote data service that owns picks,
// positions, trade history and sector quotes.
package client

import (
	"bytes"
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

	"github.com/trogers1052/stock-sniper-dashboard/internal/models"
)

// ErrMalformedPayload is returned when a response body is not valid JSON
// for the expected shape
var ErrMalformedPayload = errors.New("malformed payload")

// StatusError is returned for non-2xx responses
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Config holds client endpoints
type Config struct {
	// BaseURL serves /picks, /positions and /trades
	BaseURL string
	// SectorsURL serves /sectors. Defaults to BaseURL.
	SectorsURL string
	Timeout    time.Duration
}

// Client is the HTTP client for the data service
type Client struct {
	baseURL    string
	sectorsURL string
	httpClient *http.Client
}

// New creates a new Client
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sectorsURL := cfg.SectorsURL
	if sectorsURL == "" {
		sectorsURL = cfg.BaseURL
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		sectorsURL: strings.TrimRight(sectorsURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Picks handles GET /picks
func (c *Client) Picks(ctx context.Context) ([]models.Pick, error) {
	var picks []models.Pick
	if err := c.getJSON(ctx, c.baseURL, "/picks", &picks); err != nil {
		return nil, fmt.Errorf("failed to fetch picks: %w", err)
	}
	return picks, nil
}

// Positions handles GET /positions
func (c *Client) Positions(ctx context.Context) ([]models.Position, error) {
	var positions []models.Position
	if err := c.getJSON(ctx, c.baseURL, "/positions", &positions); err != nil {
		return nil, fmt.Errorf("failed to fetch positions: %w", err)
	}
	return positions, nil
}

// Trades handles GET /trades
func (c *Client) Trades(ctx context.Context) ([]models.Trade, error) {
	var trades []models.Trade
	if err := c.getJSON(ctx, c.baseURL, "/trades", &trades); err != nil {
		return nil, fmt.Errorf("failed to fetch trades: %w", err)
	}
	return trades, nil
}

// Sectors handles GET /sectors?tickers=CSV
func (c *Client) Sectors(ctx context.Context, tickers []string) (map[string]models.SectorQuote, error) {
	params := url.Values{}
	params.Set("tickers", strings.Join(tickers, ","))

	var quotes map[string]models.SectorQuote
	if err := c.getJSON(ctx, c.sectorsURL, "/sectors?"+params.Encode(), &quotes); err != nil {
		return nil, fmt.Errorf("failed to fetch sectors: %w", err)
	}
	if quotes == nil {
		quotes = map[string]models.SectorQuote{}
	}
	return quotes, nil
}

// CreatePick handles POST /picks
func (c *Client) CreatePick(ctx context.Context, p models.NewPick) error {
	if err := c.send(ctx, http.MethodPost, "/picks", p); err != nil {
		return fmt.Errorf("failed to create pick: %w", err)
	}
	return nil
}

// DeletePick handles DELETE /picks/{id}
func (c *Client) DeletePick(ctx context.Context, id int) error {
	if err := c.send(ctx, http.MethodDelete, "/picks/"+strconv.Itoa(id), nil); err != nil {
		return fmt.Errorf("failed to delete pick %d: %w", id, err)
	}
	return nil
}

// CreatePosition handles POST /positions
func (c *Client) CreatePosition(ctx context.Context, p models.NewPosition) error {
	if err := c.send(ctx, http.MethodPost, "/positions", p); err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	return nil
}

// UpdatePosition handles PUT /positions/{id}
func (c *Client) UpdatePosition(ctx context.Context, id int, u models.PositionUpdate) error {
	if err := c.send(ctx, http.MethodPut, "/positions/"+strconv.Itoa(id), u); err != nil {
		return fmt.Errorf("failed to update position %d: %w", id, err)
	}
	return nil
}

// DeletePosition handles DELETE /positions/{id}
func (c *Client) DeletePosition(ctx context.Context, id int) error {
	if err := c.send(ctx, http.MethodDelete, "/positions/"+strconv.Itoa(id), nil); err != nil {
		return fmt.Errorf("failed to delete position %d: %w", id, err)
	}
	return nil
}

// getJSON decodes the response into out. An empty body or a JSON null
// leaves out at its zero value.
func (c *Client) getJSON(ctx context.Context, base, path string, out any) error {
	body, err := c.do(ctx, http.MethodGet, base, path, nil)
	if err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	_, err := c.do(ctx, method, c.baseURL, path, body)
	return err
}

func (c *Client) do(ctx context.Context, method, base, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(data)),
		}
	}
	return data, nil
}
