package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nicholascarismo/inventory-checker-bot/internal"
	"github.com/nicholascarismo/inventory-checker-bot/internal/config"
)

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type pagePayload struct {
	Records    []internal.RawRecord `json:"records"`
	HasMore    bool                 `json:"hasMore"`
	NextCursor string               `json:"nextCursor"`
	Errors     []string             `json:"errors"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.InventoryTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.InventoryRateRPS),
	}
}

func (c *Client) FetchPage(ctx context.Context, cursor string) (Page, error) {
	params := map[string]string{}
	if cursor != "" {
		params["cursor"] = cursor
	}

	body, err := c.fetchJSON(ctx, "variants/page", params)
	if err != nil {
		return Page{}, err
	}

	var payload pagePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Page{}, err
	}
	if len(payload.Errors) > 0 {
		// The backend embeds errors in a 200 body; that is still a failed page.
		return Page{}, fmt.Errorf("inventory api errors: %s", strings.Join(payload.Errors, "; "))
	}

	return Page{Records: payload.Records, HasMore: payload.HasMore, NextCursor: payload.NextCursor}, nil
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.InventoryAPIToken) == "" {
		return nil, errors.New("missing INVENTORY_API_TOKEN")
	}
	if strings.TrimSpace(c.cfg.InventoryAPIBaseURL) == "" {
		return nil, errors.New("missing INVENTORY_API_BASE_URL")
	}

	baseURL := strings.TrimRight(c.cfg.InventoryAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.InventoryAPIToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("inventory api status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("inventory api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("inventory api request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
