package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nicholascarismo/inventory-checker-bot/internal/config"
)

type Client struct {
	cfg        config.Config
	httpClient *http.Client
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type apiEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Token string `json:"token"`
}

func (c *Client) OpenForm(ctx context.Context, form FormSpec) (string, error) {
	env, err := c.post(ctx, "forms.open", map[string]any{"form": form})
	if err != nil {
		return "", err
	}
	if env.Token == "" {
		return "", errors.New("chat api returned no form token")
	}
	return env.Token, nil
}

func (c *Client) UpdateForm(ctx context.Context, token string, form FormSpec) error {
	_, err := c.post(ctx, "forms.update", map[string]any{"token": token, "form": form})
	return err
}

func (c *Client) PostMessage(ctx context.Context, destination, text string) error {
	_, err := c.post(ctx, "messages.post", map[string]any{"destination": destination, "text": text})
	return err
}

func (c *Client) PostEphemeralNotice(ctx context.Context, destination, actor, text string) error {
	_, err := c.post(ctx, "notices.ephemeral", map[string]any{"destination": destination, "actor": actor, "text": text})
	return err
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) (apiEnvelope, error) {
	if strings.TrimSpace(c.cfg.ChatAPIToken) == "" {
		return apiEnvelope{}, errors.New("missing CHAT_API_TOKEN")
	}
	if strings.TrimSpace(c.cfg.ChatAPIBaseURL) == "" {
		return apiEnvelope{}, errors.New("missing CHAT_API_BASE_URL")
	}

	blob, err := json.Marshal(payload)
	if err != nil {
		return apiEnvelope{}, err
	}

	url := strings.TrimRight(c.cfg.ChatAPIBaseURL, "/") + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(blob))
	if err != nil {
		return apiEnvelope{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.ChatAPIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apiEnvelope{}, err
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return apiEnvelope{}, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiEnvelope{}, fmt.Errorf("chat api error: endpoint=%s status=%d body=%s", endpoint, resp.StatusCode, string(body))
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return apiEnvelope{}, err
	}
	if !env.OK {
		msg := env.Error
		if msg == "" {
			msg = "unknown"
		}
		return apiEnvelope{}, fmt.Errorf("chat api error: endpoint=%s reason=%s", endpoint, msg)
	}

	return env, nil
}
