package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// systemPrompt is fixed by contract with the translation service: translate
// into the target language, keep proper nouns and formatting, return only the
// translated text.
const systemPrompt = "You translate trading card text into %s. Preserve proper nouns, card names and formatting. Return only the translated text with no commentary."

// ClientConfig configures the external translation client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client calls an OpenAI-compatible chat completion endpoint to translate
// text. All failures are reported as errors; the memo layer decides how to
// degrade.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// NewClient builds a translation client with a bounded request timeout.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Translate sends one translation request and returns the translated text.
func (c *Client) Translate(ctx context.Context, text, dstLang string) (string, error) {
	if c.cfg.BaseURL == "" {
		return "", errors.New("translate: base url is not configured")
	}

	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(systemPrompt, languageName(dstLang))},
			{Role: "user", Content: text},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("translate: encode request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("translate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("translate: service returned status %d", resp.StatusCode)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("translate: decode response: %w", err)
	}

	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return "", errors.New("translate: empty response body")
	}

	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

func languageName(code string) string {
	switch strings.ToLower(code) {
	case "fr":
		return "French"
	case "en":
		return "English"
	case "de":
		return "German"
	case "es":
		return "Spanish"
	default:
		return code
	}
}
