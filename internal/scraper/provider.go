package scraper

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"marketpipe/internal/common"
)

// Provider is the HTTP scraping service that takes a query payload and
// returns opaque JSON to be shaped by a marketplace plugin.
type Provider interface {
	FetchContent(ctx context.Context, payload map[string]any) (any, error)
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

type ProviderClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	attempts   int
	retryDelay time.Duration
}

func NewProviderClient(baseURL, username, password string) *ProviderClient {
	return &ProviderClient{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		attempts:   3,
		retryDelay: 2 * time.Second,
	}
}

// Fetch posts a payload to the realtime endpoint and decodes the response.
// Network errors and 5xx responses are retried with bounded attempts.
func (c *ProviderClient) Fetch(ctx context.Context, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var result map[string]any
	err = common.Retry(ctx, c.attempts, c.retryDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(c.username, c.password)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("provider returned status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(resp.Body)
			// 4xx is a credential or payload problem; retrying will not help.
			return common.Permanent(fmt.Errorf("provider returned status %d: %s", resp.StatusCode, truncate(string(data), 200)))
		}

		return json.NewDecoder(resp.Body).Decode(&result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FetchContent extracts results[0].content from a provider response,
// validating the envelope shape.
func (c *ProviderClient) FetchContent(ctx context.Context, payload map[string]any) (any, error) {
	data, err := c.Fetch(ctx, payload)
	if err != nil {
		return nil, err
	}

	results, ok := data["results"].([]any)
	if !ok || len(results) == 0 {
		return nil, fmt.Errorf("missing or malformed 'results' in provider response")
	}
	first, ok := results[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("malformed result entry in provider response")
	}
	content, ok := first["content"]
	if !ok || content == nil {
		return nil, fmt.Errorf("missing 'content' in provider result")
	}
	return content, nil
}

// FetchImage retrieves one image through the provider, which returns the
// bytes base64-encoded in the content field.
func (c *ProviderClient) FetchImage(ctx context.Context, url string) ([]byte, error) {
	content, err := c.FetchContent(ctx, map[string]any{
		"source":           "universal",
		"url":              url,
		"content_encoding": "base64",
	})
	if err != nil {
		return nil, err
	}
	encoded, ok := content.(string)
	if !ok {
		return nil, fmt.Errorf("image content is not base64 text")
	}
	return base64.StdEncoding.DecodeString(encoded)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
