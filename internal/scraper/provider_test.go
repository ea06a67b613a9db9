package scraper

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(url string) *ProviderClient {
	c := NewProviderClient(url, "user", "pass")
	c.retryDelay = time.Millisecond
	return c
}

func envelope(content any) map[string]any {
	return map[string]any{
		"results": []any{map[string]any{"content": content}},
	}
}

func TestFetchContentExtractsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "user", user)
		assert.Equal(t, "pass", pass)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "shoply_product", payload["source"])

		json.NewEncoder(w).Encode(envelope(map[string]any{"title": "Widget"}))
	}))
	defer server.Close()

	content, err := testClient(server.URL).FetchContent(context.Background(), map[string]any{"source": "shoply_product"})
	require.NoError(t, err)
	rec, ok := content.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Widget", rec["title"])
}

func TestFetchContentRejectsMalformedEnvelopes(t *testing.T) {
	cases := []struct {
		name string
		body any
	}{
		{"no results", map[string]any{}},
		{"empty results", map[string]any{"results": []any{}}},
		{"result not object", map[string]any{"results": []any{"text"}}},
		{"nil content", map[string]any{"results": []any{map[string]any{"content": nil}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(tc.body)
			}))
			defer server.Close()

			_, err := testClient(server.URL).FetchContent(context.Background(), map[string]any{})
			assert.Error(t, err)
		})
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(envelope("ok"))
	}))
	defer server.Close()

	content, err := testClient(server.URL).FetchContent(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Fetch(context.Background(), map[string]any{})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestFetchImageDecodesBase64(t *testing.T) {
	raw := []byte("fake image bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "universal", payload["source"])
		assert.Equal(t, "base64", payload["content_encoding"])

		json.NewEncoder(w).Encode(envelope(base64.StdEncoding.EncodeToString(raw)))
	}))
	defer server.Close()

	data, err := testClient(server.URL).FetchImage(context.Background(), "https://img.example/a.png")
	require.NoError(t, err)
	assert.Equal(t, raw, data)
}

func TestFetchImageRejectsNonTextContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(envelope(map[string]any{"not": "text"}))
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchImage(context.Background(), "https://img.example/a.png")
	assert.Error(t, err)
}
