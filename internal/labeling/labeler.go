package labeling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Prediction is one (category, value) pair from the labeling capability,
// with the model's confidence.
type Prediction struct {
	Category    string  `json:"category"`
	Value       string  `json:"value"`
	Probability float64 `json:"probability"`
}

// Labeler maps an image to a set of predictions. The implementation is a
// black box with a bounded-latency call.
type Labeler interface {
	Predict(ctx context.Context, image []byte) ([]Prediction, error)
}

type httpLabeler struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPLabeler(endpoint, apiKey string) Labeler {
	return &httpLabeler{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (l *httpLabeler) Predict(ctx context.Context, image []byte) ([]Prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Prediction-Key", l.apiKey)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("labeling endpoint returned status %d: %s", resp.StatusCode, string(data))
	}

	var body struct {
		Predictions []Prediction `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Predictions, nil
}
