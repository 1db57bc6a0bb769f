package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPSummarizer calls a JSON summarization endpoint. The client carries
// its own 5 second timeout so a slow model can never block a handler
// indefinitely.
type HTTPSummarizer struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPSummarizer(endpoint, apiKey string) (*HTTPSummarizer, error) {
	if endpoint == "" {
		return nil, errors.New("summarizer endpoint is required")
	}
	return &HTTPSummarizer{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 5 * time.Second},
	}, nil
}

type summaryRequest struct {
	Prompt string `json:"prompt"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
	Error   string `json:"error,omitempty"`
}

func (s *HTTPSummarizer) GenerateSummary(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(summaryRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summarizer returned status %d", resp.StatusCode)
	}

	var out summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", errors.New(out.Error)
	}
	return out.Summary, nil
}
