package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dukex/teamflow/pkg/models"
)

// HTTPProvider delegates analysis to a remote scoring service that accepts
// POST {url}/analyze.
type HTTPProvider struct {
	url    string
	client *http.Client
}

type analyzeRequest struct {
	Process string `json:"process"`
	Input
}

func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Analyze(ctx context.Context, process string, input Input) (models.Analysis, error) {
	requestBody, err := json.Marshal(analyzeRequest{Process: process, Input: input})
	if err != nil {
		return models.Analysis{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/analyze", bytes.NewBuffer(requestBody))
	if err != nil {
		return models.Analysis{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Analysis{}, fmt.Errorf("failed to analyze %s: status code %d", process, resp.StatusCode)
	}

	var analysis models.Analysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return models.Analysis{}, fmt.Errorf("failed to decode response body: %w", err)
	}

	return analysis, nil
}
