// Package analysis gates and sequences calls to the external signal-analysis
// capability and merges results back into the watchlist.
package analysis

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

	"github.com/aurasignal/signal-dashboard/internal/models"
)

// ErrQuotaExceeded distinguishes a rate-limit failure from every other
// analysis error. Callers pause automatic retries for a cooldown window;
// manual retries stay permitted.
var ErrQuotaExceeded = errors.New("analysis quota exceeded")

// Analyzer is the external vision/reasoning capability.
type Analyzer interface {
	Analyze(ctx context.Context, snapshot models.Snapshot) (*models.AnalysisResult, error)
}

// Client calls a remote model endpoint over HTTP.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// NewClient builds a client with a sane default timeout.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type analyzeRequest struct {
	Model         string    `json:"model"`
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	History       []float64 `json:"history"`
	Prompt        string    `json:"prompt"`
}

// Analyze sends the instrument snapshot to the model and decodes the signal
// it returns. A 429 or resource-exhausted reply maps to ErrQuotaExceeded;
// everything else fails generically and leaves caller state untouched.
func (c *Client) Analyze(ctx context.Context, snapshot models.Snapshot) (*models.AnalysisResult, error) {
	if c.APIKey == "" {
		return nil, errors.New("analysis API key not configured")
	}

	reqBody := analyzeRequest{
		Model:         c.Model,
		Symbol:        snapshot.Symbol,
		Price:         snapshot.Price,
		ChangePercent: snapshot.ChangePercent,
		Volume:        snapshot.Volume,
		History:       snapshot.History,
		Prompt:        "Detect intraday patterns. Apply 3-5% move filter.",
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/analyze", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || strings.Contains(string(body), "RESOURCE_EXHAUSTED") {
		return nil, ErrQuotaExceeded
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analysis service returned status %d", resp.StatusCode)
	}

	result, err := decodeResult(body)
	if err != nil {
		return nil, err
	}
	result.Timestamp = time.Now()
	return result, nil
}

// decodeResult parses the model output, tolerating markdown code fences
// around the JSON payload.
func decodeResult(body []byte) (*models.AnalysisResult, error) {
	text := strings.TrimSpace(string(body))
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	if result.QualificationStatus != models.QualificationApproved &&
		result.QualificationStatus != models.QualificationRejected {
		return nil, fmt.Errorf("invalid qualification status: %q", result.QualificationStatus)
	}
	return &result, nil
}
