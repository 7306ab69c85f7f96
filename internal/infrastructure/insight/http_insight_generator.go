package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pulse-core-analytics-layer/internal/domain"
	"pulse-core-analytics-layer/internal/ports"

	"github.com/rs/zerolog"
)

// HTTPInsightGenerator calls an external text-completion endpoint to turn a
// structured analytics sample into narrative insight. The collaborator is a
// black box; the numeric analytics path never depends on its availability.
type HTTPInsightGenerator struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewHTTPInsightGenerator creates a new HTTP insight generator
func NewHTTPInsightGenerator(endpoint, apiKey string, logger zerolog.Logger) ports.InsightGenerator {
	return &HTTPInsightGenerator{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

type completionRequest struct {
	Prompt string `json:"prompt"`
}

type completionResponse struct {
	Text string `json:"text"`
}

// GenerateInsight sends a compact analytics sample to the completion endpoint
// and returns its free-text response.
func (g *HTTPInsightGenerator) GenerateInsight(ctx context.Context, bundle *domain.AnalyticsBundle) (string, error) {
	sample, err := json.Marshal(map[string]interface{}{
		"kpis":   bundle.KPIs,
		"alerts": bundle.Alerts,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal analytics sample: %w", err)
	}

	prompt := fmt.Sprintf(
		"Summarize the following e-commerce analytics for a store owner in two sentences: %s",
		sample,
	)

	body, err := json.Marshal(completionRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call insight endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("insight endpoint returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}

	return completion.Text, nil
}

// NoopInsightGenerator is used when no insight endpoint is configured.
type NoopInsightGenerator struct{}

// NewNoopInsightGenerator creates a generator that produces no insight
func NewNoopInsightGenerator() ports.InsightGenerator {
	return &NoopInsightGenerator{}
}

// GenerateInsight returns an empty insight.
func (g *NoopInsightGenerator) GenerateInsight(ctx context.Context, bundle *domain.AnalyticsBundle) (string, error) {
	return "", nil
}
