package scoring

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/normalizer"
)

const notSeenReason = "Not previously seen by the reputation service."

// VirusTotalSource asks the VirusTotal v3 API for prior analysis results.
type VirusTotalSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type vtResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Harmless   int `json:"harmless"`
				Undetected int `json:"undetected"`
			} `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// NewVirusTotalSource returns nil when apiKey is empty; the source is then
// simply not configured.
func NewVirusTotalSource(baseURL, apiKey string) *VirusTotalSource {
	if apiKey == "" {
		return nil
	}
	return &VirusTotalSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (v *VirusTotalSource) Name() string { return "virustotal" }

func (v *VirusTotalSource) Score(ctx context.Context, fp normalizer.Fingerprint) (Partial, error) {
	var endpoint string
	switch fp.Kind {
	case models.InputURL:
		endpoint = "/urls/" + base64.RawURLEncoding.EncodeToString([]byte(fp.Value))
	case models.InputFile, models.InputHash:
		endpoint = "/files/" + fp.Value
	default:
		return Partial{}, ErrNotApplicable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+endpoint, nil)
	if err != nil {
		return Partial{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-apikey", v.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Partial{}, Transient(fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Partial{Score: 0, Reasons: []string{notSeenReason}}, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Partial{}, Transient(fmt.Errorf("virustotal returned status %d: %s", resp.StatusCode, string(body)))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Partial{}, fmt.Errorf("virustotal returned status %d: %s", resp.StatusCode, string(body))
	}

	var result vtResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Partial{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return vtPartial(result), nil
}

func vtPartial(r vtResponse) Partial {
	stats := r.Data.Attributes.LastAnalysisStats
	switch {
	case stats.Malicious > 0:
		return Partial{
			Score:   min(100, 80+5*stats.Malicious),
			Reasons: []string{fmt.Sprintf("Flagged as malicious by %d security vendors.", stats.Malicious)},
		}
	case stats.Suspicious > 0:
		return Partial{
			Score:   min(79, 40+5*stats.Suspicious),
			Reasons: []string{fmt.Sprintf("Flagged as suspicious by %d security vendors.", stats.Suspicious)},
		}
	default:
		return Partial{Score: 0, Reasons: []string{}}
	}
}
