// Package inference calls the remote ML inference service and falls back to
// the local rule-based classifiers when it is unreachable.
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/medtech/go-cds/internal/domain/drugcheck"
	"github.com/medtech/go-cds/internal/domain/recommend"
	"github.com/medtech/go-cds/internal/domain/triage"
)

// ClientConfig holds remote inference client configuration.
type ClientConfig struct {
	// BaseURL is the inference service root, e.g. http://inference:8000
	BaseURL string
	// APIKey is sent as a bearer token when non-empty
	APIKey string
	// Timeout bounds each request
	Timeout time.Duration
}

// Client is an HTTP client for the remote inference service.
type Client struct {
	cfg    ClientConfig
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a client for the remote inference service.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// AssessTriage asks the remote service for an urgency assessment. Responses
// with a level outside 1..5 are rejected; the category is always recomputed
// from the level so the level/category bijection cannot be broken remotely.
func (c *Client) AssessTriage(ctx context.Context, in triage.Input) (*triage.Result, error) {
	var resp struct {
		UrgencyLevel      int     `json:"urgencyLevel"`
		Explanation       string  `json:"explanation"`
		Confidence        float64 `json:"confidence"`
		Source            string  `json:"source"`
		RecommendedAction string  `json:"recommendedAction"`
	}
	if err := c.post(ctx, "/v1/triage/assess", in, &resp); err != nil {
		return nil, err
	}
	if resp.UrgencyLevel < 1 || resp.UrgencyLevel > 5 {
		return nil, fmt.Errorf("remote triage returned invalid urgency level %d", resp.UrgencyLevel)
	}

	source := triage.Source(resp.Source)
	if source != triage.SourceML && source != triage.SourceAI {
		source = triage.SourceAI
	}
	return &triage.Result{
		Level:             resp.UrgencyLevel,
		Category:          triage.CategoryForLevel(resp.UrgencyLevel),
		Explanation:       resp.Explanation,
		Confidence:        resp.Confidence,
		Source:            source,
		RecommendedAction: resp.RecommendedAction,
		Symptoms:          in.Symptoms,
	}, nil
}

// AnalyzeDrug asks the remote service for an authenticity verdict. Image
// bytes travel base64-encoded in the JSON body.
func (c *Client) AnalyzeDrug(ctx context.Context, in drugcheck.Input) (*drugcheck.Result, error) {
	req := struct {
		DrugName     string `json:"drugName,omitempty"`
		BatchNumber  string `json:"batchNumber,omitempty"`
		Manufacturer string `json:"manufacturer,omitempty"`
		Image        string `json:"image,omitempty"`
	}{
		DrugName:     in.DrugName,
		BatchNumber:  in.BatchNumber,
		Manufacturer: in.Manufacturer,
	}
	if len(in.Image) > 0 {
		req.Image = base64.StdEncoding.EncodeToString(in.Image)
	}

	var resp drugcheck.Result
	if err := c.post(ctx, "/v1/drugs/analyze", req, &resp); err != nil {
		return nil, err
	}
	switch resp.Status {
	case drugcheck.StatusAuthentic, drugcheck.StatusSuspicious,
		drugcheck.StatusCounterfeit, drugcheck.StatusUnknown:
	default:
		return nil, fmt.Errorf("remote drug analysis returned unknown status %q", resp.Status)
	}
	resp.IsAuthentic = resp.Status == drugcheck.StatusAuthentic
	if resp.Source == "" {
		resp.Source = drugcheck.SourceML
	}
	return &resp, nil
}

// RecommendDrug asks the remote service for a drug category recommendation.
// Responses without a category are rejected.
func (c *Client) RecommendDrug(ctx context.Context, in recommend.Input) (*recommend.Result, error) {
	var resp recommend.Result
	if err := c.post(ctx, "/v1/drugs/recommend", in, &resp); err != nil {
		return nil, err
	}
	if resp.DrugCategory == "" {
		return nil, fmt.Errorf("remote recommendation returned no drug category")
	}
	if resp.Source == "" {
		resp.Source = recommend.SourceML
	}
	return &resp, nil
}

// Chat forwards a free-text clinical question to the remote assistant.
func (c *Client) Chat(ctx context.Context, query, chatContext string) (string, error) {
	req := struct {
		Query   string `json:"query"`
		Context string `json:"context,omitempty"`
	}{Query: query, Context: chatContext}

	var resp struct {
		Response string `json:"response"`
	}
	if err := c.post(ctx, "/v1/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call inference service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("inference service %s returned %d: %s", path, resp.StatusCode, snippet)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode inference response: %w", err)
	}
	return nil
}
