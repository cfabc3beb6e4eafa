// Package oracle provides the HTTP client for the model inference service
// that backs the pipeline's three capabilities: embeddings, span tagging,
// and readmission-risk scoring.  The client implements the oracle
// interfaces consumed by the intelligence layer; transport failures map to
// ErrCodeOracleUnavailable and undecodable or invalid payloads to
// ErrCodeMalformedOracleOutput.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	"github.com/clinsignal/clinsignal/internal/intelligence/common"
	"github.com/clinsignal/clinsignal/pkg/errors"
	"github.com/clinsignal/clinsignal/pkg/types/clinical"
)

// ClientConfig configures the inference client.
type ClientConfig struct {
	// BaseURL is the root of the inference service, e.g. http://model:8500.
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	// RequestTimeout bounds a single HTTP round trip.
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`
	// EmbeddingDim, when non-zero, is enforced on every returned vector.
	EmbeddingDim int `mapstructure:"embedding_dim" json:"embedding_dim"`
	// MaxBatchSize caps how many texts go into one embedding request.
	// Larger inputs are chunked transparently; results keep input order.
	MaxBatchSize int `mapstructure:"max_batch_size" json:"max_batch_size"`
}

// DefaultClientConfig returns the production defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:        "http://localhost:8500",
		RequestTimeout: 30 * time.Second,
		MaxBatchSize:   32,
	}
}

// Validate checks the configuration for usable values.
func (c ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New(errors.ErrCodeBadRequest, "oracle base_url is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New(errors.ErrCodeBadRequest, "oracle request_timeout must be positive")
	}
	if c.MaxBatchSize <= 0 {
		return errors.New(errors.ErrCodeBadRequest, "oracle max_batch_size must be positive")
	}
	return nil
}

// Client talks to the inference service.  It implements common.Embedder,
// common.SpanTagger and common.RiskScorer.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	logger     logging.Logger
	metrics    common.PipelineMetrics
}

// NewClient builds a Client.
func NewClient(cfg ClientConfig, logger logging.Logger, metrics common.PipelineMetrics) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger.Named("oracle"),
		metrics:    metrics,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Wire payloads
// ─────────────────────────────────────────────────────────────────────────────

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

type tagRequest struct {
	Text string `json:"text"`
}

type tagResponse struct {
	Entities []clinical.EntitySpan `json:"entities"`
}

type scoreRequest struct {
	Text string `json:"text"`
}

// ─────────────────────────────────────────────────────────────────────────────
// common.Embedder
// ─────────────────────────────────────────────────────────────────────────────

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in input order, chunking requests at the
// configured batch size.  Chunking is invisible to callers: results are
// identical to a single-request embedding of the same texts.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float64, 0, len(texts))
	for lo := 0; lo < len(texts); lo += c.cfg.MaxBatchSize {
		hi := lo + c.cfg.MaxBatchSize
		if hi > len(texts) {
			hi = len(texts)
		}

		var resp embedResponse
		if err := c.post(ctx, "embedder", "/embed", embedRequest{Texts: texts[lo:hi]}, &resp); err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != hi-lo {
			return nil, errors.MalformedOutput("embedder",
				fmt.Sprintf("embedding count mismatch: got %d want %d", len(resp.Embeddings), hi-lo))
		}
		for _, vec := range resp.Embeddings {
			if err := common.ValidateVector("embedder", vec, c.cfg.EmbeddingDim); err != nil {
				return nil, err
			}
		}
		out = append(out, resp.Embeddings...)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// common.SpanTagger
// ─────────────────────────────────────────────────────────────────────────────

// Tag returns labelled entity spans for text.  Span offsets are validated
// by the extractor against the exact text it submitted.
func (c *Client) Tag(ctx context.Context, text string) ([]clinical.EntitySpan, error) {
	var resp tagResponse
	if err := c.post(ctx, "span_tagger", "/tag", tagRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// common.RiskScorer
// ─────────────────────────────────────────────────────────────────────────────

// Score returns the readmission-risk assessment for text.
func (c *Client) Score(ctx context.Context, text string) (common.RiskAssessment, error) {
	var resp common.RiskAssessment
	if err := c.post(ctx, "risk_scorer", "/score", scoreRequest{Text: text}, &resp); err != nil {
		return common.RiskAssessment{}, err
	}
	if err := common.ValidateRisk("risk_scorer", resp.Risk); err != nil {
		return common.RiskAssessment{}, err
	}
	return resp, nil
}

// Healthz probes the inference service health endpoint, for readiness
// checks.
func (c *Client) Healthz(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/healthz", nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "build oracle health request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.OracleUnavailable("inference", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.OracleUnavailable("inference",
			fmt.Errorf("health endpoint returned status %d", resp.StatusCode))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Transport
// ─────────────────────────────────────────────────────────────────────────────

func (c *Client) post(ctx context.Context, oracle, path string, in, out any) error {
	start := time.Now()
	err := c.doPost(ctx, oracle, path, in, out)
	c.metrics.RecordOracleCall(ctx, oracle, float64(time.Since(start).Microseconds())/1000.0, err == nil)
	return err
}

func (c *Client) doPost(ctx context.Context, oracle, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshal oracle request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "build oracle request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("oracle request failed", logging.String("oracle", oracle), logging.Err(err))
		return errors.OracleUnavailable(oracle, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		io.Copy(io.Discard, resp.Body)
		return errors.OracleUnavailable(oracle,
			fmt.Errorf("inference service returned status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return errors.MalformedOutput(oracle,
			fmt.Sprintf("unexpected status %d from inference service", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.MalformedOutput(oracle, "undecodable response body: "+err.Error())
	}
	return nil
}
