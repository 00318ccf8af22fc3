// Package gemini implements the enhancement, analysis and scoring
// capabilities against the hosted Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mediquest/medscan/internal/utils"
	"github.com/mediquest/medscan/pkg/client"
	"github.com/mediquest/medscan/pkg/processing"
	"github.com/mediquest/medscan/pkg/report"
	"github.com/mediquest/medscan/pkg/types"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Default model names per capability.
const (
	DefaultAnalysisModel = "gemini-2.0-flash"
	DefaultEnhanceModel  = "gemini-2.0-flash-preview-image-generation"
)

// Client calls the Gemini generateContent endpoint. One Client serves all
// three capabilities; enhancement uses a separate image-output model.
type Client struct {
	apiKey       string
	model        string
	enhanceModel string
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	timeout      time.Duration
	codec        *processing.Processor
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Tests point this at a local server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithModels sets the analysis/score model and the enhancement model.
func WithModels(analysis, enhance string) Option {
	return func(c *Client) {
		if analysis != "" {
			c.model = analysis
		}
		if enhance != "" {
			c.enhanceModel = enhance
		}
	}
}

// WithHTTPClient substitutes the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout sets the per-request timeout applied when the caller's
// context carries no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a Gemini client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		model:        DefaultAnalysisModel,
		enhanceModel: DefaultEnhanceModel,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{},
		limiter:      rate.NewLimiter(rate.Limit(2), 4),
		timeout:      120 * time.Second,
		codec:        processing.NewProcessor(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ client.Enhancer = (*Client)(nil)
	_ client.Analyzer = (*Client)(nil)
	_ client.Scorer   = (*Client)(nil)
)

// Gemini API request/response types
type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature        float64  `json:"temperature,omitempty"`
	MaxOutputTokens    int      `json:"maxOutputTokens,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

// text concatenates the text parts of the first candidate.
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var out string
	for _, p := range r.Candidates[0].Content.Parts {
		out += p.Text
	}
	return out
}

// inlineImage returns the first inline image of the first candidate, decoded.
func (r *generateResponse) inlineImage() ([]byte, error) {
	if len(r.Candidates) == 0 {
		return nil, nil
	}
	for _, p := range r.Candidates[0].Content.Parts {
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid inline image data: %w", err)
		}
		return data, nil
	}
	return nil, nil
}

// generate sends one generateContent request. A default timeout is applied
// when the caller's context has no deadline.
func (c *Client) generate(ctx context.Context, model string, reqBody generateRequest) (*generateResponse, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &out, nil
}

// AnalyzeImage sends the scan to the analysis model and normalizes its
// output through the report parser. Errors cover the transport only; bad
// model output becomes the fallback report, not an error. Large scans are
// downscaled for the request; returned boxes are normalized and apply to
// the full-resolution original unchanged.
func (c *Client) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (*types.AnalysisReport, error) {
	payload, payloadMime := c.codec.PrepareForModel(data, mimeType, processing.ModelInputMaxDim, processing.ModelInputQuality)

	reqBody := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: report.AnalysisPrompt},
				{InlineData: &inlineData{
					MimeType: payloadMime,
					Data:     base64.StdEncoding.EncodeToString(payload),
				}},
			},
		}},
		GenerationConfig: &generationConfig{Temperature: 0.2, MaxOutputTokens: 4096},
	}

	resp, err := c.generate(ctx, c.model, reqBody)
	if err != nil {
		return nil, fmt.Errorf("analysis request: %w", err)
	}

	text := resp.text()
	if text == "" {
		return nil, fmt.Errorf("empty analysis response")
	}
	return report.ParseAnalysisReport(text), nil
}

// EnhanceImage asks the image-output model for a cleaned-up scan. A
// response without an image part declines with (nil, nil); the caller
// keeps the original bytes.
func (c *Client) EnhanceImage(ctx context.Context, data []byte, mimeType string) ([]byte, error) {
	if !utils.IsImageMime(mimeType) {
		return nil, nil
	}

	reqBody := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: report.EnhancePrompt},
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
			},
		}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	resp, err := c.generate(ctx, c.enhanceModel, reqBody)
	if err != nil {
		return nil, fmt.Errorf("enhancement request: %w", err)
	}
	return resp.inlineImage()
}

// ScoreHealth sends the patient data to the analysis model and normalizes
// the result through the score parser.
func (c *Client) ScoreHealth(ctx context.Context, req types.ScoreRequest) (*types.HealthScore, error) {
	reqBody := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: report.BuildScorePrompt(req)}},
		}},
		GenerationConfig: &generationConfig{Temperature: 0.2, MaxOutputTokens: 2048},
	}

	resp, err := c.generate(ctx, c.model, reqBody)
	if err != nil {
		return nil, fmt.Errorf("score request: %w", err)
	}

	text := resp.text()
	if text == "" {
		return nil, fmt.Errorf("empty score response")
	}
	return report.ParseHealthScore(text), nil
}
