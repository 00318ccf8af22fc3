// Package ollama implements the analysis capability against a local Ollama
// server, for deployments that keep scan data off hosted APIs.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jmorganca/ollama/api"

	"github.com/mediquest/medscan/pkg/client"
	"github.com/mediquest/medscan/pkg/processing"
	"github.com/mediquest/medscan/pkg/report"
	"github.com/mediquest/medscan/pkg/types"
)

// defaultTimeout bounds a single analysis. Vision models on CPU can take
// minutes per image.
const defaultTimeout = 300 * time.Second

// Client wraps the Ollama API client
type Client struct {
	client  *api.Client
	model   string
	timeout time.Duration
	codec   *processing.Processor
}

var _ client.Analyzer = (*Client)(nil)

// NewClient creates an Ollama-backed analyzer targeting the given server URL.
func NewClient(ollamaURL, model string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	// Keep scheme and host only; the API client appends its own paths.
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{
		client:  api.NewClient(baseURL, http.DefaultClient),
		model:   model,
		timeout: defaultTimeout,
		codec:   processing.NewProcessor(),
	}, nil
}

// AnalyzeImage sends the scan to the local vision model and normalizes its
// output through the report parser. The mime type is not forwarded; Ollama
// sniffs image bytes itself. Large scans are downscaled for the request,
// which the normalized boxes absorb.
func (c *Client) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (*types.AnalysisReport, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, _ := c.codec.PrepareForModel(data, mimeType, processing.ModelInputMaxDim, processing.ModelInputQuality)

	streamFalse := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: report.AnalysisPrompt,
				Images:  []api.ImageData{api.ImageData(payload)},
			},
		},
		Stream: &streamFalse,
		Options: map[string]any{
			"temperature": 0.2,
		},
	}

	var responseContent string
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %v", err)
	}

	if responseContent == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}

	return report.ParseAnalysisReport(responseContent), nil
}
