// Package llamacpp implements the analysis capability against a llama.cpp
// server's OpenAI-compatible API. It covers self-hosted deployments that run
// a vision model outside Ollama.
package llamacpp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mediquest/medscan/pkg/client"
	"github.com/mediquest/medscan/pkg/processing"
	"github.com/mediquest/medscan/pkg/report"
	"github.com/mediquest/medscan/pkg/types"
)

const defaultTimeout = 300 * time.Second

// Client talks to a llama.cpp server. The model name is optional; servers
// answer with whatever model they have loaded when it is omitted.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	timeout    time.Duration
	codec      *processing.Processor
}

var _ client.Analyzer = (*Client)(nil)

// NewClient creates a llama.cpp-backed analyzer targeting the given server.
func NewClient(serverURL, model string) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	return &Client{
		baseURL:    strings.TrimSuffix(serverURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		timeout:    defaultTimeout,
		codec:      processing.NewProcessor(),
	}, nil
}

// Wire types for the OpenAI-compatible chat endpoint.
type chatCompletionRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type message struct {
	Role string `json:"role"`
	// Content is a part array in requests and usually a string in replies,
	// though some servers use the array form both ways.
	Content any `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatCompletionResponse struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Message message `json:"message"`
}

// AnalyzeImage sends the scan as an inline data URI and normalizes the
// model's reply through the report parser. Large scans go out downscaled;
// the normalized boxes in the reply still apply to the original.
func (c *Client) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (*types.AnalysisReport, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, payloadMime := c.codec.PrepareForModel(data, mimeType, processing.ModelInputMaxDim, processing.ModelInputQuality)
	if payloadMime == "" {
		payloadMime = "image/jpeg"
	}
	dataURI := "data:" + payloadMime + ";base64," + base64.StdEncoding.EncodeToString(payload)

	resp, err := c.postChat(ctx, chatCompletionRequest{
		Model: c.model,
		Messages: []message{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: report.AnalysisPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
			},
		}},
		Temperature: 0.2,
		MaxTokens:   4096,
	})
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}
	text := messageText(resp.Choices[0].Message)
	if text == "" {
		return nil, fmt.Errorf("empty response from llama.cpp server")
	}
	return report.ParseAnalysisReport(text), nil
}

// postChat round-trips one chat completion.
func (c *Client) postChat(ctx context.Context, chatReq chatCompletionRequest) (*chatCompletionResponse, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d: %s", httpResp.StatusCode, string(respBody))
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &out, nil
}

// messageText flattens a reply message to its text, whichever content shape
// the server used.
func messageText(m message) string {
	switch v := m.Content.(type) {
	case string:
		return v
	case []any:
		for _, raw := range v {
			part, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if s, ok := part["text"].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
