package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// UpstreamError carries a non-2xx response from the generation backend.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("generation backend returned %d: %s", e.Status, e.Body)
}

// ClientConfig configures the Gemini HTTP client.
type ClientConfig struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
	Client  *http.Client
}

// Client talks to the Google generative language API. One instance is safe
// for concurrent use.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewClient builds a Gemini client. Callers should pass a validated config.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "models/gemini-2.5-flash"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: baseURL,
		model:   model,
		apiKey:  cfg.APIKey,
		client:  hc,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Role  string         `json:"role"`
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig generationConfig  `json:"generationConfig"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// Usage is the token accounting reported by the backend. Fields the backend
// did not report stay nil.
type Usage struct {
	PromptTokenCount     *int `json:"promptTokenCount"`
	CandidatesTokenCount *int `json:"candidatesTokenCount"`
	TotalTokenCount      *int `json:"totalTokenCount"`
	ThoughtsTokenCount   *int `json:"thoughtsTokenCount"`
}

// GenerateResult is the parsed outcome of a non-streaming call. Usage is nil
// when the backend reported no usage metadata.
type GenerateResult struct {
	Text         string
	FinishReason string
	Usage        *Usage
	Latency      time.Duration
}

func buildRequest(systemPrompt, prompt string) generateRequest {
	if systemPrompt == "" {
		systemPrompt = "You are a helpful assistant."
	}
	return generateRequest{
		Contents: []generateContent{
			{Role: "model", Parts: []generatePart{{Text: systemPrompt}}},
			{Role: "user", Parts: []generatePart{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     0.9,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 1024,
		},
	}
}

// Generate makes a blocking generateContent call and extracts the response
// text. Non-2xx responses surface as *UpstreamError.
func (c *Client) Generate(ctx context.Context, systemPrompt, prompt string) (*GenerateResult, error) {
	endpoint := fmt.Sprintf("%s/v1/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(c.apiKey))

	start := time.Now()
	resp, err := c.post(ctx, endpoint, buildRequest(systemPrompt, prompt), false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read generation response: %w", err)
	}
	latency := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []generatePart `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata *Usage `json:"usageMetadata"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode generation response: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode generation response: %w", err)
	}

	result := &GenerateResult{
		Text:    ExtractText(decoded),
		Usage:   parsed.UsageMetadata,
		Latency: latency,
	}
	if len(parsed.Candidates) > 0 {
		result.FinishReason = parsed.Candidates[0].FinishReason
	}
	return result, nil
}

// GenerateStream makes a streamGenerateContent call and returns the raw
// response body for the caller to decode. The caller owns closing the body.
// Non-2xx responses surface as *UpstreamError.
func (c *Client) GenerateStream(ctx context.Context, systemPrompt, prompt string) (io.ReadCloser, error) {
	endpoint := fmt.Sprintf("%s/v1beta/%s:streamGenerateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(c.apiKey))

	resp, err := c.post(ctx, endpoint, buildRequest(systemPrompt, prompt), true)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, readErr := io.ReadAll(resp.Body)
		closeErr := resp.Body.Close()
		err := &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		if readErr != nil || closeErr != nil {
			return nil, errors.Join(err, readErr, closeErr)
		}
		return nil, err
	}

	return resp.Body, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload generateRequest, stream bool) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	return resp, nil
}
