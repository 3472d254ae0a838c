package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Client talks to the Gemini generateContent API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientConfig configures a Client.
type ClientConfig struct {
	APIKey  string
	Model   string
	BaseURL string // override for tests; empty means the public endpoint
	Timeout time.Duration
}

// NewClient creates a Gemini API client. A missing API key is tolerated
// here; the first Send will fail with a clear error instead.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is missing; chat calls will fail until it is configured")
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// ChatSession is one remote conversation. The service itself is stateless,
// so the session replays the accumulated contents on every call. It is not
// safe for concurrent use; the orchestrator serializes access.
type ChatSession struct {
	client  *Client
	system  *Content
	tools   []Tool
	history []Content
}

// NewSession starts a conversation with a fixed system instruction and
// tool catalog. Neither changes for the session's lifetime.
func (c *Client) NewSession(systemInstruction string, tools []Tool) *ChatSession {
	sess := &ChatSession{
		client: c,
		tools:  tools,
	}
	if systemInstruction != "" {
		sess.system = &Content{Parts: []Part{{Text: systemInstruction}}}
	}
	return sess
}

// Send appends the given parts as a user turn, performs one model round
// trip, and records the model's reply in the session history. On failure
// the user turn is rolled back so the history stays consistent.
func (s *ChatSession) Send(ctx context.Context, parts []Part) (*GenerateResponse, error) {
	if s.client.apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	s.history = append(s.history, Content{Role: "user", Parts: parts})

	resp, err := s.client.generate(ctx, GenerateRequest{
		SystemInstruction: s.system,
		Contents:          s.history,
		Tools:             s.tools,
	})
	if err != nil {
		s.history = s.history[:len(s.history)-1]
		return nil, err
	}

	if cand := resp.candidate(); cand != nil {
		reply := cand.Content
		if reply.Role == "" {
			reply.Role = "model"
		}
		s.history = append(s.history, reply)
	}

	return resp, nil
}

func (c *Client) generate(ctx context.Context, reqBody GenerateRequest) (*GenerateResponse, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("content-type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	var apiResp GenerateResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	c.logger.Debug("model round trip",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"candidates", len(apiResp.Candidates))

	return &apiResp, nil
}
