// Package oracle is the boundary to the text-generation service. The Client
// is the only code in the repo that performs network calls; everything else
// consumes its plain-text responses through the fallible parsers in this
// package.
package oracle

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

	"go.uber.org/zap"
)

// ErrUnavailable marks transport failures, timeouts, and server-side errors
// of the generation service. Callers abort the enclosing step on it.
var ErrUnavailable = errors.New("oracle unavailable")

// Config holds the connection settings of the chat endpoint.
type Config struct {
	BaseURL   string
	Model     string // default model; requests may override
	KeepAlive string // optional keep-warm hint, e.g. "30m"
	Timeout   time.Duration
}

// ChatRequest is one blocking generation call.
type ChatRequest struct {
	Span        string // name of the pipeline step, for logging
	System      string
	User        string
	Model       string // optional override of Config.Model
	Temperature float64
	NumPredict  int
	Stop        []string
}

// Client talks to an Ollama-compatible /api/chat endpoint, non-streaming.
type Client struct {
	cfg    Config
	hc     *http.Client
	logger *zap.Logger
}

// NewClient builds a client with the configured timeout.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		hc:     &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatPayload struct {
	Model     string         `json:"model"`
	Stream    bool           `json:"stream"`
	Messages  []chatMessage  `json:"messages"`
	Options   map[string]any `json:"options"`
	KeepAlive string         `json:"keep_alive,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error"`

	// engine-side metrics, logged when present
	TotalDuration  int64 `json:"total_duration"`
	LoadDuration   int64 `json:"load_duration"`
	PromptEvalCnt  int   `json:"prompt_eval_count"`
	EvalCount      int   `json:"eval_count"`
	EvalDurationNs int64 `json:"eval_duration"`
}

// Chat issues one generation call and returns the trimmed response text.
// Any transport, timeout, or server failure is reported as ErrUnavailable.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.cfg.Model
	}
	stop := req.Stop
	if len(stop) == 0 {
		stop = []string{"```"}
	}

	payload := chatPayload{
		Model:  model,
		Stream: false,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Options: map[string]any{
			"temperature": req.Temperature,
			"num_predict": req.NumPredict,
			"stop":        stop,
		},
		KeepAlive: c.cfg.KeepAlive,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal oracle request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %.200s", ErrUnavailable, resp.StatusCode, string(raw))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: bad response body: %v", ErrUnavailable, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, out.Error)
	}

	c.logger.Debug("oracle chat",
		zap.String("span", req.Span),
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_chars", len(req.System)+len(req.User)),
		zap.Int("prompt_eval_count", out.PromptEvalCnt),
		zap.Int("eval_count", out.EvalCount),
		zap.Duration("engine_total", time.Duration(out.TotalDuration)),
		zap.Duration("engine_eval", time.Duration(out.EvalDurationNs)),
	)

	return strings.TrimSpace(out.Message.Content), nil
}
