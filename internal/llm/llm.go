// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm talks to a local Ollama server. Calls are serialized through
// a single request slot because a local model backend serves one
// generation at a time.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/genegap/internal/logging"
	"github.com/pdiddy/genegap/internal/metrics"
	"github.com/pdiddy/genegap/pkg/types"
)

// ollamaBase is the default Ollama endpoint. Declared as a var so tests
// can substitute an httptest server.
var ollamaBase = "http://localhost:11434"

const (
	DefaultTimeout = 120 * time.Second
	statusTimeout  = 5 * time.Second
)

// ErrUnavailable marks a failed call to the model server: unreachable,
// timed out or answering with a non-success status.
var ErrUnavailable = errors.New("language model unavailable")

// ParseError is returned when model output cannot be decoded into the
// requested structure. Raw holds the output after thinking blocks were
// removed.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Request is one generation call.
type Request struct {
	// Task labels the call in metrics and logs (extract, summary, proposal).
	Task   string
	Model  string
	System string
	Prompt string

	// JSON asks the server to constrain output to a JSON object.
	JSON bool

	Temperature float64
	MaxTokens   int
}

// Client is an Ollama HTTP client. It is safe for concurrent use; callers
// queue on the shared request slot.
type Client struct {
	HTTP *http.Client

	baseURL      string
	defaultModel string
	timeout      time.Duration
	slot         *semaphore.Weighted
	log          *slog.Logger
	metrics      *metrics.Metrics
}

// New builds a Client from cfg.
func New(cfg types.LLMConfig, log *slog.Logger, m *metrics.Metrics) *Client {
	base := cfg.Host
	if base == "" {
		base = ollamaBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		HTTP:         &http.Client{},
		baseURL:      NormalizeHost(base),
		defaultModel: cfg.Model,
		timeout:      timeout,
		slot:         semaphore.NewWeighted(1),
		log:          log.With("component", "llm"),
		metrics:      m,
	}
}

// NormalizeHost turns OLLAMA_HOST style values into a client URL. A bare
// host gets the default port, and the bind-all address maps to localhost.
func NormalizeHost(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return ollamaBase
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		if host == "0.0.0.0" || host == "127.0.0.1" {
			return "http://localhost:11434"
		}
		if !strings.Contains(host, ":") {
			host += ":11434"
		}
		host = "http://" + host
	}
	return strings.Replace(host, "0.0.0.0", "localhost", 1)
}

// DefaultModel returns the model used when a request names none.
func (c *Client) DefaultModel() string { return c.defaultModel }

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Generate runs one completion and returns the text with any thinking
// blocks removed.
func (c *Client) Generate(ctx context.Context, r Request) (string, error) {
	model := r.Model
	if model == "" {
		model = c.defaultModel
	}
	if model == "" {
		return "", fmt.Errorf("%w: no model selected", ErrUnavailable)
	}

	body := generateRequest{
		Model:  model,
		Prompt: r.Prompt,
		System: r.System,
		Options: map[string]any{
			"temperature": r.Temperature,
		},
	}
	if r.JSON {
		body.Format = "json"
	}
	if r.MaxTokens > 0 {
		body.Options["num_predict"] = r.MaxTokens
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling generate request: %w", err)
	}

	if err := c.slot.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.slot.Release(1)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.observe(r.Task, metrics.OutcomeFailed, start)
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.observe(r.Task, metrics.OutcomeFailed, start)
		return "", fmt.Errorf("%w: generate returned %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		c.observe(r.Task, metrics.OutcomeFailed, start)
		return "", fmt.Errorf("%w: decoding generate response: %w", ErrUnavailable, err)
	}
	if gr.Error != "" {
		c.observe(r.Task, metrics.OutcomeFailed, start)
		return "", fmt.Errorf("%w: %s", ErrUnavailable, gr.Error)
	}

	c.observe(r.Task, metrics.OutcomeOK, start)
	c.log.DebugContext(ctx, "generation finished", "task", r.Task, "model", model, "elapsed", time.Since(start))
	return StripThinking(gr.Response), nil
}

// GenerateJSON runs a JSON-constrained completion and decodes the first
// JSON object in the output into v. Undecodable output yields *ParseError.
func (c *Client) GenerateJSON(ctx context.Context, r Request, v any) error {
	r.JSON = true
	text, err := c.Generate(ctx, r)
	if err != nil {
		return err
	}
	if err := DecodeJSON(text, v); err != nil {
		c.metrics.ObserveLLM(r.Task, metrics.OutcomeParseFailed)
		return err
	}
	return nil
}

func (c *Client) observe(task, outcome string, start time.Time) {
	if task == "" {
		task = "generate"
	}
	c.metrics.ObserveLLM(task, outcome)
	c.metrics.ObserveUpstream("ollama", "generate", outcome, time.Since(start))
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// ListModels returns the models installed on the server.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("creating tags request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: tags returned %d", ErrUnavailable, resp.StatusCode)
	}

	var tr tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decoding tags response: %w", err)
	}
	models := make([]string, 0, len(tr.Models))
	for _, m := range tr.Models {
		name := m.Model
		if name == "" {
			name = m.Name
		}
		if name != "" {
			models = append(models, name)
		}
	}
	return models, nil
}

// Status describes model server reachability.
type Status struct {
	Connected      bool     `json:"connected"`
	Models         []string `json:"available_models"`
	CurrentModel   string   `json:"current_model"`
	ModelAvailable bool     `json:"model_available"`
	Error          string   `json:"error,omitempty"`
}

// Check reports whether the server is reachable and whether model is installed.
func (c *Client) Check(ctx context.Context, model string) Status {
	if model == "" {
		model = c.defaultModel
	}
	st := Status{CurrentModel: model}
	models, err := c.ListModels(ctx)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Connected = true
	st.Models = models
	for _, m := range models {
		if m == model {
			st.ModelAvailable = true
			break
		}
	}
	return st
}

var (
	thinkBlock = regexp.MustCompile(`(?is)<think(?:ing)?>.*?</think(?:ing)?>`)
	thinkOpen  = regexp.MustCompile(`(?i)<think(?:ing)?>`)
	thinkClose = regexp.MustCompile(`(?i)</think(?:ing)?>`)
)

// StripThinking removes reasoning blocks emitted by thinking models. Text
// before a dangling closing tag is dropped too, and an unterminated opening
// tag discards everything after it.
func StripThinking(s string) string {
	s = thinkBlock.ReplaceAllString(s, "")
	if locs := thinkClose.FindAllStringIndex(s, -1); len(locs) > 0 {
		s = s[locs[len(locs)-1][1]:]
	}
	if loc := thinkOpen.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return strings.TrimSpace(s)
}

// DecodeJSON decodes the outermost JSON object found in text into v.
func DecodeJSON(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return &ParseError{Raw: text, Err: errors.New("no JSON object in output")}
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return &ParseError{Raw: text, Err: err}
	}
	return nil
}
