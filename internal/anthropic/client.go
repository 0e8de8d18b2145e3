package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ledger/internal/extract"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"

	// DefaultModel is the extraction model. Haiku is cheap enough to run per
	// chunk and strong enough for structured extraction.
	DefaultModel = "claude-3-5-haiku-20241022"

	defaultMaxTokens      = 3000
	defaultMaxRetries     = 3
	defaultBaseDelay      = 1 * time.Second
	defaultMaxDelay       = 30 * time.Second
	defaultConnectTimeout = 30 * time.Second
	defaultReadTimeout    = 90 * time.Second
)

// Config carries the tunables for a Client. Zero fields fall back to
// defaults; only APIKey is mandatory.
type Config struct {
	APIKey         string
	Model          string
	BaseURL        string
	MaxTokens      int
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// OnRetry, when non-nil, is called once per retried attempt.
	OnRetry func()
}

// Client calls the model's messages endpoint with deterministic generation
// parameters and a bounded exponential-backoff retry policy. It implements
// extract.ModelClient.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        zerolog.Logger
}

var _ extract.ModelClient = (*Client)(nil)

// NewClient builds a client. The connect timeout is short and lives on the
// dialer; the read timeout is long (it must outlast worst-case model latency)
// and lives on the http.Client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.ReadTimeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
				TLSHandshakeTimeout: cfg.ConnectTimeout,
			},
		},
		log: log,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage *extract.Usage `json:"usage"`
}

// Extract sends one chunk to the model, retrying transient failures up to
// MaxRetries total attempts. Connection failures, timeouts, 429 and 529 are
// retried; 400, 401 and response-shape problems are not. After exhaustion the
// last error is returned as the chunk's terminal failure.
func (c *Client) Extract(ctx context.Context, chunkText string) (*extract.ModelResponse, error) {
	var resp *extract.ModelResponse

	operation := func() error {
		r, err := c.doRequest(ctx, chunkText)
		if err != nil {
			return classify(ctx, err)
		}
		resp = r
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(newAttemptBackoff(c.cfg.BaseDelay, c.cfg.MaxDelay), uint64(c.cfg.MaxRetries-1)),
		ctx,
	)

	notify := func(err error, delay time.Duration) {
		if c.cfg.OnRetry != nil {
			c.cfg.OnRetry()
		}
		c.log.Warn().Err(err).Dur("retry_in", delay).Msg("Transient model API failure, retrying")
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	return resp, nil
}

// classify maps an error onto the retry policy: permanent errors are wrapped
// so backoff stops immediately, everything else is handed back for retry.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(err)
	}

	switch e := err.(type) {
	case *APIError:
		if e.Transient() {
			return err
		}
		return backoff.Permanent(err)
	default:
		// Transport-level failure: connection refused, dial timeout, read
		// timeout. All transient.
		return err
	}
}

// doRequest performs one POST to the messages endpoint and classifies the
// outcome. A nil error means a usable text reply.
func (c *Client) doRequest(ctx context.Context, chunkText string) (*extract.ModelResponse, error) {
	reqBody := messagesRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: 0,
		Messages: []message{
			{Role: "user", Content: extract.BuildPrompt(chunkText)},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model API request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read model API response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Body: string(body)}
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode model API response: %w", err))
	}

	if len(parsed.Content) == 0 {
		return nil, backoff.Permanent(ErrNoContent)
	}
	if parsed.Content[0].Text == "" {
		return nil, backoff.Permanent(ErrEmptyText)
	}

	return &extract.ModelResponse{
		Text:  parsed.Content[0].Text,
		Usage: parsed.Usage,
	}, nil
}
