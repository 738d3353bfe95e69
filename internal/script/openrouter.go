package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"echoai/internal/config"
	"echoai/internal/storyboard"
)

const (
	defaultOpenRouterURL  = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout    = 30 * time.Second
	defaultRetryAttempts  = 4
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

// OpenRouter generates scripts through the OpenRouter chat-completions API.
type OpenRouter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client

	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	sleeper        func(time.Duration)
}

// OpenRouterOption customizes the provider.
type OpenRouterOption func(*OpenRouter)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) OpenRouterOption {
	return func(o *OpenRouter) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithRetry overrides the retry attempt count and backoff delays.
func WithRetry(attempts int, baseDelay, maxDelay time.Duration) OpenRouterOption {
	return func(o *OpenRouter) {
		o.retryAttempts = attempts
		o.retryBaseDelay = baseDelay
		o.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) OpenRouterOption {
	return func(o *OpenRouter) {
		o.sleeper = sleeper
	}
}

// NewOpenRouter constructs the primary script provider from configuration.
func NewOpenRouter(cfg config.Script, opts ...OpenRouterOption) *OpenRouter {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	provider := &OpenRouter{
		apiKey:         strings.TrimSpace(cfg.APIKey),
		baseURL:        strings.TrimSpace(cfg.BaseURL),
		model:          strings.TrimSpace(cfg.Model),
		httpClient:     &http.Client{Timeout: timeout},
		retryAttempts:  defaultRetryAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(provider)
	}
	if provider.baseURL == "" {
		provider.baseURL = defaultOpenRouterURL
	}
	return provider
}

// Name identifies the provider in logs and the storyboard record.
func (o *OpenRouter) Name() string { return "openrouter" }

// Available reports whether the provider is configured with an API key.
func (o *OpenRouter) Available(context.Context) bool { return o.apiKey != "" }

// Generate requests a beat-structured script in JSON mode.
func (o *OpenRouter) Generate(ctx context.Context, req Request) (storyboard.Script, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return storyboard.Script{}, err
	}
	payload := chatCompletionRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    0.8,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	content, err := o.completeWithRetry(ctx, payload)
	if err != nil {
		return storyboard.Script{}, err
	}

	var parsed struct {
		Beats []string `json:"beats"`
	}
	if err := decodeModelJSON(content, &parsed); err != nil {
		return storyboard.Script{}, fmt.Errorf("openrouter: parse payload: %w", err)
	}
	beats := assembleBeats(parsed.Beats)
	if len(beats) == 0 {
		return storyboard.Script{}, errors.New("openrouter: response contained no beats")
	}
	return storyboard.Script{Beats: beats}, nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("openrouter request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (o *OpenRouter) completeWithRetry(ctx context.Context, payload chatCompletionRequest) (string, error) {
	attempts := o.retryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		content, err := o.sendOnce(ctx, payload)
		if err == nil {
			return content, nil
		}
		delay, retry := o.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return "", err
		}
		if err := o.sleep(ctx, delay); err != nil {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("openrouter: failed after %d attempts: %w", attempts, lastErr)
}

func (o *OpenRouter) sendOnce(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("openrouter request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("openrouter request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openrouter request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openrouter request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("openrouter request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("openrouter request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
		if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
			return "", fmt.Errorf("openrouter request: refusal: %s", refusal)
		}
	}
	return "", errors.New("openrouter request: empty choices")
}

func (o *OpenRouter) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return o.capDelay(statusErr.RetryAfter), true
			}
			return o.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return o.backoffDelay(attempt), true
	}
	return 0, false
}

// backoffDelay doubles per attempt: base, base*2, base*4, capped at maxDelay.
func (o *OpenRouter) backoffDelay(attempt int) time.Duration {
	delay := o.retryBaseDelay
	if delay <= 0 {
		return 0
	}
	for i := 1; i < attempt; i++ {
		if delay > o.retryMaxDelay/2 {
			return o.retryMaxDelay
		}
		delay *= 2
	}
	return o.capDelay(delay)
}

func (o *OpenRouter) capDelay(delay time.Duration) time.Duration {
	if o.retryMaxDelay > 0 && delay > o.retryMaxDelay {
		return o.retryMaxDelay
	}
	if delay < 0 {
		return 0
	}
	return delay
}

func (o *OpenRouter) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if o.sleeper != nil {
		o.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay > 0 {
			return delay, true
		}
	}
	return 0, false
}

// decodeModelJSON decodes JSON from a model response, tolerating code fences
// and leading prose around the payload.
func decodeModelJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	if err := json.Unmarshal([]byte(trimmed), target); err == nil {
		return nil
	}
	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" {
		return errors.New("no JSON payload found")
	}
	return json.Unmarshal([]byte(sanitized), target)
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		body := strings.TrimLeft(trimmed[3:], " \t\r\n")
		if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
			body = strings.TrimLeft(body[4:], " \t\r\n")
		}
		if idx := strings.LastIndex(body, "```"); idx >= 0 {
			body = body[:idx]
		}
		trimmed = strings.TrimSpace(body)
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return ""
}
