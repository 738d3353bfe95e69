package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"echoai/internal/storyboard"
)

const defaultPollinationsTextURL = "https://text.pollinations.ai"

// Pollinations generates scripts through the keyless pollinations.ai text
// endpoint. It needs no configuration, which makes it the free fallback.
type Pollinations struct {
	baseURL    string
	httpClient *http.Client
}

// NewPollinations constructs the fallback script provider.
func NewPollinations(timeoutSeconds int) *Pollinations {
	timeout := defaultHTTPTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &Pollinations{
		baseURL:    defaultPollinationsTextURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithBaseURL points the provider at a different endpoint (used by tests).
func (p *Pollinations) WithBaseURL(baseURL string) *Pollinations {
	if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
		p.baseURL = strings.TrimRight(trimmed, "/")
	}
	return p
}

// Name identifies the provider in logs and the storyboard record.
func (p *Pollinations) Name() string { return "pollinations" }

// Available always reports true; the endpoint requires no key.
func (p *Pollinations) Available(context.Context) bool { return true }

// Generate fetches plain narration text and splits it into beats.
func (p *Pollinations) Generate(ctx context.Context, req Request) (storyboard.Script, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return storyboard.Script{}, err
	}
	// The text endpoint serves GET /{prompt} with the completion as the body.
	endpoint := p.baseURL + "/" + url.PathEscape(prompt+"\n\nRespond with the spoken script only.")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return storyboard.Script{}, fmt.Errorf("pollinations request: new request: %w", err)
	}
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return storyboard.Script{}, fmt.Errorf("pollinations request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return storyboard.Script{}, fmt.Errorf("pollinations request: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return storyboard.Script{}, fmt.Errorf("pollinations request: http %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	beats := assembleBeats(splitIntoBeats(string(body)))
	if len(beats) == 0 {
		return storyboard.Script{}, errors.New("pollinations: response contained no narration text")
	}
	return storyboard.Script{Beats: beats}, nil
}
