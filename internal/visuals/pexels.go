package visuals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"echoai/internal/textutil"
)

const (
	defaultPexelsURL = "https://api.pexels.com"
	// Responses smaller than this are error pages, not photos.
	minImageBytes = 5000

	defaultImageTimeout = 30 * time.Second
)

// Pexels fetches stock photos from the Pexels search API.
type Pexels struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewPexels constructs the primary image fetcher.
func NewPexels(apiKey string, timeoutSeconds int) *Pexels {
	timeout := defaultImageTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &Pexels{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultPexelsURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithBaseURL points the fetcher at a different endpoint (tests).
func (p *Pexels) WithBaseURL(baseURL string) *Pexels {
	if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
		p.baseURL = strings.TrimRight(trimmed, "/")
	}
	return p
}

// Name identifies the provider on sourced assets.
func (p *Pexels) Name() string { return "pexels" }

// Available reports whether an API key is configured.
func (p *Pexels) Available(context.Context) bool { return p.apiKey != "" }

// Fetch searches portrait photos for the keyword and downloads the best hit,
// ranked by alt-text relevance.
func (p *Pexels) Fetch(ctx context.Context, keyword, destPath string) error {
	query := url.Values{
		"query":       {keyword},
		"orientation": {"portrait"},
		"size":        {"large"},
		"per_page":    {"20"},
	}
	endpoint := p.baseURL + "/v1/search?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("pexels search: new request: %w", err)
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pexels search: http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pexels search: http %d", resp.StatusCode)
	}

	var parsed struct {
		Photos []struct {
			ID  int64  `json:"id"`
			Alt string `json:"alt"`
			Src struct {
				Portrait string `json:"portrait"`
			} `json:"src"`
		} `json:"photos"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("pexels search: decode response: %w", err)
	}
	if len(parsed.Photos) == 0 {
		return fmt.Errorf("pexels search: no photos for %q", keyword)
	}

	// Prefer photos whose alt text matches the keyword; the API's own order
	// breaks ties so alt-less results keep their ranking.
	reference := textutil.NewFingerprint(keyword)
	sort.SliceStable(parsed.Photos, func(i, j int) bool {
		return textutil.Similarity(reference, parsed.Photos[i].Alt) >
			textutil.Similarity(reference, parsed.Photos[j].Alt)
	})

	for _, photo := range parsed.Photos {
		if photo.Src.Portrait == "" {
			continue
		}
		if err := downloadImage(ctx, p.httpClient, photo.Src.Portrait, destPath, nil); err == nil {
			return nil
		}
	}
	return fmt.Errorf("pexels: no downloadable photo for %q", keyword)
}

// downloadImage saves a URL's body to destPath, rejecting undersized bodies.
func downloadImage(ctx context.Context, client *http.Client, imageURL, destPath string, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return err
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download image: http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("download image: read body: %w", err)
	}
	if len(body) < minImageBytes {
		return fmt.Errorf("download image: body too small (%d bytes)", len(body))
	}
	return os.WriteFile(destPath, body, 0o644)
}
