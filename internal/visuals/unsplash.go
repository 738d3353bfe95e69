package visuals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultUnsplashURL = "https://api.unsplash.com"

// Unsplash fetches stock photos from the Unsplash search API.
type Unsplash struct {
	accessKey  string
	baseURL    string
	httpClient *http.Client
}

// NewUnsplash constructs the secondary image fetcher.
func NewUnsplash(accessKey string, timeoutSeconds int) *Unsplash {
	timeout := defaultImageTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &Unsplash{
		accessKey:  strings.TrimSpace(accessKey),
		baseURL:    defaultUnsplashURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithBaseURL points the fetcher at a different endpoint (tests).
func (u *Unsplash) WithBaseURL(baseURL string) *Unsplash {
	if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
		u.baseURL = strings.TrimRight(trimmed, "/")
	}
	return u
}

// Name identifies the provider on sourced assets.
func (u *Unsplash) Name() string { return "unsplash" }

// Available reports whether an access key is configured.
func (u *Unsplash) Available(context.Context) bool { return u.accessKey != "" }

// Fetch searches portrait photos for the keyword and downloads the first hit.
// The download-location ping required by the Unsplash API terms is fired
// best-effort after a successful save.
func (u *Unsplash) Fetch(ctx context.Context, keyword, destPath string) error {
	query := url.Values{
		"query":          {keyword},
		"orientation":    {"portrait"},
		"per_page":       {"20"},
		"content_filter": {"high"},
	}
	endpoint := u.baseURL + "/search/photos?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("unsplash search: new request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+u.accessKey)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("unsplash search: http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unsplash search: http %d", resp.StatusCode)
	}

	var parsed struct {
		Results []struct {
			ID   string `json:"id"`
			URLs struct {
				Regular string `json:"regular"`
			} `json:"urls"`
			Links struct {
				DownloadLocation string `json:"download_location"`
			} `json:"links"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("unsplash search: decode response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return fmt.Errorf("unsplash search: no photos for %q", keyword)
	}

	authHeader := http.Header{"Authorization": {"Client-ID " + u.accessKey}}
	for _, photo := range parsed.Results {
		if photo.URLs.Regular == "" {
			continue
		}
		if err := downloadImage(ctx, u.httpClient, photo.URLs.Regular, destPath, nil); err != nil {
			continue
		}
		if photo.Links.DownloadLocation != "" {
			u.pingDownloadLocation(ctx, photo.Links.DownloadLocation, authHeader)
		}
		return nil
	}
	return fmt.Errorf("unsplash: no downloadable photo for %q", keyword)
}

func (u *Unsplash) pingDownloadLocation(ctx context.Context, location string, header http.Header) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return
	}
	req.Header = header.Clone()
	if resp, err := u.httpClient.Do(req); err == nil {
		resp.Body.Close()
	}
}
