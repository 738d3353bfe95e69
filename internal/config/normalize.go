package config

import (
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() {
	c.StagingDir = expandPath(c.StagingDir)
	c.LibraryDir = expandPath(c.LibraryDir)
	c.LogDir = expandPath(c.LogDir)
	c.AssetsDir = expandPath(c.AssetsDir)

	c.Script.Providers = normalizeList(c.Script.Providers)
	c.Voice.Providers = normalizeList(c.Voice.Providers)
	c.Images.Providers = normalizeList(c.Images.Providers)

	if c.Script.APIKey == "" {
		c.Script.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if c.Voice.ElevenLabsAPIKey == "" {
		c.Voice.ElevenLabsAPIKey = os.Getenv("ELEVENLABS_API_KEY")
	}
	if c.Images.PexelsAPIKey == "" {
		c.Images.PexelsAPIKey = os.Getenv("PEXELS_API_KEY")
	}
	if c.Images.UnsplashAccessKey == "" {
		c.Images.UnsplashAccessKey = os.Getenv("UNSPLASH_ACCESS_KEY")
	}
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func expandPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			if path == "~" {
				return home
			}
			return filepath.Join(home, path[2:])
		}
	}
	return filepath.Clean(path)
}
