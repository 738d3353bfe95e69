package visuals

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"echoai/internal/logging"
	"echoai/internal/services"
	"echoai/internal/storyboard"
)

// Fetcher downloads one image for a keyword into destPath.
type Fetcher interface {
	Name() string
	Available(ctx context.Context) bool
	Fetch(ctx context.Context, keyword, destPath string) error
}

// SourceRequest describes one job's image needs.
type SourceRequest struct {
	Narration string
	Count     int
	DestDir   string
	UseStored bool
}

// Source runs the image provider chain with per-job deduplication.
type Source struct {
	fetchers  []Fetcher
	storedDir string
	logger    *slog.Logger
}

// NewSource builds the image source. storedDir is the local pool consulted
// when a request sets UseStored.
func NewSource(logger *slog.Logger, storedDir string, fetchers ...Fetcher) *Source {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Source{
		fetchers:  fetchers,
		storedDir: storedDir,
		logger:    logger.With(logging.String(logging.FieldComponent, "visuals")),
	}
}

// Fetch sources the requested number of images. Stored mode never touches the
// network; an empty pool is ProviderExhausted with no fallback. Network mode
// walks keywords round-robin through the fetcher chain, deduplicating by
// content hash so one job never repeats an image.
func (s *Source) Fetch(ctx context.Context, req SourceRequest) ([]storyboard.Image, error) {
	if req.Count <= 0 {
		return nil, services.Wrap(services.ErrValidation, "visuals", "fetch",
			"Image count must be positive", nil)
	}
	if req.UseStored {
		return s.fromStoredPool(req)
	}
	if err := os.MkdirAll(req.DestDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "visuals", "fetch",
			"Unable to create image directory", err)
	}

	keywords := extractKeywords(req.Narration, req.Count)
	if len(keywords) == 0 {
		keywords = fallbackKeywords
	}

	seen := make(map[string]struct{})
	images := make([]storyboard.Image, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		keyword := keywords[i%len(keywords)]
		destPath := filepath.Join(req.DestDir, fmt.Sprintf("image_%03d.jpg", i))

		image, ok := s.fetchOne(ctx, keyword, destPath, seen)
		if !ok {
			// Generic keyword as the last resort for this slot.
			fallback := fallbackKeywords[i%len(fallbackKeywords)]
			image, ok = s.fetchOne(ctx, fallback, destPath, seen)
		}
		if ok {
			images = append(images, image)
		}
	}

	if len(images) == 0 {
		return nil, services.Wrap(services.ErrProviderExhausted, "visuals", "fetch",
			"All image providers failed for every keyword", nil)
	}
	return images, nil
}

func (s *Source) fetchOne(ctx context.Context, keyword, destPath string, seen map[string]struct{}) (storyboard.Image, bool) {
	for _, fetcher := range s.fetchers {
		if ctx.Err() != nil {
			return storyboard.Image{}, false
		}
		if !fetcher.Available(ctx) {
			continue
		}
		if err := fetcher.Fetch(ctx, keyword, destPath); err != nil {
			s.logger.Warn("image fetch failed",
				logging.String(logging.FieldProvider, fetcher.Name()),
				logging.String("keyword", keyword),
				logging.Error(err))
			continue
		}
		hash, err := hashFile(destPath)
		if err != nil {
			s.logger.Warn("image hash failed", logging.Error(err))
			continue
		}
		if _, duplicate := seen[hash]; duplicate {
			os.Remove(destPath)
			continue
		}
		seen[hash] = struct{}{}
		return storyboard.Image{Path: destPath, Provider: fetcher.Name()}, true
	}
	return storyboard.Image{}, false
}

// fromStoredPool serves images from the local asset directory without any
// network side effects.
func (s *Source) fromStoredPool(req SourceRequest) ([]storyboard.Image, error) {
	entries, err := os.ReadDir(s.storedDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, services.Wrap(services.ErrTransient, "visuals", "stored pool",
			"Unable to read stored asset pool", err)
	}

	images := make([]storyboard.Image, 0, req.Count)
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		images = append(images, storyboard.Image{
			Path:     filepath.Join(s.storedDir, entry.Name()),
			Provider: "stored",
			Stored:   true,
		})
		if len(images) == req.Count {
			break
		}
	}
	if len(images) == 0 {
		return nil, services.Wrap(services.ErrProviderExhausted, "visuals", "stored pool",
			"Stored asset pool is empty", nil)
	}
	return images, nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}

func hashFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// HealthCheck reports whether at least one network fetcher is configured.
func (s *Source) HealthCheck(ctx context.Context) error {
	for _, fetcher := range s.fetchers {
		if fetcher.Available(ctx) {
			return nil
		}
	}
	return fmt.Errorf("no image provider available")
}
