package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gonfdez/minipc-agent/internal/cleaning"
)

// DefaultSettleDelay is how long the converter waits after page load for
// client-side rendering to finish.
const DefaultSettleDelay = 3 * time.Second

// Converter fetches a page through a browser session, cleans it, and caches
// the cleaned content under <outputRoot>/<brand>/<slug>.html.
type Converter struct {
	driver      Driver
	cleaner     *cleaning.Cleaner
	outputRoot  string
	settleDelay time.Duration
	logger      *slog.Logger
}

// Config configures a Converter.
type Config struct {
	Driver      Driver
	Cleaner     *cleaning.Cleaner
	OutputRoot  string
	SettleDelay time.Duration
	Logger      *slog.Logger
}

// NewConverter creates a Converter.
func NewConverter(cfg Config) *Converter {
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Converter{
		driver:      cfg.Driver,
		cleaner:     cfg.Cleaner,
		outputRoot:  cfg.OutputRoot,
		settleDelay: cfg.SettleDelay,
		logger:      cfg.Logger.With("component", "converter"),
	}
}

// Slug derives a deterministic filesystem-safe name from a URL: every
// character that is not alphanumeric or a hyphen is dropped, leading and
// trailing separators are trimmed, and an empty result falls back to
// "index". Distinct URLs that differ only in dropped characters collapse to
// the same slug; such collisions share a cache entry, last write wins.
func Slug(url string) string {
	var sb strings.Builder
	for _, r := range url {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			sb.WriteRune(r)
		}
	}
	slug := strings.Trim(sb.String(), "-_")
	if slug == "" {
		return "index"
	}
	return slug
}

// CachePath returns the cleaned-content cache path for a target.
func (c *Converter) CachePath(url, brand string) string {
	return filepath.Join(c.outputRoot, brand, Slug(url)+".html")
}

// IsAlreadyProcessed reports whether cleaned content for this target already
// exists on disk. This is the pipeline's idempotence check.
func (c *Converter) IsAlreadyProcessed(url, brand string) bool {
	_, err := os.Stat(c.CachePath(url, brand))
	return err == nil
}

// Convert returns cleaned content for a target. A cache hit is read back
// without touching the network; otherwise the page is rendered through the
// browser session, cleaned, and cached. A cache write failure is logged but
// the in-memory content is still returned.
func (c *Converter) Convert(ctx context.Context, url, brand string) (string, error) {
	cachePath := c.CachePath(url, brand)
	if data, err := os.ReadFile(cachePath); err == nil {
		c.logger.Debug("cache hit", "url", url, "path", cachePath)
		return string(data), nil
	}

	rawHTML, err := c.render(ctx, url)
	if err != nil {
		return "", err
	}

	result := c.cleaner.Clean(ctx, rawHTML)
	if result.Degraded {
		c.logger.Warn("cleaning degraded, using raw content", "url", url, "issues", len(result.Issues))
	}
	for _, issue := range result.Issues {
		c.logger.Debug("cleaning issue", "url", url, "error", issue)
	}

	content := flatten(result.HTML)

	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		c.logger.Error("failed to create cache directory", "path", filepath.Dir(cachePath), "error", err)
	} else if err := os.WriteFile(cachePath, []byte(content), 0644); err != nil {
		c.logger.Error("failed to write cleaned content", "path", cachePath, "error", err)
	}

	return content, nil
}

// render drives the browser session through the four-call contract.
func (c *Converter) render(ctx context.Context, url string) (string, error) {
	if err := c.driver.Navigate(ctx, url); err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if err := c.driver.WaitReady(ctx); err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if err := c.driver.Sleep(ctx, c.settleDelay); err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	html, err := c.driver.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	return html, nil
}

// flatten collapses blank lines, tabs, and multi-spaces and joins everything
// onto a single line. The extractor consumes compacted HTML, not Markdown.
func flatten(content string) string {
	content = strings.ReplaceAll(content, "\t", " ")
	content = strings.ReplaceAll(content, "\r", " ")
	content = strings.ReplaceAll(content, "\n", " ")
	for strings.Contains(content, "  ") {
		content = strings.ReplaceAll(content, "  ", " ")
	}
	return strings.TrimSpace(content)
}
