// Package images downloads remote images to local storage, detects their
// format and pixel dimensions, and cleans up temporary files.
package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	// Register decoders for dimension probing.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"

	"github.com/gonfdez/minipc-agent/internal/fetch"
)

// knownExtensions are the image file extensions we recognize on URL paths.
// A URL-derived extension wins over the content-type-derived one when both
// are present and disagree.
var knownExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".avif": true,
	".bmp":  true,
}

// Size holds pixel dimensions of a downloaded image.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Result describes a downloaded image file.
type Result struct {
	LocalPath   string `json:"local_path"`
	Extension   string `json:"extension"`
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name"`
	Size        Size   `json:"size"`
}

// NotAnImageError is returned when content-type validation rejects a download.
type NotAnImageError struct {
	URL         string
	ContentType string
}

func (e *NotAnImageError) Error() string {
	return fmt.Sprintf("not an image: %s returned content-type %q", e.URL, e.ContentType)
}

// FileSystemError represents a read/write/delete failure on local storage.
type FileSystemError struct {
	Path    string
	Message string
	Cause   error
}

func (e *FileSystemError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("filesystem error at %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("filesystem error at %s: %s", e.Path, e.Message)
}

func (e *FileSystemError) Unwrap() error {
	return e.Cause
}

// Fetcher downloads images into an output directory.
type Fetcher struct {
	outputDir           string
	options             *fetch.Options
	validateContentType bool
	logger              *slog.Logger
}

// Config configures a Fetcher.
type Config struct {
	OutputDir           string
	ValidateContentType bool
	Options             *fetch.Options
	Logger              *slog.Logger
}

// NewFetcher creates an image fetcher writing into cfg.OutputDir.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Options == nil {
		cfg.Options = fetch.DefaultOptions()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Fetcher{
		outputDir:           cfg.OutputDir,
		options:             cfg.Options,
		validateContentType: cfg.ValidateContentType,
		logger:              cfg.Logger.With("component", "image_fetcher"),
	}
}

// Fetch downloads the image at rawURL to a uniquely named file in the output
// directory and probes its pixel dimensions. A failed dimension probe yields
// a zero Size rather than an error; everything else fails loudly.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	result, err := fetch.URL(ctx, rawURL, f.options)
	if err != nil {
		return nil, err
	}

	contentType := result.ContentType
	if f.validateContentType && !strings.HasPrefix(contentType, "image/") {
		return nil, &NotAnImageError{URL: rawURL, ContentType: contentType}
	}

	ext := resolveExtension(rawURL, contentType)
	fileName := uuid.NewString() + ext
	localPath := filepath.Join(f.outputDir, fileName)

	if err := os.MkdirAll(f.outputDir, 0755); err != nil {
		return nil, &FileSystemError{Path: f.outputDir, Message: "failed to create output directory", Cause: err}
	}
	if err := os.WriteFile(localPath, result.Body, 0644); err != nil {
		return nil, &FileSystemError{Path: localPath, Message: "failed to write image", Cause: err}
	}

	size := probeSize(localPath)
	if size.Width == 0 && size.Height == 0 {
		f.logger.Debug("dimension probe failed", "url", rawURL, "path", localPath)
	}

	return &Result{
		LocalPath:   localPath,
		Extension:   ext,
		ContentType: contentType,
		FileName:    fileName,
		Size:        size,
	}, nil
}

// ProbeRemote downloads an image only to measure its dimensions, deleting the
// temporary file before returning. Used by the HTML cleaner to filter out
// small decorative images.
func (f *Fetcher) ProbeRemote(ctx context.Context, rawURL string) (Size, error) {
	result, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return Size{}, err
	}
	if err := f.Remove(result.LocalPath); err != nil {
		f.logger.Warn("failed to delete temporary image", "path", result.LocalPath, "error", err)
	}
	return result.Size, nil
}

// Remove deletes a single downloaded file. A file that is already absent is
// not an error.
func (f *Fetcher) Remove(localPath string) error {
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		return &FileSystemError{Path: localPath, Message: "failed to delete file", Cause: err}
	}
	return nil
}

// RemoveByPrefix deletes every file in the output directory whose name starts
// with prefix and returns the count deleted. A missing directory counts as
// zero deleted, not an error.
func (f *Fetcher) RemoveByPrefix(prefix string) (int, error) {
	entries, err := os.ReadDir(f.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, &FileSystemError{Path: f.outputDir, Message: "failed to read directory", Cause: err}
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		target := filepath.Join(f.outputDir, entry.Name())
		if err := os.Remove(target); err != nil {
			return deleted, &FileSystemError{Path: target, Message: "failed to delete file", Cause: err}
		}
		deleted++
	}
	return deleted, nil
}

// resolveExtension picks a file extension from the content type first, then
// from the URL path. The URL-derived extension wins when it is a known image
// extension and the two disagree.
func resolveExtension(rawURL, contentType string) string {
	var ctExt string
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			// Prefer the conventional spelling for JPEG.
			ctExt = exts[0]
			for _, e := range exts {
				if e == ".jpg" || e == ".png" || e == ".gif" || e == ".webp" {
					ctExt = e
					break
				}
			}
		}
	}

	var urlExt string
	if parsed, err := url.Parse(rawURL); err == nil {
		if ext := strings.ToLower(path.Ext(parsed.Path)); knownExtensions[ext] {
			urlExt = ext
		}
	}

	if urlExt != "" {
		return urlExt
	}
	if ctExt != "" {
		return ctExt
	}
	return ".img"
}

// probeSize reads back the written file and decodes its header for pixel
// dimensions. Failures yield a zero size.
func probeSize(localPath string) Size {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return Size{}
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Size{}
	}
	return Size{Width: cfg.Width, Height: cfg.Height}
}
