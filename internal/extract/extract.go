// Package extract turns cleaned page content into structured mini-PC records
// via a language model call.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gonfdez/minipc-agent/internal/convert"
	"github.com/gonfdez/minipc-agent/internal/llm"
	"github.com/gonfdez/minipc-agent/internal/prompts"
	"github.com/gonfdez/minipc-agent/internal/schemas"
	"github.com/gonfdez/minipc-agent/internal/types"
)

// ExtractionError represents a failure to produce a valid record for a target.
type ExtractionError struct {
	URL     string
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction error for %s: %s", e.URL, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Extractor sends cleaned content to a language model and parses the reply
// into a MiniPC record.
type Extractor struct {
	client       llm.Client
	systemPrompt string
	outputRoot   string
	logger       *slog.Logger
}

// Config configures an Extractor. SystemPrompt defaults to the embedded
// extraction instruction.
type Config struct {
	Client       llm.Client
	SystemPrompt string
	OutputRoot   string
	Logger       *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(cfg Config) *Extractor {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = prompts.MustGet("extraction.json", "system")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Extractor{
		client:       cfg.Client,
		systemPrompt: cfg.SystemPrompt,
		outputRoot:   cfg.OutputRoot,
		logger:       cfg.Logger.With("component", "extractor"),
	}
}

// OutputPath returns where the extracted JSON for a target is written.
func (e *Extractor) OutputPath(url, brand string) string {
	return filepath.Join(e.outputRoot, brand, convert.Slug(url)+".json")
}

// Extract asks the model to structure the cleaned content of one target.
// Whatever the model returned is written to disk before validation, so
// partial or invalid output survives for offline inspection. On success the
// record is augmented with the target's brand and URL and marked as scraped
// rather than hand-entered.
func (e *Extractor) Extract(ctx context.Context, url, brand, content string) (*types.MiniPC, error) {
	reply, err := e.client.Complete(ctx, e.systemPrompt, content)
	if err != nil {
		return nil, &ExtractionError{URL: url, Message: "model call failed", Cause: err}
	}

	obj, parseErr := llm.ParseJSONResponse(reply)
	if parseErr != nil {
		// Keep the unparseable reply on disk for inspection.
		e.persistRaw(url, brand, []byte(reply))
		return nil, &ExtractionError{URL: url, Message: "unparseable model reply", Cause: parseErr}
	}

	if data, err := json.MarshalIndent(obj, "", "  "); err == nil {
		e.persistRaw(url, brand, data)
	}

	if err := schemas.ValidateMiniPC(obj); err != nil {
		return nil, &ExtractionError{URL: url, Message: "invalid extraction", Cause: err}
	}

	record, err := decodeRecord(obj)
	if err != nil {
		return nil, &ExtractionError{URL: url, Message: "invalid extraction", Cause: err}
	}

	record.Brand = brand
	record.FromURL = url
	record.ManualCollect = false

	if err := record.Validate(); err != nil {
		return nil, &ExtractionError{URL: url, Message: "invalid extraction", Cause: err}
	}

	return record, nil
}

// persistRaw writes model output to the per-target JSON path. Failures are
// logged, never fatal: the output file is a debugging aid.
func (e *Extractor) persistRaw(url, brand string, data []byte) {
	outPath := e.OutputPath(url, brand)
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		e.logger.Error("failed to create output directory", "path", filepath.Dir(outPath), "error", err)
		return
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		e.logger.Error("failed to write extraction output", "path", outPath, "error", err)
	}
}

// decodeRecord converts the raw JSON object into the typed record.
func decodeRecord(obj map[string]any) (*types.MiniPC, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("re-encode extraction: %w", err)
	}
	var record types.MiniPC
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode extraction: %w", err)
	}
	return &record, nil
}
