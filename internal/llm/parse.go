package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseFailureReason classifies why a model reply could not be parsed.
type ParseFailureReason string

// Parse failure reasons.
const (
	// ReasonEmptyResponse means the reply contained no content at all.
	ReasonEmptyResponse ParseFailureReason = "empty_response"
	// ReasonInvalidJSON means neither the fenced block nor the full text
	// parsed as JSON.
	ReasonInvalidJSON ParseFailureReason = "invalid_json"
	// ReasonNotAnObject means the reply parsed but is not a JSON object.
	ReasonNotAnObject ParseFailureReason = "not_an_object"
)

// ParseError reports a failure to extract a JSON object from a model reply.
type ParseError struct {
	Reason ParseFailureReason
	Cause  error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("response parse error (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("response parse error (%s)", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ParseJSONResponse extracts a JSON object from a model reply. Precedence:
// text that is already a bare JSON object, then the first ``` fence pair
// (optionally labeled json), then the whole text as a last resort. The result
// must be a JSON object; anything else is a typed failure.
func ParseJSONResponse(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &ParseError{Reason: ReasonEmptyResponse}
	}

	// Bare object first: models instructed to return raw JSON usually comply.
	if strings.HasPrefix(trimmed, "{") {
		if obj, err := decodeObject(trimmed); err == nil {
			return obj, nil
		}
	}

	// Fenced block embedded in surrounding prose.
	if fenced, ok := extractFencedBlock(trimmed); ok {
		obj, err := decodeObject(fenced)
		if err != nil {
			return nil, err
		}
		return obj, nil
	}

	// Whole text as a last resort.
	return decodeObject(trimmed)
}

// extractFencedBlock returns the content between the first ``` fence pair,
// skipping an optional language label on the opening fence.
func extractFencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}
	rest := text[start+3:]

	// Drop the language label (e.g. "json") up to the first newline.
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		label := strings.TrimSpace(rest[:nl])
		if label == "" || !strings.ContainsAny(label, " {") {
			rest = rest[nl+1:]
		}
	}

	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func decodeObject(text string) (map[string]any, error) {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, &ParseError{Reason: ReasonInvalidJSON, Cause: err}
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, &ParseError{Reason: ReasonNotAnObject}
	}
	return obj, nil
}
