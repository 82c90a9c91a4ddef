package llm

import (
	"context"
	"fmt"
	"strings"
)

// ImageCaptioner generates short descriptive alt text for product images by
// asking the configured model about an image URL. Failures are expected to be
// non-fatal to callers.
type ImageCaptioner struct {
	client Client
	prompt string
}

// NewImageCaptioner wraps a Client with the captioning instruction.
func NewImageCaptioner(client Client, prompt string) *ImageCaptioner {
	return &ImageCaptioner{client: client, prompt: prompt}
}

// Caption returns a one-line description for the image at imageURL.
func (c *ImageCaptioner) Caption(ctx context.Context, imageURL string) (string, error) {
	reply, err := c.client.Complete(ctx, c.prompt, imageURL)
	if err != nil {
		return "", fmt.Errorf("caption %s: %w", imageURL, err)
	}
	caption := strings.TrimSpace(reply)
	if caption == "" {
		return "", fmt.Errorf("caption %s: empty reply", imageURL)
	}
	// Keep attribute values single-line.
	caption = strings.ReplaceAll(caption, "\n", " ")
	return caption, nil
}
