// Package cleaning strips non-content markup from raw vendor pages so the
// downstream extractor sees only meaningful HTML. Cleaning is best-effort:
// it never fails, but reports when it had to fall back to the raw input.
package cleaning

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/gonfdez/minipc-agent/internal/images"
)

// MinImageDimension is the pixel threshold below which images are treated as
// decorative and dropped. An image survives if either dimension reaches it.
const MinImageDimension = 400

// GeneratedAltAttr is the attribute carrying LLM-generated image descriptions.
const GeneratedAltAttr = "data-alt-generated"

// probeConcurrency bounds parallel image downloads during the size pass.
const probeConcurrency = 4

// denylistSelector matches structural and non-content elements removed wholesale.
const denylistSelector = "head, script, style, link, noscript, nav, header, footer, form, iframe, " +
	"[class*=ad-], [class*=-ad], [class*=advert], [class*=popup], [class*=cookie], [class*=banner], " +
	"[id*=advert], [id*=popup], [id*=cookie-banner]"

var (
	commentRe     = regexp.MustCompile(`(?s)<!--.*?-->`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	betweenTagsRe = regexp.MustCompile(`>\s+<`)
)

// SizeProber measures a remote image's pixel dimensions.
type SizeProber interface {
	ProbeRemote(ctx context.Context, rawURL string) (images.Size, error)
}

// Captioner generates a short description for a remote image. Failures are
// non-fatal to cleaning.
type Captioner interface {
	Caption(ctx context.Context, imageURL string) (string, error)
}

// Result is the outcome of a cleaning pass. When Degraded is true, HTML holds
// the original unmodified input and Issues explains why.
type Result struct {
	HTML     string
	Degraded bool
	Issues   []error
}

// Cleaner normalizes raw page markup.
type Cleaner struct {
	prober    SizeProber
	captioner Captioner
	logger    *slog.Logger
}

// Config configures a Cleaner. Prober and Captioner are optional: without a
// prober the image size filter is skipped, without a captioner no alt text is
// generated.
type Config struct {
	Prober    SizeProber
	Captioner Captioner
	Logger    *slog.Logger
}

// NewCleaner creates a Cleaner.
func NewCleaner(cfg Config) *Cleaner {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Cleaner{
		prober:    cfg.Prober,
		captioner: cfg.Captioner,
		logger:    cfg.Logger.With("component", "cleaner"),
	}
}

// Clean strips non-content elements, attributes, small images, and excess
// whitespace from rawHTML. It never returns an error: if anything goes wrong
// the original input is returned with Degraded set.
func (c *Cleaner) Clean(ctx context.Context, rawHTML string) Result {
	// Comments can embed markup that confuses the parser; drop them first.
	stripped := commentRe.ReplaceAllString(rawHTML, "")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(stripped))
	if err != nil {
		return Result{HTML: rawHTML, Degraded: true, Issues: []error{fmt.Errorf("failed to parse HTML: %w", err)}}
	}

	doc.Find(denylistSelector).Remove()

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		s.RemoveAttr("class")
		s.RemoveAttr("id")
		s.RemoveAttr("style")
	})

	issues := c.processImages(ctx, doc)

	body := doc.Find("body").First()
	pruneEmpty(body)

	html, err := body.Html()
	if err != nil {
		return Result{HTML: rawHTML, Degraded: true, Issues: append(issues, fmt.Errorf("failed to render HTML: %w", err))}
	}

	return Result{HTML: compactWhitespace(html), Issues: issues}
}

// imageCandidate pairs an <img> node with its normalized source URL.
type imageCandidate struct {
	sel *goquery.Selection
	url string
}

// processImages removes unusable or decorative images and annotates the
// survivors with generated alt text. Probe and caption calls for distinct
// images run concurrently; DOM mutation stays on the calling goroutine.
func (c *Cleaner) processImages(ctx context.Context, doc *goquery.Document) []error {
	var candidates []imageCandidate

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		normalized, usable := NormalizeImageURL(src)
		if !ok || !usable {
			s.Remove()
			return
		}
		s.SetAttr("src", normalized)
		candidates = append(candidates, imageCandidate{sel: s, url: normalized})
	})

	if len(candidates) == 0 || c.prober == nil {
		return nil
	}

	type probeOutcome struct {
		keep    bool
		caption string
		err     error
	}
	outcomes := make([]probeOutcome, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)
	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			size, err := c.prober.ProbeRemote(gctx, cand.url)
			if err != nil {
				outcomes[i] = probeOutcome{err: fmt.Errorf("probe %s: %w", cand.url, err)}
				return nil
			}
			if size.Width < MinImageDimension && size.Height < MinImageDimension {
				return nil
			}
			out := probeOutcome{keep: true}
			if c.captioner != nil {
				caption, err := c.captioner.Caption(gctx, cand.url)
				if err != nil {
					c.logger.Warn("caption generation failed", "url", cand.url, "error", err)
					out.err = fmt.Errorf("caption %s: %w", cand.url, err)
				} else {
					out.caption = caption
				}
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	var issues []error
	for i, cand := range candidates {
		out := outcomes[i]
		if out.err != nil {
			issues = append(issues, out.err)
		}
		if !out.keep {
			cand.sel.Remove()
			continue
		}
		if out.caption != "" {
			cand.sel.SetAttr(GeneratedAltAttr, out.caption)
		}
	}
	return issues
}

// NormalizeImageURL normalizes an image source and reports whether it is
// usable for extraction. SVGs, GIFs, data URIs, and empty sources are not.
// Protocol-relative URLs become https and query/fragment parts are stripped.
func NormalizeImageURL(src string) (string, bool) {
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(src, "data:") {
		return "", false
	}
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	if idx := strings.IndexAny(src, "?#"); idx >= 0 {
		src = src[:idx]
	}
	lower := strings.ToLower(src)
	if strings.HasSuffix(lower, ".svg") || strings.HasSuffix(lower, ".gif") {
		return "", false
	}
	return src, true
}

// pruneEmpty removes leaf elements with no children and no text, processing
// children before parents so newly emptied ancestors go in the same pass.
// Images and the body element itself are kept.
func pruneEmpty(s *goquery.Selection) {
	s.Children().Each(func(_ int, child *goquery.Selection) {
		pruneEmpty(child)
	})
	node := goquery.NodeName(s)
	if node == "img" || node == "body" {
		return
	}
	if s.Children().Length() == 0 && strings.TrimSpace(s.Text()) == "" {
		s.Remove()
	}
}

// compactWhitespace collapses whitespace runs, removes whitespace between
// tags, and strips any comments the renderer re-introduced.
func compactWhitespace(html string) string {
	html = commentRe.ReplaceAllString(html, "")
	html = whitespaceRe.ReplaceAllString(html, " ")
	html = betweenTagsRe.ReplaceAllString(html, "><")
	return strings.TrimSpace(html)
}
