package cleaning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonfdez/minipc-agent/internal/images"
)

// fakeProber returns a fixed size per URL.
type fakeProber struct {
	sizes map[string]images.Size
	errs  map[string]error
}

func (p *fakeProber) ProbeRemote(_ context.Context, rawURL string) (images.Size, error) {
	if err, ok := p.errs[rawURL]; ok {
		return images.Size{}, err
	}
	return p.sizes[rawURL], nil
}

type fakeCaptioner struct {
	caption string
	err     error
	calls   []string
}

func (c *fakeCaptioner) Caption(_ context.Context, imageURL string) (string, error) {
	c.calls = append(c.calls, imageURL)
	return c.caption, c.err
}

func TestClean_RemovesDenylistedTags(t *testing.T) {
	input := `<html><head><title>t</title></head><body>
		<nav>site navigation</nav>
		<script>var x = 1;</script>
		<p>Mini PC with Ryzen 7</p>
		<footer>copyright junk</footer>
	</body></html>`

	c := NewCleaner(Config{})
	result := c.Clean(context.Background(), input)

	require.False(t, result.Degraded)
	assert.Contains(t, result.HTML, "Ryzen 7")
	assert.NotContains(t, result.HTML, "site navigation")
	assert.NotContains(t, result.HTML, "var x = 1")
	assert.NotContains(t, result.HTML, "copyright junk")
}

func TestClean_StripsAttributesAndComments(t *testing.T) {
	input := `<body><!-- hidden --><div class="hero" id="main" style="color:red"><p>Spec sheet</p></div></body>`

	c := NewCleaner(Config{})
	result := c.Clean(context.Background(), input)

	assert.NotContains(t, result.HTML, "class=")
	assert.NotContains(t, result.HTML, "id=")
	assert.NotContains(t, result.HTML, "style=")
	assert.NotContains(t, result.HTML, "<!--")
	assert.Contains(t, result.HTML, "Spec sheet")
}

func TestClean_PrunesEmptyLeavesRecursively(t *testing.T) {
	input := `<body><div><span></span></div><p>kept</p></body>`

	c := NewCleaner(Config{})
	result := c.Clean(context.Background(), input)

	// The span is empty, and removing it empties the div too.
	assert.NotContains(t, result.HTML, "<span>")
	assert.NotContains(t, result.HTML, "<div>")
	assert.Contains(t, result.HTML, "kept")
}

func TestClean_ImageSizeFilter(t *testing.T) {
	input := `<body>
		<img src="https://cdn.example.com/big.png">
		<img src="https://cdn.example.com/icon.png">
		<p>text</p>
	</body>`

	prober := &fakeProber{sizes: map[string]images.Size{
		"https://cdn.example.com/big.png":  {Width: 500, Height: 500},
		"https://cdn.example.com/icon.png": {Width: 300, Height: 300},
	}}
	captioner := &fakeCaptioner{caption: "a mini PC on a desk"}

	c := NewCleaner(Config{Prober: prober, Captioner: captioner})
	result := c.Clean(context.Background(), input)

	assert.Contains(t, result.HTML, "big.png")
	assert.NotContains(t, result.HTML, "icon.png")
	// Only the surviving image is captioned.
	assert.Equal(t, []string{"https://cdn.example.com/big.png"}, captioner.calls)
	assert.Contains(t, result.HTML, GeneratedAltAttr+`="a mini PC on a desk"`)
}

func TestClean_SkipsUnusableImageSources(t *testing.T) {
	input := `<body>
		<img src="logo.svg"><img src="anim.gif"><img src="data:image/png;base64,xyz"><img>
		<p>text</p>
	</body>`

	prober := &fakeProber{}
	c := NewCleaner(Config{Prober: prober})
	result := c.Clean(context.Background(), input)

	assert.NotContains(t, result.HTML, "<img")
}

func TestClean_CaptionFailureIsNonFatal(t *testing.T) {
	input := `<body><img src="https://cdn.example.com/big.png"><p>text</p></body>`

	prober := &fakeProber{sizes: map[string]images.Size{
		"https://cdn.example.com/big.png": {Width: 800, Height: 600},
	}}
	captioner := &fakeCaptioner{err: errors.New("caption service down")}

	c := NewCleaner(Config{Prober: prober, Captioner: captioner})
	result := c.Clean(context.Background(), input)

	require.False(t, result.Degraded)
	assert.Contains(t, result.HTML, "big.png")
	assert.NotContains(t, result.HTML, GeneratedAltAttr)
	assert.NotEmpty(t, result.Issues)
}

func TestClean_ProbeFailureRemovesImage(t *testing.T) {
	input := `<body><img src="https://cdn.example.com/broken.png"><p>text</p></body>`

	prober := &fakeProber{errs: map[string]error{
		"https://cdn.example.com/broken.png": errors.New("404"),
	}}
	c := NewCleaner(Config{Prober: prober})
	result := c.Clean(context.Background(), input)

	require.False(t, result.Degraded)
	assert.NotContains(t, result.HTML, "broken.png")
	assert.NotEmpty(t, result.Issues)
}

func TestClean_CompactsWhitespace(t *testing.T) {
	input := "<body><div>\n\n\t<p>a   b</p>\n</div>   <p>c</p></body>"

	c := NewCleaner(Config{})
	result := c.Clean(context.Background(), input)

	assert.NotContains(t, result.HTML, "\n")
	assert.NotContains(t, result.HTML, "> <")
	assert.Contains(t, result.HTML, "a b")
}

func TestNormalizeImageURL(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		want   string
		usable bool
	}{
		{"protocol relative", "//cdn.example.com/a.png", "https://cdn.example.com/a.png", true},
		{"strips query", "https://cdn.example.com/a.png?v=1", "https://cdn.example.com/a.png", true},
		{"strips fragment", "https://cdn.example.com/a.png#top", "https://cdn.example.com/a.png", true},
		{"svg rejected", "https://cdn.example.com/logo.svg", "", false},
		{"gif rejected", "https://cdn.example.com/anim.gif", "", false},
		{"data uri rejected", "data:image/png;base64,abc", "", false},
		{"empty rejected", "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, usable := NormalizeImageURL(tt.src)
			assert.Equal(t, tt.usable, usable)
			assert.Equal(t, tt.want, got)
		})
	}
}
