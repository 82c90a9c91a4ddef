package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonfdez/minipc-agent/internal/cleaning"
)

// fakeDriver serves canned HTML and counts navigations.
type fakeDriver struct {
	html      string
	navigated []string
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	d.navigated = append(d.navigated, url)
	return nil
}
func (d *fakeDriver) WaitReady(context.Context) error            { return nil }
func (d *fakeDriver) Sleep(context.Context, time.Duration) error { return nil }
func (d *fakeDriver) HTML(context.Context) (string, error)       { return d.html, nil }

func newTestConverter(t *testing.T, driver Driver) *Converter {
	t.Helper()
	return NewConverter(Config{
		Driver:      driver,
		Cleaner:     cleaning.NewCleaner(cleaning.Config{}),
		OutputRoot:  t.TempDir(),
		SettleDelay: time.Millisecond,
	})
}

func TestSlug(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/minipc-x", "httpsexamplecomminipc-x"},
		{"https://example.com/minipc-x", Slug("https://example.com/minipc-x")}, // deterministic
		{"///", "index"},
		{"", "index"},
		{"https://example.com/a?b=c&d=e", "httpsexamplecomabcde"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.url), "url %q", tt.url)
	}
}

func TestConvert_CleansAndCaches(t *testing.T) {
	driver := &fakeDriver{html: "<body><nav>menu</nav><p>GEEKOM A8   specs</p></body>"}
	c := newTestConverter(t, driver)

	content, err := c.Convert(context.Background(), "https://example.com/a8", "Geekom")
	require.NoError(t, err)
	assert.Contains(t, content, "GEEKOM A8 specs")
	assert.NotContains(t, content, "menu")
	assert.NotContains(t, content, "\n")

	cached, err := os.ReadFile(c.CachePath("https://example.com/a8", "Geekom"))
	require.NoError(t, err)
	assert.Equal(t, content, string(cached))
}

func TestConvert_IdempotentFetch(t *testing.T) {
	driver := &fakeDriver{html: "<body><p>first render</p></body>"}
	c := newTestConverter(t, driver)

	url := "https://example.com/minipc-x"
	first, err := c.Convert(context.Background(), url, "Acme")
	require.NoError(t, err)

	cachePath := c.CachePath(url, "Acme")
	before, err := os.ReadFile(cachePath)
	require.NoError(t, err)

	// Second call must hit the cache: no new navigation, byte-identical file.
	driver.html = "<body><p>second render</p></body>"
	second, err := c.Convert(context.Background(), url, "Acme")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, driver.navigated, 1)

	after, err := os.ReadFile(cachePath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestIsAlreadyProcessed(t *testing.T) {
	driver := &fakeDriver{html: "<body><p>x</p></body>"}
	c := newTestConverter(t, driver)

	url := "https://example.com/minipc-x"
	assert.False(t, c.IsAlreadyProcessed(url, "Acme"))

	_, err := c.Convert(context.Background(), url, "Acme")
	require.NoError(t, err)
	assert.True(t, c.IsAlreadyProcessed(url, "Acme"))
	assert.False(t, c.IsAlreadyProcessed(url, "OtherBrand"))
}

func TestCachePath_ScopedByBrand(t *testing.T) {
	c := newTestConverter(t, &fakeDriver{})
	p := c.CachePath("https://example.com/x", "Acme")
	assert.Equal(t, "Acme", filepath.Base(filepath.Dir(p)))
	assert.Equal(t, "httpsexamplecomx.html", filepath.Base(p))
}
