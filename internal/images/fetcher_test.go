package images

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngBytes encodes a blank PNG of the given dimensions.
func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func imageServer(t *testing.T, contentType string, body []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}))
}

func TestFetch_WritesFileAndProbesDimensions(t *testing.T) {
	server := imageServer(t, "image/png", pngBytes(t, 500, 400))
	defer server.Close()

	f := NewFetcher(Config{OutputDir: t.TempDir(), ValidateContentType: true})
	result, err := f.Fetch(context.Background(), server.URL+"/photo.png")
	require.NoError(t, err)

	assert.FileExists(t, result.LocalPath)
	assert.Equal(t, ".png", result.Extension)
	assert.Equal(t, 500, result.Size.Width)
	assert.Equal(t, 400, result.Size.Height)
}

func TestFetch_RejectsNonImageContentType(t *testing.T) {
	server := imageServer(t, "text/html", []byte("<html></html>"))
	defer server.Close()

	f := NewFetcher(Config{OutputDir: t.TempDir(), ValidateContentType: true})
	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)

	var notImg *NotAnImageError
	assert.ErrorAs(t, err, &notImg)
}

func TestFetch_ProbeFailureYieldsZeroSize(t *testing.T) {
	// Claims to be an image but the body is not decodable.
	server := imageServer(t, "image/png", []byte("not really a png"))
	defer server.Close()

	f := NewFetcher(Config{OutputDir: t.TempDir(), ValidateContentType: true})
	result, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, Size{}, result.Size)
}

func TestFetch_InvalidURL(t *testing.T) {
	f := NewFetcher(Config{OutputDir: t.TempDir()})
	_, err := f.Fetch(context.Background(), "::not a url::")
	assert.Error(t, err)
}

func TestResolveExtension_URLWinsOverContentType(t *testing.T) {
	// Content-type says PNG, URL path says .jpg: URL wins for known extensions.
	assert.Equal(t, ".jpg", resolveExtension("https://cdn.example.com/a/b/photo.jpg?v=2", "image/png"))
	// Unknown URL extension falls back to content type.
	assert.Equal(t, ".png", resolveExtension("https://cdn.example.com/a/b/photo.xyz", "image/png"))
	// Neither known: generic fallback.
	assert.Equal(t, ".img", resolveExtension("https://cdn.example.com/a", "application/octet-stream"))
}

func TestRemove_AbsentFileIsNotAnError(t *testing.T) {
	f := NewFetcher(Config{OutputDir: t.TempDir()})
	assert.NoError(t, f.Remove(filepath.Join(t.TempDir(), "missing.png")))
}

func TestRemoveByPrefix(t *testing.T) {
	dir := t.TempDir()
	f := NewFetcher(Config{OutputDir: dir})

	for _, name := range []string{"tmp-a.png", "tmp-b.jpg", "keep-c.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	deleted, err := f.RemoveByPrefix("tmp-")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.FileExists(t, filepath.Join(dir, "keep-c.png"))
	assert.NoFileExists(t, filepath.Join(dir, "tmp-a.png"))
}

func TestRemoveByPrefix_MissingDirectory(t *testing.T) {
	f := NewFetcher(Config{OutputDir: filepath.Join(t.TempDir(), "does-not-exist")})
	deleted, err := f.RemoveByPrefix("tmp-")
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}
