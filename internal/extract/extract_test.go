package extract

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient returns a canned reply or error.
type fakeClient struct {
	reply string
	err   error
	user  string
}

func (c *fakeClient) Complete(_ context.Context, _, user string) (string, error) {
	c.user = user
	return c.reply, c.err
}

func (c *fakeClient) Close() error { return nil }

const validReply = `{
	"model": "X1",
	"cpu": {"brand": "AMD", "model": "Ryzen 7 7840HS", "cores": 8, "threads": 16},
	"variants": [{
		"ram": {"capacityGB": 32, "type": "DDR5"},
		"storage": {"capacityGB": 1000, "type": "NVMe"},
		"oferts": [{"url": "https://vendor.example.com/x1", "priceUsd": 599}]
	}],
	"weightKg": 0.5
}`

func newTestExtractor(t *testing.T, client *fakeClient) *Extractor {
	t.Helper()
	return NewExtractor(Config{Client: client, OutputRoot: t.TempDir()})
}

func TestExtract_Success(t *testing.T) {
	client := &fakeClient{reply: validReply}
	e := newTestExtractor(t, client)

	record, err := e.Extract(context.Background(), "https://example.com/minipc-x", "Acme", "<p>cleaned</p>")
	require.NoError(t, err)

	assert.Equal(t, "X1", record.Model)
	assert.Equal(t, "Acme", record.Brand)
	assert.Equal(t, "https://example.com/minipc-x", record.FromURL)
	assert.False(t, record.ManualCollect)
	assert.Equal(t, "<p>cleaned</p>", client.user)
	require.Len(t, record.Variants, 1)
	assert.Equal(t, 32, record.Variants[0].RAM.CapacityGB)
}

func TestExtract_FencedReply(t *testing.T) {
	client := &fakeClient{reply: "Sure, here you go:\n```json\n" + validReply + "\n```"}
	e := newTestExtractor(t, client)

	record, err := e.Extract(context.Background(), "https://example.com/minipc-x", "Acme", "content")
	require.NoError(t, err)
	assert.Equal(t, "X1", record.Model)
}

func TestExtract_PersistsOutputBeforeValidation(t *testing.T) {
	// Parseable but schema-invalid: missing cpu.
	client := &fakeClient{reply: `{"model": "X1"}`}
	e := newTestExtractor(t, client)

	url := "https://example.com/minipc-x"
	_, err := e.Extract(context.Background(), url, "Acme", "content")
	require.Error(t, err)

	// The invalid output is still on disk for inspection.
	data, readErr := os.ReadFile(e.OutputPath(url, "Acme"))
	require.NoError(t, readErr)

	var persisted map[string]any
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, "X1", persisted["model"])
}

func TestExtract_UnparseableReply(t *testing.T) {
	client := &fakeClient{reply: "I could not find any specifications on this page."}
	e := newTestExtractor(t, client)

	url := "https://example.com/empty"
	_, err := e.Extract(context.Background(), url, "Acme", "content")
	require.Error(t, err)

	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, url, extErr.URL)

	// The raw reply is kept for inspection.
	data, readErr := os.ReadFile(e.OutputPath(url, "Acme"))
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "could not find")
}

func TestExtract_ModelCallFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("endpoint down")}
	e := newTestExtractor(t, client)

	_, err := e.Extract(context.Background(), "https://example.com/x", "Acme", "content")
	require.Error(t, err)

	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.ErrorContains(t, extErr.Cause, "endpoint down")
}

func TestExtract_VariantMissingStorageFails(t *testing.T) {
	client := &fakeClient{reply: `{
		"model": "X1",
		"cpu": {"brand": "AMD", "model": "R7"},
		"variants": [{"ram": {"capacityGB": 16}}]
	}`}
	e := newTestExtractor(t, client)

	_, err := e.Extract(context.Background(), "https://example.com/x", "Acme", "content")
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	e := NewExtractor(Config{Client: &fakeClient{}, OutputRoot: "output"})
	assert.Equal(t,
		"output/Acme/httpsexamplecomminipc-x.json",
		e.OutputPath("https://example.com/minipc-x", "Acme"))
}

// Guard against the typed record silently dropping fields the schema allows.
func TestExtract_RoundTripsOptionalFields(t *testing.T) {
	client := &fakeClient{reply: `{
		"model": "X1",
		"description": {"en": "Small PC", "es": "PC pequeno"},
		"cpu": {"brand": "Intel", "model": "N100", "cores": 4, "threads": 4},
		"graphics": {"integrated": true, "brand": "Intel", "model": "UHD"},
		"connectivity": {"wifi": "6E", "bluetooth": "5.3"},
		"ports": {"usb3": 2, "ethernet": 1},
		"dimensions": {"widthMm": 120.5, "heightMm": 40, "depthMm": 112},
		"weightKg": 0.4,
		"releaseYear": 2024
	}`}
	e := newTestExtractor(t, client)

	record, err := e.Extract(context.Background(), "https://example.com/n100", "Acme", "content")
	require.NoError(t, err)

	assert.Equal(t, "Small PC", record.Description["en"])
	assert.True(t, record.Graphics.Integrated)
	assert.Equal(t, "6E", record.Connectivity.WiFi)
	require.NotNil(t, record.Ports.USB3)
	assert.Equal(t, 2, *record.Ports.USB3)
	require.NotNil(t, record.ReleaseYear)
	assert.Equal(t, 2024, *record.ReleaseYear)
	require.NotNil(t, record.Dimensions)
	require.NotNil(t, record.Dimensions.WidthMm)
	assert.Equal(t, 120.5, *record.Dimensions.WidthMm)
}
