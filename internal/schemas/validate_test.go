package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestValidateMiniPC_Valid(t *testing.T) {
	doc := decode(t, `{
		"model": "X1",
		"cpu": {"brand": "AMD", "model": "Ryzen 7 7840HS", "cores": 8, "threads": 16},
		"variants": [
			{"ram": {"capacityGB": 32, "type": "DDR5"},
			 "storage": {"capacityGB": 1000, "type": "NVMe"},
			 "oferts": [{"url": "https://vendor.example.com/x1", "priceUsd": 599}]}
		],
		"weightKg": 0.5
	}`)
	assert.NoError(t, ValidateMiniPC(doc))
}

func TestValidateMiniPC_MissingModel(t *testing.T) {
	doc := decode(t, `{"cpu": {"brand": "AMD", "model": "R7"}}`)
	err := ValidateMiniPC(doc)
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Errors)
}

func TestValidateMiniPC_VariantWithoutStorage(t *testing.T) {
	doc := decode(t, `{
		"model": "X1",
		"cpu": {"brand": "AMD", "model": "R7"},
		"variants": [{"ram": {"capacityGB": 16}}]
	}`)
	err := ValidateMiniPC(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage")
}

func TestValidateMiniPC_OfferWithoutURL(t *testing.T) {
	doc := decode(t, `{
		"model": "X1",
		"cpu": {"brand": "AMD", "model": "R7"},
		"variants": [{
			"ram": {"capacityGB": 16},
			"storage": {"capacityGB": 512},
			"oferts": [{"priceUsd": 499}]
		}]
	}`)
	err := ValidateMiniPC(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
}
