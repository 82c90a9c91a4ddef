// Package types provides type definitions for the structured mini-PC records
// produced by the extraction pipeline and consumed by the catalog store.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Target identifies one vendor page to scrape in a batch run.
type Target struct {
	URL   string `json:"url"`
	Brand string `json:"brand"`
}

// MiniPC is a structured catalog record extracted from a vendor page.
type MiniPC struct {
	Model        string            `json:"model" validate:"required"`
	Brand        string            `json:"brand,omitempty"`
	Description  map[string]string `json:"description,omitempty"` // language code -> text
	FromURL      string            `json:"fromURL,omitempty"`
	ManualCollect bool             `json:"manualCollect"`

	MainImgURLs  []string `json:"mainImgUrls,omitempty"`
	PortsImgURLs []string `json:"portsImgUrls,omitempty"`

	CPU      CPU       `json:"cpu" validate:"required"`
	Variants []Variant `json:"variants,omitempty" validate:"dive"`

	MaxRAMCapacityGB     *int `json:"maxRAMCapacityGB,omitempty"`
	MaxStorageCapacityGB *int `json:"maxStorageCapacityGB,omitempty"`

	Graphics     Graphics     `json:"graphics"`
	Ports        Ports        `json:"ports"`
	Connectivity Connectivity `json:"connectivity"`
	Dimensions   *Dimensions  `json:"dimensions,omitempty"`

	BuiltinMicrophone                   *bool `json:"builtinMicrophone,omitempty"`
	BuiltinSpeakers                     *bool `json:"builtinSpeakers,omitempty"`
	SupportExternalDiscreteGraphicsCard *bool `json:"supportExternalDiscreteGraphicsCard,omitempty"`

	WeightKg          float64  `json:"weightKg,omitempty"`
	PowerConsumptionW *float64 `json:"powerConsumptionW,omitempty"`
	ReleaseYear       *int     `json:"releaseYear,omitempty"`
}

// CPU describes the processor of a mini-PC.
type CPU struct {
	Brand         string   `json:"brand" validate:"required"`
	Model         string   `json:"model" validate:"required"`
	Cores         int      `json:"cores,omitempty"`
	Threads       int      `json:"threads,omitempty"`
	BaseClockGHz  *float64 `json:"baseClockGHz,omitempty"`
	BoostClockGHz *float64 `json:"boostClockGHz,omitempty"`
	Cache         *string  `json:"cache,omitempty"`
}

// Variant is one RAM+storage configuration of a model, with its purchase offers.
// Every variant must carry both a RAM and a storage spec.
type Variant struct {
	RAM     MemorySpec `json:"ram" validate:"required"`
	Storage MemorySpec `json:"storage" validate:"required"`
	Offers  []Offer    `json:"oferts,omitempty" validate:"dive"`
}

// MemorySpec describes a RAM or storage module.
type MemorySpec struct {
	CapacityGB int    `json:"capacityGB" validate:"required"`
	Type       string `json:"type,omitempty"`
}

// Offer is one vendor's purchase option for a specific variant.
type Offer struct {
	URL           string   `json:"url" validate:"required,url"`
	PriceUSD      *float64 `json:"priceUsd,omitempty"`
	WarrantyYears *int     `json:"warrantyYears,omitempty"`
}

// Graphics describes the GPU of a mini-PC.
type Graphics struct {
	Integrated    bool          `json:"integrated"`
	Brand         string        `json:"brand,omitempty"`
	Model         string        `json:"model,omitempty"`
	FrequencyMHz  *int          `json:"frequencyMHz,omitempty"`
	MaxTOPS       *float64      `json:"maxTOPS,omitempty"`
	GraphicCoresCU *int         `json:"graphicCoresCU,omitempty"`
	DisplayPorts  *DisplayPorts `json:"displayPorts,omitempty"`
}

// DisplayPorts counts the video outputs of a mini-PC.
type DisplayPorts struct {
	HDMI        *int `json:"hdmi,omitempty"`
	DisplayPort *int `json:"displayPort,omitempty"`
	USBC        *int `json:"usbC,omitempty"`
}

// Ports counts the physical connectors of a mini-PC.
type Ports struct {
	USB4         *int `json:"usb4,omitempty"`
	USB3         *int `json:"usb3,omitempty"`
	USB2         *int `json:"usb2,omitempty"`
	USBC         *int `json:"usbC,omitempty"`
	Ethernet     *int `json:"ethernet,omitempty"`
	AudioJack    *int `json:"audioJack,omitempty"`
	SDCardReader *int `json:"sdCardReader,omitempty"`
}

// Connectivity describes the wireless capabilities of a mini-PC.
type Connectivity struct {
	WiFi      string `json:"wifi,omitempty"`
	Bluetooth string `json:"bluetooth,omitempty"`
}

// Dimensions holds the physical size of a mini-PC.
type Dimensions struct {
	WidthMm  *float64 `json:"widthMm,omitempty"`
	HeightMm *float64 `json:"heightMm,omitempty"`
	DepthMm  *float64 `json:"depthMm,omitempty"`
	VolumeL  *float64 `json:"volumeL,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks structural invariants on an extracted record: model and CPU
// are present, every variant has RAM and storage, every offer has a URL.
func (m *MiniPC) Validate() error {
	return validate.Struct(m)
}

// CatalogKey returns the uniqueness key for a record: the brand and model,
// lowercased with all whitespace removed. Two genuinely different models that
// normalize identically are reported as a conflict by the store, not merged.
func CatalogKey(brand, model string) string {
	return normalizeKeyPart(brand) + "/" + normalizeKeyPart(model)
}

// NormalizeModelKey returns the normalized model component of the catalog key.
func NormalizeModelKey(model string) string {
	return normalizeKeyPart(model)
}

func normalizeKeyPart(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
