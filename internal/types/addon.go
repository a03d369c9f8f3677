package types

import (
	"github.com/shopspring/decimal"
)

// Category groups addons by the hardware role they play.
type Category string

const (
	CategorySensor     Category = "sensor"
	CategoryKeypad     Category = "keypad"
	CategoryController Category = "controller"
	CategoryPSU        Category = "psu"
	CategoryExpander   Category = "expander"
	CategoryAccessory  Category = "accessory"
)

// ParseCategory returns the category named by s and whether it is known.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(s); c {
	case CategorySensor, CategoryKeypad, CategoryController,
		CategoryPSU, CategoryExpander, CategoryAccessory:
		return c, true
	default:
		return CategoryAccessory, false
	}
}

// PropertyContext is the pricing segment a customer configures for.
type PropertyContext string

const (
	ContextResidential PropertyContext = "residential"
	ContextRetail      PropertyContext = "retail"
	ContextOffice      PropertyContext = "office"
	ContextWarehouse   PropertyContext = "warehouse"
)

// AllContexts lists every supported price book in display order.
var AllContexts = []PropertyContext{
	ContextResidential,
	ContextRetail,
	ContextOffice,
	ContextWarehouse,
}

// ParseContext returns the context named by s and whether it is supported.
func ParseContext(s string) (PropertyContext, bool) {
	for _, c := range AllContexts {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Valid reports whether c is one of the supported price books.
func (c PropertyContext) Valid() bool {
	_, ok := ParseContext(string(c))
	return ok
}

// Canonical ids of the accessories the rules engine may inject.
const (
	AddonInputExpander = "input-expander"
	AddonPowerSupply   = "power-supply"
)

// AddonDefinition is the canonical, immutable description of a selectable
// or auto-appended device.
type AddonDefinition struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Summary  string   `json:"summary,omitempty"`
	Bullets  []string `json:"bullets,omitempty"`
	Category Category `json:"category"`

	ConsumesInputZone bool `json:"consumes_input_zone"`
	PowerMilliAmps    int  `json:"power_milliamps"`
	IsTouchscreen     bool `json:"is_touchscreen"`

	QuantityMin int `json:"quantity_min"`
	QuantityMax int `json:"quantity_max"`

	UnitPriceByContext map[PropertyContext]decimal.Decimal `json:"unit_price_by_context"`

	IsAutoAppended bool `json:"is_auto_appended"`

	// Capacity a single unit adds. Only meaningful for expanders and power supplies.
	ProvidesInputZones int `json:"provides_input_zones,omitempty"`
	ProvidesMilliAmps  int `json:"provides_milliamps,omitempty"`
}

// UnitPrice resolves the price for ctx, falling back to the residential
// price book and then to zero.
func (a AddonDefinition) UnitPrice(ctx PropertyContext) decimal.Decimal {
	if p, ok := a.UnitPriceByContext[ctx]; ok {
		return p
	}
	if p, ok := a.UnitPriceByContext[ContextResidential]; ok {
		return p
	}
	return decimal.Zero
}

// SelectionEntry is one addon line of a customer's configuration.
// Quantity is always positive; absence means zero.
type SelectionEntry struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// SystemLimits are the hardware constraints of the base panel.
type SystemLimits struct {
	MaxInputZones            int `mapstructure:"max_input_zones" json:"max_input_zones"`
	InputZoneSoftThreshold   int `mapstructure:"input_zone_soft_threshold" json:"input_zone_soft_threshold"`
	MaxPowerMilliAmps        int `mapstructure:"max_power_milliamps" json:"max_power_milliamps"`
	MaxKeypads               int `mapstructure:"max_keypads" json:"max_keypads"`
	MaxTouchscreens          int `mapstructure:"max_touchscreens" json:"max_touchscreens"`
	TouchscreenSoftThreshold int `mapstructure:"touchscreen_soft_threshold" json:"touchscreen_soft_threshold"`
}
