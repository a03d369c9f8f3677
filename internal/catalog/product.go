package catalog

// ExternalProduct is a product record as the e-commerce catalog exports it.
// Field types are deliberately loose: prices and metadata values arrive as
// numbers, numeric strings or nested objects depending on the plugin that
// wrote them.
type ExternalProduct struct {
	ID               any         `json:"id,omitempty"`
	Slug             string      `json:"slug"`
	SKU              string      `json:"sku,omitempty"`
	Name             string      `json:"name,omitempty"`
	ShortDescription string      `json:"short_description,omitempty"`
	Price            any         `json:"price,omitempty"`
	RegularPrice     any         `json:"regular_price,omitempty"`
	PriceRange       *PriceRange `json:"price_range,omitempty"`
	Categories       []string    `json:"categories,omitempty"`
	MetaData         []MetaEntry `json:"meta_data,omitempty"`
}

// PriceRange is the min/max price of a variable product.
type PriceRange struct {
	Min any `json:"min,omitempty"`
	Max any `json:"max,omitempty"`
}

// MetaEntry is one key/value pair of product metadata.
type MetaEntry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Document is the on-disk catalog format: a version tag plus products.
type Document struct {
	Version  string            `json:"version,omitempty"`
	Products []ExternalProduct `json:"products"`
}
