package types

// Dimension is the usage of one capacity resource.
type Dimension struct {
	Used      int  `json:"used"`
	Max       int  `json:"max"`
	Threshold *int `json:"threshold,omitempty"`
}

// CapacitySnapshot aggregates usage over the four tracked resources.
type CapacitySnapshot struct {
	Inputs       Dimension `json:"inputs"`
	Power        Dimension `json:"power"`
	Keypads      Dimension `json:"keypads"`
	Touchscreens Dimension `json:"touchscreens"`
}

// AutoAppendedItem is an accessory injected by the rules engine.
type AutoAppendedItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

type Severity string

const (
	SevViolation Severity = "violation"
	SevWarning   Severity = "warning"
	SevData      Severity = "data"
)

// Issue is a coded finding of a validation pass.
type Issue struct {
	Code      string   `json:"code"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	AddonID   string   `json:"addon_id,omitempty"`
	Dimension string   `json:"dimension,omitempty"`
}

// ValidationResult is derived from (catalog, limits, selection) and never persisted.
type ValidationResult struct {
	IsValid           bool               `json:"is_valid"`
	Violations        []string           `json:"violations"`
	Warnings          []string           `json:"warnings"`
	AutoAppendedItems []AutoAppendedItem `json:"auto_appended_items"`
	CapacitySnapshot  CapacitySnapshot   `json:"capacity_snapshot"`
	Issues            []Issue            `json:"issues"`
}
