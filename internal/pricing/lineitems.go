package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/KevinKickass/AlarmConfigurator/internal/capacity"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

// LineItem is one row of a quote or estimate.
type LineItem struct {
	AddonID      string          `json:"addon_id"`
	Name         string          `json:"name"`
	Qty          int             `json:"qty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
	Description  string          `json:"description,omitempty"`
	AutoAppended bool            `json:"auto_appended"`
	Reason       string          `json:"reason,omitempty"`
}

// BuildLineItems returns one row per priced entry: user rows in selection
// order, then the auto-appended rows. User entries for ids that were also
// auto-appended are superseded by the auto row.
func BuildLineItems(cat capacity.Catalog, selection []types.SelectionEntry, autoAppended []types.AutoAppendedItem, ctx types.PropertyContext) ([]LineItem, error) {
	if cat == nil {
		return nil, ErrNilCatalog
	}

	auto := make(map[string]bool, len(autoAppended))
	for _, item := range autoAppended {
		auto[item.ID] = true
	}

	items := make([]LineItem, 0, len(selection)+len(autoAppended))

	for _, entry := range capacity.Consolidate(selection) {
		if auto[entry.ID] {
			continue
		}
		def, ok := cat.Lookup(entry.ID)
		if !ok {
			continue
		}
		items = append(items, lineItem(def, entry.Quantity, ctx))
	}

	for _, item := range autoAppended {
		if item.Quantity <= 0 {
			continue
		}
		def, ok := cat.Lookup(item.ID)
		if !ok {
			continue
		}
		row := lineItem(def, item.Quantity, ctx)
		row.AutoAppended = true
		row.Reason = item.Reason
		items = append(items, row)
	}

	return items, nil
}

func lineItem(def types.AddonDefinition, qty int, ctx types.PropertyContext) LineItem {
	unit := def.UnitPrice(ctx)
	return LineItem{
		AddonID:     def.ID,
		Name:        def.Name,
		Qty:         qty,
		UnitPrice:   unit,
		LineTotal:   unit.Mul(decimal.NewFromInt(int64(qty))),
		Description: def.Summary,
	}
}

// Estimate is a priced configuration: base, rows and total.
type Estimate struct {
	Context   types.PropertyContext `json:"context"`
	BasePrice decimal.Decimal       `json:"base_price"`
	LineItems []LineItem            `json:"line_items"`
	Total     decimal.Decimal       `json:"total"`
	CreatedAt time.Time             `json:"created_at"`
}

// BuildEstimate prices selection plus autoAppended in ctx.
func BuildEstimate(cat capacity.Catalog, selection []types.SelectionEntry, autoAppended []types.AutoAppendedItem, ctx types.PropertyContext, base BasePrice) (*Estimate, error) {
	items, err := BuildLineItems(cat, selection, autoAppended, ctx)
	if err != nil {
		return nil, err
	}

	total, err := CalculateTotal(cat, Union(selection, autoAppended), ctx, base)
	if err != nil {
		return nil, err
	}

	return &Estimate{
		Context:   ctx,
		BasePrice: base.For(ctx),
		LineItems: items,
		Total:     total,
		CreatedAt: time.Now().UTC(),
	}, nil
}
