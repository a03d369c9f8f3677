// Package pricing turns a selection into a total and quote line items.
package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/KevinKickass/AlarmConfigurator/internal/capacity"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

var ErrNilCatalog = errors.New("pricing: nil catalog")

// BasePrice is the panel price before addons. It is either one flat amount
// or a price per property context, with Flat as the last fallback.
type BasePrice struct {
	Flat      *decimal.Decimal
	ByContext map[types.PropertyContext]decimal.Decimal
}

// FlatBase returns a context-independent base price.
func FlatBase(amount decimal.Decimal) BasePrice {
	return BasePrice{Flat: &amount}
}

// ParseBasePrice builds a BasePrice from configuration values. The keys
// "flat" and "default" set the flat amount; other keys must name a context.
func ParseBasePrice(values map[string]string) (BasePrice, error) {
	bp := BasePrice{ByContext: make(map[types.PropertyContext]decimal.Decimal, len(values))}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		amount, err := decimal.NewFromString(strings.TrimSpace(values[key]))
		if err != nil {
			return BasePrice{}, fmt.Errorf("invalid base price %q for %s: %w", values[key], key, err)
		}
		if amount.IsNegative() {
			return BasePrice{}, fmt.Errorf("negative base price for %s", key)
		}

		name := strings.ToLower(strings.TrimSpace(key))
		if name == "flat" || name == "default" {
			flat := amount
			bp.Flat = &flat
			continue
		}
		ctx, ok := types.ParseContext(name)
		if !ok {
			return BasePrice{}, fmt.Errorf("unknown property context %q in base price", key)
		}
		bp.ByContext[ctx] = amount
	}

	return bp, nil
}

// For resolves the base price of ctx: the context's own price, then
// residential, then the flat amount, then zero.
func (b BasePrice) For(ctx types.PropertyContext) decimal.Decimal {
	if p, ok := b.ByContext[ctx]; ok {
		return p
	}
	if p, ok := b.ByContext[types.ContextResidential]; ok {
		return p
	}
	if b.Flat != nil {
		return *b.Flat
	}
	return decimal.Zero
}

// CalculateTotal is the base price plus unit price times quantity over
// selection. The caller passes the union of the user selection and the
// auto-appended items; ids missing from the catalog cost nothing.
func CalculateTotal(cat capacity.Catalog, selection []types.SelectionEntry, ctx types.PropertyContext, base BasePrice) (decimal.Decimal, error) {
	if cat == nil {
		return decimal.Zero, ErrNilCatalog
	}

	total := base.For(ctx)
	for _, entry := range selection {
		if entry.Quantity <= 0 {
			continue
		}
		def, ok := cat.Lookup(entry.ID)
		if !ok {
			continue
		}
		total = total.Add(def.UnitPrice(ctx).Mul(decimal.NewFromInt(int64(entry.Quantity))))
	}

	return total, nil
}

// Union merges the auto-appended items into selection. An auto-appended id
// already present takes the derived quantity.
func Union(selection []types.SelectionEntry, autoAppended []types.AutoAppendedItem) []types.SelectionEntry {
	out := capacity.Consolidate(selection)
	for _, item := range autoAppended {
		out = capacity.WithQuantity(out, item.ID, item.Quantity)
	}
	return out
}
