// Package capacity aggregates the hardware resources a selection consumes.
//
// Everything here is a pure function of its inputs: no logging, no shared
// state, safe to call from any goroutine on every render.
package capacity

import (
	"sort"

	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

// Catalog resolves addon definitions by id.
type Catalog interface {
	Lookup(id string) (types.AddonDefinition, bool)
}

// Usage is the raw resource consumption of a selection.
type Usage struct {
	Inputs         int
	PowerMilliAmps int
	Keypads        int
	Touchscreens   int

	// Unknown holds selection ids the catalog could not resolve, sorted.
	Unknown []string
}

// ComputeUsage sums the resources consumed by selection. Entries whose id
// is missing from the catalog contribute nothing and are reported in
// Usage.Unknown. Auto-appended entries count like any other entry.
func ComputeUsage(cat Catalog, selection []types.SelectionEntry) Usage {
	var u Usage
	unknown := make(map[string]struct{})

	for _, entry := range selection {
		if entry.Quantity <= 0 {
			continue
		}
		def, ok := cat.Lookup(entry.ID)
		if !ok {
			unknown[entry.ID] = struct{}{}
			continue
		}
		u.add(def, entry.Quantity)
	}

	if len(unknown) > 0 {
		u.Unknown = make([]string, 0, len(unknown))
		for id := range unknown {
			u.Unknown = append(u.Unknown, id)
		}
		sort.Strings(u.Unknown)
	}

	return u
}

func (u *Usage) add(def types.AddonDefinition, qty int) {
	if def.ConsumesInputZone {
		u.Inputs += qty
	}
	u.PowerMilliAmps += qty * def.PowerMilliAmps
	if def.Category == types.CategoryKeypad {
		u.Keypads += qty
	}
	if def.IsTouchscreen {
		u.Touchscreens += qty
	}
}

// Snapshot pairs the usage with the configured limits.
func (u Usage) Snapshot(limits types.SystemLimits) types.CapacitySnapshot {
	inputThreshold := limits.InputZoneSoftThreshold
	touchThreshold := limits.TouchscreenSoftThreshold

	return types.CapacitySnapshot{
		Inputs: types.Dimension{
			Used:      u.Inputs,
			Max:       limits.MaxInputZones,
			Threshold: &inputThreshold,
		},
		Power: types.Dimension{
			Used: u.PowerMilliAmps,
			Max:  limits.MaxPowerMilliAmps,
		},
		Keypads: types.Dimension{
			Used: u.Keypads,
			Max:  limits.MaxKeypads,
		},
		Touchscreens: types.Dimension{
			Used:      u.Touchscreens,
			Max:       limits.MaxTouchscreens,
			Threshold: &touchThreshold,
		},
	}
}

// Consolidate merges duplicate ids by summing their quantities and drops
// non-positive entries. The first occurrence of an id fixes its position.
func Consolidate(selection []types.SelectionEntry) []types.SelectionEntry {
	out := make([]types.SelectionEntry, 0, len(selection))
	index := make(map[string]int, len(selection))

	for _, entry := range selection {
		if entry.Quantity <= 0 {
			continue
		}
		if i, ok := index[entry.ID]; ok {
			out[i].Quantity += entry.Quantity
			continue
		}
		index[entry.ID] = len(out)
		out = append(out, entry)
	}

	return out
}

// QuantityOf returns the quantity of id in selection, or zero.
func QuantityOf(selection []types.SelectionEntry, id string) int {
	total := 0
	for _, entry := range selection {
		if entry.ID == id && entry.Quantity > 0 {
			total += entry.Quantity
		}
	}
	return total
}

// WithQuantity returns a copy of selection where id has quantity qty.
// A non-positive qty removes the entry.
func WithQuantity(selection []types.SelectionEntry, id string, qty int) []types.SelectionEntry {
	out := make([]types.SelectionEntry, 0, len(selection)+1)
	placed := false

	for _, entry := range selection {
		if entry.ID != id {
			out = append(out, entry)
			continue
		}
		if !placed && qty > 0 {
			out = append(out, types.SelectionEntry{ID: id, Quantity: qty})
		}
		placed = true
	}

	if !placed && qty > 0 {
		out = append(out, types.SelectionEntry{ID: id, Quantity: qty})
	}

	return out
}
