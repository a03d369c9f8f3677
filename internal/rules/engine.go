// Package rules decides whether a selection is buildable, which accessories
// it implies and whether a quantity change may be applied.
package rules

import (
	"fmt"
	"sort"

	"github.com/KevinKickass/AlarmConfigurator/internal/capacity"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

const (
	ReasonInputExpander = "Input zone count exceeds onboard capacity."
	ReasonPowerSupply   = "Additional power supply required for current load."
)

// Validate evaluates selection against the catalog and limits. The result
// depends only on its inputs and on neither the order nor the duplication
// of selection entries.
func Validate(cat capacity.Catalog, limits types.SystemLimits, selection []types.SelectionEntry) types.ValidationResult {
	sel := capacity.Consolidate(selection)
	usage := capacity.ComputeUsage(cat, sel)

	var r report

	for _, id := range usage.Unknown {
		r.data(CodeUnknownAddon, id, fmt.Sprintf("Unknown addon in selection: %s", id))
	}

	if usage.Inputs > limits.MaxInputZones {
		r.violation(CodeInputsExceeded, dimInputs, "",
			fmt.Sprintf("Input zone capacity exceeded (%d/%d)", usage.Inputs, limits.MaxInputZones))
	}
	if usage.Keypads > limits.MaxKeypads {
		r.violation(CodeKeypadsExceeded, dimKeypads, "",
			fmt.Sprintf("Keypad capacity exceeded (%d/%d)", usage.Keypads, limits.MaxKeypads))
	}
	if usage.Touchscreens > limits.MaxTouchscreens {
		r.violation(CodeTouchscreensExceeded, dimTouchscreens, "",
			fmt.Sprintf("Touchscreen capacity exceeded (%d/%d)", usage.Touchscreens, limits.MaxTouchscreens))
	}

	for _, entry := range sortedByID(sel) {
		def, ok := cat.Lookup(entry.ID)
		if !ok {
			continue
		}
		if entry.Quantity < def.QuantityMin || entry.Quantity > def.QuantityMax {
			r.violation(CodeQuantityOutOfRange, "", def.ID,
				fmt.Sprintf("%s: quantity %d outside allowed range %d-%d",
					def.Name, entry.Quantity, def.QuantityMin, def.QuantityMax))
		}
	}

	d := derive(cat, limits, sel, usage)

	if d.inputsOverThreshold {
		r.warning(CodeInputsThreshold, dimInputs,
			fmt.Sprintf("Approaching input zone capacity (%d/%d): onboard capacity of %d zones exceeded",
				usage.Inputs, limits.MaxInputZones, limits.InputZoneSoftThreshold))
		if !d.expanderAvailable {
			r.data(CodeMissingAccessory, types.AddonInputExpander,
				"Input expander required but not available in the catalog")
		}
	}
	if d.expandersShort > 0 {
		r.violation(CodeExpandersExceeded, dimInputs, types.AddonInputExpander,
			fmt.Sprintf("Input expander capacity exceeded (%d/%d expanders)",
				d.expanders+d.expandersShort, d.expanderMax))
	}

	if d.powerOverBudget {
		r.warning(CodePowerThreshold, dimPower,
			fmt.Sprintf("Power draw of %d mA exceeds the panel budget of %d mA",
				d.effectivePower, limits.MaxPowerMilliAmps))
	}
	if d.touchscreensOverThreshold {
		r.warning(CodeTouchscreensThreshold, dimTouchscreens,
			fmt.Sprintf("%d touchscreens exceed the %d the panel can power on its own",
				usage.Touchscreens, limits.TouchscreenSoftThreshold))
	}
	if d.powerUnresolved {
		r.violation(CodePowerExceeded, dimPower, "",
			fmt.Sprintf("Power budget exceeded (%d/%d mA)", d.effectivePower, d.powerCapacity))
	}
	if (d.powerOverBudget || d.touchscreensOverThreshold) && !d.psuAvailable && !d.powerUnresolved {
		r.data(CodeMissingAccessory, types.AddonPowerSupply,
			"Additional power supply required but not available in the catalog")
	}

	res := types.ValidationResult{
		AutoAppendedItems: d.items,
		CapacitySnapshot:  usage.Snapshot(limits),
	}
	r.finalize(&res)
	return res
}

// derivation is the outcome of the single, non-recursive auto-append pass.
type derivation struct {
	inputsOverThreshold bool
	expanderAvailable   bool
	expanders           int
	expanderMax         int
	expandersShort      int

	effectivePower            int
	powerCapacity             int
	powerOverBudget           bool
	touchscreensOverThreshold bool
	psuAvailable              bool
	powerUnresolved           bool

	items []types.AutoAppendedItem
}

func derive(cat capacity.Catalog, limits types.SystemLimits, sel []types.SelectionEntry, usage capacity.Usage) derivation {
	d := derivation{items: make([]types.AutoAppendedItem, 0, 2)}

	// Auto-appended ids in the selection are re-derived, never trusted, so
	// feeding a previous result back in yields the same items.
	effective := sel

	expander, hasExpander := cat.Lookup(types.AddonInputExpander)
	d.expanderAvailable = hasExpander && expander.QuantityMax > 0

	if usage.Inputs > limits.InputZoneSoftThreshold {
		d.inputsOverThreshold = true
		if d.expanderAvailable {
			d.expanders = expandersNeeded(usage.Inputs-limits.InputZoneSoftThreshold,
				expander.ProvidesInputZones, limits.InputZoneSoftThreshold)
			d.expanderMax = expander.QuantityMax
			if d.expanders > expander.QuantityMax {
				d.expandersShort = d.expanders - expander.QuantityMax
				d.expanders = expander.QuantityMax
			}
			d.items = append(d.items, types.AutoAppendedItem{
				ID:       types.AddonInputExpander,
				Quantity: d.expanders,
				Reason:   ReasonInputExpander,
			})
		}
	}
	if hasExpander {
		effective = capacity.WithQuantity(effective, types.AddonInputExpander, d.expanders)
	}

	psu, hasPSU := cat.Lookup(types.AddonPowerSupply)
	d.psuAvailable = hasPSU && psu.QuantityMax > 0
	if hasPSU {
		effective = capacity.WithQuantity(effective, types.AddonPowerSupply, 0)
	}

	d.effectivePower = capacity.ComputeUsage(cat, effective).PowerMilliAmps
	d.powerCapacity = limits.MaxPowerMilliAmps
	d.powerOverBudget = d.effectivePower > limits.MaxPowerMilliAmps
	d.touchscreensOverThreshold = usage.Touchscreens > limits.TouchscreenSoftThreshold

	if !d.powerOverBudget && !d.touchscreensOverThreshold {
		return d
	}

	if !d.psuAvailable {
		d.powerUnresolved = d.powerOverBudget
		return d
	}

	d.items = append(d.items, types.AutoAppendedItem{
		ID:       types.AddonPowerSupply,
		Quantity: 1,
		Reason:   ReasonPowerSupply,
	})

	if psu.ProvidesMilliAmps > 0 {
		d.powerCapacity = limits.MaxPowerMilliAmps + psu.ProvidesMilliAmps
		d.powerUnresolved = d.effectivePower > d.powerCapacity
	}

	return d
}

// expandersNeeded is ceil(excess / coverage). Coverage comes from the
// expander's catalog entry, falling back to the soft threshold.
func expandersNeeded(excess, coverage, threshold int) int {
	if coverage <= 0 {
		coverage = threshold
	}
	if coverage <= 0 {
		coverage = 1
	}
	return (excess + coverage - 1) / coverage
}

func sortedByID(sel []types.SelectionEntry) []types.SelectionEntry {
	out := append([]types.SelectionEntry(nil), sel...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
