package rules

import (
	"fmt"

	"github.com/KevinKickass/AlarmConfigurator/internal/capacity"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

// Decision answers a can-mutate query. Reason is set only when denied.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision { return Decision{Allowed: true} }

func deny(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// NextQuantity is the quantity an increment from current lands on. An addon
// with a minimum above one enters the selection at that minimum.
func NextQuantity(def types.AddonDefinition, current int) int {
	if current <= 0 && def.QuantityMin > 1 {
		return def.QuantityMin
	}
	return current + 1
}

// CanIncrement reports whether id may go from currentQuantity to its next
// quantity. currentQuantity overrides whatever selection holds for id.
func CanIncrement(cat capacity.Catalog, limits types.SystemLimits, selection []types.SelectionEntry, id string, currentQuantity int) Decision {
	def, ok := cat.Lookup(id)
	if !ok {
		return deny("Unknown addon: %s", id)
	}
	sel := capacity.WithQuantity(capacity.Consolidate(selection), id, currentQuantity)
	return CanSetQuantity(cat, limits, sel, id, NextQuantity(def, currentQuantity))
}

// CanSetQuantity reports whether id may be set to target. Lowering a
// quantity never worsens capacity, so only bounds apply to reductions.
func CanSetQuantity(cat capacity.Catalog, limits types.SystemLimits, selection []types.SelectionEntry, id string, target int) Decision {
	def, ok := cat.Lookup(id)
	if !ok {
		if target <= 0 {
			return allow()
		}
		return deny("Unknown addon: %s", id)
	}
	if def.IsAutoAppended {
		return deny("%s is added automatically", def.Name)
	}
	if target < 0 {
		return deny("Quantity cannot be negative")
	}
	if target > def.QuantityMax {
		return deny("Maximum quantity reached (%d)", def.QuantityMax)
	}
	if target > 0 && target < def.QuantityMin {
		return deny("Minimum quantity is %d", def.QuantityMin)
	}

	sel := capacity.Consolidate(selection)
	if target <= capacity.QuantityOf(sel, id) {
		return allow()
	}

	candidate := capacity.WithQuantity(sel, id, target)
	usage := capacity.ComputeUsage(cat, candidate)

	if def.Category == types.CategoryKeypad && usage.Keypads > limits.MaxKeypads {
		return deny("Keypad limit reached (%d)", limits.MaxKeypads)
	}
	if def.IsTouchscreen && usage.Touchscreens > limits.MaxTouchscreens {
		return deny("Touchscreen limit reached (%d)", limits.MaxTouchscreens)
	}
	if def.ConsumesInputZone && usage.Inputs > limits.MaxInputZones {
		return deny("Input zone limit reached (%d)", limits.MaxInputZones)
	}
	if def.PowerMilliAmps > 0 || def.ConsumesInputZone {
		// An extra zone can pull in an expander, which draws power itself.
		cur := derive(cat, limits, sel, capacity.ComputeUsage(cat, sel))
		next := derive(cat, limits, candidate, usage)
		if next.expandersShort > cur.expandersShort {
			return deny("Input expander limit reached (%d)", next.expanderMax)
		}
		if next.powerUnresolved && next.effectivePower > cur.effectivePower {
			return deny("Power budget exceeded (%d/%d mA)", next.effectivePower, next.powerCapacity)
		}
	}

	return allow()
}

// CanDecrement reports whether id may go one below currentQuantity. Entries
// the catalog no longer knows can always be dropped.
func CanDecrement(cat capacity.Catalog, id string, currentQuantity int) Decision {
	def, ok := cat.Lookup(id)
	if !ok {
		return allow()
	}
	if def.IsAutoAppended {
		return deny("%s is added automatically", def.Name)
	}
	if currentQuantity <= 0 {
		return deny("%s is not selected", def.Name)
	}
	if currentQuantity <= def.QuantityMin {
		return deny("Minimum quantity reached (%d)", def.QuantityMin)
	}
	return allow()
}
