package capacity

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

type mapCatalog map[string]types.AddonDefinition

func (m mapCatalog) Lookup(id string) (types.AddonDefinition, bool) {
	def, ok := m[id]
	return def, ok
}

var testCatalog = mapCatalog{
	"motion":       {ID: "motion", Category: types.CategorySensor, ConsumesInputZone: true, PowerMilliAmps: 20},
	"keypad":       {ID: "keypad", Category: types.CategoryKeypad, PowerMilliAmps: 100},
	"touchscreen":  {ID: "touchscreen", Category: types.CategoryKeypad, IsTouchscreen: true, PowerMilliAmps: 250},
	"power-supply": {ID: "power-supply", Category: types.CategoryPSU, IsAutoAppended: true, PowerMilliAmps: 5},
}

func TestComputeUsage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		selection []types.SelectionEntry
		want      Usage
	}{
		{
			name: "empty",
			want: Usage{},
		},
		{
			name: "mixed",
			selection: []types.SelectionEntry{
				{ID: "motion", Quantity: 3},
				{ID: "keypad", Quantity: 1},
				{ID: "touchscreen", Quantity: 2},
			},
			want: Usage{Inputs: 3, PowerMilliAmps: 660, Keypads: 3, Touchscreens: 2},
		},
		{
			name: "auto-appended counts",
			selection: []types.SelectionEntry{
				{ID: "power-supply", Quantity: 1},
			},
			want: Usage{PowerMilliAmps: 5},
		},
		{
			name: "unknown and non-positive ignored",
			selection: []types.SelectionEntry{
				{ID: "zeta", Quantity: 1},
				{ID: "motion", Quantity: 0},
				{ID: "alpha", Quantity: 2},
				{ID: "zeta", Quantity: 1},
				{ID: "keypad", Quantity: -1},
			},
			want: Usage{Unknown: []string{"alpha", "zeta"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ComputeUsage(testCatalog, tt.selection)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("usage mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUsageSnapshot(t *testing.T) {
	t.Parallel()

	limits := types.SystemLimits{
		MaxInputZones:            16,
		InputZoneSoftThreshold:   8,
		MaxPowerMilliAmps:        1000,
		MaxKeypads:               4,
		MaxTouchscreens:          2,
		TouchscreenSoftThreshold: 1,
	}

	eight, one := 8, 1
	want := types.CapacitySnapshot{
		Inputs:       types.Dimension{Used: 3, Max: 16, Threshold: &eight},
		Power:        types.Dimension{Used: 660, Max: 1000},
		Keypads:      types.Dimension{Used: 3, Max: 4},
		Touchscreens: types.Dimension{Used: 2, Max: 2, Threshold: &one},
	}

	got := Usage{Inputs: 3, PowerMilliAmps: 660, Keypads: 3, Touchscreens: 2}.Snapshot(limits)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestConsolidate(t *testing.T) {
	t.Parallel()

	got := Consolidate([]types.SelectionEntry{
		{ID: "b", Quantity: 1},
		{ID: "a", Quantity: 2},
		{ID: "b", Quantity: 3},
		{ID: "c", Quantity: 0},
	})
	want := []types.SelectionEntry{{ID: "b", Quantity: 4}, {ID: "a", Quantity: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("consolidate mismatch (-want +got):\n%s", diff)
	}
}

func TestWithQuantity(t *testing.T) {
	t.Parallel()

	base := []types.SelectionEntry{{ID: "a", Quantity: 1}, {ID: "b", Quantity: 2}}

	tests := []struct {
		name string
		id   string
		qty  int
		want []types.SelectionEntry
	}{
		{"replace in place", "a", 5, []types.SelectionEntry{{ID: "a", Quantity: 5}, {ID: "b", Quantity: 2}}},
		{"append", "c", 1, []types.SelectionEntry{{ID: "a", Quantity: 1}, {ID: "b", Quantity: 2}, {ID: "c", Quantity: 1}}},
		{"remove", "a", 0, []types.SelectionEntry{{ID: "b", Quantity: 2}}},
		{"remove missing", "z", 0, []types.SelectionEntry{{ID: "a", Quantity: 1}, {ID: "b", Quantity: 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := WithQuantity(base, tt.id, tt.qty)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if base[0].Quantity != 1 {
		t.Error("WithQuantity mutated its input")
	}
}

func TestQuantityOf(t *testing.T) {
	t.Parallel()

	sel := []types.SelectionEntry{{ID: "a", Quantity: 1}, {ID: "a", Quantity: 2}, {ID: "b", Quantity: -1}}
	if got := QuantityOf(sel, "a"); got != 3 {
		t.Errorf("QuantityOf(a) = %d, want 3", got)
	}
	if got := QuantityOf(sel, "b"); got != 0 {
		t.Errorf("QuantityOf(b) = %d, want 0", got)
	}
}
