package rules

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/KevinKickass/AlarmConfigurator/internal/capacity"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(strings.ToLower(s), strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

func TestValidate_ExpanderAppendedPastSoftThreshold(t *testing.T) {
	t.Parallel()

	res := Validate(testCatalog(), testLimits(), sel("motion", 9))

	want := []types.AutoAppendedItem{{ID: types.AddonInputExpander, Quantity: 1, Reason: ReasonInputExpander}}
	if diff := cmp.Diff(want, res.AutoAppendedItems); diff != "" {
		t.Errorf("auto-appended items mismatch (-want +got):\n%s", diff)
	}
	if !res.IsValid {
		t.Errorf("expected valid result, got violations %v", res.Violations)
	}
	if !containsSubstring(res.Warnings, "input zone") {
		t.Errorf("expected an input zone warning, got %v", res.Warnings)
	}
}

func TestValidate_AtSoftThresholdAppendsNothing(t *testing.T) {
	t.Parallel()

	res := Validate(testCatalog(), testLimits(), sel("motion", 8))
	if len(res.AutoAppendedItems) != 0 {
		t.Errorf("expected no auto-appended items, got %v", res.AutoAppendedItems)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", res.Warnings)
	}
}

func TestValidate_InputHardMaxExceeded(t *testing.T) {
	t.Parallel()

	res := Validate(testCatalog(), testLimits(), sel("motion", 17))
	if res.IsValid {
		t.Fatal("expected invalid result")
	}
	if !containsSubstring(res.Violations, "Input zone capacity exceeded (17/16)") {
		t.Errorf("expected input zone violation, got %v", res.Violations)
	}
	if got := res.AutoAppendedItems[0].Quantity; got != 2 {
		t.Errorf("expected 2 expanders for 9 excess zones, got %d", got)
	}
}

func TestValidate_ExpanderCountCappedAtQuantityMax(t *testing.T) {
	t.Parallel()

	cat := testCatalog()
	exp := cat[types.AddonInputExpander]
	exp.ProvidesInputZones = 1
	exp.QuantityMax = 3
	cat[types.AddonInputExpander] = exp

	res := Validate(cat, testLimits(), sel("motion", 14))
	if got := res.AutoAppendedItems[0].Quantity; got != 3 {
		t.Errorf("expected expander count capped at 3, got %d", got)
	}
	if res.IsValid {
		t.Error("uncovered zones must invalidate the selection")
	}
	want := "Input expander capacity exceeded (6/3 expanders)"
	if len(res.Violations) != 1 || res.Violations[0] != want {
		t.Errorf("violations = %v, want [%s]", res.Violations, want)
	}
}

func TestValidate_ExpanderShortfallOnLargePanel(t *testing.T) {
	t.Parallel()

	limits := testLimits()
	limits.MaxInputZones = 64

	res := Validate(testCatalog(), limits, sel("motion", 32, "door", 32))
	if res.IsValid {
		t.Fatal("7 expanders needed but only 4 allowed; expected a violation")
	}
	found := false
	for _, issue := range res.Issues {
		if issue.Code == CodeExpandersExceeded && issue.Severity == types.SevViolation {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s issue, got %+v", CodeExpandersExceeded, res.Issues)
	}
	if got := res.AutoAppendedItems[0].Quantity; got != 4 {
		t.Errorf("expanders = %d, want 4", got)
	}
}

func TestValidate_UnknownAddonIsDataWarning(t *testing.T) {
	t.Parallel()

	selection := sel("unknown-addon", 3)
	usage := capacity.ComputeUsage(testCatalog(), selection)
	if usage.Inputs != 0 || usage.PowerMilliAmps != 0 || usage.Keypads != 0 || usage.Touchscreens != 0 {
		t.Errorf("unknown addon must contribute nothing, got %+v", usage)
	}

	res := Validate(testCatalog(), testLimits(), selection)
	if !res.IsValid {
		t.Errorf("unknown addon must not invalidate the selection: %v", res.Violations)
	}
	if !containsSubstring(res.Warnings, "unknown-addon") {
		t.Errorf("expected data warning naming the addon, got %v", res.Warnings)
	}
	if res.Issues[0].Severity != types.SevData || res.Issues[0].Code != CodeUnknownAddon {
		t.Errorf("unexpected issue %+v", res.Issues[0])
	}
}

func TestValidate_KeypadAndTouchscreenViolations(t *testing.T) {
	t.Parallel()

	res := Validate(testCatalog(), testLimits(), sel("keypad", 2, "touchscreen", 3))
	if res.IsValid {
		t.Fatal("expected invalid result")
	}
	for _, want := range []string{"Keypad capacity exceeded (5/2)", "Touchscreen capacity exceeded (3/2)"} {
		if !containsSubstring(res.Violations, want) {
			t.Errorf("missing violation %q in %v", want, res.Violations)
		}
	}
}

func TestValidate_PowerSupplyAppendedWhenOverBudget(t *testing.T) {
	t.Parallel()

	res := Validate(testCatalog(), testLimits(), sel("siren", 4))

	want := []types.AutoAppendedItem{{ID: types.AddonPowerSupply, Quantity: 1, Reason: ReasonPowerSupply}}
	if diff := cmp.Diff(want, res.AutoAppendedItems); diff != "" {
		t.Errorf("auto-appended items mismatch (-want +got):\n%s", diff)
	}
	if !res.IsValid {
		t.Errorf("supply absorbs the overflow, got violations %v", res.Violations)
	}
	if !containsSubstring(res.Warnings, "power") {
		t.Errorf("expected power warning, got %v", res.Warnings)
	}
	if res.CapacitySnapshot.Power.Used != 1200 {
		t.Errorf("power used = %d, want 1200", res.CapacitySnapshot.Power.Used)
	}
}

func TestValidate_PowerBeyondSupplyCapacity(t *testing.T) {
	t.Parallel()

	res := Validate(testCatalog(), testLimits(), sel("siren", 7))
	if res.IsValid {
		t.Fatal("expected invalid result")
	}
	if !containsSubstring(res.Violations, "Power budget exceeded (2100/2000 mA)") {
		t.Errorf("expected power violation, got %v", res.Violations)
	}
}

func TestValidate_PowerWithoutSupplyInCatalog(t *testing.T) {
	t.Parallel()

	cat := testCatalog().without(types.AddonPowerSupply)
	res := Validate(cat, testLimits(), sel("siren", 4))
	if res.IsValid {
		t.Fatal("expected invalid result")
	}
	if !containsSubstring(res.Violations, "Power budget exceeded (1200/1000 mA)") {
		t.Errorf("expected power violation, got %v", res.Violations)
	}
	if len(res.AutoAppendedItems) != 0 {
		t.Errorf("nothing can be appended, got %v", res.AutoAppendedItems)
	}
}

func TestValidate_TouchscreensPastThresholdNeedSupply(t *testing.T) {
	t.Parallel()

	res := Validate(testCatalog(), testLimits(), sel("touchscreen", 2))
	if !res.IsValid {
		t.Fatalf("expected valid result, got %v", res.Violations)
	}
	if len(res.AutoAppendedItems) != 1 || res.AutoAppendedItems[0].ID != types.AddonPowerSupply {
		t.Errorf("expected a power supply, got %v", res.AutoAppendedItems)
	}
	if !containsSubstring(res.Warnings, "touchscreen") {
		t.Errorf("expected touchscreen warning, got %v", res.Warnings)
	}
}

func TestValidate_MissingExpanderIsDataWarning(t *testing.T) {
	t.Parallel()

	cat := testCatalog().without(types.AddonInputExpander)
	res := Validate(cat, testLimits(), sel("motion", 9))
	if !res.IsValid {
		t.Errorf("soft threshold crossing must not block: %v", res.Violations)
	}
	if len(res.AutoAppendedItems) != 0 {
		t.Errorf("expected no items, got %v", res.AutoAppendedItems)
	}
	found := false
	for _, issue := range res.Issues {
		if issue.Code == CodeMissingAccessory && issue.AddonID == types.AddonInputExpander {
			found = true
		}
	}
	if !found {
		t.Errorf("expected missing accessory issue, got %+v", res.Issues)
	}
}

func TestValidate_QuantityOutOfRange(t *testing.T) {
	t.Parallel()

	res := Validate(testCatalog(), testLimits(), sel("keypad", 1, "camera-kit", 1))
	if res.IsValid {
		t.Fatal("expected invalid result")
	}
	if !containsSubstring(res.Violations, "Camera Kit: quantity 1 outside allowed range 2-6") {
		t.Errorf("expected bounds violation, got %v", res.Violations)
	}
}

func TestValidate_EmptySelection(t *testing.T) {
	t.Parallel()

	res := Validate(testCatalog(), testLimits(), nil)
	if !res.IsValid || len(res.Violations) != 0 || len(res.Warnings) != 0 || len(res.AutoAppendedItems) != 0 {
		t.Errorf("empty selection should be clean, got %+v", res)
	}
	if res.CapacitySnapshot.Inputs.Max != 16 || *res.CapacitySnapshot.Inputs.Threshold != 8 {
		t.Errorf("unexpected snapshot %+v", res.CapacitySnapshot.Inputs)
	}
}

func TestValidate_OrderIndependent(t *testing.T) {
	t.Parallel()

	a := sel("siren", 2, "motion", 10, "keypad", 3, "ghost", 1, "touchscreen", 2, "relic", 1)
	b := sel("relic", 1, "touchscreen", 1, "keypad", 3, "ghost", 1, "motion", 4, "siren", 2, "motion", 6, "touchscreen", 1)

	ra := Validate(testCatalog(), testLimits(), a)
	rb := Validate(testCatalog(), testLimits(), b)

	if diff := cmp.Diff(ra, rb); diff != "" {
		t.Errorf("results differ (-a +b):\n%s", diff)
	}

	ja, err := json.Marshal(ra)
	if err != nil {
		t.Fatal(err)
	}
	jb, err := json.Marshal(rb)
	if err != nil {
		t.Fatal(err)
	}
	if string(ja) != string(jb) {
		t.Errorf("serialized results differ:\n%s\n%s", ja, jb)
	}
}

func TestValidate_DerivationIsIdempotent(t *testing.T) {
	t.Parallel()

	cases := [][]types.SelectionEntry{
		sel("motion", 9),
		sel("motion", 12, "siren", 3),
		sel("touchscreen", 2, "door", 20),
		sel("siren", 7),
	}

	for _, selection := range cases {
		first := Validate(testCatalog(), testLimits(), selection)

		merged := capacity.Consolidate(selection)
		for _, item := range first.AutoAppendedItems {
			merged = capacity.WithQuantity(merged, item.ID, item.Quantity)
		}
		second := Validate(testCatalog(), testLimits(), merged)

		if diff := cmp.Diff(first.AutoAppendedItems, second.AutoAppendedItems); diff != "" {
			t.Errorf("re-validating %v changed items (-first +second):\n%s", selection, diff)
		}
	}
}

func TestValidate_UsageMonotonic(t *testing.T) {
	t.Parallel()

	ids := []string{"motion", "door", "keypad", "touchscreen", "siren"}
	cat := testCatalog()
	var selection []types.SelectionEntry
	prev := capacity.ComputeUsage(cat, selection)

	for i := 0; i < 20; i++ {
		id := ids[i%len(ids)]
		selection = capacity.WithQuantity(selection, id, capacity.QuantityOf(selection, id)+1)
		next := capacity.ComputeUsage(cat, selection)

		if next.Inputs < prev.Inputs || next.PowerMilliAmps < prev.PowerMilliAmps ||
			next.Keypads < prev.Keypads || next.Touchscreens < prev.Touchscreens {
			t.Fatalf("usage decreased after adding %s: %+v -> %+v", id, prev, next)
		}
		prev = next
	}
}
