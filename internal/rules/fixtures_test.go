package rules

import (
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

type mapCatalog map[string]types.AddonDefinition

func (m mapCatalog) Lookup(id string) (types.AddonDefinition, bool) {
	def, ok := m[id]
	return def, ok
}

func (m mapCatalog) without(ids ...string) mapCatalog {
	out := make(mapCatalog, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, id := range ids {
		delete(out, id)
	}
	return out
}

func testLimits() types.SystemLimits {
	return types.SystemLimits{
		MaxInputZones:            16,
		InputZoneSoftThreshold:   8,
		MaxPowerMilliAmps:        1000,
		MaxKeypads:               2,
		MaxTouchscreens:          2,
		TouchscreenSoftThreshold: 1,
	}
}

func testCatalog() mapCatalog {
	addons := []types.AddonDefinition{
		{ID: "motion", Name: "Motion Sensor", Category: types.CategorySensor, ConsumesInputZone: true, PowerMilliAmps: 20, QuantityMax: 32},
		{ID: "door", Name: "Door Contact", Category: types.CategorySensor, ConsumesInputZone: true, PowerMilliAmps: 10, QuantityMax: 32},
		{ID: "keypad", Name: "LCD Keypad", Category: types.CategoryKeypad, PowerMilliAmps: 100, QuantityMax: 4},
		{ID: "keypad2", Name: "Secondary Keypad", Category: types.CategoryKeypad, PowerMilliAmps: 100, QuantityMax: 4},
		{ID: "touchscreen", Name: "Touchscreen Keypad", Category: types.CategoryKeypad, IsTouchscreen: true, PowerMilliAmps: 250, QuantityMax: 4},
		{ID: "siren", Name: "Outdoor Siren", Category: types.CategoryAccessory, PowerMilliAmps: 300, QuantityMax: 10},
		{ID: "camera-kit", Name: "Camera Kit", Category: types.CategoryAccessory, QuantityMin: 2, QuantityMax: 6},
		{ID: types.AddonInputExpander, Name: "Input Expander", Category: types.CategoryExpander, IsAutoAppended: true, ProvidesInputZones: 8, QuantityMax: 4},
		{ID: types.AddonPowerSupply, Name: "Auxiliary Power Supply", Category: types.CategoryPSU, IsAutoAppended: true, ProvidesMilliAmps: 1000, QuantityMax: 1},
	}

	cat := make(mapCatalog, len(addons))
	for _, a := range addons {
		cat[a.ID] = a
	}
	return cat
}

func sel(pairs ...any) []types.SelectionEntry {
	out := make([]types.SelectionEntry, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, types.SelectionEntry{ID: pairs[i].(string), Quantity: pairs[i+1].(int)})
	}
	return out
}
