package catalog

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/KevinKickass/AlarmConfigurator/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultQuantityMax caps an addon when its metadata names no maximum.
const DefaultQuantityMax = 10

// Markups derive the non-residential price books from a base amount.
type Markups struct {
	Retail    decimal.Decimal
	Office    decimal.Decimal
	Warehouse decimal.Decimal
}

// DefaultMarkups: retail +15%, office +15%, warehouse +30%.
var DefaultMarkups = Markups{
	Retail:    decimal.RequireFromString("1.15"),
	Office:    decimal.RequireFromString("1.15"),
	Warehouse: decimal.RequireFromString("1.30"),
}

// DefaultSlugMap maps store slugs and SKUs onto canonical addon ids.
var DefaultSlugMap = map[string]string{
	"door-window-contact":      "door-contact",
	"door-window-sensor":       "door-contact",
	"dw-contact":               "door-contact",
	"pir-motion-detector":      "motion",
	"motion-detector":          "motion",
	"pet-immune-motion":        "motion-pet",
	"glass-break-detector":     "glass-break",
	"smoke-detector":           "smoke",
	"heat-detector":            "heat",
	"co-detector":              "carbon-monoxide",
	"flood-sensor":             "flood",
	"panic-button":             "panic",
	"lcd-keypad":               "keypad",
	"keypad-lcd":               "keypad",
	"secondary-keypad":         "keypad2",
	"touchscreen-keypad":       "touchscreen",
	"touch-keypad-7":           "touchscreen",
	"outdoor-siren":            "siren-outdoor",
	"indoor-siren":             "siren-indoor",
	"zone-expander-8":          types.AddonInputExpander,
	"input-expander-module":    types.AddonInputExpander,
	"aux-power-supply":         types.AddonPowerSupply,
	"additional-power-supply":  types.AddonPowerSupply,
	"power-supply-module-1-5a": types.AddonPowerSupply,
}

// Options configure a Normalizer.
type Options struct {
	SlugMap            map[string]string
	Markups            Markups
	DefaultQuantityMax int
}

// DefaultOptions returns the documented fallback behaviour.
func DefaultOptions() Options {
	return Options{
		SlugMap:            DefaultSlugMap,
		Markups:            DefaultMarkups,
		DefaultQuantityMax: DefaultQuantityMax,
	}
}

// Result is the normalized catalog plus the data warnings raised on the way.
type Result struct {
	Addons   []types.AddonDefinition
	Warnings []string
}

// Normalizer converts external product records into addon definitions.
type Normalizer struct {
	opts   Options
	logger *zap.Logger
}

func NewNormalizer(opts Options, logger *zap.Logger) *Normalizer {
	if opts.SlugMap == nil {
		opts.SlugMap = DefaultSlugMap
	}
	if opts.Markups.Retail.IsZero() && opts.Markups.Office.IsZero() && opts.Markups.Warehouse.IsZero() {
		opts.Markups = DefaultMarkups
	}
	if opts.DefaultQuantityMax <= 0 {
		opts.DefaultQuantityMax = DefaultQuantityMax
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{opts: opts, logger: logger}
}

// Normalize never fails: malformed fields fall back to their defaults and
// are reported in Result.Warnings.
func Normalize(products []ExternalProduct) Result {
	return NewNormalizer(DefaultOptions(), nil).Normalize(products)
}

func (n *Normalizer) Normalize(products []ExternalProduct) Result {
	res := Result{Addons: make([]types.AddonDefinition, 0, len(products))}
	seen := make(map[string]bool, len(products))

	for i, p := range products {
		id := n.canonicalID(p)
		if id == "" {
			res.warn(n.logger, fmt.Sprintf("product #%d has neither slug nor sku; skipped", i))
			continue
		}
		if seen[id] {
			res.warn(n.logger, fmt.Sprintf("%s: duplicate product (slug %q); first occurrence kept", id, p.Slug))
			continue
		}
		seen[id] = true

		res.Addons = append(res.Addons, n.normalizeOne(id, p, &res))
	}

	return res
}

func (r *Result) warn(logger *zap.Logger, msg string) {
	r.Warnings = append(r.Warnings, msg)
	logger.Warn("Catalog data warning", zap.String("warning", msg))
}

// canonicalID maps slug, then SKU, through the slug map. Unmapped products
// keep their own slug (or SKU) as id.
func (n *Normalizer) canonicalID(p ExternalProduct) string {
	keys := make([]string, 0, 2)
	for _, key := range []string{p.Slug, p.SKU} {
		if key = strings.ToLower(strings.TrimSpace(key)); key != "" {
			keys = append(keys, key)
		}
	}

	for _, key := range keys {
		if id, ok := n.opts.SlugMap[key]; ok {
			return id
		}
	}
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

func (n *Normalizer) normalizeOne(id string, p ExternalProduct, res *Result) types.AddonDefinition {
	meta := metaIndex(p.MetaData)
	warnf := func(format string, args ...any) {
		res.warn(n.logger, id+": "+fmt.Sprintf(format, args...))
	}

	def := types.AddonDefinition{
		ID:      id,
		Name:    strings.TrimSpace(p.Name),
		Summary: strings.TrimSpace(p.ShortDescription),
	}
	if def.Name == "" {
		def.Name = id
	}
	if v, ok := meta.get("summary"); ok {
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) != "" {
			def.Summary = strings.TrimSpace(s)
		}
	}
	if v, ok := meta.get("bullets", "features"); ok {
		def.Bullets = toStrings(v)
	}

	def.Category = n.category(id, p, meta, warnf)

	def.ConsumesInputZone = boolField(meta, warnf, false, "consumes_input_zone", "input_zone")
	def.IsTouchscreen = boolField(meta, warnf, false, "is_touchscreen", "touchscreen")
	def.PowerMilliAmps = intField(meta, warnf, 0, "power_ma", "power_milliamps", "current_draw_ma")
	def.ProvidesInputZones = intField(meta, warnf, 0, "provides_input_zones", "zone_capacity")
	def.ProvidesMilliAmps = intField(meta, warnf, 0, "provides_power_ma", "supply_ma")

	defaultAuto := id == types.AddonInputExpander || id == types.AddonPowerSupply
	def.IsAutoAppended = boolField(meta, warnf, defaultAuto, "auto_appended", "is_auto_appended")

	def.QuantityMin = intField(meta, warnf, 0, "quantity_min", "qty_min")
	def.QuantityMax = intField(meta, warnf, n.opts.DefaultQuantityMax, "quantity_max", "qty_max")
	if def.QuantityMin > def.QuantityMax {
		warnf("quantity_min %d exceeds quantity_max %d; raising max", def.QuantityMin, def.QuantityMax)
		def.QuantityMax = def.QuantityMin
	}

	def.UnitPriceByContext = n.prices(p, meta, warnf)

	return def
}

func (n *Normalizer) category(id string, p ExternalProduct, meta metadata, warnf func(string, ...any)) types.Category {
	if v, ok := meta.get("category"); ok {
		s, _ := v.(string)
		if c, known := types.ParseCategory(strings.ToLower(strings.TrimSpace(s))); known {
			return c
		}
		warnf("unknown category %v; using %s", v, types.CategoryAccessory)
		return types.CategoryAccessory
	}

	for _, raw := range p.Categories {
		name := strings.ToLower(strings.TrimSpace(raw))
		if c, known := types.ParseCategory(name); known {
			return c
		}
		if c, known := types.ParseCategory(strings.TrimSuffix(name, "s")); known {
			return c
		}
	}

	switch id {
	case types.AddonInputExpander:
		return types.CategoryExpander
	case types.AddonPowerSupply:
		return types.CategoryPSU
	}
	return types.CategoryAccessory
}

// prices resolves the per-context price book. Explicit overrides win; the
// base amount seeds residential, and the markups (or the top of a price
// range, for retail) fill the other books.
func (n *Normalizer) prices(p ExternalProduct, meta metadata, warnf func(string, ...any)) map[types.PropertyContext]decimal.Decimal {
	out := make(map[types.PropertyContext]decimal.Decimal, len(types.AllContexts))

	var base decimal.Decimal
	haveBase := false

	if v, ok := meta.get("unit_price"); ok {
		switch val := v.(type) {
		case map[string]any:
			keys := make([]string, 0, len(val))
			for k := range val {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				raw := val[k]
				ctx, known := types.ParseContext(strings.ToLower(k))
				if !known {
					warnf("unit_price names unknown context %q; ignored", k)
					continue
				}
				if d, ok := toDecimal(raw); ok {
					out[ctx] = d
				} else {
					warnf("invalid unit_price.%s value %v; ignored", k, raw)
				}
			}
		default:
			if d, ok := toDecimal(val); ok {
				base, haveBase = d, true
			} else {
				warnf("invalid unit_price value %v; ignored", val)
			}
		}
	}

	for _, ctx := range types.AllContexts {
		v, ok := meta.get("price_" + string(ctx))
		if !ok {
			continue
		}
		if d, valid := toDecimal(v); valid {
			out[ctx] = d
		} else {
			warnf("invalid price_%s value %v; ignored", ctx, v)
		}
	}

	if !haveBase {
		for _, candidate := range []any{p.Price, p.RegularPrice, rangeBound(p.PriceRange, false)} {
			if candidate == nil || candidate == "" {
				continue
			}
			if d, ok := toDecimal(candidate); ok {
				base, haveBase = d, true
				break
			}
			warnf("invalid price value %v; ignored", candidate)
		}
	}

	if haveBase {
		setDefault(out, types.ContextResidential, base)

		retail := base.Mul(n.opts.Markups.Retail)
		if top, ok := toDecimal(rangeBound(p.PriceRange, true)); ok {
			retail = top
		}
		setDefault(out, types.ContextRetail, retail)
		setDefault(out, types.ContextOffice, base.Mul(n.opts.Markups.Office))
		setDefault(out, types.ContextWarehouse, base.Mul(n.opts.Markups.Warehouse))
	} else if _, ok := out[types.ContextResidential]; !ok {
		warnf("no usable price; priced at zero unless a context override exists")
	}

	for ctx, d := range out {
		out[ctx] = d.Round(2)
	}
	return out
}

func setDefault(m map[types.PropertyContext]decimal.Decimal, ctx types.PropertyContext, d decimal.Decimal) {
	if _, ok := m[ctx]; !ok {
		m[ctx] = d
	}
}

func rangeBound(r *PriceRange, top bool) any {
	if r == nil {
		return nil
	}
	if top {
		return r.Max
	}
	return r.Min
}

// metadata indexes meta entries by normalized key; the last entry wins.
type metadata map[string]any

func metaIndex(entries []MetaEntry) metadata {
	m := make(metadata, len(entries))
	for _, e := range entries {
		key := strings.TrimLeft(strings.ToLower(strings.TrimSpace(e.Key)), "_")
		if key == "" {
			continue
		}
		m[key] = e.Value
	}
	return m
}

func (m metadata) get(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func boolField(m metadata, warnf func(string, ...any), def bool, keys ...string) bool {
	v, ok := m.get(keys...)
	if !ok {
		return def
	}
	b, valid := toBool(v)
	if !valid {
		warnf("invalid %s value %v; using default %t", keys[0], v, def)
		return def
	}
	return b
}

func intField(m metadata, warnf func(string, ...any), def int, keys ...string) int {
	v, ok := m.get(keys...)
	if !ok {
		return def
	}
	i, valid := toNonNegativeInt(v)
	if !valid {
		warnf("invalid %s value %v; using default %d", keys[0], v, def)
		return def
	}
	return i
}

func toBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case float64:
		if val == 0 || val == 1 {
			return val == 1, true
		}
	case int:
		if val == 0 || val == 1 {
			return val == 1, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "yes", "y", "1", "on":
			return true, true
		case "false", "no", "n", "0", "off", "":
			return false, true
		}
	}
	return false, false
}

func toNonNegativeInt(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		if val >= 0 && val == math.Trunc(val) && val <= math.MaxInt32 {
			return int(val), true
		}
	case int:
		if val >= 0 {
			return val, true
		}
	case int64:
		if val >= 0 && val <= math.MaxInt32 {
			return int(val), true
		}
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		s = strings.TrimSpace(strings.TrimSuffix(s, "ma"))
		i, err := strconv.Atoi(s)
		if err == nil && i >= 0 {
			return i, true
		}
	}
	return 0, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	var d decimal.Decimal
	switch val := v.(type) {
	case float64:
		d = decimal.NewFromFloat(val)
	case int:
		d = decimal.NewFromInt(int64(val))
	case int64:
		d = decimal.NewFromInt(val)
	case string:
		s := strings.TrimSpace(val)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		d = parsed
	default:
		return decimal.Zero, false
	}
	if d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

func toStrings(v any) []string {
	var raw []string
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case []string:
		raw = val
	case string:
		raw = strings.FieldsFunc(val, func(r rune) bool { return r == '|' || r == '\n' })
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
