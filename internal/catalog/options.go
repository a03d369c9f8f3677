package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/KevinKickass/AlarmConfigurator/internal/config"
)

// OptionsFromConfig builds normalizer options from the catalog section.
// Configured slugs extend DefaultSlugMap; empty markups keep their default.
func OptionsFromConfig(cfg config.CatalogConfig) (Options, error) {
	opts := DefaultOptions()
	if cfg.DefaultQuantityMax > 0 {
		opts.DefaultQuantityMax = cfg.DefaultQuantityMax
	}

	if len(cfg.SlugMap) > 0 {
		merged := make(map[string]string, len(DefaultSlugMap)+len(cfg.SlugMap))
		for k, v := range DefaultSlugMap {
			merged[k] = v
		}
		for k, v := range cfg.SlugMap {
			merged[k] = v
		}
		opts.SlugMap = merged
	}

	for _, m := range []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"retail", cfg.Markups.Retail, &opts.Markups.Retail},
		{"office", cfg.Markups.Office, &opts.Markups.Office},
		{"warehouse", cfg.Markups.Warehouse, &opts.Markups.Warehouse},
	} {
		if m.value == "" {
			continue
		}
		d, err := decimal.NewFromString(m.value)
		if err != nil || d.IsNegative() {
			return opts, fmt.Errorf("invalid catalog.markups.%s: %q", m.name, m.value)
		}
		*m.dst = d
	}

	return opts, nil
}
