package rules

import (
	"go.uber.org/zap"

	"github.com/KevinKickass/AlarmConfigurator/internal/capacity"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

// Engine binds the rule functions to one catalog snapshot and one set of
// limits. It holds no mutable state and may be shared between sessions.
type Engine struct {
	catalog capacity.Catalog
	limits  types.SystemLimits
	logger  *zap.Logger
}

func NewEngine(cat capacity.Catalog, limits types.SystemLimits, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		catalog: cat,
		limits:  limits,
		logger:  logger,
	}
}

func (e *Engine) Catalog() capacity.Catalog {
	return e.catalog
}

func (e *Engine) Limits() types.SystemLimits {
	return e.limits
}

func (e *Engine) Validate(selection []types.SelectionEntry) types.ValidationResult {
	res := Validate(e.catalog, e.limits, selection)

	for _, issue := range res.Issues {
		if issue.Code == CodeUnknownAddon {
			e.logger.Warn("Selection references unknown addon",
				zap.String("addon_id", issue.AddonID))
		}
	}

	e.logger.Debug("Selection validated",
		zap.Bool("valid", res.IsValid),
		zap.Int("violations", len(res.Violations)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Int("auto_appended", len(res.AutoAppendedItems)))

	return res
}

func (e *Engine) CanIncrement(selection []types.SelectionEntry, id string, currentQuantity int) Decision {
	return CanIncrement(e.catalog, e.limits, selection, id, currentQuantity)
}

func (e *Engine) CanSetQuantity(selection []types.SelectionEntry, id string, target int) Decision {
	return CanSetQuantity(e.catalog, e.limits, selection, id, target)
}

func (e *Engine) CanDecrement(id string, currentQuantity int) Decision {
	return CanDecrement(e.catalog, id, currentQuantity)
}

// NextQuantity resolves id and returns the quantity an increment lands on.
func (e *Engine) NextQuantity(id string, current int) (int, bool) {
	def, ok := e.catalog.Lookup(id)
	if !ok {
		return 0, false
	}
	return NextQuantity(def, current), true
}
