package rules

import (
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

// Issue codes. CAPACITY_0xx are hard violations, CAPACITY_1xx soft
// threshold advisories, QUANTITY_* per-addon bounds, DATA_* data warnings.
const (
	CodeInputsExceeded       = "CAPACITY_001"
	CodeKeypadsExceeded      = "CAPACITY_002"
	CodeTouchscreensExceeded = "CAPACITY_003"
	CodePowerExceeded        = "CAPACITY_004"
	CodeExpandersExceeded    = "CAPACITY_005"

	CodeInputsThreshold       = "CAPACITY_101"
	CodePowerThreshold        = "CAPACITY_102"
	CodeTouchscreensThreshold = "CAPACITY_103"

	CodeQuantityOutOfRange = "QUANTITY_001"

	CodeUnknownAddon     = "DATA_001"
	CodeMissingAccessory = "DATA_002"
)

const (
	dimInputs       = "inputs"
	dimPower        = "power"
	dimKeypads      = "keypads"
	dimTouchscreens = "touchscreens"
)

type report struct {
	issues []types.Issue
}

func (r *report) violation(code, dim, addonID, msg string) {
	r.issues = append(r.issues, types.Issue{
		Code:      code,
		Severity:  types.SevViolation,
		Message:   msg,
		AddonID:   addonID,
		Dimension: dim,
	})
}

func (r *report) warning(code, dim, msg string) {
	r.issues = append(r.issues, types.Issue{
		Code:      code,
		Severity:  types.SevWarning,
		Message:   msg,
		Dimension: dim,
	})
}

func (r *report) data(code, addonID, msg string) {
	r.issues = append(r.issues, types.Issue{
		Code:     code,
		Severity: types.SevData,
		Message:  msg,
		AddonID:  addonID,
	})
}

// finalize derives the string lists the UI renders. Violations block;
// soft and data warnings both land in Warnings.
func (r *report) finalize(res *types.ValidationResult) {
	res.Violations = make([]string, 0)
	res.Warnings = make([]string, 0)
	res.Issues = make([]types.Issue, 0, len(r.issues))

	for _, issue := range r.issues {
		res.Issues = append(res.Issues, issue)
		if issue.Severity == types.SevViolation {
			res.Violations = append(res.Violations, issue.Message)
		} else {
			res.Warnings = append(res.Warnings, issue.Message)
		}
	}

	res.IsValid = len(res.Violations) == 0
}
