package security

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boshu2/macc/internal/macc"
	"github.com/boshu2/macc/internal/plan"
)

// ValidatePlan enforces spec §4.I: any Scope::User action fails validation
// with UserScopeNotAllowed unless allowUserScope is set, and any WriteFile
// content or serialized MergeJson patch containing an Error-severity
// secret finding aborts with SecretDetected, carrying a redacted summary
// (never the full secret). Warnings are returned alongside a nil error so
// callers can surface them without failing the apply.
func ValidatePlan(p *plan.ActionPlan, allowUserScope bool) ([]Finding, error) {
	var warnings []Finding

	for _, a := range p.Actions {
		if a.Scope == plan.ScopeUser && !allowUserScope {
			return nil, macc.UserScopeNotAllowed()
		}

		switch a.Kind {
		case plan.KindWriteFile:
			findings := ScanBytes(a.Path, a.Content)
			if err := rejectOnError(a.Path, findings); err != nil {
				return nil, err
			}
			warnings = append(warnings, onlyWarnings(findings)...)

			if IsSensitiveFile(a.Path) && !ContainsPlaceholder(string(a.Content)) {
				warnings = append(warnings, Finding{PatternName: "sensitive_file_missing_placeholder", Severity: SeverityWarning})
			}
		case plan.KindMergeJSON:
			data, err := json.Marshal(a.Patch)
			if err != nil {
				return nil, macc.Validationf("plan: marshal merge patch for %s: %v", a.Path, err)
			}
			findings := ScanBytes(a.Path, data)
			if err := rejectOnError(a.Path, findings); err != nil {
				return nil, err
			}
			warnings = append(warnings, onlyWarnings(findings)...)
		}
	}

	return warnings, nil
}

func rejectOnError(path string, findings []Finding) error {
	if !HasError(findings) {
		return nil
	}
	var parts []string
	for _, f := range findings {
		if f.Severity == SeverityError {
			parts = append(parts, fmt.Sprintf("%s (%s)", f.PatternName, f.RedactedMatch))
		}
	}
	return macc.SecretDetected(path, strings.Join(parts, ", "))
}

func onlyWarnings(findings []Finding) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Severity == SeverityWarning {
			out = append(out, f)
		}
	}
	return out
}
