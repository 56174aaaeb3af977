// Package security implements the secret scanner and plan validator from
// spec.md §4.I and §9: a rule table of credential-shaped regexes with
// redaction, the sensitive-filename-without-placeholder heuristic, and
// scope-gating validation of a normalized plan before it is allowed to
// apply.
//
// Grounded on spec.md §9 ("Secret scanner is a rule table of {name, regex,
// severity, redaction_template}... Redaction takes the first 4 and last 4
// characters of the match and elides the middle") and on core/src/lib.rs's
// validate_plan/is_sensitive_file call sites in the original Rust source
// this spec was distilled from (security.rs itself was not retained in the
// reference pack, so the rule table below is authored directly from
// spec.md's description rather than ported line-for-line).
package security

import (
	"fmt"
	"regexp"
	"strings"
)

// Severity classifies a scanner Finding.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is one matched rule within scanned content.
type Finding struct {
	PatternName   string
	Severity      Severity
	RedactedMatch string
}

// rule is one entry of the scanner's rule table.
type rule struct {
	name     string
	pattern  *regexp.Regexp
	severity Severity
}

// rules is the credential-shaped pattern table. AWS/GCP/Slack/private-key
// patterns are Error (they abort validation); generic high-entropy-looking
// assignments are Warning (surfaced but non-fatal).
var rules = []rule{
	{"aws_access_key_id", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), SeverityError},
	{"aws_secret_access_key", regexp.MustCompile(`(?i)aws_secret_access_key["']?\s*[:=]\s*["']?[A-Za-z0-9/+=]{40}\b`), SeverityError},
	{"github_token", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`), SeverityError},
	{"slack_token", regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`), SeverityError},
	{"private_key_block", regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH |DSA |)PRIVATE KEY-----`), SeverityError},
	{"generic_api_key_assignment", regexp.MustCompile(`(?i)\b(api[_-]?key|secret|token|password)\b\s*[:=]\s*["'][A-Za-z0-9+/_.=-]{16,}["']`), SeverityWarning},
}

// Redact replaces the middle of match with an elision marker, keeping the
// first 4 and last 4 characters, per spec §9. Matches shorter than 9
// characters are fully elided (no reconstructible fragment leaks).
func Redact(match string) string {
	if len(match) < 9 {
		return strings.Repeat("*", len(match))
	}
	return fmt.Sprintf("%s...%s", match[:4], match[len(match)-4:])
}

// ScanBytes runs every rule against content, returning one Finding per
// match with its Redact()-ed rendering. path is accepted for parity with
// the original signature but does not affect matching.
func ScanBytes(path string, content []byte) []Finding {
	var findings []Finding
	text := string(content)
	for _, r := range rules {
		matches := r.pattern.FindAllString(text, -1)
		for _, m := range matches {
			findings = append(findings, Finding{
				PatternName:   r.name,
				Severity:      r.severity,
				RedactedMatch: Redact(m),
			})
		}
	}
	return findings
}

// HasError reports whether findings contains any Error-severity entry.
func HasError(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ContainsPlaceholder reports whether content looks like it carries a
// template placeholder token (angle-bracketed, or a common ALL_CAPS
// <YOUR_...> / <your-...> convention, or a bare "..." marker) rather than a
// real secret value.
func ContainsPlaceholder(content string) bool {
	placeholderPatterns := []string{"<", "YOUR_", "your-", "xxx", "XXX", "changeme", "CHANGEME", "..."}
	for _, p := range placeholderPatterns {
		if strings.Contains(content, p) {
			return true
		}
	}
	return false
}

// sensitiveNameMarkers are substrings of a lowercased path that mark it as
// holding credential-shaped content.
var sensitiveNameMarkers = []string{"secret", "key", "token", "config", "settings"}

// IsSensitiveFile reports whether path's name suggests it carries
// credentials, per spec §9. A ".example" suffix is exempted (it is itself a
// template, not a live secret), per the original's is_sensitive_file()
// `.example` carve-out ported in SPEC_FULL.md §12.
func IsSensitiveFile(path string) bool {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".example") {
		return false
	}
	if strings.HasSuffix(lower, ".env") {
		return true
	}
	for _, marker := range sensitiveNameMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
