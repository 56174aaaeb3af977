package security

import (
	"errors"
	"testing"

	"github.com/boshu2/macc/internal/macc"
	"github.com/boshu2/macc/internal/plan"
)

func TestScanBytesDetectsAWSKey(t *testing.T) {
	findings := ScanBytes("leaked.txt", []byte("My key is AKIA1234567890123456"))
	if !HasError(findings) {
		t.Fatalf("expected an error-severity finding, got %+v", findings)
	}
	for _, f := range findings {
		if f.RedactedMatch == "AKIA1234567890123456" {
			t.Fatalf("redacted match must not contain the full secret: %+v", f)
		}
	}
}

func TestRedactElidesMiddle(t *testing.T) {
	got := Redact("AKIA1234567890123456")
	if got != "AKIA...3456" {
		t.Fatalf("got %q, want AKIA...3456", got)
	}
}

func TestIsSensitiveFileExampleCarveOut(t *testing.T) {
	if !IsSensitiveFile(".env") {
		t.Fatal(".env should be sensitive")
	}
	if IsSensitiveFile(".env.example") {
		t.Fatal(".env.example should be exempted")
	}
	if !IsSensitiveFile("config/settings.json") {
		t.Fatal("settings.json should be sensitive")
	}
}

func TestValidatePlanRejectsSecret(t *testing.T) {
	p := plan.New()
	p.Add(plan.WriteFile("leaked.txt", []byte("My key is AKIA1234567890123456"), plan.ScopeProject))

	_, err := ValidatePlan(p, true)
	var merr *macc.Error
	if !errors.As(err, &merr) || merr.Kind != macc.KindSecretDetected {
		t.Fatalf("expected SecretDetected, got %v", err)
	}
}

func TestValidatePlanGatesUserScope(t *testing.T) {
	p := plan.New()
	p.Add(plan.WriteFile("x", []byte("ok"), plan.ScopeUser))

	_, err := ValidatePlan(p, false)
	var merr *macc.Error
	if !errors.As(err, &merr) || merr.Kind != macc.KindUserScopeNotAllowed {
		t.Fatalf("expected UserScopeNotAllowed, got %v", err)
	}

	if _, err := ValidatePlan(p, true); err != nil {
		t.Fatalf("allow_user_scope=true should pass: %v", err)
	}
}

func TestValidatePlanAllowsCleanContent(t *testing.T) {
	p := plan.New()
	p.Add(plan.WriteFile("hello.txt", []byte("hello"), plan.ScopeProject))
	if _, err := ValidatePlan(p, false); err != nil {
		t.Fatalf("clean content should validate: %v", err)
	}
}
