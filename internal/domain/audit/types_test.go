package audit

import "testing"

func TestRedactSensitiveAttrs(t *testing.T) {
	attrs := map[string]any{
		"isPublic":      true,
		"apiKey":        "sk-12345",
		"db_password":   "hunter2",
		"access_token":  "abc",
		"ssn":           "000-00-0000",
		"allowedOrgIds": []string{"org-1"},
	}

	redacted := RedactSensitiveAttrs(attrs)

	if redacted["isPublic"] != true {
		t.Error("expected isPublic to pass through")
	}
	for _, key := range []string{"apiKey", "db_password", "access_token", "ssn"} {
		if redacted[key] != "***REDACTED***" {
			t.Errorf("expected %s to be redacted, got %v", key, redacted[key])
		}
	}
	if _, ok := redacted["allowedOrgIds"].([]string); !ok {
		t.Error("expected allowedOrgIds to pass through")
	}

	// Original map untouched
	if attrs["apiKey"] != "sk-12345" {
		t.Error("expected original map to be unmodified")
	}
}

func TestRedactSensitiveAttrsEmpty(t *testing.T) {
	if got := RedactSensitiveAttrs(nil); got != nil {
		t.Errorf("expected nil for nil input, got %v", got)
	}
	empty := map[string]any{}
	if got := RedactSensitiveAttrs(empty); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}
