package store

import "testing"

func TestNormalizePhoneProducesE164(t *testing.T) {
	base := NormalizePhone("1155551234")
	if base == "" || base[0] != '+' {
		t.Fatalf("expected E.164 output, got %q", base)
	}

	// Formatting variants of the same number collapse to one identity.
	for _, raw := range []string{"11 5555 1234", "11-5555-1234", "(11) 5555-1234"} {
		if got := NormalizePhone(raw); got != base {
			t.Errorf("NormalizePhone(%q) = %q, want %q", raw, got, base)
		}
	}
}

func TestNormalizePhoneKeepsUnparseableInput(t *testing.T) {
	if got := NormalizePhone("  not-a-number  "); got != "not-a-number" {
		t.Errorf("expected trimmed raw value, got %q", got)
	}
}
