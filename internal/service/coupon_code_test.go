package service

import "testing"

func TestCouponCodeCandidatesOrder(t *testing.T) {
	candidates := CouponCodeCandidates("AFF-007", "Jane", "Smith", 2025)

	wantTotal := 6 + 99 + 1
	if len(candidates) != wantTotal {
		t.Fatalf("expected %d candidates, got %d", wantTotal, len(candidates))
	}

	wantPrefixed := []string{"PS-JS25", "NYC-JS25", "BK-JS25", "BX-JS25", "QN-JS25", "SI-JS25"}
	for i, want := range wantPrefixed {
		if candidates[i] != want {
			t.Fatalf("candidate %d: expected %q, got %q", i, want, candidates[i])
		}
	}

	if candidates[6] != "PS-JS25-1" {
		t.Fatalf("expected first numeric fallback PS-JS25-1, got %q", candidates[6])
	}
	if candidates[6+98] != "PS-JS25-99" {
		t.Fatalf("expected last numeric fallback PS-JS25-99, got %q", candidates[6+98])
	}
	if candidates[len(candidates)-1] != "PS-AFF007" {
		t.Fatalf("expected final fallback PS-AFF007, got %q", candidates[len(candidates)-1])
	}
}

func TestCouponCodeCandidatesUppercasesInitials(t *testing.T) {
	candidates := CouponCodeCandidates("AFF-001", "jane", "smith", 2024)
	if candidates[0] != "PS-JS24" {
		t.Fatalf("expected lowercased names to yield PS-JS24, got %q", candidates[0])
	}
}

func TestCouponCodeCandidatesTrimsNames(t *testing.T) {
	candidates := CouponCodeCandidates("AFF-002", "  Maria ", " Ortiz ", 2026)
	if candidates[0] != "PS-MO26" {
		t.Fatalf("expected trimmed initials PS-MO26, got %q", candidates[0])
	}
}

func TestCouponCodeCandidatesStripsAffiliateID(t *testing.T) {
	candidates := CouponCodeCandidates("AFF-123", "A", "B", 2025)
	last := candidates[len(candidates)-1]
	if last != "PS-AFF123" {
		t.Fatalf("expected separator-free fallback PS-AFF123, got %q", last)
	}
}
