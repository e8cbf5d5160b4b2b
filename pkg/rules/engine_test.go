package rules

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"
)

func fixedEngine(plan Plan) *Engine {
	e := NewEngine(plan)
	e.nowFunc = func() time.Time {
		return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return e
}

func TestBenefitsSnapshot(t *testing.T) {
	e := NewEngine(DefaultPlan())
	b := e.Benefits()
	if b.CoverageStart != "2025-01-01" || b.CoverageEnd != "2025-12-31" {
		t.Fatalf("unexpected coverage window: %s to %s", b.CoverageStart, b.CoverageEnd)
	}
	if b.CopayOrCoins != "20% coinsurance" {
		t.Fatalf("unexpected cost share: %s", b.CopayOrCoins)
	}
	if b.PTVisitLimit != 12 || b.PTVisitsUsed != 2 {
		t.Fatalf("unexpected visit counts: limit %d used %d", b.PTVisitLimit, b.PTVisitsUsed)
	}
}

func TestAuthorizeNotRequiredAtOrBelowThreshold(t *testing.T) {
	e := fixedEngine(DefaultPlan())
	for _, visits := range []int{0, 1, 3, 6} {
		r := e.Authorize(visits)
		if r.AuthRequired {
			t.Fatalf("visits %d should not require auth", visits)
		}
		if r.VisitsApproved != 0 {
			t.Fatalf("visits %d: expected 0 approved, got %d", visits, r.VisitsApproved)
		}
		if r.AuthNumber != nil {
			t.Fatalf("visits %d: expected no auth number, got %s", visits, *r.AuthNumber)
		}
	}
}

func TestAuthorizeRequiredAboveThreshold(t *testing.T) {
	e := fixedEngine(DefaultPlan())
	for _, visits := range []int{7, 8, 100} {
		r := e.Authorize(visits)
		if !r.AuthRequired {
			t.Fatalf("visits %d should require auth", visits)
		}
		if r.VisitsApproved != 6 {
			t.Fatalf("visits %d: expected 6 approved, got %d", visits, r.VisitsApproved)
		}
		if r.AuthNumber == nil {
			t.Fatalf("visits %d: expected an auth number", visits)
		}
	}
}

func TestAuthNumberFormat(t *testing.T) {
	e := fixedEngine(DefaultPlan())
	pattern := regexp.MustCompile(`^PT-[0-9A-F]{8}$`)
	r := e.Authorize(8)
	if r.AuthNumber == nil || !pattern.MatchString(*r.AuthNumber) {
		t.Fatalf("auth number %v does not match PT-XXXXXXXX", r.AuthNumber)
	}
}

func TestAuthorizeApprovalClampedToRemainingVisits(t *testing.T) {
	plan := DefaultPlan()
	plan.PTVisitLimit = 12
	plan.PTVisitsUsed = 8
	r := fixedEngine(plan).Authorize(10)
	if !r.AuthRequired {
		t.Fatal("expected auth to be required")
	}
	if r.VisitsApproved != 4 {
		t.Fatalf("expected 4 approved, got %d", r.VisitsApproved)
	}
}

func TestAuthorizeApprovalNeverNegative(t *testing.T) {
	plan := DefaultPlan()
	plan.PTVisitLimit = 2
	plan.PTVisitsUsed = 5
	r := fixedEngine(plan).Authorize(10)
	if !r.AuthRequired {
		t.Fatal("expected auth to be required")
	}
	if r.VisitsApproved != 0 {
		t.Fatalf("expected 0 approved for exhausted plan, got %d", r.VisitsApproved)
	}
	if r.AuthNumber == nil {
		t.Fatal("expected an auth number even when nothing is approved")
	}
}

func TestAuthorizeValidityWindow(t *testing.T) {
	r := fixedEngine(DefaultPlan()).Authorize(8)
	if r.ValidFrom != "2025-03-01" {
		t.Fatalf("expected validFrom 2025-03-01, got %s", r.ValidFrom)
	}
	if r.ValidTo != "2025-04-30" {
		t.Fatalf("expected validTo 2025-04-30, got %s", r.ValidTo)
	}

	from, err := time.Parse(dateLayout, r.ValidFrom)
	if err != nil {
		t.Fatalf("bad validFrom: %v", err)
	}
	to, err := time.Parse(dateLayout, r.ValidTo)
	if err != nil {
		t.Fatalf("bad validTo: %v", err)
	}
	if to.Sub(from) != 60*24*time.Hour {
		t.Fatalf("expected a 60 day window, got %v", to.Sub(from))
	}
}

func TestLoadPlanEmptyPathUsesDefaults(t *testing.T) {
	plan, err := LoadPlan("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan != DefaultPlan() {
		t.Fatalf("expected default plan, got %+v", plan)
	}
}

func TestLoadPlanFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	content := "coverage_start: \"2026-01-01\"\ncoverage_end: \"2026-12-31\"\ncopay_or_coins: \"$30 copay\"\npt_visit_limit: 20\npt_visits_used: 0\nauth_visit_threshold: 10\nvalidity_days: 90\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write plan file: %v", err)
	}

	plan, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.PTVisitLimit != 20 || plan.AuthVisitThreshold != 10 || plan.ValidityDays != 90 {
		t.Fatalf("plan not loaded from file: %+v", plan)
	}
}
