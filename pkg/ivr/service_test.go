package ivr

import (
	"context"
	"errors"
	"testing"

	"github.com/clearintake-ai/platform/pkg/rules"
)

func newTestService() *Service {
	return NewService(newTestMachine(), NewMemoryStore(0))
}

func TestStartOpensSessionAtMainMenu(t *testing.T) {
	svc := newTestService()

	state, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if state.State != string(StateMainMenu) {
		t.Fatalf("expected mainMenu, got %s", state.State)
	}
	if state.Prompt != promptMainMenu {
		t.Fatalf("unexpected prompt: %s", state.Prompt)
	}
}

func TestDtmfPersistsAcrossCalls(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	started, err := svc.Start(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, err := svc.Dtmf(ctx, started.SessionID, "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.State != string(StateCollectMemberIDElig) {
		t.Fatalf("expected collectMemberIdElig, got %s", state.State)
	}

	// A later press continues from the stored state, not from scratch.
	state, err = svc.Dtmf(ctx, started.SessionID, "4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.State != string(StateCollectMemberIDElig) || state.Prompt != promptContinueMemberID {
		t.Fatalf("expected continued collection, got %s / %s", state.State, state.Prompt)
	}
}

func TestDtmfUnknownSessionReturnsNotFound(t *testing.T) {
	svc := newTestService()

	_, err := svc.Dtmf(context.Background(), "no-such-session", "1")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestResultUnknownSessionReturnsNotFound(t *testing.T) {
	svc := newTestService()

	_, err := svc.Result(context.Background(), "no-such-session")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestResultEmptyUntilBranchRuns(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	started, err := svc.Start(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Result(ctx, started.SessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Benefits != nil || result.AuthResult != nil {
		t.Fatalf("expected empty result before any branch ran, got %+v", result)
	}
}

func TestEligibilityFlowExposesBenefitsResult(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	started, err := svc.Start(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, digit := range []string{"1", "4", "5", "6", "#", "1", "9", "8", "9", "1", "1", "2", "2", "#"} {
		if _, err := svc.Dtmf(ctx, started.SessionID, digit); err != nil {
			t.Fatalf("keypress %q failed: %v", digit, err)
		}
	}

	result, err := svc.Result(ctx, started.SessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Benefits == nil {
		t.Fatal("expected benefits after the eligibility flow")
	}
	if result.Benefits.CoverageStart != "2025-01-01" || result.Benefits.PTVisitLimit != 12 {
		t.Fatalf("unexpected benefits: %+v", result.Benefits)
	}
	if result.AuthResult != nil {
		t.Fatal("the eligibility flow must not produce an authorization")
	}
}

func TestResultSurvivesHangup(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	started, err := svc.Start(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, digit := range []string{"1", "4", "#", "1", "9", "8", "9", "1", "1", "2", "2", "#", "0"} {
		if _, err := svc.Dtmf(ctx, started.SessionID, digit); err != nil {
			t.Fatalf("keypress %q failed: %v", digit, err)
		}
	}

	result, err := svc.Result(ctx, started.SessionID)
	if err != nil {
		t.Fatalf("ended sessions must still answer result queries: %v", err)
	}
	if result.Benefits == nil {
		t.Fatal("expected benefits to survive the hangup")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	svc := NewService(NewMachine(rules.NewEngine(rules.DefaultPlan())), NewMemoryStore(0))
	ctx := context.Background()

	first, err := svc.Start(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Start(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.SessionID == second.SessionID {
		t.Fatal("sessions must get distinct ids")
	}

	if _, err := svc.Dtmf(ctx, first.SessionID, "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, err := svc.Dtmf(ctx, second.SessionID, "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.State != string(StateCollectMemberIDAuth) {
		t.Fatalf("second session should advance on its own, got %s", state.State)
	}
}
