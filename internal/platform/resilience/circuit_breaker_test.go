package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_Transitions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	var seen []CircuitState
	b := CircuitBreakerConfig{Enabled: true, FailureThreshold: 2, OpenTimeout: 5 * time.Second, HalfOpenMaxReq: 1}.
		Build("atcoder", func(name string, _, to CircuitState) {
			if name != "atcoder" {
				t.Errorf("unexpected breaker name %q", name)
			}
			seen = append(seen, to)
		})
	b.now = func() time.Time { return now }

	steps := []struct {
		name      string
		advance   time.Duration
		failed    bool
		wantAllow error
		wantState CircuitState
	}{
		{name: "first failure stays closed", failed: true, wantState: CircuitStateClosed},
		{name: "threshold opens", failed: true, wantState: CircuitStateOpen},
		{name: "open rejects", wantAllow: ErrCircuitOpen, wantState: CircuitStateOpen},
		{name: "cooldown admits probe, failure reopens", advance: 6 * time.Second, failed: true, wantState: CircuitStateOpen},
		{name: "successful probe closes", advance: 6 * time.Second, wantState: CircuitStateClosed},
	}

	for _, step := range steps {
		now = now.Add(step.advance)
		err := b.Allow()
		if !errors.Is(err, step.wantAllow) {
			t.Fatalf("%s: Allow() got=%v want=%v", step.name, err, step.wantAllow)
		}
		if err == nil {
			b.Done(step.failed)
		}
		if got := b.State(); got != step.wantState {
			t.Fatalf("%s: state got=%s want=%s", step.name, got, step.wantState)
		}
	}

	want := []CircuitState{CircuitStateOpen, CircuitStateHalfOpen, CircuitStateOpen, CircuitStateHalfOpen, CircuitStateClosed}
	if len(seen) != len(want) {
		t.Fatalf("transitions got=%v want=%v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transition %d got=%s want=%s", i, seen[i], want[i])
		}
	}
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	b := NewCircuitBreaker(1, time.Second, 1)
	b.now = func() time.Time { return now }

	_ = b.Allow()
	b.Done(true)
	now = now.Add(2 * time.Second)

	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe to pass, got %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected second probe rejected, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureRun(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker(2, time.Minute, 1)
	for _, failed := range []bool{true, false, true} {
		_ = b.Allow()
		b.Done(failed)
	}
	if got := b.State(); got != CircuitStateClosed {
		t.Fatalf("state got=%s want=%s", got, CircuitStateClosed)
	}
}

func TestCircuitBreaker_NilAllowsEverything(t *testing.T) {
	t.Parallel()

	b := CircuitBreakerConfig{Enabled: false}.Build("codeforces", nil)
	if b != nil {
		t.Fatalf("expected nil breaker when disabled")
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("nil breaker should allow: %v", err)
	}
	b.Done(true)
	if got := b.State(); got != CircuitStateClosed {
		t.Fatalf("nil breaker state got=%s want=%s", got, CircuitStateClosed)
	}
	if b.Name() != "" {
		t.Fatalf("nil breaker name got=%q", b.Name())
	}
}
