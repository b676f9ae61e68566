package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 2,
		SuccessThreshold: 1,
		FailureRatio:     0.5,
		MinRequests:      100,
	}
}

type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) record(_ string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *stateRecorder) last() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return ""
	}
	return r.states[len(r.states)-1]
}

func TestStateHookFiresOnRegistrationAndTransition(t *testing.T) {
	cb, err := New(testConfig("hooked"), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec := &stateRecorder{}
	cb.OnStateChange(rec.record)

	// Registration reports the current state.
	if rec.last() != StateClosed {
		t.Fatalf("initial hook state = %s, want closed", rec.last())
	}

	// Two consecutive failures trip the breaker.
	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		cb.Execute(context.Background(), func() (interface{}, error) { return nil, boom })
	}

	if rec.last() != StateOpen {
		t.Errorf("hook state after trip = %s, want open", rec.last())
	}
	if !cb.IsOpen() {
		t.Error("breaker should be open after consecutive failures")
	}
}

func TestManagerStateHookCoversExistingAndNewBreakers(t *testing.T) {
	m := NewManager(zap.NewNop())

	existing, err := m.GetOrCreate("existing", testConfig("existing"))
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	rec := &stateRecorder{}
	seen := map[string]State{}
	var mu sync.Mutex
	m.OnStateChange(func(name string, state State) {
		rec.record(name, state)
		mu.Lock()
		seen[name] = state
		mu.Unlock()
	})

	if _, err := m.GetOrCreate("later", testConfig("later")); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	mu.Lock()
	_, hasExisting := seen["existing"]
	_, hasLater := seen["later"]
	mu.Unlock()
	if !hasExisting || !hasLater {
		t.Fatalf("hook did not cover all breakers: %v", seen)
	}

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		existing.Execute(context.Background(), func() (interface{}, error) { return nil, boom })
	}

	mu.Lock()
	state := seen["existing"]
	mu.Unlock()
	if state != StateOpen {
		t.Errorf("existing breaker hook state = %s, want open", state)
	}
}
