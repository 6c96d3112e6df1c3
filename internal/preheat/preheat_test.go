package preheat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubTask struct {
	id      string
	count   int
	err     error
	invoked bool
}

func (s *stubTask) ID() string { return s.id }

func (s *stubTask) Run(ctx context.Context, targetDate time.Time, symbols []string) (int, error) {
	s.invoked = true
	return s.count, s.err
}

func TestRunAllCollectsPerTaskResults(t *testing.T) {
	a := &stubTask{id: "A", count: 50}
	b := &stubTask{id: "B", err: errors.New("boom")}

	r := NewRegistry(a, b)
	results := r.RunAll(context.Background(), time.Now(), nil)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].TaskID != "A" || results[0].Count != 50 || results[0].Err != nil {
		t.Errorf("unexpected result for A: %+v", results[0])
	}
	if results[1].TaskID != "B" || results[1].Err == nil {
		t.Errorf("unexpected result for B: %+v", results[1])
	}
}

func TestRunAllContinuesAfterTaskFailure(t *testing.T) {
	// Mirrors the E5 scenario: task A succeeds, task B fails, the registry
	// still invokes every task in order and does not abort early.
	a := &stubTask{id: "A", count: 50}
	failing := &stubTask{id: "B", err: errors.New("source unreachable")}
	c := &stubTask{id: "C", count: 10}

	r := NewRegistry(a, failing, c)
	r.RunAll(context.Background(), time.Now(), nil)

	if !a.invoked || !failing.invoked || !c.invoked {
		t.Fatal("expected every task to be invoked despite a failure")
	}
}

func TestRunAllPreservesRegistrationOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(id string) *stubTask {
		return &stubTask{id: id}
	}
	tasks := []*stubTask{record("first"), record("second"), record("third")}
	r := NewRegistry(
		taskFunc{id: tasks[0].id, fn: func() { mu.Lock(); order = append(order, "first"); mu.Unlock() }},
		taskFunc{id: tasks[1].id, fn: func() { mu.Lock(); order = append(order, "second"); mu.Unlock() }},
		taskFunc{id: tasks[2].id, fn: func() { mu.Lock(); order = append(order, "third"); mu.Unlock() }},
	)
	r.RunAll(context.Background(), time.Now(), nil)

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

// taskFunc adapts a bare callback into a Task for order-sensitivity tests.
type taskFunc struct {
	id string
	fn func()
}

func (t taskFunc) ID() string { return t.id }

func (t taskFunc) Run(ctx context.Context, targetDate time.Time, symbols []string) (int, error) {
	t.fn()
	return 0, nil
}
