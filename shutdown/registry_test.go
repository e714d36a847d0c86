package shutdown

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRegistry_RunsInPriorityOrder(t *testing.T) {
	var r Registry
	var order []string
	record := func(name string) Func {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	r.Register("logger", PriorityLogger, record("logger"))
	r.Register("db", PriorityDatabase, record("db"))
	r.Register("pipeline", PriorityPipeline, record("pipeline"))
	r.Register("temp", PriorityDatabase, record("temp"))

	want := []string{"pipeline", "db", "temp", "logger"}
	if diff := cmp.Diff(want, r.Names()); diff != "" {
		t.Errorf("Names() (-want +got):\n%s", diff)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("run order (-want +got):\n%s", diff)
	}
}

func TestRegistry_JoinsErrorsAndRunsAll(t *testing.T) {
	var r Registry
	errA := errors.New("close failed")
	ran := false

	r.Register("a", 1, func(context.Context) error { return errA })
	r.Register("b", 2, func(context.Context) error { ran = true; return nil })

	err := r.Run(context.Background())
	if !errors.Is(err, errA) {
		t.Errorf("Run() error = %v, want wrapping %v", err, errA)
	}
	if !strings.Contains(err.Error(), "a: close failed") {
		t.Errorf("error %q lacks entry name", err)
	}
	if !ran {
		t.Error("later entry skipped after failure")
	}
}

func TestRegistry_RunOnce(t *testing.T) {
	var r Registry
	calls := 0
	r.Register("x", 0, func(context.Context) error { calls++; return nil })

	_ = r.Run(context.Background())
	_ = r.Run(context.Background())
	r.Register("late", 0, func(context.Context) error { calls++; return nil })
	_ = r.Run(context.Background())

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestNotifyContext_StopCancels(t *testing.T) {
	ctx, stop := NotifyContext(context.Background(), nil, nil)
	stop()
	stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled by stop")
	}
}
