package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type testComponent struct {
	name      string
	startErr  error
	stopErr   error
	events    *[]string
	startCall int
	stopCall  int
}

func (c *testComponent) Start(context.Context) error {
	c.startCall++
	if c.events != nil {
		*c.events = append(*c.events, "start:"+c.name)
	}
	return c.startErr
}

func (c *testComponent) Stop(context.Context) error {
	c.stopCall++
	if c.events != nil {
		*c.events = append(*c.events, "stop:"+c.name)
	}
	return c.stopErr
}

func TestRuntimeStartStopOrder(t *testing.T) {
	t.Parallel()

	events := make([]string, 0, 6)
	runtime := NewRuntime().
		Register("telemetry", &testComponent{name: "telemetry", events: &events}).
		Register("skipped", nil).
		Register("service", &testComponent{name: "service", events: &events})

	if err := runtime.Start(context.Background()); err != nil {
		t.Fatalf("start runtime: %v", err)
	}
	if err := runtime.Stop(context.Background()); err != nil {
		t.Fatalf("stop runtime: %v", err)
	}

	expected := []string{
		"start:telemetry",
		"start:service",
		"stop:service",
		"stop:telemetry",
	}
	if !reflect.DeepEqual(events, expected) {
		t.Fatalf("unexpected order: got %v want %v", events, expected)
	}
}

func TestRuntimeStartFailureStopsStartedComponents(t *testing.T) {
	t.Parallel()

	events := make([]string, 0, 4)
	startErr := errors.New("boom")
	c1 := &testComponent{name: "one", events: &events}
	c2 := &testComponent{name: "two", events: &events, startErr: startErr}
	c3 := &testComponent{name: "three", events: &events}

	err := NewRuntime().Register("one", c1).Register("two", c2).Register("three", c3).Start(context.Background())
	if !errors.Is(err, startErr) {
		t.Fatalf("unexpected start error: %v", err)
	}
	if !strings.Contains(err.Error(), "start two") {
		t.Fatalf("error does not name the component: %v", err)
	}
	if c1.stopCall != 1 {
		t.Fatalf("expected started component to be stopped once, got %d", c1.stopCall)
	}
	if c2.stopCall != 0 || c3.stopCall != 0 {
		t.Fatalf("unexpected stop calls: c2=%d c3=%d", c2.stopCall, c3.stopCall)
	}
	expected := []string{"start:one", "start:two", "stop:one"}
	if !reflect.DeepEqual(events, expected) {
		t.Fatalf("unexpected events: %v", events)
	}
}

func TestRuntimeStopCollectsAllErrors(t *testing.T) {
	t.Parallel()

	first := errors.New("first")
	second := errors.New("second")
	c1 := &testComponent{name: "one", stopErr: first}
	c2 := &testComponent{name: "two", stopErr: second}

	err := NewRuntime().Register("one", c1).Register("two", c2).Stop(context.Background())
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected both stop errors, got %v", err)
	}
	if c1.stopCall != 1 || c2.stopCall != 1 {
		t.Fatalf("every component must be stopped: one=%d two=%d", c1.stopCall, c2.stopCall)
	}
}
