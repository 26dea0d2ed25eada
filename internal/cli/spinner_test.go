package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func captureStatus(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := statusOut
	statusOut = &buf
	t.Cleanup(func() { statusOut = prev })
	return &buf
}

func TestSpinnerStops(t *testing.T) {
	captureStatus(t)
	s := newSpinner(context.Background(), "Laying out...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()
	s.Stop()
}

func TestSpinnerStopsOnCancel(t *testing.T) {
	captureStatus(t)
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinner(ctx, "Laying out...")
	s.Start()
	cancel()

	done := make(chan struct{})
	go func() { s.Stop(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked after context cancellation")
	}
}

func TestSpinnerStopWithSuccess(t *testing.T) {
	buf := captureStatus(t)
	s := newSpinner(context.Background(), "Rendering...")
	s.Start()
	s.StopWithSuccess("Rendered %d nodes", 3)
	if !strings.Contains(buf.String(), "Rendered 3 nodes") {
		t.Errorf("status = %q", buf.String())
	}
}

func TestSpin(t *testing.T) {
	captureStatus(t)
	got, err := spin(context.Background(), "Working...", func() (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Errorf("spin = %d, %v", got, err)
	}
	boom := errors.New("boom")
	if _, err := spin(context.Background(), "Working...", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}
