package persistence

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestFlusherPeriodicTicksCallFn(t *testing.T) {
	var calls int32
	f := NewFlusher(func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, 10*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	f.Start()
	defer f.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&calls) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if atomic.LoadInt32(&calls) < 2 {
		t.Fatalf("expected at least 2 periodic flushes, got %d", calls)
	}
}

func TestFlusherStopRunsOneFinalFlush(t *testing.T) {
	var calls int32
	f := NewFlusher(func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	f.Start()
	before := atomic.LoadInt32(&calls)
	f.Stop()
	after := atomic.LoadInt32(&calls)

	if after != before+1 {
		t.Fatalf("expected exactly one additional flush from Stop, went from %d to %d", before, after)
	}
}

func TestFlusherTriggerCoalesces(t *testing.T) {
	var calls int32
	f := NewFlusher(func() error {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return nil
	}, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	f.Start()
	defer f.Stop()

	for i := 0; i < 5; i++ {
		f.Trigger()
	}
	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt32(&calls); got < 1 || got > 2 {
		t.Fatalf("expected 1-2 coalesced flushes from 5 rapid triggers, got %d", got)
	}
}
