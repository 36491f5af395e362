package pool

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClampSize(t *testing.T) {
	tests := []struct {
		requested, want int
	}{
		{-5, DefaultSize},
		{0, DefaultSize},
		{1, 1},
		{8, 8},
		{64, 64},
		{65, MaxSize},
		{1000, MaxSize},
	}
	for _, tt := range tests {
		if got := ClampSize(tt.requested); got != tt.want {
			t.Errorf("ClampSize(%d) = %d, want %d", tt.requested, got, tt.want)
		}
	}
}

func TestNewUsesClampedSize(t *testing.T) {
	p := New(100, quietLogger())
	defer p.Shutdown()
	if p.Size() != MaxSize {
		t.Errorf("Size() = %d, want %d", p.Size(), MaxSize)
	}
	if p.Stats().Workers != MaxSize {
		t.Errorf("Stats().Workers = %d, want %d", p.Stats().Workers, MaxSize)
	}
}

func TestEveryTaskRunsOnce(t *testing.T) {
	const n = 1000
	p := New(8, quietLogger())

	var counts [n]atomic.Int32
	for i := 0; i < n; i++ {
		i := i
		if err := p.Submit(func() { counts[i].Add(1) }); err != nil {
			t.Fatalf("Submit() error: %v", err)
		}
	}
	p.Shutdown()

	for i := range counts {
		if c := counts[i].Load(); c != 1 {
			t.Fatalf("task %d ran %d times", i, c)
		}
	}
	if got := p.Stats().Completed; got != n {
		t.Errorf("Completed = %d, want %d", got, n)
	}
}

func TestShutdownWaitsForRunningTasks(t *testing.T) {
	p := New(2, quietLogger())
	var finished atomic.Int32
	for i := 0; i < 6; i++ {
		p.Submit(func() {
			time.Sleep(20 * time.Millisecond)
			finished.Add(1)
		})
	}
	p.Shutdown()
	if got := finished.Load(); got != 6 {
		t.Errorf("%d tasks finished before Shutdown returned, want 6", got)
	}
}

func TestSubmitAfterShutdown(t *testing.T) {
	p := New(1, quietLogger())
	p.Shutdown()

	ran := false
	if err := p.Submit(func() { ran = true }); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Submit() after Shutdown = %v, want ErrPoolClosed", err)
	}
	if ran {
		t.Error("task ran after Shutdown")
	}
	// Second Shutdown must not block.
	p.Shutdown()
}

func TestSubmitNil(t *testing.T) {
	p := New(1, quietLogger())
	defer p.Shutdown()
	if err := p.Submit(nil); err == nil {
		t.Error("Submit(nil) succeeded")
	}
}

func TestShutdownIdlePool(t *testing.T) {
	p := New(4, quietLogger())
	done := make(chan struct{})
	go func() {
		p.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown of an idle pool did not return")
	}
}

func TestSingleWorkerIsFIFO(t *testing.T) {
	p := New(1, quietLogger())

	var mu sync.Mutex
	var order []int
	for i := 0; i < 50; i++ {
		i := i
		p.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	p.Shutdown()

	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, tasks ran out of order: %v", i, v, order)
		}
	}
	if len(order) != 50 {
		t.Errorf("%d tasks ran, want 50", len(order))
	}
}

func TestConcurrencyBoundedBySize(t *testing.T) {
	const size = 3
	p := New(size, quietLogger())

	var current, peak atomic.Int32
	for i := 0; i < 30; i++ {
		p.Submit(func() {
			n := current.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			current.Add(-1)
		})
	}
	p.Shutdown()

	if got := peak.Load(); got > size {
		t.Errorf("peak concurrency %d exceeds pool size %d", got, size)
	}
}

func TestPanickingTaskDoesNotKillWorker(t *testing.T) {
	p := New(1, quietLogger())

	var ran atomic.Bool
	p.Submit(func() { panic("boom") })
	p.Submit(func() { ran.Store(true) })
	p.Shutdown()

	if !ran.Load() {
		t.Error("task after a panic did not run")
	}
	if got := p.Stats().Completed; got != 2 {
		t.Errorf("Completed = %d, want 2", got)
	}
}

func TestStatsWhileBusy(t *testing.T) {
	p := New(1, quietLogger())
	release := make(chan struct{})
	started := make(chan struct{})

	p.Submit(func() {
		close(started)
		<-release
	})
	p.Submit(func() {})
	<-started

	stats := p.Stats()
	if stats.Running != 1 || stats.Queued != 1 {
		t.Errorf("Stats() = %+v, want 1 running and 1 queued", stats)
	}

	close(release)
	p.Shutdown()
	stats = p.Stats()
	if stats.Running != 0 || stats.Queued != 0 || stats.Completed != 2 {
		t.Errorf("Stats() after Shutdown = %+v", stats)
	}
}

func TestSubmitRacingShutdown(t *testing.T) {
	const submitters, perSubmitter = 8, 50

	for round := 0; round < 20; round++ {
		p := New(4, quietLogger())
		var accepted, rejected, ran atomic.Int64

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < submitters; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < perSubmitter; j++ {
					err := p.Submit(func() { ran.Add(1) })
					switch {
					case err == nil:
						accepted.Add(1)
					case errors.Is(err, ErrPoolClosed):
						rejected.Add(1)
					default:
						t.Errorf("Submit() error: %v", err)
					}
				}
			}()
		}
		close(start)
		p.Shutdown()
		wg.Wait()

		// Submissions rejected after Shutdown must not leave work behind.
		if got, want := ran.Load(), accepted.Load(); got != want {
			t.Fatalf("round %d: %d tasks ran, %d accepted", round, got, want)
		}
		if accepted.Load()+rejected.Load() != submitters*perSubmitter {
			t.Fatalf("round %d: %d accepted + %d rejected", round, accepted.Load(), rejected.Load())
		}
		stats := p.Stats()
		if stats.Queued != 0 || stats.Running != 0 || stats.Completed != uint64(accepted.Load()) {
			t.Fatalf("round %d: Stats() = %+v, accepted %d", round, stats, accepted.Load())
		}
		// A second Shutdown returns at once when the counter is consistent.
		p.Shutdown()
	}
}
