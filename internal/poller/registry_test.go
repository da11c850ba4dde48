package poller

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testOptions returns registry options with compressed timescales so
// lifecycle tests run in milliseconds.
func testOptions() Options {
	return Options{
		Interval:       10 * time.Millisecond,
		MaxRetries:     5,
		BaseRetryDelay: time.Millisecond,
		MaxRetryDelay:  8 * time.Millisecond,
		Logger:         testLogger(),
	}
}

// eventually polls cond until it holds or the timeout expires.
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

// TestRetryDelay_Growth verifies the backoff schedule: the delay doubles
// from the base on each consecutive failure and is capped at the maximum.
func TestRetryDelay_Growth(t *testing.T) {
	base := 1 * time.Second
	max := 10 * time.Second

	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second, // 16s capped
		10 * time.Second, // stays at cap
	}

	for n, want := range expected {
		if got := RetryDelay(n, base, max); got != want {
			t.Errorf("RetryDelay(%d) = %v, want %v", n, got, want)
		}
	}
}

// TestRetryDelay_CapBelowBase verifies that a cap below the doubling curve
// is respected from the first retry that reaches it.
func TestRetryDelay_CapBelowBase(t *testing.T) {
	if got := RetryDelay(0, 5*time.Second, 3*time.Second); got != 3*time.Second {
		t.Errorf("RetryDelay(0) = %v, want 3s", got)
	}
}

// TestRegistry_StopUnknownID verifies that stopping an id with no session
// is a safe no-op.
func TestRegistry_StopUnknownID(t *testing.T) {
	r := NewRegistry(testOptions())

	r.Stop("nope")

	if got := r.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
}

// TestRegistry_DoneRemovesSession verifies that an attempt returning Done
// ends the session and releases its registry entry.
func TestRegistry_DoneRemovesSession(t *testing.T) {
	r := NewRegistry(testOptions())

	var attempts atomic.Int32
	r.Start("job", func(ctx context.Context) Verdict {
		attempts.Add(1)
		return Done
	}, nil)

	eventually(t, time.Second, func() bool { return r.Count() == 0 },
		"session not removed after Done verdict")

	// give any stray timer a chance to misfire
	time.Sleep(30 * time.Millisecond)
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

// TestRegistry_ContinueKeepsPolling verifies the regular cadence: Continue
// verdicts keep the session alive and attempts repeat on the interval.
func TestRegistry_ContinueKeepsPolling(t *testing.T) {
	r := NewRegistry(testOptions())

	var attempts atomic.Int32
	r.Start("job", func(ctx context.Context) Verdict {
		attempts.Add(1)
		return Continue
	}, nil)

	eventually(t, time.Second, func() bool { return attempts.Load() >= 3 },
		"session did not keep polling on Continue verdicts")
	if got := r.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}

	r.Stop("job")
	if got := r.Count(); got != 0 {
		t.Errorf("Count() after Stop = %d, want 0", got)
	}

	// no further attempts once stopped
	settled := attempts.Load()
	time.Sleep(50 * time.Millisecond)
	if got := attempts.Load(); got != settled {
		t.Errorf("attempts grew from %d to %d after Stop", settled, got)
	}
}

// TestRegistry_ExhaustionStopsSession verifies that consecutive Retry
// verdicts beyond the cap remove the session and invoke onExhausted
// exactly once.
func TestRegistry_ExhaustionStopsSession(t *testing.T) {
	opts := testOptions()
	opts.MaxRetries = 2
	r := NewRegistry(opts)

	var attempts, exhausted atomic.Int32
	r.Start("job", func(ctx context.Context) Verdict {
		attempts.Add(1)
		return Retry
	}, func() {
		exhausted.Add(1)
	})

	eventually(t, time.Second, func() bool { return exhausted.Load() == 1 },
		"onExhausted not invoked")
	if got := r.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}

	// two retries tolerated means exactly three attempts total
	time.Sleep(30 * time.Millisecond)
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	if got := exhausted.Load(); got != 1 {
		t.Errorf("onExhausted invoked %d times, want 1", got)
	}
}

// TestRegistry_RetryCounterResetsOnSuccess verifies that a Continue
// verdict resets the consecutive-failure count, so interleaved successes
// prevent exhaustion until failures run consecutively past the cap.
func TestRegistry_RetryCounterResetsOnSuccess(t *testing.T) {
	opts := testOptions()
	opts.MaxRetries = 5
	r := NewRegistry(opts)

	// two failures, a success, then six consecutive failures:
	// exhaustion must happen on the ninth attempt, not the sixth
	script := []Verdict{Retry, Retry, Continue, Retry, Retry, Retry, Retry, Retry, Retry}

	var attempts, exhausted atomic.Int32
	r.Start("job", func(ctx context.Context) Verdict {
		n := int(attempts.Add(1)) - 1
		if n < len(script) {
			return script[n]
		}
		return Continue
	}, func() {
		exhausted.Add(1)
	})

	eventually(t, time.Second, func() bool { return exhausted.Load() == 1 },
		"onExhausted not invoked")

	time.Sleep(30 * time.Millisecond)
	if got := attempts.Load(); got != 9 {
		t.Errorf("attempts = %d, want 9", got)
	}
}

// TestRegistry_StartReplacesExisting verifies the idempotent restart: a
// second Start for the same id leaves exactly one live session, and the
// replaced session never runs another attempt.
func TestRegistry_StartReplacesExisting(t *testing.T) {
	r := NewRegistry(testOptions())

	release := make(chan struct{})
	var first, second atomic.Int32

	r.Start("job", func(ctx context.Context) Verdict {
		first.Add(1)
		<-release
		return Continue
	}, nil)

	// wait for the first session to be mid-attempt, then replace it
	eventually(t, time.Second, func() bool { return first.Load() == 1 },
		"first session never attempted")
	r.Start("job", func(ctx context.Context) Verdict {
		second.Add(1)
		return Continue
	}, nil)

	if got := r.Count(); got != 1 {
		t.Errorf("Count() after restart = %d, want 1", got)
	}

	close(release)
	eventually(t, time.Second, func() bool { return second.Load() >= 2 },
		"replacement session did not keep polling")
	if got := first.Load(); got != 1 {
		t.Errorf("replaced session attempted %d times, want 1", got)
	}

	r.StopAll()
}

// TestRegistry_StopDuringAttempt verifies that stopping a session while
// its attempt is executing prevents any further attempt: the attempt's
// context is cancelled and the loop exits when it returns.
func TestRegistry_StopDuringAttempt(t *testing.T) {
	r := NewRegistry(testOptions())

	release := make(chan struct{})
	var attempts atomic.Int32
	var sawCancel atomic.Bool

	r.Start("job", func(ctx context.Context) Verdict {
		attempts.Add(1)
		<-release
		sawCancel.Store(ctx.Err() != nil)
		return Continue
	}, nil)

	eventually(t, time.Second, func() bool { return attempts.Load() == 1 },
		"session never attempted")
	r.Stop("job")

	if got := r.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0 immediately after Stop", got)
	}

	close(release)
	time.Sleep(50 * time.Millisecond)
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
	if !sawCancel.Load() {
		t.Error("attempt context was not cancelled by Stop")
	}
}

// TestRegistry_FinishIgnoresReplacedSession verifies that Finish with a
// stale session's context cannot remove the session that replaced it.
func TestRegistry_FinishIgnoresReplacedSession(t *testing.T) {
	r := NewRegistry(testOptions())

	staleCtx := make(chan context.Context, 1)
	release := make(chan struct{})

	r.Start("job", func(ctx context.Context) Verdict {
		select {
		case staleCtx <- ctx:
		default:
		}
		<-release
		return Continue
	}, nil)

	var ctx context.Context
	select {
	case ctx = <-staleCtx:
	case <-time.After(time.Second):
		t.Fatal("first session never attempted")
	}

	r.Start("job", func(c context.Context) Verdict { return Continue }, nil)
	close(release)

	r.Finish("job", ctx)
	if got := r.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1: Finish removed the replacement session", got)
	}

	r.StopAll()
}

// TestRegistry_StopAll verifies that every live session is halted.
func TestRegistry_StopAll(t *testing.T) {
	r := NewRegistry(testOptions())

	for _, id := range []string{"a", "b", "c"} {
		r.Start(id, func(ctx context.Context) Verdict { return Continue }, nil)
	}

	if got := r.Count(); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}

	r.StopAll()
	if got := r.Count(); got != 0 {
		t.Errorf("Count() after StopAll = %d, want 0", got)
	}
}

// TestRegistry_IndependentSessions verifies that one session reaching Done
// does not disturb another id's session.
func TestRegistry_IndependentSessions(t *testing.T) {
	r := NewRegistry(testOptions())

	var b atomic.Int32
	r.Start("a", func(ctx context.Context) Verdict { return Done }, nil)
	r.Start("b", func(ctx context.Context) Verdict {
		b.Add(1)
		return Continue
	}, nil)

	eventually(t, time.Second, func() bool { return r.Count() == 1 },
		"session a not removed")

	before := b.Load()
	eventually(t, time.Second, func() bool { return b.Load() > before+2 },
		"session b stopped polling after a finished")

	r.StopAll()
}

// TestRegistry_ConcurrentStartStop verifies that Start and Stop racing for
// the same id do not panic or leak sessions.
// Run with: go test -race ./internal/poller/...
func TestRegistry_ConcurrentStartStop(t *testing.T) {
	r := NewRegistry(testOptions())

	// run multiple iterations to increase chance of catching races
	for i := 0; i < 100; i++ {
		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			r.Start("job", func(ctx context.Context) Verdict { return Continue }, nil)
		}()

		go func() {
			defer wg.Done()
			r.Stop("job")
		}()

		wg.Wait()
		r.Stop("job")
	}

	eventually(t, time.Second, func() bool { return r.Count() == 0 },
		"sessions leaked by concurrent Start/Stop")
}
