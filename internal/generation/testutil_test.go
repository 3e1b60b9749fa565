package generation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/makeasinger/studio/internal/model"
)

// fakeProvider scripts StartJob/PollJob responses. Provider job ids are
// "task-" + details.Title so tests can address individual jobs.
type fakeProvider struct {
	mu        sync.Mutex
	startErr  error
	startGate chan struct{}
	pollFn    func(providerID string, call int) (PollResult, error)
	starts    int
	polls     int
}

func (p *fakeProvider) StartJob(ctx context.Context, d model.SongDetails) (string, error) {
	p.mu.Lock()
	p.starts++
	gate, err := p.startGate, p.startErr
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return "task-" + d.Title, nil
}

func (p *fakeProvider) PollJob(ctx context.Context, providerID string) (PollResult, error) {
	p.mu.Lock()
	call := p.polls
	p.polls++
	fn := p.pollFn
	p.mu.Unlock()

	if fn == nil {
		return PollResult{Phase: PhasePending}, nil
	}
	return fn(providerID, call)
}

func (p *fakeProvider) pollCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

// panickyStarter panics on every StartJob.
type panickyStarter struct{}

func (panickyStarter) StartJob(context.Context, model.SongDetails) (string, error) {
	panic("start exploded")
}

func (panickyStarter) PollJob(context.Context, string) (PollResult, error) {
	return PollResult{Phase: PhasePending}, nil
}

// scripted returns a pollFn that replays steps, repeating the last one.
func scripted(steps ...pollStep) func(string, int) (PollResult, error) {
	return func(_ string, call int) (PollResult, error) {
		if call >= len(steps) {
			call = len(steps) - 1
		}
		return steps[call].res, steps[call].err
	}
}

type pollStep struct {
	res PollResult
	err error
}

func pending() pollStep { return pollStep{res: PollResult{Phase: PhasePending}} }

func ready(outputs ...string) pollStep {
	return pollStep{res: PollResult{Phase: PhaseReady, Outputs: outputs}}
}

// fakeClock is a settable clock for poll-duration tests.
type fakeClock struct {
	base   time.Time
	offset atomic.Int64
}

func newFakeClock() *fakeClock {
	return &fakeClock{base: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.base.Add(time.Duration(c.offset.Load())) }

func (c *fakeClock) Advance(d time.Duration) { c.offset.Add(int64(d)) }

// newTestManager builds a manager with fast timers and fixed jitter.
func newTestManager(t *testing.T, p Provider, opts ...func(*Config)) *Manager {
	t.Helper()
	est := NewEstimator(8 * time.Minute)
	est.Jitter = func() float64 { return 0.5 }
	cfg := Config{
		MaxConcurrent: 10,
		PollInterval:  5 * time.Millisecond,
		RemovalDelay:  40 * time.Millisecond,
		RetryBackoff:  time.Millisecond,
		Estimator:     est,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	m := New(p, cfg)
	t.Cleanup(m.Close)
	return m
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func jobStatus(m *Manager, id string) Status {
	j, ok := m.Get(id)
	if !ok {
		return ""
	}
	return j.Status
}

// assertExclusive checks that a terminal job has exactly one of result/error.
func assertExclusive(t *testing.T, j Job) {
	t.Helper()
	if !j.Status.IsTerminal() {
		if j.Result != nil || j.Error != "" {
			t.Errorf("job %s: non-terminal job has result=%v error=%q", j.ID, j.Result, j.Error)
		}
		return
	}
	hasResult := j.Result != nil
	hasError := j.Error != ""
	if hasResult == hasError {
		t.Errorf("job %s (%s): result set=%v error set=%v; want exactly one", j.ID, j.Status, hasResult, hasError)
	}
}

func songs(title string) model.SongDetails {
	return model.SongDetails{Title: title, Lyrics: "la la la"}
}
