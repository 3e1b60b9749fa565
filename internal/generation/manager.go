package generation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/makeasinger/studio/internal/model"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultMaxConcurrent = 10
	DefaultQueueLimit    = 1000
	defaultPollInterval  = 3 * time.Second
	defaultRemovalDelay  = 4 * time.Second
	defaultRetryBackoff  = 2 * time.Second
)

// CompleteFunc receives the result of a successfully completed job.
type CompleteFunc func(jobID string, result Result, details model.SongDetails)

// RejectFunc receives the reason a submission was refused.
type RejectFunc func(reason string)

// Config holds the manager tunables and collaborators.
type Config struct {
	MaxConcurrent int
	PollInterval  time.Duration
	RemovalDelay  time.Duration
	// MaxPollDuration fails a job still polling after this long. Zero polls
	// until the provider answers.
	MaxPollDuration time.Duration
	// PollRetries is how many times a failed status request is retried
	// before the job fails. Zero fails on the first error.
	PollRetries  int
	RetryBackoff time.Duration
	// QueueLimit caps the CompletionQueue; the oldest ids are dropped first.
	// Negative leaves it unbounded.
	QueueLimit int

	Estimator  *Estimator
	Publisher  EventPublisher
	Logger     *zerolog.Logger
	OnComplete CompleteFunc
	OnReject   RejectFunc

	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// tracked is the manager-owned state behind a job id.
type tracked struct {
	job     Job
	ctx     context.Context
	cancel  context.CancelFunc
	removal *time.Timer
}

// Manager owns the live jobs and enforces the concurrency ceiling.
type Manager struct {
	provider Provider
	cfg      Config
	est      *Estimator
	pub      EventPublisher
	log      zerolog.Logger
	queue    *CompletionQueue

	mu     sync.Mutex
	jobs   map[string]*tracked
	closed bool
	wg     sync.WaitGroup
}

// New constructs a Manager, applying defaults for unset fields.
func New(provider Provider, cfg Config) *Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.RemovalDelay <= 0 {
		cfg.RemovalDelay = defaultRemovalDelay
	}
	if cfg.PollRetries < 0 {
		cfg.PollRetries = 0
	}
	if cfg.QueueLimit == 0 {
		cfg.QueueLimit = DefaultQueueLimit
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	m := &Manager{
		provider: provider,
		cfg:      cfg,
		est:      cfg.Estimator,
		pub:      cfg.Publisher,
		queue:    NewCompletionQueue(cfg.QueueLimit),
		jobs:     make(map[string]*tracked),
	}
	if m.est == nil {
		m.est = NewEstimator(defaultExpectedDuration)
	}
	if m.pub == nil {
		m.pub = noopPublisher{}
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "generation").Logger()
	} else {
		m.log = zerolog.Nop()
	}
	return m
}

// Submit admits a new job and starts it in the background. It returns
// ErrConcurrencyLimit, after calling OnReject, when the ceiling is reached.
func (m *Manager) Submit(details model.SongDetails) (string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrClosed
	}
	if n := len(m.jobs); n >= m.cfg.MaxConcurrent {
		m.mu.Unlock()
		reason := fmt.Sprintf("%s: %d of %d generations in progress", ErrConcurrencyLimit, n, m.cfg.MaxConcurrent)
		jobsTotal.WithLabelValues(outcomeRejected).Inc()
		m.log.Warn().Int("active", n).Int("max", m.cfg.MaxConcurrent).Msg("generation rejected")
		if m.cfg.OnReject != nil {
			m.cfg.OnReject(reason)
		}
		return "", ErrConcurrencyLimit
	}

	id := m.cfg.NewID()
	for _, taken := m.jobs[id]; taken; _, taken = m.jobs[id] {
		id = m.cfg.NewID()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &tracked{
		job: Job{
			ID:           id,
			Details:      details,
			StartTime:    m.cfg.Now(),
			Status:       StatusStarting,
			ProgressText: m.est.Text(0),
		},
		ctx:    ctx,
		cancel: cancel,
	}
	m.jobs[id] = t
	activeJobs.Set(float64(len(m.jobs)))
	snap := t.job
	m.wg.Add(1)
	m.mu.Unlock()

	jobsTotal.WithLabelValues(outcomeSubmitted).Inc()
	m.log.Info().Str("job", id).Str("title", details.Title).Msg("generation submitted")
	m.pub.Publish(Event{Type: EventProgress, Job: snap})

	go m.run(t)
	return id, nil
}

// Cancel fails a live, non-terminal job with "cancelled by user". It reports
// whether anything was cancelled; unknown or finished ids are a no-op.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	t, ok := m.jobs[id]
	if !ok || t.job.Status.IsTerminal() {
		m.mu.Unlock()
		return false
	}
	snap := m.failLocked(t, MsgCancelled)
	m.mu.Unlock()

	m.observeTerminal(snap, outcomeCancelled)
	m.log.Info().Str("job", id).Msg("generation cancelled")
	m.pub.Publish(Event{Type: EventFailed, Job: snap})
	return true
}

// CancelAll cancels every job tracked at call time and returns the ids that
// were cancelled.
func (m *Manager) CancelAll() []string {
	m.mu.Lock()
	ids := make([]string, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	sort.Strings(ids)
	cancelled := make([]string, 0, len(ids))
	for _, id := range ids {
		if m.Cancel(id) {
			cancelled = append(cancelled, id)
		}
	}
	return cancelled
}

// Get returns a snapshot of a live job.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return t.job, true
}

// List returns snapshots of all live jobs ordered by start time.
func (m *Manager) List() []Job {
	m.mu.Lock()
	out := make([]Job, 0, len(m.jobs))
	for _, t := range m.jobs {
		out = append(out, t.job)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// ActiveCount returns the number of tracked jobs, terminal ones included
// until their removal.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Capacity returns the concurrency ceiling.
func (m *Manager) Capacity() int {
	return m.cfg.MaxConcurrent
}

// Queue returns the completion queue.
func (m *Manager) Queue() *CompletionQueue {
	return m.queue
}

// Close cancels every job, stops pending removals and waits for the job
// goroutines to exit. Submit fails afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	for id, t := range m.jobs {
		t.cancel()
		if t.removal != nil {
			t.removal.Stop()
		}
		delete(m.jobs, id)
	}
	activeJobs.Set(0)
	m.mu.Unlock()

	m.wg.Wait()
}

// failLocked marks t failed, stops its goroutine and schedules removal.
// m.mu must be held.
func (m *Manager) failLocked(t *tracked, msg string) Job {
	t.job.Status = StatusFailed
	t.job.Error = msg
	t.job.Result = nil
	t.cancel()
	m.scheduleRemovalLocked(t)
	return t.job
}

// completeLocked marks t complete and queues its id. m.mu must be held.
func (m *Manager) completeLocked(t *tracked, res Result) Job {
	t.job.Status = StatusComplete
	t.job.Phase = PhaseReady
	t.job.Progress = 100
	t.job.ProgressText = m.est.Text(100)
	t.job.Result = &res
	t.job.Error = ""
	m.queue.Enqueue(t.job.ID)
	t.cancel()
	m.scheduleRemovalLocked(t)
	return t.job
}

func (m *Manager) scheduleRemovalLocked(t *tracked) {
	if t.removal != nil {
		return
	}
	id := t.job.ID
	t.removal = time.AfterFunc(m.cfg.RemovalDelay, func() { m.remove(id, t) })
}

// remove deletes id only if it still maps to t.
func (m *Manager) remove(id string, t *tracked) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.jobs[id]; ok && cur == t {
		delete(m.jobs, id)
		activeJobs.Set(float64(len(m.jobs)))
		m.log.Debug().Str("job", id).Msg("generation removed")
	}
}

// liveLocked reports whether ref is still the tracked, non-terminal job for id.
// m.mu must be held.
func (m *Manager) liveLocked(id string, ref *tracked) bool {
	cur, ok := m.jobs[id]
	return ok && cur == ref && !cur.job.Status.IsTerminal()
}

func (m *Manager) observeTerminal(j Job, outcome string) {
	jobsTotal.WithLabelValues(outcome).Inc()
	jobDuration.WithLabelValues(outcome).Observe(m.cfg.Now().Sub(j.StartTime).Seconds())
}
