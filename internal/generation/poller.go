package generation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

// run starts the job with the provider and then polls it until it finishes.
func (m *Manager) run(t *tracked) {
	defer m.wg.Done()
	defer m.recoverJob(t)

	id := t.job.ID
	providerID, err := m.provider.StartJob(t.ctx, t.job.Details)

	m.mu.Lock()
	if !m.liveLocked(id, t) {
		m.mu.Unlock()
		return
	}
	if err != nil {
		snap := m.failLocked(t, fmt.Sprintf("failed to start generation: %v", err))
		m.mu.Unlock()

		m.observeTerminal(snap, outcomeFailed)
		m.log.Error().Err(err).Str("job", id).Msg("generation start failed")
		m.pub.Publish(Event{Type: EventFailed, Job: snap})
		return
	}
	t.job.ProviderJobID = providerID
	t.job.Status = StatusPolling
	snap := t.job
	m.mu.Unlock()

	m.log.Info().Str("job", id).Str("provider_job", providerID).Msg("generation started")
	m.pub.Publish(Event{Type: EventProgress, Job: snap})

	m.loop(t)
}

// loop schedules ticks PollInterval apart until a tick reports the job is done.
func (m *Manager) loop(t *tracked) {
	timer := time.NewTimer(m.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-timer.C:
		}
		if !m.tick(t.ctx, t.job.ID, t) {
			return
		}
		timer.Reset(m.cfg.PollInterval)
	}
}

// tick performs one status check for id and applies the outcome if ref is
// still the live, non-terminal job for id. It returns false when polling
// should stop.
func (m *Manager) tick(ctx context.Context, id string, ref *tracked) bool {
	m.mu.Lock()
	if !m.liveLocked(id, ref) {
		m.mu.Unlock()
		return false
	}
	providerID := ref.job.ProviderJobID
	started := ref.job.StartTime
	m.mu.Unlock()

	if m.cfg.MaxPollDuration > 0 && m.cfg.Now().Sub(started) >= m.cfg.MaxPollDuration {
		return m.fail(id, ref, MsgTimedOut, nil)
	}

	res, err := m.poll(ctx, id, providerID)

	m.mu.Lock()
	if !m.liveLocked(id, ref) {
		m.mu.Unlock()
		return false
	}

	switch {
	case err != nil:
		m.mu.Unlock()
		return m.fail(id, ref, MsgPollingFailed+": "+err.Error(), err)

	case res.Phase == PhaseError:
		msg := res.Error
		if msg == "" {
			msg = MsgProviderError
		}
		m.mu.Unlock()
		return m.fail(id, ref, msg, nil)

	case res.Phase == PhaseReady && len(res.Outputs) > 0:
		result := Result{ProviderJobID: providerID, Outputs: res.Outputs, Clips: res.Clips}
		snap := m.completeLocked(ref, result)
		m.mu.Unlock()

		m.observeTerminal(snap, outcomeCompleted)
		m.log.Info().Str("job", id).Strs("outputs", result.Outputs).Msg("generation complete")
		if m.cfg.OnComplete != nil {
			m.cfg.OnComplete(id, result, snap.Details)
		}
		m.pub.Publish(Event{Type: EventComplete, Job: snap})
		return false

	default:
		// Ready without audio yet is shown as the streaming stage.
		phase := res.Phase
		if phase == PhaseReady {
			phase = PhaseStreaming
		}
		elapsed := m.cfg.Now().Sub(started)
		ref.job.Phase = phase
		ref.job.Progress = m.est.Next(elapsed, phase, ref.job.Progress)
		ref.job.ProgressText = m.est.Text(ref.job.Progress)
		snap := ref.job
		m.mu.Unlock()

		m.log.Debug().Str("job", id).Str("phase", string(phase)).Float64("progress", snap.Progress).Msg("generation progress")
		m.pub.Publish(Event{Type: EventProgress, Job: snap})
		return true
	}
}

// recoverJob fails t when its goroutine panics. Other jobs keep running.
func (m *Manager) recoverJob(t *tracked) {
	r := recover()
	if r == nil {
		return
	}
	m.log.Error().Str("job", t.job.ID).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("generation goroutine panicked")
	m.fail(t.job.ID, t, fmt.Sprintf("%s: %v", MsgPollingFailed, r), nil)
}

// fail re-validates ref and fails it with msg.
func (m *Manager) fail(id string, ref *tracked, msg string, cause error) bool {
	m.mu.Lock()
	if !m.liveLocked(id, ref) {
		m.mu.Unlock()
		return false
	}
	snap := m.failLocked(ref, msg)
	m.mu.Unlock()

	m.observeTerminal(snap, outcomeFailed)
	ev := m.log.Warn().Str("job", id).Str("reason", msg)
	if cause != nil {
		ev = ev.Err(cause)
	}
	ev.Msg("generation failed")
	m.pub.Publish(Event{Type: EventFailed, Job: snap})
	return false
}

// poll issues the status request, retrying transport errors up to
// PollRetries times with a linear backoff.
func (m *Manager) poll(ctx context.Context, id, providerID string) (PollResult, error) {
	for attempt := 0; ; attempt++ {
		res, err := m.provider.PollJob(ctx, providerID)
		if err == nil {
			pollRequestsTotal.WithLabelValues("ok").Inc()
			return res, nil
		}
		pollRequestsTotal.WithLabelValues("error").Inc()
		if attempt >= m.cfg.PollRetries || errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return res, err
		}

		wait := m.cfg.RetryBackoff * time.Duration(attempt+1)
		m.log.Warn().Err(err).Str("job", id).Int("attempt", attempt+1).Dur("backoff", wait).Msg("poll failed, retrying")
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-time.After(wait):
		}
	}
}
