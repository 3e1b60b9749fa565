package generation

import (
	"math"
	"math/rand"
	"time"
)

// Defaults for the progress estimator.
const (
	defaultExpectedDuration = 8 * time.Minute
	defaultTimeCap          = 85.0
	defaultCeiling          = 99.0
	minJitter               = 0.1
	maxJitter               = 1.0
)

// DefaultLabels are the phase descriptions shown as progress advances.
var DefaultLabels = []string{
	"Queued with the provider",
	"Writing the arrangement",
	"Composing the melody",
	"Recording vocals",
	"Mixing tracks",
	"Mastering audio",
	"Almost there",
}

// phaseProgress is the fixed progress value reported for each provider phase.
var phaseProgress = map[Phase]float64{
	PhasePending:    20,
	PhaseProcessing: 45,
	PhaseStreaming:  90,
}

const unknownPhaseProgress = 10.0

// Estimator blends elapsed time and the provider phase into a display
// percentage that never moves backwards.
type Estimator struct {
	ExpectedDuration time.Duration
	TimeCap          float64
	Ceiling          float64
	Labels           []string
	// Jitter returns a small positive nudge added on every estimate.
	Jitter func() float64
}

// NewEstimator returns an estimator with the default caps and labels.
func NewEstimator(expected time.Duration) *Estimator {
	if expected <= 0 {
		expected = defaultExpectedDuration
	}
	return &Estimator{
		ExpectedDuration: expected,
		TimeCap:          defaultTimeCap,
		Ceiling:          defaultCeiling,
		Labels:           DefaultLabels,
		Jitter:           randomJitter,
	}
}

func randomJitter() float64 {
	return minJitter + rand.Float64()*(maxJitter-minJitter)
}

// TimeProgress is the time-based signal, capped at TimeCap.
func (e *Estimator) TimeProgress(elapsed time.Duration) float64 {
	if elapsed <= 0 || e.ExpectedDuration <= 0 {
		return 0
	}
	p := elapsed.Seconds() / e.ExpectedDuration.Seconds() * e.TimeCap
	return math.Min(p, e.TimeCap)
}

// StatusProgress is the phase-based signal.
func StatusProgress(phase Phase) float64 {
	if p, ok := phaseProgress[phase]; ok {
		return p
	}
	return unknownPhaseProgress
}

// Next computes the progress after a non-terminal poll. The result is never
// below prev and never above Ceiling unless prev already was.
func (e *Estimator) Next(elapsed time.Duration, phase Phase, prev float64) float64 {
	p := math.Max(math.Max(e.TimeProgress(elapsed), StatusProgress(phase)), prev)
	if e.Jitter != nil {
		p += clampJitter(e.Jitter())
	}
	p = math.Min(p, e.Ceiling)
	return math.Max(p, prev)
}

func clampJitter(j float64) float64 {
	if j < 0 || math.IsNaN(j) {
		return 0
	}
	return math.Min(j, maxJitter)
}

// Text maps a percentage onto the ordered label list.
func (e *Estimator) Text(progress float64) string {
	if len(e.Labels) == 0 {
		return ""
	}
	p := math.Max(0, math.Min(progress, 100))
	idx := int(math.Floor(p / 100 * float64(len(e.Labels)-1)))
	return e.Labels[idx]
}
