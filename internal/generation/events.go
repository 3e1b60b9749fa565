package generation

import "sync"

// EventType names a job lifecycle event.
type EventType string

const (
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventFailed   EventType = "failed"
)

// Event carries a job snapshot taken when the event fired.
type Event struct {
	Type EventType
	Job  Job
}

// EventPublisher receives job events from the manager. Publish is called
// outside the manager lock and must not block for long.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// MemoryPublisher stores events in-memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// ForJob returns the recorded events of one job in order.
func (p *MemoryPublisher) ForJob(id string) []Event {
	var out []Event
	for _, e := range p.Events() {
		if e.Job.ID == id {
			out = append(out, e)
		}
	}
	return out
}
