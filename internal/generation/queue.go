package generation

import "sync"

// CompletionQueue is a FIFO of finished job ids. It holds ids only; the job
// may already be gone from the manager when its id is dequeued.
type CompletionQueue struct {
	mu      sync.Mutex
	ids     []string
	limit   int
	dropped int
}

// NewCompletionQueue creates an empty queue holding at most limit ids. Once
// full, each Enqueue drops the oldest id. A limit <= 0 means unbounded.
func NewCompletionQueue(limit int) *CompletionQueue {
	return &CompletionQueue{limit: limit}
}

// Enqueue appends id
func (q *CompletionQueue) Enqueue(id string) {
	q.mu.Lock()
	if q.limit > 0 && len(q.ids) >= q.limit {
		n := len(q.ids) - q.limit + 1
		clear(q.ids[:n])
		q.ids = q.ids[n:]
		q.dropped += n
	}
	q.ids = append(q.ids, id)
	q.mu.Unlock()
}

// Dropped returns how many ids were discarded because the queue was full
func (q *CompletionQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// DequeueNext removes and returns the oldest id. ok is false when empty.
func (q *CompletionQueue) DequeueNext() (id string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ids) == 0 {
		return "", false
	}
	id = q.ids[0]
	q.ids[0] = ""
	q.ids = q.ids[1:]
	return id, true
}

// Len returns the number of pending ids
func (q *CompletionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}
