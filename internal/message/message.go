// Package message defines the control message that travels with a window of
// records through a context tree. The message owns a replaceable payload slot
// and a FIFO queue of tasks attached by upstream producers; every context in
// one tree holds the same message, so a payload swap by one stage is observed
// by all later stages.
package message

import (
	"sync"

	"github.com/vk/taskloom/internal/batch"
	"github.com/vk/taskloom/internal/task"
)

// Message is the shared carrier for one window of work.
type Message struct {
	mu      sync.Mutex
	payload *batch.Batch
	tasks   []task.Task
	meta    map[string]any
}

// New creates a message wrapping the given payload. A nil payload is allowed;
// a later stage may install one via SetPayload.
func New(payload *batch.Batch) *Message {
	return &Message{payload: payload}
}

// Payload returns the current payload batch.
func (m *Message) Payload() *batch.Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payload
}

// SetPayload replaces the payload slot. The handle indirection lets later
// stages swap in a derived batch without re-threading the message.
func (m *Message) SetPayload(b *batch.Batch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = b
}

// AddTask appends a task to the message's queue.
func (m *Message) AddTask(t task.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, t)
}

// HasTask reports whether at least one task is queued.
func (m *Message) HasTask() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks) > 0
}

// PopTask removes and returns the oldest queued task. The second return is
// false when the queue is empty.
func (m *Message) PopTask() (task.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tasks) == 0 {
		return task.Task{}, false
	}
	t := m.tasks[0]
	m.tasks = m.tasks[1:]
	return t, true
}

// SetMeta records a metadata entry on the message.
func (m *Message) SetMeta(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.meta == nil {
		m.meta = make(map[string]any)
	}
	m.meta[key] = value
}

// Meta returns the metadata entry for key and whether it exists.
func (m *Message) Meta(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.meta[key]
	return v, ok
}
