// Package transcript keeps the ordered, append-only view of one session.
package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Origin string

const (
	OriginUser     Origin = "user"
	OriginHandler  Origin = "handler"
	OriginSystem   Origin = "system"
	OriginRealtime Origin = "realtime"
)

// Entry is one line of the transcript.
type Entry struct {
	ID        string            `json:"id"`
	Origin    Origin            `json:"origin"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Transcript is safe for concurrent appends. Entries appear in append order,
// which for dispatcher output is completion order, not submission order.
type Transcript struct {
	mu        sync.RWMutex
	entries   []Entry
	listeners []func(Entry)
	now       func() time.Time
}

func New() *Transcript {
	return &Transcript{now: time.Now}
}

// OnAppend registers fn to be called with every subsequently appended entry.
// Listeners run synchronously in append order.
func (t *Transcript) OnAppend(fn func(Entry)) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

func (t *Transcript) Append(origin Origin, content string, metadata map[string]string) Entry {
	t.mu.Lock()
	e := Entry{
		ID:        uuid.NewString(),
		Origin:    origin,
		Content:   content,
		Timestamp: t.now().UTC(),
		Metadata:  metadata,
	}
	t.entries = append(t.entries, e)
	listeners := t.listeners
	// Listeners run under the lock and must not call back into t.
	for _, fn := range listeners {
		fn(e)
	}
	t.mu.Unlock()
	return e
}

// Follow registers fn like OnAppend and returns the entries appended before
// it, so a consumer sees every entry exactly once.
func (t *Transcript) Follow(fn func(Entry)) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
	return append([]Entry(nil), t.entries...)
}

// Entries returns a copy of the transcript.
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Entry(nil), t.entries...)
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
