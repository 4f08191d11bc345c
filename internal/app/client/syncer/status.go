package syncer

import (
	"sync"

	"spratt/internal/app/client/ingest"
)

// State состояние синхронизации процесса
type State string

const (
	StateOffline State = "offline"
	StateSyncing State = "syncing"
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateError   State = "error"
)

// Status рассылается подписчикам, живет только в памяти
type Status struct {
	State        State `json:"state"`
	PendingCount int   `json:"pending_count"`
}

type (
	Listener       func(Status)
	IngestListener func(ingest.Receipt)
)

type registry[T any] struct {
	mu      sync.Mutex
	nextID  uint64
	entries []entry[T]
}

type entry[T any] struct {
	id uint64
	fn T
}

func (r *registry[T]) add(fn T) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.entries = append(r.entries, entry[T]{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *registry[T]) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.id == id {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return
		}
	}
}

func (r *registry[T]) snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	fns := make([]T, len(r.entries))
	for i, e := range r.entries {
		fns[i] = e.fn
	}
	return fns
}
