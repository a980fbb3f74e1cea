// Package registry holds the session-scoped set of upload records and
// broadcasts changes to subscribers. It is the single source of truth for
// what the notification surface shows; all mutations go through the methods
// below and no I/O happens here.
package registry

import (
	"sync"

	"github.com/dmitrijs2005/uploadvault/internal/common"
)

// Status is the lifecycle state of one upload record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Record tracks one user file selection through its lifecycle.
// FileName and FileSize are captured at creation and never change.
type Record struct {
	ID       string
	FileName string
	FileSize int64
	Status   Status
	Progress int
	Error    string
	URL      string
}

// Update is a partial patch merged into an existing record. Nil fields are
// left untouched.
type Update struct {
	Status   *Status
	Progress *int
	Error    *string
	URL      *string
}

// Registry is owned by the session root and passed by reference to the
// orchestrator (writer) and the presenter (reader). All methods are safe for
// concurrent use; subscriber callbacks run outside the lock.
type Registry struct {
	mu      sync.Mutex
	records []Record
	index   map[string]int
	subs    map[int]func()
	nextSub int
}

func New() *Registry {
	return &Registry{
		index: make(map[string]int),
		subs:  make(map[int]func()),
	}
}

// Add inserts a new record. The id must not already be present; a duplicate
// returns common.ErrorAlreadyExists and leaves the registry unchanged.
func (r *Registry) Add(rec Record) error {
	r.mu.Lock()
	if _, ok := r.index[rec.ID]; ok {
		r.mu.Unlock()
		return common.ErrorAlreadyExists
	}
	r.index[rec.ID] = len(r.records)
	r.records = append(r.records, rec)
	r.mu.Unlock()

	r.notify()
	return nil
}

// Update merges the patch into the record with the given id. An unknown id is
// a silent no-op: callers racing with a user dismissal must not be able to
// resurrect a removed record. Terminal statuses are never overwritten and
// progress never decreases.
func (r *Registry) Update(id string, upd Update) {
	r.mu.Lock()
	i, ok := r.index[id]
	if !ok {
		r.mu.Unlock()
		return
	}

	rec := &r.records[i]
	if upd.Status != nil && !rec.Status.Terminal() {
		rec.Status = *upd.Status
	}
	if upd.Progress != nil && *upd.Progress > rec.Progress {
		rec.Progress = *upd.Progress
	}
	if upd.Error != nil {
		rec.Error = *upd.Error
	}
	if upd.URL != nil {
		rec.URL = *upd.URL
	}
	r.mu.Unlock()

	r.notify()
}

// Remove deletes the record with the given id. Unknown ids are ignored.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	i, ok := r.index[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	r.records = append(r.records[:i], r.records[i+1:]...)
	r.reindex()
	r.mu.Unlock()

	r.notify()
}

// ClearSuccessful removes every record whose status is success and leaves all
// others untouched.
func (r *Registry) ClearSuccessful() {
	r.mu.Lock()
	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.Status != StatusSuccess {
			kept = append(kept, rec)
		}
	}
	r.records = kept
	r.reindex()
	r.mu.Unlock()

	r.notify()
}

// ClearAll empties the registry.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	r.records = nil
	r.reindex()
	r.mu.Unlock()

	r.notify()
}

// Snapshot returns a copy of the current records in insertion order.
func (r *Registry) Snapshot() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of records currently held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Subscribe registers fn to be called after every mutation and returns an
// unsubscribe function. fn must not block: it runs synchronously on the
// mutating goroutine.
func (r *Registry) Subscribe(fn func()) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// reindex rebuilds the id index. Caller holds the lock.
func (r *Registry) reindex() {
	r.index = make(map[string]int, len(r.records))
	for i, rec := range r.records {
		r.index[rec.ID] = i
	}
}

func (r *Registry) notify() {
	r.mu.Lock()
	fns := make([]func(), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
