// Package notify derives a live roll-up of the upload registry for display.
// The presenter owns no upload state: it reads registry snapshots and keeps
// only local presentation state (dismissal, expand/collapse).
package notify

import (
	"sync"

	"github.com/dmitrijs2005/uploadvault/internal/client/registry"
)

// Summary is the aggregate view of the registry at one point in time.
type Summary struct {
	Total     int
	Active    int // pending + uploading
	Succeeded int
	Failed    int
	// OverallProgress is the arithmetic mean of per-record progress,
	// not weighted by file size. Zero when the registry is empty.
	OverallProgress int
	Records         []registry.Record
}

// Presenter is a passive subscriber to the registry. It hides the summary
// after an explicit dismissal and re-arms visibility as soon as a new record
// is added.
type Presenter struct {
	reg *registry.Registry

	mu        sync.Mutex
	dismissed bool
	expanded  bool
	lastCount int
	unsub     func()
}

func NewPresenter(reg *registry.Registry) *Presenter {
	p := &Presenter{reg: reg}
	p.unsub = reg.Subscribe(p.onChange)
	return p
}

// Close detaches the presenter from the registry.
func (p *Presenter) Close() {
	if p.unsub != nil {
		p.unsub()
	}
}

func (p *Presenter) onChange() {
	n := p.reg.Len()

	p.mu.Lock()
	if n > p.lastCount {
		// A new record arrived: the notification surface reappears even if
		// the user closed it earlier.
		p.dismissed = false
	}
	p.lastCount = n
	p.mu.Unlock()
}

// Summary computes the current roll-up from a registry snapshot.
func (p *Presenter) Summary() Summary {
	records := p.reg.Snapshot()

	s := Summary{Total: len(records), Records: records}
	sum := 0
	for _, rec := range records {
		sum += rec.Progress
		switch rec.Status {
		case registry.StatusPending, registry.StatusUploading:
			s.Active++
		case registry.StatusSuccess:
			s.Succeeded++
		case registry.StatusError:
			s.Failed++
		}
	}
	if s.Total > 0 {
		s.OverallProgress = sum / s.Total
	}
	return s
}

// Visible reports whether the summary should be shown: hidden entirely when
// the registry is empty or after a dismissal.
func (p *Presenter) Visible() bool {
	if p.reg.Len() == 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.dismissed
}

// Dismiss hides the whole notification surface until a new record is added.
func (p *Presenter) Dismiss() {
	p.mu.Lock()
	p.dismissed = true
	p.mu.Unlock()
}

// ToggleExpanded flips the expanded/collapsed presentation state and returns
// the new value. This state is local and independent of the registry.
func (p *Presenter) ToggleExpanded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expanded = !p.expanded
	return p.expanded
}

// Expanded reports the current expand/collapse state.
func (p *Presenter) Expanded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expanded
}

// DismissRecord removes one entry from the registry.
func (p *Presenter) DismissRecord(id string) {
	p.reg.Remove(id)
}

// CanClearCompleted reports whether bulk dismissal of successful uploads is
// offered: only when something succeeded and nothing is still in flight.
func (p *Presenter) CanClearCompleted() bool {
	s := p.Summary()
	return s.Succeeded > 0 && s.Active == 0
}

// ClearCompleted removes every successful record. It is a no-op while an
// upload is still active.
func (p *Presenter) ClearCompleted() {
	if !p.CanClearCompleted() {
		return
	}
	p.reg.ClearSuccessful()
}
