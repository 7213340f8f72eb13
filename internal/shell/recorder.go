package shell

import (
	"sync"

	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
)

// Recorder is a domain.Presenter that keeps every result and forwards it
// to the next presenter.
type Recorder struct {
	next domain.Presenter

	mu        sync.Mutex
	summaries []domain.Summary
	specials  []domain.SpecialResult
}

// NewRecorder creates a recorder forwarding to next (may be nil).
func NewRecorder(next domain.Presenter) *Recorder {
	return &Recorder{next: next}
}

func (r *Recorder) ShowSummary(summary domain.Summary) {
	r.mu.Lock()
	r.summaries = append(r.summaries, summary)
	r.mu.Unlock()
	if r.next != nil {
		r.next.ShowSummary(summary)
	}
}

func (r *Recorder) ShowSpecialResult(result domain.SpecialResult) {
	r.mu.Lock()
	r.specials = append(r.specials, result)
	r.mu.Unlock()
	if r.next != nil {
		r.next.ShowSpecialResult(result)
	}
}

// Results returns copies of the recorded summaries and special results.
func (r *Recorder) Results() ([]domain.Summary, []domain.SpecialResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Summary(nil), r.summaries...),
		append([]domain.SpecialResult(nil), r.specials...)
}

var _ domain.Presenter = (*Recorder)(nil)
