package access

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-tab-session/internal/errors"
)

// Editor holds the access set of one subject through an optimistic edit.
// Preview stages a provisional set for display; Commit confirms it with the
// authority or falls back to the last confirmed set.
type Editor struct {
	authority Authority
	subject   Subject

	mu        sync.Mutex
	confirmed Set
	staged    *staged
}

type staged struct {
	plan    Plan
	desired Set
}

// NewEditor starts an edit from the set the authority last reported.
func NewEditor(authority Authority, subject Subject, confirmed Set) *Editor {
	return &Editor{
		authority: authority,
		subject:   subject,
		confirmed: confirmed.Clone(),
	}
}

// Subject returns the subject being edited.
func (e *Editor) Subject() Subject { return e.subject }

// Confirmed returns the last set the authority accepted.
func (e *Editor) Confirmed() Set {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.confirmed.Clone()
}

// Current returns the provisional set when one is staged, else the confirmed set.
func (e *Editor) Current() Set {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.staged != nil {
		return e.staged.desired.Clone()
	}
	return e.confirmed.Clone()
}

// Pending reports whether a preview is waiting for Commit.
func (e *Editor) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.staged != nil
}

// Preview stages desired and returns the plan against the confirmed set.
// A later Preview replaces an earlier one.
func (e *Editor) Preview(desired Set, mode Mode) Plan {
	e.mu.Lock()
	defer e.mu.Unlock()

	plan := Reconcile(e.confirmed, desired, mode)
	e.staged = &staged{plan: plan, desired: desired.Clone()}
	return plan
}

// Discard drops the staged preview.
func (e *Editor) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.staged = nil
}

// Commit applies the staged plan. On success the staged set becomes the
// confirmed set; on failure the preview is dropped and the error returned.
func (e *Editor) Commit(ctx context.Context) (Set, error) {
	e.mu.Lock()
	st := e.staged
	e.mu.Unlock()

	if st == nil {
		return nil, errors.ErrNothingStaged
	}

	err := Execute(ctx, e.authority, e.subject, st.plan, st.desired)

	e.mu.Lock()
	defer e.mu.Unlock()

	// a newer Preview superseded this commit while it was in flight
	superseded := e.staged != st

	if err != nil {
		if !superseded {
			e.staged = nil
		}
		log.Debug().Err(err).Str("subject", e.subject.String()).Msg("access edit reverted")
		return e.confirmed.Clone(), err
	}

	e.confirmed = st.plan.Apply(e.confirmed)
	if !superseded {
		e.staged = nil
	} else if e.staged != nil {
		e.staged.plan = Reconcile(e.confirmed, e.staged.desired, e.staged.plan.Mode)
	}
	return e.confirmed.Clone(), nil
}
