// Package access turns edits of a subject's roles or permissions into the
// minimal attach/detach work for the remote authority.
//
// Reconcile is a pure function; Execute performs the wire calls for a plan;
// Editor wraps both in a preview/commit cycle that rolls back on rejection.
package access

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-tab-session/internal/errors"
)

// Mode selects how a Plan is applied to the authority.
type Mode string

const (
	// ModeAdditive sends the explicit additions and removals as separate calls.
	ModeAdditive Mode = "additive"
	// ModeReplace sends the whole desired set and lets the authority diff it.
	ModeReplace Mode = "replace"
)

// SubjectKind says what holds the access items.
type SubjectKind string

const (
	// SubjectRole holds permissions.
	SubjectRole SubjectKind = "role"
	// SubjectUser holds roles.
	SubjectUser SubjectKind = "user"
)

// Subject identifies the role or user being edited.
type Subject struct {
	Kind SubjectKind
	ID   string
}

func (s Subject) String() string { return string(s.Kind) + ":" + s.ID }

// Validate checks the subject can be addressed on the wire.
func (s Subject) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", errors.ErrInvalidSubject)
	}
	switch s.Kind {
	case SubjectRole, SubjectUser:
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", errors.ErrInvalidSubject, s.Kind)
	}
}

// Plan is the difference between a granted set and a desired set.
type Plan struct {
	ToAdd    Set
	ToRemove Set
	Mode     Mode
}

// Empty reports whether the plan changes nothing.
func (p Plan) Empty() bool {
	return p.ToAdd.Len() == 0 && p.ToRemove.Len() == 0
}

// Apply returns current with the plan's additions and removals applied.
func (p Plan) Apply(current Set) Set {
	next := current.Clone()
	for n := range p.ToAdd {
		next[n] = struct{}{}
	}
	for n := range p.ToRemove {
		delete(next, n)
	}
	return next
}

// Reconcile computes the plan that takes current to desired. The mode is
// carried into the plan but does not change the diff.
func Reconcile(current, desired Set, mode Mode) Plan {
	return Plan{
		ToAdd:    desired.Minus(current),
		ToRemove: current.Minus(desired),
		Mode:     mode,
	}
}

// Authority is the remote side of access control. All three calls are
// expected to be idempotent.
type Authority interface {
	Attach(ctx context.Context, subject Subject, items []string) error
	Detach(ctx context.Context, subject Subject, items []string) error
	Sync(ctx context.Context, subject Subject, items []string) error
}

// Execute sends plan to the authority. Additive plans detach before they
// attach and skip empty halves. Replace plans send desired in one Sync call,
// even when nothing changed.
func Execute(ctx context.Context, authority Authority, subject Subject, plan Plan, desired Set) error {
	if err := subject.Validate(); err != nil {
		return err
	}

	switch plan.Mode {
	case ModeReplace:
		if err := authority.Sync(ctx, subject, desired.Sorted()); err != nil {
			return errors.Wrapf(err, "[access.Execute] sync %s", subject)
		}
	case ModeAdditive:
		if plan.ToRemove.Len() > 0 {
			if err := authority.Detach(ctx, subject, plan.ToRemove.Sorted()); err != nil {
				return errors.Wrapf(err, "[access.Execute] detach %s", subject)
			}
		}
		if plan.ToAdd.Len() > 0 {
			if err := authority.Attach(ctx, subject, plan.ToAdd.Sorted()); err != nil {
				return errors.Wrapf(err, "[access.Execute] attach %s", subject)
			}
		}
	default:
		return fmt.Errorf("%w: mode %q", errors.ErrUnsupported, plan.Mode)
	}

	log.Debug().
		Str("subject", subject.String()).
		Str("mode", string(plan.Mode)).
		Int("added", plan.ToAdd.Len()).
		Int("removed", plan.ToRemove.Len()).
		Msg("access plan applied")
	return nil
}
