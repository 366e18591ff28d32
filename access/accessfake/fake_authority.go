package accessfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-tab-session/access"
)

var _ access.Authority = (*FakeAuthority)(nil)

// Call records one request made to the fake.
type Call struct {
	Op      string
	Subject access.Subject
	Items   []string
}

// FakeAuthority keeps grants in memory and records every call.
type FakeAuthority struct {
	grants map[access.Subject]access.Set
	calls  []Call
	fail   map[string]error
	lock   sync.Mutex
}

func NewFakeAuthority() *FakeAuthority {
	return &FakeAuthority{
		grants: make(map[access.Subject]access.Set),
		fail:   make(map[string]error),
	}
}

// Grant seeds the granted set for subject.
func (f *FakeAuthority) Grant(subject access.Subject, items ...string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.grants[subject] = access.NewSet(items...)
}

// FailOn makes the named operation ("attach", "detach", "sync") return err.
// A nil err clears the failure.
func (f *FakeAuthority) FailOn(op string, err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

// Granted returns the current grants of subject.
func (f *FakeAuthority) Granted(subject access.Subject) access.Set {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.set(subject).Clone()
}

// Calls returns the calls received so far.
func (f *FakeAuthority) Calls() []Call {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *FakeAuthority) set(subject access.Subject) access.Set {
	s, ok := f.grants[subject]
	if !ok {
		s = access.NewSet()
		f.grants[subject] = s
	}
	return s
}

func (f *FakeAuthority) record(op string, subject access.Subject, items []string) error {
	f.calls = append(f.calls, Call{Op: op, Subject: subject, Items: append([]string(nil), items...)})
	return f.fail[op]
}

func (f *FakeAuthority) Attach(_ context.Context, subject access.Subject, items []string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if err := f.record("attach", subject, items); err != nil {
		return err
	}
	s := f.set(subject)
	for _, n := range items {
		s[n] = struct{}{}
	}
	return nil
}

func (f *FakeAuthority) Detach(_ context.Context, subject access.Subject, items []string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if err := f.record("detach", subject, items); err != nil {
		return err
	}
	s := f.set(subject)
	for _, n := range items {
		delete(s, n)
	}
	return nil
}

func (f *FakeAuthority) Sync(_ context.Context, subject access.Subject, items []string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if err := f.record("sync", subject, items); err != nil {
		return err
	}
	f.grants[subject] = access.NewSet(items...)
	return nil
}
