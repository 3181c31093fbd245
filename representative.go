package vom

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

/*
Representative is the opaque, user-facing value an instance maker
returns. vom never looks inside it; it is tracked only by its identity
(see slot.Table) and by whatever State handle its own methods close
over.

A kind's domain methods are ordinary Go methods on a user-defined type
that holds a *State and calls State.Get/State.Set with an explicit
field name, in place of generated per-property accessors.
*/
type Representative interface{}

// Initializer is implemented by a Representative that needs one-time
// setup arguments at construction. MakeNewInstance type-asserts for
// it and, if present, calls it exactly once before the instance's
// state is committed.
type Initializer interface {
	Initialize(ctx context.Context, args interface{}) error
}

// InstanceMaker builds a kind's Representative from a State handle. It
// is called once per instance — at construction time with an
// uncommitted State, and once per reanimation with an already-resident
// one — and must not retain the State's backing inner self directly;
// all field access must go through the State it was given.
type InstanceMaker func(state *State) Representative

/*
State is the per-instance accessor handle a Representative's methods
use to read and write virtual-object fields: a single typed get/set
pair keyed by field name, shared by every kind rather than generated
per kind.

Before the owning instance's initial state is committed (i.e. while a
kind's Initialize method is still running), State buffers field writes
in an ordinary Go map. After commit, every Get/Set routes through
ensureState and the cache instead.
*/
type State struct {
	kind  *Kind
	inner *innerSelf

	// pending is non-nil only between construction and commit. Its
	// presence, not residency, is what selects builder-mode behavior:
	// residency is already residencyInitializing at this point, but
	// checking pending directly keeps Get/Set independent of Cache
	// internals.
	pending map[string]interface{}
}

// Get reads field into out. Before commit, out must be a pointer to
// exactly the type last written with Set (no serialization round-trip
// has happened yet). After commit, out is populated via the kind's
// Codec, exactly as if the field had just been fetched from storage.
func (s *State) Get(ctx context.Context, field string, out interface{}) error {
	if s.pending != nil {
		v, ok := s.pending[field]
		if !ok {
			return fmt.Errorf("vom: unknown property %q", field)
		}
		return assignPending(v, out)
	}
	if s.inner.isInitializing() {
		return errors.Wrapf(ErrStillInitializing, "property %q", field)
	}
	if err := s.ensureState(ctx); err != nil {
		return err
	}
	encoded, ok := s.inner.raw[field]
	if !ok {
		return fmt.Errorf("vom: unknown property %q", field)
	}
	return s.kind.manager.cdc.Unserialize(encoded, out)
}

// Set writes value to field. Once committed, Set always serializes
// value before calling ensureState, so a codec failure never
// observably mutates state and a re-entrant ensureState eviction can
// never race ahead of the write it guards.
func (s *State) Set(ctx context.Context, field string, value interface{}) error {
	if s.pending != nil {
		s.pending[field] = value
		return nil
	}
	encoded, err := s.kind.manager.cdc.Serialize(value)
	if err != nil {
		return errors.Wrapf(err, "vom: serialize property %q", field)
	}
	if s.inner.isInitializing() {
		return errors.Wrapf(ErrStillInitializing, "property %q", field)
	}
	if err := s.ensureState(ctx); err != nil {
		return err
	}
	s.inner.raw[field] = encoded
	return nil
}

// ensureState rebinds s.inner via a fresh cache lookup if the
// currently-held inner self has been evicted since the last access.
// On the common already-resident path no lookup is made, so the
// entry's LRU position is left unchanged.
func (s *State) ensureState(ctx context.Context) error {
	if s.inner.residency != residencyDetached {
		return nil
	}
	fresh, err := s.kind.manager.cache.Lookup(ctx, s.inner.instanceKey)
	if err != nil {
		return err
	}
	s.inner = fresh
	return nil
}

// commit serializes every pending field through the kind's Codec,
// producing the inner self's committed rawData. Any serialization
// failure is returned naming the offending field and leaves pending
// untouched; the caller (MakeNewInstance) then drops the
// still-initializing instance from the cache with Cache.Forget, so a
// failure here leaves nothing persisted.
func (s *State) commit() (rawData, error) {
	out := make(rawData, len(s.pending))
	for field, value := range s.pending {
		encoded, err := s.kind.manager.cdc.Serialize(value)
		if err != nil {
			return nil, errors.Wrapf(ErrNonSerializable, "property %q: %v", field, err)
		}
		out[field] = encoded
	}
	s.pending = nil
	return out, nil
}

// assignPending copies a pending (not-yet-serialized) value into out,
// supporting the common pointer-to-same-type case used throughout
// Initialize implementations.
func assignPending(v interface{}, out interface{}) error {
	switch p := out.(type) {
	case *interface{}:
		*p = v
		return nil
	default:
		return copyInto(v, out)
	}
}
