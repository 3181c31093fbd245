package vom

import "github.com/pkg/errors"

/*
Error kinds.

Each named failure mode is a distinct sentinel error, checkable with
errors.Is even after a storage or codec layer has wrapped it with
github.com/pkg/errors for call-site context. None of these are retried
by vom itself; they are surfaced to the caller unchanged.
*/
var (
	// ErrCacheOverflow: every resident slot is occupied by an
	// in-progress initialization. Fatal, programmer-visible.
	ErrCacheOverflow = errors.New("vom: cache overflow: all resident entries are still initializing")

	// ErrUnknownKind: MakeVirtualObjectRepresentative was called with a
	// vref whose kind id is not registered.
	ErrUnknownKind = errors.New("vom: unknown kind")

	// ErrAlreadyRegistered: WeakStore.Init called on a key that already
	// has a binding.
	ErrAlreadyRegistered = errors.New("vom: already registered")

	// ErrNotFound: a WeakStore operation that requires an existing
	// binding found none.
	ErrNotFound = errors.New("vom: not found")

	// ErrNonSerializable: a property of the initial state could not be
	// encoded by the Codec during MakeNewInstance.
	ErrNonSerializable = errors.New("vom: non-serializable property")

	// ErrStillInitializing: a committed-mode property access observed
	// an inner self still marked residencyInitializing. Defensive
	// assertion; should never surface outside a programming error in
	// vom itself.
	ErrStillInitializing = errors.New("vom: still initializing")
)
