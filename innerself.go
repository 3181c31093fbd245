package vom

// residency is a first-class tag on the inner self —
// {Initializing, Resident, Detached} — rather than a sentinel smuggled
// into user-visible state.
type residency int

const (
	residencyInitializing residency = iota
	residencyResident
	residencyDetached
)

// rawData is the ground (codec-serialized) form of a virtual object's
// own properties: property name -> serialized scalar.
type rawData map[string]string

// innerSelf is the cache entry owning a virtual object's live state.
// It participates in exactly one LRU list while resident. Only the
// cache touches the LRU linkage; residency and raw are also set by
// MakeNewInstance on commit, and raw's fields are written by State.Set.
//
// There is no per-instance property-interceptor field here: a Go
// struct's method set is fixed at compile time, so State (see
// representative.go) reproduces the equivalent pending-vs-committed
// accessor behavior by switching its own Get/Set logic instead.
type innerSelf struct {
	instanceKey string
	residency   residency
	raw         rawData
}

func (s *innerSelf) isInitializing() bool { return s.residency == residencyInitializing }
func (s *innerSelf) isResident() bool     { return s.residency == residencyResident }
