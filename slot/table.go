package slot

import "sync"

/*
Table is the SlotTable external collaborator: it associates an
in-memory representative with the slot string that names it durably.
vom only ever consumes the representative-to-slot direction — naming
an instance externally (Manager.InstanceKeyOf) and rolling back a
partially-constructed one (Kind.MakeNewInstance). The inverse,
slot-to-representative, direction belongs to the host's own dispatch
layer (see WithSlotTable): a real vat runtime already has to maintain
that association to route incoming messages, so vom's reanimator never
second-guesses it by keeping its own copy. The reanimator is therefore
unconditional — every call re-derives a representative from the cache
rather than returning an already-live one.

Table is keyed by representative identity (the pointer value itself,
which is comparable), not by value — two distinct representative
objects are always distinct entries even if their underlying state is
equal.
*/
type Table struct {
	mu    sync.RWMutex
	byRep map[interface{}]string
}

// NewTable returns an empty slot table.
func NewTable() *Table {
	return &Table{byRep: make(map[interface{}]string)}
}

// Get returns the slot string a representative was registered under,
// if any.
func (t *Table) Get(representative interface{}) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.byRep[representative]
	return s, ok
}

// Set registers representative under slot. Idempotent: re-registering
// the same (representative, slot) pair is a no-op. Registering a
// representative under a different slot replaces its entry.
func (t *Table) Set(representative interface{}, slot string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byRep[representative] = slot
}

// Delete removes a representative's registration, if any. Used to roll
// back a representative whose construction failed partway through.
func (t *Table) Delete(representative interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byRep, representative)
}
