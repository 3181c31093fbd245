package vom

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/agoric-labs/vom/codec"
	"github.com/agoric-labs/vom/slot"
	"github.com/agoric-labs/vom/vatstore"
)

/*
Manager is the virtual object manager facade: MakeWeakStore, MakeKind,
FlushCache, and MakeVirtualObjectRepresentative as methods on one value
a host constructs once and holds for the lifetime of a vat.

New wires a Cache whose fetch/store hooks close over the Manager's
Vatstore and Codec, so kinds and representatives only ever deal with
the Cache abstraction. WeakStore is the one other part of the package
that reads and writes the Vatstore directly.
*/
type Manager struct {
	store  vatstore.Store
	cdc    codec.Codec
	parser slot.Parser
	slots  *slot.Table
	alloc  ExportIDAllocator
	log    *logrus.Logger

	cache *Cache

	mu    sync.RWMutex
	kinds map[string]*Kind

	nextStoreID atomic.Uint64
}

// New constructs a Manager. cacheSize bounds the number of resident
// inner selves; it must be at least 1 for any kind with a non-trivial
// Initialize to avoid a spurious CacheOverflow on the very first
// instance.
func New(cacheSize int, store vatstore.Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		cdc:    codec.NewJSONCodec(),
		parser: slot.DefaultParser{},
		slots:  slot.NewTable(),
		alloc:  NewSequentialAllocator(),
		log:    logrus.StandardLogger(),
		kinds:  make(map[string]*Kind),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cache = NewCache(cacheSize, m.fetch, m.persist, m.log)
	return m
}

func (m *Manager) fetch(ctx context.Context, instanceKey string) (rawData, error) {
	encoded, ok, err := m.store.Get(ctx, instanceKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Errorf("vom: no persisted state for %q", instanceKey)
	}
	var data rawData
	if err := m.cdc.Unserialize(encoded, &data); err != nil {
		return nil, errors.Wrapf(err, "vom: decoding persisted state for %q", instanceKey)
	}
	return data, nil
}

func (m *Manager) persist(ctx context.Context, instanceKey string, data rawData) error {
	encoded, err := m.cdc.Serialize(data)
	if err != nil {
		return errors.Wrapf(err, "vom: encoding state for %q", instanceKey)
	}
	return m.store.Set(ctx, instanceKey, encoded)
}

// MakeKind registers a new kind backed by maker and returns its
// instance minter.
func (m *Manager) MakeKind(maker InstanceMaker) *Kind {
	kindID := m.alloc.AllocateExportID()
	k := &Kind{manager: m, kindID: kindID, maker: maker}

	m.mu.Lock()
	m.kinds[kindID] = k
	m.mu.Unlock()

	m.log.WithField("kind_id", kindID).Debug("vom: registered kind")
	return k
}

// MakeVirtualObjectRepresentative reanimates the virtual object named
// by vref, fetching its state through the cache and building a fresh
// representative for it every call — it never short-circuits to a
// representative already live in this process; a host that wants that
// deduplication maintains it itself via its own slot<->representative
// dispatch table. Fails with ErrUnknownKind if vref's kind is not
// registered.
func (m *Manager) MakeVirtualObjectRepresentative(ctx context.Context, vref string) (Representative, error) {
	ref, err := m.parser.Parse(vref)
	if err != nil {
		return nil, err
	}
	if !ref.Virtual || ref.Type != "object" {
		return nil, errors.Errorf("vom: %q is not a virtual object reference", vref)
	}

	m.mu.RLock()
	k, ok := m.kinds[ref.ID]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "kind id %q", ref.ID)
	}

	return k.reanimate(ctx, vref)
}

// FlushCache evicts every resident inner self to storage.
func (m *Manager) FlushCache(ctx context.Context) error {
	return m.cache.Flush(ctx)
}

// InstanceKeyOf returns the instance key (vref) a representative was
// registered under, if it is one of this Manager's virtual objects.
// Convenience wrapper over the SlotTable collaborator for hosts that
// need to hand the vref to their own export/message layer.
func (m *Manager) InstanceKeyOf(representative Representative) (string, bool) {
	return m.slots.Get(representative)
}

// CacheStats returns the current hit/miss/eviction counters for the
// manager's inner-self cache.
func (m *Manager) CacheStats() Stats {
	return m.cache.Stats()
}

// MakeWeakStore returns a fresh WeakStore; keyName tags its error
// messages ("<keyName> already registered", "<keyName> not found").
func (m *Manager) MakeWeakStore(keyName string) *WeakStore {
	if keyName == "" {
		keyName = "key"
	}
	return &WeakStore{
		manager:     m,
		storeID:     m.nextStoreID.Add(1),
		keyName:     keyName,
		weakEntries: make(map[uintptr]interface{}),
	}
}
