package vom

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

/*
WeakStore is a map-like collaborator whose semantics differ by key
kind: a virtual-object key (one with a SlotTable entry naming a
virtual vref) is persisted in the vatstore under a store-qualified key;
any other key is held only in-process.

For the in-process side, this implementation reaches for
runtime.SetFinalizer rather than falling back to a plain
(strongly-held) map: it gives a genuine weak-map idiom in Go without
needing Go 1.24's weak.Pointer[T], which can't be instantiated for a
key type only known at the call site (WeakStore keys are
heterogeneous — representatives of different kinds and arbitrary host
objects alike — and Go generics are resolved at compile time, not
per-call). A finalizer attached to the key removes its weakEntries
entry once nothing else references the key, which is the actual
property "weak" is standing in for here.
*/
type WeakStore struct {
	manager *Manager
	storeID uint64
	keyName string

	mu          sync.Mutex
	weakEntries map[uintptr]interface{}
}

func (w *WeakStore) vkey(slotStr string) string {
	return fmt.Sprintf("ws%d.%s", w.storeID, slotStr)
}

// classify determines whether key is a virtual-object key: it has a
// SlotTable entry whose parsed slot is a virtual object reference.
func (w *WeakStore) classify(key interface{}) (vkeyStr string, virtual bool, err error) {
	slotStr, ok := w.manager.slots.Get(key)
	if !ok {
		return "", false, nil
	}
	ref, err := w.manager.parser.Parse(slotStr)
	if err != nil {
		return "", false, err
	}
	if ref.Type == "object" && ref.Virtual {
		return w.vkey(slotStr), true, nil
	}
	return "", false, nil
}

// addrOf returns a stable identity for a non-virtual key, which must
// be a reference type (pointer, map, chan, func, slice, or unsafe
// pointer) for weak holding to make sense at all.
func addrOf(key interface{}) (uintptr, error) {
	v := reflect.ValueOf(key)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Slice:
		return v.Pointer(), nil
	default:
		return 0, fmt.Errorf("vom: weak store key of type %T is not a reference type", key)
	}
}

func (w *WeakStore) registerFinalizer(key interface{}, addr uintptr) {
	if reflect.ValueOf(key).Kind() != reflect.Ptr {
		// Only pointers get a real finalizer; maps/chans/funcs are
		// rarely used as identity keys here and SetFinalizer's
		// semantics for them are murkier. They are still removable
		// via Delete.
		return
	}
	runtime.SetFinalizer(key, func(interface{}) {
		w.mu.Lock()
		delete(w.weakEntries, addr)
		w.mu.Unlock()
	})
}

// Has reports whether key currently has a binding.
func (w *WeakStore) Has(ctx context.Context, key interface{}) (bool, error) {
	vk, virtual, err := w.classify(key)
	if err != nil {
		return false, err
	}
	if virtual {
		_, ok, err := w.manager.store.Get(ctx, vk)
		return ok, err
	}
	addr, err := addrOf(key)
	if err != nil {
		return false, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.weakEntries[addr]
	return ok, nil
}

// Init creates a binding for key, failing with ErrAlreadyRegistered if
// one already exists.
func (w *WeakStore) Init(ctx context.Context, key interface{}, value interface{}) error {
	vk, virtual, err := w.classify(key)
	if err != nil {
		return err
	}
	if virtual {
		if _, ok, err := w.manager.store.Get(ctx, vk); err != nil {
			return err
		} else if ok {
			return errors.Wrapf(ErrAlreadyRegistered, "%s already registered", w.keyName)
		}
		encoded, err := w.manager.cdc.Serialize(value)
		if err != nil {
			return errors.Wrap(err, "vom: weak store init")
		}
		return w.manager.store.Set(ctx, vk, encoded)
	}

	addr, err := addrOf(key)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.weakEntries[addr]; ok {
		return errors.Wrapf(ErrAlreadyRegistered, "%s already registered", w.keyName)
	}
	w.weakEntries[addr] = value
	w.registerFinalizer(key, addr)
	return nil
}

// Get reads the value bound to key into out, failing with ErrNotFound
// if there is no binding. out must be a pointer to exactly the type
// the binding was made with — for a virtual key this is a true
// serialize/deserialize round trip through the Manager's Codec (so out
// must match whatever concrete type Unserialize can decode into, the
// same contract State.Get makes), while a non-virtual key's value is
// copied back directly since it was never serialized in the first
// place. A prior caller taking Get's result as interface{} would have
// silently gotten back the codec's generic JSON shape (float64 for any
// JSON number, map[string]interface{} for any object) instead of the
// type Init was called with; requiring a typed out pointer makes that
// impossible to do by accident.
func (w *WeakStore) Get(ctx context.Context, key interface{}, out interface{}) error {
	vk, virtual, err := w.classify(key)
	if err != nil {
		return err
	}
	if virtual {
		encoded, ok, err := w.manager.store.Get(ctx, vk)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Wrapf(ErrNotFound, "%s not found", w.keyName)
		}
		if err := w.manager.cdc.Unserialize(encoded, out); err != nil {
			return errors.Wrap(err, "vom: weak store get")
		}
		return nil
	}

	addr, err := addrOf(key)
	if err != nil {
		return err
	}
	w.mu.Lock()
	v, ok := w.weakEntries[addr]
	w.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrNotFound, "%s not found", w.keyName)
	}
	return copyInto(v, out)
}

// Set overwrites the value bound to key, failing with ErrNotFound if
// there is no prior binding — Set always requires a prior Init.
func (w *WeakStore) Set(ctx context.Context, key interface{}, value interface{}) error {
	vk, virtual, err := w.classify(key)
	if err != nil {
		return err
	}
	if virtual {
		if _, ok, err := w.manager.store.Get(ctx, vk); err != nil {
			return err
		} else if !ok {
			return errors.Wrapf(ErrNotFound, "%s not found", w.keyName)
		}
		encoded, err := w.manager.cdc.Serialize(value)
		if err != nil {
			return errors.Wrap(err, "vom: weak store set")
		}
		return w.manager.store.Set(ctx, vk, encoded)
	}

	addr, err := addrOf(key)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.weakEntries[addr]; !ok {
		return errors.Wrapf(ErrNotFound, "%s not found", w.keyName)
	}
	w.weakEntries[addr] = value
	return nil
}

// Delete removes key's binding, failing with ErrNotFound if there is
// none. Virtual keys get an actual vatstore delete rather than an
// undefined-value tombstone, since the Store interface already exposes
// a real Delete.
func (w *WeakStore) Delete(ctx context.Context, key interface{}) error {
	vk, virtual, err := w.classify(key)
	if err != nil {
		return err
	}
	if virtual {
		if _, ok, err := w.manager.store.Get(ctx, vk); err != nil {
			return err
		} else if !ok {
			return errors.Wrapf(ErrNotFound, "%s not found", w.keyName)
		}
		return w.manager.store.Delete(ctx, vk)
	}

	addr, err := addrOf(key)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.weakEntries[addr]; !ok {
		return errors.Wrapf(ErrNotFound, "%s not found", w.keyName)
	}
	delete(w.weakEntries, addr)
	if reflect.ValueOf(key).Kind() == reflect.Ptr {
		runtime.SetFinalizer(key, nil)
	}
	return nil
}
