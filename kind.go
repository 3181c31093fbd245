package vom

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/agoric-labs/vom/slot"
)

/*
Kind pairs a freshly allocated kind id with the instance maker that
builds its representatives, plus a monotonic per-kind instance
sequence. The kind registry is simply Manager.kinds, a map from kind id
to *Kind, and the reanimator is Kind.reanimate.
*/
type Kind struct {
	manager *Manager
	kindID  string
	maker   InstanceMaker

	nextInstanceID atomic.Uint64
}

// MakeNewInstance mints a new virtual object of this kind.
//
// The inner self is registered with the cache (still tagged
// residencyInitializing) before Initialize runs, not after. Get this
// ordering backwards and a kind whose Initialize recursively mints
// further instances would see its own in-progress instance silently
// absent from the cache instead of protected by it.
func (k *Kind) MakeNewInstance(ctx context.Context, args interface{}) (Representative, error) {
	seq := k.nextInstanceID.Add(1)
	instanceKey := slot.InstanceKey(k.kindID, seq)

	inner := &innerSelf{instanceKey: instanceKey, residency: residencyInitializing}
	state := &State{kind: k, inner: inner, pending: make(map[string]interface{})}

	rep := k.maker(state)

	if err := k.manager.cache.Remember(ctx, inner); err != nil {
		return nil, err
	}
	k.manager.slots.Set(rep, instanceKey)

	if initer, ok := rep.(Initializer); ok {
		if err := initer.Initialize(ctx, args); err != nil {
			k.manager.cache.Forget(instanceKey)
			k.manager.slots.Delete(rep)
			return nil, err
		}
	}

	raw, err := state.commit()
	if err != nil {
		k.manager.cache.Forget(instanceKey)
		k.manager.slots.Delete(rep)
		return nil, err
	}

	inner.raw = raw
	inner.residency = residencyResident

	k.manager.log.WithFields(logrus.Fields{
		"kind_id":      k.kindID,
		"instance_key": instanceKey,
	}).Debug("vom: minted new virtual object instance")

	return rep, nil
}

// reanimate unconditionally rebuilds a representative for an existing
// instance by fetching its state through the cache: reanimate(key) =
// make_representative(cache.lookup(key), initializing=false), with no
// shortcut for a vref whose representative happens to already be live
// in this process. Recognizing that case is the host's job, via its
// own slot<->representative dispatch table, not vom's.
func (k *Kind) reanimate(ctx context.Context, instanceKey string) (Representative, error) {
	inner, err := k.manager.cache.Lookup(ctx, instanceKey)
	if err != nil {
		return nil, err
	}

	state := &State{kind: k, inner: inner}
	rep := k.maker(state)
	k.manager.slots.Set(rep, instanceKey)
	return rep, nil
}
