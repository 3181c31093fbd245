package vatstore

import (
	"context"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
)

/*
BadgerStore is a durable Vatstore backed by a Badger embedded database.

This is the production-grade counterpart to MemoryStore: state written
through it survives process restarts, which is the whole point of a
vatstore in a real deployment — a vat's virtual objects must still be
reanimatable after the host process that ran them is gone and a new
one takes its place.

Badger transactions give per-call atomicity for free; vom never needs
more than single-key read-your-writes (see the Store doc comment), so
every operation here opens and commits its own transaction rather than
threading a shared one through the call chain.
*/
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (creating if necessary) a Badger database at dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening badger vatstore at %q", dir)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying Badger database handle.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}

func (b *BadgerStore) Get(_ context.Context, key string) (string, bool, error) {
	var value string
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false, errors.Wrapf(err, "vatstore get %q", key)
	}
	if value == "" {
		// Distinguish a genuine miss from a stored empty string by
		// re-checking existence; empty values are legal (e.g. an
		// empty RawData object serializes to "{}", never "").
		exists, existsErr := b.exists(key)
		if existsErr != nil {
			return "", false, existsErr
		}
		return "", exists, nil
	}
	return value, true, nil
}

func (b *BadgerStore) exists(key string) (bool, error) {
	var found bool
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, errors.Wrapf(err, "vatstore exists %q", key)
}

func (b *BadgerStore) Set(_ context.Context, key, value string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	return errors.Wrapf(err, "vatstore set %q", key)
}

func (b *BadgerStore) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	return errors.Wrapf(err, "vatstore delete %q", key)
}
