package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

// Key prefixes partition the Badger keyspace.
const (
	blobPrefix = "blob/"
	refPrefix  = "ref/"
	docPrefix  = "doc/"
)

// BadgerStore is a Store persisted in a BadgerDB instance.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a Badger-backed store at path. An empty path
// opens an in-memory instance, which is useful for tests.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: opening badger at %q: %v", ErrStorage, path, err)
	}
	return &BadgerStore{db: db}, nil
}

func blobKey(id string) []byte { return []byte(blobPrefix + id) }
func refKey(id string) []byte  { return []byte(refPrefix + id) }
func docKey(kind, id string) []byte {
	return []byte(docPrefix + kind + "/" + id)
}

func refCount(txn *badger.Txn, id string) (uint64, error) {
	item, err := txn.Get(refKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var count uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("malformed refcount for blob %s", id)
		}
		count = binary.LittleEndian.Uint64(val)
		return nil
	})
	return count, err
}

func setRefCount(txn *badger.Txn, id string, count uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], count)
	return txn.Set(refKey(id), buf[:])
}

func (s *BadgerStore) PutBlob(_ context.Context, data []byte) (string, error) {
	id := BlobID(data)
	err := s.db.Update(func(txn *badger.Txn) error {
		count, err := refCount(txn, id)
		if err != nil {
			return err
		}
		if count == 0 {
			if err := txn.Set(blobKey(id), data); err != nil {
				return err
			}
		}
		return setRefCount(txn, id, count+1)
	})
	if err != nil {
		return "", fmt.Errorf("%w: putting blob: %v", ErrStorage, err)
	}
	return id, nil
}

func (s *BadgerStore) GetBlob(_ context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blobKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("blob %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: getting blob %s: %v", ErrStorage, id, err)
	}
	return data, nil
}

func (s *BadgerStore) DeleteBlob(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		count, err := refCount(txn, id)
		if err != nil {
			return err
		}
		if count == 0 {
			return badger.ErrKeyNotFound
		}
		if count > 1 {
			return setRefCount(txn, id, count-1)
		}
		if err := txn.Delete(refKey(id)); err != nil {
			return err
		}
		return txn.Delete(blobKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("blob %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%w: deleting blob %s: %v", ErrStorage, id, err)
	}
	return nil
}

func (s *BadgerStore) PutDocument(_ context.Context, kind string, fields map[string]any) (string, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encoding document: %w", err)
	}
	id := uuid.NewString()
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(docKey(kind, id), raw)
	})
	if err != nil {
		return "", fmt.Errorf("%w: putting document: %v", ErrStorage, err)
	}
	return id, nil
}

func (s *BadgerStore) GetDocument(_ context.Context, kind, id string) (map[string]any, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(kind, id))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("document %s/%s: %w", kind, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: getting document %s/%s: %v", ErrStorage, kind, id, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding document %s/%s: %w", kind, id, err)
	}
	return fields, nil
}

func (s *BadgerStore) UpdateDocument(_ context.Context, kind, id string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(docKey(kind, id)); err != nil {
			return err
		}
		return txn.Set(docKey(kind, id), raw)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("document %s/%s: %w", kind, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%w: updating document %s/%s: %v", ErrStorage, kind, id, err)
	}
	return nil
}

func (s *BadgerStore) DeleteDocument(_ context.Context, kind, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(docKey(kind, id)); err != nil {
			return err
		}
		return txn.Delete(docKey(kind, id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("document %s/%s: %w", kind, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%w: deleting document %s/%s: %v", ErrStorage, kind, id, err)
	}
	return nil
}

// Close flushes and closes the underlying Badger instance.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
