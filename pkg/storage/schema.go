// Package storage provides the BadgerDB-backed persistence layer of Skein.
//
// The query front-end only touches the schema slice of it: labels,
// relationship types, property keys and index descriptors, surfaced through
// the db.* procedures.
package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for BadgerDB storage organization.
// Using single-byte prefixes for efficiency.
const (
	prefixLabel   = byte(0x10) // label:name -> {}
	prefixRelType = byte(0x11) // reltype:name -> {}
	prefixPropKey = byte(0x12) // propkey:name -> {}
	prefixIndex   = byte(0x13) // index:label -> IndexDescriptor
)

// IndexDescriptor records an index created through the schema DDL.
type IndexDescriptor struct {
	Label      string   `json:"label"`
	Properties []string `json:"properties"`
}

// SchemaStore persists graph schema metadata in BadgerDB. All operations
// run inside badger transactions and are safe for concurrent use.
type SchemaStore struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// Options configures the schema store.
type Options struct {
	// DataDir is the directory for storing data files. Ignored when
	// InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode. Useful for testing;
	// data is not persisted.
	InMemory bool

	// SyncWrites forces fsync after each write. Slower but more durable.
	SyncWrites bool
}

// Open opens (or creates) a schema store.
func Open(opts Options) (*SchemaStore, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)
	badgerOpts.SyncWrites = opts.SyncWrites
	badgerOpts.Logger = nil
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.DataDir, err)
	}
	return &SchemaStore{db: db}, nil
}

// Close releases the underlying database.
func (s *SchemaStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func schemaKey(prefix byte, name string) []byte {
	key := make([]byte, 1+len(name))
	key[0] = prefix
	copy(key[1:], name)
	return key
}

func (s *SchemaStore) putName(prefix byte, name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(schemaKey(prefix, name), []byte{})
	})
}

func (s *SchemaStore) listNames(prefix byte) []string {
	var names []string
	_ = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte{prefix}})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			names = append(names, string(key[1:]))
		}
		return nil
	})
	sort.Strings(names)
	return names
}

// AddLabel records a node label.
func (s *SchemaStore) AddLabel(name string) error {
	return s.putName(prefixLabel, name)
}

// AddRelationshipType records a relationship type.
func (s *SchemaStore) AddRelationshipType(name string) error {
	return s.putName(prefixRelType, name)
}

// AddPropertyKey records a property key.
func (s *SchemaStore) AddPropertyKey(name string) error {
	return s.putName(prefixPropKey, name)
}

// Labels returns all recorded node labels, sorted.
func (s *SchemaStore) Labels() []string {
	return s.listNames(prefixLabel)
}

// RelationshipTypes returns all recorded relationship types, sorted.
func (s *SchemaStore) RelationshipTypes() []string {
	return s.listNames(prefixRelType)
}

// PropertyKeys returns all recorded property keys, sorted.
func (s *SchemaStore) PropertyKeys() []string {
	return s.listNames(prefixPropKey)
}

// AddIndex persists an index descriptor keyed by label.
func (s *SchemaStore) AddIndex(desc IndexDescriptor) error {
	payload, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("marshal index descriptor: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(schemaKey(prefixIndex, desc.Label), payload)
	})
}

// DropIndex removes the index descriptor for a label. Dropping a missing
// index is an error.
func (s *SchemaStore) DropIndex(label string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := schemaKey(prefixIndex, label)
		if _, err := txn.Get(key); err != nil {
			return fmt.Errorf("drop index on %q: %w", label, err)
		}
		return txn.Delete(key)
	})
}

// Indexes returns all index descriptors, sorted by label.
func (s *SchemaStore) Indexes() []IndexDescriptor {
	var descs []IndexDescriptor
	_ = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte{prefixIndex}})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var desc IndexDescriptor
				if err := json.Unmarshal(val, &desc); err != nil {
					return err
				}
				descs = append(descs, desc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	sort.Slice(descs, func(i, j int) bool { return descs[i].Label < descs[j].Label })
	return descs
}
