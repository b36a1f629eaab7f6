// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package store implements the named, prefixed key-value buffers the
// pipeline stages through: vault, authored, pending, rejected, cache, and
// the three limbo/queue stores. All of them share one physical
// github.com/luxfi/database.Database, partitioned by a one-byte prefix on
// every key, the way engine/dag/state.serializer layers an in-memory index
// over a single database.Database handle.
package store

import (
	"errors"
	"sort"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/dht/hash"
)

// Prefix discriminates the logical store a key belongs to within the shared
// backend table (§3 "Persisted state layout": "prefix-byte || logical-key").
type Prefix byte

const (
	PrefixVault Prefix = iota
	PrefixMetaVault
	PrefixAuthored
	PrefixPending
	PrefixRejected
	PrefixCache
	PrefixValidationLimbo
	PrefixIntegrationLimbo
	PrefixIntegrationQueue
	PrefixAuthoredDhtOps
	PrefixMetaLinks
	PrefixMetaActivity
	PrefixProduceCursor
	PrefixMetaUpdates
	PrefixMetaDeletes
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("store: key not found")

// Store is the long-lived, stateless handle for one prefixed namespace
// within the shared backend: it names where a logical store's keys live
// (db + prefix) and nothing else. It carries no scratch of its own and is
// safe to share across every workflow that touches this namespace (§5
// "readers are snapshot-isolated... the store backend is mutated only by
// one-shot writers").
//
// A workflow that needs to write opens its own Scratch via Open: a
// borrowed read handle onto the committed data plus a fresh, private write
// buffer (§5 "the workspace scratch is thread-local and not shared"; §9
// "this replaces any notion of long-lived mutable store references
// crossing workflow boundaries"). Nothing is durable until that Scratch is
// flushed through a workflow.Writer.
type Store struct {
	prefix Prefix
	db     database.Database
}

// New returns a Store over db, namespaced under prefix.
func New(db database.Database, prefix Prefix) *Store {
	return &Store{prefix: prefix, db: db}
}

// key encodes the store prefix, the hash's own Kind tag, and its ID bytes,
// so a key can be decoded back into a full hash.Hash during Iter.
func (s *Store) key(k hash.Hash) []byte {
	b := k.Bytes()
	out := make([]byte, 0, len(b)+2)
	out = append(out, byte(s.prefix), byte(k.Kind))
	out = append(out, b...)
	return out
}

// get reads straight from the committed database, bypassing any scratch.
func (s *Store) get(k hash.Hash) ([]byte, error) {
	v, err := s.db.Get(s.key(k))
	if err != nil {
		return nil, ErrNotFound
	}
	return v, nil
}

// iter returns every committed key in this namespace, in key order.
func (s *Store) iter() []hash.Hash {
	var out []hash.Hash
	it := s.db.NewIteratorWithPrefix([]byte{byte(s.prefix)})
	defer it.Release()
	for it.Next() {
		out = append(out, decodeKey(s.prefix, it.Key()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// Get reads k's committed value directly, with no scratch overlay. Safe to
// call from any number of concurrent readers.
func (s *Store) Get(k hash.Hash) ([]byte, error) { return s.get(k) }

// Has reports whether k has a committed value.
func (s *Store) Has(k hash.Hash) bool {
	_, err := s.get(k)
	return err == nil
}

// Iter returns every committed key in this namespace, in key order, per
// §4.2's `iter()`.
func (s *Store) Iter() []hash.Hash { return s.iter() }

// Open returns a fresh Scratch: one workflow invocation's private write
// buffer layered over this Store's committed data. Call Open once per
// workflow Run and commit only the Scratch it returns (§4.4, §5, §9).
func (s *Store) Open() *Scratch {
	return &Scratch{store: s, pending: make(map[string][]byte)}
}

// Scratch is one workflow invocation's borrowed read handle plus private
// scratch layer (§4.2 "flush_to_txn(writer)", §5 "thread-local and not
// shared"). It is not safe for concurrent use — a workflow's own iteration
// is single-threaded by construction, and a new Scratch is opened per Run,
// so none is ever needed.
type Scratch struct {
	store   *Store
	pending map[string][]byte // nil value = pending delete
}

// Get consults this Scratch's own pending writes first, so a workflow sees
// what it itself just wrote this run, then falls back to committed data.
func (s *Scratch) Get(k hash.Hash) ([]byte, error) {
	sk := string(s.store.key(k))
	if v, ok := s.pending[sk]; ok {
		if v == nil {
			return nil, ErrNotFound
		}
		return v, nil
	}
	return s.store.get(k)
}

// Has reports whether k has a value, pending or committed.
func (s *Scratch) Has(k hash.Hash) bool {
	_, err := s.Get(k)
	return err == nil
}

// Put buffers a write for k. It is not durable until this Scratch is
// flushed through a workflow.Writer.
func (s *Scratch) Put(k hash.Hash, value []byte) {
	s.pending[string(s.store.key(k))] = value
}

// Delete buffers a deletion of k.
func (s *Scratch) Delete(k hash.Hash) {
	s.pending[string(s.store.key(k))] = nil
}

// Iter returns every key visible to this Scratch (pending plus committed)
// in key order, as required by §4.2's `iter()`.
func (s *Scratch) Iter() []hash.Hash {
	seen := make(map[string]bool, len(s.pending))
	var out []hash.Hash
	for sk, v := range s.pending {
		seen[sk] = true
		if v != nil {
			out = append(out, decodeKey(s.store.prefix, []byte(sk)))
		}
	}
	for _, h := range s.store.iter() {
		if !seen[string(s.store.key(h))] {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

func decodeKey(prefix Prefix, raw []byte) hash.Hash {
	if len(raw) < 2 || raw[0] != byte(prefix) {
		return hash.Empty
	}
	kind := hash.Kind(raw[1])
	id, err := ids.ToID(raw[2:])
	if err != nil {
		return hash.Empty
	}
	return hash.Hash{Kind: kind, ID: id}
}

// FlushTo applies every write this Scratch buffered to w as part of a
// single batch, exactly as §4.2's `flush_to_txn(writer)` specifies. It is
// meant to be called exactly once, through a workflow.Writer that commits
// this Scratch alongside every other store the same workflow invocation
// touched — either the whole batch lands or none of it (§7).
func (s *Scratch) FlushTo(w database.Batch) error {
	for k, v := range s.pending {
		if v == nil {
			if err := w.Delete([]byte(k)); err != nil {
				return err
			}
			continue
		}
		if err := w.Put([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

// Commit flushes this Scratch directly against its own store's database in
// one self-contained batch, independent of any workflow's Writer. It is for
// writes that are not part of a workflow's atomic commit — currently only
// the cascade's best-effort cache write-through (§4.3: no singleflight,
// last-writer-wins, acceptable because results are content-addressed).
func (s *Scratch) Commit() error {
	batch := s.store.db.NewBatch()
	if err := s.FlushTo(batch); err != nil {
		return err
	}
	return batch.Write()
}
