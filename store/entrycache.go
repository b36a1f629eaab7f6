// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"github.com/luxfi/database"

	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/codec"
	"github.com/luxfi/dht/hash"
)

// EntryCache holds standalone Entry payloads keyed directly by entry hash,
// for the cases (§4.6 "RegisterAddLink" dependency checks, §4.9 fetched
// dependencies) where only the entry content is known and no originating
// Element has been resolved yet. It shares PrefixCache with ElementStore's
// cache: the key already folds in hash.KindEntry vs hash.KindHeader, so the
// two namespaces never alias.
type EntryCache struct{ s *Store }

// NewEntryCache returns an EntryCache over db.
func NewEntryCache(db database.Database) *EntryCache {
	return &EntryCache{s: New(db, PrefixCache)}
}

// Open returns a fresh EntryCacheScratch for one workflow invocation.
func (c *EntryCache) Open() *EntryCacheScratch { return &EntryCacheScratch{s: c.s.Open()} }

// Get returns the entry cached under entryHash, if any.
func (c *EntryCache) Get(entryHash hash.Hash) (chain.Entry, bool) {
	return entryGet(c.s, entryHash)
}

func entryGet(r elementReader, entryHash hash.Hash) (chain.Entry, bool) {
	raw, err := r.Get(entryHash)
	if err != nil {
		return chain.Entry{}, false
	}
	var e chain.Entry
	if _, err := codec.Codec.Unmarshal(raw, &e); err != nil {
		return chain.Entry{}, false
	}
	return e, true
}

// EntryCacheScratch is one workflow invocation's write-buffering view of an
// EntryCache (§4.2, §5, §9). The cascade's best-effort cache write-through
// (§4.3) opens one of these per network fetch and calls Commit directly,
// independent of any workflow.Writer.
type EntryCacheScratch struct{ s *Scratch }

// Put buffers entry under entryHash.
func (c *EntryCacheScratch) Put(entryHash hash.Hash, entry chain.Entry) error {
	b, err := codec.Codec.Marshal(codec.CurrentVersion, entry)
	if err != nil {
		return err
	}
	c.s.Put(entryHash, b)
	return nil
}

// Get returns the entry visible to this Scratch under entryHash, if any.
func (c *EntryCacheScratch) Get(entryHash hash.Hash) (chain.Entry, bool) {
	return entryGet(c.s, entryHash)
}

// FlushTo commits every buffered write to w.
func (c *EntryCacheScratch) FlushTo(w database.Batch) error { return c.s.FlushTo(w) }

// Commit flushes this Scratch directly, independent of any workflow.Writer.
func (c *EntryCacheScratch) Commit() error { return c.s.Commit() }
