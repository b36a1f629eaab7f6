// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"encoding/binary"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/dht/hash"
)

// ProduceCursor tracks, per authoring agent, the sequence number of the next
// source-chain element the produce-dht-ops workflow has not yet turned into
// DhtOps (§4.5 "per-chain-index element loading"). Re-running produce after
// a crash resumes from the persisted cursor rather than reprocessing the
// whole chain.
type ProduceCursor struct{ s *Store }

// NewProduceCursor returns a ProduceCursor over db.
func NewProduceCursor(db database.Database) *ProduceCursor {
	return &ProduceCursor{s: New(db, PrefixProduceCursor)}
}

func cursorKey(author ids.NodeID) hash.Hash {
	return hash.Of(hash.KindAgentKey, author[:])
}

// Open returns a fresh ProduceCursorScratch for one workflow invocation.
func (c *ProduceCursor) Open() *ProduceCursorScratch {
	return &ProduceCursorScratch{s: c.s.Open()}
}

// Next returns the lowest not-yet-produced Seq for author, 0 if nothing has
// been produced yet.
func (c *ProduceCursor) Next(author ids.NodeID) uint32 {
	raw, err := c.s.Get(cursorKey(author))
	if err != nil {
		return 0
	}
	return binary.BigEndian.Uint32(raw)
}

// ProduceCursorScratch is one workflow invocation's write-buffering view of
// a ProduceCursor (§4.2, §5, §9).
type ProduceCursorScratch struct{ s *Scratch }

// Next returns the lowest not-yet-produced Seq for author, pending or
// committed.
func (c *ProduceCursorScratch) Next(author ids.NodeID) uint32 {
	raw, err := c.s.Get(cursorKey(author))
	if err != nil {
		return 0
	}
	return binary.BigEndian.Uint32(raw)
}

// Advance records that every element up to and including seq has been
// produced for author.
func (c *ProduceCursorScratch) Advance(author ids.NodeID, seq uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], seq+1)
	c.s.Put(cursorKey(author), buf[:])
}

// FlushTo commits the buffered cursor advance to w.
func (c *ProduceCursorScratch) FlushTo(w database.Batch) error { return c.s.FlushTo(w) }
