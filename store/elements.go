// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/codec"
	"github.com/luxfi/dht/hash"
)

// ElementStore is the long-lived read handle for one (Header, optional
// Entry) buffer keyed by header hash — vault, authored, pending, rejected,
// or cache, the five named element buffers in §3, distinguished only by
// their Prefix. Writers call Open to get a per-invocation ElementScratch.
type ElementStore struct{ s *Store }

// NewElementStore returns an ElementStore over db under prefix.
func NewElementStore(db database.Database, prefix Prefix) *ElementStore {
	return &ElementStore{s: New(db, prefix)}
}

// Open returns a fresh ElementScratch for one workflow invocation.
func (e *ElementStore) Open() *ElementScratch { return &ElementScratch{s: e.s.Open()} }

// Get returns the committed element stored under headerHash, if any.
func (e *ElementStore) Get(headerHash hash.Hash) (chain.Element, bool) {
	return elementGet(e.s, headerHash)
}

// Has reports whether headerHash is present.
func (e *ElementStore) Has(headerHash hash.Hash) bool { return e.s.Has(headerHash) }

// List returns every committed element's header hash, in hash order.
func (e *ElementStore) List() []hash.Hash { return e.s.Iter() }

// GetByEntryHash scans for a committed element whose Entry hashes to
// entryHash. It is O(n) in the store's size; callers needing frequent
// entry-hash lookups should maintain their own index (see MetaVault for the
// link/activity indexes that do).
func (e *ElementStore) GetByEntryHash(entryHash hash.Hash) (chain.Element, bool) {
	return elementGetByEntryHash(e.s, e.s.Iter(), entryHash)
}

// elementReader is satisfied by both *Store (committed-only reads) and
// *Scratch (pending-plus-committed reads), so Get/GetByEntryHash need only
// one implementation each, shared by ElementStore and ElementScratch.
type elementReader interface {
	Get(hash.Hash) ([]byte, error)
}

func elementGet(r elementReader, headerHash hash.Hash) (chain.Element, bool) {
	raw, err := r.Get(headerHash)
	if err != nil {
		return chain.Element{}, false
	}
	var el chain.Element
	if _, err := codec.Codec.Unmarshal(raw, &el); err != nil {
		return chain.Element{}, false
	}
	return el, true
}

func elementGetByEntryHash(r elementReader, keys []hash.Hash, entryHash hash.Hash) (chain.Element, bool) {
	for _, h := range keys {
		el, ok := elementGet(r, h)
		if !ok {
			continue
		}
		if el.Entry != nil && el.Entry.Hash() == entryHash {
			return el, true
		}
	}
	return chain.Element{}, false
}

// ElementScratch is one workflow invocation's write-buffering view of an
// ElementStore (§4.2, §5, §9).
type ElementScratch struct{ s *Scratch }

// Put buffers element under its header's hash.
func (e *ElementScratch) Put(element chain.Element) error {
	b, err := codec.Codec.Marshal(codec.CurrentVersion, element)
	if err != nil {
		return err
	}
	e.s.Put(element.Header.Hash(), b)
	return nil
}

// Get returns the element visible to this Scratch under headerHash, if any.
func (e *ElementScratch) Get(headerHash hash.Hash) (chain.Element, bool) {
	return elementGet(e.s, headerHash)
}

// Has reports whether headerHash is present, pending or committed.
func (e *ElementScratch) Has(headerHash hash.Hash) bool { return e.s.Has(headerHash) }

// GetByEntryHash scans for a visible element whose Entry hashes to
// entryHash.
func (e *ElementScratch) GetByEntryHash(entryHash hash.Hash) (chain.Element, bool) {
	return elementGetByEntryHash(e.s, e.s.Iter(), entryHash)
}

// Delete removes headerHash's element.
func (e *ElementScratch) Delete(headerHash hash.Hash) { e.s.Delete(headerHash) }

// List returns every element's header hash visible to this Scratch, in hash
// order.
func (e *ElementScratch) List() []hash.Hash { return e.s.Iter() }

// FlushTo commits every buffered write to w.
func (e *ElementScratch) FlushTo(w database.Batch) error { return e.s.FlushTo(w) }

// Commit flushes this Scratch directly, independent of any workflow.Writer
// (see Scratch.Commit — used by the cascade's cache write-through).
func (e *ElementScratch) Commit() error { return e.s.Commit() }

// Link is one RegisterAddLink projection the meta vault indexes.
type Link struct {
	BaseHash       hash.Hash
	TargetHash     hash.Hash
	Tag            []byte
	LinkType       string
	CreateLinkHash hash.Hash
	Removed        bool
}

// ActivityEntry is one RegisterAgentActivity projection: a single header in
// an agent's published chain, as seen by this node.
type ActivityEntry struct {
	Author     ids.NodeID
	Seq        uint32
	HeaderHash hash.Hash
}

// MetaVault is the long-lived read handle for the link and agent-activity
// indexes the cascade's dht_get_links/dht_get_agent_activity operations
// read, kept alongside the vault's ElementStore. Integration (§4.8) opens
// its own MetaVaultScratch to apply link/activity/update/delete index
// effects.
type MetaVault struct {
	links    *Store
	activity *Store
	updates  *Store
	deletes  *Store
}

// NewMetaVault returns a MetaVault over db.
func NewMetaVault(db database.Database) *MetaVault {
	return &MetaVault{
		links:    New(db, PrefixMetaLinks),
		activity: New(db, PrefixMetaActivity),
		updates:  New(db, PrefixMetaUpdates),
		deletes:  New(db, PrefixMetaDeletes),
	}
}

// Open returns a fresh MetaVaultScratch for one workflow invocation.
func (m *MetaVault) Open() *MetaVaultScratch {
	return &MetaVaultScratch{
		links:    m.links.Open(),
		activity: m.activity.Open(),
		updates:  m.updates.Open(),
		deletes:  m.deletes.Open(),
	}
}

// GetLink returns the committed link indexed under createLinkHash.
func (m *MetaVault) GetLink(createLinkHash hash.Hash) (Link, bool) {
	return linkGet(m.links, createLinkHash)
}

func linkGet(r elementReader, createLinkHash hash.Hash) (Link, bool) {
	raw, err := r.Get(createLinkHash)
	if err != nil {
		return Link{}, false
	}
	var l Link
	if _, err := codec.Codec.Unmarshal(raw, &l); err != nil {
		return Link{}, false
	}
	return l, true
}

// LinksByBase returns every committed, non-removed link whose BaseHash
// matches base and whose Tag has tagPrefix as a prefix (empty tagPrefix
// matches all), per §4.3's dht_get_links.
func (m *MetaVault) LinksByBase(base hash.Hash, tagPrefix []byte) []Link {
	return linksByBase(m.links, m.links.Iter(), base, tagPrefix)
}

func linksByBase(r elementReader, keys []hash.Hash, base hash.Hash, tagPrefix []byte) []Link {
	var out []Link
	for _, h := range keys {
		l, ok := linkGet(r, h)
		if !ok || l.Removed || l.BaseHash != base {
			continue
		}
		if len(tagPrefix) > 0 && !hasPrefix(l.Tag, tagPrefix) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func hasPrefix(b, prefix []byte) bool {
	if len(prefix) > len(b) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

// GetActivity returns the committed activity entry for headerHash, if
// indexed.
func (m *MetaVault) GetActivity(headerHash hash.Hash) (ActivityEntry, bool) {
	return activityGet(m.activity, headerHash)
}

func activityGet(r elementReader, headerHash hash.Hash) (ActivityEntry, bool) {
	raw, err := r.Get(headerHash)
	if err != nil {
		return ActivityEntry{}, false
	}
	var a ActivityEntry
	if _, err := codec.Codec.Unmarshal(raw, &a); err != nil {
		return ActivityEntry{}, false
	}
	return a, true
}

// AgentActivity returns every committed header hash authored by author with
// Seq in [minSeq, maxSeq], ordered by Seq ascending, per §4.3's
// dht_get_agent_activity.
func (m *MetaVault) AgentActivity(author ids.NodeID, minSeq, maxSeq uint32) []ActivityEntry {
	return agentActivity(m.activity, m.activity.Iter(), author, minSeq, maxSeq)
}

func agentActivity(r elementReader, keys []hash.Hash, author ids.NodeID, minSeq, maxSeq uint32) []ActivityEntry {
	var out []ActivityEntry
	for _, h := range keys {
		a, ok := activityGet(r, h)
		if !ok || a.Author != author || a.Seq < minSeq || a.Seq > maxSeq {
			continue
		}
		out = append(out, a)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Seq < out[j-1].Seq; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// UpdateRecord is one RegisterUpdatedContent/RegisterUpdatedElement
// projection: the original element gained a newer revision.
type UpdateRecord struct {
	OriginalHash hash.Hash
	UpdateHash   hash.Hash
}

// Updates returns every committed update header hash recorded against
// originalHash.
func (m *MetaVault) Updates(originalHash hash.Hash) []hash.Hash {
	return updates(m.updates, m.updates.Iter(), originalHash)
}

func updates(r elementReader, keys []hash.Hash, originalHash hash.Hash) []hash.Hash {
	var out []hash.Hash
	for _, h := range keys {
		raw, err := r.Get(h)
		if err != nil {
			continue
		}
		var rec UpdateRecord
		if _, err := codec.Codec.Unmarshal(raw, &rec); err != nil || rec.OriginalHash != originalHash {
			continue
		}
		out = append(out, rec.UpdateHash)
	}
	return out
}

// DeleteRecord is one RegisterDeletedBy/RegisterDeletedEntryHeader
// projection: targetHash was removed by deleteHeaderHash.
type DeleteRecord struct {
	TargetHash hash.Hash
	DeleteHash hash.Hash
}

// IsDeleted reports whether targetHash has a committed recorded deletion,
// and by which Delete header.
func (m *MetaVault) IsDeleted(targetHash hash.Hash) (hash.Hash, bool) {
	return isDeleted(m.deletes, targetHash)
}

func isDeleted(r elementReader, targetHash hash.Hash) (hash.Hash, bool) {
	raw, err := r.Get(targetHash)
	if err != nil {
		return hash.Empty, false
	}
	var rec DeleteRecord
	if _, err := codec.Codec.Unmarshal(raw, &rec); err != nil {
		return hash.Empty, false
	}
	return rec.DeleteHash, true
}

// MetaVaultScratch is one workflow invocation's write-buffering view of a
// MetaVault (§4.2, §5, §9).
type MetaVaultScratch struct {
	links    *Scratch
	activity *Scratch
	updates  *Scratch
	deletes  *Scratch
}

// PutLink indexes a CreateLink/DeleteLink projection under its CreateLink
// header hash (DeleteLink sets Removed on the existing record).
func (m *MetaVaultScratch) PutLink(createLinkHash hash.Hash, link Link) error {
	b, err := codec.Codec.Marshal(codec.CurrentVersion, link)
	if err != nil {
		return err
	}
	m.links.Put(createLinkHash, b)
	return nil
}

// GetLink returns the link indexed under createLinkHash, pending or
// committed.
func (m *MetaVaultScratch) GetLink(createLinkHash hash.Hash) (Link, bool) {
	return linkGet(m.links, createLinkHash)
}

// LinksByBase returns every visible, non-removed link whose BaseHash
// matches base and whose Tag has tagPrefix as a prefix.
func (m *MetaVaultScratch) LinksByBase(base hash.Hash, tagPrefix []byte) []Link {
	return linksByBase(m.links, m.links.Iter(), base, tagPrefix)
}

// PutActivity indexes a RegisterAgentActivity projection under its header
// hash.
func (m *MetaVaultScratch) PutActivity(entry ActivityEntry) error {
	b, err := codec.Codec.Marshal(codec.CurrentVersion, entry)
	if err != nil {
		return err
	}
	m.activity.Put(entry.HeaderHash, b)
	return nil
}

// GetActivity returns the activity entry for headerHash, pending or
// committed.
func (m *MetaVaultScratch) GetActivity(headerHash hash.Hash) (ActivityEntry, bool) {
	return activityGet(m.activity, headerHash)
}

// RecordUpdate indexes updateHeaderHash as a newer revision of originalHash
// (either an original entry hash or original header hash, depending on
// which Register* variant produced it).
func (m *MetaVaultScratch) RecordUpdate(originalHash, updateHeaderHash hash.Hash) error {
	rec := UpdateRecord{OriginalHash: originalHash, UpdateHash: updateHeaderHash}
	b, err := codec.Codec.Marshal(codec.CurrentVersion, rec)
	if err != nil {
		return err
	}
	m.updates.Put(updateHeaderHash, b)
	return nil
}

// RecordDelete indexes deleteHeaderHash as the Delete header that removed
// targetHash (an original header hash or original entry hash).
func (m *MetaVaultScratch) RecordDelete(targetHash, deleteHeaderHash hash.Hash) error {
	rec := DeleteRecord{TargetHash: targetHash, DeleteHash: deleteHeaderHash}
	b, err := codec.Codec.Marshal(codec.CurrentVersion, rec)
	if err != nil {
		return err
	}
	m.deletes.Put(targetHash, b)
	return nil
}

// FlushTo commits every buffered write in all four indexes to w.
func (m *MetaVaultScratch) FlushTo(w database.Batch) error {
	if err := m.links.FlushTo(w); err != nil {
		return err
	}
	if err := m.activity.FlushTo(w); err != nil {
		return err
	}
	if err := m.updates.FlushTo(w); err != nil {
		return err
	}
	return m.deletes.FlushTo(w)
}
