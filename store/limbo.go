// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"time"

	"github.com/luxfi/database"

	"github.com/luxfi/dht/codec"
	"github.com/luxfi/dht/hash"
	"github.com/luxfi/dht/op"
)

// SysStatus is the validation_limbo status an Op moves through during
// system/application validation (§3 "Limbo values").
type SysStatus byte

const (
	StatusPending SysStatus = iota
	StatusAwaitingSysDeps
	StatusSysValidated
	StatusAwaitingAppDeps
	StatusAwaitingIntegration
)

func (s SysStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusAwaitingSysDeps:
		return "AwaitingSysDeps"
	case StatusSysValidated:
		return "SysValidated"
	case StatusAwaitingAppDeps:
		return "AwaitingAppDeps"
	case StatusAwaitingIntegration:
		return "AwaitingIntegration"
	default:
		return "Unknown"
	}
}

// ValidationStatus is the final verdict recorded against an Op once
// validation resolves it, carried by integration_limbo entries.
type ValidationStatus byte

const (
	ValidationValid ValidationStatus = iota
	ValidationRejected
	ValidationAbandoned
)

func (v ValidationStatus) String() string {
	switch v {
	case ValidationValid:
		return "Valid"
	case ValidationRejected:
		return "Rejected"
	case ValidationAbandoned:
		return "Abandoned"
	default:
		return "Unknown"
	}
}

// ValidationLimboEntry is one record in validation_limbo: an Op mid
// system/application validation, its current status, the hashes it is
// blocked on (when awaiting dependencies), and its retry bookkeeping.
type ValidationLimboEntry struct {
	Op             op.Op
	Status         SysStatus
	AwaitingHashes []hash.Hash
	NumTries       int
	LastTry        time.Time
	RejectReason   string
}

func limboEntryGet(r elementReader, opHash hash.Hash) (ValidationLimboEntry, bool) {
	raw, err := r.Get(opHash)
	if err != nil {
		return ValidationLimboEntry{}, false
	}
	var entry ValidationLimboEntry
	if _, err := codec.Codec.Unmarshal(raw, &entry); err != nil {
		return ValidationLimboEntry{}, false
	}
	return entry, true
}

func limboEntryList(keys []hash.Hash, r elementReader) []ValidationLimboEntry {
	var out []ValidationLimboEntry
	for _, h := range keys {
		if entry, ok := limboEntryGet(r, h); ok {
			out = append(out, entry)
		}
	}
	return out
}

// ValidationLimbo is the long-lived read handle for prefix
// PrefixValidationLimbo, typed for ValidationLimboEntry records keyed by Op
// hash, so an Op has at most one entry. Put overwrites an existing entry
// (the workflows record status changes that way); the incoming-Op admission
// paths check Has first, so re-admitting an Op leaves its entry untouched.
// Writers call Open to get a per-invocation ValidationLimboScratch.
type ValidationLimbo struct{ s *Store }

// NewValidationLimbo returns a ValidationLimbo over db.
func NewValidationLimbo(db database.Database) *ValidationLimbo {
	return &ValidationLimbo{s: New(db, PrefixValidationLimbo)}
}

// Open returns a fresh ValidationLimboScratch for one workflow invocation.
func (l *ValidationLimbo) Open() *ValidationLimboScratch {
	return &ValidationLimboScratch{s: l.s.Open()}
}

// Get returns the committed entry for opHash, if any.
func (l *ValidationLimbo) Get(opHash hash.Hash) (ValidationLimboEntry, bool) {
	return limboEntryGet(l.s, opHash)
}

// Has reports whether opHash has a committed entry.
func (l *ValidationLimbo) Has(opHash hash.Hash) bool { return l.s.Has(opHash) }

// List returns every committed entry, for a workflow to drain in
// (timestamp, op_hash) order (the caller sorts).
func (l *ValidationLimbo) List() []ValidationLimboEntry {
	return limboEntryList(l.s.Iter(), l.s)
}

// ValidationLimboScratch is one workflow invocation's write-buffering view
// of a ValidationLimbo (§4.2, §5, §9).
type ValidationLimboScratch struct{ s *Scratch }

// Put buffers entry under its Op's hash.
func (l *ValidationLimboScratch) Put(entry ValidationLimboEntry) error {
	b, err := codec.Codec.Marshal(codec.CurrentVersion, entry)
	if err != nil {
		return err
	}
	l.s.Put(entry.Op.Hash(), b)
	return nil
}

// Get returns the entry for opHash, pending or committed.
func (l *ValidationLimboScratch) Get(opHash hash.Hash) (ValidationLimboEntry, bool) {
	return limboEntryGet(l.s, opHash)
}

// Has reports whether opHash has an entry, pending or committed.
func (l *ValidationLimboScratch) Has(opHash hash.Hash) bool { return l.s.Has(opHash) }

// Delete removes opHash's entry (used once it transitions out of limbo).
func (l *ValidationLimboScratch) Delete(opHash hash.Hash) { l.s.Delete(opHash) }

// List returns every entry visible to this Scratch.
func (l *ValidationLimboScratch) List() []ValidationLimboEntry {
	return limboEntryList(l.s.Iter(), l.s)
}

// FlushTo commits every buffered write to w.
func (l *ValidationLimboScratch) FlushTo(w database.Batch) error { return l.s.FlushTo(w) }

// IntegrationLimboEntry is one record in integration_limbo: an Op whose
// validation has resolved (Valid/Rejected/Abandoned) and is waiting for the
// integration workflow to apply or discard its effect.
type IntegrationLimboEntry struct {
	Op     op.Op
	Status ValidationStatus
	Reason string // set when Status is ValidationRejected
}

func integrationEntryGet(r elementReader, opHash hash.Hash) (IntegrationLimboEntry, bool) {
	raw, err := r.Get(opHash)
	if err != nil {
		return IntegrationLimboEntry{}, false
	}
	var entry IntegrationLimboEntry
	if _, err := codec.Codec.Unmarshal(raw, &entry); err != nil {
		return IntegrationLimboEntry{}, false
	}
	return entry, true
}

func integrationEntryList(keys []hash.Hash, r elementReader) []IntegrationLimboEntry {
	var out []IntegrationLimboEntry
	for _, h := range keys {
		if entry, ok := integrationEntryGet(r, h); ok {
			out = append(out, entry)
		}
	}
	return out
}

// IntegrationLimbo is the long-lived read handle for PrefixIntegrationLimbo.
type IntegrationLimbo struct{ s *Store }

func NewIntegrationLimbo(db database.Database) *IntegrationLimbo {
	return &IntegrationLimbo{s: New(db, PrefixIntegrationLimbo)}
}

// Open returns a fresh IntegrationLimboScratch for one workflow invocation.
func (l *IntegrationLimbo) Open() *IntegrationLimboScratch {
	return &IntegrationLimboScratch{s: l.s.Open()}
}

func (l *IntegrationLimbo) Get(opHash hash.Hash) (IntegrationLimboEntry, bool) {
	return integrationEntryGet(l.s, opHash)
}

func (l *IntegrationLimbo) List() []IntegrationLimboEntry {
	return integrationEntryList(l.s.Iter(), l.s)
}

// IntegrationLimboScratch is one workflow invocation's write-buffering view
// of an IntegrationLimbo.
type IntegrationLimboScratch struct{ s *Scratch }

func (l *IntegrationLimboScratch) Put(entry IntegrationLimboEntry) error {
	b, err := codec.Codec.Marshal(codec.CurrentVersion, entry)
	if err != nil {
		return err
	}
	l.s.Put(entry.Op.Hash(), b)
	return nil
}

func (l *IntegrationLimboScratch) Get(opHash hash.Hash) (IntegrationLimboEntry, bool) {
	return integrationEntryGet(l.s, opHash)
}

func (l *IntegrationLimboScratch) Delete(opHash hash.Hash) { l.s.Delete(opHash) }

func (l *IntegrationLimboScratch) List() []IntegrationLimboEntry {
	return integrationEntryList(l.s.Iter(), l.s)
}

func (l *IntegrationLimboScratch) FlushTo(w database.Batch) error { return l.s.FlushTo(w) }

// QueueEntry is one record in integration_queue: an Op already known Valid
// (authored, or validated), ordered for integration by (Timestamp, OpHash).
type QueueEntry struct {
	Timestamp time.Time
	OpHash    hash.Hash
	Status    ValidationStatus
	Op        op.Op
}

func queueEntryGet(r elementReader, opHash hash.Hash) (QueueEntry, bool) {
	raw, err := r.Get(opHash)
	if err != nil {
		return QueueEntry{}, false
	}
	var entry QueueEntry
	if _, err := codec.Codec.Unmarshal(raw, &entry); err != nil {
		return QueueEntry{}, false
	}
	return entry, true
}

func queueList(keys []hash.Hash, r elementReader) []QueueEntry {
	var out []QueueEntry
	for _, h := range keys {
		if entry, ok := queueEntryGet(r, h); ok {
			out = append(out, entry)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && queueLess(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func queueLess(a, b QueueEntry) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.OpHash.Compare(b.OpHash) < 0
}

// IntegrationQueue is the long-lived read handle for PrefixIntegrationQueue,
// keyed by op hash but always consumed in (timestamp, op_hash) order via
// List.
type IntegrationQueue struct{ s *Store }

func NewIntegrationQueue(db database.Database) *IntegrationQueue {
	return &IntegrationQueue{s: New(db, PrefixIntegrationQueue)}
}

// Open returns a fresh IntegrationQueueScratch for one workflow invocation.
func (q *IntegrationQueue) Open() *IntegrationQueueScratch {
	return &IntegrationQueueScratch{s: q.s.Open()}
}

func (q *IntegrationQueue) Has(opHash hash.Hash) bool { return q.s.Has(opHash) }

// List returns every committed entry ordered by (Timestamp, OpHash), per §5
// "The integration_queue is drained in (timestamp, op_hash) order".
func (q *IntegrationQueue) List() []QueueEntry { return queueList(q.s.Iter(), q.s) }

// IntegrationQueueScratch is one workflow invocation's write-buffering view
// of an IntegrationQueue.
type IntegrationQueueScratch struct{ s *Scratch }

func (q *IntegrationQueueScratch) Put(entry QueueEntry) error {
	b, err := codec.Codec.Marshal(codec.CurrentVersion, entry)
	if err != nil {
		return err
	}
	q.s.Put(entry.OpHash, b)
	return nil
}

func (q *IntegrationQueueScratch) Delete(opHash hash.Hash) { q.s.Delete(opHash) }

func (q *IntegrationQueueScratch) Has(opHash hash.Hash) bool { return q.s.Has(opHash) }

func (q *IntegrationQueueScratch) List() []QueueEntry { return queueList(q.s.Iter(), q.s) }

func (q *IntegrationQueueScratch) FlushTo(w database.Batch) error { return q.s.FlushTo(w) }

// AuthoredDhtOps is the long-lived read handle for PrefixAuthoredDhtOps: a
// presence-only set of Op hashes this agent itself produced (§3: "presence
// signals do not re-enter producer for the originating chain index").
type AuthoredDhtOps struct{ s *Store }

func NewAuthoredDhtOps(db database.Database) *AuthoredDhtOps {
	return &AuthoredDhtOps{s: New(db, PrefixAuthoredDhtOps)}
}

// Open returns a fresh AuthoredDhtOpsScratch for one workflow invocation.
func (a *AuthoredDhtOps) Open() *AuthoredDhtOpsScratch {
	return &AuthoredDhtOpsScratch{s: a.s.Open()}
}

func (a *AuthoredDhtOps) Has(opHash hash.Hash) bool { return a.s.Has(opHash) }
func (a *AuthoredDhtOps) List() []hash.Hash         { return a.s.Iter() }

// AuthoredDhtOpsScratch is one workflow invocation's write-buffering view of
// an AuthoredDhtOps.
type AuthoredDhtOpsScratch struct{ s *Scratch }

func (a *AuthoredDhtOpsScratch) Add(opHash hash.Hash)      { a.s.Put(opHash, []byte{1}) }
func (a *AuthoredDhtOpsScratch) Has(opHash hash.Hash) bool { return a.s.Has(opHash) }
func (a *AuthoredDhtOpsScratch) List() []hash.Hash         { return a.s.Iter() }

func (a *AuthoredDhtOpsScratch) FlushTo(w database.Batch) error { return a.s.FlushTo(w) }
