// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sysvalidation implements the system validation workflow (§4.6):
// the structural, cryptographic, and dependency checks every incoming Op
// passes through before it is either rejected, parked awaiting a
// dependency, or handed on to application validation/integration.
package sysvalidation

import (
	"context"
	"fmt"
	"time"

	"github.com/luxfi/log"

	"github.com/luxfi/dht/agentdir"
	"github.com/luxfi/dht/cascade"
	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/config"
	"github.com/luxfi/dht/hash"
	"github.com/luxfi/dht/op"
	"github.com/luxfi/dht/store"
	safemath "github.com/luxfi/dht/utils/math"
	"github.com/luxfi/dht/workflow"
)

// Outcome is the verdict Validate reaches for one Op, per §4.6's "Outcome
// mapping" table. It is never an error: validation outcomes and
// infrastructural errors are deliberately distinct taxonomies (§7).
type Outcome int

const (
	// Accepted means every check passed; the Op proceeds to application
	// validation.
	Accepted Outcome = iota
	// SkipAppValidation means the Op passed but its kind (RegisterAgentActivity)
	// bypasses application validation entirely.
	SkipAppValidation
	// Rejected is a final, non-retryable structural or cryptographic
	// failure.
	Rejected
	// MissingDhtDep means a network-permitted lookup still came up empty;
	// the Op is requeued Pending and retried whole, with no specific
	// dependency hash tracked.
	MissingDhtDep
	// AwaitingOpDep means a specific local dependency is not yet held; the
	// Op is parked AwaitingSysDeps on that hash while it is fetched.
	AwaitingOpDep
)

// Result is what Validate returns for one Op.
type Result struct {
	Outcome        Outcome
	RejectReason   string
	AwaitingHashes []hash.Hash
}

func accepted() Result { return Result{Outcome: Accepted} }

func rejected(reason string, args ...interface{}) Result {
	return Result{Outcome: Rejected, RejectReason: fmt.Sprintf(reason, args...)}
}

func awaitingDep(h hash.Hash) Result {
	return Result{Outcome: AwaitingOpDep, AwaitingHashes: []hash.Hash{h}}
}

func missingDhtDep() Result { return Result{Outcome: MissingDhtDep} }

// CounterfeitCheck is the cryptographic gate run before an Op is ever
// admitted to validation_limbo (§4.6 "run before admitting to limbo from the
// network"): it verifies the header's Ed25519 signature and, if dir is
// configured, that the author is a known agent. A failing Op is never
// logged beyond debug and never reaches any limbo store (§7 "Counterfeit
// drops are silent").
func CounterfeitCheck(h chain.Header, dir *agentdir.Directory) bool {
	if dir != nil && !dir.AuthorKeyIsValid(h.Author) {
		return false
	}
	pub, ok := h.AuthorPublicKey()
	if !ok {
		return false
	}
	return h.VerifySignature(pub)
}

// Checker holds every collaborator Validate needs: the size limits
// structural checks enforce, the local-only and network-permitted cascade
// views, and the meta-vault indexes the dependency checks consult directly.
type Checker struct {
	Limits config.Limits
	Meta   *store.MetaVault
	// Local is a cascade built with no network handle: "holding" a
	// dependency means it is resolvable from already-integrated or
	// in-flight local state, never by reaching out to the network.
	Local *cascade.Cascade
	// Full is a cascade that may fall back to the network, used only for
	// the specific checks the spec marks "network-permitted".
	Full *cascade.Cascade
	// Log receives check_chain_rollback's fork notice. Nil is fine; the
	// check still runs, it just has nowhere to report to.
	Log log.Logger
}

// Validate runs every applicable structural and dependency check for o and
// returns the single Result that determines its next limbo transition.
// Validate never itself runs the cryptographic gate: by the time an Op
// reaches validation_limbo it has already passed CounterfeitCheck (§4.6).
func (c *Checker) Validate(ctx context.Context, o op.Op) Result {
	h := o.Header

	if res, ok := c.checkPrevHeader(ctx, h); !ok {
		return res
	}
	c.checkChainRollback(h)
	if h.Kind == chain.HeaderDna && h.Seq != 0 {
		return rejected("dna header must be at sequence 0, got %d", h.Seq)
	}

	if h.Kind.CarriesEntry() && o.Entry != nil {
		if res, ok := c.checkEntry(h, *o.Entry); !ok {
			return res
		}
	}
	if h.Kind == chain.HeaderCreateLink && len(h.Tag) > c.Limits.MaxTagBytes {
		return rejected("link tag exceeds max size %d", c.Limits.MaxTagBytes)
	}
	if h.Kind == chain.HeaderUpdate {
		if res, ok := c.checkUpdateReference(ctx, h); !ok {
			return res
		}
	}

	if res, ok := c.checkAndHoldDeps(ctx, o); !ok {
		return res
	}

	if o.Kind == op.RegisterAgentActivity {
		return Result{Outcome: SkipAppValidation}
	}
	return accepted()
}

// checkPrevHeader implements check_prev_header/check_prev_timestamp/
// check_prev_seq: root headers carry no Prev; every other header's Prev must
// resolve (via the network-permitted cascade — an unresolvable Prev is
// itself an awaited dependency, not a rejection) and satisfy monotonic
// timestamp/seq. Fork detection is checkChainRollback, which the caller
// (Validate) runs once this check passes: a same-(author,seq) header with a
// different hash is recorded at debug but does not block validation.
func (c *Checker) checkPrevHeader(ctx context.Context, h chain.Header) (Result, bool) {
	if h.Kind == chain.HeaderDna {
		if !h.Prev.IsEmpty() {
			return rejected("dna header must not carry a prev hash"), false
		}
		return Result{}, true
	}
	if h.Prev.IsEmpty() {
		return rejected("non-root header missing prev hash"), false
	}
	prev, ok := c.Full.RetrieveHeader(ctx, h.Prev)
	if !ok {
		return awaitingDep(h.Prev), false
	}
	if h.Timestamp.Before(prev.Timestamp) {
		return rejected("header timestamp precedes previous header"), false
	}
	wantSeq, err := safemath.Add64(uint64(prev.Seq), 1)
	if err != nil || uint64(h.Seq) != wantSeq {
		return rejected("header sequence %d does not follow previous sequence %d", h.Seq, prev.Seq), false
	}
	return Result{}, true
}

// checkChainRollback implements check_chain_rollback: an author publishing
// two distinct headers at the same sequence number has forked their chain.
// This is recorded at debug, not rejected — the spec's eventual/CRDT-like
// consistency model has no fork-resolution protocol, only detection.
func (c *Checker) checkChainRollback(h chain.Header) {
	for _, a := range c.Meta.AgentActivity(h.Author, h.Seq, h.Seq) {
		if a.HeaderHash != h.Hash() && c.Log != nil {
			c.Log.Debug("detected chain fork",
				"author", h.Author, "seq", h.Seq, "known", a.HeaderHash, "incoming", h.Hash())
		}
	}
}

// checkEntry implements check_entry_hash/check_entry_size/check_not_private/
// check_entry_type.
func (c *Checker) checkEntry(h chain.Header, e chain.Entry) (Result, bool) {
	if e.Hash() != h.EntryHash {
		return rejected("entry hash does not match header"), false
	}
	if len(e.Payload) > c.Limits.MaxEntryBytes {
		return rejected("entry size exceeds max %d bytes", c.Limits.MaxEntryBytes), false
	}
	if e.Visibility == chain.Private {
		return rejected("private entry must not be carried by a publicly-gossiped op"), false
	}
	if h.EntryType != "" && e.EntryType != "" && h.EntryType != e.EntryType {
		return rejected("entry type %q does not match header entry type %q", e.EntryType, h.EntryType), false
	}
	return Result{}, true
}

// checkUpdateReference implements check_update_reference: an Update header
// must target an entry of the same type family as the element it updates.
// Resolving the original is itself network-permitted; if it cannot be
// resolved at all, that is a missing dependency, not a rejection (the
// caller's check_and_hold_* for RegisterUpdatedElement catches this same
// hash too; this check fires first in sys-validation order).
func (c *Checker) checkUpdateReference(ctx context.Context, h chain.Header) (Result, bool) {
	original, ok := c.Full.RetrieveHeader(ctx, h.OriginalHeaderHash)
	if !ok {
		return awaitingDep(h.OriginalHeaderHash), false
	}
	if original.EntryType != "" && h.EntryType != "" && original.EntryType != h.EntryType {
		return rejected("update entry type %q does not match original entry type %q", h.EntryType, original.EntryType), false
	}
	return Result{}, true
}

// checkAndHoldDeps implements the per-variant check_and_hold_* dependency
// checks (§4.6).
func (c *Checker) checkAndHoldDeps(ctx context.Context, o op.Op) (Result, bool) {
	h := o.Header
	switch o.Kind {
	case op.StoreElement, op.StoreEntry:
		return Result{}, true

	case op.RegisterAgentActivity:
		if h.Seq == 0 {
			return Result{}, true
		}
		if _, held := c.Meta.GetActivity(h.Prev); !held {
			return awaitingDep(h.Prev), false
		}
		return Result{}, true

	case op.RegisterUpdatedContent, op.RegisterUpdatedElement:
		if _, ok := c.Local.RetrieveElement(ctx, h.OriginalHeaderHash); !ok {
			return awaitingDep(h.OriginalHeaderHash), false
		}
		return Result{}, true

	case op.RegisterDeletedBy:
		if _, ok := c.Local.RetrieveElement(ctx, h.OriginalHeaderHash); !ok {
			return awaitingDep(h.OriginalHeaderHash), false
		}
		return Result{}, true

	case op.RegisterDeletedEntryHeader:
		if _, ok := c.Local.RetrieveEntry(ctx, h.OriginalEntryHash); !ok {
			return awaitingDep(h.OriginalEntryHash), false
		}
		return Result{}, true

	case op.RegisterAddLink:
		if _, ok := c.Local.RetrieveEntry(ctx, h.BaseHash); !ok {
			return awaitingDep(h.BaseHash), false
		}
		if _, ok := c.Full.RetrieveEntry(ctx, h.TargetHash); !ok {
			return missingDhtDep(), false
		}
		return Result{}, true

	case op.RegisterRemoveLink:
		if _, ok := c.Meta.GetLink(h.CreateLinkHash); !ok {
			return awaitingDep(h.CreateLinkHash), false
		}
		return Result{}, true

	default:
		return Result{}, true
	}
}

// Fetcher is the incoming-Op sender collaborator (§4.9): asked to fetch a
// dependency hash discovered missing during validation.
type Fetcher interface {
	SendMissing(ctx context.Context, h hash.Hash)
}

// Workflow drains validation_limbo in (timestamp, op_hash) order, running
// Validate on every entry whose backoff window has elapsed, and transitions
// each to its next stage.
type Workflow struct {
	Checker *Checker

	Limbo       *store.ValidationLimbo
	Integration *store.IntegrationLimbo
	Backoff     config.Backoff
	Fetcher     Fetcher

	Writer          *workflow.Writer
	AppValidation   *workflow.Trigger // fired when an entry becomes SysValidated
	IntegrationDown *workflow.Trigger // fired when an entry is handed straight to integration

	Now func() time.Time
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// Run is one sys-validation iteration: it drains every due entry, handles
// each to completion, and commits once. It reports Complete even when
// entries were skipped by backoff, so the consumer does not spin on them;
// Incomplete is returned only together with a commit error.
func (w *Workflow) Run(ctx context.Context) (workflow.Outcome, error) {
	entries := w.Limbo.List()
	sortEntries(entries)

	limbo := w.Limbo.Open()
	integration := w.Integration.Open()

	now := w.now()
	touched := false
	wantAppValidation := false
	wantIntegrationDown := false
	for _, entry := range entries {
		if entry.NumTries > 0 {
			delay := w.Backoff.Delay(entry.NumTries - 1)
			if now.Sub(entry.LastTry) < delay {
				continue
			}
		}
		appValidation, integrationDown := w.handle(ctx, limbo, integration, entry, now)
		wantAppValidation = wantAppValidation || appValidation
		wantIntegrationDown = wantIntegrationDown || integrationDown
		touched = true
	}

	if !touched {
		return workflow.Complete, nil
	}
	if err := w.Writer.Commit(limbo, integration); err != nil {
		return workflow.Incomplete, err
	}
	// Triggers are only observable after this commit lands (§4.4, §5): a
	// downstream consumer reading validation_limbo/integration_limbo before
	// this point would see pre-commit state.
	if wantAppValidation && w.AppValidation != nil {
		w.AppValidation.Fire()
	}
	if wantIntegrationDown && w.IntegrationDown != nil {
		w.IntegrationDown.Fire()
	}
	return workflow.Complete, nil
}

// handle transitions entry's limbo state and reports whether AppValidation
// or IntegrationDown should fire once this Run's batch commits.
func (w *Workflow) handle(ctx context.Context, limbo *store.ValidationLimboScratch, integration *store.IntegrationLimboScratch, entry store.ValidationLimboEntry, now time.Time) (fireAppValidation, fireIntegrationDown bool) {
	res := w.Checker.Validate(ctx, entry.Op)

	switch res.Outcome {
	case Rejected:
		limbo.Delete(entry.Op.Hash())
		_ = integration.Put(store.IntegrationLimboEntry{
			Op: entry.Op, Status: store.ValidationRejected, Reason: res.RejectReason,
		})
		fireIntegrationDown = true

	case SkipAppValidation:
		limbo.Delete(entry.Op.Hash())
		_ = integration.Put(store.IntegrationLimboEntry{Op: entry.Op, Status: store.ValidationValid})
		fireIntegrationDown = true

	case Accepted:
		entry.Status = store.StatusSysValidated
		_ = limbo.Put(entry)
		fireAppValidation = true

	case MissingDhtDep:
		entry.Status = store.StatusPending
		entry.NumTries++
		entry.LastTry = now
		_ = limbo.Put(entry)

	case AwaitingOpDep:
		entry.Status = store.StatusAwaitingSysDeps
		entry.AwaitingHashes = res.AwaitingHashes
		entry.NumTries++
		entry.LastTry = now
		_ = limbo.Put(entry)
		if w.Fetcher != nil {
			for _, h := range res.AwaitingHashes {
				w.Fetcher.SendMissing(ctx, h)
			}
		}
	}
	return fireAppValidation, fireIntegrationDown
}

func sortEntries(entries []store.ValidationLimboEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entryLess(entries[j], entries[j-1]); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

func entryLess(a, b store.ValidationLimboEntry) bool {
	ta, tb := a.Op.Header.Timestamp, b.Op.Header.Timestamp
	if !ta.Equal(tb) {
		return ta.Before(tb)
	}
	return a.Op.Hash().Compare(b.Op.Hash()) < 0
}
