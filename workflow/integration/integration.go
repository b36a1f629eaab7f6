// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package integration implements the integration workflow (§4.8): moving
// decided Ops out of integration_limbo into the durable vault/meta indexes,
// or into the rejected store when validation failed.
package integration

import (
	"context"

	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/op"
	"github.com/luxfi/dht/store"
	"github.com/luxfi/dht/workflow"
)

// Workflow drains integration_limbo and applies each entry's effect. It also
// drains the producer's integration_queue directly: authored Ops bypass
// system/app validation because the chain head was locally validated at
// commit time, but still pass through integration for indexing (§4.5).
type Workflow struct {
	Limbo    *store.IntegrationLimbo
	Queue    *store.IntegrationQueue
	Vault    *store.ElementStore
	Meta     *store.MetaVault
	Rejected *store.ElementStore

	Writer *workflow.Writer
}

// Run is one integration iteration: every currently-queued entry is applied
// and the whole batch commits atomically (§4.8 "All writes commit under the
// workflow's one-shot writer").
func (w *Workflow) Run(ctx context.Context) (workflow.Outcome, error) {
	entries := w.Limbo.List()
	var queued []store.QueueEntry
	if w.Queue != nil {
		queued = w.Queue.List()
	}
	if len(entries) == 0 && len(queued) == 0 {
		return workflow.Complete, nil
	}

	limbo := w.Limbo.Open()
	vault := w.Vault.Open()
	meta := w.Meta.Open()
	rejected := w.Rejected.Open()
	var queue *store.IntegrationQueueScratch
	if w.Queue != nil {
		queue = w.Queue.Open()
	}

	for _, entry := range entries {
		w.apply(vault, meta, rejected, entry)
		limbo.Delete(entry.Op.Hash())
	}
	for _, qe := range queued {
		w.integrate(vault, meta, qe.Op)
		queue.Delete(qe.OpHash)
	}

	flushers := []workflow.Flusher{limbo, vault, meta, rejected}
	if queue != nil {
		flushers = append(flushers, queue)
	}
	if err := w.Writer.Commit(flushers...); err != nil {
		return workflow.Incomplete, err
	}
	return workflow.Complete, nil
}

func (w *Workflow) apply(vault *store.ElementScratch, meta *store.MetaVaultScratch, rejected *store.ElementScratch, entry store.IntegrationLimboEntry) {
	switch entry.Status {
	case store.ValidationValid:
		w.integrate(vault, meta, entry.Op)
	case store.ValidationRejected:
		_ = rejected.Put(chain.Element{Header: entry.Op.Header, Entry: entry.Op.Entry})
	case store.ValidationAbandoned:
		// Abandoned Ops are simply dropped from the pipeline: no index is
		// updated and nothing is retried further.
	}
}

// integrate applies one Valid Op's effect to the vault/meta indexes. Every
// effect is a straight key overwrite keyed by op/header hash, so
// re-integrating the same Op twice is a no-op (§3 "Invariants"). The
// RegisterRemoveLink read-then-write on meta sees its own prior writes
// within this same Run, since meta is one Scratch shared by the whole batch.
func (w *Workflow) integrate(vault *store.ElementScratch, meta *store.MetaVaultScratch, o op.Op) {
	h := o.Header

	switch o.Kind {
	case op.StoreElement:
		_ = vault.Put(chain.Element{Header: h, Entry: o.Entry})

	case op.StoreEntry:
		_ = vault.Put(chain.Element{Header: h, Entry: o.Entry})

	case op.RegisterAgentActivity:
		_ = meta.PutActivity(store.ActivityEntry{Author: h.Author, Seq: h.Seq, HeaderHash: h.Hash()})

	case op.RegisterUpdatedContent:
		_ = meta.RecordUpdate(h.OriginalEntryHash, h.Hash())

	case op.RegisterUpdatedElement:
		_ = meta.RecordUpdate(h.OriginalHeaderHash, h.Hash())

	case op.RegisterDeletedBy:
		_ = meta.RecordDelete(h.OriginalHeaderHash, h.Hash())

	case op.RegisterDeletedEntryHeader:
		_ = meta.RecordDelete(h.OriginalEntryHash, h.Hash())

	case op.RegisterAddLink:
		_ = meta.PutLink(h.Hash(), store.Link{
			BaseHash: h.BaseHash, TargetHash: h.TargetHash, Tag: h.Tag, LinkType: h.LinkType,
			CreateLinkHash: h.Hash(), Removed: false,
		})

	case op.RegisterRemoveLink:
		link, ok := meta.GetLink(h.CreateLinkHash)
		if !ok {
			link = store.Link{CreateLinkHash: h.CreateLinkHash}
		}
		link.Removed = true
		_ = meta.PutLink(h.CreateLinkHash, link)
	}
}
