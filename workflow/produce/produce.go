// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package produce implements the produce-dht-ops workflow (§4.5): walking an
// agent's authored source chain in sequence order, decomposing each not-yet
// produced Element into its DhtOps, and queuing them for integration.
package produce

import (
	"context"
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/op"
	"github.com/luxfi/dht/store"
	"github.com/luxfi/dht/workflow"
)

// Now returns the wall-clock timestamp produce stamps on each Op it
// enqueues. It is a var so tests can pin it; production always uses
// time.Now.
var Now = time.Now

// Workflow is the produce-dht-ops pipeline stage. It reads one agent's
// authored elements in Seq order starting at the persisted cursor, computes
// op.FromElement for each, and inserts the results into the integration
// queue and the authored-ops presence set.
type Workflow struct {
	Author     ids.NodeID
	Authored   *store.ElementStore
	Cursor     *store.ProduceCursor
	Queue      *store.IntegrationQueue
	Ops        *store.AuthoredDhtOps
	Writer     *workflow.Writer
	Downstream *workflow.Trigger // fired once per committed batch, wakes integration (authored Ops bypass sys/app validation, §4.5)
}

// Run is one produce iteration: it opens a fresh scratch workspace, loads
// every authored element at or after the cursor in Seq order, decomposes it,
// and commits that workspace alone. A single Now() is drawn per Op (§3 "now()
// drawn once per Op with op-hash disambiguation" — ties within the same call
// are broken by OpHash in IntegrationQueue.List).
func (w *Workflow) Run(ctx context.Context) (workflow.Outcome, error) {
	cursor := w.Cursor.Open()
	pending := w.loadPending(cursor)
	if len(pending) == 0 {
		return workflow.Complete, nil
	}

	queue := w.Queue.Open()
	ops := w.Ops.Open()

	var lastSeq uint32
	for _, el := range pending {
		for _, o := range op.FromElement(el) {
			entry := store.QueueEntry{
				Timestamp: Now(),
				OpHash:    o.Hash(),
				Status:    store.ValidationValid,
				Op:        o,
			}
			if err := queue.Put(entry); err != nil {
				return workflow.Incomplete, err
			}
			ops.Add(o.Hash())
		}
		lastSeq = el.Header.Seq
	}
	cursor.Advance(w.Author, lastSeq)

	if err := w.Writer.Commit(queue, ops, cursor); err != nil {
		return workflow.Incomplete, err
	}
	if w.Downstream != nil {
		w.Downstream.Fire()
	}
	return workflow.Complete, nil
}

func (w *Workflow) loadPending(cursor *store.ProduceCursorScratch) []chain.Element {
	next := cursor.Next(w.Author)
	var out []chain.Element
	for _, h := range w.Authored.List() {
		el, ok := w.Authored.Get(h)
		if !ok || el.Header.Author != w.Author || el.Header.Seq < next {
			continue
		}
		out = append(out, el)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Header.Seq < out[j-1].Header.Seq; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
