// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package workflow implements the runtime every pipeline stage shares: a
// coalesced Trigger, a queue Consumer that reruns a workflow Func until it
// reports completion, and a one-shot Writer that commits every store a
// workflow touched inside a single database transaction (§4.4).
package workflow

import (
	"context"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/log"
)

// Outcome is what a single workflow iteration returns: whether there is
// more work to do right now.
type Outcome byte

const (
	// Complete means the workflow drained all currently-available work.
	Complete Outcome = iota
	// Incomplete means more work is ready; the consumer loops immediately
	// without waiting on the next trigger.
	Incomplete
)

// Func is one workflow iteration: open a snapshot, build a scratch
// workspace, do the work, hand flushers to a Writer, and report Outcome.
type Func func(ctx context.Context) (Outcome, error)

// Trigger is a coalesced edge signal: repeated Fire calls between
// consumptions collapse into a single wakeup, matching §4.4's "wakes the
// consumer at most once per quiescent period".
type Trigger struct {
	ch chan struct{}
}

// NewTrigger returns a ready Trigger.
func NewTrigger() *Trigger {
	return &Trigger{ch: make(chan struct{}, 1)}
}

// Fire wakes the consumer. Redundant fires before the consumer drains the
// first one are no-ops.
func (t *Trigger) Fire() {
	select {
	case t.ch <- struct{}{}:
	default:
	}
}

// C returns the channel a Consumer selects on.
func (t *Trigger) C() <-chan struct{} {
	return t.ch
}

// Flusher is anything a workflow's scratch stores implement: commit
// buffered writes into a shared batch.
type Flusher interface {
	FlushTo(w database.Batch) error
}

// Writer is the single one-shot writer serializing every workflow's commit
// in an environment (§5 "Commits across workflows are serialized per
// environment by the single writer").
type Writer struct {
	mu sync.Mutex
	db database.Database
}

// NewWriter returns a Writer over db.
func NewWriter(db database.Database) *Writer {
	return &Writer{db: db}
}

// Commit flushes every store in flushers into one batch and writes it
// atomically. Either the whole transaction lands or none of it (§7
// "Infrastructural errors never commit partial state").
func (w *Writer) Commit(flushers ...Flusher) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	batch := w.db.NewBatch()
	for _, f := range flushers {
		if err := f.FlushTo(batch); err != nil {
			return err
		}
	}
	return batch.Write()
}

// Consumer repeatedly runs fn: once per Trigger fire, then again immediately
// for as long as fn reports Incomplete (§4.4 "A queue consumer repeats its
// workflow until it returns Complete").
type Consumer struct {
	name    string
	trigger *Trigger
	fn      Func
	log     log.Logger
}

// NewConsumer returns a Consumer named name, driven by trigger, running fn.
func NewConsumer(name string, trigger *Trigger, fn Func, logger log.Logger) *Consumer {
	return &Consumer{name: name, trigger: trigger, fn: fn, log: logger}
}

// Run blocks, draining triggers until ctx is cancelled. Each call to fn opens
// its own fresh scratch workspace (§5 "thread-local and not shared"), so a
// cancelled iteration simply drops that scratch uncommitted; Run itself only
// stops looping once ctx.Done fires.
func (c *Consumer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.trigger.C():
		}

		for {
			outcome, err := c.fn(ctx)
			if err != nil {
				if c.log != nil {
					c.log.Error("workflow iteration failed", "workflow", c.name, "err", err)
				}
				break
			}
			if outcome == Complete {
				break
			}
			if ctx.Err() != nil {
				return
			}
		}
	}
}
