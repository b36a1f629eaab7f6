// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package incomingopsender implements the incoming-Op sender (§4.9): it
// admits Ops arriving on the network's inbound stream into validation_limbo
// after the counterfeit gate, and it services SendMissing requests raised by
// sys/app-validation when a dependency hash is not held locally.
package incomingopsender

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/log"

	"github.com/luxfi/dht/agentdir"
	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/hash"
	"github.com/luxfi/dht/network"
	"github.com/luxfi/dht/op"
	"github.com/luxfi/dht/store"
	"github.com/luxfi/dht/workflow"
	"github.com/luxfi/dht/workflow/sysvalidation"
)

// coalesceWindow bounds how long a duplicate SendMissing request for the
// same hash is suppressed (§4.9 "Duplicate requests... within a short
// window are coalesced"). Inbound Ops do not use it; HandleReceived skips
// an Op already in validation_limbo instead.
const coalesceWindow = 10 * time.Second

// Sender is the incoming-Op sender task handle.
type Sender struct {
	Net network.Network
	Dir *agentdir.Directory

	Limbo      *store.ValidationLimbo
	Pending    *store.ElementStore
	Entries    *store.EntryCache
	SysTrigger *workflow.Trigger
	Writer     *workflow.Writer

	Log log.Logger

	mu       sync.Mutex
	inflight map[hash.Hash]time.Time

	// Now is overridable for deterministic tests.
	Now func() time.Time
}

var _ sysvalidation.Fetcher = (*Sender)(nil)

func (s *Sender) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Sender) admit(h hash.Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight == nil {
		s.inflight = make(map[hash.Hash]time.Time)
	}
	now := s.now()
	if last, ok := s.inflight[h]; ok && now.Sub(last) < coalesceWindow {
		return false
	}
	s.inflight[h] = now
	return true
}

// SendMissing enqueues an async fetch for a dependency hash discovered
// missing during validation (§4.9). It is safe to call repeatedly for the
// same hash; duplicate requests within coalesceWindow are dropped.
func (s *Sender) SendMissing(ctx context.Context, h hash.Hash) {
	if !s.admit(h) {
		return
	}
	go s.Fetch(context.Background(), h)
}

// Fetch performs the actual network round-trip for a missing hash,
// synchronously. SendMissing calls this in a goroutine; tests call it
// directly for determinism.
func (s *Sender) Fetch(ctx context.Context, h hash.Hash) {
	switch h.Kind {
	case hash.KindHeader:
		s.fetchHeader(ctx, h)
	case hash.KindEntry:
		s.fetchEntry(ctx, h)
	default:
		// Op hashes and agent-key hashes are not independently fetchable;
		// the dependency resolves only once its owning header/entry
		// arrives through one of the two paths above.
	}
}

func (s *Sender) fetchHeader(ctx context.Context, h hash.Hash) {
	if s.Net == nil {
		return
	}
	el, ok, err := s.Net.GetElement(ctx, h, network.GetOpts{Timeout: 10 * time.Second})
	if err != nil || !ok {
		return
	}
	s.admitElement(el)
}

func (s *Sender) fetchEntry(ctx context.Context, h hash.Hash) {
	if s.Net == nil {
		return
	}
	entry, ok, err := s.Net.GetEntry(ctx, h, network.GetOpts{Timeout: 10 * time.Second})
	if err != nil || !ok {
		return
	}
	if s.Entries == nil {
		return
	}
	entries := s.Entries.Open()
	if err := entries.Put(h, entry); err != nil {
		return
	}
	if err := s.Writer.Commit(entries); err != nil {
		s.logError("commit fetched entry", err)
		return
	}
	s.fireSysValidation()
}

// admitElement runs the counterfeit gate on a freshly fetched/received
// Element, caches it, decomposes it, and inserts every resulting Op into
// validation_limbo as Pending — the fetched dependency itself re-enters the
// normal pipeline so it is validated and eventually integrated, which is
// what later dependency checks (e.g. RegisterAgentActivity's prev-activity
// check) actually consult.
func (s *Sender) admitElement(el chain.Element) {
	if !sysvalidation.CounterfeitCheck(el.Header, s.Dir) {
		if s.Log != nil {
			s.Log.Debug("dropping counterfeit element", "header", el.Header.Hash())
		}
		return
	}

	limbo := s.Limbo.Open()

	var pending *store.ElementScratch
	if s.Pending != nil {
		pending = s.Pending.Open()
		_ = pending.Put(el)
	}

	for _, o := range op.FromElement(el) {
		if limbo.Has(o.Hash()) {
			continue
		}
		_ = limbo.Put(store.ValidationLimboEntry{Op: o, Status: store.StatusPending})
	}

	flushers := []workflow.Flusher{limbo}
	if pending != nil {
		flushers = append(flushers, pending)
	}
	if err := s.Writer.Commit(flushers...); err != nil {
		s.logError("commit admitted element", err)
		return
	}
	s.fireSysValidation()
}

// HandleReceived admits one Op arriving on the network's inbound stream
// (§3 Lifecycles: "the incoming-Op receiver enters validation_limbo with
// status Pending"), after the same counterfeit gate.
func (s *Sender) HandleReceived(r network.ReceivedOp) {
	h := chain.Element{Header: r.Op.Header, Entry: r.Op.Entry}
	if !sysvalidation.CounterfeitCheck(h.Header, s.Dir) {
		if s.Log != nil {
			s.Log.Debug("dropping counterfeit op", "from", r.From, "op", r.Op.Hash())
		}
		return
	}
	if s.Limbo.Has(r.Op.Hash()) {
		return
	}
	limbo := s.Limbo.Open()
	_ = limbo.Put(store.ValidationLimboEntry{Op: r.Op, Status: store.StatusPending})
	if err := s.Writer.Commit(limbo); err != nil {
		s.logError("commit received op", err)
		return
	}
	s.fireSysValidation()
}

// Run ranges over the network's inbound Ops stream until ctx is cancelled,
// admitting each one via HandleReceived.
func (s *Sender) Run(ctx context.Context) {
	if s.Net == nil {
		return
	}
	ops := s.Net.Ops()
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-ops:
			if !ok {
				return
			}
			s.HandleReceived(r)
		}
	}
}

func (s *Sender) fireSysValidation() {
	if s.SysTrigger != nil {
		s.SysTrigger.Fire()
	}
}

func (s *Sender) logError(msg string, err error) {
	if s.Log != nil {
		s.Log.Error(msg, "err", err)
	}
}
