// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cascade implements the unified read façade (§4.3) over a
// workflow's borrowed store handles plus an optional network collaborator.
// A cascade owns no stores — per §9's "cyclic store/cascade references"
// design note, it is always constructed per-workflow from store handles the
// caller already holds.
package cascade

import (
	"context"
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/hash"
	"github.com/luxfi/dht/network"
	"github.com/luxfi/dht/store"
)

// defaultNetworkTimeout bounds a cascade's single network fan-out call when
// the caller does not specify one (§5 "Timeouts").
const defaultNetworkTimeout = 5 * time.Second

// Sources is the fixed-priority provider chain a Cascade consults: authored
// → integrated vault → pending → rejected → cache → network (§4.3 "Lookup
// order"). Any entry may be nil; a nil store/Network is simply skipped.
type Sources struct {
	Authored *store.ElementStore
	Vault    *store.ElementStore
	Meta     *store.MetaVault
	Pending  *store.ElementStore
	Rejected *store.ElementStore
	Cache    *store.ElementStore
	Entries  *store.EntryCache
	Net      network.Network
}

// Cascade is the read façade built from Sources for the duration of one
// workflow invocation.
type Cascade struct {
	src Sources
}

// New returns a Cascade over src.
func New(src Sources) *Cascade {
	return &Cascade{src: src}
}

// RetrieveElement resolves headerHash to its Element, trying each source in
// priority order and stopping at the first hit. A network hit is written to
// cache before returning (§4.3).
func (c *Cascade) RetrieveElement(ctx context.Context, headerHash hash.Hash) (chain.Element, bool) {
	for _, es := range []*store.ElementStore{c.src.Authored, c.src.Vault, c.src.Pending, c.src.Rejected, c.src.Cache} {
		if es == nil {
			continue
		}
		if el, ok := es.Get(headerHash); ok {
			return el, true
		}
	}

	if c.src.Net == nil {
		return chain.Element{}, false
	}
	el, ok, err := c.src.Net.GetElement(ctx, headerHash, network.GetOpts{Timeout: defaultNetworkTimeout})
	if err != nil || !ok {
		return chain.Element{}, false
	}
	if c.src.Cache != nil {
		cacheView := c.src.Cache.Open()
		if err := cacheView.Put(el); err == nil {
			_ = cacheView.Commit()
		}
	}
	return el, true
}

// RetrieveHeader resolves headerHash to its Header alone.
func (c *Cascade) RetrieveHeader(ctx context.Context, headerHash hash.Hash) (chain.Header, bool) {
	el, ok := c.RetrieveElement(ctx, headerHash)
	if !ok {
		return chain.Header{}, false
	}
	return el.Header, true
}

// RetrieveEntry resolves entryHash to its Entry, scanning local element
// stores by entry hash before falling back to the network.
func (c *Cascade) RetrieveEntry(ctx context.Context, entryHash hash.Hash) (chain.Entry, bool) {
	for _, es := range []*store.ElementStore{c.src.Authored, c.src.Vault, c.src.Pending, c.src.Rejected, c.src.Cache} {
		if es == nil {
			continue
		}
		if el, ok := es.GetByEntryHash(entryHash); ok && el.Entry != nil {
			return *el.Entry, true
		}
	}
	if c.src.Entries != nil {
		if entry, ok := c.src.Entries.Get(entryHash); ok {
			return entry, true
		}
	}

	if c.src.Net == nil {
		return chain.Entry{}, false
	}
	entry, ok, err := c.src.Net.GetEntry(ctx, entryHash, network.GetOpts{Timeout: defaultNetworkTimeout})
	if err != nil || !ok {
		return chain.Entry{}, false
	}
	if c.src.Entries != nil {
		entriesView := c.src.Entries.Open()
		if err := entriesView.Put(entryHash, entry); err == nil {
			_ = entriesView.Commit()
		}
	}
	return entry, true
}

// DhtGetLinks resolves every non-removed link based at base, optionally
// filtered by tagPrefix, from the local meta vault, falling back to the
// network when it is empty and a network handle is configured.
func (c *Cascade) DhtGetLinks(ctx context.Context, base hash.Hash, tagPrefix []byte) []chain.Header {
	var headers []chain.Header
	if c.src.Meta != nil {
		for _, l := range c.src.Meta.LinksByBase(base, tagPrefix) {
			if h, ok := c.RetrieveHeader(ctx, l.CreateLinkHash); ok {
				headers = append(headers, h)
			}
		}
	}
	if len(headers) > 0 || c.src.Net == nil {
		return headers
	}
	remote, err := c.src.Net.GetLinks(ctx, base, tagPrefix, network.GetOpts{Timeout: defaultNetworkTimeout})
	if err != nil {
		return headers
	}
	return remote
}

// DhtGetAgentActivity resolves author's published headers with Seq in
// [minSeq, maxSeq] from the local meta vault, falling back to the network
// when nothing is held locally.
func (c *Cascade) DhtGetAgentActivity(ctx context.Context, author ids.NodeID, minSeq, maxSeq uint32) []chain.Header {
	var headers []chain.Header
	if c.src.Meta != nil {
		for _, a := range c.src.Meta.AgentActivity(author, minSeq, maxSeq) {
			if h, ok := c.RetrieveHeader(ctx, a.HeaderHash); ok {
				headers = append(headers, h)
			}
		}
	}
	if len(headers) > 0 || c.src.Net == nil {
		return headers
	}
	remote, err := c.src.Net.GetAgentActivity(ctx, author, minSeq, maxSeq, network.GetOpts{Timeout: defaultNetworkTimeout})
	if err != nil {
		return headers
	}
	return remote
}
