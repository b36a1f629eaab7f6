// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package network specifies the p2p cell handle the cascade and incoming-Op
// sender use as a collaborator, grounded on the teacher's getter.Getter
// (Get/GetAncestors/Put/PushQuery/PullQuery) and sender.Sender shape, but
// renamed onto this pipeline's own fetch/publish vocabulary (§6 "Network
// collaborator").
package network

import (
	"context"
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/hash"
	"github.com/luxfi/dht/op"
)

// GetOpts bounds a single network fetch: Timeout is the per-call deadline
// (§5 "Timeouts" — on expiry the read reports not-found, never an error).
type GetOpts struct {
	Timeout time.Duration
}

// ReceivedOp is one inbound Op arriving off the network's Ops stream, paired
// with the peer that sent it so the incoming-Op sender can attribute
// counterfeit drops.
type ReceivedOp struct {
	From ids.NodeID
	Op   op.Op
}

// Network is the p2p cell handle every cascade and the incoming-Op sender is
// built against. A request missing locally fans out to exactly one call on
// this interface (§4.3).
type Network interface {
	// GetElement fetches the Element addressed by headerHash from the
	// network, or reports not found on timeout/miss.
	GetElement(ctx context.Context, headerHash hash.Hash, opts GetOpts) (chain.Element, bool, error)
	// GetEntry fetches the Entry addressed by entryHash.
	GetEntry(ctx context.Context, entryHash hash.Hash, opts GetOpts) (chain.Entry, bool, error)
	// GetLinks fetches links based at base, optionally filtered by tag
	// prefix.
	GetLinks(ctx context.Context, base hash.Hash, tagPrefix []byte, opts GetOpts) ([]chain.Header, error)
	// GetAgentActivity fetches author's published headers with Seq in
	// [minSeq, maxSeq].
	GetAgentActivity(ctx context.Context, author ids.NodeID, minSeq, maxSeq uint32, opts GetOpts) ([]chain.Header, error)

	// Publish gossips op to the DHT neighborhood its BasisHash routes to.
	Publish(ctx context.Context, o op.Op) error
	// Send delivers op directly to a specific peer, used by the
	// incoming-Op sender to request a known-missing dependency.
	Send(ctx context.Context, to ids.NodeID, o op.Op) error

	// Ops returns the channel of Ops arriving from peers, consumed by the
	// incoming-Op sender (§4.9).
	Ops() <-chan ReceivedOp
}
