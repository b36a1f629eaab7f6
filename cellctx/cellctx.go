// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cellctx carries the per-cell execution context (DNA hash, this
// agent's identity, a logger, and a metrics registry) on a context.Context.
// The workflows and stores in this module do not read it; they take their
// logger and stores as struct fields.
package cellctx

import (
	"context"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/dht/hash"
	"github.com/luxfi/dht/metrics"
)

type key struct{}

// Info is the immutable set of values every workflow needs to identify which
// cell it is running for and where to send logs and metrics.
type Info struct {
	// DnaHash identifies the DNA (application definition) this cell runs.
	DnaHash hash.Hash
	// AgentID is this cell's own agent identity.
	AgentID ids.NodeID
	// Log is the logger every workflow/store in this cell writes through.
	Log log.Logger
	// Metrics is this cell's metrics registry.
	Metrics *metrics.Registry
}

// With attaches info to ctx.
func With(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, key{}, info)
}

// From extracts the Info previously attached with With. It panics if ctx
// carries none, mirroring the teacher's MustIDs.
func From(ctx context.Context) Info {
	info, ok := ctx.Value(key{}).(Info)
	if !ok {
		panic("cellctx: context carries no cellctx.Info")
	}
	return info
}

// TryFrom extracts the Info previously attached with With, reporting whether
// one was present.
func TryFrom(ctx context.Context) (Info, bool) {
	info, ok := ctx.Value(key{}).(Info)
	return info, ok
}
