// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command dhtcelld wires one cell's stores, cascade, and workflow consumers
// together behind a loopback Admin socket. It is a standalone demonstration
// harness, not a production conductor: the CLI/config collaborator that
// would supply listening ports, a real on-disk database path, and a
// keystore handle is out of scope (spec §6), so this binary always runs
// against an in-process database and never opens a network listener.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/dht/cell"
	"github.com/luxfi/dht/internal/memdb"
	"github.com/luxfi/dht/metrics"
	"github.com/luxfi/dht/rpc"
)

func main() {
	agentFlag := flag.String("agent", "", "agent NodeID this cell runs as, in NodeID string form (random if empty)")
	flag.Parse()

	author := ids.GenerateTestNodeID()
	if *agentFlag != "" {
		parsed, err := ids.NodeIDFromString(*agentFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dhtcelld: invalid -agent: %v\n", err)
			os.Exit(1)
		}
		author = parsed
	}

	logger := log.NewNoOpLogger()
	reg := metrics.NewRegistry("dhtcelld", prometheus.NewRegistry())

	c := cell.New(cell.Config{
		Author:  author,
		DB:      memdb.New(),
		Log:     logger,
		Metrics: reg,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("dhtcelld: shutting down")
		cancel()
	}()

	admin, loopbackPeer := rpc.NewLoopbackPair(rpc.AdminSurface, rpc.AdminSurface)
	go func() {
		if err := rpc.Serve(ctx, admin, c.AdminAPI()); err != nil && ctx.Err() == nil {
			logger.Error("dhtcelld: admin socket closed", "err", err)
		}
	}()
	_ = loopbackPeer // retained so the pair stays open for the lifetime of admin

	c.Run(ctx)

	// Give in-flight consumer iterations a moment to observe cancellation
	// before the process exits.
	<-time.After(10 * time.Millisecond)
}
