// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cell wires one DNA cell's stores, cascades, and workflow
// consumers into a single runnable unit, the way a production conductor
// would instantiate one cell per running app. It is the integration point
// cmd/dhtcelld drives; nothing in the validation pipeline itself depends on
// it.
package cell

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/dht/agentdir"
	"github.com/luxfi/dht/cascade"
	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/config"
	"github.com/luxfi/dht/metrics"
	"github.com/luxfi/dht/network"
	"github.com/luxfi/dht/ribosome"
	"github.com/luxfi/dht/store"
	"github.com/luxfi/dht/workflow"
	"github.com/luxfi/dht/workflow/appvalidation"
	"github.com/luxfi/dht/workflow/incomingopsender"
	"github.com/luxfi/dht/workflow/integration"
	"github.com/luxfi/dht/workflow/produce"
	"github.com/luxfi/dht/workflow/sysvalidation"
)

// Config is everything New needs to stand up a cell. Only Author and DB are
// required; every other field has a documented default so a minimal demo
// cell (cmd/dhtcelld) can be built with almost none of them set.
type Config struct {
	Author ids.NodeID
	DB     database.Database

	Log     log.Logger
	Metrics *metrics.Registry

	// Net is the p2p collaborator (§6). Nil means this cell never reaches
	// the network: cascade reads stop at the local stores and the
	// incoming-Op sender never starts its inbound-stream consumer.
	Net network.Network
	// Ribosome is the app-validation collaborator (§6, §4.7). Nil falls
	// back to AcceptAll, since app-defined validation logic is explicitly
	// out of scope (spec §1) and a demo cell has no guest wasm to invoke.
	Ribosome ribosome.Ribosome
	// Dir is the optional agent-key membrane (§4.12). Nil means
	// permissionless: every well-formed signature is accepted.
	Dir *agentdir.Directory

	Limits      config.Limits
	Backoff     config.Backoff
	AppDeadline time.Duration
}

func (c Config) limits() config.Limits {
	if c.Limits == (config.Limits{}) {
		return config.DefaultLimits()
	}
	return c.Limits
}

func (c Config) backoff() config.Backoff {
	if c.Backoff == (config.Backoff{}) {
		return config.DefaultBackoff()
	}
	return c.Backoff
}

// Cell owns one DNA's complete store set and the consumer goroutines that
// drive Ops through produce -> sys-validation -> app-validation ->
// integration.
type Cell struct {
	author ids.NodeID
	log    log.Logger

	vault    *store.ElementStore
	meta     *store.MetaVault
	authored *store.ElementStore
	pending  *store.ElementStore
	rejected *store.ElementStore
	cacheEl  *store.ElementStore
	entries  *store.EntryCache

	valLimbo *store.ValidationLimbo
	intLimbo *store.IntegrationLimbo
	queue    *store.IntegrationQueue
	ops      *store.AuthoredDhtOps
	cursor   *store.ProduceCursor

	writer  *workflow.Writer
	metrics *metrics.Registry

	valLimboDepth metrics.Gauge
	intLimboDepth metrics.Gauge

	produceTrigger  *workflow.Trigger
	sysTrigger      *workflow.Trigger
	appTrigger      *workflow.Trigger
	integrateTriger *workflow.Trigger

	produceC  *workflow.Consumer
	sysC      *workflow.Consumer
	appC      *workflow.Consumer
	integateC *workflow.Consumer

	sender *incomingopsender.Sender

	localCascade *cascade.Cascade
	fullCascade  *cascade.Cascade
}

// acceptAll is the Ribosome used when Config.Ribosome is nil: every element
// is Valid outright. It exists only so a cell can be exercised end-to-end
// without a guest wasm runtime; a real deployment always supplies its own.
type acceptAll struct{}

func (acceptAll) ValidateElement(context.Context, chain.Element, *cascade.Cascade) (ribosome.Verdict, error) {
	return ribosome.Verdict{Valid: true}, nil
}

// New builds a Cell from cfg, wiring every store, cascade, and workflow
// consumer but starting none of them; call Run to start the consumers.
func New(cfg Config) *Cell {
	db := cfg.DB
	logger := cfg.Log
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	reg := cfg.Metrics
	if reg == nil {
		reg = metrics.NewRegistry("dht", prometheus.NewRegistry())
	}

	c := &Cell{
		author: cfg.Author,
		log:    logger,

		vault:    store.NewElementStore(db, store.PrefixVault),
		meta:     store.NewMetaVault(db),
		authored: store.NewElementStore(db, store.PrefixAuthored),
		pending:  store.NewElementStore(db, store.PrefixPending),
		rejected: store.NewElementStore(db, store.PrefixRejected),
		cacheEl:  store.NewElementStore(db, store.PrefixCache),
		entries:  store.NewEntryCache(db),

		valLimbo: store.NewValidationLimbo(db),
		intLimbo: store.NewIntegrationLimbo(db),
		queue:    store.NewIntegrationQueue(db),
		ops:      store.NewAuthoredDhtOps(db),
		cursor:   store.NewProduceCursor(db),

		writer:  workflow.NewWriter(db),
		metrics: reg,

		produceTrigger:  workflow.NewTrigger(),
		sysTrigger:      workflow.NewTrigger(),
		appTrigger:      workflow.NewTrigger(),
		integrateTriger: workflow.NewTrigger(),
	}

	c.localCascade = cascade.New(cascade.Sources{
		Authored: c.authored, Vault: c.vault, Meta: c.meta,
		Pending: c.pending, Rejected: c.rejected, Cache: c.cacheEl, Entries: c.entries,
	})
	c.fullCascade = cascade.New(cascade.Sources{
		Authored: c.authored, Vault: c.vault, Meta: c.meta,
		Pending: c.pending, Rejected: c.rejected, Cache: c.cacheEl, Entries: c.entries,
		Net: cfg.Net,
	})

	ribo := cfg.Ribosome
	if ribo == nil {
		ribo = acceptAll{}
	}

	c.sender = &incomingopsender.Sender{
		Net: cfg.Net, Dir: cfg.Dir,
		Limbo: c.valLimbo, Pending: c.pending, Entries: c.entries,
		SysTrigger: c.sysTrigger, Writer: c.writer, Log: logger,
	}

	produceWF := &produce.Workflow{
		Author: cfg.Author, Authored: c.authored, Cursor: c.cursor,
		Queue: c.queue, Ops: c.ops, Writer: c.writer, Downstream: c.integrateTriger,
	}
	sysWF := &sysvalidation.Workflow{
		Checker: &sysvalidation.Checker{
			Limits: cfg.limits(), Meta: c.meta, Local: c.localCascade, Full: c.fullCascade, Log: logger,
		},
		Limbo: c.valLimbo, Integration: c.intLimbo, Backoff: cfg.backoff(), Fetcher: c.sender,
		Writer: c.writer, AppValidation: c.appTrigger, IntegrationDown: c.integrateTriger,
	}
	appWF := &appvalidation.Workflow{
		Ribosome: ribo, View: c.fullCascade,
		Limbo: c.valLimbo, Integration: c.intLimbo, Backoff: cfg.backoff(), Fetcher: c.sender,
		Writer: c.writer, IntegrationDown: c.integrateTriger, Deadline: cfg.AppDeadline,
	}
	integrateWF := &integration.Workflow{
		Limbo: c.intLimbo, Queue: c.queue, Vault: c.vault, Meta: c.meta, Rejected: c.rejected,
		Writer: c.writer,
	}

	c.produceC = workflow.NewConsumer("produce", c.produceTrigger, produceWF.Run, logger)
	c.sysC = workflow.NewConsumer("sysvalidation", c.sysTrigger, sysWF.Run, logger)
	c.appC = workflow.NewConsumer("appvalidation", c.appTrigger, appWF.Run, logger)
	c.integateC = workflow.NewConsumer("integration", c.integrateTriger, integrateWF.Run, logger)

	c.valLimboDepth = reg.NewGauge("validation_limbo_depth", "Ops currently parked in validation_limbo.")
	c.intLimboDepth = reg.NewGauge("integration_limbo_depth", "Ops currently parked in integration_limbo.")

	return c
}

// Cascade returns the cell's network-permitted read façade, for callers
// (e.g. the Admin API) that need to resolve elements/links/activity.
func (c *Cell) Cascade() *cascade.Cascade { return c.fullCascade }

// AuthorElement buffers element into the authored store and wakes the
// producer, the entry point a local commit to this agent's source chain
// uses to push a new chain head into the pipeline (§4.5).
func (c *Cell) AuthorElement(element chain.Element) error {
	authored := c.authored.Open()
	if err := authored.Put(element); err != nil {
		return err
	}
	if err := c.writer.Commit(authored); err != nil {
		return err
	}
	c.produceTrigger.Fire()
	return nil
}

// metricsSampleInterval bounds how often Run refreshes the limbo-depth
// gauges (§4.11): frequent enough to be useful to a health check, cheap
// enough not to matter against workflow commit traffic.
const metricsSampleInterval = 2 * time.Second

// Run starts every consumer goroutine and the incoming-Op sender's inbound
// stream reader, then blocks until ctx is cancelled.
func (c *Cell) Run(ctx context.Context) {
	go c.produceC.Run(ctx)
	go c.sysC.Run(ctx)
	go c.appC.Run(ctx)
	go c.integateC.Run(ctx)
	go c.sender.Run(ctx)
	go c.sampleMetrics(ctx)

	// Prime the pipeline once at startup in case stores were pre-populated
	// (e.g. fake_genesis-style seeding) before Run was ever called.
	c.produceTrigger.Fire()

	<-ctx.Done()
}

func (c *Cell) sampleMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.valLimboDepth.Set(float64(len(c.valLimbo.List())))
			c.intLimboDepth.Set(float64(len(c.intLimbo.List())))
		}
	}
}
