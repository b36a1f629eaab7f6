// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package appvalidation implements the application validation workflow
// (§4.7): invoking the app-defined ribosome callback for every SysValidated
// Op and recording its verdict.
package appvalidation

import (
	"context"
	"time"

	"github.com/luxfi/dht/cascade"
	"github.com/luxfi/dht/config"
	"github.com/luxfi/dht/hash"
	"github.com/luxfi/dht/ribosome"
	"github.com/luxfi/dht/store"
	"github.com/luxfi/dht/workflow"
)

// Fetcher is asked to fetch a hash the ribosome reported unresolved, the
// same collaborator sys-validation uses for AwaitingSysDeps (§4.9).
type Fetcher interface {
	SendMissing(ctx context.Context, h hash.Hash)
}

// Workflow drains every SysValidated entry in validation_limbo, builds a
// read-only cascade view for it, and invokes Ribosome.ValidateElement under
// a hard deadline.
type Workflow struct {
	Ribosome ribosome.Ribosome
	View     *cascade.Cascade

	Limbo       *store.ValidationLimbo
	Integration *store.IntegrationLimbo
	Backoff     config.Backoff
	Fetcher     Fetcher

	// Deadline bounds one ValidateElement call; a timeout is treated as
	// UnresolvedDependencies([]) (§4.7).
	Deadline time.Duration

	Writer          *workflow.Writer
	IntegrationDown *workflow.Trigger

	Now func() time.Time
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Workflow) deadline() time.Duration {
	if w.Deadline > 0 {
		return w.Deadline
	}
	return 30 * time.Second
}

// Run is one app-validation iteration.
func (w *Workflow) Run(ctx context.Context) (workflow.Outcome, error) {
	now := w.now()
	var due []store.ValidationLimboEntry
	for _, entry := range w.Limbo.List() {
		if entry.Status != store.StatusSysValidated && entry.Status != store.StatusAwaitingAppDeps {
			continue
		}
		if entry.NumTries > 0 {
			delay := w.Backoff.Delay(entry.NumTries - 1)
			if now.Sub(entry.LastTry) < delay {
				continue
			}
		}
		due = append(due, entry)
	}
	if len(due) == 0 {
		return workflow.Complete, nil
	}

	limbo := w.Limbo.Open()
	integration := w.Integration.Open()

	wantIntegrationDown := false
	for _, entry := range due {
		if w.handle(ctx, limbo, integration, entry, now) {
			wantIntegrationDown = true
		}
	}

	if err := w.Writer.Commit(limbo, integration); err != nil {
		return workflow.Incomplete, err
	}
	// The trigger is only observable once this commit lands (§4.4, §5).
	if wantIntegrationDown && w.IntegrationDown != nil {
		w.IntegrationDown.Fire()
	}
	return workflow.Complete, nil
}

// handle applies entry's verdict to limbo/integration and reports whether
// IntegrationDown should fire once this Run's batch commits.
func (w *Workflow) handle(ctx context.Context, limbo *store.ValidationLimboScratch, integration *store.IntegrationLimboScratch, entry store.ValidationLimboEntry, now time.Time) (fireIntegrationDown bool) {
	el, ok := w.View.RetrieveElement(ctx, entry.Op.Header.Hash())
	if !ok {
		// The op carries its own header/entry; build the element directly
		// rather than depend on a local element store holding it yet.
		el.Header = entry.Op.Header
		el.Entry = entry.Op.Entry
	}

	callCtx, cancel := context.WithTimeout(ctx, w.deadline())
	verdict, err := w.Ribosome.ValidateElement(callCtx, el, w.View)
	cancel()

	if err != nil || callCtx.Err() != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			entry.Status = store.StatusAwaitingAppDeps
			entry.AwaitingHashes = nil
		}
		w.backoff(&entry, now)
		_ = limbo.Put(entry)
		return false
	}

	switch {
	case verdict.Valid:
		limbo.Delete(entry.Op.Hash())
		_ = integration.Put(store.IntegrationLimboEntry{Op: entry.Op, Status: store.ValidationValid})
		return true

	case verdict.IsInvalid():
		limbo.Delete(entry.Op.Hash())
		_ = integration.Put(store.IntegrationLimboEntry{
			Op: entry.Op, Status: store.ValidationRejected, Reason: verdict.InvalidReason,
		})
		return true

	default: // unresolved dependencies
		entry.Status = store.StatusAwaitingAppDeps
		entry.AwaitingHashes = verdict.Unresolved
		w.backoff(&entry, now)
		_ = limbo.Put(entry)
		if w.Fetcher != nil {
			for _, h := range verdict.Unresolved {
				w.Fetcher.SendMissing(ctx, h)
			}
		}
		return false
	}
}

func (w *Workflow) backoff(entry *store.ValidationLimboEntry, now time.Time) {
	entry.NumTries++
	entry.LastTry = now
}
