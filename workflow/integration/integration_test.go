// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"

	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/hash"
	"github.com/luxfi/dht/internal/testdb"
	"github.com/luxfi/dht/op"
	"github.com/luxfi/dht/store"
	"github.com/luxfi/dht/workflow"
	"github.com/luxfi/dht/workflow/integration"
)

func newWorkflow(t *testing.T) (*integration.Workflow, *store.IntegrationLimbo, *testdb.DB) {
	t.Helper()
	db := testdb.New()
	limbo := store.NewIntegrationLimbo(db)
	w := &integration.Workflow{
		Limbo:    limbo,
		Vault:    store.NewElementStore(db, store.PrefixVault),
		Meta:     store.NewMetaVault(db),
		Rejected: store.NewElementStore(db, store.PrefixRejected),
		Writer:   workflow.NewWriter(db),
	}
	return w, limbo, db
}

func seedIntegrationLimbo(t *testing.T, db *testdb.DB, limbo *store.IntegrationLimbo, entry store.IntegrationLimboEntry) {
	t.Helper()
	scratch := limbo.Open()
	require.NoError(t, scratch.Put(entry))
	b := db.NewBatch()
	require.NoError(t, scratch.FlushTo(b))
	require.NoError(t, b.Write())
}

func seedQueue(t *testing.T, db *testdb.DB, queue *store.IntegrationQueue, entry store.QueueEntry) {
	t.Helper()
	scratch := queue.Open()
	require.NoError(t, scratch.Put(entry))
	b := db.NewBatch()
	require.NoError(t, scratch.FlushTo(b))
	require.NoError(t, b.Write())
}

func TestRunEmptyLimboIsComplete(t *testing.T) {
	w, _, _ := newWorkflow(t)
	outcome, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, workflow.Complete, outcome)
}

func TestRunIntegratesValidStoreElement(t *testing.T) {
	w, limbo, db := newWorkflow(t)
	h := chain.Header{Kind: chain.HeaderDna, Author: ids.GenerateTestNodeID(), Timestamp: time.Unix(1, 0)}
	o := op.Op{Kind: op.StoreElement, Header: h}
	seedIntegrationLimbo(t, db, limbo, store.IntegrationLimboEntry{Op: o, Status: store.ValidationValid})

	outcome, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, workflow.Complete, outcome)

	el, ok := w.Vault.Get(h.Hash())
	require.True(t, ok)
	require.Equal(t, h, el.Header)

	require.Empty(t, limbo.List())
}

func TestRunRejectedOpNeverEntersVault(t *testing.T) {
	w, limbo, db := newWorkflow(t)
	h := chain.Header{Kind: chain.HeaderDna, Author: ids.GenerateTestNodeID(), Timestamp: time.Unix(1, 0)}
	o := op.Op{Kind: op.StoreElement, Header: h}
	seedIntegrationLimbo(t, db, limbo, store.IntegrationLimboEntry{Op: o, Status: store.ValidationRejected, Reason: "counterfeit"})

	_, err := w.Run(context.Background())
	require.NoError(t, err)

	_, inVault := w.Vault.Get(h.Hash())
	require.False(t, inVault)

	rej, ok := w.Rejected.Get(h.Hash())
	require.True(t, ok)
	require.Equal(t, h, rej.Header)
}

func TestRunAbandonedOpIsDropped(t *testing.T) {
	w, limbo, db := newWorkflow(t)
	h := chain.Header{Kind: chain.HeaderDna, Author: ids.GenerateTestNodeID(), Timestamp: time.Unix(1, 0)}
	o := op.Op{Kind: op.StoreElement, Header: h}
	seedIntegrationLimbo(t, db, limbo, store.IntegrationLimboEntry{Op: o, Status: store.ValidationAbandoned})

	_, err := w.Run(context.Background())
	require.NoError(t, err)

	_, inVault := w.Vault.Get(h.Hash())
	require.False(t, inVault)
	_, inRejected := w.Rejected.Get(h.Hash())
	require.False(t, inRejected)
	require.Empty(t, limbo.List())
}

func TestRunRegisterAgentActivityIndexesMeta(t *testing.T) {
	w, limbo, db := newWorkflow(t)
	h := chain.Header{Kind: chain.HeaderDna, Author: ids.GenerateTestNodeID(), Seq: 0, Timestamp: time.Unix(1, 0)}
	o := op.Op{Kind: op.RegisterAgentActivity, Header: h}
	seedIntegrationLimbo(t, db, limbo, store.IntegrationLimboEntry{Op: o, Status: store.ValidationValid})

	_, err := w.Run(context.Background())
	require.NoError(t, err)

	a, ok := w.Meta.GetActivity(h.Hash())
	require.True(t, ok)
	require.Equal(t, h.Author, a.Author)
	require.Equal(t, h.Seq, a.Seq)
}

func TestRunRegisterAddLinkThenRemoveLink(t *testing.T) {
	w, limbo, db := newWorkflow(t)
	author := ids.GenerateTestNodeID()
	createHeader := chain.Header{
		Kind: chain.HeaderCreateLink, Author: author, Seq: 1, Timestamp: time.Unix(1, 0),
		BaseHash: hash.Of(hash.KindEntry, []byte("base")), TargetHash: hash.Of(hash.KindEntry, []byte("target")),
		Tag: []byte("tag"), LinkType: "friend",
	}
	createOp := op.Op{Kind: op.RegisterAddLink, Header: createHeader}
	seedIntegrationLimbo(t, db, limbo, store.IntegrationLimboEntry{Op: createOp, Status: store.ValidationValid})

	_, err := w.Run(context.Background())
	require.NoError(t, err)

	link, ok := w.Meta.GetLink(createHeader.Hash())
	require.True(t, ok)
	require.False(t, link.Removed)

	removeHeader := chain.Header{
		Kind: chain.HeaderDeleteLink, Author: author, Seq: 2, Timestamp: time.Unix(2, 0),
		CreateLinkHash: createHeader.Hash(),
	}
	removeOp := op.Op{Kind: op.RegisterRemoveLink, Header: removeHeader}
	seedIntegrationLimbo(t, db, limbo, store.IntegrationLimboEntry{Op: removeOp, Status: store.ValidationValid})

	_, err = w.Run(context.Background())
	require.NoError(t, err)

	link, ok = w.Meta.GetLink(createHeader.Hash())
	require.True(t, ok)
	require.True(t, link.Removed)
}

func TestRunDrainsIntegrationQueueDirectly(t *testing.T) {
	db := testdb.New()
	w := &integration.Workflow{
		Limbo:    store.NewIntegrationLimbo(db),
		Queue:    store.NewIntegrationQueue(db),
		Vault:    store.NewElementStore(db, store.PrefixVault),
		Meta:     store.NewMetaVault(db),
		Rejected: store.NewElementStore(db, store.PrefixRejected),
		Writer:   workflow.NewWriter(db),
	}

	h := chain.Header{Kind: chain.HeaderDna, Author: ids.GenerateTestNodeID(), Timestamp: time.Unix(1, 0)}
	o := op.Op{Kind: op.StoreElement, Header: h}
	seedQueue(t, db, w.Queue, store.QueueEntry{
		Timestamp: time.Unix(1, 0), OpHash: o.Hash(), Status: store.ValidationValid, Op: o,
	})

	outcome, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, workflow.Complete, outcome)

	el, ok := w.Vault.Get(h.Hash())
	require.True(t, ok)
	require.Equal(t, h, el.Header)
	require.Empty(t, w.Queue.List())
}

func TestRunIntegratingTwiceIsIdempotent(t *testing.T) {
	w, limbo, db := newWorkflow(t)
	h := chain.Header{Kind: chain.HeaderDna, Author: ids.GenerateTestNodeID(), Timestamp: time.Unix(1, 0)}
	o := op.Op{Kind: op.StoreElement, Header: h}

	for i := 0; i < 2; i++ {
		seedIntegrationLimbo(t, db, limbo, store.IntegrationLimboEntry{Op: o, Status: store.ValidationValid})
		_, err := w.Run(context.Background())
		require.NoError(t, err)
	}

	el, ok := w.Vault.Get(h.Hash())
	require.True(t, ok)
	require.Equal(t, h, el.Header)
}
