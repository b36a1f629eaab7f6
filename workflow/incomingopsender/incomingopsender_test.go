// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package incomingopsender_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"

	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/hash"
	"github.com/luxfi/dht/internal/testdb"
	"github.com/luxfi/dht/network"
	"github.com/luxfi/dht/op"
	"github.com/luxfi/dht/store"
	"github.com/luxfi/dht/workflow"
	"github.com/luxfi/dht/workflow/incomingopsender"
)

// fakeNetwork is a hand-written stand-in for network.Network, counting calls
// rather than asserting call order.
type fakeNetwork struct {
	element      chain.Element
	elementFound bool
	entry        chain.Entry
	entryFound   bool

	getElementCalls atomic.Int32
	getEntryCalls   atomic.Int32
}

func (f *fakeNetwork) GetElement(ctx context.Context, h hash.Hash, opts network.GetOpts) (chain.Element, bool, error) {
	f.getElementCalls.Add(1)
	return f.element, f.elementFound, nil
}

func (f *fakeNetwork) GetEntry(ctx context.Context, h hash.Hash, opts network.GetOpts) (chain.Entry, bool, error) {
	f.getEntryCalls.Add(1)
	return f.entry, f.entryFound, nil
}

func (f *fakeNetwork) GetLinks(ctx context.Context, base hash.Hash, tagPrefix []byte, opts network.GetOpts) ([]chain.Header, error) {
	return nil, nil
}

func (f *fakeNetwork) GetAgentActivity(ctx context.Context, author ids.NodeID, minSeq, maxSeq uint32, opts network.GetOpts) ([]chain.Header, error) {
	return nil, nil
}

func (f *fakeNetwork) Publish(ctx context.Context, o op.Op) error { return nil }

func (f *fakeNetwork) Send(ctx context.Context, to ids.NodeID, o op.Op) error { return nil }

func (f *fakeNetwork) Ops() <-chan network.ReceivedOp { return nil }

var _ network.Network = (*fakeNetwork)(nil)

func newSender(db *testdb.DB, net *fakeNetwork) *incomingopsender.Sender {
	return &incomingopsender.Sender{
		Net:     net,
		Limbo:   store.NewValidationLimbo(db),
		Pending: store.NewElementStore(db, store.PrefixPending),
		Entries: store.NewEntryCache(db),
		Writer:  workflow.NewWriter(db),
	}
}

func TestFetchUnknownHashKindMakesNoNetworkCall(t *testing.T) {
	net := &fakeNetwork{}
	s := newSender(testdb.New(), net)

	s.Fetch(context.Background(), hash.Hash{Kind: hash.KindDhtOp, ID: ids.GenerateTestID()})

	require.EqualValues(t, 0, net.getElementCalls.Load())
	require.EqualValues(t, 0, net.getEntryCalls.Load())
}

func TestFetchEntryCachesResultAndFiresTrigger(t *testing.T) {
	entry := chain.Entry{Visibility: chain.Public, Payload: []byte("hello")}
	h := entry.Hash()
	net := &fakeNetwork{entry: entry, entryFound: true}
	s := newSender(testdb.New(), net)
	trigger := workflow.NewTrigger()
	s.SysTrigger = trigger

	s.Fetch(context.Background(), h)

	require.EqualValues(t, 1, net.getEntryCalls.Load())
	cached, ok := s.Entries.Get(h)
	require.True(t, ok)
	require.Equal(t, entry, cached)

	select {
	case <-trigger.C():
	default:
		t.Fatal("expected sys-validation trigger to fire after caching a fetched entry")
	}
}

func TestFetchEntryNotFoundDoesNotCache(t *testing.T) {
	missing := hash.Of(hash.KindEntry, []byte("missing"))
	net := &fakeNetwork{entryFound: false}
	s := newSender(testdb.New(), net)

	s.Fetch(context.Background(), missing)

	_, ok := s.Entries.Get(missing)
	require.False(t, ok)
}

func TestFetchHeaderNotFoundLeavesLimboEmpty(t *testing.T) {
	missing := chain.Header{Kind: chain.HeaderDna, Author: ids.GenerateTestNodeID()}.Hash()
	net := &fakeNetwork{elementFound: false}
	s := newSender(testdb.New(), net)

	s.Fetch(context.Background(), missing)

	require.EqualValues(t, 1, net.getElementCalls.Load())
	require.Empty(t, s.Limbo.List())
}

func TestHandleReceivedDropsCounterfeitOp(t *testing.T) {
	db := testdb.New()
	net := &fakeNetwork{}
	s := newSender(db, net)

	h := chain.Header{
		Kind: chain.HeaderDna, Author: ids.GenerateTestNodeID(), Timestamp: time.Unix(1, 0),
		Signature: []byte("not-a-real-signature"),
	}
	s.HandleReceived(network.ReceivedOp{From: ids.GenerateTestNodeID(), Op: op.Op{Kind: op.StoreElement, Header: h}})

	require.Empty(t, s.Limbo.List())
}

// TestHandleReceivedAdmitsGenuinelySignedOp pins this module's
// Author-is-the-signing-pubkey contract (chain.Header.AuthorPublicKey): a
// header whose Author bytes equal the Ed25519 public key that produced
// Signature must pass CounterfeitCheck and land in validation_limbo, not
// just fail closed the way a tampered header does.
func TestHandleReceivedAdmitsGenuinelySignedOp(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	h := chain.Header{
		Kind: chain.HeaderDna, Author: ids.NodeID(pub), Timestamp: time.Unix(1, 0),
	}
	h.Signature = ed25519.Sign(priv, h.CanonicalBytes())
	require.True(t, h.VerifySignature(pub), "precondition: signature must verify against the issuing key")

	db := testdb.New()
	net := &fakeNetwork{}
	s := newSender(db, net)

	s.HandleReceived(network.ReceivedOp{From: ids.GenerateTestNodeID(), Op: op.Op{Kind: op.StoreElement, Header: h}})

	entry, ok := s.Limbo.Get(op.Op{Kind: op.StoreElement, Header: h}.Hash())
	require.True(t, ok, "a genuinely signed header must be admitted to validation_limbo")
	require.Equal(t, store.StatusPending, entry.Status)
}

func TestSendMissingCoalescesDuplicateRequests(t *testing.T) {
	entry := chain.Entry{Visibility: chain.Public, Payload: []byte("dep")}
	h := entry.Hash()
	net := &fakeNetwork{entry: entry, entryFound: true}
	s := newSender(testdb.New(), net)
	fixed := time.Unix(42, 0)
	s.Now = func() time.Time { return fixed }

	s.SendMissing(context.Background(), h)
	s.SendMissing(context.Background(), h)

	require.Eventually(t, func() bool {
		return net.getEntryCalls.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, net.getEntryCalls.Load())
}
