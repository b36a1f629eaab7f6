// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sysvalidation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"

	"github.com/luxfi/dht/cascade"
	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/config"
	"github.com/luxfi/dht/internal/testdb"
	"github.com/luxfi/dht/op"
	"github.com/luxfi/dht/store"
	"github.com/luxfi/dht/workflow/sysvalidation"
)

func newChecker(db *testdb.DB) *sysvalidation.Checker {
	vault := store.NewElementStore(db, store.PrefixVault)
	meta := store.NewMetaVault(db)
	local := cascade.New(cascade.Sources{Vault: vault, Meta: meta})
	full := cascade.New(cascade.Sources{Vault: vault, Meta: meta})
	return &sysvalidation.Checker{Limits: config.DefaultLimits(), Meta: meta, Local: local, Full: full}
}

func TestValidateAcceptsGenesisDna(t *testing.T) {
	db := testdb.New()
	c := newChecker(db)
	author := ids.GenerateTestNodeID()
	h := chain.Header{Kind: chain.HeaderDna, Author: author, Seq: 0, Timestamp: time.Unix(1, 0)}
	res := c.Validate(context.Background(), op.Op{Kind: op.RegisterAgentActivity, Header: h})
	require.Equal(t, sysvalidation.SkipAppValidation, res.Outcome)
}

func TestValidateRejectsDnaNotAtSeqZero(t *testing.T) {
	db := testdb.New()
	c := newChecker(db)
	h := chain.Header{Kind: chain.HeaderDna, Author: ids.GenerateTestNodeID(), Seq: 1, Timestamp: time.Unix(1, 0)}
	res := c.Validate(context.Background(), op.Op{Kind: op.StoreElement, Header: h})
	require.Equal(t, sysvalidation.Rejected, res.Outcome)
	require.Contains(t, res.RejectReason, "sequence 0")
}

func TestValidateAwaitsMissingPrevHeader(t *testing.T) {
	db := testdb.New()
	c := newChecker(db)
	author := ids.GenerateTestNodeID()
	missingPrev := chain.Header{Kind: chain.HeaderDna, Author: author, Seq: 0, Timestamp: time.Unix(1, 0)}.Hash()
	h := chain.Header{Kind: chain.HeaderCreateLink, Author: author, Seq: 1, Prev: missingPrev, Timestamp: time.Unix(2, 0)}

	res := c.Validate(context.Background(), op.Op{Kind: op.StoreElement, Header: h})
	require.Equal(t, sysvalidation.AwaitingOpDep, res.Outcome)
	require.Len(t, res.AwaitingHashes, 1)
	require.Equal(t, missingPrev, res.AwaitingHashes[0])
}

func TestValidateRejectsOutOfOrderSeq(t *testing.T) {
	db := testdb.New()
	c := newChecker(db)
	vault := store.NewElementStore(db, store.PrefixVault)
	meta := store.NewMetaVault(db)
	c.Local = cascade.New(cascade.Sources{Vault: vault, Meta: meta})
	c.Full = cascade.New(cascade.Sources{Vault: vault, Meta: meta})

	author := ids.GenerateTestNodeID()
	prev := chain.Header{Kind: chain.HeaderDna, Author: author, Seq: 0, Timestamp: time.Unix(1, 0)}
	seedVault(t, db, vault, chain.Element{Header: prev})

	bad := chain.Header{Kind: chain.HeaderCreateLink, Author: author, Seq: 5, Prev: prev.Hash(), Timestamp: time.Unix(2, 0)}
	res := c.Validate(context.Background(), op.Op{Kind: op.StoreElement, Header: bad})
	require.Equal(t, sysvalidation.Rejected, res.Outcome)
	require.Contains(t, res.RejectReason, "does not follow")
}

func TestValidateRejectsOversizeTag(t *testing.T) {
	db := testdb.New()
	c := newChecker(db)
	vault := store.NewElementStore(db, store.PrefixVault)
	meta := store.NewMetaVault(db)
	c.Local = cascade.New(cascade.Sources{Vault: vault, Meta: meta})
	c.Full = cascade.New(cascade.Sources{Vault: vault, Meta: meta})
	c.Limits = config.Limits{MaxEntryBytes: 1024, MaxTagBytes: 4}

	author := ids.GenerateTestNodeID()
	prev := chain.Header{Kind: chain.HeaderDna, Author: author, Seq: 0, Timestamp: time.Unix(1, 0)}
	seedVault(t, db, vault, chain.Element{Header: prev})

	h := chain.Header{
		Kind: chain.HeaderCreateLink, Author: author, Seq: 1, Prev: prev.Hash(),
		Timestamp: time.Unix(2, 0), Tag: []byte("way-too-long-a-tag"),
	}
	res := c.Validate(context.Background(), op.Op{Kind: op.RegisterAddLink, Header: h})
	require.Equal(t, sysvalidation.Rejected, res.Outcome)
	require.Contains(t, res.RejectReason, "tag exceeds")
}

func TestValidateRegisterAddLinkAwaitsBaseEntry(t *testing.T) {
	db := testdb.New()
	c := newChecker(db)
	vault := store.NewElementStore(db, store.PrefixVault)
	meta := store.NewMetaVault(db)
	c.Local = cascade.New(cascade.Sources{Vault: vault, Meta: meta})
	c.Full = cascade.New(cascade.Sources{Vault: vault, Meta: meta})

	author := ids.GenerateTestNodeID()
	prev := chain.Header{Kind: chain.HeaderDna, Author: author, Seq: 0, Timestamp: time.Unix(1, 0)}
	seedVault(t, db, vault, chain.Element{Header: prev})

	base := chain.Entry{Visibility: chain.Public, Payload: []byte("base")}.Hash()
	h := chain.Header{
		Kind: chain.HeaderCreateLink, Author: author, Seq: 1, Prev: prev.Hash(),
		Timestamp: time.Unix(2, 0), BaseHash: base, Tag: []byte("t"),
	}
	res := c.Validate(context.Background(), op.Op{Kind: op.RegisterAddLink, Header: h})
	require.Equal(t, sysvalidation.AwaitingOpDep, res.Outcome)
	require.Equal(t, base, res.AwaitingHashes[0])
}

func TestValidateRegisterRemoveLinkAwaitsCreateLink(t *testing.T) {
	db := testdb.New()
	c := newChecker(db)
	vault := store.NewElementStore(db, store.PrefixVault)
	meta := store.NewMetaVault(db)
	c.Local = cascade.New(cascade.Sources{Vault: vault, Meta: meta})
	c.Full = cascade.New(cascade.Sources{Vault: vault, Meta: meta})

	author := ids.GenerateTestNodeID()
	prev := chain.Header{Kind: chain.HeaderDna, Author: author, Seq: 0, Timestamp: time.Unix(1, 0)}
	seedVault(t, db, vault, chain.Element{Header: prev})

	createLinkHash := chain.Header{Kind: chain.HeaderCreateLink, Author: author, Seq: 1}.Hash()
	h := chain.Header{
		Kind: chain.HeaderDeleteLink, Author: author, Seq: 1, Prev: prev.Hash(),
		Timestamp: time.Unix(3, 0), CreateLinkHash: createLinkHash,
	}
	res := c.Validate(context.Background(), op.Op{Kind: op.RegisterRemoveLink, Header: h})
	require.Equal(t, sysvalidation.AwaitingOpDep, res.Outcome)
	require.Equal(t, createLinkHash, res.AwaitingHashes[0])
}

func TestValidateDetectsForkWithoutRejecting(t *testing.T) {
	db := testdb.New()
	c := newChecker(db)
	vault := store.NewElementStore(db, store.PrefixVault)
	meta := store.NewMetaVault(db)
	c.Local = cascade.New(cascade.Sources{Vault: vault, Meta: meta})
	c.Full = cascade.New(cascade.Sources{Vault: vault, Meta: meta})
	c.Meta = meta

	author := ids.GenerateTestNodeID()
	prev := chain.Header{Kind: chain.HeaderDna, Author: author, Seq: 0, Timestamp: time.Unix(1, 0)}
	seedVault(t, db, vault, chain.Element{Header: prev})

	known := chain.Header{Kind: chain.HeaderCreate, Author: author, Seq: 1, Prev: prev.Hash(), Timestamp: time.Unix(2, 0)}
	metaScratch := meta.Open()
	require.NoError(t, metaScratch.PutActivity(store.ActivityEntry{Author: author, Seq: 1, HeaderHash: known.Hash()}))
	b := db.NewBatch()
	require.NoError(t, metaScratch.FlushTo(b))
	require.NoError(t, b.Write())

	forked := chain.Header{
		Kind: chain.HeaderCreate, Author: author, Seq: 1, Prev: prev.Hash(),
		Timestamp: time.Unix(2, 0), EntryHash: chain.Entry{Visibility: chain.Public, Payload: []byte("other")}.Hash(),
	}
	res := c.Validate(context.Background(), op.Op{Kind: op.RegisterAgentActivity, Header: forked})
	require.NotEqual(t, sysvalidation.Rejected, res.Outcome, "a detected fork is recorded, not rejected")
}

func seedVault(t *testing.T, db *testdb.DB, vault *store.ElementStore, el chain.Element) {
	t.Helper()
	scratch := vault.Open()
	require.NoError(t, scratch.Put(el))
	b := db.NewBatch()
	require.NoError(t, scratch.FlushTo(b))
	require.NoError(t, b.Write())
}
