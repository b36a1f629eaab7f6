// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package op_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"

	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/hash"
	"github.com/luxfi/dht/op"
)

func testHeader(kind chain.HeaderKind) chain.Header {
	return chain.Header{
		Kind:      kind,
		Author:    ids.GenerateTestNodeID(),
		Timestamp: time.Unix(1000, 0),
		Seq:       1,
		Prev:      hash.Of(hash.KindHeader, []byte("prev")),
		EntryHash: hash.Of(hash.KindEntry, []byte("entry-payload")),
		EntryType: "post",
	}
}

func TestFromElementCreate(t *testing.T) {
	h := testHeader(chain.HeaderCreate)
	e := chain.Element{
		Header: h,
		Entry:  &chain.Entry{Visibility: chain.Public, Kind: chain.EntryApp, EntryType: "post", Payload: []byte("hi")},
	}

	ops := op.FromElement(e)
	require.Len(t, ops, 3)
	require.Equal(t, op.StoreElement, ops[0].Kind)
	require.Equal(t, op.RegisterAgentActivity, ops[1].Kind)
	require.Equal(t, op.StoreEntry, ops[2].Kind)
}

func TestFromElementCreatePrivateEntry(t *testing.T) {
	h := testHeader(chain.HeaderCreate)
	e := chain.Element{
		Header: h,
		Entry:  &chain.Entry{Visibility: chain.Private, Kind: chain.EntryApp, EntryType: "post", Payload: []byte("secret")},
	}

	ops := op.FromElement(e)
	require.Len(t, ops, 2)
	for _, o := range ops {
		require.Nil(t, o.Entry)
	}
}

func TestFromElementUpdate(t *testing.T) {
	h := testHeader(chain.HeaderUpdate)
	h.OriginalEntryHash = hash.Of(hash.KindEntry, []byte("orig-entry"))
	h.OriginalHeaderHash = hash.Of(hash.KindHeader, []byte("orig-header"))
	e := chain.Element{
		Header: h,
		Entry:  &chain.Entry{Visibility: chain.Public, Payload: []byte("updated")},
	}

	ops := op.FromElement(e)
	require.Len(t, ops, 5)

	kinds := make([]op.Kind, len(ops))
	for i, o := range ops {
		kinds[i] = o.Kind
	}
	require.Equal(t, []op.Kind{
		op.StoreElement,
		op.RegisterAgentActivity,
		op.StoreEntry,
		op.RegisterUpdatedContent,
		op.RegisterUpdatedElement,
	}, kinds)

	for _, o := range ops {
		if o.Kind == op.RegisterUpdatedContent {
			require.Equal(t, h.OriginalEntryHash, o.BasisHash())
		}
		if o.Kind == op.RegisterUpdatedElement {
			require.Equal(t, h.OriginalHeaderHash, o.BasisHash())
		}
	}
}

func TestFromElementDelete(t *testing.T) {
	h := testHeader(chain.HeaderDelete)
	h.OriginalEntryHash = hash.Of(hash.KindEntry, []byte("orig-entry"))
	h.OriginalHeaderHash = hash.Of(hash.KindHeader, []byte("orig-header"))
	e := chain.Element{Header: h}

	ops := op.FromElement(e)
	require.Len(t, ops, 4)

	var sawDeletedBy, sawDeletedEntry bool
	for _, o := range ops {
		switch o.Kind {
		case op.RegisterDeletedBy:
			sawDeletedBy = true
			require.Equal(t, h.OriginalHeaderHash, o.BasisHash())
		case op.RegisterDeletedEntryHeader:
			sawDeletedEntry = true
			require.Equal(t, h.OriginalEntryHash, o.BasisHash())
		}
	}
	require.True(t, sawDeletedBy)
	require.True(t, sawDeletedEntry)
}

func TestFromElementCreateLink(t *testing.T) {
	h := testHeader(chain.HeaderCreateLink)
	h.BaseHash = hash.Of(hash.KindEntry, []byte("base"))
	h.TargetHash = hash.Of(hash.KindEntry, []byte("target"))
	h.Tag = []byte("tag")
	h.LinkType = "follows"
	e := chain.Element{Header: h}

	ops := op.FromElement(e)
	require.Len(t, ops, 3)
	require.Equal(t, op.RegisterAddLink, ops[2].Kind)
	require.Equal(t, h.BaseHash, ops[2].BasisHash())
}

func TestFromElementDeleteLink(t *testing.T) {
	h := testHeader(chain.HeaderDeleteLink)
	h.CreateLinkHash = hash.Of(hash.KindHeader, []byte("create-link"))
	e := chain.Element{Header: h}

	ops := op.FromElement(e)
	require.Len(t, ops, 3)
	require.Equal(t, op.RegisterRemoveLink, ops[2].Kind)
	require.Equal(t, h.CreateLinkHash, ops[2].BasisHash())
}

func TestOpHashDeterministic(t *testing.T) {
	h := testHeader(chain.HeaderCreate)
	e := chain.Element{
		Header: h,
		Entry:  &chain.Entry{Visibility: chain.Public, Payload: []byte("hi")},
	}

	ops1 := op.FromElement(e)
	ops2 := op.FromElement(e)
	require.Equal(t, len(ops1), len(ops2))
	for i := range ops1 {
		require.Equal(t, ops1[i].Hash(), ops2[i].Hash())
	}
}

func TestOpHashDiffersByKind(t *testing.T) {
	h := testHeader(chain.HeaderCreate)
	e := chain.Element{
		Header: h,
		Entry:  &chain.Entry{Visibility: chain.Public, Payload: []byte("hi")},
	}
	ops := op.FromElement(e)
	require.Len(t, ops, 3)
	require.NotEqual(t, ops[0].Hash(), ops[1].Hash())
	require.NotEqual(t, ops[0].Hash(), ops[2].Hash())
}

func TestRegisterAgentActivityBasisIsAuthor(t *testing.T) {
	h := testHeader(chain.HeaderDna)
	e := chain.Element{Header: h}
	ops := op.FromElement(e)
	require.Len(t, ops, 2)
	require.Equal(t, op.RegisterAgentActivity, ops[1].Kind)
	require.False(t, ops[1].BasisHash().IsEmpty())
}
