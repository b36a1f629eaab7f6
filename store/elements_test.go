// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"

	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/hash"
	"github.com/luxfi/dht/internal/testdb"
	"github.com/luxfi/dht/store"
)

func TestElementStorePutGet(t *testing.T) {
	db := testdb.New()
	es := store.NewElementStore(db, store.PrefixVault)

	h := chain.Header{
		Kind:      chain.HeaderCreate,
		Author:    ids.GenerateTestNodeID(),
		Timestamp: time.Unix(100, 0),
		Seq:       3,
		EntryHash: hash.Of(hash.KindEntry, []byte("e")),
	}
	el := chain.Element{
		Header: h,
		Entry:  &chain.Entry{Visibility: chain.Public, Payload: []byte("payload")},
	}

	scratch := es.Open()
	require.NoError(t, scratch.Put(el))
	batch := db.NewBatch()
	require.NoError(t, scratch.FlushTo(batch))
	require.NoError(t, batch.Write())

	got, ok := es.Get(h.Hash())
	require.True(t, ok)
	require.Equal(t, el.Header.Seq, got.Header.Seq)
	require.Equal(t, el.Entry.Payload, got.Entry.Payload)
}

func TestMetaVaultLinks(t *testing.T) {
	db := testdb.New()
	mv := store.NewMetaVault(db)

	base := hash.Of(hash.KindEntry, []byte("base"))
	createHash := hash.Of(hash.KindHeader, []byte("create-link"))

	scratch := mv.Open()
	require.NoError(t, scratch.PutLink(createHash, store.Link{
		BaseHash: base,
		Tag:      []byte("tag-a"),
		LinkType: "follows",
	}))

	batch := db.NewBatch()
	require.NoError(t, scratch.FlushTo(batch))
	require.NoError(t, batch.Write())

	links := mv.LinksByBase(base, nil)
	require.Len(t, links, 1)
	require.Equal(t, "follows", links[0].LinkType)

	scratch2 := mv.Open()
	require.NoError(t, scratch2.PutLink(createHash, store.Link{BaseHash: base, Removed: true}))
	batch2 := db.NewBatch()
	require.NoError(t, scratch2.FlushTo(batch2))
	require.NoError(t, batch2.Write())
	require.Empty(t, mv.LinksByBase(base, nil))
}

func TestMetaVaultActivity(t *testing.T) {
	db := testdb.New()
	mv := store.NewMetaVault(db)
	author := ids.GenerateTestNodeID()

	scratch := mv.Open()
	for seq := uint32(0); seq < 3; seq++ {
		require.NoError(t, scratch.PutActivity(store.ActivityEntry{
			Author:     author,
			Seq:        seq,
			HeaderHash: hash.Of(hash.KindHeader, []byte{byte(seq)}),
		}))
	}
	batch := db.NewBatch()
	require.NoError(t, scratch.FlushTo(batch))
	require.NoError(t, batch.Write())

	activity := mv.AgentActivity(author, 0, 10)
	require.Len(t, activity, 3)
	require.Equal(t, uint32(0), activity[0].Seq)
	require.Equal(t, uint32(2), activity[2].Seq)
}
