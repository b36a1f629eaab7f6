// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package workflow_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/dht/hash"
	"github.com/luxfi/dht/internal/testdb"
	"github.com/luxfi/dht/store"
	"github.com/luxfi/dht/workflow"
)

func TestTriggerCoalesces(t *testing.T) {
	trig := workflow.NewTrigger()
	trig.Fire()
	trig.Fire()
	trig.Fire()

	select {
	case <-trig.C():
	default:
		t.Fatal("expected a pending fire")
	}
	select {
	case <-trig.C():
		t.Fatal("redundant fires should have collapsed into one")
	default:
	}
}

func TestWriterCommitsAcrossStores(t *testing.T) {
	db := testdb.New()
	s1 := store.New(db, store.PrefixVault)
	s2 := store.New(db, store.PrefixPending)

	h1 := hash.Of(hash.KindHeader, []byte("a"))
	h2 := hash.Of(hash.KindHeader, []byte("b"))
	scratch1 := s1.Open()
	scratch2 := s2.Open()
	scratch1.Put(h1, []byte("1"))
	scratch2.Put(h2, []byte("2"))

	w := workflow.NewWriter(db)
	require.NoError(t, w.Commit(scratch1, scratch2))

	require.True(t, s1.Has(h1))
	require.True(t, s2.Has(h2))
}

func TestUncommittedScratchNeverLandsOnStore(t *testing.T) {
	db := testdb.New()
	s := store.New(db, store.PrefixPending)
	h := hash.Of(hash.KindHeader, []byte("x"))

	scratch := s.Open()
	scratch.Put(h, []byte("v"))

	// scratch is simply dropped here, uncommitted (§5: a cancelled or
	// abandoned invocation's scratch is never wired into any Commit).
	require.False(t, s.Has(h))
}

func TestConsumerLoopsUntilComplete(t *testing.T) {
	var calls int32
	trig := workflow.NewTrigger()
	done := make(chan struct{})

	fn := func(ctx context.Context) (workflow.Outcome, error) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			return workflow.Incomplete, nil
		}
		close(done)
		return workflow.Complete, nil
	}

	c := workflow.NewConsumer("test", trig, fn, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	trig.Fire()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not reach Complete")
	}
	require.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
}
