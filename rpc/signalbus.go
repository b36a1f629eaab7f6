// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"sync"

	"github.com/luxfi/ids"

	"github.com/luxfi/dht/metrics"
)

// subscriberBuffer bounds each App socket's outbound Signal queue. A socket
// that falls this far behind is dropped from, not blocking, the publisher.
const subscriberBuffer = 64

// SignalBus fans Signal frames out to every registered App socket, the
// shared resource §5 calls out as bounded: "a full subscriber whose channel
// is full is dropped and counted rather than blocking the publisher". It
// generalizes the register/unregister-by-ID bookkeeping this module's
// networking layer once used for chain registration onto socket
// registration instead.
type SignalBus struct {
	mu          sync.RWMutex
	subscribers map[ids.ID]chan Frame

	dropped metrics.Counter
}

// NewSignalBus returns an empty SignalBus. dropped, if non-nil, is
// incremented once per subscriber dropped for a full buffer.
func NewSignalBus(dropped metrics.Counter) *SignalBus {
	return &SignalBus{
		subscribers: make(map[ids.ID]chan Frame),
		dropped:     dropped,
	}
}

// Subscribe registers id and returns the channel its Signals arrive on. A
// second Subscribe for the same id replaces the first, closing its old
// channel.
func (b *SignalBus) Subscribe(id ids.ID) <-chan Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.subscribers[id]; ok {
		close(old)
	}
	ch := make(chan Frame, subscriberBuffer)
	b.subscribers[id] = ch
	return ch
}

// Unsubscribe removes id, closing its channel.
func (b *SignalBus) Unsubscribe(id ids.ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Publish fans payload out to every subscriber as a Signal frame. A
// subscriber whose buffer is full is never blocked on: it is removed from
// the bus, its channel is closed, and the drop is counted.
func (b *SignalBus) Publish(payload []byte) {
	f := Signal(payload)

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		select {
		case ch <- f:
		default:
			close(ch)
			delete(b.subscribers, id)
			if b.dropped != nil {
				b.dropped.Inc()
			}
		}
	}
}

// Len reports the current subscriber count.
func (b *SignalBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
