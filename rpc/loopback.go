// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"errors"
)

// ErrSocketClosed is returned by a closed LoopbackSocket's Send/Recv.
var ErrSocketClosed = errors.New("rpc: socket closed")

// LoopbackSocket is an in-process Socket: frames written with Push arrive on
// Recv, frames written with Send arrive on the paired peer's Push channel.
// It exists so InterfaceAPI/Serve can be exercised without a real websocket
// listener, matching §6's explicit "implementer's choice" on transport while
// keeping the listener itself out of scope.
type LoopbackSocket struct {
	surface Surface
	inbound chan Frame
	peer    *LoopbackSocket

	closed chan struct{}
}

// NewLoopbackPair returns two LoopbackSockets wired to each other: frames
// sent on one arrive on the other's Recv.
func NewLoopbackPair(clientSurface, serverSurface Surface) (client, server *LoopbackSocket) {
	client = &LoopbackSocket{surface: clientSurface, inbound: make(chan Frame, 16), closed: make(chan struct{})}
	server = &LoopbackSocket{surface: serverSurface, inbound: make(chan Frame, 16), closed: make(chan struct{})}
	client.peer = server
	server.peer = client
	return client, server
}

// Surface reports whether this end is the Admin or App surface.
func (s *LoopbackSocket) Surface() Surface { return s.surface }

// Send delivers f to the peer's Recv.
func (s *LoopbackSocket) Send(ctx context.Context, f Frame) error {
	select {
	case <-s.closed:
		return ErrSocketClosed
	default:
	}
	select {
	case s.peer.inbound <- f:
		return nil
	case <-s.closed:
		return ErrSocketClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Push delivers f directly to this socket's own Recv, as if the peer had
// sent it. Useful in tests that only hold one end of the pair.
func (s *LoopbackSocket) Push(f Frame) {
	select {
	case s.inbound <- f:
	case <-s.closed:
	}
}

// Recv blocks for the next inbound Frame.
func (s *LoopbackSocket) Recv(ctx context.Context) (Frame, error) {
	select {
	case f, ok := <-s.inbound:
		if !ok {
			return Frame{}, ErrSocketClosed
		}
		return f, nil
	case <-s.closed:
		return Frame{}, ErrSocketClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Close marks the socket closed; further Send/Recv calls return
// ErrSocketClosed.
func (s *LoopbackSocket) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}
