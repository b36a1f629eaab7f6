// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"errors"
)

// ErrAdminSocketSignal is returned when a Signal frame arrives on an Admin
// socket (§6: "Signals on the Admin surface are protocol violations
// (connection closed)").
var ErrAdminSocketSignal = errors.New("rpc: signal frame is a protocol violation on an admin socket")

// InterfaceAPI answers Request frames. Admin and App sockets each hold one;
// the Ribosome/workflow-facing application supplies the implementation, this
// package only specifies the shape (§6 "Requests are answered by invoking
// InterfaceApi::handle_request").
type InterfaceAPI interface {
	HandleRequest(ctx context.Context, requestBytes []byte) (responseBytes []byte, err error)
}

// Surface distinguishes an Admin connection (no outbound Signals, inbound
// Signals are a protocol violation) from an App connection (Signals flow
// outbound from a SignalBus; Serve ignores inbound Signals on an App
// connection).
type Surface byte

const (
	AdminSurface Surface = iota
	AppSurface
)

// Socket is one accepted bidirectional connection. Recv blocks for the next
// inbound Frame; Send delivers one outbound Frame. Both return an error once
// the underlying connection is gone.
type Socket interface {
	Surface() Surface
	Send(ctx context.Context, f Frame) error
	Recv(ctx context.Context) (Frame, error)
	Close() error
}

// Serve drives one Socket to completion: every inbound FrameRequest is
// answered via api.HandleRequest and RespondCB; an inbound FrameSignal on an
// Admin surface closes the connection (§6); Serve returns when Recv errors,
// a FrameClose arrives, or ctx is cancelled.
func Serve(ctx context.Context, sock Socket, api InterfaceAPI) error {
	for {
		f, err := sock.Recv(ctx)
		if err != nil {
			return err
		}
		switch f.Kind {
		case FrameClose:
			return nil
		case FrameSignal:
			if sock.Surface() == AdminSurface {
				return ErrAdminSocketSignal
			}
		case FrameRequest:
			resp, herr := api.HandleRequest(ctx, f.RequestBytes)
			if f.RespondCB != nil {
				f.RespondCB(resp, herr)
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
