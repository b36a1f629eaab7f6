// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpc specifies the Admin/App interface surface (§6): a bidirectional
// frame protocol over a listener this module deliberately does not implement
// (the spec places the websocket transport itself out of scope), plus an
// in-process Socket/SignalBus pair a caller can wire directly to a Workflow
// Consumer without standing up a network listener at all.
package rpc

import "github.com/luxfi/dht/codec"

// FrameKind discriminates the three shapes a Frame may take.
type FrameKind byte

const (
	// FrameRequest carries a request awaiting a response via RespondCB.
	FrameRequest FrameKind = iota
	// FrameSignal carries an unsolicited, one-way payload.
	FrameSignal
	// FrameClose signals the connection is ending.
	FrameClose
)

// RespondFunc is invoked exactly once by an InterfaceAPI to answer a
// FrameRequest. Calling it more than once is a caller bug; nothing in this
// package guards against a second call.
type RespondFunc func(payload []byte, err error)

// Frame is one message crossing an Admin or App connection (§6 "Messages are
// framed as {Request(bytes, respond_cb), Signal(bytes), Close}"). Exactly one
// of the three shapes is populated, selected by Kind.
type Frame struct {
	Kind FrameKind

	// RequestBytes/RespondCB are set when Kind == FrameRequest.
	RequestBytes []byte
	RespondCB    RespondFunc

	// SignalBytes is set when Kind == FrameSignal.
	SignalBytes []byte
}

// Request builds a FrameRequest frame.
func Request(payload []byte, cb RespondFunc) Frame {
	return Frame{Kind: FrameRequest, RequestBytes: payload, RespondCB: cb}
}

// Signal builds a FrameSignal frame.
func Signal(payload []byte) Frame {
	return Frame{Kind: FrameSignal, SignalBytes: payload}
}

// CloseFrame builds a FrameClose frame.
func CloseFrame() Frame {
	return Frame{Kind: FrameClose}
}

// EncodePayload serializes v into a Frame payload using the module's shared
// codec (§6 "Payloads are a canonical serialized-bytes format ... stable per
// deployment").
func EncodePayload(v interface{}) ([]byte, error) {
	return codec.Codec.Marshal(codec.CurrentVersion, v)
}

// DecodePayload deserializes a Frame payload into v.
func DecodePayload(payload []byte, v interface{}) error {
	_, err := codec.Codec.Unmarshal(payload, v)
	return err
}
