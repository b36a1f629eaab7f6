// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"

	"github.com/luxfi/dht/rpc"
)

type echoAPI struct{}

func (echoAPI) HandleRequest(ctx context.Context, requestBytes []byte) ([]byte, error) {
	return requestBytes, nil
}

type erroringAPI struct{ err error }

func (a erroringAPI) HandleRequest(ctx context.Context, requestBytes []byte) ([]byte, error) {
	return nil, a.err
}

func TestFrameEncodeDecodeRoundTrip(t *testing.T) {
	type payload struct {
		Hello string
	}
	raw, err := rpc.EncodePayload(payload{Hello: "world"})
	require.NoError(t, err)

	var got payload
	require.NoError(t, rpc.DecodePayload(raw, &got))
	require.Equal(t, "world", got.Hello)
}

func TestServeAnswersRequestOnAdminSocket(t *testing.T) {
	client, server := rpc.NewLoopbackPair(rpc.AdminSurface, rpc.AdminSurface)

	var respPayload []byte
	var respErr error
	done := make(chan struct{})
	client.Push(rpc.Request([]byte("ping"), func(payload []byte, err error) {
		respPayload, respErr = payload, err
		close(done)
	}))
	client.Push(rpc.CloseFrame())

	require.NoError(t, rpc.Serve(context.Background(), client, echoAPI{}))
	_ = server

	<-done
	require.NoError(t, respErr)
	require.Equal(t, []byte("ping"), respPayload)
}

func TestServeClosesAdminSocketOnInboundSignal(t *testing.T) {
	client, _ := rpc.NewLoopbackPair(rpc.AdminSurface, rpc.AdminSurface)
	client.Push(rpc.Signal([]byte("not allowed")))

	err := rpc.Serve(context.Background(), client, echoAPI{})
	require.ErrorIs(t, err, rpc.ErrAdminSocketSignal)
}

func TestServePropagatesHandlerError(t *testing.T) {
	client, _ := rpc.NewLoopbackPair(rpc.AppSurface, rpc.AppSurface)

	wantErr := errors.New("handler blew up")
	var gotErr error
	done := make(chan struct{})
	client.Push(rpc.Request(nil, func(payload []byte, err error) {
		gotErr = err
		close(done)
	}))
	client.Push(rpc.CloseFrame())

	require.NoError(t, rpc.Serve(context.Background(), client, erroringAPI{err: wantErr}))
	<-done
	require.ErrorIs(t, gotErr, wantErr)
}

func TestLoopbackPairSendArrivesOnPeerRecv(t *testing.T) {
	client, server := rpc.NewLoopbackPair(rpc.AppSurface, rpc.AppSurface)

	require.NoError(t, client.Send(context.Background(), rpc.Signal([]byte("hi"))))
	f, err := server.Recv(context.Background())
	require.NoError(t, err)
	require.Equal(t, rpc.FrameSignal, f.Kind)
	require.Equal(t, []byte("hi"), f.SignalBytes)
}

func TestClosedSocketRejectsSendAndRecv(t *testing.T) {
	client, _ := rpc.NewLoopbackPair(rpc.AppSurface, rpc.AppSurface)
	require.NoError(t, client.Close())

	_, err := client.Recv(context.Background())
	require.ErrorIs(t, err, rpc.ErrSocketClosed)
	require.ErrorIs(t, client.Send(context.Background(), rpc.Signal(nil)), rpc.ErrSocketClosed)
}

func TestSignalBusFansOutToEverySubscriber(t *testing.T) {
	bus := rpc.NewSignalBus(nil)
	a := ids.GenerateTestID()
	b := ids.GenerateTestID()

	chA := bus.Subscribe(a)
	chB := bus.Subscribe(b)
	require.Equal(t, 2, bus.Len())

	bus.Publish([]byte("tick"))

	fa := <-chA
	fb := <-chB
	require.Equal(t, []byte("tick"), fa.SignalBytes)
	require.Equal(t, []byte("tick"), fb.SignalBytes)
}

func TestSignalBusDropsOnFullSubscriberWithoutBlocking(t *testing.T) {
	var dropped testCounter
	bus := rpc.NewSignalBus(&dropped)
	id := ids.GenerateTestID()
	ch := bus.Subscribe(id)

	// Fill the subscriber's buffer, then publish one more than it can hold.
	for i := 0; i < cap(ch)+1; i++ {
		bus.Publish([]byte("x"))
	}

	require.Equal(t, float64(1), dropped.value)
}

func TestSignalBusUnsubscribeClosesChannel(t *testing.T) {
	bus := rpc.NewSignalBus(nil)
	id := ids.GenerateTestID()
	ch := bus.Subscribe(id)

	bus.Unsubscribe(id)
	_, ok := <-ch
	require.False(t, ok)
	require.Equal(t, 0, bus.Len())
}

type testCounter struct{ value float64 }

func (c *testCounter) Inc()              { c.value++ }
func (c *testCounter) Add(delta float64) { c.value += delta }
