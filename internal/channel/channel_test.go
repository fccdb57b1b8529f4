/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDataFIFO(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	d := NewData[int](4)
	for i := 0; i < 4; i++ {
		require.NoError(t, d.Send(ctx, i))
	}
	for i := 0; i < 4; i++ {
		msg, ok, err := d.Recv(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, i, msg)
	}
}

func TestDataTrySendFull(t *testing.T) {
	t.Parallel()

	d := NewData[int](1)
	require.NoError(t, d.TrySend(1))
	require.ErrorIs(t, d.TrySend(2), ErrFull)
}

func TestDataCloseUnblocksConsumer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	d := NewData[int](1)
	d.Close()

	_, ok, err := d.Recv(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, d.Send(ctx, 1), ErrClosed)
}

func TestDataSendRespectsContextCancellation(t *testing.T) {
	t.Parallel()

	d := NewData[int](0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := d.Send(ctx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestControlBroadcastsToAllSubscribers(t *testing.T) {
	t.Parallel()

	c := NewControl[string]()
	a := c.Subscribe(1)
	b := c.Subscribe(1)

	c.Publish("shutdown")

	require.Equal(t, "shutdown", <-a)
	require.Equal(t, "shutdown", <-b)
}

func TestControlCloseClosesSubscribers(t *testing.T) {
	t.Parallel()

	c := NewControl[string]()
	sub := c.Subscribe(1)
	c.Close()

	_, ok := <-sub
	require.False(t, ok)
}
