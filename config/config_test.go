// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/dht/config"
)

func TestDefaultParamsValid(t *testing.T) {
	p := config.DefaultParams()
	require.NoError(t, p.Valid())
}

func TestLimitsValid(t *testing.T) {
	require.ErrorIs(t, config.Limits{MaxEntryBytes: 0, MaxTagBytes: 1}.Valid(), config.ErrMaxEntryBytesTooLow)
	require.ErrorIs(t, config.Limits{MaxEntryBytes: 1, MaxTagBytes: 0}.Valid(), config.ErrMaxTagBytesTooLow)
}

func TestBackoffValid(t *testing.T) {
	require.ErrorIs(t, config.Backoff{Base: 0, Max: time.Second, Factor: 2}.Valid(), config.ErrBackoffBaseTooLow)
	require.ErrorIs(t, config.Backoff{Base: time.Second, Max: 0, Factor: 2}.Valid(), config.ErrBackoffMaxTooLow)
	require.ErrorIs(t, config.Backoff{Base: time.Second, Max: time.Minute, Factor: 1}.Valid(), config.ErrBackoffFactorTooLow)
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	b := config.Backoff{Base: time.Second, Max: 10 * time.Second, Factor: 2}
	require.Equal(t, time.Second, b.Delay(0))
	require.Equal(t, 2*time.Second, b.Delay(1))
	require.Equal(t, 4*time.Second, b.Delay(2))
	require.Equal(t, 10*time.Second, b.Delay(10))
}
