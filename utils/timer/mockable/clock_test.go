// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mockable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockSetAndAdvance(t *testing.T) {
	require := require.New(t)

	var clock Clock
	start := time.Unix(1_700_000_000, 0)
	clock.Set(start)
	require.Equal(uint64(1_700_000_000), clock.Unix())

	clock.Advance(90 * time.Second)
	require.Equal(uint64(1_700_000_090), clock.Unix())

	clock.Sync()
	require.WithinDuration(time.Now(), clock.Time(), time.Minute)
}

func TestClockClampsNegative(t *testing.T) {
	var clock Clock
	clock.Set(time.Unix(-10, 0))
	require.Zero(t, clock.Unix())
}
