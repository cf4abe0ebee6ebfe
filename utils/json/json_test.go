// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package json

import (
	stdjson "encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint64(t *testing.T) {
	require := require.New(t)

	b, err := stdjson.Marshal(Uint64(math.MaxUint64))
	require.NoError(err)
	require.Equal(`"18446744073709551615"`, string(b))

	var quoted Uint64
	require.NoError(stdjson.Unmarshal([]byte(`"42"`), &quoted))
	require.Equal(Uint64(42), quoted)

	var bare Uint64
	require.NoError(stdjson.Unmarshal([]byte(`7`), &bare))
	require.Equal(Uint64(7), bare)

	var bad Uint64
	require.Error(stdjson.Unmarshal([]byte(`"-1"`), &bad))
}

func TestUint16(t *testing.T) {
	require := require.New(t)

	var bps Uint16
	require.NoError(stdjson.Unmarshal([]byte(`"50"`), &bps))
	require.Equal(Uint16(50), bps)

	require.Error(stdjson.Unmarshal([]byte(`"70000"`), &bps))
}
