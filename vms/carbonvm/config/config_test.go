// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		configBytes []byte
		expected    Config
		expectedErr error
	}{
		{
			name:     "defaults",
			expected: DefaultConfig(),
		},
		{
			name:        "overlay",
			configBytes: []byte(`{"swapFeeBps":5,"allowSelfTrade":true,"maxDepthLevels":10}`),
			expected: func() Config {
				c := DefaultConfig()
				c.SwapFeeBps = 5
				c.AllowSelfTrade = true
				c.MaxDepthLevels = 10
				return c
			}(),
		},
		{
			name:        "disable invariant checks",
			configBytes: []byte(`{"checkInvariants":false}`),
			expected: func() Config {
				c := DefaultConfig()
				c.CheckInvariants = false
				return c
			}(),
		},
		{
			name:        "fee above one hundred percent",
			configBytes: []byte(`{"swapFeeBps":10001}`),
			expectedErr: ErrInvalidSwapFee,
		},
		{
			name:        "negative cache",
			configBytes: []byte(`{"retirementCacheSize":-1}`),
			expectedErr: ErrInvalidCacheSize,
		},
		{
			name:        "zero page",
			configBytes: []byte(`{"maxRetirementsPage":0}`),
			expectedErr: ErrInvalidRetirementCap,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			config, err := Parse(test.configBytes)
			require.ErrorIs(err, test.expectedErr)
			if test.expectedErr == nil {
				require.Equal(test.expected, config)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte(`{"swapFeeBps":"thirty"}`))
	require.Error(t, err)
}

func TestValidateReportsFirstError(t *testing.T) {
	config := DefaultConfig()
	config.SwapFeeBps = 20_000
	config.MaxDepthLevels = 0
	require.ErrorIs(t, config.Validate(), ErrInvalidSwapFee)
}
