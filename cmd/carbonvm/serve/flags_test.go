// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package serve

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/log"

	"github.com/luxfi/carbon/vms/carbonvm/config"
)

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	AddFlags(flags)
	return flags
}

func TestParseFlagsDefaults(t *testing.T) {
	require := require.New(t)

	c, err := ParseFlags(newFlags(), nil)
	require.NoError(err)
	require.Equal("127.0.0.1", c.HTTPHost)
	require.Equal(uint16(9650), c.HTTPPort)
	require.Equal([]string{"*"}, c.AllowedOrigins)
	require.Equal(10*time.Second, c.ShutdownTimeout)
	require.Empty(c.DBDir)
	require.Equal(config.DefaultConfig(), c.VM)
}

func TestParseFlagsPriority(t *testing.T) {
	require := require.New(t)

	configFile := filepath.Join(t.TempDir(), "carbonvm.yaml")
	require.NoError(os.WriteFile(configFile, []byte(
		"swap-fee-bps: 120\nmax-depth-levels: 5\nmax-retirements-page: 20\n",
	), 0o600))
	t.Setenv("CARBONVM_MAX_DEPTH_LEVELS", "7")
	t.Setenv("CARBONVM_CHECK_INVARIANTS", "false")

	c, err := ParseFlags(newFlags(), []string{
		"--" + ConfigFileKey + "=" + configFile,
		"--" + MaxRetirementsPageKey + "=30",
	})
	require.NoError(err)
	// The config file only sets what neither a flag nor the environment does.
	require.Equal(uint16(120), c.VM.SwapFeeBps)
	require.Equal(7, c.VM.MaxDepthLevels)
	require.False(c.VM.CheckInvariants)
	require.Equal(30, c.VM.MaxRetirementsPage)
}

func TestParseFlagsRejects(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectedErr error
	}{
		{
			name:        "swap fee",
			args:        []string{"--" + SwapFeeBpsKey + "=10001"},
			expectedErr: config.ErrInvalidSwapFee,
		},
		{
			name:        "depth levels",
			args:        []string{"--" + MaxDepthLevelsKey + "=0"},
			expectedErr: config.ErrInvalidDepthLevels,
		},
		{
			name:        "port",
			args:        []string{"--" + HTTPPortKey + "=0"},
			expectedErr: errInvalidPort,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseFlags(newFlags(), test.args)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	require := require.New(t)

	c, err := ParseFlags(newFlags(), nil)
	require.NoError(err)
	c.HTTPPort = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(Run(ctx, log.NewNoOpLogger(), c))
}
