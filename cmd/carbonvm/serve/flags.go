// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package serve

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/luxfi/carbon/vms/carbonvm/config"
)

const (
	ConfigFileKey      = "config-file"
	HTTPHostKey        = "http-host"
	HTTPPortKey        = "http-port"
	AllowedOriginsKey  = "http-allowed-origins"
	AllowedHostsKey    = "http-allowed-hosts"
	ShutdownTimeoutKey = "http-shutdown-timeout"
	DBDirKey           = "db-dir"
	GenesisFileKey     = "genesis-file"

	SwapFeeBpsKey          = "swap-fee-bps"
	AllowSelfTradeKey      = "allow-self-trade"
	CheckInvariantsKey     = "check-invariants"
	RetirementCacheSizeKey = "retirement-cache-size"
	MaxDepthLevelsKey      = "max-depth-levels"
	MaxRetirementsPageKey  = "max-retirements-page"

	envPrefix = "CARBONVM"
)

var errInvalidPort = errors.New("http port must be positive")

func AddFlags(flags *pflag.FlagSet) {
	defaults := config.DefaultConfig()

	flags.String(ConfigFileKey, "", "Config file (json, yaml or toml) providing values for any flag")
	flags.String(HTTPHostKey, "127.0.0.1", "Address of the HTTP server")
	flags.Uint16(HTTPPortKey, 9650, "Port of the HTTP server")
	flags.StringSlice(AllowedOriginsKey, []string{"*"}, "Origins allowed to make CORS requests")
	flags.StringSlice(AllowedHostsKey, []string{"localhost"}, "Host names the HTTP server answers to")
	flags.Duration(ShutdownTimeoutKey, 10*time.Second, "Maximum duration to wait for in-flight requests on shutdown")
	flags.String(DBDirKey, "", "Database directory. Empty keeps the state in memory")
	flags.String(GenesisFileKey, "", "Genesis file applied on first start")

	flags.Uint16(SwapFeeBpsKey, defaults.SwapFeeBps, "Swap fee of new liquidity pools in basis points")
	flags.Bool(AllowSelfTradeKey, defaults.AllowSelfTrade, "Allow matching two orders of the same owner")
	flags.Bool(CheckInvariantsKey, defaults.CheckInvariants, "Audit supply and escrow invariants after every tx")
	flags.Int(RetirementCacheSizeKey, defaults.RetirementCacheSize, "Number of retirement records to cache")
	flags.Int(MaxDepthLevelsKey, defaults.MaxDepthLevels, "Maximum price levels returned by a depth query")
	flags.Int(MaxRetirementsPageKey, defaults.MaxRetirementsPage, "Maximum retirement records returned per page")
}

type Config struct {
	HTTPHost        string
	HTTPPort        uint16
	AllowedOrigins  []string
	AllowedHosts    []string
	ShutdownTimeout time.Duration
	DBDir           string
	GenesisFile     string
	VM              config.Config
}

// ParseFlags resolves the serve config. Values are taken, by decreasing
// priority, from flags, CARBONVM_ environment variables and the config file.
func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	if configFile := v.GetString(ConfigFileKey); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	port := v.GetUint16(HTTPPortKey)
	if port == 0 {
		return nil, errInvalidPort
	}
	c := &Config{
		HTTPHost:        v.GetString(HTTPHostKey),
		HTTPPort:        port,
		AllowedOrigins:  v.GetStringSlice(AllowedOriginsKey),
		AllowedHosts:    v.GetStringSlice(AllowedHostsKey),
		ShutdownTimeout: v.GetDuration(ShutdownTimeoutKey),
		DBDir:           v.GetString(DBDirKey),
		GenesisFile:     v.GetString(GenesisFileKey),
		VM: config.Config{
			SwapFeeBps:          v.GetUint16(SwapFeeBpsKey),
			AllowSelfTrade:      v.GetBool(AllowSelfTradeKey),
			CheckInvariants:     v.GetBool(CheckInvariantsKey),
			RetirementCacheSize: v.GetInt(RetirementCacheSizeKey),
			MaxDepthLevels:      v.GetInt(MaxDepthLevelsKey),
			MaxRetirementsPage:  v.GetInt(MaxRetirementsPageKey),
		},
	}
	if err := c.VM.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
