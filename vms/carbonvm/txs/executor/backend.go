// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"github.com/luxfi/log"

	"github.com/luxfi/carbon/utils/timer/mockable"
	"github.com/luxfi/carbon/vms/carbonvm/config"
	"github.com/luxfi/carbon/vms/carbonvm/metrics"
)

type Backend struct {
	Config  *config.Config
	Clk     *mockable.Clock
	Log     log.Logger
	Metrics metrics.Metrics
}
