// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"
	"time"

	"github.com/luxfi/metric"

	"github.com/luxfi/carbon/vms/carbonvm/errs"
	"github.com/luxfi/carbon/vms/carbonvm/txs"
)

const (
	txLabel   = "tx"
	kindLabel = "kind"
)

var _ Metrics = (*metrics)(nil)

type Metrics interface {
	// MarkAccepted records a committed tx and how long it took to execute.
	MarkAccepted(tx *txs.Tx, duration time.Duration)
	// MarkRejected records an aborted tx under the kind of its error.
	MarkRejected(tx *txs.Tx, err error)

	ObserveTrade(quoteAmount, fee uint64)
	ObserveRetirement(amount uint64)
}

type metrics struct {
	txsAccepted metric.CounterVec
	txsRejected metric.CounterVec
	txDuration  metric.Histogram

	tradesSettled metric.Counter
	quoteVolume   metric.Counter
	feesCollected metric.Counter
	unitsRetired  metric.Counter
	retirements   metric.Counter
}

func New(namespace string, registerer metric.Registerer) (Metrics, error) {
	m := &metrics{
		txsAccepted: metric.NewCounterVec(
			metric.CounterOpts{
				Namespace: namespace,
				Name:      "txs_accepted",
				Help:      "number of transactions accepted",
			},
			[]string{txLabel},
		),
		txsRejected: metric.NewCounterVec(
			metric.CounterOpts{
				Namespace: namespace,
				Name:      "txs_rejected",
				Help:      "number of transactions rejected",
			},
			[]string{txLabel, kindLabel},
		),
		txDuration: metric.NewHistogram(metric.HistogramOpts{
			Namespace: namespace,
			Name:      "tx_duration_seconds",
			Help:      "time spent executing accepted transactions",
		}),
		tradesSettled: metric.NewCounter(metric.CounterOpts{
			Namespace: namespace,
			Name:      "trades_settled",
			Help:      "number of matches settled",
		}),
		quoteVolume: metric.NewCounter(metric.CounterOpts{
			Namespace: namespace,
			Name:      "trade_quote_volume",
			Help:      "quote units exchanged by settled trades",
		}),
		feesCollected: metric.NewCounter(metric.CounterOpts{
			Namespace: namespace,
			Name:      "trade_fees",
			Help:      "quote units paid to fee collectors",
		}),
		unitsRetired: metric.NewCounter(metric.CounterOpts{
			Namespace: namespace,
			Name:      "units_retired",
			Help:      "carbon units permanently retired",
		}),
		retirements: metric.NewCounter(metric.CounterOpts{
			Namespace: namespace,
			Name:      "retirements",
			Help:      "number of retirement records appended",
		}),
	}

	err := errors.Join(
		registerer.Register(metric.AsCollector(m.txsAccepted)),
		registerer.Register(metric.AsCollector(m.txsRejected)),
		registerer.Register(metric.AsCollector(m.txDuration)),
		registerer.Register(metric.AsCollector(m.tradesSettled)),
		registerer.Register(metric.AsCollector(m.quoteVolume)),
		registerer.Register(metric.AsCollector(m.feesCollected)),
		registerer.Register(metric.AsCollector(m.unitsRetired)),
		registerer.Register(metric.AsCollector(m.retirements)),
	)
	return m, err
}

func (m *metrics) MarkAccepted(tx *txs.Tx, duration time.Duration) {
	m.txsAccepted.With(metric.Labels{
		txLabel: tx.Unsigned.Type().String(),
	}).Inc()
	m.txDuration.Observe(duration.Seconds())
}

func (m *metrics) MarkRejected(tx *txs.Tx, err error) {
	txType := "unknown"
	if tx != nil && tx.Unsigned != nil {
		txType = tx.Unsigned.Type().String()
	}
	m.txsRejected.With(metric.Labels{
		txLabel:   txType,
		kindLabel: errs.Kind(err),
	}).Inc()
}

func (m *metrics) ObserveTrade(quoteAmount, fee uint64) {
	m.tradesSettled.Inc()
	m.quoteVolume.Add(float64(quoteAmount))
	m.feesCollected.Add(float64(fee))
}

func (m *metrics) ObserveRetirement(amount uint64) {
	m.retirements.Inc()
	m.unitsRetired.Add(float64(amount))
}

type noMetrics struct{}

// NewNoMetrics returns a Metrics that records nothing.
func NewNoMetrics() Metrics {
	return noMetrics{}
}

func (noMetrics) MarkAccepted(*txs.Tx, time.Duration) {}

func (noMetrics) MarkRejected(*txs.Tx, error) {}

func (noMetrics) ObserveTrade(uint64, uint64) {}

func (noMetrics) ObserveRetirement(uint64) {}
