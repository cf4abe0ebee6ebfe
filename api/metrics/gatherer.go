// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics merges the metrics of independent registries under
// per-component namespaces. Unlike metric.NewPrefixGatherer it rejects
// namespaces that could collide and reports families sorted by name.
package metrics

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/luxfi/metric"
	"google.golang.org/protobuf/proto"
)

var (
	_ metric.MultiGatherer = (*prefixGatherer)(nil)

	errEmptyPrefix           = errors.New("prefix must not be empty")
	errOverlappingNamespaces = errors.New("prefix could create overlapping namespaces")
)

// NewPrefixGatherer returns a new MultiGatherer that merges metrics by adding a
// prefix to their names.
func NewPrefixGatherer() metric.MultiGatherer {
	return &prefixGatherer{}
}

type prefixGatherer struct {
	lock      sync.RWMutex
	prefixes  []string
	gatherers []metric.Gatherer
}

func (g *prefixGatherer) Register(prefix string, gatherer metric.Gatherer) error {
	if prefix == "" {
		return errEmptyPrefix
	}

	g.lock.Lock()
	defer g.lock.Unlock()

	for _, existingPrefix := range g.prefixes {
		if eitherIsPrefix(prefix, existingPrefix) {
			return fmt.Errorf("%w: %q conflicts with %q",
				errOverlappingNamespaces,
				prefix,
				existingPrefix,
			)
		}
	}
	g.prefixes = append(g.prefixes, prefix)
	g.gatherers = append(g.gatherers, gatherer)
	return nil
}

func (g *prefixGatherer) Deregister(prefix string) bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	index := slices.Index(g.prefixes, prefix)
	if index == -1 {
		return false
	}
	g.prefixes = slices.Delete(g.prefixes, index, index+1)
	g.gatherers = slices.Delete(g.gatherers, index, index+1)
	return true
}

// Gather returns the metrics of every registered gatherer sorted by name.
// Gatherers return partially filled metrics in the case of an error, so the
// metrics gathered so far are returned along with the errors.
func (g *prefixGatherer) Gather() ([]*metric.MetricFamily, error) {
	g.lock.RLock()
	defer g.lock.RUnlock()

	var (
		families []*metric.MetricFamily
		errs     []error
	)
	for i, gatherer := range g.gatherers {
		gathered, err := gatherer.Gather()
		if err != nil {
			errs = append(errs, fmt.Errorf("%q: %w", g.prefixes[i], err))
		}
		for _, family := range gathered {
			family.Name = proto.String(g.prefixes[i] + "_" + family.GetName())
		}
		families = append(families, gathered...)
	}
	slices.SortFunc(families, func(a, b *metric.MetricFamily) int {
		return strings.Compare(a.GetName(), b.GetName())
	})
	return families, errors.Join(errs...)
}

// MakeAndRegister returns a new registry whose metrics gatherer reports under
// prefix.
func MakeAndRegister(gatherer metric.MultiGatherer, prefix string) (metric.Registry, error) {
	reg := metric.NewRegistry()
	if err := gatherer.Register(prefix, reg); err != nil {
		return nil, fmt.Errorf("couldn't register %q metrics: %w", prefix, err)
	}
	return reg, nil
}

// eitherIsPrefix returns true if either [a] is a prefix of [b] or [b] is a
// prefix of [a].
//
// This function accounts for the usage of the namespace boundary, so "hello" is
// not considered a prefix of "helloworld". However, "hello" is considered a
// prefix of "hello_world".
func eitherIsPrefix(a, b string) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	return a == b[:len(a)] && // a is a prefix of b
		(len(a) == len(b) || // a is equal to b
			b[len(a)] == '_') // a ends at a namespace boundary of b
}
