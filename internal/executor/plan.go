// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/vk/pixsimgo/internal/ctxlog"
	"github.com/vk/pixsimgo/internal/dag"
	"github.com/vk/pixsimgo/internal/messenger"
)

// Plan is the resolved execution order of a set of instances.
type Plan struct {
	order []*Instance
	graph *dag.Graph
}

// Order returns the instances in execution order.
func (p *Plan) Order() []*Instance {
	return slices.Clone(p.order)
}

// Dependencies returns the names of the instances whose output the named
// instance consumes.
func (p *Plan) Dependencies(name string) ([]string, error) {
	return p.graph.Dependencies(name)
}

// BuildPlan links every subscription on the bus to the publications it
// accepts, checks that required inputs have a producer and unique inputs at
// most one, and orders the instances so that producers run before their
// consumers. Instances without a dependency between them keep their
// steering order. The bus is sealed once the plan is built.
func BuildPlan(ctx context.Context, instances []*Instance, bus *messenger.Messenger) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	g := dag.New()
	byName := make(map[string]*Instance, len(instances))
	for _, inst := range instances {
		g.AddNode(inst.Name())
		byName[inst.Name()] = inst
	}

	publications := bus.Publications()
	for _, sub := range bus.Subscriptions() {
		consumer := sub.Owner.ModuleName()

		var producers []string
		for _, pub := range publications {
			producer := pub.Owner.ModuleName()
			if producer == consumer || !sub.Accepts(pub) {
				continue
			}
			if !slices.Contains(producers, producer) {
				producers = append(producers, producer)
			}
		}

		if sub.Required && len(producers) == 0 {
			return nil, &UnresolvedDependencyError{
				Module:   consumer,
				Type:     sub.TypeName(),
				Detector: sub.Detector,
				Input:    sub.Input,
			}
		}
		if sub.Unique && len(producers) > 1 {
			return nil, &MultipleProducersError{Module: consumer, Type: sub.TypeName(), Producers: producers}
		}

		for _, producer := range producers {
			if err := g.AddEdge(producer, consumer); err != nil {
				return nil, fmt.Errorf("linking %s to %s: %w", producer, consumer, err)
			}
		}
	}

	names, err := g.TopologicalOrder()
	if err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			return nil, &CyclicDependencyError{Path: cycle.Path}
		}
		return nil, err
	}

	order := make([]*Instance, len(names))
	for i, name := range names {
		order[i] = byName[name]
	}
	bus.Seal()

	logger.Info("🧭 Execution plan resolved.", "modules", len(order), "order", names)
	return &Plan{order: order, graph: g}, nil
}
