// Copyright 2026 go-hls Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sched

import (
	"fmt"
	"math"

	"github.com/ajroetker/go-hls/ir"
)

// ScheduleBounds holds a per-node interval [lb, ub] of legal cycles,
// maintained so that for every operand edge u -> v, lb(v) >= lb(u) and
// ub(u) <= ub(v). Bounds start maximally loose; ASAP and ALAP propagation
// tighten them using data dependencies and in-cycle delay chaining.
type ScheduleBounds struct {
	fb            *ir.FunctionBase
	topo          []*ir.Node
	clockPeriodPS int64
	delays        DelayMap
	lb            map[ir.NodeID]int
	ub            map[ir.NodeID]int
}

// NewScheduleBounds creates bounds of [0, +inf) for every node of fb.
func NewScheduleBounds(fb *ir.FunctionBase, clockPeriodPS int64, delays DelayMap) *ScheduleBounds {
	b := &ScheduleBounds{
		fb:            fb,
		topo:          fb.TopoSort(),
		clockPeriodPS: clockPeriodPS,
		delays:        delays,
		lb:            make(map[ir.NodeID]int, fb.NodeCount()),
		ub:            make(map[ir.NodeID]int, fb.NodeCount()),
	}
	for _, node := range fb.Nodes() {
		b.lb[node.ID()] = 0
		b.ub[node.ID()] = math.MaxInt32
	}
	return b
}

// Lb returns the lower bound of the node's cycle interval.
func (b *ScheduleBounds) Lb(n *ir.Node) int { return b.lb[n.ID()] }

// Ub returns the upper bound of the node's cycle interval.
func (b *ScheduleBounds) Ub(n *ir.Node) int { return b.ub[n.ID()] }

// TightenNodeLb raises a node's lower bound to cycle. It fails if the
// interval would become empty.
func (b *ScheduleBounds) TightenNodeLb(n *ir.Node, cycle int) error {
	if cycle > b.ub[n.ID()] {
		return fmt.Errorf("lower bound %d of %s exceeds upper bound %d", cycle, n.Name(), b.ub[n.ID()])
	}
	if cycle > b.lb[n.ID()] {
		b.lb[n.ID()] = cycle
	}
	return nil
}

// TightenNodeUb lowers a node's upper bound to cycle. It fails if the
// interval would become empty.
func (b *ScheduleBounds) TightenNodeUb(n *ir.Node, cycle int) error {
	if cycle < b.lb[n.ID()] {
		return fmt.Errorf("upper bound %d of %s is below lower bound %d", cycle, n.Name(), b.lb[n.ID()])
	}
	if cycle < b.ub[n.ID()] {
		b.ub[n.ID()] = cycle
	}
	return nil
}

// PropagateLowerBounds runs an ASAP pass: each node's lower bound becomes
// the earliest cycle consistent with its operands' lower bounds, advancing
// a cycle whenever the in-cycle delay chain through an operand would exceed
// the clock period.
func (b *ScheduleBounds) PropagateLowerBounds() error {
	// arrival[n] is the delay of the longest combinational chain ending at n
	// within n's lower-bound cycle, including n's own delay.
	arrival := make(map[ir.NodeID]int64, len(b.topo))

	for _, node := range b.topo {
		lb := b.lb[node.ID()]
		for _, operand := range node.Operands() {
			if opLb := b.lb[operand.ID()]; opLb > lb {
				lb = opLb
			}
		}

		delay := b.delays[node.ID()]
		chain := func(cycle int) int64 {
			longest := int64(0)
			for _, operand := range node.Operands() {
				if b.lb[operand.ID()] == cycle && arrival[operand.ID()] > longest {
					longest = arrival[operand.ID()]
				}
			}
			return longest + delay
		}

		a := chain(lb)
		if a > b.clockPeriodPS && a > delay {
			// The chain through same-cycle operands does not fit; start the
			// node in the next cycle instead.
			lb++
			a = chain(lb)
		}

		if err := b.TightenNodeLb(node, lb); err != nil {
			return err
		}
		arrival[node.ID()] = a
	}
	return nil
}

// PropagateUpperBounds runs an ALAP pass: each node's upper bound becomes
// the latest cycle consistent with its users' upper bounds, retreating a
// cycle whenever the in-cycle delay chain toward a user would exceed the
// clock period. Nodes without finite user bounds keep their bound.
func (b *ScheduleBounds) PropagateUpperBounds() error {
	// required[n] is the delay of the longest combinational chain starting
	// at n within n's upper-bound cycle, including n's own delay.
	required := make(map[ir.NodeID]int64, len(b.topo))

	for i := len(b.topo) - 1; i >= 0; i-- {
		node := b.topo[i]
		ub := b.ub[node.ID()]
		for _, user := range node.Users() {
			if userUb := b.ub[user.ID()]; userUb < ub {
				ub = userUb
			}
		}

		delay := b.delays[node.ID()]
		chain := func(cycle int) int64 {
			longest := int64(0)
			for _, user := range node.Users() {
				if b.ub[user.ID()] == cycle && required[user.ID()] > longest {
					longest = required[user.ID()]
				}
			}
			return longest + delay
		}

		r := chain(ub)
		if r > b.clockPeriodPS && r > delay {
			ub--
			r = chain(ub)
		}

		if err := b.TightenNodeUb(node, ub); err != nil {
			return err
		}
		required[node.ID()] = r
	}
	return nil
}

// BoundsForPipeline computes ASAP/ALAP bounds for a pipeline with the given
// number of stages. It fails when no node interval can fit, which callers
// typically resolve by widening the pipeline.
func BoundsForPipeline(fb *ir.FunctionBase, pipelineStages int64, clockPeriodPS int64, delays DelayMap) (*ScheduleBounds, error) {
	if pipelineStages < 1 {
		return nil, fmt.Errorf("pipeline must have at least one stage, got %d", pipelineStages)
	}
	b := NewScheduleBounds(fb, clockPeriodPS, delays)
	if err := b.PropagateLowerBounds(); err != nil {
		return nil, fmt.Errorf("propagate lower bounds: %w", err)
	}
	for _, node := range fb.Nodes() {
		if err := b.TightenNodeUb(node, int(pipelineStages)-1); err != nil {
			return nil, fmt.Errorf("pipeline of %d stages too short: %w", pipelineStages, err)
		}
	}
	if err := b.PropagateUpperBounds(); err != nil {
		return nil, fmt.Errorf("propagate upper bounds: %w", err)
	}
	return b, nil
}
