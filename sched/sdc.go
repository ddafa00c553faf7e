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
	"errors"
	"fmt"
	"math"

	"github.com/ajroetker/go-hls/ir"
)

// ErrNoOptimalSolution is returned when the LP is infeasible or unbounded.
// Callers typically widen the pipeline or loosen constraints and retry.
var ErrNoOptimalSolution = errors.New("the problem does not have an optimal solution")

// ErrNonIntegerSchedule is returned when a cycle variable of the solved LP
// deviates from the nearest integer by more than the tolerance, indicating
// a formulation bug or numerical blow-up.
var ErrNonIntegerSchedule = errors.New("the scheduling result is expected to be integer")

// integralityTolerance is the largest accepted deviation of a solved cycle
// variable from the nearest integer.
const integralityTolerance = 0.001

// lifetimeWeight scales the register-lifetime term of the objective. It
// keeps the per-node cycle tie-breaker small in comparison and is a power
// of two so scaling by a bit count stays exact in floating point.
const lifetimeWeight = 1024

// CycleMap assigns each node the pipeline stage it executes in.
type CycleMap map[ir.NodeID]int

// Length returns the number of stages the map occupies: one past the
// largest assigned cycle.
func (cm CycleMap) Length() int {
	length := 0
	for _, cycle := range cm {
		if cycle+1 > length {
			length = cycle + 1
		}
	}
	return length
}

// constraintBuilder encodes the SDC formulation: one continuous cycle
// variable per node bounded by the schedule bounds, one lifetime variable
// per node, and an unbounded variable for an artificial sink consuming
// values with implicit external uses.
type constraintBuilder struct {
	fb             *ir.FunctionBase
	prog           *linearProgram
	pipelineLength int64
	clockPeriodPS  int64
	delays         DelayMap

	cycleVar    map[ir.NodeID]lpVar
	lifetimeVar map[ir.NodeID]lpVar
	cycleAtSink lpVar
}

func newConstraintBuilder(fb *ir.FunctionBase, prog *linearProgram, pipelineLength, clockPeriodPS int64,
	bounds *ScheduleBounds, delays DelayMap) *constraintBuilder {
	b := &constraintBuilder{
		fb:             fb,
		prog:           prog,
		pipelineLength: pipelineLength,
		clockPeriodPS:  clockPeriodPS,
		delays:         delays,
		cycleVar:       make(map[ir.NodeID]lpVar, fb.NodeCount()),
		lifetimeVar:    make(map[ir.NodeID]lpVar, fb.NodeCount()),
	}
	inf := math.Inf(1)
	for _, node := range fb.Nodes() {
		b.cycleVar[node.ID()] = prog.addVar(float64(bounds.Lb(node)), float64(bounds.Ub(node)))
		b.lifetimeVar[node.ID()] = prog.addVar(0, inf)
	}
	b.cycleAtSink = prog.addVar(math.Inf(-1), inf)
	return b
}

// addDefUseConstraints adds the causal and lifetime constraints for one
// def-use edge. A nil user stands for the artificial sink.
func (b *constraintBuilder) addDefUseConstraints(node, user *ir.Node) {
	b.addCausalConstraint(node, user)
	b.addLifetimeConstraint(node, user)
}

func (b *constraintBuilder) userCycleVar(user *ir.Node) lpVar {
	if user == nil {
		return b.cycleAtSink
	}
	return b.cycleVar[user.ID()]
}

// addCausalConstraint requires the user to be scheduled no earlier than the
// node: cycle[node] - cycle[user] <= 0.
func (b *constraintBuilder) addCausalConstraint(node, user *ir.Node) {
	b.prog.addRowLE(0,
		lpTerm{b.cycleVar[node.ID()], 1},
		lpTerm{b.userCycleVar(user), -1})
}

// addLifetimeConstraint requires the node's lifetime to cover the gap to
// the user: cycle[user] - cycle[node] - lifetime[node] <= 0.
func (b *constraintBuilder) addLifetimeConstraint(node, user *ir.Node) {
	b.prog.addRowLE(0,
		lpTerm{b.userCycleVar(user), 1},
		lpTerm{b.cycleVar[node.ID()], -1},
		lpTerm{b.lifetimeVar[node.ID()], -1})
}

// addTimingConstraints adds cycle[target] - cycle[source] >= 1 for every
// timing edge of the critical-path analysis.
func (b *constraintBuilder) addTimingConstraints() {
	delayConstraints := CombinationalDelayConstraints(b.fb, b.clockPeriodPS, b.delays)
	for _, source := range b.fb.Nodes() {
		for _, target := range delayConstraints[source.ID()] {
			// cycle[source] - cycle[target] <= -1.
			b.prog.addRowLE(-1,
				lpTerm{b.cycleVar[source.ID()], 1},
				lpTerm{b.cycleVar[target.ID()], -1})
		}
	}
}

func (b *constraintBuilder) addConstraint(constraint Constraint) error {
	switch c := constraint.(type) {
	case IOConstraint:
		b.addIOConstraint(c)
		return nil
	case RecvsFirstSendsLast:
		b.addRFSLConstraint()
		return nil
	}
	return fmt.Errorf("unhandled scheduling constraint type %T", constraint)
}

// addIOConstraint bounds the latency between every matching pair of channel
// operations. Channels without matching operations contribute nothing.
func (b *constraintBuilder) addIOConstraint(c IOConstraint) {
	channelToNodes := make(map[string][]*ir.Node)
	for _, node := range b.fb.Nodes() {
		if node.Op() == ir.OpSend || node.Op() == ir.OpReceive {
			channelToNodes[node.Channel] = append(channelToNodes[node.Channel], node)
		}
	}

	matches := func(node *ir.Node, dir ir.ChannelDirection) bool {
		return node.ChannelDirection() == dir
	}
	for _, source := range channelToNodes[c.SourceChannel] {
		if !matches(source, c.SourceDirection) {
			continue
		}
		for _, target := range channelToNodes[c.TargetChannel] {
			if !matches(target, c.TargetDirection) || source == target {
				continue
			}
			// cycle[target] - cycle[source] >= MinLatency becomes
			// cycle[source] - cycle[target] <= -MinLatency.
			b.prog.addRowLE(float64(-c.MinLatency),
				lpTerm{b.cycleVar[source.ID()], 1},
				lpTerm{b.cycleVar[target.ID()], -1})
			// cycle[target] - cycle[source] <= MaxLatency.
			b.prog.addRowLE(float64(c.MaxLatency),
				lpTerm{b.cycleVar[target.ID()], 1},
				lpTerm{b.cycleVar[source.ID()], -1})
		}
	}
}

// addRFSLConstraint pins every receive to cycle 0 and every send to the
// last pipeline cycle.
func (b *constraintBuilder) addRFSLConstraint() {
	for _, node := range b.fb.Nodes() {
		switch node.Op() {
		case ir.OpReceive:
			b.prog.addRowLE(0, lpTerm{b.cycleVar[node.ID()], 1})
		case ir.OpSend:
			// cycle[send] >= pipelineLength-1.
			b.prog.addRowLE(float64(-(b.pipelineLength - 1)),
				lpTerm{b.cycleVar[node.ID()], -1})
		}
	}
}

// addObjective minimizes sum(cycle[n]) + sum(1024 * bits(n) * lifetime[n]).
// The cycle term is a tie-breaker pulling underconstrained nodes to the
// earliest legal cycle; the lifetime term is the register cost.
func (b *constraintBuilder) addObjective() {
	for _, node := range b.fb.Nodes() {
		b.prog.setObjectiveCoefficient(b.cycleVar[node.ID()], 1)
		b.prog.setObjectiveCoefficient(b.lifetimeVar[node.ID()],
			lifetimeWeight*float64(node.Type().FlatBitCount()))
	}
}

// extractResult reads the cycle variables out of the solution, enforcing
// integrality within the tolerance.
func (b *constraintBuilder) extractResult(x []float64) (CycleMap, error) {
	cycleMap := make(CycleMap, b.fb.NodeCount())
	for _, node := range b.fb.Nodes() {
		cycle := x[b.cycleVar[node.ID()]]
		if math.Abs(cycle-math.Round(cycle)) > integralityTolerance {
			return nil, fmt.Errorf("%w: cycle[%s] = %v", ErrNonIntegerSchedule, node.Name(), cycle)
		}
		cycleMap[node.ID()] = int(math.Round(cycle))
	}
	return cycleMap, nil
}

// Scheduler configures SDC pipeline scheduling of a function or proc.
type Scheduler struct {
	// PipelineStages is the number of pipeline stages to schedule into.
	PipelineStages int64

	// ClockPeriodPS is the clock period in picoseconds.
	ClockPeriodPS int64

	// Estimator supplies per-node combinational delays.
	Estimator DelayEstimator

	// Bounds are the initial per-node cycle intervals. When nil, ASAP/ALAP
	// bounds for the pipeline are computed.
	Bounds *ScheduleBounds

	// Constraints are applied in order.
	Constraints []Constraint

	// Solver names the LP solver; DefaultSolver when empty.
	Solver string
}

// Schedule computes a cycle assignment minimizing total register lifetime,
// using SDC scheduling: the constraint matrix of the formulation is totally
// unimodular, so the LP relaxation yields an integer optimum.
//
// References:
//   - Cong, Jason, and Zhiru Zhang. "An efficient and versatile scheduling
//     algorithm based on SDC formulation." DAC 2006.
//   - Zhang, Zhiru, and Bin Liu. "SDC-based modulo scheduling for pipeline
//     synthesis." ICCAD 2013.
func (s *Scheduler) Schedule(fb *ir.FunctionBase) (CycleMap, error) {
	solverName := s.Solver
	if solverName == "" {
		solverName = DefaultSolver
	}
	solver, err := newSolver(solverName)
	if err != nil {
		return nil, err
	}

	delays, err := ComputeNodeDelays(fb, s.Estimator)
	if err != nil {
		return nil, err
	}

	bounds := s.Bounds
	if bounds == nil {
		bounds, err = BoundsForPipeline(fb, s.PipelineStages, s.ClockPeriodPS, delays)
		if err != nil {
			return nil, err
		}
	}

	prog := newLinearProgram()
	builder := newConstraintBuilder(fb, prog, s.PipelineStages, s.ClockPeriodPS, bounds, delays)

	for _, constraint := range s.Constraints {
		if err := builder.addConstraint(constraint); err != nil {
			return nil, err
		}
	}

	for _, node := range fb.Nodes() {
		for _, user := range node.Users() {
			builder.addDefUseConstraints(node, user)
		}
		if fb.HasImplicitUse(node) {
			builder.addDefUseConstraints(node, nil)
		}
	}

	builder.addTimingConstraints()
	builder.addObjective()

	x, err := solver.solve(prog)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoOptimalSolution, err)
	}

	return builder.extractResult(x)
}

// Schedule runs SDC scheduling with the given parameters. It is the
// convenience form of Scheduler.Schedule.
func Schedule(fb *ir.FunctionBase, pipelineStages, clockPeriodPS int64, estimator DelayEstimator,
	bounds *ScheduleBounds, constraints []Constraint) (CycleMap, error) {
	s := &Scheduler{
		PipelineStages: pipelineStages,
		ClockPeriodPS:  clockPeriodPS,
		Estimator:      estimator,
		Bounds:         bounds,
		Constraints:    constraints,
	}
	return s.Schedule(fb)
}
