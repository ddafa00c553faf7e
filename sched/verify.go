// Copyright 2026 The go-hls Authors. SPDX-License-Identifier: Apache-2.0

package sched

import (
	"fmt"

	"github.com/ajroetker/go-hls/ir"
)

// VerifySchedule checks a cycle map against the invariants the scheduler
// guarantees: every node assigned exactly once within [0, stages), operands
// never scheduled after their users, every timing edge separated by at
// least one cycle, and every user constraint honored.
func VerifySchedule(fb *ir.FunctionBase, cycleMap CycleMap, pipelineStages, clockPeriodPS int64,
	delays DelayMap, constraints []Constraint) error {
	for _, node := range fb.Nodes() {
		cycle, ok := cycleMap[node.ID()]
		if !ok {
			return fmt.Errorf("node %s has no scheduled cycle", node.Name())
		}
		if cycle < 0 || int64(cycle) >= pipelineStages {
			return fmt.Errorf("node %s scheduled in cycle %d outside [0, %d)", node.Name(), cycle, pipelineStages)
		}
		for _, operand := range node.Operands() {
			if cycleMap[operand.ID()] > cycle {
				return fmt.Errorf("operand %s (cycle %d) scheduled after user %s (cycle %d)",
					operand.Name(), cycleMap[operand.ID()], node.Name(), cycle)
			}
		}
	}

	delayConstraints := CombinationalDelayConstraints(fb, clockPeriodPS, delays)
	for _, source := range fb.Nodes() {
		for _, target := range delayConstraints[source.ID()] {
			if cycleMap[target.ID()]-cycleMap[source.ID()] < 1 {
				return fmt.Errorf("timing edge %s -> %s not separated: cycles %d and %d",
					source.Name(), target.Name(), cycleMap[source.ID()], cycleMap[target.ID()])
			}
		}
	}

	for _, constraint := range constraints {
		switch c := constraint.(type) {
		case IOConstraint:
			if err := verifyIOConstraint(fb, cycleMap, c); err != nil {
				return err
			}
		case RecvsFirstSendsLast:
			for _, node := range fb.Nodes() {
				if node.Op() == ir.OpReceive && cycleMap[node.ID()] != 0 {
					return fmt.Errorf("receive %s in cycle %d, want 0", node.Name(), cycleMap[node.ID()])
				}
				if node.Op() == ir.OpSend && int64(cycleMap[node.ID()]) != pipelineStages-1 {
					return fmt.Errorf("send %s in cycle %d, want %d", node.Name(), cycleMap[node.ID()], pipelineStages-1)
				}
			}
		}
	}
	return nil
}

func verifyIOConstraint(fb *ir.FunctionBase, cycleMap CycleMap, c IOConstraint) error {
	for _, source := range fb.Nodes() {
		if source.Op() != ir.OpSend && source.Op() != ir.OpReceive {
			continue
		}
		if source.Channel != c.SourceChannel || source.ChannelDirection() != c.SourceDirection {
			continue
		}
		for _, target := range fb.Nodes() {
			if target.Op() != ir.OpSend && target.Op() != ir.OpReceive {
				continue
			}
			if target.Channel != c.TargetChannel || target.ChannelDirection() != c.TargetDirection || source == target {
				continue
			}
			latency := int64(cycleMap[target.ID()] - cycleMap[source.ID()])
			if latency < c.MinLatency || latency > c.MaxLatency {
				return fmt.Errorf("latency %s -> %s is %d, want within [%d, %d]",
					source.Name(), target.Name(), latency, c.MinLatency, c.MaxLatency)
			}
		}
	}
	return nil
}
