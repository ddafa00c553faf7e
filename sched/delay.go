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

// Package sched lowers a dataflow IR into a pipeline schedule: it decides,
// subject to clock-period and resource constraints, in which pipeline stage
// each operation executes. The core is an SDC (system of difference
// constraints) formulation solved as a linear program whose constraint
// matrix is totally unimodular, so the relaxation returns integer optima.
package sched

import (
	"fmt"

	"github.com/ajroetker/go-hls/ir"
)

// DelayEstimator is the oracle mapping each node to its combinational delay.
type DelayEstimator interface {
	// OperationDelay returns the node's combinational delay in picoseconds.
	OperationDelay(n *ir.Node) (int64, error)
}

// DelayFunc adapts a plain function to the DelayEstimator interface.
type DelayFunc func(n *ir.Node) (int64, error)

func (f DelayFunc) OperationDelay(n *ir.Node) (int64, error) { return f(n) }

// FixedDelay is a DelayEstimator assigning the same delay to every node
// except parameters and literals, which are free.
type FixedDelay int64

func (d FixedDelay) OperationDelay(n *ir.Node) (int64, error) {
	switch n.Op() {
	case ir.OpParam, ir.OpLiteral:
		return 0, nil
	}
	return int64(d), nil
}

// DelayMap holds the precomputed delay of every node in a function.
type DelayMap map[ir.NodeID]int64

// ComputeNodeDelays evaluates the estimator once per node.
func ComputeNodeDelays(fb *ir.FunctionBase, estimator DelayEstimator) (DelayMap, error) {
	result := make(DelayMap, fb.NodeCount())
	for _, node := range fb.Nodes() {
		delay, err := estimator.OperationDelay(node)
		if err != nil {
			return nil, fmt.Errorf("delay of %s: %w", node.Name(), err)
		}
		result[node.ID()] = delay
	}
	return result, nil
}
