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

import "github.com/ajroetker/go-hls/ir"

// CombinationalDelayConstraints returns the minimal set of timing edges
// which ensure that no combinational path in a schedule exceeds
// clockPeriodPS. The returned map has a (possibly empty) entry for every
// node. If the entry for node a contains node b, any legal schedule must
// place b at least one cycle after a:
//
//	cycle(b) >= cycle(a) + 1
//
// Edge (a, b) is present iff the critical-path distance from a to b,
// including the delays of both a and b, exceeds clockPeriodPS, while the
// distance of the same path not including b's delay does not. Recording the
// edge only at that first boundary crossing keeps the set minimal; longer
// paths through b are covered transitively.
func CombinationalDelayConstraints(fb *ir.FunctionBase, clockPeriodPS int64, delays DelayMap) map[ir.NodeID][]*ir.Node {
	count := fb.NodeCount()
	result := make(map[ir.NodeID][]*ir.Node, count)

	// Dense indices into the per-node distance vectors.
	nodeToIndex := make(map[ir.NodeID]int, count)
	indexToNode := make([]*ir.Node, count)
	for i, node := range fb.Nodes() {
		nodeToIndex[node.ID()] = i
		indexToNode[i] = node
		result[node.ID()] = nil
	}

	// All-pairs longest delay paths, one forward pass in topological order.
	// distancesToNode[v][i] is the longest path from node-at-index-i to v
	// including both endpoint delays, or -1 if no path exists.
	distancesToNode := make(map[ir.NodeID][]int64, count)

	for _, node := range fb.TopoSort() {
		nodeIndex := nodeToIndex[node.ID()]
		nodeDelay := delays[node.ID()]
		distances := make([]int64, count)
		for i := range distances {
			distances[i] = -1
		}

		for _, operand := range node.Operands() {
			distancesToOperand := distancesToNode[operand.ID()]
			for i := 0; i < count; i++ {
				operandDistance := distancesToOperand[i]
				if operandDistance == -1 {
					continue
				}
				if distances[i] < operandDistance+nodeDelay {
					distances[i] = operandDistance + nodeDelay
					if operandDistance <= clockPeriodPS && operandDistance+nodeDelay > clockPeriodPS {
						source := indexToNode[i]
						result[source.ID()] = append(result[source.ID()], node)
					}
				}
			}
		}

		distances[nodeIndex] = nodeDelay
		distancesToNode[node.ID()] = distances
	}

	return result
}
