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

// Package passes holds IR-to-IR optimization passes run before or after
// scheduling.
package passes

import (
	"fmt"

	"golang.org/x/tools/container/intsets"

	"github.com/ajroetker/go-hls/ir"
)

// OptimizeProcState removes state elements of a proc whose values cannot
// influence any observable operation: zero-width elements and elements no
// side-effecting node transitively depends on. Uses of removed state
// parameters are rewritten to zero literals, so the proc's observable I/O
// behavior over any finite execution is unchanged. Reports whether the proc
// was modified. The pass is idempotent.
func OptimizeProcState(proc *ir.Proc) (bool, error) {
	changed := false

	zeroWidthChanged, err := removeZeroWidthStateElements(proc)
	if err != nil {
		return false, err
	}
	changed = changed || zeroWidthChanged

	unobservableChanged, err := removeUnobservableStateElements(proc)
	if err != nil {
		return false, err
	}
	changed = changed || unobservableChanged

	return changed, nil
}

func removeZeroWidthStateElements(proc *ir.Proc) (bool, error) {
	var toRemove []int
	for i := proc.StateElementCount() - 1; i >= 0; i-- {
		if proc.StateType(i).FlatBitCount() == 0 {
			toRemove = append(toRemove, i)
		}
	}
	if len(toRemove) == 0 {
		return false, nil
	}
	for _, i := range toRemove {
		param := proc.StateParam(i)
		proc.ReplaceUsesWith(param, proc.ZeroLiteral(proc.StateType(i)))
		if err := proc.RemoveStateElement(i); err != nil {
			return false, fmt.Errorf("remove zero-width state element %s: %w", param.Name(), err)
		}
	}
	return true, nil
}

// computeStateDependencies returns, for each node, the set of state element
// indices the node's value transitively depends on. Dependencies are
// computed in a single forward pass, so the semantic back edge from a
// next-state value to its state parameter is not followed here; the
// union-find closure below accounts for it.
func computeStateDependencies(proc *ir.Proc) map[ir.NodeID]*intsets.Sparse {
	values := runBitmapDataflow(&proc.FunctionBase, func(n *ir.Node) *bitmapTree {
		if n.Op() != ir.OpParam || n == proc.TokenParam() {
			return nil
		}
		// A state parameter depends only on itself, in every leaf.
		index, err := proc.StateParamIndex(n)
		if err != nil {
			return nil
		}
		bitmap := new(intsets.Sparse)
		bitmap.Insert(index)
		return ir.NewLeafTypeTree(n.Type(), func() *intsets.Sparse { return bitmap })
	})

	dependencies := make(map[ir.NodeID]*intsets.Sparse, proc.NodeCount())
	for id, tree := range values {
		dependencies[id] = flattenBitmaps(tree)
	}
	return dependencies
}

// removeUnobservableStateElements removes state elements that are not
// observable. A state element X is observable iff:
//
//	(1) a side-effecting operation depends on X, or
//	(2) the next-state value of an observable state element depends on X.
//
// The least fixed point of this definition is computed without iteration:
// state indices whose next-state values depend on each other are merged in
// a union-find, and the class holding any directly-observed index is the
// class of all observable indices.
func removeUnobservableStateElements(proc *ir.Proc) (bool, error) {
	dependencies := computeStateDependencies(proc)

	// Map from node to the state element indices for which the node is the
	// next-state value.
	nextStateIndices := make(map[ir.NodeID][]int)
	for i := 0; i < proc.StateElementCount(); i++ {
		next := proc.NextStateElement(i)
		nextStateIndices[next.ID()] = append(nextStateIndices[next.ID()], i)
	}

	components := newUnionFind(proc.StateElementCount())

	// observableRep, when non-negative, is a member of the equivalence
	// class of observable state indices. Parameters are deliberately not
	// treated as side-effecting here: observability is defined over
	// non-parameter side effects only.
	observableRep := -1

	for _, node := range proc.Nodes() {
		deps := dependencies[node.ID()]
		if node.Op().SideEffecting() && node.Op() != ir.OpParam {
			for i := 0; i < proc.StateElementCount(); i++ {
				if !deps.Has(i) {
					continue
				}
				if observableRep < 0 {
					observableRep = i
				} else {
					components.union(i, observableRep)
				}
			}
		}
		for _, nextIndex := range nextStateIndices[node.ID()] {
			for i := 0; i < proc.StateElementCount(); i++ {
				if deps.Has(i) {
					components.union(i, nextIndex)
				}
			}
		}
	}
	if observableRep >= 0 {
		observableRep = components.find(observableRep)
	}

	var toRemove []int
	for i := proc.StateElementCount() - 1; i >= 0; i-- {
		if observableRep < 0 || components.find(i) != observableRep {
			toRemove = append(toRemove, i)
		}
	}
	if len(toRemove) == 0 {
		return false, nil
	}

	for _, i := range toRemove {
		param := proc.StateParam(i)
		if !param.IsDead() {
			proc.ReplaceUsesWith(param, proc.ZeroLiteral(param.Type()))
		}
	}
	for _, i := range toRemove {
		if err := proc.RemoveStateElement(i); err != nil {
			return false, fmt.Errorf("remove unobservable state element: %w", err)
		}
	}
	return true, nil
}
