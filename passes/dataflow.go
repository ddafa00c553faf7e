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

package passes

import (
	"golang.org/x/tools/container/intsets"

	"github.com/ajroetker/go-hls/ir"
)

// bitmapTree tracks one integer set per leaf of a node's type. Propagating
// per leaf rather than per node keeps aggregate accesses precise: reading
// field 0 of a tuple does not import facts about field 1.
type bitmapTree = ir.LeafTypeTree[*intsets.Sparse]

// runBitmapDataflow computes a bitmapTree for every node in a single
// forward pass in topological order. handler may supply a node's value;
// when it returns nil the default rules apply: leaf-exact propagation
// through tuple and array construction and access, and for every other
// opcode each leaf receives the union of every leaf of every operand.
func runBitmapDataflow(fb *ir.FunctionBase, handler func(n *ir.Node) *bitmapTree) map[ir.NodeID]*bitmapTree {
	values := make(map[ir.NodeID]*bitmapTree, fb.NodeCount())

	for _, node := range fb.TopoSort() {
		if v := handler(node); v != nil {
			values[node.ID()] = v
			continue
		}
		values[node.ID()] = defaultBitmapValue(node, values)
	}
	return values
}

func defaultBitmapValue(node *ir.Node, values map[ir.NodeID]*bitmapTree) *bitmapTree {
	switch node.Op() {
	case ir.OpTuple, ir.OpArray:
		// The aggregate's leaves are the operands' leaves in order.
		var elements []*intsets.Sparse
		for _, operand := range node.Operands() {
			elements = append(elements, values[operand.ID()].Elements()...)
		}
		return ir.LeafTypeTreeFromElements(node.Type(), elements)

	case ir.OpTupleIndex:
		operand := node.Operand(0)
		tupleType := operand.Type().(*ir.TupleType)
		offset := tupleType.LeafOffset(node.Index)
		count := tupleType.ElementType(node.Index).LeafCount()
		elements := values[operand.ID()].Elements()[offset : offset+count]
		return ir.LeafTypeTreeFromElements(node.Type(), elements)

	case ir.OpArrayIndex:
		operand := node.Operand(0)
		arrayType := operand.Type().(*ir.ArrayType)
		elemLeaves := arrayType.ElementType().LeafCount()
		operandElements := values[operand.ID()].Elements()
		if node.Index >= 0 && node.Index < arrayType.Size() {
			offset := node.Index * elemLeaves
			elements := operandElements[offset : offset+elemLeaves]
			return ir.LeafTypeTreeFromElements(node.Type(), elements)
		}
		// Unknown index: each result leaf unions the matching leaf of every
		// array element.
		elements := make([]*intsets.Sparse, elemLeaves)
		for j := range elements {
			s := new(intsets.Sparse)
			for k := 0; k < arrayType.Size(); k++ {
				s.UnionWith(operandElements[k*elemLeaves+j])
			}
			elements[j] = s
		}
		return ir.LeafTypeTreeFromElements(node.Type(), elements)

	case ir.OpIdentity:
		operand := node.Operand(0)
		elements := make([]*intsets.Sparse, 0, node.Type().LeafCount())
		elements = append(elements, values[operand.ID()].Elements()...)
		return ir.LeafTypeTreeFromElements(node.Type(), elements)
	}

	// Conservative default: each leaf depends on everything any operand
	// depends on.
	flat := new(intsets.Sparse)
	for _, operand := range node.Operands() {
		for _, leaf := range values[operand.ID()].Elements() {
			flat.UnionWith(leaf)
		}
	}
	return ir.NewLeafTypeTree(node.Type(), func() *intsets.Sparse { return flat })
}

// flattenBitmaps returns the union of all leaf sets of a tree.
func flattenBitmaps(tree *bitmapTree) *intsets.Sparse {
	flat := new(intsets.Sparse)
	for _, leaf := range tree.Elements() {
		flat.UnionWith(leaf)
	}
	return flat
}
