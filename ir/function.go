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

package ir

import "fmt"

// FunctionBase is the common representation shared by functions and procs: a
// collection of nodes whose operand edges form a DAG.
type FunctionBase struct {
	name   string
	nodes  []*Node
	params []*Node
	nextID NodeID

	// Implicit-use hooks, set by the owning Function or Proc. A node has an
	// implicit use when its value escapes the function other than through an
	// operand edge (a function's return value, a proc's next-token and
	// next-state values).
	hasImplicitUse      func(n *Node) bool
	replaceImplicitUses func(old, repl *Node)
}

// Name returns the function's name.
func (fb *FunctionBase) Name() string { return fb.name }

// Nodes returns all nodes in creation order. Callers must not mutate the
// returned slice.
func (fb *FunctionBase) Nodes() []*Node { return fb.nodes }

// NodeCount returns the number of nodes.
func (fb *FunctionBase) NodeCount() int { return len(fb.nodes) }

// Params returns the parameter nodes in creation order.
func (fb *FunctionBase) Params() []*Node { return fb.params }

// AddNode creates a node with the given opcode, result type, name and
// operands and appends it to the function. An empty name is replaced with a
// generated one. User edges of the operands are updated.
func (fb *FunctionBase) AddNode(op Op, typ Type, name string, operands ...*Node) *Node {
	id := fb.nextID
	fb.nextID++
	if name == "" {
		name = fmt.Sprintf("%s.%d", op, id)
	}
	n := &Node{
		id:       id,
		op:       op,
		name:     name,
		typ:      typ,
		operands: operands,
		fb:       fb,
		Index:    -1,
	}
	for _, operand := range operands {
		operand.addUser(n)
	}
	fb.nodes = append(fb.nodes, n)
	if op == OpParam {
		fb.params = append(fb.params, n)
	}
	return n
}

// AddParam creates a parameter node.
func (fb *FunctionBase) AddParam(name string, typ Type) *Node {
	return fb.AddNode(OpParam, typ, name)
}

// ZeroLiteral creates a literal node holding the all-zeros value of typ.
func (fb *FunctionBase) ZeroLiteral(typ Type) *Node {
	return fb.AddNode(OpLiteral, typ, "")
}

// HasImplicitUse reports whether the node's value escapes the function
// other than through an operand edge.
func (fb *FunctionBase) HasImplicitUse(n *Node) bool {
	return fb.hasImplicitUse != nil && fb.hasImplicitUse(n)
}

// ReplaceUsesWith rewrites every use of n (operand edges and implicit uses)
// to refer to repl instead. n itself is left in the graph without users.
func (fb *FunctionBase) ReplaceUsesWith(n, repl *Node) {
	if n == repl {
		return
	}
	users := make([]*Node, len(n.users))
	copy(users, n.users)
	for _, user := range users {
		for i, operand := range user.operands {
			if operand == n {
				user.operands[i] = repl
			}
		}
		repl.addUser(user)
	}
	n.users = n.users[:0]
	if fb.replaceImplicitUses != nil {
		fb.replaceImplicitUses(n, repl)
	}
}

// RemoveNode deletes a node without users from the function and detaches it
// from its operands' user lists.
func (fb *FunctionBase) RemoveNode(n *Node) error {
	if len(n.users) != 0 {
		return fmt.Errorf("remove node %s: still has %d users", n.name, len(n.users))
	}
	for _, operand := range n.operands {
		operand.removeUserAlways(n)
	}
	n.operands = nil
	fb.nodes = removeNodeFromSlice(fb.nodes, n)
	if n.op == OpParam {
		fb.params = removeNodeFromSlice(fb.params, n)
	}
	return nil
}

func removeNodeFromSlice(nodes []*Node, n *Node) []*Node {
	for i, m := range nodes {
		if m == n {
			return append(nodes[:i], nodes[i+1:]...)
		}
	}
	return nodes
}

// removeUserAlways drops user from n's user list unconditionally.
func (n *Node) removeUserAlways(user *Node) {
	for i, u := range n.users {
		if u == user {
			n.users = append(n.users[:i], n.users[i+1:]...)
			return
		}
	}
}

// TopoSort returns the nodes in a deterministic topological order: a node
// appears after all of its operands. Determinism comes from visiting nodes
// in creation order and operands in operand order.
func (fb *FunctionBase) TopoSort() []*Node {
	result := make([]*Node, 0, len(fb.nodes))
	visited := make(map[NodeID]bool, len(fb.nodes))

	var visit func(*Node)
	visit = func(n *Node) {
		if visited[n.id] {
			return
		}
		visited[n.id] = true
		for _, operand := range n.operands {
			visit(operand)
		}
		result = append(result, n)
	}

	for _, n := range fb.nodes {
		visit(n)
	}
	return result
}

// Function is a pure combinational computation with a single return value.
type Function struct {
	FunctionBase
	ret *Node
}

// NewFunction creates an empty function.
func NewFunction(name string) *Function {
	f := &Function{FunctionBase: FunctionBase{name: name}}
	f.hasImplicitUse = func(n *Node) bool { return n == f.ret }
	f.replaceImplicitUses = func(old, repl *Node) {
		if f.ret == old {
			f.ret = repl
		}
	}
	return f
}

// SetReturn designates the function's return value.
func (f *Function) SetReturn(n *Node) { f.ret = n }

// Return returns the function's return value node, nil if not set.
func (f *Function) Return() *Node { return f.ret }

// Proc is a stateful, channel-communicating process. Each iteration consumes
// the current state element values through state parameter nodes and
// produces the next iteration's values through designated next-state nodes.
// The back edge from next-state to state parameter is semantic, not an
// operand edge, so the node graph stays acyclic.
type Proc struct {
	FunctionBase
	tokenParam  *Node
	nextToken   *Node
	stateParams []*Node
	nextState   []*Node
}

// NewProc creates a proc with a token parameter and no state elements. The
// next-token value initially designates the token parameter itself.
func NewProc(name string) *Proc {
	p := &Proc{FunctionBase: FunctionBase{name: name}}
	p.hasImplicitUse = func(n *Node) bool {
		if n == p.nextToken {
			return true
		}
		for _, ns := range p.nextState {
			if n == ns {
				return true
			}
		}
		return false
	}
	p.replaceImplicitUses = func(old, repl *Node) {
		if p.nextToken == old {
			p.nextToken = repl
		}
		for i, ns := range p.nextState {
			if ns == old {
				p.nextState[i] = repl
			}
		}
	}
	p.tokenParam = p.AddParam("tok", Token())
	p.nextToken = p.tokenParam
	return p
}

// TokenParam returns the distinguished token parameter.
func (p *Proc) TokenParam() *Node { return p.tokenParam }

// SetNextToken designates the node producing the next iteration's token.
func (p *Proc) SetNextToken(n *Node) { p.nextToken = n }

// NextToken returns the node producing the next iteration's token.
func (p *Proc) NextToken() *Node { return p.nextToken }

// StateElementCount returns the number of state elements.
func (p *Proc) StateElementCount() int { return len(p.stateParams) }

// StateParam returns the parameter node exposing state element i's current
// value.
func (p *Proc) StateParam(i int) *Node { return p.stateParams[i] }

// StateType returns the type of state element i.
func (p *Proc) StateType(i int) Type { return p.stateParams[i].typ }

// NextStateElement returns the node producing state element i's next value.
func (p *Proc) NextStateElement(i int) *Node { return p.nextState[i] }

// SetNextStateElement designates the node producing state element i's next
// value. The node's type must match the state element's type.
func (p *Proc) SetNextStateElement(i int, n *Node) error {
	if !TypesEqual(n.typ, p.stateParams[i].typ) {
		return fmt.Errorf("next-state of %s: type mismatch: state is %s, node %s is %s",
			p.stateParams[i].name, p.stateParams[i].typ, n.name, n.typ)
	}
	p.nextState[i] = n
	return nil
}

// AppendStateElement adds a state element of the given type and returns its
// state parameter node. The next-state value initially designates the
// parameter itself (the element holds its value).
func (p *Proc) AppendStateElement(name string, typ Type) *Node {
	param := p.AddParam(name, typ)
	p.stateParams = append(p.stateParams, param)
	p.nextState = append(p.nextState, param)
	return param
}

// StateParamIndex returns the state element index of a state parameter node.
func (p *Proc) StateParamIndex(param *Node) (int, error) {
	for i, sp := range p.stateParams {
		if sp == param {
			return i, nil
		}
	}
	return 0, fmt.Errorf("node %s is not a state parameter of proc %s", param.name, p.name)
}

// RemoveStateElement deletes state element i. The state parameter must be
// dead; callers rewrite its uses first. Elements above i shift down by one.
func (p *Proc) RemoveStateElement(i int) error {
	param := p.stateParams[i]
	if !param.IsDead() {
		return fmt.Errorf("remove state element %s: parameter still has users", param.name)
	}
	p.stateParams = append(p.stateParams[:i], p.stateParams[i+1:]...)
	p.nextState = append(p.nextState[:i], p.nextState[i+1:]...)
	return p.RemoveNode(param)
}
