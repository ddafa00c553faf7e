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
	"testing"

	"github.com/ajroetker/go-hls/ir"
)

// stateNames lists the names of a proc's surviving state parameters.
func stateNames(p *ir.Proc) []string {
	names := make([]string, p.StateElementCount())
	for i := range names {
		names[i] = p.StateParam(i).Name()
	}
	return names
}

// addCounter appends a state element whose next value is itself plus one.
func addCounter(p *ir.Proc, name string, width int) *ir.Node {
	s := p.AppendStateElement(name, ir.Bits(width))
	one := p.AddNode(ir.OpLiteral, ir.Bits(width), "")
	one.Value = 1
	next := p.AddNode(ir.OpAdd, ir.Bits(width), "", s, one)
	if err := p.SetNextStateElement(p.StateElementCount()-1, next); err != nil {
		panic(err)
	}
	return s
}

// addSendOf appends a send of the given data node and threads the token.
func addSendOf(p *ir.Proc, channel string, data *ir.Node) *ir.Node {
	snd := p.AddNode(ir.OpSend, ir.Token(), "", p.NextToken(), data)
	snd.Channel = channel
	p.SetNextToken(snd)
	return snd
}

func TestEmptyProcUnchanged(t *testing.T) {
	p := ir.NewProc("empty")
	changed, err := OptimizeProcState(p)
	if err != nil {
		t.Fatalf("OptimizeProcState: %v", err)
	}
	if changed {
		t.Errorf("empty proc reported as changed")
	}
}

func TestZeroWidthStateRemoved(t *testing.T) {
	p := ir.NewProc("zw")
	s0 := addCounter(p, "s0", 8)
	addSendOf(p, "out", s0)

	s1 := p.AppendStateElement("s1", ir.Bits(0))
	use := p.AddNode(ir.OpIdentity, ir.Bits(0), "use", s1)
	if err := p.SetNextStateElement(1, use); err != nil {
		t.Fatalf("SetNextStateElement: %v", err)
	}

	changed, err := OptimizeProcState(p)
	if err != nil {
		t.Fatalf("OptimizeProcState: %v", err)
	}
	if !changed {
		t.Fatalf("zero-width state element not removed")
	}
	if got := stateNames(p); len(got) != 1 || got[0] != "s0" {
		t.Fatalf("surviving state = %v, want [s0]", got)
	}
	// The former use now reads a zero literal of the removed type.
	if op := use.Operand(0); op.Op() != ir.OpLiteral || op.Type().FlatBitCount() != 0 {
		t.Errorf("use operand = %s (%s), want zero-width literal", op.Name(), op.Op())
	}

	changed, err = OptimizeProcState(p)
	if err != nil {
		t.Fatalf("second OptimizeProcState: %v", err)
	}
	if changed {
		t.Errorf("second run reported changes; the pass must be idempotent")
	}
}

func TestUnobservableStateRemoved(t *testing.T) {
	p := ir.NewProc("counters")
	addCounter(p, "s0", 8)
	s1 := addCounter(p, "s1", 8)
	addSendOf(p, "out", s1)

	changed, err := OptimizeProcState(p)
	if err != nil {
		t.Fatalf("OptimizeProcState: %v", err)
	}
	if !changed {
		t.Fatalf("unobservable counter not removed")
	}
	if got := stateNames(p); len(got) != 1 || got[0] != "s1" {
		t.Fatalf("surviving state = %v, want [s1]", got)
	}
}

func TestMutuallySupportingStateRemoved(t *testing.T) {
	p := ir.NewProc("mutual")
	s0 := p.AppendStateElement("s0", ir.Bits(8))
	s1 := p.AppendStateElement("s1", ir.Bits(8))
	// Each element's next value is the other; neither reaches a side effect.
	n0 := p.AddNode(ir.OpIdentity, ir.Bits(8), "n0", s1)
	n1 := p.AddNode(ir.OpIdentity, ir.Bits(8), "n1", s0)
	if err := p.SetNextStateElement(0, n0); err != nil {
		t.Fatalf("SetNextStateElement(0): %v", err)
	}
	if err := p.SetNextStateElement(1, n1); err != nil {
		t.Fatalf("SetNextStateElement(1): %v", err)
	}

	changed, err := OptimizeProcState(p)
	if err != nil {
		t.Fatalf("OptimizeProcState: %v", err)
	}
	if !changed {
		t.Fatalf("mutually supporting unobservable pair not removed")
	}
	if got := p.StateElementCount(); got != 0 {
		t.Fatalf("StateElementCount() = %d, want 0", got)
	}
}

func TestMutualSupportReachingSideEffectSurvives(t *testing.T) {
	p := ir.NewProc("pingpong")
	s0 := p.AppendStateElement("s0", ir.Bits(8))
	s1 := p.AppendStateElement("s1", ir.Bits(8))
	n0 := p.AddNode(ir.OpIdentity, ir.Bits(8), "n0", s1)
	n1 := p.AddNode(ir.OpIdentity, ir.Bits(8), "n1", s0)
	if err := p.SetNextStateElement(0, n0); err != nil {
		t.Fatalf("SetNextStateElement(0): %v", err)
	}
	if err := p.SetNextStateElement(1, n1); err != nil {
		t.Fatalf("SetNextStateElement(1): %v", err)
	}
	// s0 reaches a send, so the whole equivalence class is observable.
	addSendOf(p, "out", s0)

	changed, err := OptimizeProcState(p)
	if err != nil {
		t.Fatalf("OptimizeProcState: %v", err)
	}
	if changed {
		t.Errorf("observable mutually supporting pair was modified")
	}
	if got := p.StateElementCount(); got != 2 {
		t.Errorf("StateElementCount() = %d, want 2", got)
	}
}

func TestTupleAccessKeepsLeafPrecision(t *testing.T) {
	p := ir.NewProc("tuples")
	s0 := p.AppendStateElement("s0", ir.Bits(8))
	s1 := p.AppendStateElement("s1", ir.Bits(8))

	// Pack both states into a tuple but only send field 1; reading field 1
	// must not make s0 observable.
	pair := p.AddNode(ir.OpTuple, ir.Tuple(ir.Bits(8), ir.Bits(8)), "pair", s0, s1)
	field1 := p.AddNode(ir.OpTupleIndex, ir.Bits(8), "field1", pair)
	field1.Index = 1
	addSendOf(p, "out", field1)

	one := p.AddNode(ir.OpLiteral, ir.Bits(8), "")
	one.Value = 1
	next0 := p.AddNode(ir.OpAdd, ir.Bits(8), "", s0, one)
	next1 := p.AddNode(ir.OpAdd, ir.Bits(8), "", s1, one)
	if err := p.SetNextStateElement(0, next0); err != nil {
		t.Fatalf("SetNextStateElement(0): %v", err)
	}
	if err := p.SetNextStateElement(1, next1); err != nil {
		t.Fatalf("SetNextStateElement(1): %v", err)
	}

	changed, err := OptimizeProcState(p)
	if err != nil {
		t.Fatalf("OptimizeProcState: %v", err)
	}
	if !changed {
		t.Fatalf("s0 should be removed: only field 1 of the tuple is sent")
	}
	if got := stateNames(p); len(got) != 1 || got[0] != "s1" {
		t.Fatalf("surviving state = %v, want [s1]", got)
	}
}

func TestOptimizeIsIdempotent(t *testing.T) {
	p := ir.NewProc("idem")
	addCounter(p, "dead", 4)
	live := addCounter(p, "live", 4)
	addSendOf(p, "out", live)

	changed, err := OptimizeProcState(p)
	if err != nil {
		t.Fatalf("OptimizeProcState: %v", err)
	}
	if !changed {
		t.Fatalf("first run should remove the dead counter")
	}

	changed, err = OptimizeProcState(p)
	if err != nil {
		t.Fatalf("second OptimizeProcState: %v", err)
	}
	if changed {
		t.Errorf("second run reported changes; the pass must be idempotent")
	}
}
