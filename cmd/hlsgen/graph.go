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

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ajroetker/go-hls/ir"
	"github.com/ajroetker/go-hls/sched"
)

// GraphJSON is the on-disk description of a dataflow graph to schedule.
// Nodes reference their operands by name and must appear after them.
type GraphJSON struct {
	Name   string     `json:"name"`
	Nodes  []NodeJSON `json:"nodes"`
	Return string     `json:"return"`
}

// NodeJSON is one operation of the graph.
type NodeJSON struct {
	Name     string   `json:"name"`
	Op       string   `json:"op"`
	Width    int      `json:"width"`
	Operands []string `json:"operands"`
	DelayPS  int64    `json:"delay_ps"`
	Value    uint64   `json:"value"`
}

var opsByName = map[string]ir.Op{
	"param":    ir.OpParam,
	"literal":  ir.OpLiteral,
	"add":      ir.OpAdd,
	"sub":      ir.OpSub,
	"umul":     ir.OpUMul,
	"neg":      ir.OpNeg,
	"not":      ir.OpNot,
	"and":      ir.OpAnd,
	"or":       ir.OpOr,
	"xor":      ir.OpXor,
	"concat":   ir.OpConcat,
	"sel":      ir.OpSel,
	"identity": ir.OpIdentity,
}

// ReadGraph parses a graph description and builds the function plus a
// delay estimator reproducing the file's per-node delays.
func ReadGraph(filename string) (*ir.Function, sched.DelayEstimator, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("reading graph file: %w", err)
	}

	var gj GraphJSON
	if err := json.Unmarshal(data, &gj); err != nil {
		return nil, nil, fmt.Errorf("parsing graph JSON: %w", err)
	}

	f := ir.NewFunction(gj.Name)
	byName := make(map[string]*ir.Node, len(gj.Nodes))
	delays := make(map[string]int64, len(gj.Nodes))

	for _, nj := range gj.Nodes {
		op, ok := opsByName[nj.Op]
		if !ok {
			return nil, nil, fmt.Errorf("node %s: unknown op %q", nj.Name, nj.Op)
		}
		if _, dup := byName[nj.Name]; dup {
			return nil, nil, fmt.Errorf("duplicate node name %q", nj.Name)
		}
		operands := make([]*ir.Node, len(nj.Operands))
		for i, operandName := range nj.Operands {
			operand, ok := byName[operandName]
			if !ok {
				return nil, nil, fmt.Errorf("node %s: operand %q not defined before use", nj.Name, operandName)
			}
			operands[i] = operand
		}
		node := f.AddNode(op, ir.Bits(nj.Width), nj.Name, operands...)
		if op == ir.OpLiteral {
			node.Value = nj.Value
		}
		byName[nj.Name] = node
		delays[nj.Name] = nj.DelayPS
	}

	if gj.Return != "" {
		ret, ok := byName[gj.Return]
		if !ok {
			return nil, nil, fmt.Errorf("return node %q not defined", gj.Return)
		}
		f.SetReturn(ret)
	}

	estimator := sched.DelayFunc(func(n *ir.Node) (int64, error) {
		return delays[n.Name()], nil
	})
	return f, estimator, nil
}

// ScheduleJSON is the output form: node name to pipeline stage.
type ScheduleJSON struct {
	Name   string         `json:"name"`
	Stages int64          `json:"stages"`
	Cycles map[string]int `json:"cycles"`
}

// WriteSchedule writes the schedule as JSON to filename, or to stdout when
// filename is "-".
func WriteSchedule(filename string, f *ir.Function, stages int64, cm sched.CycleMap) error {
	sj := ScheduleJSON{
		Name:   f.Name(),
		Stages: stages,
		Cycles: make(map[string]int, len(cm)),
	}
	for _, node := range f.Nodes() {
		sj.Cycles[node.Name()] = cm[node.ID()]
	}

	data, err := json.MarshalIndent(sj, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling schedule: %w", err)
	}
	data = append(data, '\n')

	if filename == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
