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
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ajroetker/go-hls/sched"
)

const testGraph = `{
  "name": "mul_add",
  "nodes": [
    {"name": "x", "op": "param", "width": 8},
    {"name": "y", "op": "param", "width": 8},
    {"name": "c", "op": "literal", "width": 8, "value": 3},
    {"name": "m", "op": "umul", "width": 8, "operands": ["x", "c"], "delay_ps": 700},
    {"name": "z", "op": "add", "width": 8, "operands": ["m", "y"], "delay_ps": 500}
  ],
  "return": "z"
}`

func writeTestGraph(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing test graph: %v", err)
	}
	return path
}

func TestReadGraph(t *testing.T) {
	f, estimator, err := ReadGraph(writeTestGraph(t, testGraph))
	if err != nil {
		t.Fatalf("ReadGraph: %v", err)
	}
	if f.Name() != "mul_add" {
		t.Errorf("function name = %q, want mul_add", f.Name())
	}
	if got := f.NodeCount(); got != 5 {
		t.Errorf("NodeCount() = %d, want 5", got)
	}
	if f.Return() == nil || f.Return().Name() != "z" {
		t.Errorf("return node not wired to z")
	}

	for _, node := range f.Nodes() {
		if node.Name() == "m" {
			delay, err := estimator.OperationDelay(node)
			if err != nil || delay != 700 {
				t.Errorf("delay of m = %d, %v, want 700, nil", delay, err)
			}
		}
	}
}

func TestReadGraphErrors(t *testing.T) {
	tests := []struct {
		name  string
		graph string
	}{
		{"unknownOp", `{"name":"g","nodes":[{"name":"a","op":"frobnicate","width":1}]}`},
		{"undefinedOperand", `{"name":"g","nodes":[{"name":"a","op":"not","width":1,"operands":["ghost"]}]}`},
		{"duplicateName", `{"name":"g","nodes":[{"name":"a","op":"param","width":1},{"name":"a","op":"param","width":1}]}`},
		{"undefinedReturn", `{"name":"g","nodes":[{"name":"a","op":"param","width":1}],"return":"ghost"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ReadGraph(writeTestGraph(t, tt.graph)); err == nil {
				t.Errorf("ReadGraph accepted an invalid graph")
			}
		})
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	f, estimator, err := ReadGraph(writeTestGraph(t, testGraph))
	if err != nil {
		t.Fatalf("ReadGraph: %v", err)
	}
	cm, err := sched.Schedule(&f.FunctionBase, 2, 1000, estimator, nil, nil)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	out := filepath.Join(t.TempDir(), "schedule.json")
	if err := WriteSchedule(out, f, 2, cm); err != nil {
		t.Fatalf("WriteSchedule: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading schedule: %v", err)
	}
	var sj ScheduleJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		t.Fatalf("parsing schedule: %v", err)
	}

	// The 700ps multiply and 500ps add cannot share a 1000ps cycle, and y
	// moves to stage 1 so its value needs no pipeline register.
	want := map[string]int{"x": 0, "y": 1, "c": 0, "m": 0, "z": 1}
	if diff := cmp.Diff(want, sj.Cycles); diff != "" {
		t.Errorf("schedule mismatch (-want +got):\n%s", diff)
	}
}
