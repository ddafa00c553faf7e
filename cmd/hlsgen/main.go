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

// Command hlsgen schedules a dataflow graph into pipeline stages.
//
// Usage:
//
//	hlsgen -input graph.json -stages 3 -clock-ps 1000
//	hlsgen -input graph.json -stages 3 -clock-ps 1000 -output schedule.json
//
// The input is a JSON graph description (see GraphJSON); the output maps
// every node to the pipeline stage it executes in. When the requested
// number of stages is infeasible, rerun with more stages or a longer clock
// period.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ajroetker/go-hls/sched"
)

var (
	inputFile  = flag.String("input", "", "Input graph JSON file (required)")
	outputFile = flag.String("output", "-", "Output schedule JSON file, '-' for stdout")
	stages     = flag.Int64("stages", 1, "Number of pipeline stages")
	clockPS    = flag.Int64("clock-ps", 1000, "Clock period in picoseconds")
	verbose    = flag.Bool("v", false, "Verbose output for debugging")
)

func main() {
	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -input flag is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	f, estimator, err := ReadGraph(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		fmt.Fprintf(os.Stderr, "Read %s: %d nodes\n", f.Name(), f.NodeCount())
	}

	cm, err := sched.Schedule(&f.FunctionBase, *stages, *clockPS, estimator, nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: scheduling %s: %v\n", f.Name(), err)
		os.Exit(1)
	}

	if *verbose {
		for cycle := 0; int64(cycle) < *stages; cycle++ {
			count := 0
			for _, c := range cm {
				if c == cycle {
					count++
				}
			}
			fmt.Fprintf(os.Stderr, "  stage %d: %d nodes\n", cycle, count)
		}
	}

	if err := WriteSchedule(*outputFile, f, *stages, cm); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
