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

// Constraint is a user-supplied restriction on the schedule. The concrete
// types are IOConstraint and RecvsFirstSendsLast.
type Constraint interface {
	isConstraint()
}

// IOConstraint bounds the latency between pairs of channel operations: for
// every source operation on SourceChannel with SourceDirection and every
// target operation on TargetChannel with TargetDirection,
//
//	MinLatency <= cycle(target) - cycle(source) <= MaxLatency
//
// A constraint naming a channel with no matching operations in the function
// contributes nothing.
type IOConstraint struct {
	SourceChannel   string
	SourceDirection ir.ChannelDirection
	TargetChannel   string
	TargetDirection ir.ChannelDirection
	MinLatency      int64
	MaxLatency      int64
}

func (IOConstraint) isConstraint() {}

// RecvsFirstSendsLast forces every receive into cycle 0 and every send into
// the last cycle of the pipeline.
type RecvsFirstSendsLast struct{}

func (RecvsFirstSendsLast) isConstraint() {}
