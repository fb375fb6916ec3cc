// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/awslabs/argot-bytecode/analysis"
	"github.com/awslabs/argot-bytecode/cmd/argot-bc/issues"
	"github.com/awslabs/argot-bytecode/cmd/argot-bc/scan"
	"github.com/awslabs/argot-bytecode/cmd/argot-bc/stats"
	"github.com/awslabs/argot-bytecode/cmd/argot-bc/tools"
	"github.com/awslabs/argot-bytecode/cmd/argot-bc/trace"
)

const usage = `Argot-bc: bytecode defect detectors
Usage:
  argot-bc [tool] [options] <class listing path(s)>
Tools:
  - scan: runs the defect detectors on class listings and reports the findings
  - trace: prints the symbolic stack and control-flow facts before each instruction of routines
  - stats: prints statistics about class listings, including recursive routines
  - issues: lists and evaluates the issues recorded in an issue database
Examples:
  Scan a directory of listings: argot-bc scan -config config.yaml classes/
  Trace a routine: argot-bc trace -routine bar Foo.yaml`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "error: expected subcommand\n%s\n", usage)
		os.Exit(2)
	}

	// hardcode help flag
	if snd := os.Args[1]; snd == "-help" || snd == "--help" {
		fmt.Println(usage)
		return
	}

	// hardcode version flag
	if snd := os.Args[1]; snd == "-version" || snd == "--version" {
		fmt.Println(analysis.Version)
		return
	}

	args := os.Args[2:]
	switch cmd := os.Args[1]; cmd {
	case "scan":
		flags, err := scan.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := scan.Run(flags); err != nil {
			errExit(err)
		}
	case "trace":
		flags, err := trace.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := trace.Run(flags); err != nil {
			errExit(err)
		}
	case "stats":
		flags, err := stats.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := stats.Run(flags); err != nil {
			errExit(err)
		}
	case "issues":
		flags, err := issues.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := issues.Run(flags); err != nil {
			errExit(err)
		}
	default:
		fmt.Fprintf(os.Stderr, "error: unexpected command: %v\n", cmd)
		fmt.Fprintf(os.Stderr, "usage:\n%s\n", usage)
		os.Exit(2)
	}
}

func errExit(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	hint := tools.HintForErrorMessage(err.Error())
	if hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	}
	os.Exit(2)
}
