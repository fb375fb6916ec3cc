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

// Package stats implements the front-end printing statistics about class listings.
package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/awslabs/argot-bytecode/analysis"
	"github.com/awslabs/argot-bytecode/analysis/bytecode"
	"github.com/awslabs/argot-bytecode/analysis/render"
	"github.com/awslabs/argot-bytecode/cmd/argot-bc/tools"
	"github.com/awslabs/argot-bytecode/internal/graphutil"
)

// Flags represents the flags for the stats sub-tool.
type Flags struct {
	tools.CommonFlags
	outputJSON bool
	dotDir     string
}

// NewFlags returns parsed flags for stats.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("stats")
	outputJSON := flags.FlagSet.Bool("json", false, "output results as JSON")
	dotDir := flags.FlagSet.String("dot", "", "directory where the call graph of each class is written in GraphViz format")
	tools.SetUsage(flags.FlagSet, usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	return Flags{CommonFlags: common, outputJSON: *outputJSON, dotDir: *dotDir}, nil
}

const usage = `Compute statistics about class listings: routines, instructions by kind and recursive routines.

Usage:
  argot-bc stats [options] listing...

Use the -help flag to display the options.

Examples:
% argot-bc stats -dot graphs/ classes/
`

// Run runs the statistics on the classes of the listings in the arguments that match the class filter of the
// config.
func Run(flags Flags) error {
	return run(flags, os.Stdout)
}

// jsonStatistics is the JSON representation of the statistics, with kinds as names
type jsonStatistics struct {
	Classes         uint            `json:"classes"`
	Routines        uint            `json:"routines"`
	Instructions    uint            `json:"instructions"`
	ByKind          map[string]uint `json:"by-kind"`
	RecursiveGroups []string        `json:"recursive-groups"`
	Cycles          uint            `json:"cycles"`
}

func run(flags Flags, w io.Writer) error {
	cfg, err := tools.LoadConfig(flags.ConfigPath, flags.Verbose)
	if err != nil {
		return err
	}
	loaded, err := analysis.LoadClasses(flags.FlagSet.Args())
	if err != nil {
		return err
	}
	var classes []*bytecode.Class
	for _, class := range loaded {
		if cfg.MatchClassFilter(class.Name) {
			classes = append(classes, class)
		}
	}
	stats := analysis.ComputeStatistics(classes)

	if flags.dotDir != "" {
		if err := os.MkdirAll(flags.dotDir, 0700); err != nil {
			return fmt.Errorf("could not create directory %s: %v", flags.dotDir, err)
		}
		for _, class := range classes {
			file := filepath.Join(flags.dotDir, strings.ReplaceAll(class.Name, "/", ".")+".dot")
			if err := render.GraphvizToFile(graphutil.NewRoutineGraph(class), file); err != nil {
				return err
			}
		}
	}

	if !flags.outputJSON {
		analysis.WriteStatistics(w, stats)
		return nil
	}
	js := jsonStatistics{
		Classes:         stats.NumberOfClasses,
		Routines:        stats.NumberOfRoutines,
		Instructions:    stats.NumberOfInstructions,
		ByKind:          map[string]uint{},
		RecursiveGroups: []string{},
		Cycles:          stats.NumberOfCycles,
	}
	for k, n := range stats.InstructionsByKind {
		js.ByKind[k.String()] = n
	}
	for _, g := range stats.RecursiveGroups {
		js.RecursiveGroups = append(js.RecursiveGroups, g.String())
	}
	buf, err := json.MarshalIndent(js, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode statistics: %w", err)
	}
	fmt.Fprintln(w, string(buf))
	return nil
}
