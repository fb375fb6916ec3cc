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

// Package trace implements the front-end printing the symbolic traces of routines.
package trace

import (
	"fmt"
	"io"
	"os"

	"github.com/awslabs/argot-bytecode/analysis"
	"github.com/awslabs/argot-bytecode/analysis/render"
	"github.com/awslabs/argot-bytecode/cmd/argot-bc/tools"
)

// Flags represents the parsed trace sub-command flags.
type Flags struct {
	tools.CommonFlags
	class   string
	routine string
}

// NewFlags returns the parsed trace flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("trace")
	class := flags.FlagSet.String("class", "", "only trace the routines of this class")
	routine := flags.FlagSet.String("routine", "", "only trace the routines with this name")
	tools.SetUsage(flags.FlagSet, usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	return Flags{CommonFlags: common, class: *class, routine: *routine}, nil
}

const usage = `Print the symbolic stack and the control-flow facts before each instruction of routines.

Usage:
  argot-bc trace [options] listing...

Use the -help flag to display the options.

Examples:
% argot-bc trace -class com/example/Foo -routine bar Foo.yaml
`

// Run prints the traces on stdout, for the classes matching the class filter of the config. Routines that cannot be simulated are traced up to the failing instruction.
func Run(flags Flags) error {
	return run(flags, os.Stdout)
}

func run(flags Flags, w io.Writer) error {
	cfg, err := tools.LoadConfig(flags.ConfigPath, flags.Verbose)
	if err != nil {
		return err
	}
	classes, err := analysis.LoadClasses(flags.FlagSet.Args())
	if err != nil {
		return err
	}
	traced := 0
	for _, class := range classes {
		if (flags.class != "" && class.Name != flags.class) || !cfg.MatchClassFilter(class.Name) {
			continue
		}
		if flags.routine != "" && class.Routine(flags.routine) == nil {
			continue
		}
		traced++
		if err := render.TraceClass(w, class, flags.routine); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", class.Name, err)
		}
	}
	if traced == 0 {
		return fmt.Errorf("no routine matches class %q and routine %q", flags.class, flags.routine)
	}
	return nil
}
