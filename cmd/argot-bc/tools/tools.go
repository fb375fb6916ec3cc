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

// Package tools contains utility types and functions for the argot-bc tool frontends.
package tools

import (
	"flag"
	"fmt"
	"os"

	"github.com/awslabs/argot-bytecode/analysis/config"
)

// UnparsedCommonFlags represents an unparsed CLI sub-command flags.
type UnparsedCommonFlags struct {
	FlagSet    *flag.FlagSet
	ConfigPath *string
	Verbose    *bool
}

// NewUnparsedCommonFlags returns an unparsed flag set with a given name.
// This is useful for creating sub-commands that have the flags -config and -verbose but need other flags in
// addition.
func NewUnparsedCommonFlags(name string) UnparsedCommonFlags {
	cmd := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := cmd.String("config", "", "config file path for analysis")
	verbose := cmd.Bool("verbose", false, "verbose printing on standard error (debug log level)")
	return UnparsedCommonFlags{
		FlagSet:    cmd,
		ConfigPath: configPath,
		Verbose:    verbose,
	}
}

// CommonFlags represents a parsed CLI sub-command flags.
// E.g., for the command `argot-bc scan ...`, "scan" is the sub-command.
type CommonFlags struct {
	FlagSet    *flag.FlagSet
	ConfigPath string
	Verbose    bool
}

// Parse parses args and returns the parsed common flags
func (u UnparsedCommonFlags) Parse(args []string) (CommonFlags, error) {
	if err := u.FlagSet.Parse(args); err != nil {
		return CommonFlags{}, fmt.Errorf("failed to parse command %s with args %v: %v", u.FlagSet.Name(), args, err)
	}
	return CommonFlags{
		FlagSet:    u.FlagSet,
		ConfigPath: *u.ConfigPath,
		Verbose:    *u.Verbose,
	}, nil
}

// SetUsage sets cmd's usage (for --help flag) to output the string cmdUsage
// followed by each flag's documentation.
func SetUsage(cmd *flag.FlagSet, cmdUsage string) {
	cmd.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n", cmdUsage)
		fmt.Fprintf(os.Stderr, "Options:\n")
		cmd.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(os.Stderr, "  %s: %s (default: %q)\n", f.Name, f.Usage, f.DefValue)
		})
	}
}

// LoadConfig loads the config file from configPath. An empty path gives the default config.
// When verbose is set, the log level is raised to debug.
func LoadConfig(configPath string, verbose bool) (*config.Config, error) {
	var cfg *config.Config
	if configPath == "" {
		cfg = config.NewDefault()
	} else {
		config.SetGlobalConfig(configPath)
		c, err := config.LoadGlobal()
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %v", configPath, err)
		}
		cfg = c
	}
	if verbose && cfg.LogLevel < int(config.DebugLevel) {
		cfg.LogLevel = int(config.DebugLevel)
	}
	return cfg, nil
}

// NewLogger returns the log group of the config, writing on standard error
func NewLogger(cfg *config.Config) *config.LogGroup {
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(os.Stderr)
	return logger
}
