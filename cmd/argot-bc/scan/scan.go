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

// Package scan implements the front-end to the bytecode defect detectors.
package scan

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/awslabs/argot-bytecode/analysis"
	"github.com/awslabs/argot-bytecode/analysis/config"
	"github.com/awslabs/argot-bytecode/cmd/argot-bc/tools"
	"github.com/awslabs/argot-bytecode/internal/formatutil"
	"github.com/awslabs/argot-bytecode/internal/issuedb"
)

// Flags represents the parsed scan sub-command flags.
type Flags struct {
	tools.CommonFlags
	outputJSON bool
	dbPath     string
}

// NewFlags returns the parsed scan flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("scan")
	outputJSON := flags.FlagSet.Bool("json", false, "output results as JSON")
	dbPath := flags.FlagSet.String("db", "", "issue database to record the findings in (overrides the config)")
	tools.SetUsage(flags.FlagSet, usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	return Flags{
		CommonFlags: common,
		outputJSON:  *outputJSON,
		dbPath:      *dbPath,
	}, nil
}

const usage = `Run the bytecode defect detectors on class listings.

Usage:
  argot-bc scan [options] listing...
  argot-bc scan [options] directory

Use the -help flag to display the options.

Examples:
% argot-bc scan -config config.yaml classes/
% argot-bc scan -json -db issues.db Foo.yaml
`

// Run runs the analysis with flags, writing the report on stdout and the diagnostics on stderr.
func Run(flags Flags) error {
	return run(context.Background(), flags, os.Stdout, os.Stderr)
}

func run(ctx context.Context, flags Flags, stdout io.Writer, stderr io.Writer) error {
	cfg, err := tools.LoadConfig(flags.ConfigPath, flags.Verbose)
	if err != nil {
		return err
	}
	if flags.outputJSON {
		cfg.OutputFormat = config.OutputJSON
	}
	if flags.dbPath != "" {
		cfg.IssueDB = flags.dbPath
	} else if cfg.IssueDB != "" && !filepath.IsAbs(cfg.IssueDB) {
		cfg.IssueDB = cfg.RelPath(cfg.IssueDB)
	}
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(stderr)

	fmt.Fprintln(stderr, formatutil.Faint("Reading class listings"))
	classes, err := analysis.LoadClasses(flags.FlagSet.Args())
	if err != nil {
		return err
	}

	fmt.Fprintln(stderr, formatutil.Faint("Analyzing"))
	state := analysis.NewAnalyzerState(cfg, logger)
	report := analysis.RunAnalysis(ctx, state, classes)

	if err := analysis.WriteSkipped(stderr, report); err != nil {
		return err
	}
	if err := analysis.WriteReport(stdout, cfg, report); err != nil {
		return err
	}
	if path, err := analysis.SaveReport(cfg, report); err != nil {
		logger.Errorf("could not save report: %v", err)
	} else if path != "" {
		logger.Infof("Report saved in %s", path)
	}

	if cfg.IssueDB != "" {
		if err := record(ctx, cfg.IssueDB, report); err != nil {
			return err
		}
		logger.Infof("Recorded %d findings in %s", len(report.Findings), cfg.IssueDB)
	}
	return nil
}

func record(ctx context.Context, path string, report analysis.Report) error {
	db, err := issuedb.Open(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.RecordAll(ctx, report.Findings, time.Now())
}
