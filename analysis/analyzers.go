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

// Package analysis contains the driver of the bytecode analysis: loading class listings, running the detectors
// over every routine of every class, and collecting the findings in a report.
package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/awslabs/argot-bytecode/analysis/bytecode"
	"github.com/awslabs/argot-bytecode/analysis/config"
	"github.com/awslabs/argot-bytecode/analysis/finding"
	"github.com/awslabs/argot-bytecode/internal/funcutil"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// A SkippedRoutine is a routine that could not be analyzed, with the reason why
type SkippedRoutine struct {
	Class     string
	Routine   string
	Signature string
	Err       error
}

// A Report is the result of an analysis run
type Report struct {
	// Findings are sorted by class, routine, signature, offset and pattern
	Findings []finding.Finding
	// Classes is the number of classes that matched the class filter
	Classes int
	// Routines is the number of routines analyzed successfully
	Routines int
	// Skipped are the routines that could not be analyzed, in class order
	Skipped []SkippedRoutine
	// Suppressed is the number of findings dropped by suppressions of the config
	Suppressed int
	// Truncated is true when findings were dropped because of the max-findings option
	Truncated bool
	// Duration is the time the run took
	Duration time.Duration
}

// singleClassJob contains all the information necessary to analyze one class.
type singleClassJob struct {
	class *bytecode.Class
	state *AnalyzerState
}

// singleClassResult is the result of a singleClassJob
type singleClassResult struct {
	findings   []finding.Finding
	routines   int
	skipped    []SkippedRoutine
	suppressed int
}

// RunAnalysis runs the enabled detectors over every routine of the classes that match the class filter of the
// config. Classes are analyzed in parallel using the number of workers of the config. The context, and the timeout
// of the config, are checked between routines: routines not started when the context is done are reported as
// skipped.
func RunAnalysis(ctx context.Context, state *AnalyzerState, classes []*bytecode.Class) Report {
	start := time.Now()
	if state.Config.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(state.Config.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	selected := funcutil.Filter(classes, func(c *bytecode.Class) bool { return state.Config.MatchClassFilter(c.Name) })
	jobs := funcutil.Map(selected, func(c *bytecode.Class) singleClassJob { return singleClassJob{class: c, state: state} })
	state.Logger.Infof("Starting analysis of %d classes (%d filtered out) with detectors %v ...",
		len(jobs), len(classes)-len(jobs), state.EnabledDetectors())

	f := func(job singleClassJob) singleClassResult {
		return runSingleClassJob(ctx, job)
	}
	results := funcutil.MapParallel(jobs, f, state.Config.NumWorkers)

	report := collectResults(results, state.Config)
	report.Classes = len(jobs)
	report.Duration = time.Since(start)
	state.Logger.Infof("Analysis done (%.2f s): %d routines analyzed, %d skipped, %d findings.",
		report.Duration.Seconds(), report.Routines, len(report.Skipped), len(report.Findings))
	return report
}

// runSingleClassJob analyzes all the routines of the job's class with a walker of its own.
func runSingleClassJob(ctx context.Context, job singleClassJob) singleClassResult {
	logger := job.state.Logger
	cfg := job.state.Config
	start := time.Now()
	logger.Debugf("%-10sClass: %-60s | Routines: %d ...", "Analyzing", job.class.Name, len(job.class.Routines))

	var res singleClassResult
	sink := finding.SinkFunc(func(f finding.Finding) {
		if cfg.IsSuppressed(suppressionID(f)) {
			res.suppressed++
			return
		}
		res.findings = append(res.findings, f)
	})

	w := job.state.newWalker()
	cancelled := 0
	for _, r := range w.WalkClass(ctx, job.class, sink) {
		if r.Analyzed {
			res.routines++
			continue
		}
		res.skipped = append(res.skipped, SkippedRoutine{
			Class:     job.class.Name,
			Routine:   r.Routine.Name,
			Signature: r.Routine.Signature,
			Err:       r.Err,
		})
		if ctx.Err() != nil && errors.Is(r.Err, ctx.Err()) {
			cancelled++
			continue
		}
		logger.WithFields(logrus.Fields{
			"class":     job.class.Name,
			"routine":   r.Routine.Name,
			"signature": r.Routine.Signature,
		}).Errorf("could not analyze routine: %v", r.Err)
	}
	if cancelled > 0 {
		logger.Warnf("%d routines of %s not analyzed: %v", cancelled, job.class.Name, ctx.Err())
	}

	logger.Debugf("%-10sClass: %-60s | %d findings | %.2f s", " ", job.class.Name, len(res.findings),
		time.Since(start).Seconds())
	return res
}

// suppressionID returns the identifier of a finding that the suppressions of the config are matched against
func suppressionID(f finding.Finding) config.Suppression {
	return config.Suppression{
		Class:     f.Location.Class,
		Routine:   f.Location.Routine,
		Signature: f.Location.Signature,
		Pattern:   f.Pattern,
	}
}

// collectResults merges the per-class results into a report, sorting the findings and applying the max-findings
// option.
func collectResults(results []singleClassResult, cfg *config.Config) Report {
	var report Report
	for _, res := range results {
		report.Findings = append(report.Findings, res.findings...)
		report.Routines += res.routines
		report.Skipped = append(report.Skipped, res.skipped...)
		report.Suppressed += res.suppressed
	}
	SortFindings(report.Findings)
	if cfg.MaxFindings > 0 && len(report.Findings) > cfg.MaxFindings {
		report.Findings = report.Findings[:cfg.MaxFindings]
		report.Truncated = true
	}
	return report
}

// SortFindings sorts findings by class, routine, signature, offset and pattern
func SortFindings(findings []finding.Finding) {
	slices.SortStableFunc(findings, func(a, b finding.Finding) bool {
		if a.Location.Class != b.Location.Class {
			return a.Location.Class < b.Location.Class
		}
		if a.Location.Routine != b.Location.Routine {
			return a.Location.Routine < b.Location.Routine
		}
		if a.Location.Signature != b.Location.Signature {
			return a.Location.Signature < b.Location.Signature
		}
		if a.Location.Offset != b.Location.Offset {
			return a.Location.Offset < b.Location.Offset
		}
		return a.Pattern < b.Pattern
	})
}
