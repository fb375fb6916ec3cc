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

package analysis

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/awslabs/argot-bytecode/analysis/config"
	"github.com/awslabs/argot-bytecode/analysis/finding"
	"github.com/awslabs/argot-bytecode/internal/formatutil"
)

// jsonReport is the JSON representation of a report
type jsonReport struct {
	Findings   []finding.Finding `json:"findings"`
	Classes    int               `json:"classes"`
	Routines   int               `json:"routines"`
	Skipped    []jsonSkipped     `json:"skipped,omitempty"`
	Suppressed int               `json:"suppressed"`
	Truncated  bool              `json:"truncated"`
}

type jsonSkipped struct {
	Class     string `json:"class"`
	Routine   string `json:"routine"`
	Signature string `json:"signature"`
	Error     string `json:"error"`
}

// WriteJSON writes the report as an indented JSON document
func WriteJSON(w io.Writer, report Report) error {
	r := jsonReport{
		Findings:   report.Findings,
		Classes:    report.Classes,
		Routines:   report.Routines,
		Suppressed: report.Suppressed,
		Truncated:  report.Truncated,
	}
	if r.Findings == nil {
		r.Findings = []finding.Finding{}
	}
	for _, s := range report.Skipped {
		r.Skipped = append(r.Skipped, jsonSkipped{
			Class:     s.Class,
			Routine:   s.Routine,
			Signature: s.Signature,
			Error:     s.Err.Error(),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("could not encode report: %w", err)
	}
	return nil
}

func severityColor(s finding.Severity) func(...interface{}) string {
	switch s {
	case finding.High:
		return formatutil.Red
	case finding.Normal:
		return formatutil.Yellow
	default:
		return formatutil.Cyan
	}
}

// WriteText writes the findings of the report, one per line, followed by a summary line
func WriteText(w io.Writer, report Report) error {
	for _, f := range report.Findings {
		line := fmt.Sprintf("%s %s at %s", severityColor(f.Severity)("["+f.Severity.String()+"]"),
			formatutil.Bold(f.Pattern), f.Location)
		if f.Context != "" {
			line += ": " + formatutil.Sanitize(f.Context)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	summary := fmt.Sprintf("%d findings in %d classes (%d routines analyzed, %d skipped, %d suppressed)",
		len(report.Findings), report.Classes, report.Routines, len(report.Skipped), report.Suppressed)
	if report.Truncated {
		summary += ", truncated"
	}
	_, err := fmt.Fprintln(w, formatutil.Faint(summary))
	return err
}

// WriteSkipped writes one diagnostic line per skipped routine
func WriteSkipped(w io.Writer, report Report) error {
	for _, s := range report.Skipped {
		_, err := fmt.Fprintf(w, "%s %s.%s%s: %v\n", formatutil.Yellow("skipped"), s.Class, s.Routine,
			s.Signature, s.Err)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteReport writes the report in the output format of the config
func WriteReport(w io.Writer, cfg *config.Config, report Report) error {
	if cfg.OutputFormat == config.OutputJSON {
		return WriteJSON(w, report)
	}
	return WriteText(w, report)
}

// SaveReport writes the report as JSON in a new file of the reports directory of the config, and returns the
// absolute path of the file. It does nothing and returns an empty path when the config has no reports directory.
func SaveReport(cfg *config.Config, report Report) (string, error) {
	if cfg.ReportsDir == "" {
		return "", nil
	}
	f, err := os.CreateTemp(cfg.ReportsDir, "findings-*.json")
	if err != nil {
		return "", fmt.Errorf("could not create report file: %w", err)
	}
	defer f.Close()
	if err := WriteJSON(f, report); err != nil {
		return "", err
	}
	path, err := filepath.Abs(f.Name())
	if err != nil {
		return f.Name(), nil
	}
	return path, nil
}
