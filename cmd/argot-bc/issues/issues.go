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

// Package issues implements the front-end to the issue database: listing the recorded issues and evaluating them.
package issues

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/awslabs/argot-bytecode/cmd/argot-bc/tools"
	"github.com/awslabs/argot-bytecode/internal/formatutil"
	"github.com/awslabs/argot-bytecode/internal/issuedb"
)

// Flags represents the parsed issues sub-command flags.
type Flags struct {
	flagSet *flag.FlagSet
	dbPath  string
}

// NewFlags returns the parsed issues flags from args.
func NewFlags(args []string) (Flags, error) {
	cmd := flag.NewFlagSet("issues", flag.ExitOnError)
	dbPath := cmd.String("db", "", "issue database")
	tools.SetUsage(cmd, usage)
	if err := cmd.Parse(args); err != nil {
		return Flags{}, fmt.Errorf("failed to parse command issues with args %v: %v", args, err)
	}
	if *dbPath == "" {
		return Flags{}, fmt.Errorf("the issue database must be specified with -db")
	}
	return Flags{flagSet: cmd, dbPath: *dbPath}, nil
}

const usage = `Inspect and evaluate the issues recorded by argot-bc scan.

Usage:
  argot-bc issues -db file [list]
  argot-bc issues -db file evaluate -hash h -who name -designation d [-comment c]
  argot-bc issues -db file link -hash h -url url [-type tracker]

Use the -help flag to display the options.

Examples:
% argot-bc issues -db issues.db
% argot-bc issues -db issues.db evaluate -hash 3fa2... -who alice -designation NOT_A_BUG
`

// Run runs the issues sub-command
func Run(flags Flags) error {
	return run(context.Background(), flags, os.Stdout)
}

func run(ctx context.Context, flags Flags, w io.Writer) error {
	db, err := issuedb.Open(ctx, flags.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	args := flags.flagSet.Args()
	action := "list"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}
	switch action {
	case "list":
		return list(ctx, db, w)
	case "evaluate":
		return evaluate(ctx, db, args)
	case "link":
		return link(ctx, db, args)
	default:
		return fmt.Errorf("unexpected issues action: %q", action)
	}
}

func list(ctx context.Context, db *issuedb.Store, w io.Writer) error {
	issues, err := db.Issues(ctx)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		fmt.Fprintf(w, "%s %s %s in %s.%s%s\n", formatutil.Faint(issue.Hash[:12]), issue.Priority,
			formatutil.Bold(issue.Pattern), issue.PrimaryClass, issue.Routine, issue.Signature)
		fmt.Fprintf(w, "    first seen %s, last seen %s\n", issue.FirstSeen.UTC().Format(time.RFC3339),
			issue.LastSeen.UTC().Format(time.RFC3339))
		if issue.BugLink != "" {
			fmt.Fprintf(w, "    bug: %s (%s)\n", issue.BugLink, issue.BugLinkType)
		}
		if !issue.HasEvaluations {
			continue
		}
		evaluations, err := db.Evaluations(ctx, issue.Hash)
		if err != nil {
			return err
		}
		for _, e := range evaluations {
			fmt.Fprintf(w, "    %s by %s on %s", e.Designation, e.Who, e.When.UTC().Format(time.RFC3339))
			if e.Comment != "" {
				fmt.Fprintf(w, ": %s", formatutil.Sanitize(e.Comment))
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

func evaluate(ctx context.Context, db *issuedb.Store, args []string) error {
	cmd := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	hash := cmd.String("hash", "", "hash of the issue")
	who := cmd.String("who", "", "name of the evaluator")
	designation := cmd.String("designation", "", "designation of the issue, e.g. NOT_A_BUG or MUST_FIX")
	comment := cmd.String("comment", "", "free-form comment")
	if err := cmd.Parse(args); err != nil {
		return fmt.Errorf("failed to parse evaluate with args %v: %v", args, err)
	}
	if *hash == "" || *who == "" || *designation == "" {
		return fmt.Errorf("evaluate requires -hash, -who and -designation")
	}
	return db.AddEvaluation(ctx, *hash, issuedb.Evaluation{
		Who:         *who,
		Designation: *designation,
		Comment:     *comment,
		When:        time.Now(),
	})
}

func link(ctx context.Context, db *issuedb.Store, args []string) error {
	cmd := flag.NewFlagSet("link", flag.ContinueOnError)
	hash := cmd.String("hash", "", "hash of the issue")
	url := cmd.String("url", "", "link to the bug")
	linkType := cmd.String("type", "", "type of bug tracker")
	if err := cmd.Parse(args); err != nil {
		return fmt.Errorf("failed to parse link with args %v: %v", args, err)
	}
	if *hash == "" || *url == "" {
		return fmt.Errorf("link requires -hash and -url")
	}
	return db.SetBugLink(ctx, *hash, *url, *linkType)
}
