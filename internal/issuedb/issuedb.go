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

// Package issuedb persists findings across analysis runs. Each distinct finding is an issue identified by a hash
// of its pattern and primary location, with the time it was first and last seen, and the evaluations that people
// made of it.
package issuedb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/awslabs/argot-bytecode/analysis/finding"
	"github.com/fxamacker/cbor/v2"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrUnknownIssue indicates the requested issue doesn't exist
var ErrUnknownIssue = errors.New("unknown issue")

// An Issue is a finding as persisted in the database
type Issue struct {
	Hash           string
	Pattern        string
	Priority       finding.Severity
	PrimaryClass   string
	Routine        string
	Signature      string
	FirstSeen      time.Time
	LastSeen       time.Time
	HasEvaluations bool
	BugLink        string
	BugLinkType    string
}

// An Evaluation is a designation of an issue by a person, e.g. "NOT_A_BUG" or "MUST_FIX"
type Evaluation struct {
	Who         string
	Designation string
	Comment     string
	When        time.Time
}

// issueKey is the part of a finding that identifies an issue. Field order is part of the hash.
type issueKey struct {
	_         struct{} `cbor:",toarray"`
	Pattern   string
	Class     string
	Routine   string
	Signature string
}

var hashEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("issuedb: cbor enc mode: %v", err))
	}
	hashEncMode = em
}

// Hash returns the hash identifying the issue of a finding: the hex encoded SHA-256 of the canonical CBOR encoding of
// the pattern, class, routine and signature of the finding. The offset and line are not part of the hash, so that an
// issue keeps its identity when unrelated code of the routine changes.
func Hash(f finding.Finding) string {
	b, err := hashEncMode.Marshal(issueKey{
		Pattern:   f.Pattern,
		Class:     f.Location.Class,
		Routine:   f.Location.Routine,
		Signature: f.Location.Signature,
	})
	if err != nil {
		// strings always encode
		panic(fmt.Sprintf("issuedb: encoding issue key: %v", err))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

const schema = `
CREATE TABLE IF NOT EXISTS issues (
	hash TEXT PRIMARY KEY,
	pattern TEXT NOT NULL,
	priority INTEGER NOT NULL,
	primary_class TEXT NOT NULL,
	routine TEXT NOT NULL,
	signature TEXT NOT NULL,
	first_seen INTEGER NOT NULL,
	last_seen INTEGER NOT NULL,
	has_evaluations INTEGER NOT NULL DEFAULT 0,
	bug_link TEXT NOT NULL DEFAULT '',
	bug_link_type TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS evaluations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hash TEXT NOT NULL REFERENCES issues(hash) ON DELETE CASCADE,
	who TEXT NOT NULL,
	designation TEXT NOT NULL CHECK (designation <> ''),
	comment TEXT NOT NULL,
	evaluated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS evaluations_hash ON evaluations(hash);
`

const upsertIssue = `
INSERT INTO issues (hash, pattern, priority, primary_class, routine, signature, first_seen, last_seen)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(hash) DO UPDATE SET
	last_seen = MAX(last_seen, excluded.last_seen),
	first_seen = MIN(first_seen, excluded.first_seen),
	priority = MAX(priority, excluded.priority)`

// Store is an issue database backed by a sqlite file
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens the issue database at path, creating it if needed. The special path ":memory:" opens a database that
// lives as long as the store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening issue database: %w", err)
	}
	// a single connection keeps in-memory databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the path the store was opened on
func (s *Store) Path() string {
	return s.path
}

// Record records that the finding was seen at time when, and returns the hash of its issue. The first record of an
// issue sets its first and last seen times; later records move the last seen time forward and raise the priority to
// the highest severity seen.
func (s *Store) Record(ctx context.Context, f finding.Finding, when time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return upsert(ctx, s.db, f, when.UnixMilli())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, f finding.Finding, at int64) (string, error) {
	hash := Hash(f)
	_, err := db.ExecContext(ctx, upsertIssue, hash, f.Pattern, int(f.Severity),
		f.Location.Class, f.Location.Routine, f.Location.Signature, at, at)
	if err != nil {
		return "", fmt.Errorf("recording issue %s: %w", hash, err)
	}
	return hash, nil
}

// RecordAll records all the findings at the same time, in a single transaction
func (s *Store) RecordAll(ctx context.Context, findings []finding.Finding, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	at := when.UnixMilli()
	for _, f := range findings {
		if _, err := upsert(ctx, tx, f, at); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing issues: %w", err)
	}
	return nil
}

// AddEvaluation adds an evaluation to the issue with the given hash. It returns ErrUnknownIssue if no such issue has
// been recorded.
func (s *Store) AddEvaluation(ctx context.Context, hash string, e Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	res, err := tx.ExecContext(ctx, "UPDATE issues SET has_evaluations = 1 WHERE hash = ?", hash)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("updating issue %s: %w", hash, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		tx.Rollback()
		return fmt.Errorf("updating issue %s: %w", hash, err)
	} else if n == 0 {
		tx.Rollback()
		return fmt.Errorf("%w: %s", ErrUnknownIssue, hash)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO evaluations (hash, who, designation, comment, evaluated_at) VALUES (?, ?, ?, ?, ?)",
		hash, e.Who, e.Designation, e.Comment, e.When.UnixMilli())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("adding evaluation to %s: %w", hash, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing evaluation of %s: %w", hash, err)
	}
	return nil
}

// SetBugLink links the issue to a bug in an external tracker of type linkType (e.g. "JIRA")
func (s *Store) SetBugLink(ctx context.Context, hash string, link string, linkType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE issues SET bug_link = ?, bug_link_type = ? WHERE hash = ?",
		link, linkType, hash)
	if err != nil {
		return fmt.Errorf("updating issue %s: %w", hash, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("updating issue %s: %w", hash, err)
	} else if n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownIssue, hash)
	}
	return nil
}

const issueColumns = `hash, pattern, priority, primary_class, routine, signature, first_seen, last_seen,
	has_evaluations, bug_link, bug_link_type`

type scanner interface {
	Scan(dest ...any) error
}

func scanIssue(row scanner) (Issue, error) {
	var (
		issue               Issue
		priority            int
		firstSeen, lastSeen int64
		hasEvaluations      int
	)
	err := row.Scan(&issue.Hash, &issue.Pattern, &priority, &issue.PrimaryClass, &issue.Routine,
		&issue.Signature, &firstSeen, &lastSeen, &hasEvaluations, &issue.BugLink, &issue.BugLinkType)
	if err != nil {
		return Issue{}, err
	}
	issue.Priority = finding.Severity(priority)
	issue.FirstSeen = time.UnixMilli(firstSeen)
	issue.LastSeen = time.UnixMilli(lastSeen)
	issue.HasEvaluations = hasEvaluations != 0
	return issue, nil
}

// Issue returns the issue with the given hash, or ErrUnknownIssue
func (s *Store) Issue(ctx context.Context, hash string) (Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+issueColumns+" FROM issues WHERE hash = ?", hash)
	issue, err := scanIssue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Issue{}, fmt.Errorf("%w: %s", ErrUnknownIssue, hash)
		}
		return Issue{}, fmt.Errorf("querying issue %s: %w", hash, err)
	}
	return issue, nil
}

// Issues returns all the issues, ordered by hash
func (s *Store) Issues(ctx context.Context) ([]Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+issueColumns+" FROM issues ORDER BY hash")
	if err != nil {
		return nil, fmt.Errorf("querying issues: %w", err)
	}
	defer rows.Close()

	var issues []Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("reading issue: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading issues: %w", err)
	}
	return issues, nil
}

// Evaluations returns the evaluations of the issue with the given hash, oldest first
func (s *Store) Evaluations(ctx context.Context, hash string) ([]Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT who, designation, comment, evaluated_at FROM evaluations WHERE hash = ? ORDER BY evaluated_at, id",
		hash)
	if err != nil {
		return nil, fmt.Errorf("querying evaluations of %s: %w", hash, err)
	}
	defer rows.Close()

	var evaluations []Evaluation
	for rows.Next() {
		var (
			e  Evaluation
			at int64
		)
		if err := rows.Scan(&e.Who, &e.Designation, &e.Comment, &at); err != nil {
			return nil, fmt.Errorf("reading evaluation: %w", err)
		}
		e.When = time.UnixMilli(at)
		evaluations = append(evaluations, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading evaluations: %w", err)
	}
	return evaluations, nil
}
