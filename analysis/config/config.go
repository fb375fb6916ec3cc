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

package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config contains lists of suppressions and the options of the analysis
type Config struct {
	Options `yaml:"options" toml:"options"`

	// if the config is loaded from a file, this is the file name
	sourceFile string

	classFilterRegex *regexp.Regexp

	// Suppressions is a list of identifiers of findings that should not be reported
	Suppressions []Suppression `yaml:"suppressions" toml:"suppressions"`
}

// Options holds the global options for the analyses
type Options struct {
	// ReportsDir is the directory where reports are written. If specified and not an absolute path, it is
	// relative to the config file.
	ReportsDir string `yaml:"reports-dir" toml:"reports-dir"`

	// ClassFilter restricts the analysis to the classes whose internal name matches the regex, or starts with the
	// filter when it is not a valid regex.
	ClassFilter string `yaml:"class-filter" toml:"class-filter"`

	// MaxFindings bounds the number of findings in a report. 0 means no limit.
	MaxFindings int `yaml:"max-findings" toml:"max-findings"`

	// NumWorkers is the number of classes analyzed in parallel
	NumWorkers int `yaml:"num-workers" toml:"num-workers"`

	// TimeoutSeconds is the time budget of an analysis run. 0 means no timeout. Routines that were not started when
	// the budget runs out are reported as skipped.
	TimeoutSeconds int `yaml:"timeout-seconds" toml:"timeout-seconds"`

	// StrictReceiverCheck disables the rule that treats a virtual or interface call to a routine with the same name
	// and signature as a call on the same receiver. When set, the receiver must be the routine's own unmodified
	// receiver.
	StrictReceiverCheck bool `yaml:"strict-receiver-check" toml:"strict-receiver-check"`

	// DisabledDetectors lists the names of detectors that do not run
	DisabledDetectors []string `yaml:"disabled-detectors" toml:"disabled-detectors"`

	// IssueDB is the path of the sqlite database recording the findings over time. Empty means no database.
	IssueDB string `yaml:"issue-db" toml:"issue-db"`

	// OutputFormat is "text" or "json"
	OutputFormat string `yaml:"output-format" toml:"output-format"`

	// LogLevel is the level of the log group: 1 (errors) to 5 (trace)
	LogLevel int `yaml:"log-level" toml:"log-level"`

	// LogFormat is "text" or "json" (one JSON object per log line)
	LogFormat string `yaml:"log-format" toml:"log-format"`
}

// NewDefault returns an empty default config.
func NewDefault() *Config {
	return &Config{
		sourceFile:   "",
		Suppressions: nil,
		Options: Options{
			ReportsDir:          "",
			ClassFilter:         "",
			MaxFindings:         0,
			NumWorkers:          DefaultNumWorkers,
			TimeoutSeconds:      0,
			StrictReceiverCheck: false,
			DisabledDetectors:   nil,
			IssueDB:             "",
			OutputFormat:        OutputText,
			LogLevel:            int(InfoLevel),
			LogFormat:           OutputText,
		},
	}
}

// Load reads a configuration from a file. Files with a .toml extension are parsed as TOML, other files as YAML
// with a TOML fallback.
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return Parse(filename, b)
}

// Parse parses the configuration in b, read from filename.
func Parse(filename string, b []byte) (*Config, error) {
	cfg := NewDefault()
	if filepath.Ext(filename) == ".toml" {
		if err := toml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("could not unmarshal toml config file: %w", err)
		}
	} else if errYaml := yaml.Unmarshal(b, cfg); errYaml != nil {
		cfg = NewDefault()
		if errToml := toml.Unmarshal(b, cfg); errToml != nil {
			return nil, fmt.Errorf("could not unmarshal config file, not as yaml: %w, not as toml: %v",
				errYaml, errToml)
		}
	}

	cfg.sourceFile = filename

	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	if cfg.LogLevel < int(ErrLevel) || cfg.LogLevel > int(TraceLevel) {
		return nil, fmt.Errorf("log-level must be between %d and %d, got %d", ErrLevel, TraceLevel, cfg.LogLevel)
	}

	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = DefaultNumWorkers
	}

	if cfg.MaxFindings < 0 || cfg.TimeoutSeconds < 0 {
		return nil, fmt.Errorf("max-findings and timeout-seconds cannot be negative")
	}

	switch cfg.OutputFormat {
	case "":
		cfg.OutputFormat = OutputText
	case OutputText, OutputJSON:
	default:
		return nil, fmt.Errorf("unknown output format %q", cfg.OutputFormat)
	}

	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = OutputText
	case OutputText, OutputJSON:
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}

	if cfg.ClassFilter != "" {
		r, err := regexp.Compile(cfg.ClassFilter)
		if err == nil {
			cfg.classFilterRegex = r
		}
	}

	for i, s := range cfg.Suppressions {
		cfg.Suppressions[i] = compileRegexes(s)
	}

	if cfg.ReportsDir != "" {
		if err := setReportsDir(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func setReportsDir(c *Config) error {
	if !filepath.IsAbs(c.ReportsDir) && c.sourceFile != "" {
		c.ReportsDir = c.RelPath(c.ReportsDir)
	}
	err := os.MkdirAll(c.ReportsDir, 0750)
	if err != nil {
		return fmt.Errorf("could not create directory %s: %w", c.ReportsDir, err)
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// MatchClassFilter returns true if the class name matches the class filter in the config.
// If the filter is not a valid regex, the class name must start with the filter.
func (c Config) MatchClassFilter(className string) bool {
	if c.classFilterRegex != nil {
		return c.classFilterRegex.MatchString(className)
	} else if c.ClassFilter != "" {
		return strings.HasPrefix(className, c.ClassFilter)
	} else {
		return true
	}
}

// IsDisabled returns true if the detector is disabled by the config
func (c Config) IsDisabled(detector string) bool {
	for _, d := range c.DisabledDetectors {
		if d == detector {
			return true
		}
	}
	return false
}

// IsSuppressed returns true if some suppression of the config matches the finding identified by id.
func (c Config) IsSuppressed(id Suppression) bool {
	for _, s := range c.Suppressions {
		if id.matchesOnNonEmptyFields(s) {
			return true
		}
	}
	return false
}
