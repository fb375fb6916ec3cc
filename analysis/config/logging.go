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
	"io"

	"github.com/sirupsen/logrus"
)

// LogLevel is the level of a LogGroup
type LogLevel int

const (
	// ErrLevel=1 - the minimum level of logging.
	ErrLevel LogLevel = iota + 1

	// WarnLevel=2 - the level for logging warnings, and errors
	WarnLevel

	// InfoLevel=3 - the level for logging high-level information, results
	InfoLevel

	// DebugLevel=4 - the level for debugging information, one line per analyzed class.
	DebugLevel

	// TraceLevel=5 - the level for tracing. The symbolic stack is logged before every instruction, which is only
	// useful on small inputs.
	TraceLevel
)

var logrusLevels = map[LogLevel]logrus.Level{
	ErrLevel:   logrus.ErrorLevel,
	WarnLevel:  logrus.WarnLevel,
	InfoLevel:  logrus.InfoLevel,
	DebugLevel: logrus.DebugLevel,
	TraceLevel: logrus.TraceLevel,
}

// A LogGroup is the logger used by all the analyses. It is backed by a single logrus logger.
type LogGroup struct {
	level  LogLevel
	logger *logrus.Logger
}

// NewLogGroup returns a log group that is configured to the logging settings stored inside the config
func NewLogGroup(config *Config) *LogGroup {
	level := LogLevel(config.LogLevel)
	lv, ok := logrusLevels[level]
	if !ok {
		level = InfoLevel
		lv = logrus.InfoLevel
	}
	logger := logrus.New()
	logger.SetLevel(lv)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableLevelTruncation: true})
	l := &LogGroup{level: level, logger: logger}
	if config.LogFormat == OutputJSON {
		l.SetJSON()
	}
	return l
}

// Level returns the level of the log group
func (l *LogGroup) Level() LogLevel {
	return l.level
}

// LogsAt returns true if messages at level are printed
func (l *LogGroup) LogsAt(level LogLevel) bool {
	return l.level >= level
}

// SetAllOutput sets the output writer to the writer provided
func (l *LogGroup) SetAllOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

// SetJSON switches the log format to JSON lines
func (l *LogGroup) SetJSON() {
	l.logger.SetFormatter(&logrus.JSONFormatter{})
}

// WithFields returns an entry carrying the fields, for structured log lines
func (l *LogGroup) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.logger.WithFields(fields)
}

// Tracef prints to the logger at trace level. Arguments are handled in the manner of Printf
func (l *LogGroup) Tracef(format string, v ...any) {
	if l.level >= TraceLevel {
		l.logger.Tracef(format, v...)
	}
}

// Debugf prints to the logger at debug level. Arguments are handled in the manner of Printf
func (l *LogGroup) Debugf(format string, v ...any) {
	if l.level >= DebugLevel {
		l.logger.Debugf(format, v...)
	}
}

// Infof prints to the logger at info level. Arguments are handled in the manner of Printf
func (l *LogGroup) Infof(format string, v ...any) {
	if l.level >= InfoLevel {
		l.logger.Infof(format, v...)
	}
}

// Warnf prints to the logger at warning level. Arguments are handled in the manner of Printf
func (l *LogGroup) Warnf(format string, v ...any) {
	if l.level >= WarnLevel {
		l.logger.Warnf(format, v...)
	}
}

// Errorf prints to the logger at error level. Arguments are handled in the manner of Printf
func (l *LogGroup) Errorf(format string, v ...any) {
	if l.level >= ErrLevel {
		l.logger.Errorf(format, v...)
	}
}
