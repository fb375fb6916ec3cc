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
	"github.com/awslabs/argot-bytecode/analysis/config"
	"github.com/awslabs/argot-bytecode/analysis/detectors"
	"github.com/awslabs/argot-bytecode/analysis/walker"
	"github.com/awslabs/argot-bytecode/internal/funcutil"
)

// AnalyzerState holds the information shared by all the jobs of an analysis run.
type AnalyzerState struct {
	// The logger used during the analysis (can be used to control output.
	Logger *config.LogGroup

	// The configuration file for the analysis
	Config *config.Config

	// Registry holds the detectors that can run. Detectors disabled in the config are not instantiated.
	Registry *walker.Registry
}

// NewAnalyzerState returns a state with the detectors of the detectors package registered. A nil logger is replaced
// by a logger built from the config.
func NewAnalyzerState(cfg *config.Config, logger *config.LogGroup) *AnalyzerState {
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	return &AnalyzerState{
		Logger:   logger,
		Config:   cfg,
		Registry: detectors.NewRegistry(),
	}
}

// EnabledDetectors returns the names of the registered detectors that are not disabled by the config, in
// alphabetical order
func (s *AnalyzerState) EnabledDetectors() []string {
	return funcutil.Filter(s.Registry.Names(), func(name string) bool { return !s.Config.IsDisabled(name) })
}

// newWalker returns a walker with fresh instances of the stateful detectors, for one job
func (s *AnalyzerState) newWalker() *walker.Walker {
	enabled := func(name string) bool { return !s.Config.IsDisabled(name) }
	return walker.New(s.Config, s.Logger, s.Registry.Instantiate(enabled))
}
