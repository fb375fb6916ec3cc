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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/awslabs/argot-bytecode/analysis/bytecode"
	"github.com/awslabs/argot-bytecode/internal/funcutil"
)

// ListingExtensions are the extensions of the files read when a directory is loaded
var ListingExtensions = []string{".yaml", ".yml", ".cbor"}

// LoadClasses reads the class listings in paths. Files with a .cbor extension are read as CBOR sequences, other
// files as YAML streams; directories are walked for files with one of the ListingExtensions, in lexical order.
// Every class is validated, and a class name may only appear once.
func LoadClasses(paths []string) ([]*bytecode.Class, error) {
	files, err := listingFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no class listing found in %v", paths)
	}

	var classes []*bytecode.Class
	seen := map[string]string{}
	for _, file := range files {
		fileClasses, err := LoadClassFile(file)
		if err != nil {
			return nil, err
		}
		for _, c := range fileClasses {
			if prev, ok := seen[c.Name]; ok {
				return nil, fmt.Errorf("class %s defined in %s and %s", c.Name, prev, file)
			}
			seen[c.Name] = file
		}
		classes = append(classes, fileClasses...)
	}
	return classes, nil
}

// LoadClassFile reads the classes in a single listing file
func LoadClassFile(file string) ([]*bytecode.Class, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("could not read class listing: %w", err)
	}
	var classes []*bytecode.Class
	if strings.EqualFold(filepath.Ext(file), ".cbor") {
		classes, err = bytecode.DecodeCBOR(b)
	} else {
		classes, err = bytecode.DecodeYAML(b)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	for _, c := range classes {
		c.Source = file
	}
	return classes, nil
}

func listingFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("could not read class listing: %w", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		var dirFiles []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isListing(path) {
				dirFiles = append(dirFiles, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("could not read directory %s: %w", p, err)
		}
		sort.Strings(dirFiles)
		files = append(files, dirFiles...)
	}
	return files, nil
}

func isListing(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return funcutil.Exists(ListingExtensions, func(e string) bool { return e == ext })
}
