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

package tools

import "regexp"

// Captures errors happening before any analysis starts (listings could not be read)
var regexCouldNotRead = regexp.MustCompile("could not read class listing")

// Captures the kind of error that happen when you put a flag at the end instead of listings
var flagAsListing = regexp.MustCompile("could not read class listing: .*stat -(\\w+)")

// Captures directories without any listing
var noListing = regexp.MustCompile("no class listing found")

// Captures malformed listings
var badListing = regexp.MustCompile("(unknown opcode|could not decode)")

// HintForErrorMessage looks for specific error message and returns some other message that might help the user
// resolve the problem.
func HintForErrorMessage(errMsg string) string {
	if regexCouldNotRead.MatchString(errMsg) {
		if flagAsListing.MatchString(errMsg) {
			return "all command line flags should be before the paths to the class listings"
		}
		return "make sure the paths to the class listings exist and are readable"
	}
	if noListing.MatchString(errMsg) {
		return "directories are searched for .yaml, .yml and .cbor class listings"
	}
	if badListing.MatchString(errMsg) {
		return "class listings are YAML or CBOR documents produced by the class file decoder"
	}
	return ""
}
