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

package funcutil

import "sync"

// Map returns a new slice b such that for every index i, b[i] = f(a[i])
func Map[T any, S any](a []T, f func(T) S) []S {
	b := make([]S, len(a))
	for i, x := range a {
		b[i] = f(x)
	}
	return b
}

type elt[T any] struct {
	idx int
	x   T
}

// MapParallel is a parallel version of Map using numRoutines goroutines. The order of the results is the order of
// the inputs, whatever the order in which they were computed.
func MapParallel[T any, S any](a []T, f func(T) S, numRoutines int) []S {
	if numRoutines <= 1 {
		return Map(a, f)
	}
	in := make(chan elt[T])
	go func() {
		defer close(in)
		for i, x := range a {
			in <- elt[T]{i, x}
		}
	}()

	out := make(chan elt[S])
	wg := &sync.WaitGroup{}

	wg.Add(numRoutines)
	for i := 0; i < numRoutines; i++ {
		go func() {
			defer wg.Done()
			for x := range in {
				out <- elt[S]{x.idx, f(x.x)}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	res := make([]S, len(a))
	for x := range out {
		res[x.idx] = x.x
	}
	return res
}

// Exists returns true when there exists some x in slice a such that f(x), otherwise false.
func Exists[T any](a []T, f func(T) bool) bool {
	for _, x := range a {
		if f(x) {
			return true
		}
	}
	return false
}

// Filter returns the elements x of a such that f(x), in order
func Filter[T any](a []T, f func(T) bool) []T {
	var b []T
	for _, x := range a {
		if f(x) {
			b = append(b, x)
		}
	}
	return b
}
