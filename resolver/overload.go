/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package resolver

import "dirpx.dev/refl/meta"

// NoMatch is the index Select returns when no candidate qualifies.
const NoMatch = -1

// Select returns the index of the candidate whose flag intersects flag and
// whose parameters bind to args with the highest total score. The first
// declared candidate wins a tie.
func Select(cands []*meta.MethodRecord, flag meta.MethodFlag, args []meta.Type) int {
	best, bestSum := NoMatch, -1
	for i, c := range cands {
		if !c.Flag.Has(flag) || len(c.Params) != len(args) {
			continue
		}
		sum, ok := Total(c.Params, args)
		if ok && sum > bestSum {
			best, bestSum = i, sum
		}
	}
	return best
}

// Pick is Select returning the candidate itself, or nil.
func Pick(cands []*meta.MethodRecord, flag meta.MethodFlag, args []meta.Type) *meta.MethodRecord {
	if i := Select(cands, flag, args); i != NoMatch {
		return cands[i]
	}
	return nil
}

// ObjectFlag narrows flag to what an object of type t may call: a nil
// object only reaches static methods, a const object only const and static ones.
func ObjectFlag(t meta.Type, isNil bool, flag meta.MethodFlag) meta.MethodFlag {
	switch {
	case isNil:
		return flag & meta.MethodStatic
	case t.Mode.IsConst() && !t.Mode.IsIndirect():
		return flag & (meta.MethodConst | meta.MethodStatic)
	}
	return flag
}
