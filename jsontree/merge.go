// Licensed to Elasticsearch B.V. under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Elasticsearch B.V. licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package jsontree operates on decoded JSON trees, the values produced by
// decoding JSON into an interface{}: map[string]interface{},
// []interface{}, string, float64 or json.Number, bool and nil.
package jsontree

// Merge merges source into target and returns the result.
//
// When both target and source are objects they are merged key by key:
// keys only present in source are added, keys present in both are merged
// recursively. target is modified in place and returned. In every other
// case (scalars, arrays, mismatching types) source wins and a copy of it
// is returned in place of target.
//
// Merge is not commutative: on overlapping leaves the value from source is
// kept.
func Merge(target, source interface{}) interface{} {
	dst, ok := target.(map[string]interface{})
	if !ok {
		return Copy(source)
	}
	src, ok := source.(map[string]interface{})
	if !ok {
		return Copy(source)
	}
	for k, v := range src {
		if existing, ok := dst[k]; ok {
			dst[k] = Merge(existing, v)
			continue
		}
		dst[k] = Copy(v)
	}
	return dst
}

// Copy returns a deep copy of v.
func Copy(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, e := range v {
			m[k] = Copy(e)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(v))
		for i, e := range v {
			s[i] = Copy(e)
		}
		return s
	default:
		return v
	}
}
