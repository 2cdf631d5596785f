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

package jsontree

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// FromResult converts a parsed JSON value to a tree. Numbers are kept as
// json.Number holding their original text, so integers of any size and
// their formatting survive a later Encode.
func FromResult(r gjson.Result) interface{} {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return json.Number(r.Raw)
	case gjson.String:
		return r.String()
	}

	if r.IsArray() {
		s := []interface{}{}
		r.ForEach(func(_, v gjson.Result) bool {
			s = append(s, FromResult(v))
			return true
		})
		return s
	}

	m := map[string]interface{}{}
	r.ForEach(func(k, v gjson.Result) bool {
		m[k.String()] = FromResult(v)
		return true
	})
	return m
}
