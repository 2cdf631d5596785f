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
	"fmt"
	"math"
	"sort"

	"github.com/tidwall/gjson"
	"go.elastic.co/fastjson"
)

// Encode writes the tree v to w. Object keys are written in sorted order
// so the same tree always encodes to the same bytes.
func Encode(w *fastjson.Writer, v interface{}) error {
	switch v := v.(type) {
	case nil:
		w.RawString("null")
	case bool:
		w.Bool(v)
	case string:
		w.String(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("unsupported number %v", v)
		}
		w.Float64(v)
	case json.Number:
		if gjson.Parse(string(v)).Type != gjson.Number || !gjson.Valid(string(v)) {
			return fmt.Errorf("invalid number %q", string(v))
		}
		w.RawString(string(v))
	case int:
		w.Int64(int64(v))
	case int32:
		w.Int64(int64(v))
	case int64:
		w.Int64(v)
	case []interface{}:
		w.RawByte('[')
		for i, e := range v {
			if i > 0 {
				w.RawByte(',')
			}
			if err := Encode(w, e); err != nil {
				return err
			}
		}
		w.RawByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		w.RawByte('{')
		for i, k := range keys {
			if i > 0 {
				w.RawByte(',')
			}
			w.String(k)
			w.RawByte(':')
			if err := Encode(w, v[k]); err != nil {
				return err
			}
		}
		w.RawByte('}')
	default:
		return fmt.Errorf("unsupported json tree value of type %T", v)
	}
	return nil
}
