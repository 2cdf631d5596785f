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

package metrics

import (
	"fmt"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"go.elastic.co/fastjson"
)

const (
	// StringType is the snapshot key of strings.
	StringType = "string"

	// MaxStringLength is the maximum length in bytes of a string metric.
	MaxStringLength = 100
)

// StringMetric records a single string value.
type StringMetric struct {
	meta CommonMetricData
}

// NewString returns a string metric for the given metric.
func NewString(meta CommonMetricData) *StringMetric {
	return &StringMetric{meta: meta}
}

// Meta returns the metric description.
func (s *StringMetric) Meta() *CommonMetricData {
	return &s.meta
}

// Set replaces the stored value. Values longer than MaxStringLength are
// truncated and an invalid_value error is recorded.
func (s *StringMetric) Set(r Recorder, value string) error {
	if s.meta.Disabled {
		return nil
	}
	if len(value) > MaxStringLength {
		RecordError(r, &s.meta, InvalidValue, fmt.Sprintf("Value length %d exceeds maximum of %d", len(value), MaxStringLength))
		value = truncate(value, MaxStringLength)
	}

	var w fastjson.Writer
	w.String(value)
	encoded := w.Bytes()

	err := r.Record(&s.meta, StringType, func([]byte) ([]byte, error) {
		return encoded, nil
	})
	if err != nil {
		return fmt.Errorf("failed to record string %s: %w", s.meta.Identifier(), err)
	}
	return nil
}

// TestGetValue returns the value stored for the string in ping.
func (s *StringMetric) TestGetValue(r Recorder, ping string) (string, bool, error) {
	raw, ok, err := r.Value(ping, StringType, s.meta.Identifier())
	if err != nil || !ok {
		return "", false, err
	}
	return gjson.ParseBytes(raw).String(), true, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
