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
	"regexp"
)

const (
	// OtherLabel collects the values recorded with an invalid label.
	OtherLabel = "__other__"

	maxLabelLength = 61
)

var labelRegexp = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,29}(\.[a-z_][a-z0-9_-]{0,29})*$`)

// LabeledCounterMetric is a counter split by caller supplied labels.
type LabeledCounterMetric struct {
	meta CommonMetricData
}

// NewLabeledCounter returns a labeled counter for the given metric.
func NewLabeledCounter(meta CommonMetricData) *LabeledCounterMetric {
	return &LabeledCounterMetric{meta: meta}
}

// Get returns the counter for label. An invalid label records an
// invalid_label error and the returned counter records into OtherLabel.
func (l *LabeledCounterMetric) Get(r Recorder, label string) *CounterMetric {
	if err := validateLabel(label); err != nil {
		RecordError(r, &l.meta, InvalidLabel, err.Error())
		label = OtherLabel
	}
	meta := l.meta
	meta.DynamicLabel = label
	return &CounterMetric{meta: meta, metricType: LabeledCounterType}
}

func validateLabel(label string) error {
	if len(label) > maxLabelLength {
		return fmt.Errorf("label length %d exceeds maximum of %d", len(label), maxLabelLength)
	}
	if !labelRegexp.MatchString(label) {
		return fmt.Errorf("label must be snake_case, got '%s'", label)
	}
	return nil
}
