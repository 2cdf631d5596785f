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
	"math"
	"strconv"

	"github.com/tidwall/gjson"
)

const (
	// CounterType is the snapshot key of counters.
	CounterType = "counter"
	// LabeledCounterType is the snapshot key of labeled counters.
	LabeledCounterType = "labeled_counter"
)

// CounterMetric is a metric that can only be incremented.
type CounterMetric struct {
	meta       CommonMetricData
	metricType string
}

// NewCounter returns a counter for the given metric.
func NewCounter(meta CommonMetricData) *CounterMetric {
	return &CounterMetric{meta: meta, metricType: CounterType}
}

// Meta returns the metric description.
func (c *CounterMetric) Meta() *CommonMetricData {
	return &c.meta
}

// Add increments the counter by amount. A non positive amount is not
// recorded; an invalid_value error is recorded instead. The returned error
// only reports storage failures.
func (c *CounterMetric) Add(r Recorder, amount int32) error {
	if c.meta.Disabled {
		return nil
	}
	if amount <= 0 {
		RecordError(r, &c.meta, InvalidValue, fmt.Sprintf("Added negative or zero value %d", amount))
		return nil
	}
	return c.add(r, amount)
}

func (c *CounterMetric) add(r Recorder, amount int32) error {
	err := r.Record(&c.meta, c.metricType, func(current []byte) ([]byte, error) {
		total := int64(amount)
		if current != nil {
			total += gjson.ParseBytes(current).Int()
		}
		// Counters saturate instead of wrapping around.
		if total > math.MaxInt32 {
			total = math.MaxInt32
		}
		return strconv.AppendInt(nil, total, 10), nil
	})
	if err != nil {
		return fmt.Errorf("failed to record counter %s: %w", c.meta.Identifier(), err)
	}
	return nil
}

// TestGetValue returns the value stored for the counter in ping.
func (c *CounterMetric) TestGetValue(r Recorder, ping string) (int32, bool, error) {
	raw, ok, err := r.Value(ping, c.metricType, c.meta.Identifier())
	if err != nil || !ok {
		return 0, false, err
	}
	return int32(gjson.ParseBytes(raw).Int()), true, nil
}
