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
	"errors"
	"fmt"

	"github.com/elastic/glean-core-go/logger"
)

const (
	// ErrorCategory is the category of the counters errors are recorded in.
	ErrorCategory = "glean.error"
	// DiagnosticPing always receives the error counters, in addition to
	// the pings of the erroring metric.
	DiagnosticPing = "metrics"
)

// ErrNoRecordedErrors is returned by TestGetNumRecordedErrors when no
// error was recorded.
var ErrNoRecordedErrors = errors.New("no errors recorded")

// ErrorType is the kind of misuse recorded against a metric.
type ErrorType int

const (
	// InvalidValue is recorded when a value does not match the
	// restrictions of the metric.
	InvalidValue ErrorType = iota
	// InvalidLabel is recorded when the label of a labeled metric does not
	// match the label restrictions.
	InvalidLabel
)

// String returns the token used in the name of the error counter.
func (e ErrorType) String() string {
	switch e {
	case InvalidValue:
		return "invalid_value"
	case InvalidLabel:
		return "invalid_label"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(e))
	}
}

func (e ErrorType) valid() bool {
	return e == InvalidValue || e == InvalidLabel
}

// RecordError counts an error of type errType against the metric meta.
//
// Errors are counted in the glean.error category, in a counter named
// "<error type>/<metric identifier without label>". The counter is sent in
// the pings of the metric and in DiagnosticPing. Error counters are not
// subject to any label limit.
//
// message is logged together with the metric identifier; it is never sent
// in a ping. RecordError never fails: a failure to store the error is
// logged and dropped.
func RecordError(r Recorder, meta *CommonMetricData, errType ErrorType, message string) {
	log := logger.OrNop(r.Logger())
	identifier := meta.Identifier()
	if !errType.valid() {
		log.Errorf("Unknown error type %s recorded for %s", errType, identifier)
		return
	}

	log.Warnf("%s: %s", identifier, message)

	counter := errorCounter(meta.BaseIdentifier(), errType, withDiagnosticPing(meta.SendInPings))
	if err := counter.add(r, 1); err != nil {
		log.Errorf("Failed to record %s for %s: %v", errType, identifier, err)
	}
}

// TestGetNumRecordedErrors returns the number of errors of type errType
// recorded for meta in the first ping the metric is sent in.
//
// Only meant to be used from tests.
func TestGetNumRecordedErrors(r Recorder, meta *CommonMetricData, errType ErrorType) (int32, error) {
	if len(meta.SendInPings) == 0 {
		return 0, fmt.Errorf("metric %s is not sent in any ping", meta.Identifier())
	}
	counter := errorCounter(meta.BaseIdentifier(), errType, meta.SendInPings)
	n, ok, err := counter.TestGetValue(r, meta.SendInPings[0])
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w for %s", ErrNoRecordedErrors, counter.meta.Identifier())
	}
	return n, nil
}

func errorCounter(identifier string, errType ErrorType, pings []string) *CounterMetric {
	return NewCounter(CommonMetricData{
		Name:        errType.String() + "/" + identifier,
		Category:    ErrorCategory,
		Lifetime:    PingLifetime,
		SendInPings: pings,
	})
}

func withDiagnosticPing(pings []string) []string {
	out := make([]string, 0, len(pings)+1)
	seen := make(map[string]struct{}, len(pings)+1)
	for _, p := range append(pings[:len(pings):len(pings)], DiagnosticPing) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
