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

package metrics_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/elastic/glean-core-go/database"
	"github.com/elastic/glean-core-go/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRecorder(t *testing.T) (*database.Database, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	db, err := database.Open(t.TempDir(), database.WithLogger(zap.New(core).Sugar()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, logs
}

func TestIdentifier(t *testing.T) {
	for _, tc := range []struct {
		name string
		meta metrics.CommonMetricData
		id   string
		base string
	}{
		{
			name: "category and name",
			meta: metrics.CommonMetricData{Category: "telemetry", Name: "counter_metric"},
			id:   "telemetry.counter_metric",
			base: "telemetry.counter_metric",
		},
		{
			name: "no category",
			meta: metrics.CommonMetricData{Name: "os"},
			id:   "os",
			base: "os",
		},
		{
			name: "labeled",
			meta: metrics.CommonMetricData{Category: "telemetry", Name: "clicks", DynamicLabel: "button"},
			id:   "telemetry.clicks/button",
			base: "telemetry.clicks",
		},
		{
			name: "name with a slash",
			meta: metrics.CommonMetricData{Category: "glean.error", Name: "invalid_value/telemetry.c"},
			id:   "glean.error.invalid_value/telemetry.c",
			base: "glean.error.invalid_value",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.id, tc.meta.Identifier())
			assert.Equal(t, tc.base, tc.meta.BaseIdentifier())
		})
	}
}

func TestLifetimeString(t *testing.T) {
	assert.Equal(t, "ping", metrics.PingLifetime.String())
	assert.Equal(t, "application", metrics.ApplicationLifetime.String())
	assert.Equal(t, "user", metrics.UserLifetime.String())
	assert.Equal(t, "Lifetime(7)", metrics.Lifetime(7).String())
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "invalid_value", metrics.InvalidValue.String())
	assert.Equal(t, "invalid_label", metrics.InvalidLabel.String())
	assert.Equal(t, "ErrorType(9)", metrics.ErrorType(9).String())
}

func TestRecordError(t *testing.T) {
	db, logs := newRecorder(t)
	meta := &metrics.CommonMetricData{
		Category:    "telemetry",
		Name:        "counter_metric",
		SendInPings: []string{"metrics"},
	}

	metrics.RecordError(db, meta, metrics.InvalidValue, "Invalid value")

	n, err := metrics.TestGetNumRecordedErrors(db, meta, metrics.InvalidValue)
	require.NoError(t, err)
	assert.Equal(t, int32(1), n)

	raw, ok, err := db.Value("metrics", metrics.CounterType, "glean.error.invalid_value/telemetry.counter_metric")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", string(raw))

	metrics.RecordError(db, meta, metrics.InvalidValue, "Invalid value")
	n, err = metrics.TestGetNumRecordedErrors(db, meta, metrics.InvalidValue)
	require.NoError(t, err)
	assert.Equal(t, int32(2), n)

	_, err = metrics.TestGetNumRecordedErrors(db, meta, metrics.InvalidLabel)
	assert.ErrorIs(t, err, metrics.ErrNoRecordedErrors)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 2)
	assert.Equal(t, "telemetry.counter_metric: Invalid value", warnings[0].Message)
}

func TestRecordErrorAddsDiagnosticPing(t *testing.T) {
	db, _ := newRecorder(t)
	meta := &metrics.CommonMetricData{
		Category:    "telemetry",
		Name:        "counter_metric",
		SendInPings: []string{"store1", "store2"},
	}

	metrics.RecordError(db, meta, metrics.InvalidValue, "Invalid value")

	for _, ping := range []string{"store1", "store2", metrics.DiagnosticPing} {
		raw, ok, err := db.Value(ping, metrics.CounterType, "glean.error.invalid_value/telemetry.counter_metric")
		require.NoError(t, err)
		require.True(t, ok, ping)
		assert.Equal(t, "1", string(raw), ping)
	}
	assert.Equal(t, []string{"store1", "store2"}, meta.SendInPings, "the metric pings are left untouched")
}

func TestRecordErrorUsesBaseIdentifier(t *testing.T) {
	db, _ := newRecorder(t)
	labeled := metrics.NewLabeledCounter(metrics.CommonMetricData{
		Category:    "telemetry",
		Name:        "clicks",
		SendInPings: []string{"metrics"},
	})

	counter := labeled.Get(db, "button")
	metrics.RecordError(db, counter.Meta(), metrics.InvalidValue, "Invalid value")

	n, err := metrics.TestGetNumRecordedErrors(db, counter.Meta(), metrics.InvalidValue)
	require.NoError(t, err)
	assert.Equal(t, int32(1), n)

	_, ok, err := db.Value("metrics", metrics.CounterType, "glean.error.invalid_value/telemetry.clicks")
	require.NoError(t, err)
	assert.True(t, ok, "the label is not part of the error counter name")
}

func TestRecordErrorUnknownType(t *testing.T) {
	db, logs := newRecorder(t)
	meta := &metrics.CommonMetricData{Name: "m", SendInPings: []string{"metrics"}}

	metrics.RecordError(db, meta, metrics.ErrorType(42), "what")

	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	snapshot, err := db.Snapshot("metrics", false)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(snapshot))
}

func TestTestGetNumRecordedErrorsNoPing(t *testing.T) {
	db, _ := newRecorder(t)
	_, err := metrics.TestGetNumRecordedErrors(db, &metrics.CommonMetricData{Name: "m"}, metrics.InvalidValue)
	require.Error(t, err)
	assert.False(t, errors.Is(err, metrics.ErrNoRecordedErrors))
}

func TestCounterAdd(t *testing.T) {
	db, _ := newRecorder(t)
	counter := metrics.NewCounter(metrics.CommonMetricData{
		Category:    "telemetry",
		Name:        "counter_metric",
		SendInPings: []string{"metrics", "baseline"},
	})

	_, ok, err := counter.TestGetValue(db, "metrics")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, counter.Add(db, 1))
	require.NoError(t, counter.Add(db, 2))

	for _, ping := range []string{"metrics", "baseline"} {
		v, ok, err := counter.TestGetValue(db, ping)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, int32(3), v)
	}
}

func TestCounterRejectsNonPositive(t *testing.T) {
	for _, amount := range []int32{0, -1, math.MinInt32} {
		db, _ := newRecorder(t)
		counter := metrics.NewCounter(metrics.CommonMetricData{
			Category:    "telemetry",
			Name:        "counter_metric",
			SendInPings: []string{"store1"},
		})

		require.NoError(t, counter.Add(db, amount))

		_, ok, err := counter.TestGetValue(db, "store1")
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := metrics.TestGetNumRecordedErrors(db, counter.Meta(), metrics.InvalidValue)
		require.NoError(t, err)
		assert.Equal(t, int32(1), n)
	}
}

func TestCounterSaturates(t *testing.T) {
	db, _ := newRecorder(t)
	counter := metrics.NewCounter(metrics.CommonMetricData{Name: "big", SendInPings: []string{"metrics"}})

	require.NoError(t, counter.Add(db, math.MaxInt32))
	require.NoError(t, counter.Add(db, 10))

	v, ok, err := counter.TestGetValue(db, "metrics")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int32(math.MaxInt32), v)
}

func TestDisabledMetricsRecordNothing(t *testing.T) {
	db, _ := newRecorder(t)
	meta := metrics.CommonMetricData{Name: "off", SendInPings: []string{"metrics"}, Disabled: true}

	require.NoError(t, metrics.NewCounter(meta).Add(db, 1))
	require.NoError(t, metrics.NewCounter(meta).Add(db, -1))
	require.NoError(t, metrics.NewString(meta).Set(db, "x"))

	snapshot, err := db.Snapshot("metrics", false)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(snapshot))
}

func TestLabeledCounter(t *testing.T) {
	db, _ := newRecorder(t)
	labeled := metrics.NewLabeledCounter(metrics.CommonMetricData{
		Category:    "telemetry",
		Name:        "clicks",
		SendInPings: []string{"metrics"},
	})

	require.NoError(t, labeled.Get(db, "ok_button").Add(db, 2))
	require.NoError(t, labeled.Get(db, "dotted.label").Add(db, 1))

	snapshot, err := db.Snapshot("metrics", false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"labeled_counter":{
		"telemetry.clicks/ok_button": 2,
		"telemetry.clicks/dotted.label": 1
	}}`, string(snapshot))
}

func TestLabeledCounterInvalidLabel(t *testing.T) {
	for _, label := range []string{
		"",
		"NotSnakeCase",
		"with space",
		"1starts_with_digit",
		strings.Repeat("a", 31),
		strings.Repeat("abcdefghij.", 6),
	} {
		t.Run(label, func(t *testing.T) {
			db, _ := newRecorder(t)
			labeled := metrics.NewLabeledCounter(metrics.CommonMetricData{
				Category:    "telemetry",
				Name:        "clicks",
				SendInPings: []string{"metrics"},
			})

			counter := labeled.Get(db, label)
			assert.Equal(t, metrics.OtherLabel, counter.Meta().DynamicLabel)
			require.NoError(t, counter.Add(db, 1))

			v, ok, err := counter.TestGetValue(db, "metrics")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, int32(1), v)

			n, err := metrics.TestGetNumRecordedErrors(db, counter.Meta(), metrics.InvalidLabel)
			require.NoError(t, err)
			assert.Equal(t, int32(1), n)
		})
	}
}

func TestStringSet(t *testing.T) {
	db, _ := newRecorder(t)
	s := metrics.NewString(metrics.CommonMetricData{
		Name:        "os",
		SendInPings: []string{"metrics"},
		Lifetime:    metrics.ApplicationLifetime,
	})

	require.NoError(t, s.Set(db, `quote " and \ slash`))
	v, ok, err := s.TestGetValue(db, "metrics")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `quote " and \ slash`, v)

	require.NoError(t, s.Set(db, "linux"))
	v, _, err = s.TestGetValue(db, "metrics")
	require.NoError(t, err)
	assert.Equal(t, "linux", v)

	_, err = metrics.TestGetNumRecordedErrors(db, s.Meta(), metrics.InvalidValue)
	assert.ErrorIs(t, err, metrics.ErrNoRecordedErrors)
}

func TestStringTruncates(t *testing.T) {
	db, _ := newRecorder(t)
	s := metrics.NewString(metrics.CommonMetricData{Name: "long", SendInPings: []string{"metrics"}})

	// 99 ASCII bytes followed by a two byte rune.
	value := strings.Repeat("a", metrics.MaxStringLength-1) + "é"
	require.NoError(t, s.Set(db, value))

	v, ok, err := s.TestGetValue(db, "metrics")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, strings.Repeat("a", metrics.MaxStringLength-1), v)

	n, err := metrics.TestGetNumRecordedErrors(db, s.Meta(), metrics.InvalidValue)
	require.NoError(t, err)
	assert.Equal(t, int32(1), n)
}
