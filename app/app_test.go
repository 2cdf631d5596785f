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

package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestApp(t *testing.T, dataPath string, opts ...ConfigOption) (*App, string) {
	t.Helper()
	logFile := filepath.Join(t.TempDir(), "app.log")
	app, err := New(append([]ConfigOption{
		WithDataPath(dataPath),
		WithApplicationID("test-app"),
		WithLogLevel("debug"),
		WithLogOutputs(logFile),
	}, opts...)...)
	require.NoError(t, err)
	return app, logFile
}

func readLogs(t *testing.T, path string) []gjson.Result {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var lines []gjson.Result
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line != "" {
			lines = append(lines, gjson.Parse(line))
		}
	}
	return lines
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(WithDataPath(t.TempDir()), WithApplicationID("a"), WithLogLevel("loud"))
	assert.Error(t, err)

	_, err = New(WithApplicationID("a"), WithLogLevel("off"))
	assert.Error(t, err, "a data path is required")

	t.Setenv("GLEAN_STAGING_MAX_AGE", "soon")
	_, err = New(WithDataPath(t.TempDir()), WithApplicationID("a"), WithLogLevel("off"))
	assert.Error(t, err)
}

func TestStagingMaxAgeFromEnv(t *testing.T) {
	t.Setenv("GLEAN_STAGING_MAX_AGE", "90m")
	app, _ := newTestApp(t, t.TempDir())
	defer app.glean.Close()
	assert.Equal(t, 90*time.Minute, app.stagingMaxAge)
}

func TestRunDefaultsToDiagnosticPing(t *testing.T) {
	dataPath := t.TempDir()
	app, logFile := newTestApp(t, dataPath)

	require.NoError(t, app.Run(context.Background()))

	entries, err := os.ReadDir(filepath.Join(dataPath, "pings"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dataPath, "pings", entries[0].Name()))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "/submit/test-app/metrics/1/"+entries[0].Name()+"\n"))

	var messages []string
	for _, l := range readLogs(t, logFile) {
		messages = append(messages, l.Get("message").String())
	}
	assert.Contains(t, messages, "Collecting metrics")
	assert.Contains(t, messages, "1 pings waiting for upload")
}

func TestRunSubmitsNamedPings(t *testing.T) {
	dataPath := t.TempDir()
	staging := filepath.Join(dataPath, "staging")
	app, _ := newTestApp(t, dataPath, WithStagingDir(staging))

	require.NoError(t, app.Run(context.Background(), "baseline", "events"))

	entries, err := os.ReadDir(filepath.Join(dataPath, "pings"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	staged, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestRunCancelled(t *testing.T) {
	dataPath := t.TempDir()
	app, _ := newTestApp(t, dataPath)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, app.Run(ctx, "metrics"), context.Canceled)
	assert.NoDirExists(t, filepath.Join(dataPath, "pings"))
}

func TestLogErrorOutputs(t *testing.T) {
	errorLog := filepath.Join(t.TempDir(), "errors.log")
	app, _ := newTestApp(t, t.TempDir(), WithLogErrorOutputs(errorLog))
	defer app.glean.Close()
	assert.FileExists(t, errorLog, "the error output is opened with the logger")

	_, err := New(
		WithDataPath(t.TempDir()),
		WithApplicationID("a"),
		WithLogErrorOutputs(filepath.Join(t.TempDir(), "missing", "errors.log")),
	)
	assert.Error(t, err)
}

func TestRunLogsApplicationID(t *testing.T) {
	app, logFile := newTestApp(t, t.TempDir(), WithApplicationID("Other.App"))

	require.NoError(t, app.Run(context.Background(), "baseline"))

	var submitted []string
	for _, l := range readLogs(t, logFile) {
		if m := l.Get("message").String(); strings.HasPrefix(m, "Submitted baseline") {
			submitted = append(submitted, m)
		}
	}
	require.Len(t, submitted, 1)
	assert.True(t, strings.HasPrefix(submitted[0], "Submitted baseline for other-app as "), submitted[0])
}
