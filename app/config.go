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

type appConfig struct {
	dataPath        string
	applicationID   string
	stagingDir      string
	logLevel        string
	logOutputs      []string
	logErrorOutputs []string
}

// ConfigOption is used to configure the application.
type ConfigOption func(*appConfig)

// WithDataPath sets the directory holding the metric database and the
// pending pings.
func WithDataPath(path string) ConfigOption {
	return func(c *appConfig) {
		c.dataPath = path
	}
}

// WithApplicationID sets the application id used in the upload path of
// stored pings.
func WithApplicationID(id string) ConfigOption {
	return func(c *appConfig) {
		c.applicationID = id
	}
}

// WithStagingDir sets the directory ping files are staged in. It must be
// on the same file system as the data path.
func WithStagingDir(dir string) ConfigOption {
	return func(c *appConfig) {
		c.stagingDir = dir
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) ConfigOption {
	return func(c *appConfig) {
		c.logLevel = level
	}
}

// WithLogOutputs sets where logs are written. Defaults to stderr.
func WithLogOutputs(paths ...string) ConfigOption {
	return func(c *appConfig) {
		c.logOutputs = paths
	}
}

// WithLogErrorOutputs sets where failures to write a log line are
// reported. Defaults to stderr.
func WithLogErrorOutputs(paths ...string) ConfigOption {
	return func(c *appConfig) {
		c.logErrorOutputs = paths
	}
}
