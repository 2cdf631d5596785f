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

package glean

import (
	"time"

	"go.uber.org/zap"
)

type config struct {
	dataPath      string
	applicationID string
	stagingDir    string
	logger        *zap.SugaredLogger
	now           func() time.Time
}

// Option configures a Glean instance.
type Option func(*config)

// WithDataPath sets the directory the database and the pending pings are
// stored in. Required.
func WithDataPath(path string) Option {
	return func(c *config) {
		c.dataPath = path
	}
}

// WithApplicationID sets the application id used in upload paths.
// Required.
func WithApplicationID(id string) Option {
	return func(c *config) {
		c.applicationID = id
	}
}

// WithStagingDir sets the directory ping files are written to before
// they are moved to the pending directory. Defaults to <data_path>/tmp.
func WithStagingDir(dir string) Option {
	return func(c *config) {
		c.stagingDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithClock sets the clock used for ping times.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}
