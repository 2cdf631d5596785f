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
	"fmt"
	"os"
	"time"

	"github.com/elastic/glean-core-go/glean"
	"github.com/elastic/glean-core-go/logger"

	"go.elastic.co/ecszap"
	"go.uber.org/zap"
)

const defaultStagingMaxAge = 24 * time.Hour

// App is the main application.
type App struct {
	glean         *glean.Glean
	logger        *zap.SugaredLogger
	stagingMaxAge time.Duration
}

// New returns an App or an error if the creation failed.
func New(opts ...ConfigOption) (*App, error) {
	c := appConfig{}

	for _, opt := range opts {
		opt(&c)
	}

	app := &App{
		stagingMaxAge: defaultStagingMaxAge,
	}

	var err error

	if app.logger, err = buildLogger(c.logLevel, c.logOutputs, c.logErrorOutputs); err != nil {
		return nil, err
	}

	if maxAge, ok, err := parseDuration("GLEAN_STAGING_MAX_AGE"); err != nil || ok {
		if err != nil {
			return nil, err
		}
		app.stagingMaxAge = maxAge
	}

	gleanOpts := []glean.Option{
		glean.WithDataPath(c.dataPath),
		glean.WithApplicationID(c.applicationID),
		glean.WithLogger(app.logger),
	}
	if c.stagingDir != "" {
		gleanOpts = append(gleanOpts, glean.WithStagingDir(c.stagingDir))
	}

	if app.glean, err = glean.New(gleanOpts...); err != nil {
		return nil, fmt.Errorf("failed to initialize glean: %w", err)
	}

	return app, nil
}

func parseDuration(name string) (time.Duration, bool, error) {
	strValue, ok := os.LookupEnv(name)
	if !ok || strValue == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return d, true, nil
}

func buildLogger(level string, outputs, errorOutputs []string) (*zap.SugaredLogger, error) {
	if level == "" {
		level = "info"
	}

	l, err := logger.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}

	opts := []logger.Option{
		logger.WithEncoderConfig(ecszap.NewDefaultEncoderConfig().ToZapCoreEncoderConfig()),
		logger.WithLevel(l),
	}
	if len(outputs) > 0 {
		opts = append(opts, logger.WithOutputPaths(outputs...))
	}
	if len(errorOutputs) > 0 {
		opts = append(opts, logger.WithErrorOutputPaths(errorOutputs...))
	}

	return logger.New(opts...)
}
