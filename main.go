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

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/elastic/glean-core-go/app"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	if err := mainWithError(); err != nil {
		log.Fatal(err)
	}
}

func mainWithError() error {
	// Global context
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	return run(ctx, os.Args[1:])
}

func run(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("glean-core-go", pflag.ContinueOnError)
	envFile := flags.String("env-file", ".env", "file to load environment variables from, if it exists")
	dataPath := flags.String("data-path", "", "directory holding the metric database and pending pings (GLEAN_DATA_PATH)")
	appID := flags.String("app-id", "", "application id used in upload paths (GLEAN_APPLICATION_ID)")
	stagingDir := flags.String("staging-dir", "", "directory ping files are staged in (GLEAN_STAGING_DIR)")
	logLevel := flags.String("log-level", "", "log level (GLEAN_LOG_LEVEL)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %v", *envFile, err)
	}

	appConfigs := []app.ConfigOption{
		app.WithDataPath(flagOrEnv(*dataPath, "GLEAN_DATA_PATH")),
		app.WithApplicationID(flagOrEnv(*appID, "GLEAN_APPLICATION_ID")),
		app.WithStagingDir(flagOrEnv(*stagingDir, "GLEAN_STAGING_DIR")),
		app.WithLogLevel(flagOrEnv(*logLevel, "GLEAN_LOG_LEVEL")),
	}

	application, err := app.New(appConfigs...)
	if err != nil {
		return fmt.Errorf("failed to create the app: %v", err)
	}

	if err := application.Run(ctx, flags.Args()...); err != nil {
		return fmt.Errorf("error while running: %v", err)
	}

	return nil
}

func flagOrEnv(value, env string) string {
	if value != "" {
		return value
	}
	return os.Getenv(env)
}
