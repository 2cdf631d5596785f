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
	"fmt"

	"github.com/elastic/glean-core-go/metrics"

	"go.uber.org/multierr"
)

// Run submits the named pings, defaulting to the diagnostic ping, then
// reports the pings waiting for upload. It stops at the first ping that
// cannot be submitted, or when ctx is done.
func (app *App) Run(ctx context.Context, pings ...string) (err error) {
	defer func() {
		if closeErr := app.glean.Close(); closeErr != nil {
			app.logger.Warnf("Failed to close the metric store: %v", closeErr)
			err = multierr.Append(err, closeErr)
		}
	}()

	if removed, err := app.glean.CleanStaging(app.stagingMaxAge); err != nil {
		app.logger.Warnf("Failed to clean the staging directory: %v", err)
	} else if removed > 0 {
		app.logger.Debugf("Removed %d staging files", removed)
	}

	if len(pings) == 0 {
		pings = []string{metrics.DiagnosticPing}
	}

	for _, name := range pings {
		if err := ctx.Err(); err != nil {
			app.logger.Infof("Interrupted before submitting %s", name)
			return err
		}
		docID, err := app.glean.SubmitPing(name)
		if err != nil {
			return fmt.Errorf("failed to submit %s: %w", name, err)
		}
		app.logger.Debugf("Submitted %s for %s as %s", name, app.glean.ApplicationID(), docID)
	}

	pending, err := app.glean.PendingPings()
	if err != nil {
		// Unreadable files are reported but do not fail the run.
		app.logger.Warnf("Some pending pings could not be read: %v", err)
	}
	app.logger.Infof("%d pings waiting for upload", len(pending))
	return nil
}
