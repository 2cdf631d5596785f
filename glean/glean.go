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

// Package glean ties the metric store, the ping collector and the ping
// store together behind a single handle.
package glean

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/elastic/glean-core-go/database"
	"github.com/elastic/glean-core-go/logger"
	"github.com/elastic/glean-core-go/metrics"
	"github.com/elastic/glean-core-go/ping"
	"github.com/elastic/glean-core-go/version"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var applicationIDRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Glean records metrics and turns them into stored pings.
//
// A Glean is safe for concurrent use. It implements metrics.Recorder.
type Glean struct {
	db            *database.Database
	collector     *ping.Collector
	store         *ping.Store
	logger        *zap.SugaredLogger
	applicationID string
}

// New opens the data directory and initializes the client information.
// Application lifetime metrics of the previous run are cleared.
func New(opts ...Option) (*Glean, error) {
	c := config{now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}

	if c.dataPath == "" {
		return nil, errors.New("data path is required")
	}
	appID := sanitizeApplicationID(c.applicationID)
	if appID == "" {
		return nil, errors.New("application id is required")
	}
	l := logger.OrNop(c.logger)

	db, err := database.Open(c.dataPath, database.WithLogger(l), database.WithOpenTime(c.now()))
	if err != nil {
		return nil, err
	}

	g := &Glean{
		db:            db,
		collector:     ping.NewCollector(db, ping.WithLogger(l), ping.WithClock(c.now)),
		store:         ping.NewStore(c.dataPath, ping.WithLogger(l), ping.WithStagingDir(c.stagingDir), ping.WithClock(c.now)),
		logger:        l,
		applicationID: appID,
	}

	if err := db.ClearLifetime(metrics.ApplicationLifetime); err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	if err := g.initializeClientInfo(); err != nil {
		return nil, multierr.Append(err, db.Close())
	}

	l.Infof("Glean %s initialized for %s in %s", version.Version, appID, c.dataPath)
	return g, nil
}

// sanitizeApplicationID lower cases id and replaces every run of
// characters other than letters and digits with a dash.
func sanitizeApplicationID(id string) string {
	return strings.Trim(applicationIDRegexp.ReplaceAllString(strings.ToLower(id), "-"), "-")
}

// ApplicationID returns the sanitized application id.
func (g *Glean) ApplicationID() string {
	return g.applicationID
}

// Record implements metrics.Recorder.
func (g *Glean) Record(meta *metrics.CommonMetricData, metricType string, transform func([]byte) ([]byte, error)) error {
	return g.db.Record(meta, metricType, transform)
}

// Value implements metrics.Recorder.
func (g *Glean) Value(ping, metricType, identifier string) ([]byte, bool, error) {
	return g.db.Value(ping, metricType, identifier)
}

// Logger implements metrics.Recorder.
func (g *Glean) Logger() *zap.SugaredLogger {
	return g.logger
}

// CollectPing assembles the document of the named ping and returns it as
// indented JSON without storing it. The ping lifetime values of the ping
// are consumed.
func (g *Glean) CollectPing(name string) (string, error) {
	return g.collector.CollectString(name)
}

// SubmitPing collects the named ping and stores it for upload. It returns
// the document id of the stored ping.
func (g *Glean) SubmitPing(name string) (string, error) {
	if name == ping.ClientInfoStorage {
		return "", fmt.Errorf("%s cannot be submitted", name)
	}

	body, err := g.collector.CollectString(name)
	if err != nil {
		return "", fmt.Errorf("failed to collect ping %s: %w", name, err)
	}

	docID := uuid.NewString()
	if err := g.store.Put(docID, g.uploadPath(name, docID), []byte(body)); err != nil {
		return "", fmt.Errorf("failed to store ping %s: %w", name, err)
	}

	g.logger.Infof("Ping %s stored as %s", name, docID)
	return docID, nil
}

func (g *Glean) uploadPath(name, docID string) string {
	return fmt.Sprintf("/submit/%s/%s/%d/%s", g.applicationID, name, version.SchemaVersion, docID)
}

// PendingPings returns the stored pings waiting for upload.
func (g *Glean) PendingPings() ([]ping.PendingPing, error) {
	return g.store.Pending()
}

// RemovePing deletes a stored ping, typically once it was uploaded.
func (g *Glean) RemovePing(docID string) error {
	return g.store.Remove(docID)
}

// CleanStaging removes staging files older than olderThan.
func (g *Glean) CleanStaging(olderThan time.Duration) (int, error) {
	return g.store.CleanStaging(olderThan)
}

// Close closes the metric store.
func (g *Glean) Close() error {
	return g.db.Close()
}
