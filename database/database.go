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

// Package database stores metric values in a SQLite database and answers
// snapshot queries for pings.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/elastic/glean-core-go/logger"
	"github.com/elastic/glean-core-go/metrics"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	dirName  = "db"
	fileName = "glean.sqlite"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS metrics (
		ping        TEXT    NOT NULL,
		metric_type TEXT    NOT NULL,
		identifier  TEXT    NOT NULL,
		lifetime    INTEGER NOT NULL,
		value       BLOB    NOT NULL,
		PRIMARY KEY (ping, metric_type, identifier)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_metrics_lifetime ON metrics (lifetime)`,
	`CREATE TABLE IF NOT EXISTS ping_info (
		ping       TEXT    PRIMARY KEY,
		seq        INTEGER NOT NULL,
		start_time TEXT    NOT NULL
	)`,
}

// Database is the metric store. All access goes through a single
// connection, every multi statement operation runs in a transaction.
type Database struct {
	db       *sql.DB
	path     string
	openedAt time.Time
	logger   *zap.SugaredLogger
}

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(d *Database) {
		d.logger = l
	}
}

// WithOpenTime overrides the time the database is considered opened at.
// It is the start time of the first collection of every ping.
func WithOpenTime(t time.Time) Option {
	return func(d *Database) {
		d.openedAt = t
	}
}

// Open opens, creating it when needed, the database stored under
// dataPath.
func Open(dataPath string, opts ...Option) (*Database, error) {
	d := &Database{
		path:     filepath.Join(dataPath, dirName, fileName),
		openedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logger.OrNop(d.logger)

	if err := os.MkdirAll(filepath.Dir(d.path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", d.path+"?_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to ping database: %w", err), db.Close())
	}
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return nil, multierr.Append(fmt.Errorf("failed to run migrations: %w", err), db.Close())
		}
	}
	d.db = db

	d.logger.Debugf("Database opened at %s", d.path)
	return d, nil
}

// Close closes the database.
func (d *Database) Close() error {
	return d.db.Close()
}

// Logger returns the logger the database reports through.
func (d *Database) Logger() *zap.SugaredLogger {
	return d.logger
}

// Record replaces, in every ping of meta.SendInPings, the stored value of
// the metric with transform(current). current is nil when the metric has
// no value in a ping yet. All pings are updated in one transaction.
func (d *Database) Record(meta *metrics.CommonMetricData, metricType string, transform func(current []byte) ([]byte, error)) error {
	identifier := meta.Identifier()
	return d.withTx(func(tx *sql.Tx) error {
		for _, ping := range meta.SendInPings {
			var current []byte
			err := tx.QueryRow(
				`SELECT value FROM metrics WHERE ping = ? AND metric_type = ? AND identifier = ?`,
				ping, metricType, identifier,
			).Scan(&current)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("failed to read %s in %s: %w", identifier, ping, err)
			}

			value, err := transform(current)
			if err != nil {
				return fmt.Errorf("failed to update %s in %s: %w", identifier, ping, err)
			}

			if _, err := tx.Exec(
				`INSERT INTO metrics (ping, metric_type, identifier, lifetime, value) VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (ping, metric_type, identifier) DO UPDATE SET lifetime = excluded.lifetime, value = excluded.value`,
				ping, metricType, identifier, int(meta.Lifetime), value,
			); err != nil {
				return fmt.Errorf("failed to write %s in %s: %w", identifier, ping, err)
			}
		}
		return nil
	})
}

// Value returns the raw JSON value stored for a metric in ping.
func (d *Database) Value(ping, metricType, identifier string) ([]byte, bool, error) {
	var value []byte
	err := d.db.QueryRow(
		`SELECT value FROM metrics WHERE ping = ? AND metric_type = ? AND identifier = ?`,
		ping, metricType, identifier,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s in %s: %w", identifier, ping, err)
	}
	return value, true, nil
}

// ClearLifetime removes every value stored with lifetime.
func (d *Database) ClearLifetime(lifetime metrics.Lifetime) error {
	res, err := d.db.Exec(`DELETE FROM metrics WHERE lifetime = ?`, int(lifetime))
	if err != nil {
		return fmt.Errorf("failed to clear %s lifetime metrics: %w", lifetime, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		d.logger.Debugf("Cleared %d %s lifetime values", n, lifetime)
	}
	return nil
}

func (d *Database) withTx(fn func(*sql.Tx) error) (err error) {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = multierr.Append(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
