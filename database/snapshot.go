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

package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/glean-core-go/metrics"

	"github.com/tidwall/sjson"
)

// Snapshot returns every value stored for ping as a JSON object keyed by
// metric type, then by metric identifier:
//
//	{"counter":{"telemetry.clicks":3},"string":{"os":"linux"}}
//
// An empty ping yields "{}". When clearPingLifetime is set the ping
// lifetime values of the ping are removed in the same transaction.
func (d *Database) Snapshot(ping string, clearPingLifetime bool) ([]byte, error) {
	var snapshot []byte
	err := d.withTx(func(tx *sql.Tx) error {
		var err error
		if snapshot, err = buildSnapshot(tx, ping); err != nil {
			return err
		}
		if !clearPingLifetime {
			return nil
		}
		if _, err := tx.Exec(
			`DELETE FROM metrics WHERE ping = ? AND lifetime = ?`,
			ping, int(metrics.PingLifetime),
		); err != nil {
			return fmt.Errorf("failed to clear ping lifetime metrics of %s: %w", ping, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func buildSnapshot(tx *sql.Tx, ping string) ([]byte, error) {
	rows, err := tx.Query(
		`SELECT metric_type, identifier, value FROM metrics WHERE ping = ? ORDER BY metric_type, identifier`,
		ping,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot of %s: %w", ping, err)
	}
	defer rows.Close()

	snapshot := []byte("{}")
	for rows.Next() {
		var (
			metricType, identifier string
			value                  []byte
		)
		if err := rows.Scan(&metricType, &identifier, &value); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot of %s: %w", ping, err)
		}
		snapshot, err = sjson.SetRawBytes(snapshot, pathKey(metricType)+"."+pathKey(identifier), value)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to snapshot of %s: %w", identifier, ping, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot of %s: %w", ping, err)
	}
	return snapshot, nil
}

// pathKey turns k into a single sjson path component. The leading ':'
// keeps numeric keys from being treated as array indexes.
func pathKey(k string) string {
	var b strings.Builder
	b.Grow(len(k) + 4)
	b.WriteByte(':')
	for i := 0; i < len(k); i++ {
		switch k[i] {
		case '\\', '.', ':', '|', '#', '@', '*', '?':
			b.WriteByte('\\')
		}
		b.WriteByte(k[i])
	}
	return b.String()
}

// AdvancePing returns the sequence number and the collection window start
// for the next collection of ping, then stores seq+1 and now for the one
// after. The first collection of a ping gets sequence number 0 and starts
// when the database was opened.
func (d *Database) AdvancePing(ping string, now time.Time) (seq int64, start time.Time, err error) {
	err = d.withTx(func(tx *sql.Tx) error {
		var rawStart string
		switch err := tx.QueryRow(
			`SELECT seq, start_time FROM ping_info WHERE ping = ?`, ping,
		).Scan(&seq, &rawStart); err {
		case nil:
			if start, err = time.Parse(time.RFC3339Nano, rawStart); err != nil {
				return fmt.Errorf("failed to parse start time of %s: %w", ping, err)
			}
		case sql.ErrNoRows:
			seq, start = 0, d.openedAt
		default:
			return fmt.Errorf("failed to read ping info of %s: %w", ping, err)
		}

		if _, err := tx.Exec(
			`INSERT INTO ping_info (ping, seq, start_time) VALUES (?, ?, ?)
			ON CONFLICT (ping) DO UPDATE SET seq = excluded.seq, start_time = excluded.start_time`,
			ping, seq+1, now.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("failed to write ping info of %s: %w", ping, err)
		}
		return nil
	})
	if err != nil {
		return 0, time.Time{}, err
	}
	return seq, start, nil
}
