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

package ping

import (
	"errors"
	"fmt"
	"time"

	"github.com/elastic/glean-core-go/jsontree"
	"github.com/elastic/glean-core-go/logger"
	"github.com/elastic/glean-core-go/version"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ClientInfoStorage is the storage name client information metrics are
// recorded in. It is never submitted as a ping on its own.
const ClientInfoStorage = "glean_client_info"

// ErrMalformedSnapshot is returned when the client information snapshot
// is not an object of objects.
var ErrMalformedSnapshot = errors.New("malformed client info snapshot")

// Storage is the view of the metric store the collector needs.
type Storage interface {
	// Snapshot returns the stored values of ping as a JSON object keyed
	// by metric type, then by metric identifier.
	Snapshot(ping string, clearPingLifetime bool) ([]byte, error)
	// AdvancePing returns the sequence number and window start of the
	// next collection of ping and moves both forward.
	AdvancePing(ping string, now time.Time) (int64, time.Time, error)
}

// Collector turns stored metric values into ping documents.
type Collector struct {
	storage Storage
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// NewCollector returns a collector reading from storage.
func NewCollector(storage Storage, opts ...Option) *Collector {
	o := newOptions(opts)
	return &Collector{
		storage: storage,
		logger:  logger.OrNop(o.logger),
		now:     o.now,
	}
}

// ClientInfo returns the client information object. The
// ClientInfoStorage snapshot groups values by metric type; the groups
// are merged into one object, a later group winning on conflicting keys.
// The object always carries the library version.
//
// Reading client information does not consume it.
func (c *Collector) ClientInfo() (map[string]interface{}, error) {
	raw, err := c.storage.Snapshot(ClientInfoStorage, false)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot %s: %w", ClientInfoStorage, err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedSnapshot)
	}
	snapshot := gjson.ParseBytes(raw)
	if !snapshot.IsObject() {
		return nil, fmt.Errorf("%w: snapshot is not an object", ErrMalformedSnapshot)
	}

	var (
		info interface{} = map[string]interface{}{
			"telemetry_sdk_build": version.Version,
		}
		malformed *gjson.Result
	)
	snapshot.ForEach(func(metricType, group gjson.Result) bool {
		if !group.IsObject() {
			malformed = &metricType
			return false
		}
		info = jsontree.Merge(info, jsontree.FromResult(group))
		return true
	})
	if malformed != nil {
		return nil, fmt.Errorf("%w: %q is not an object", ErrMalformedSnapshot, malformed.String())
	}
	return info.(map[string]interface{}), nil
}

// Collect assembles the document of ping. It consumes the ping lifetime
// values of the ping and advances its sequence number.
func (c *Collector) Collect(ping string) (*Document, error) {
	c.logger.Infof("Collecting %s", ping)

	// Client information is read before anything is consumed.
	clientInfo, err := c.ClientInfo()
	if err != nil {
		return nil, err
	}

	end := c.now()
	seq, start, err := c.storage.AdvancePing(ping, end)
	if err != nil {
		return nil, fmt.Errorf("failed to advance %s: %w", ping, err)
	}

	snapshot, err := c.storage.Snapshot(ping, true)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot %s: %w", ping, err)
	}

	return &Document{
		Info: Info{
			PingType:  ping,
			Seq:       seq,
			StartTime: start.In(end.Location()),
			EndTime:   end,
		},
		ClientInfo: clientInfo,
		Metrics:    snapshot,
	}, nil
}

// CollectString assembles the document of ping and returns it as
// indented JSON with sorted keys.
func (c *Collector) CollectString(ping string) (string, error) {
	doc, err := c.Collect(ping)
	if err != nil {
		return "", err
	}
	b, err := doc.Pretty()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
