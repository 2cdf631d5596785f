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
	"fmt"
	"runtime"

	"github.com/elastic/glean-core-go/metrics"
	"github.com/elastic/glean-core-go/ping"

	"github.com/google/uuid"
)

var (
	clientIDMetric = metrics.NewString(metrics.CommonMetricData{
		Name:        "client_id",
		SendInPings: []string{ping.ClientInfoStorage},
		Lifetime:    metrics.UserLifetime,
	})
	osMetric = metrics.NewString(metrics.CommonMetricData{
		Name:        "os",
		SendInPings: []string{ping.ClientInfoStorage},
		Lifetime:    metrics.ApplicationLifetime,
	})
	architectureMetric = metrics.NewString(metrics.CommonMetricData{
		Name:        "architecture",
		SendInPings: []string{ping.ClientInfoStorage},
		Lifetime:    metrics.ApplicationLifetime,
	})
	appIDMetric = metrics.NewString(metrics.CommonMetricData{
		Name:        "app_id",
		SendInPings: []string{ping.ClientInfoStorage},
		Lifetime:    metrics.ApplicationLifetime,
	})
)

func (g *Glean) initializeClientInfo() error {
	_, ok, err := g.db.Value(ping.ClientInfoStorage, metrics.StringType, clientIDMetric.Meta().Identifier())
	if err != nil {
		return fmt.Errorf("failed to read client id: %w", err)
	}
	if !ok {
		clientID := uuid.NewString()
		if err := clientIDMetric.Set(g, clientID); err != nil {
			return err
		}
		g.logger.Debugf("Generated client id %s", clientID)
	}

	for _, m := range []struct {
		metric *metrics.StringMetric
		value  string
	}{
		{osMetric, runtime.GOOS},
		{architectureMetric, runtime.GOARCH},
		{appIDMetric, g.applicationID},
	} {
		if err := m.metric.Set(g, m.value); err != nil {
			return err
		}
	}
	return nil
}
