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

package metrics

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Lifetime governs when a stored metric value is reset.
type Lifetime int

const (
	// PingLifetime values are cleared once they are collected into a ping.
	PingLifetime Lifetime = iota
	// ApplicationLifetime values are cleared when the library is
	// initialized.
	ApplicationLifetime
	// UserLifetime values are kept until the data directory is removed.
	UserLifetime
)

func (l Lifetime) String() string {
	switch l {
	case PingLifetime:
		return "ping"
	case ApplicationLifetime:
		return "application"
	case UserLifetime:
		return "user"
	default:
		return fmt.Sprintf("Lifetime(%d)", int(l))
	}
}

// CommonMetricData describes a metric instance.
type CommonMetricData struct {
	// Name of the metric.
	Name string
	// Category of the metric. May be empty.
	Category string
	// SendInPings lists the pings the metric value is included in.
	SendInPings []string
	// Lifetime of the stored value.
	Lifetime Lifetime
	// Disabled metrics do not record anything.
	Disabled bool
	// DynamicLabel is set for the instances of a labeled metric.
	DynamicLabel string
}

// Identifier returns the fully qualified name of the metric:
// "category.name", suffixed with "/label" for labeled instances.
func (m *CommonMetricData) Identifier() string {
	base := m.Name
	if m.Category != "" {
		base = m.Category + "." + m.Name
	}
	if m.DynamicLabel != "" {
		return base + "/" + m.DynamicLabel
	}
	return base
}

// BaseIdentifier returns the identifier without any label, i.e. everything
// before the first "/".
func (m *CommonMetricData) BaseIdentifier() string {
	base, _, _ := strings.Cut(m.Identifier(), "/")
	return base
}

// Recorder gives metric types access to the storage they record into.
//
// Record must apply transform atomically to the current value of the
// metric in every ping of meta.SendInPings. current is nil when nothing is
// stored yet; the returned bytes must be a valid JSON value.
type Recorder interface {
	Record(meta *CommonMetricData, metricType string, transform func(current []byte) ([]byte, error)) error
	Value(ping, metricType, identifier string) ([]byte, bool, error)
	Logger() *zap.SugaredLogger
}
