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
	"fmt"
	"time"

	"github.com/elastic/glean-core-go/jsontree"

	"github.com/tidwall/pretty"
	"go.elastic.co/fastjson"
)

// TimeLayout is the layout of ping start and end times: local time with
// minute precision and the UTC offset.
const TimeLayout = "2006-01-02T15:04-07:00"

var prettyOptions = &pretty.Options{Width: 80, Indent: "  ", SortKeys: true}

// Info is the ping_info section of a ping.
type Info struct {
	PingType  string
	Seq       int64
	StartTime time.Time
	EndTime   time.Time
}

// MarshalFastJSON writes the JSON encoding of i to w.
func (i *Info) MarshalFastJSON(w *fastjson.Writer) error {
	w.RawString(`{"ping_type":`)
	w.String(i.PingType)
	w.RawString(`,"seq":`)
	w.Int64(i.Seq)
	w.RawString(`,"start_time":`)
	w.String(i.StartTime.Format(TimeLayout))
	w.RawString(`,"end_time":`)
	w.String(i.EndTime.Format(TimeLayout))
	w.RawByte('}')
	return nil
}

// Document is an assembled ping.
type Document struct {
	Info       Info
	ClientInfo map[string]interface{}
	// Metrics is the metric store snapshot of the ping.
	Metrics []byte
}

// MarshalFastJSON writes the JSON encoding of d to w.
func (d *Document) MarshalFastJSON(w *fastjson.Writer) error {
	w.RawString(`{"ping_info":`)
	if err := d.Info.MarshalFastJSON(w); err != nil {
		return err
	}
	w.RawString(`,"client_info":`)
	if err := jsontree.Encode(w, d.ClientInfo); err != nil {
		return fmt.Errorf("failed to encode client info: %w", err)
	}
	w.RawString(`,"metrics":`)
	if len(d.Metrics) == 0 {
		w.RawString("{}")
	} else {
		w.RawBytes(d.Metrics)
	}
	w.RawByte('}')
	return nil
}

// Bytes returns the compact JSON encoding of d.
func (d *Document) Bytes() ([]byte, error) {
	var w fastjson.Writer
	if err := d.MarshalFastJSON(&w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Pretty returns the indented JSON encoding of d with sorted keys.
func (d *Document) Pretty() ([]byte, error) {
	b, err := d.Bytes()
	if err != nil {
		return nil, err
	}
	return pretty.PrettyOptions(b, prettyOptions), nil
}
