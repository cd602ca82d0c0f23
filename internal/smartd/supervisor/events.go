// Copyright 2024 Clyso GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package supervisor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/metalbox-io/smartd-go/internal/smartd/warning"
)

// deviceEventSubject is the single well-known NATS subject warning
// dispatches are published under.
const deviceEventSubject = "smartd.device.events"

// DeviceEvent is the NATS payload for one warning dispatch, following
// the NatsEvent shape (NodeName/InstanceID/Device/EventType/Severity/
// Message/Details) adapted from disk-health metrics to the warning
// pipeline's dispatch record.
type DeviceEvent struct {
	NodeName   string            `json:"node_name"`
	InstanceID string            `json:"instance_id"`
	Device     string            `json:"device"`
	EventType  string            `json:"event_type"`
	Severity   string            `json:"severity"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Events is the optional outbound NATS sink for warning dispatches. Off
// by default; publish failures are logged, never raised back into the
// check cycle, since a slow or unreachable broker must not delay or
// fail device monitoring.
type Events struct {
	conn       *nats.Conn
	nodeName   string
	instanceID string
}

// NewEvents connects to url and tags every published event with a fresh
// per-process instance ID, the way DiskHealthMetricsConfig threads
// NodeName/InstanceID through every NatsEvent.
func NewEvents(url, nodeName string) (*Events, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &Events{conn: conn, nodeName: nodeName, instanceID: uuid.NewString()}, nil
}

// Close closes the underlying connection without draining it.
func (e *Events) Close() {
	if e.conn != nil {
		e.conn.Close()
	}
}

// PublishDispatch converts a warning dispatch into a DeviceEvent and
// publishes it, best-effort.
func (e *Events) PublishDispatch(d warning.Dispatch) {
	severity := "warning"
	if d.FailType == warning.TypeHealth || d.FailType == warning.TypeTemperature {
		severity = "critical"
	}
	ev := DeviceEvent{
		NodeName:   e.nodeName,
		InstanceID: e.instanceID,
		Device:     d.DeviceString,
		EventType:  string(d.FailType),
		Severity:   severity,
		Message:    d.Message,
		Details: map[string]string{
			"device_info": d.DeviceInfo,
			"device_type": d.DeviceType,
		},
		Timestamp: time.Now(),
	}
	e.publish(ev)
}

func (e *Events) publish(ev DeviceEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("marshal device event failed")
		return
	}
	if err := e.conn.Publish(deviceEventSubject, payload); err != nil {
		log.Error().Err(err).Msg("publish device event failed")
	}
}
