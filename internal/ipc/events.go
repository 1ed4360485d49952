// Package ipc defines the daemon's event bus payloads and the line-delimited
// JSON protocol used to deliver them over a Unix domain socket.
package ipc

import (
	"encoding/json"
	"fmt"

	"dwinhmi/internal/hmi"
)

// ============================================================================
// Event Types
// ============================================================================
// Events represent intent from the encoder, IPC clients, the HTTP API and the
// simulator. The daemon loop is the only consumer.
// ============================================================================

// Event is a marker interface for all daemon events.
type Event interface {
	eventMarker()
}

// Input is one or more encoder events.
type Input struct {
	Input string `json:"input"`           // increase|decrease|confirm (or cw|ccw|press)
	Count int    `json:"count,omitempty"` // repeat count, default 1
}

func (Input) eventMarker() {}

// Notify delivers a subsystem completion callback.
type Notify struct {
	Name string `json:"name"` // e.g. "homing_complete"
}

func (Notify) eventMarker() {}

// SimMedia inserts or removes the simulated card. Ignored by real backends.
type SimMedia struct {
	Mounted bool `json:"mounted"`
}

func (SimMedia) eventMarker() {}

// SimRunout drives the simulated filament sensor. Ignored by real backends.
type SimRunout struct {
	Runout bool `json:"runout"`
}

func (SimRunout) eventMarker() {}

// RequestSnapshot asks the daemon loop for a snapshot. It never crosses the
// socket; the HTTP and WebSocket handlers use it in-process.
type RequestSnapshot struct {
	Reply chan<- hmi.Snapshot
}

func (RequestSnapshot) eventMarker() {}

// MaxInputCount bounds the repeat count of a single Input event.
const MaxInputCount = 100

// Inputs expands an Input event into decoded encoder events.
func (e Input) Inputs() ([]hmi.Input, error) {
	in, ok := hmi.ParseInput(e.Input)
	if !ok || in == hmi.InputNone {
		return nil, fmt.Errorf("unknown input %q", e.Input)
	}
	n := e.Count
	if n <= 0 {
		n = 1
	}
	if n > MaxInputCount {
		return nil, fmt.Errorf("input count %d exceeds %d", n, MaxInputCount)
	}
	out := make([]hmi.Input, n)
	for i := range out {
		out[i] = in
	}
	return out, nil
}

// Notification decodes the callback name.
func (e Notify) Notification() (hmi.Notification, error) {
	n, ok := hmi.ParseNotification(e.Name)
	if !ok {
		return 0, fmt.Errorf("unknown notification %q", e.Name)
	}
	return n, nil
}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "input":
		var e Input
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal Input: %w", err)
		}
		if _, err := e.Inputs(); err != nil {
			return nil, err
		}
		return e, nil

	case "notify":
		var e Notify
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal Notify: %w", err)
		}
		if _, err := e.Notification(); err != nil {
			return nil, err
		}
		return e, nil

	case "sim_media":
		var e SimMedia
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal SimMedia: %w", err)
		}
		return e, nil

	case "sim_runout":
		var e SimRunout
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal SimRunout: %w", err)
		}
		return e, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case Input:
		env.Type = "input"
	case Notify:
		env.Type = "notify"
	case SimMedia:
		env.Type = "sim_media"
	case SimRunout:
		env.Type = "sim_runout"
	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", env.Type, err)
	}
	env.Data = data
	return json.Marshal(env)
}
