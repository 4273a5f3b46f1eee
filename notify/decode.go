// Package notify decodes the upstream store's change-notification payload
// into a typed ChangeEvent, without deserializing the row payload itself
// (that is the bound handler's responsibility — see package handler).
package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrDecode is the sentinel a DecodeError wraps.
var ErrDecode = errors.New("notify: malformed payload")

// DecodeError carries the reason a payload failed to decode.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("notify: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return ErrDecode
}

func decodeErrorf(format string, args ...any) error {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// ActionKind is the row-level operation a notification reports.
type ActionKind string

const (
	ActionInsert ActionKind = "insert"
	ActionUpdate ActionKind = "update"
	ActionDelete ActionKind = "delete"
)

// ChangeEvent is the decoded form of a notification payload.
type ChangeEvent struct {
	Table   string
	Kind    ActionKind
	ID      uuid.UUID
	Data    json.RawMessage // nil for delete
	HasData bool
}

// wirePayload mirrors the upstream trigger contract's JSON shape. Extra
// top-level fields are tolerated (forward compatibility) simply by virtue
// of not being named here.
type wirePayload struct {
	Table  string          `json:"table"`
	Action string          `json:"action"`
	ID     string          `json:"id"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Decode parses a notification payload into a ChangeEvent. action must be
// one of "insert", "update", "delete"; id must be a canonical UUID string;
// data is required for insert/update and ignored for delete.
func Decode(payload []byte) (ChangeEvent, error) {
	var wire wirePayload
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&wire); err != nil {
		return ChangeEvent{}, decodeErrorf("invalid json: %v", err)
	}

	if wire.Table == "" {
		return ChangeEvent{}, decodeErrorf("missing table")
	}

	kind := ActionKind(wire.Action)
	switch kind {
	case ActionInsert, ActionUpdate:
		if len(wire.Data) == 0 || string(wire.Data) == "null" {
			return ChangeEvent{}, decodeErrorf("action %q requires data", wire.Action)
		}
	case ActionDelete:
		// data, if present, is ignored per the upstream contract.
	default:
		return ChangeEvent{}, decodeErrorf("unrecognized action %q", wire.Action)
	}

	// uuid.Parse also accepts braced, urn: and hyphen-less forms; only the
	// 36-character canonical form is allowed here.
	if len(wire.ID) != 36 {
		return ChangeEvent{}, decodeErrorf("invalid id %q: not a canonical UUID string", wire.ID)
	}
	id, err := uuid.Parse(wire.ID)
	if err != nil {
		return ChangeEvent{}, decodeErrorf("invalid id %q: %v", wire.ID, err)
	}

	event := ChangeEvent{
		Table: wire.Table,
		Kind:  kind,
		ID:    id,
	}
	if kind != ActionDelete {
		event.Data = wire.Data
		event.HasData = true
	}
	return event, nil
}
