package domain

import (
	"encoding/json"
	"fmt"
)

// MarshalEvent serializes an event payload for persistence.
func MarshalEvent(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}
	return data, nil
}

// UnmarshalEvent deserializes an event payload by its persisted type tag.
// The mapping is an explicit dispatch table resolved at compile time.
func UnmarshalEvent(eventType string, data []byte) (Event, error) {
	var (
		event Event
		err   error
	)

	switch eventType {
	case EventTypeAccountCreated:
		var e AccountCreated
		err = json.Unmarshal(data, &e)
		event = e
	case EventTypeAccountActivated:
		var e AccountActivated
		err = json.Unmarshal(data, &e)
		event = e
	case EventTypeAccountCredited:
		var e AccountCredited
		err = json.Unmarshal(data, &e)
		event = e
	case EventTypeAccountDebited:
		var e AccountDebited
		err = json.Unmarshal(data, &e)
		event = e
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, eventType)
	}

	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", eventType, err)
	}
	return event, nil
}
