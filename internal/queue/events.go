package queue

import (
	"encoding/json"
	"fmt"

	"kiosk/internal/attendance"
)

// TypeAttendanceRecorded announces a newly appended attendance event.
const TypeAttendanceRecorded = "attendance.recorded"

// AttendanceRecorded wraps an event in a notification.
func AttendanceRecorded(evt attendance.Event) (Message, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return Message{}, fmt.Errorf("encode event: %w", err)
	}
	return Message{Type: TypeAttendanceRecorded, Body: body}, nil
}

// DecodeEvent extracts the event from an attendance.recorded message.
func DecodeEvent(msg Message) (attendance.Event, error) {
	if msg.Type != TypeAttendanceRecorded {
		return attendance.Event{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	var evt attendance.Event
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		return attendance.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return evt, nil
}
