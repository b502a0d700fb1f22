package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

// TypeAttendanceRecorded is published after an attendance row is stored.
const TypeAttendanceRecorded = "attendance.recorded"

// CheckInEvent is the body of an attendance.recorded message.
type CheckInEvent struct {
	AttendanceID string   `json:"attendance_id"`
	ClassID      string   `json:"class_id"`
	Validated    bool     `json:"validated"`
	Distance     *float64 `json:"distance,omitempty"`
}

// PublishCheckIn encodes ev and puts it on q.
func PublishCheckIn(ctx context.Context, q Queue, ev CheckInEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return q.Publish(ctx, Message{Type: TypeAttendanceRecorded, Body: body})
}

// DecodeCheckIn parses an attendance.recorded message.
func DecodeCheckIn(msg Message) (CheckInEvent, error) {
	if msg.Type != TypeAttendanceRecorded {
		return CheckInEvent{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	var ev CheckInEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		return CheckInEvent{}, fmt.Errorf("decode check-in event: %w", err)
	}
	if ev.ClassID == "" {
		return CheckInEvent{}, fmt.Errorf("check-in event without class id")
	}
	return ev, nil
}
