package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"qrattend/internal/attendance"
)

// CheckInNotifier publishes attendance.recorded events for stored records.
// Publish failures are logged and never reach the student.
type CheckInNotifier struct {
	q       Queue
	log     *zap.Logger
	timeout time.Duration
}

func NewCheckInNotifier(q Queue, log *zap.Logger) *CheckInNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckInNotifier{q: q, log: log, timeout: 2 * time.Second}
}

func (n *CheckInNotifier) AttendanceRecorded(ctx context.Context, rec attendance.Record) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()
	ev := CheckInEvent{
		AttendanceID: rec.ID,
		ClassID:      rec.ClassID,
		Validated:    rec.Validated,
		Distance:     rec.Distance,
	}
	if err := PublishCheckIn(ctx, n.q, ev); err != nil {
		n.log.Warn("queue publish failed", zap.String("attendance_id", rec.ID), zap.Error(err))
	}
}
