package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"qrattend/internal/attendance"
	"qrattend/internal/metrics"
	"qrattend/internal/observability"
	"qrattend/internal/queue"
)

type recordSource interface {
	GetAttendance(ctx context.Context, id string) (*attendance.Record, error)
}

type counterSink interface {
	Incr(ctx context.Context, classID string, accepted bool) error
}

func newRecordSource(db *sql.DB) recordSource {
	return attendance.NewRepository(db)
}

type worker struct {
	records  recordSource
	counters counterSink
	log      *zap.Logger
}

func newWorker(records recordSource, counters counterSink, log *zap.Logger) *worker {
	return &worker{records: records, counters: counters, log: log}
}

func (w *worker) run(ctx context.Context, messages <-chan queue.Message) {
	for msg := range messages {
		status := "processed"
		if err := w.handle(ctx, msg); err != nil {
			status = "failed"
			w.log.Warn("event not processed", zap.String("type", msg.Type), zap.Error(err))
			observability.CaptureErr(err, map[string]string{"event_type": msg.Type})
		}
		metrics.WorkerEvents.WithLabelValues(status).Inc()
	}
}

// handle counts one stored check-in. The stored row is authoritative for the
// pass flag; events for rows that no longer exist are dropped.
func (w *worker) handle(ctx context.Context, msg queue.Message) error {
	ev, err := queue.DecodeCheckIn(msg)
	if err != nil {
		return err
	}
	validated := ev.Validated
	if ev.AttendanceID != "" {
		rec, err := w.records.GetAttendance(ctx, ev.AttendanceID)
		if err != nil {
			return fmt.Errorf("fetch attendance %s: %w", ev.AttendanceID, err)
		}
		if rec == nil {
			return fmt.Errorf("attendance %s not found", ev.AttendanceID)
		}
		validated = rec.Validated
	}
	if err := w.counters.Incr(ctx, ev.ClassID, validated); err != nil {
		return fmt.Errorf("increment counters for class %s: %w", ev.ClassID, err)
	}
	w.log.Debug("check-in counted",
		zap.String("attendance_id", ev.AttendanceID),
		zap.String("class_id", ev.ClassID),
		zap.Bool("validated", validated))
	return nil
}
