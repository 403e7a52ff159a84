// Package audit records security-relevant events: registrations, organisation
// creation, and membership changes. Entries are written to the audit_logs table and
// optionally mirrored to a JSON-lines file for collection by a log shipper.
//
// Recording never blocks the request that triggered it. Writes run on a tracked
// background goroutine and Close waits for them to drain.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/identity-service/identity-service/internal/db/models"
	"github.com/identity-service/identity-service/internal/safego"
)

const writeTimeout = 5 * time.Second

// Writer persists an audit entry.
type Writer interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Sink receives a copy of every entry after it has been persisted.
type Sink interface {
	Write(entry *models.AuditLog) error
	Close() error
}

// Recorder writes audit entries asynchronously.
type Recorder struct {
	writer Writer
	sink   Sink
	wg     sync.WaitGroup
}

// NewRecorder returns a Recorder writing to writer and, if non-nil, sink.
func NewRecorder(writer Writer, sink Sink) *Recorder {
	return &Recorder{writer: writer, sink: sink}
}

// Record schedules entry for writing. A nil Recorder discards entries, which is
// how auditing is switched off.
func (r *Recorder) Record(entry *models.AuditLog) {
	if r == nil || entry == nil {
		return
	}
	safego.GoTracked(&r.wg, "audit.record", func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := r.writer.CreateAuditLog(ctx, entry); err != nil {
			slog.Error("failed to write audit log", "action", entry.Action, "error", err)
			return
		}
		if r.sink != nil {
			if err := r.sink.Write(entry); err != nil {
				slog.Error("failed to mirror audit log", "action", entry.Action, "error", err)
			}
		}
	})
}

// Close waits for pending writes and closes the sink.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.wg.Wait()
	if r.sink != nil {
		return r.sink.Close()
	}
	return nil
}
