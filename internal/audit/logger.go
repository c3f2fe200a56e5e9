// Package audit persists one record per terminal pipeline decision and fans it
// out to every configured sink.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoPolymarket/panelgate/internal/model"
	"github.com/GoPolymarket/panelgate/internal/pkg/logger"
	"github.com/GoPolymarket/panelgate/internal/pkg/metrics"
	"github.com/google/uuid"
)

// Sink receives each record once. Records must be treated as read-only.
type Sink interface {
	Append(ctx context.Context, rec *model.AuditRecord) error
}

// Reader serves audit listings, newest first.
type Reader interface {
	List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditRecord, error)
}

type namedSink struct {
	name string
	sink Sink
}

type Logger struct {
	sinks   []namedSink
	readers []Reader
	timeout time.Duration
	now     func() time.Time
}

func NewLogger() *Logger {
	return &Logger{
		timeout: 3 * time.Second,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Use registers a sink under name (used in logs and metrics).
func (l *Logger) Use(name string, sink Sink) *Logger {
	if sink != nil {
		l.sinks = append(l.sinks, namedSink{name: name, sink: sink})
	}
	return l
}

// ReadFrom adds a listing source. Sources are tried in registration order.
func (l *Logger) ReadFrom(r Reader) *Logger {
	if r != nil {
		l.readers = append(l.readers, r)
	}
	return l
}

// Record stamps id and time, then appends to every sink. It returns once all
// sinks were attempted and never reports sink failures to the caller.
func (l *Logger) Record(ctx context.Context, rec *model.AuditRecord) {
	if rec == nil {
		return
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = l.now()
	}

	// 客户端断开不应导致审计丢失
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	for _, s := range l.sinks {
		if err := appendSafely(ctx, s.sink, rec); err != nil {
			metrics.AuditSinkErrors.WithLabelValues(s.name).Inc()
			logger.LogError(ctx, err, "audit sink append failed",
				"sink", s.name, "audit_id", rec.ID, "resource", rec.ResourceType, "action", string(rec.Action))
		}
	}
}

func appendSafely(ctx context.Context, sink Sink, rec *model.AuditRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("audit sink panic: %v", r)
		}
	}()
	return sink.Append(ctx, rec)
}

// List returns the first successful listing. A failing reader falls through
// to the next one.
func (l *Logger) List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditRecord, error) {
	if len(l.readers) == 0 {
		return nil, errors.New("no audit reader configured")
	}
	filter.Limit = clampLimit(filter.Limit)
	var lastErr error
	for _, r := range l.readers {
		records, err := r.List(ctx, filter)
		if err == nil {
			return records, nil
		}
		lastErr = err
		logger.Warn("audit reader failed, trying next", "error", err.Error())
	}
	return nil, lastErr
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}
