package secevent

import "log/slog"

// Reporter consumes security events: a production default that logs,
// and a discardable no-op for tests or disabled deployments.
type Reporter interface {
	Report(e Event)
}

// NoopReporter discards every event.
type NoopReporter struct{}

// Report does nothing.
func (NoopReporter) Report(Event) {}

// SlogReporter logs each event at warn level with structured fields, the
// default Reporter for the distributor.
type SlogReporter struct {
	logger *slog.Logger
}

// NewSlogReporter creates a reporter backed by logger, or slog.Default
// if logger is nil.
func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogReporter{logger: logger}
}

// Report logs the event.
func (r *SlogReporter) Report(e Event) {
	r.logger.Warn("security event",
		"kind", string(e.Kind),
		"event_id", e.ID,
		"source", e.SourceAddr,
		"endpoint", e.EndpointID,
		"method", e.Method,
		"call_id", e.CallID,
		"detail", e.Detail,
	)
}
