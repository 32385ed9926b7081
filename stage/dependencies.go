package stage

import (
	"log/slog"

	"github.com/ategus/bridginghub/metric"
)

// Dependencies provides the ambient collaborators handed to stage factories.
// Stages receive structured dependencies rather than reaching for globals.
type Dependencies struct {
	Logger  *slog.Logger     // Structured logger (can be nil, defaults to slog.Default())
	Metrics *metric.Registry // Metrics registry (can be nil, metrics are then skipped)
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithSegment returns a logger configured with segment context
func (d *Dependencies) GetLoggerWithSegment(segment string) *slog.Logger {
	return d.GetLogger().With("segment", segment)
}
