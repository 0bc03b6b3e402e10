package telemetry

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// LogEmitter writes each event as a structured debug log line.
type LogEmitter struct {
	logger *zap.Logger
}

func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEmitter{logger: logger.Named("telemetry")}
}

func (l *LogEmitter) Emit(_ context.Context, name string, attrs Attributes) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, attrs[k]))
	}
	l.logger.Debug(name, fields...)
}
