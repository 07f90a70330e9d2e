package observers

import (
	"log/slog"

	"github.com/harunnryd/lyra/pkg/metrics"
)

// LoggerObserver writes every metrics event to the structured log at debug
// level. Useful in development; the async fan-in keeps it off hot paths.
type LoggerObserver struct {
	log *slog.Logger
}

func NewLoggerObserver(log *slog.Logger) *LoggerObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LoggerObserver{log: log}
}

func (o *LoggerObserver) RecordEvent(ev metrics.MetricsEvent) {
	attrs := make([]any, 0, 2+2*len(ev.Tags))
	attrs = append(attrs, "event", ev.Name)
	for k, v := range ev.Tags {
		attrs = append(attrs, k, v)
	}
	o.log.Debug("metrics_event", attrs...)
}
