package observers

import "github.com/harunnryd/lyra/pkg/metrics"

type MultiObserver struct {
	observers []metrics.Observer
}

func NewMultiObserver(observers ...metrics.Observer) *MultiObserver {
	return &MultiObserver{observers: observers}
}

func (m *MultiObserver) RecordEvent(ev metrics.MetricsEvent) {
	for _, o := range m.observers {
		if o != nil {
			o.RecordEvent(ev)
		}
	}
}
