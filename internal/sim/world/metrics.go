package world

// WorldMetrics is a read-only view of the last step. It is updated from the
// world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Step       uint64  `json:"step"`
	Rooms      int     `json:"rooms"`
	Structures int     `json:"structures"`
	Haulers    int     `json:"haulers"`
	StepMS     float64 `json:"step_ms"`

	Moves      int    `json:"moves"`
	MovedTotal uint64 `json:"moved_total"`

	GeneratorsRun   int `json:"generators_run"`
	GeneratorErrors int `json:"generator_errors"`

	Backlog map[string]int `json:"backlog,omitempty"`
}

func (w *World) publishMetrics(m WorldMetrics) { w.metrics.Store(m) }

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	m, ok := w.metrics.Load().(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}
