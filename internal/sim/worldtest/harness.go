package worldtest

import (
	"testing"

	"colonysim.ai/internal/sim/transfer"
	world "colonysim.ai/internal/sim/world"
)

// Harness is a small black-box test helper for driving a world via exported APIs:
// - Step()/StepN() advance the world via StepOnce()
// - every step log entry is captured in Entries
// - Energy/Total helpers read state without touching world internals
type Harness struct {
	T *testing.T
	W *world.World

	Entries []world.StepLogEntry
}

type captureLogger struct{ h *Harness }

func (c captureLogger) WriteStep(e world.StepLogEntry) error {
	c.h.Entries = append(c.h.Entries, e)
	return nil
}

func NewHarness(t *testing.T, cfg world.WorldConfig, layout world.Layout) *Harness {
	t.Helper()

	w, err := world.New(cfg, layout, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return NewHarnessWithWorld(t, w)
}

// NewHarnessWithWorld is like NewHarness, but uses an already-constructed world instance.
// This is useful for snapshot round-trip tests where the snapshot is imported first.
func NewHarnessWithWorld(t *testing.T, w *world.World) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	h := &Harness{T: t, W: w}
	w.SetStepLogger(captureLogger{h: h})
	return h
}

// Step runs one step and returns its log entry.
func (h *Harness) Step() world.StepLogEntry {
	h.T.Helper()
	before := len(h.Entries)
	h.W.StepOnce()
	if len(h.Entries) != before+1 {
		h.T.Fatalf("step produced %d log entries", len(h.Entries)-before)
	}
	return h.Entries[len(h.Entries)-1]
}

// StepN runs n steps and returns their digests.
func (h *Harness) StepN(n int) []string {
	h.T.Helper()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, h.Step().Digest)
	}
	return out
}

func (h *Harness) Structure(id string) world.Structure {
	h.T.Helper()
	s, ok := h.W.Structure(id)
	if !ok {
		h.T.Fatalf("unknown structure: %q", id)
	}
	return s
}

func (h *Harness) Energy(id string) int {
	return h.Structure(id).Store[transfer.ResourceEnergy]
}

// Total sums res over the given structures and haulers.
func (h *Harness) Total(res transfer.Resource, structures, haulers []string) int {
	h.T.Helper()
	n := 0
	for _, id := range structures {
		if s, ok := h.W.Structure(id); ok {
			n += s.Store[res]
		}
	}
	for _, id := range haulers {
		_, cargo, ok := h.W.HaulerState(id)
		if !ok {
			h.T.Fatalf("unknown hauler: %q", id)
		}
		n += cargo[res]
	}
	return n
}
