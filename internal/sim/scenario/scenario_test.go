package scenario

import (
	"errors"
	"path/filepath"
	"testing"

	"colonysim.ai/internal/sim/transfer"
	"colonysim.ai/internal/sim/tuning"
	world "colonysim.ai/internal/sim/world"
)

func TestLoad_BundledScenarioRuns(t *testing.T) {
	s, err := Load(filepath.Join("..", "..", "..", "configs", "scenarios", "two-rooms.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.WorldID != "colony-1" || len(s.Rooms) != 2 {
		t.Fatalf("scenario=%+v", s)
	}
	layout, err := s.Layout()
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if len(layout.Structures) != 18 || len(layout.Haulers) != 4 {
		t.Fatalf("structures=%d haulers=%d", len(layout.Structures), len(layout.Haulers))
	}

	cfg := s.Config(world.ConfigFromTuning("default", tuning.Defaults()))
	if cfg.ID != "colony-1" {
		t.Fatalf("cfg.ID=%q", cfg.ID)
	}
	w, err := world.New(cfg, layout, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	for i := 0; i < 20; i++ {
		w.StepOnce()
		if m := w.Metrics(); m.GeneratorErrors != 0 {
			t.Fatalf("step %d: generator errors=%d", i, m.GeneratorErrors)
		}
	}
}

func TestParse_LayoutFields(t *testing.T) {
	s, err := Parse([]byte(`
rooms:
  - name: E3S7
    structures:
      - id: c1
        kind: container
        role: harvest
        x: 4
        y: 5
        capacity: 2000
        store: {energy: 900}
        produce: 12
    haulers:
      - {id: h1, x: 4, y: 6, capacity: 150, cargo: {energy: 20}}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	l, err := s.Layout()
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	c := l.Structures[0]
	wantPos := transfer.Position{Room: "E3S7", X: 4, Y: 5}
	if c.Kind != transfer.KindContainer || c.Role != world.RoleHarvest || c.Pos != wantPos || c.Produce != 12 || c.Store[transfer.ResourceEnergy] != 900 {
		t.Fatalf("structure=%+v", c)
	}
	h := l.Haulers[0]
	if h.Capacity != 150 || h.Cargo[transfer.ResourceEnergy] != 20 || h.Pos.Room != "E3S7" {
		t.Fatalf("hauler=%+v", h)
	}
}

func TestParse_RejectsInvalid(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":        ``,
		"not yaml":     `rooms: [`,
		"no rooms":     `world_id: x`,
		"unknown kind": "rooms:\n  - name: W1N1\n    structures:\n      - {id: a, kind: castle, x: 1, y: 1}\n",
		"bad room":     "rooms:\n  - name: arena\n",
		"negative":     "rooms:\n  - name: W1N1\n    structures:\n      - {id: a, kind: spawn, x: 1, y: 1, capacity: -5}\n",
	} {
		if _, err := Parse([]byte(raw)); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: err=%v want ErrInvalid", name, err)
		}
	}
}
