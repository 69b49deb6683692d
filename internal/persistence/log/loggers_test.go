package log

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"colonysim.ai/internal/sim/transfer"
	"colonysim.ai/internal/sim/world"
)

func testWorld(t *testing.T) *world.World {
	t.Helper()
	room := transfer.RoomName("W1N1")
	w, err := world.New(world.WorldConfig{ID: "logtest", RunID: "run-1"}, world.Layout{
		Structures: []world.Structure{
			{ID: "c1", Kind: transfer.KindContainer, Role: world.RoleHarvest, Pos: transfer.Position{Room: room, X: 5, Y: 5}, Capacity: 2000,
				Store: map[transfer.Resource]int{transfer.ResourceEnergy: 1600}, Produce: 10},
			{ID: "spawn", Kind: transfer.KindSpawn, Pos: transfer.Position{Room: room, X: 8, Y: 5}, Capacity: 300, Consume: 7},
		},
		Haulers: []world.HaulerSpec{{ID: "h1", Pos: transfer.Position{Room: room, X: 5, Y: 6}, Capacity: 50}},
	}, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

func TestStepLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := testWorld(t)
	l := NewStepLogger(dir)
	w.SetStepLogger(l)

	var digests []string
	for i := 0; i < 12; i++ {
		_, d := w.StepOnce()
		digests = append(digests, d)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var got []world.StepLogEntry
	if err := ReadSteps(dir, func(e world.StepLogEntry) error {
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("ReadSteps: %v", err)
	}
	if len(got) != len(digests) {
		t.Fatalf("entries=%d want=%d", len(got), len(digests))
	}
	for i, e := range got {
		if e.Step != uint64(i) || e.Digest != digests[i] || e.RunID != "run-1" {
			t.Fatalf("entry %d: step=%d digest=%s run=%s", i, e.Step, e.Digest, e.RunID)
		}
	}
	if len(got[0].Moves) == 0 || got[0].Moves[0].Kind != world.MoveWithdraw {
		t.Fatalf("first step moves=%+v", got[0].Moves)
	}
}

func TestStepLogger_MatchesSchema(t *testing.T) {
	s, err := jsonschema.Compile(filepath.Join("..", "..", "..", "schemas", "step.schema.json"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	dir := t.TempDir()
	w := testWorld(t)
	l := NewStepLogger(dir)
	w.SetStepLogger(l)
	for i := 0; i < 5; i++ {
		w.StepOnce()
	}
	_ = l.Close()

	files, err := Files(StepDir(dir), "steps")
	if err != nil || len(files) != 1 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	n := 0
	if err := ReadJSONL(files, func(line []byte) error {
		var v any
		if err := json.Unmarshal(line, &v); err != nil {
			return err
		}
		n++
		return s.Validate(v)
	}); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if n != 5 {
		t.Fatalf("lines=%d want=5", n)
	}
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "steps")
	base := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	now := base
	w.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if err := w.Write(map[string]int{"i": i}); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if i == 1 {
			now = base.Add(2 * time.Minute)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := Files(dir, "steps")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 2 ||
		filepath.Base(files[0]) != "steps-2026-03-01-10.jsonl.zst" ||
		filepath.Base(files[1]) != "steps-2026-03-01-11.jsonl.zst" {
		t.Fatalf("files=%v", files)
	}

	var seen []int
	if err := ReadJSONL(files, func(line []byte) error {
		var v struct{ I int }
		if err := json.Unmarshal(line, &v); err != nil {
			return err
		}
		seen = append(seen, v.I)
		return nil
	}); err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if len(seen) != 3 || seen[0] != 0 || seen[2] != 2 {
		t.Fatalf("seen=%v", seen)
	}
}
