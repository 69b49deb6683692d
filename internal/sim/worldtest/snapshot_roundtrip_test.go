package worldtest

import (
	"path/filepath"
	"testing"

	"colonysim.ai/internal/persistence/snapshot"
	world "colonysim.ai/internal/sim/world"
)

func TestSnapshotRoundTrip_FileResumeMatches(t *testing.T) {
	a := NewHarness(t, colonyConfig(), colonyLayout(15))
	a.StepN(7)

	path := filepath.Join(t.TempDir(), "snapshots", "7.snap.zst")
	if err := snapshot.WriteSnapshot(path, a.W.ExportSnapshot(a.W.CurrentStep()-1)); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	hdr, err := snapshot.ReadHeader(path)
	if err != nil || hdr.Step != 6 || hdr.WorldID != "worldtest" {
		t.Fatalf("header=%+v err=%v", hdr, err)
	}

	w, err := world.New(world.WorldConfig{ID: "worldtest"}, world.Layout{}, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	if err := w.ImportSnapshot(snap); err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	b := NewHarnessWithWorld(t, w)

	want := a.StepN(20)
	got := b.StepN(20)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("step %d after resume: digest=%s want=%s", i, got[i], want[i])
		}
	}
}

func TestSnapshotRoundTrip_LayoutPreserved(t *testing.T) {
	h := NewHarness(t, colonyConfig(), colonyLayout(0))
	snap := h.W.ExportSnapshot(0)

	layout, err := world.LayoutFromSnapshot(snap)
	if err != nil {
		t.Fatalf("LayoutFromSnapshot: %v", err)
	}
	if len(layout.Structures) != len(colonyStructures) || len(layout.Haulers) != len(colonyHaulers) {
		t.Fatalf("layout=%+v", layout)
	}
	for _, s := range layout.Structures {
		if s.ID == "c1" && (s.Role != world.RoleHarvest || s.Capacity != 2000) {
			t.Fatalf("c1=%+v", s)
		}
	}

	snap.Structures[0].Kind = "nope"
	if _, err := world.LayoutFromSnapshot(snap); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
