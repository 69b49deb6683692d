package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"colonysim.ai/internal/persistence/snapshot"
)

func writeDummy(t *testing.T, path string, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestArchiveSnapshot_CopiesOnBoundary(t *testing.T) {
	worldDir := filepath.Join(t.TempDir(), "worlds", "w1")
	src := filepath.Join(worldDir, "snapshots", "1200.snap.zst")
	writeDummy(t, src, "dummy")

	snap := snapshot.SnapshotV1{
		Header:   snapshot.Header{Version: snapshot.Version, WorldID: "w1", RunID: "run-a", Step: 1200},
		Haulers:  []snapshot.HaulerV1{{ID: "h1"}},
		Counters: snapshot.CountersV1{MovedTotal: 5000},
	}

	archivedPath, ok, err := ArchiveSnapshot(worldDir, src, snap, 600)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !ok {
		t.Fatalf("expected archived=true")
	}
	got, err := os.ReadFile(archivedPath)
	if err != nil {
		t.Fatalf("read archived: %v", err)
	}
	if string(got) != "dummy" {
		t.Fatalf("archived content=%q", got)
	}

	b, err := os.ReadFile(filepath.Join(filepath.Dir(archivedPath), "meta.json"))
	if err != nil {
		t.Fatalf("meta.json: %v", err)
	}
	var meta Meta
	if err := json.Unmarshal(b, &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.Step != 1200 || meta.RunID != "run-a" || meta.Haulers != 1 || meta.MovedTotal != 5000 {
		t.Fatalf("meta=%+v", meta)
	}
}

func TestArchiveSnapshot_SkipsOffBoundary(t *testing.T) {
	worldDir := t.TempDir()
	for _, tc := range []struct {
		step, every uint64
	}{
		{step: 900, every: 600},
		{step: 600, every: 0},
		{step: 0, every: 600},
	} {
		snap := snapshot.SnapshotV1{Header: snapshot.Header{Step: tc.step}}
		if _, ok, err := ArchiveSnapshot(worldDir, "unused", snap, tc.every); ok || err != nil {
			t.Fatalf("step=%d every=%d: ok=%v err=%v", tc.step, tc.every, ok, err)
		}
	}
}

func TestPruneSnapshots_KeepsNewest(t *testing.T) {
	worldDir := t.TempDir()
	dir := filepath.Join(worldDir, "snapshots")
	for _, name := range []string{"600.snap.zst", "1800.snap.zst", "1200.snap.zst", "2400.snap.zst", "notes.txt"} {
		writeDummy(t, filepath.Join(dir, name), "x")
	}

	removed, err := PruneSnapshots(worldDir, 2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("removed=%v", removed)
	}
	for name, want := range map[string]bool{
		"600.snap.zst":  false,
		"1200.snap.zst": false,
		"1800.snap.zst": true,
		"2400.snap.zst": true,
		"notes.txt":     true,
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		if got := err == nil; got != want {
			t.Fatalf("%s exists=%v want=%v", name, got, want)
		}
	}

	if removed, err := PruneSnapshots(t.TempDir(), 2); err != nil || removed != nil {
		t.Fatalf("missing dir: removed=%v err=%v", removed, err)
	}
}
