package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"colonysim.ai/internal/persistence/snapshot"
	"colonysim.ai/internal/sim/transfer"
	"colonysim.ai/internal/sim/world"
	"colonysim.ai/internal/transport/observer"
)

func testWorld(t *testing.T) *world.World {
	t.Helper()
	at := func(x, y int) transfer.Position { return transfer.Position{Room: "W1N1", X: x, Y: y} }
	w, err := world.New(world.WorldConfig{ID: "srv", RunID: "run-srv", StepRateHz: 50}, world.Layout{
		Structures: []world.Structure{
			{ID: "c1", Kind: transfer.KindContainer, Role: world.RoleHarvest, Pos: at(5, 5), Capacity: 2000,
				Store: map[transfer.Resource]int{transfer.ResourceEnergy: 1500}},
			{ID: "spawn", Kind: transfer.KindSpawn, Pos: at(6, 5), Capacity: 300},
		},
		Haulers: []world.HaulerSpec{{ID: "h1", Pos: at(5, 6), Capacity: 100}},
	}, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

func TestMetrics_Exposition(t *testing.T) {
	w := testWorld(t)
	for i := 0; i < 3; i++ {
		w.StepOnce()
	}
	rt := &serverRuntime{world: w, hub: observer.NewHub()}

	rec := httptest.NewRecorder()
	rt.mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`colony_world_step{world="srv"} 2`,
		`colony_world_objects{world="srv",kind="structure"} 2`,
		`colony_world_objects{world="srv",kind="hauler"} 1`,
		`colony_observer_sessions{world="srv"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "colony_index_queue_depth") {
		t.Fatalf("index metrics written without an index")
	}
}

func TestAdminState(t *testing.T) {
	w := testWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	srv := httptest.NewServer((&serverRuntime{world: w, hub: observer.NewHub(), adminHTTP: true}).mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/admin/v1/state")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status=%d body=%s", resp.StatusCode, b)
	}
	var got struct {
		WorldID string              `json:"world_id"`
		State   snapshot.SnapshotV1 `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.WorldID != "srv" || len(got.State.Structures) != 2 || len(got.State.Haulers) != 1 {
		t.Fatalf("state=%+v", got)
	}

	// No sink configured.
	resp2, err := http.Post(srv.URL+"/admin/v1/snapshot", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("snapshot status=%d want=503", resp2.StatusCode)
	}
}

func TestAdminDisabled(t *testing.T) {
	rt := &serverRuntime{world: testWorld(t), hub: observer.NewHub()}
	rec := httptest.NewRecorder()
	rt.mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/v1/state", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want=404", rec.Code)
	}
}

func TestLatestSnapshot(t *testing.T) {
	dir := t.TempDir()
	if got := latestSnapshot(dir); got != "" {
		t.Fatalf("empty dir: got %q", got)
	}
	snapDir := filepath.Join(dir, "snapshots")
	if err := os.MkdirAll(snapDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"90.snap.zst", "1200.snap.zst", "300.snap.zst", "notes.txt", "x.snap.zst"} {
		if err := os.WriteFile(filepath.Join(snapDir, name), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if got := latestSnapshot(dir); filepath.Base(got) != "1200.snap.zst" {
		t.Fatalf("latest=%q want=1200.snap.zst", got)
	}
}

type countingLogger struct{ n int }

func (c *countingLogger) WriteStep(world.StepLogEntry) error {
	c.n++
	return io.ErrClosedPipe
}

func TestMultiStepLogger_FansOutPastErrors(t *testing.T) {
	a, b := &countingLogger{}, &countingLogger{}
	m := multiStepLogger{a, nil, b}
	if err := m.WriteStep(world.StepLogEntry{Step: 1}); err != nil {
		t.Fatalf("WriteStep: %v", err)
	}
	if a.n != 1 || b.n != 1 {
		t.Fatalf("a=%d b=%d want=1,1", a.n, b.n)
	}
}
