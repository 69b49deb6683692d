package world

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"colonysim.ai/internal/persistence/snapshot"
	"colonysim.ai/internal/sim/transfer"
)

const roomA transfer.RoomName = "W1N1"

func pos(room transfer.RoomName, x, y int) transfer.Position {
	return transfer.Position{Room: room, X: x, Y: y}
}

func energy(n int) map[transfer.Resource]int {
	return map[transfer.Resource]int{transfer.ResourceEnergy: n}
}

func testConfig() WorldConfig {
	return WorldConfig{
		ID:                    "test",
		StepRateHz:            20,
		SecondaryPriorities:   transfer.PriorityFlagsActive,
		SecondaryRange:        6,
		LinkMinTransfer:       100,
		LinkLossPermille:      30,
		TerminalMinEnergy:     100,
		TerminalSendLimit:     1000,
		TerminalCooldownSteps: 10,
	}
}

func basicLayout() Layout {
	return Layout{
		Structures: []Structure{
			{ID: "c-harvest", Kind: transfer.KindContainer, Role: RoleHarvest, Pos: pos(roomA, 10, 10), Capacity: 2000, Store: energy(1800), Produce: 10},
			{ID: "spawn", Kind: transfer.KindSpawn, Pos: pos(roomA, 12, 10), Capacity: 300, Consume: 5},
			{ID: "storage", Kind: transfer.KindStorage, Pos: pos(roomA, 20, 20), Capacity: 10000, Store: energy(500)},
		},
		Haulers: []HaulerSpec{{ID: "h1", Pos: pos(roomA, 10, 11), Capacity: 100}},
	}
}

func newTestWorld(t *testing.T, layout Layout) *World {
	t.Helper()
	w, err := New(testConfig(), layout, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func storeOf(t *testing.T, w *World, id string) map[transfer.Resource]int {
	t.Helper()
	s, ok := w.Structure(id)
	if !ok {
		t.Fatalf("structure %s missing", id)
	}
	return s.Store
}

type captureLogger struct{ entries []StepLogEntry }

func (c *captureLogger) WriteStep(e StepLogEntry) error {
	c.entries = append(c.entries, e)
	return nil
}

func TestStepOnce_HaulerFeedsSpawnFirst(t *testing.T) {
	w := newTestWorld(t, basicLayout())
	step, digest := w.StepOnce()
	if step != 0 || digest == "" {
		t.Fatalf("step=%d digest=%q", step, digest)
	}

	if got := storeOf(t, w, "spawn")[transfer.ResourceEnergy]; got != 95 {
		t.Fatalf("spawn energy=%d want=95", got)
	}
	if got := storeOf(t, w, "c-harvest")[transfer.ResourceEnergy]; got != 1710 {
		t.Fatalf("container energy=%d want=1710", got)
	}
	p, cargo, ok := w.HaulerState("h1")
	if !ok || len(cargo) != 0 || p != pos(roomA, 12, 10) {
		t.Fatalf("hauler pos=%v cargo=%v", p, cargo)
	}
	m := w.Metrics()
	if m.Moves != 2 || m.MovedTotal != 100 || m.GeneratorErrors != 0 {
		t.Fatalf("metrics=%+v", m)
	}
	if w.CurrentStep() != 1 {
		t.Fatalf("CurrentStep=%d want=1", w.CurrentStep())
	}
}

func TestStepOnce_LogEntry(t *testing.T) {
	w := newTestWorld(t, basicLayout())
	var c captureLogger
	w.SetStepLogger(&c)
	w.StepOnce()
	w.StepOnce()
	if len(c.entries) != 2 {
		t.Fatalf("entries=%d want=2", len(c.entries))
	}
	e := c.entries[0]
	if e.Step != 0 || len(e.Moves) != 2 || len(e.Rooms) != 1 {
		t.Fatalf("entry=%+v", e)
	}
	if e.Moves[0].Kind != MoveWithdraw || e.Moves[1].Kind != MoveDeposit || e.Moves[1].Target != "spawn" {
		t.Fatalf("moves=%+v", e.Moves)
	}
	if e.Rooms[0].Room != roomA || e.Rooms[0].Nodes != 3 {
		t.Fatalf("room summary=%+v", e.Rooms[0])
	}
	if c.entries[1].Step != 1 || c.entries[1].Digest == e.Digest {
		t.Fatalf("second entry=%+v", c.entries[1])
	}
}

func TestDeterminism_SameLayoutSameDigests(t *testing.T) {
	w1 := newTestWorld(t, basicLayout())
	w2 := newTestWorld(t, basicLayout())
	for i := 0; i < 40; i++ {
		s1, d1 := w1.StepOnce()
		s2, d2 := w2.StepOnce()
		if s1 != s2 || d1 != d2 {
			t.Fatalf("step %d: digests diverged: %s vs %s", i, d1, d2)
		}
	}
}

func TestGeneratorError_OnlyAffectsItsRoom(t *testing.T) {
	const roomB transfer.RoomName = "W2N1"
	layout := basicLayout()
	layout.Structures = append(layout.Structures,
		Structure{ID: "b-spawn", Kind: transfer.KindSpawn, Pos: pos(roomB, 5, 5), Capacity: 300, Broken: true},
		Structure{ID: "b-pile", Kind: transfer.KindResource, Pos: pos(roomB, 6, 5), Store: energy(50)},
	)
	layout.Haulers = append(layout.Haulers, HaulerSpec{ID: "h2", Pos: pos(roomB, 5, 6), Capacity: 100})

	var buf bytes.Buffer
	w, err := New(testConfig(), layout, log.New(&buf, "", 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var c captureLogger
	w.SetStepLogger(&c)
	w.StepOnce()

	e := c.entries[0]
	if e.GeneratorErrors != 1 {
		t.Fatalf("GeneratorErrors=%d want=1", e.GeneratorErrors)
	}
	for _, m := range e.Moves {
		if m.Actor == "h2" {
			t.Fatalf("hauler in broken room moved: %+v", m)
		}
	}
	if got := storeOf(t, w, "spawn")[transfer.ResourceEnergy]; got != 95 {
		t.Fatalf("healthy room spawn=%d want=95", got)
	}
	if !strings.Contains(buf.String(), "b-spawn: broken") {
		t.Fatalf("log=%q", buf.String())
	}
}

func TestLinks_SendToStorageLink(t *testing.T) {
	w := newTestWorld(t, Layout{Structures: []Structure{
		{ID: "link-src", Kind: transfer.KindLink, Role: RoleSource, Pos: pos(roomA, 5, 5), Capacity: 800, Store: energy(400)},
		{ID: "link-sto", Kind: transfer.KindLink, Role: RoleStorage, Pos: pos(roomA, 20, 21), Capacity: 800},
	}})
	var c captureLogger
	w.SetStepLogger(&c)
	w.StepOnce()

	if got := storeOf(t, w, "link-sto")[transfer.ResourceEnergy]; got != 388 {
		t.Fatalf("storage link=%d want=388", got)
	}
	src, _ := w.Structure("link-src")
	if src.Store[transfer.ResourceEnergy] != 0 || src.Cooldown != 15 {
		t.Fatalf("source link store=%v cooldown=%d", src.Store, src.Cooldown)
	}
	if len(c.entries[0].Moves) != 1 || c.entries[0].Moves[0].Kind != MoveLink {
		t.Fatalf("moves=%+v", c.entries[0].Moves)
	}
}

func TestTerminals_FillRemoteWant(t *testing.T) {
	const roomB transfer.RoomName = "W2N1"
	w := newTestWorld(t, Layout{Structures: []Structure{
		{ID: "t1", Kind: transfer.KindTerminal, Pos: pos(roomA, 25, 25), Capacity: 300000,
			Store: map[transfer.Resource]int{"oxygen": 5000, transfer.ResourceEnergy: 10000}},
		{ID: "t2", Kind: transfer.KindTerminal, Pos: pos(roomB, 25, 25), Capacity: 300000,
			Want: map[transfer.Resource]int{"oxygen": 1000}},
	}})
	w.StepOnce()

	t1 := storeOf(t, w, "t1")
	if t1["oxygen"] != 4000 || t1[transfer.ResourceEnergy] != 9967 {
		t.Fatalf("t1=%v want oxygen=4000 energy=9967", t1)
	}
	if got := storeOf(t, w, "t2")["oxygen"]; got != 1000 {
		t.Fatalf("t2 oxygen=%d want=1000", got)
	}
	src, _ := w.Structure("t1")
	if src.Cooldown != 9 {
		t.Fatalf("cooldown=%d want=9", src.Cooldown)
	}
}

func TestPilesDecayWhenEmpty(t *testing.T) {
	w := newTestWorld(t, Layout{
		Structures: []Structure{
			{ID: "pile", Kind: transfer.KindResource, Pos: pos(roomA, 4, 4), Store: energy(60)},
			{ID: "storage", Kind: transfer.KindStorage, Pos: pos(roomA, 6, 4), Capacity: 1000},
		},
		Haulers: []HaulerSpec{{ID: "h1", Pos: pos(roomA, 4, 5), Capacity: 100}},
	})
	w.StepOnce()
	if _, ok := w.Structure("pile"); ok {
		t.Fatalf("empty pile still present")
	}
	if got := storeOf(t, w, "storage")[transfer.ResourceEnergy]; got != 60 {
		t.Fatalf("storage=%d want=60", got)
	}
}

func TestNew_RejectsBadLayout(t *testing.T) {
	cases := []Layout{
		{Structures: []Structure{{ID: "a", Kind: transfer.KindSpawn, Pos: pos(roomA, 1, 1)}, {ID: "a", Kind: transfer.KindSpawn, Pos: pos(roomA, 2, 2)}}},
		{Structures: []Structure{{ID: "a", Kind: transfer.KindSpawn, Pos: pos("sim", 1, 1)}}},
		{Haulers: []HaulerSpec{{ID: "h", Pos: pos(roomA, 1, 1)}}},
	}
	for i, l := range cases {
		if _, err := New(testConfig(), l, nil); !errors.Is(err, ErrInvalidLayout) {
			t.Fatalf("case %d: err=%v want ErrInvalidLayout", i, err)
		}
	}
}

func TestSnapshot_ResumeMatchesContinuous(t *testing.T) {
	w1 := newTestWorld(t, basicLayout())
	for i := 0; i < 5; i++ {
		w1.StepOnce()
	}
	snap := w1.ExportSnapshot(w1.CurrentStep() - 1)

	w2 := newTestWorld(t, Layout{})
	if err := w2.ImportSnapshot(snap); err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	if w2.CurrentStep() != w1.CurrentStep() {
		t.Fatalf("CurrentStep=%d want=%d", w2.CurrentStep(), w1.CurrentStep())
	}
	for i := 0; i < 10; i++ {
		s1, d1 := w1.StepOnce()
		s2, d2 := w2.StepOnce()
		if s1 != s2 || d1 != d2 {
			t.Fatalf("step %d: resumed world diverged", s1)
		}
	}

	if err := w2.ImportSnapshot(snapshot.SnapshotV1{}); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestRun_ServesStateRequests(t *testing.T) {
	w := newTestWorld(t, basicLayout())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer reqCancel()
	st, err := w.RequestState(reqCtx)
	if err != nil {
		t.Fatalf("RequestState: %v", err)
	}
	if len(st.Structures) != 3 || len(st.Haulers) != 1 {
		t.Fatalf("state=%+v", st)
	}
	if _, err := w.RequestSnapshot(reqCtx); err == nil {
		t.Fatalf("snapshot without sink should fail")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err=%v", err)
	}
}
