package world

import (
	"fmt"

	"colonysim.ai/internal/persistence/snapshot"
	"colonysim.ai/internal/sim/transfer"
)

func storeToV1(m map[transfer.Resource]int) map[string]int {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]int, len(m))
	for r, n := range m {
		if n != 0 {
			out[string(r)] = n
		}
	}
	return out
}

func storeFromV1(m map[string]int) map[transfer.Resource]int {
	out := make(map[transfer.Resource]int, len(m))
	for r, n := range m {
		if n != 0 {
			out[transfer.Resource(r)] = n
		}
	}
	return out
}

// ExportSnapshot must be called from the world loop goroutine.
func (w *World) ExportSnapshot(step uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header:     snapshot.Header{Version: snapshot.Version, WorldID: w.cfg.ID, RunID: w.cfg.RunID, Step: step},
		StepRateHz: w.cfg.StepRateHz,
		Config: snapshot.ConfigV1{
			HaulerSecondaryPriorities: w.cfg.SecondaryPriorities.String(),
			HaulerSecondaryRange:      w.cfg.SecondaryRange,
			LinkMinTransfer:           w.cfg.LinkMinTransfer,
			LinkLossPermille:          w.cfg.LinkLossPermille,
			TerminalMinEnergy:         w.cfg.TerminalMinEnergy,
			TerminalSendLimit:         w.cfg.TerminalSendLimit,
			TerminalCooldownSteps:     w.cfg.TerminalCooldownSteps,
			SnapshotEverySteps:        w.cfg.SnapshotEverySteps,
		},
		Counters: snapshot.CountersV1{MovedTotal: w.movedTotal, Moves: w.movesTotal},
	}
	for _, s := range w.sortedStructures() {
		snap.Structures = append(snap.Structures, snapshot.StructureV1{
			ID:       s.ID,
			Kind:     s.Kind.String(),
			Role:     string(s.Role),
			Room:     string(s.Pos.Room),
			X:        s.Pos.X,
			Y:        s.Pos.Y,
			Capacity: s.Capacity,
			Store:    storeToV1(s.Store),
			Want:     storeToV1(s.Want),
			Produce:  s.Produce,
			Consume:  s.Consume,
			Cooldown: s.Cooldown,
			Broken:   s.Broken,
		})
	}
	for _, h := range w.sortedHaulers() {
		snap.Haulers = append(snap.Haulers, snapshot.HaulerV1{
			ID:       h.ID,
			Room:     string(h.pos.Room),
			X:        h.pos.X,
			Y:        h.pos.Y,
			Capacity: h.Capacity,
			Cargo:    storeToV1(h.cargo),
		})
	}
	return snap
}

// LayoutFromSnapshot rebuilds the layout stored in snap.
func LayoutFromSnapshot(snap snapshot.SnapshotV1) (Layout, error) {
	var l Layout
	for _, s := range snap.Structures {
		kind, ok := transfer.ParseTargetKind(s.Kind)
		if !ok {
			return Layout{}, fmt.Errorf("%w: structure %q: unknown kind %q", ErrInvalidLayout, s.ID, s.Kind)
		}
		role, ok := ParseRole(s.Role)
		if !ok {
			return Layout{}, fmt.Errorf("%w: structure %q: unknown role %q", ErrInvalidLayout, s.ID, s.Role)
		}
		l.Structures = append(l.Structures, Structure{
			ID:       s.ID,
			Kind:     kind,
			Role:     role,
			Pos:      transfer.Position{Room: transfer.RoomName(s.Room), X: s.X, Y: s.Y},
			Capacity: s.Capacity,
			Store:    storeFromV1(s.Store),
			Want:     storeFromV1(s.Want),
			Produce:  s.Produce,
			Consume:  s.Consume,
			Cooldown: s.Cooldown,
			Broken:   s.Broken,
		})
	}
	for _, h := range snap.Haulers {
		l.Haulers = append(l.Haulers, HaulerSpec{
			ID:       h.ID,
			Pos:      transfer.Position{Room: transfer.RoomName(h.Room), X: h.X, Y: h.Y},
			Capacity: h.Capacity,
			Cargo:    storeFromV1(h.Cargo),
		})
	}
	return l, nil
}

// ImportSnapshot replaces the colony with snap. The next step run is
// snap.Header.Step+1. Operational parameters come from the snapshot.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("snapshot version %d: unsupported", snap.Header.Version)
	}
	layout, err := LayoutFromSnapshot(snap)
	if err != nil {
		return err
	}
	prio, ok := transfer.ParsePriorityFlags(snap.Config.HaulerSecondaryPriorities)
	if !ok {
		return fmt.Errorf("snapshot: hauler priorities %q", snap.Config.HaulerSecondaryPriorities)
	}

	w.structures = map[string]*Structure{}
	w.haulers = map[string]*Hauler{}
	for _, s := range layout.Structures {
		if err := w.addStructure(s); err != nil {
			return err
		}
	}
	for _, h := range layout.Haulers {
		if err := w.addHauler(h); err != nil {
			return err
		}
	}

	if snap.StepRateHz > 0 {
		w.cfg.StepRateHz = snap.StepRateHz
	}
	w.cfg.SecondaryPriorities = prio
	w.cfg.SecondaryRange = snap.Config.HaulerSecondaryRange
	w.cfg.LinkMinTransfer = snap.Config.LinkMinTransfer
	w.cfg.LinkLossPermille = snap.Config.LinkLossPermille
	w.cfg.TerminalMinEnergy = snap.Config.TerminalMinEnergy
	w.cfg.TerminalSendLimit = snap.Config.TerminalSendLimit
	w.cfg.TerminalCooldownSteps = snap.Config.TerminalCooldownSteps
	w.cfg.SnapshotEverySteps = snap.Config.SnapshotEverySteps
	w.cfg.applyDefaults()

	w.movedTotal = snap.Counters.MovedTotal
	w.movesTotal = snap.Counters.Moves
	w.step.Store(snap.Header.Step + 1)
	w.queue.Clear()
	return nil
}
