package world

import (
	"math"
	"time"

	"colonysim.ai/internal/sim/haul"
	"colonysim.ai/internal/sim/transfer"
)

func (w *World) stepInternal() StepLogEntry {
	start := time.Now()
	now := w.step.Load()

	w.queue.Clear()
	w.queue.SetView(w)
	w.registerGenerators()
	rooms := w.rooms()

	var moves []Move
	moves = append(moves, w.stepLinks()...)
	moves = append(moves, w.stepTerminals()...)
	moves = append(moves, w.stepHaulers()...)

	backlog := w.queue.TotalUnfulfilled(rooms, rooms, transfer.TypeHaul)
	summary := w.queue.Summary()
	qs := w.queue.Stats()

	w.stepProduction()

	for _, m := range moves {
		if m.Kind == MoveWithdraw || m.Kind == MoveLink || m.Kind == MoveTerminal {
			w.movedTotal += uint64(m.Amount)
		}
	}
	w.movesTotal += uint64(len(moves))

	entry := StepLogEntry{
		Step:            now,
		RunID:           w.cfg.RunID,
		Moves:           moves,
		Rooms:           summary,
		GeneratorErrors: qs.GeneratorErrors,
		Digest:          w.stateDigest(now),
	}
	if len(backlog) > 0 {
		entry.Backlog = backlog
	}
	if w.stepLogger != nil {
		if err := w.stepLogger.WriteStep(entry); err != nil {
			w.log.Printf("step log: step=%d: %v", now, err)
		}
	}

	if w.snapshotSink != nil && now != 0 && w.cfg.SnapshotEverySteps > 0 && now%uint64(w.cfg.SnapshotEverySteps) == 0 {
		select {
		case w.snapshotSink <- w.ExportSnapshot(now):
		default:
			w.log.Printf("snapshot sink full: step=%d dropped", now)
		}
	}

	w.queue.Clear()
	w.step.Add(1)

	backlogOut := make(map[string]int, len(backlog))
	for r, n := range backlog {
		backlogOut[string(r)] = n
	}
	w.publishMetrics(WorldMetrics{
		Step:            now,
		Rooms:           len(rooms),
		Structures:      len(w.structures),
		Haulers:         len(w.haulers),
		StepMS:          float64(time.Since(start).Microseconds()) / 1000.0,
		Moves:           len(moves),
		MovedTotal:      w.movedTotal,
		GeneratorsRun:   qs.GeneratorsRun,
		GeneratorErrors: qs.GeneratorErrors,
		Backlog:         backlogOut,
	})
	return entry
}

// stepLinks fires every loaded source link once its cooldown is over.
func (w *World) stepLinks() []Move {
	var moves []Move
	for _, s := range w.sortedStructures() {
		if s.Kind != transfer.KindLink || s.Role != RoleSource || s.Cooldown > 0 || s.Broken {
			continue
		}
		energy := s.Store[transfer.ResourceEnergy]
		if energy <= 0 || energy < w.cfg.LinkMinTransfer {
			continue
		}
		rooms := []transfer.RoomName{s.Pos.Room}
		p, d, ok := w.queue.GetDeliveryFromTarget(rooms, s.Target(), transfer.PriorityFlagsActive, transfer.PriorityFlagsAll, transfer.TypeLink, transfer.Finite(energy), s.Pos, transfer.FilterLink)
		if !ok {
			continue
		}
		w.queue.RegisterPickup(p)
		w.queue.RegisterDelivery(d)

		dst := w.structures[d.Target.ID]
		if dst == nil || !w.IsValid(d.Target) {
			continue
		}
		sent := s.take(transfer.ResourceEnergy, min(p.Total(), dst.Free()))
		if sent <= 0 {
			continue
		}
		lost := sent * w.cfg.LinkLossPermille / 1000
		dst.add(transfer.ResourceEnergy, sent-lost)
		s.Cooldown = max(1, s.Pos.RangeTo(dst.Pos))
		moves = append(moves, Move{Kind: MoveLink, Actor: s.ID, Target: dst.ID, Room: dst.Pos.Room, Resource: transfer.ResourceEnergy, Amount: sent})
	}
	return moves
}

// stepTerminals sends at most one batch per ready terminal.
func (w *World) stepTerminals() []Move {
	var moves []Move
	for _, s := range w.sortedStructures() {
		if s.Kind != transfer.KindTerminal || s.Cooldown > 0 || s.Broken {
			continue
		}
		energy := s.Store[transfer.ResourceEnergy]
		if energy <= 0 {
			continue
		}
		p, d, ok := w.queue.GetTerminalDeliveryFromTarget(s.Target(), transfer.PriorityFlagsAll, transfer.PriorityFlagsAll, transfer.TypeTerminal, energy, transfer.Finite(w.cfg.TerminalSendLimit))
		if !ok {
			continue
		}
		w.queue.RegisterPickup(p)
		w.queue.RegisterDelivery(d)

		dst := w.structures[d.Target.ID]
		if dst == nil || !w.IsValid(d.Target) {
			continue
		}
		res, n, ok := d.NextDeposit()
		if !ok {
			continue
		}
		perUnit := transfer.TransactionCost(s.Pos.Room, dst.Pos.Room)
		n = min(n, s.Store[res], dst.Free())
		for n > 0 {
			cost := int(math.Ceil(perUnit * float64(n)))
			need := cost
			if res == transfer.ResourceEnergy {
				need += n
			}
			if need <= s.Store[transfer.ResourceEnergy] {
				break
			}
			n--
		}
		if n <= 0 {
			continue
		}
		cost := int(math.Ceil(perUnit * float64(n)))
		s.take(res, n)
		s.take(transfer.ResourceEnergy, cost)
		dst.add(res, n)
		s.Cooldown = w.cfg.TerminalCooldownSteps
		moves = append(moves, Move{Kind: MoveTerminal, Actor: s.ID, Target: dst.ID, Room: dst.Pos.Room, Resource: res, Amount: n})
	}
	return moves
}

func (w *World) haulPlan(rooms []transfer.RoomName) haul.Plan {
	return haul.Plan{
		PickupRooms:         rooms,
		DeliveryRooms:       rooms,
		Priorities:          transfer.PriorityFlagsAll,
		Type:                transfer.TypeHaul,
		SecondaryPriorities: w.cfg.SecondaryPriorities,
		SecondaryRange:      w.cfg.SecondaryRange,
	}
}

// stepHaulers gives every hauler one route and applies it at once. Haulers
// only work in their current room.
func (w *World) stepHaulers() []Move {
	var moves []Move
	for _, h := range w.sortedHaulers() {
		home := []transfer.RoomName{h.pos.Room}
		if h.carried() == 0 {
			route, ok := haul.PickupAndDeliveryFullCapacity(h, w.queue, w.haulPlan(home))
			if !ok {
				continue
			}
			moves = append(moves, w.applyPickup(h, route.Pickup)...)
			moves = append(moves, w.applyDeliveries(h, route.Deliveries)...)
			continue
		}
		stops, ok := haul.DeliverCurrentCargo(h, w.queue, home, transfer.PriorityFlagsAll, transfer.TypeFlagHaul, nil)
		if !ok {
			continue
		}
		moves = append(moves, w.applyDeliveries(h, stops)...)
	}
	return moves
}

func (w *World) applyPickup(h *Hauler, p transfer.WithdrawTicket) []Move {
	s := w.structures[p.Target.ID]
	if s == nil || !w.IsValid(p.Target) {
		return nil
	}
	var moves []Move
	totals := p.TotalsByResource()
	for _, r := range sortedKeys(totals) {
		n := s.take(r, min(totals[r], h.FreeCapacity()))
		if n <= 0 {
			continue
		}
		if h.cargo == nil {
			h.cargo = map[transfer.Resource]int{}
		}
		h.cargo[r] += n
		moves = append(moves, Move{Kind: MoveWithdraw, Actor: h.ID, Target: s.ID, Room: s.Pos.Room, Resource: r, Amount: n})
	}
	h.pos = s.Pos
	return moves
}

func (w *World) applyDeliveries(h *Hauler, stops []transfer.DepositTicket) []Move {
	var moves []Move
	for _, d := range stops {
		s := w.structures[d.Target.ID]
		if s == nil || !w.IsValid(d.Target) {
			continue
		}
		totals := d.TotalsByResource()
		for _, r := range sortedKeys(totals) {
			n := s.add(r, min(totals[r], h.cargo[r]))
			if n <= 0 {
				continue
			}
			h.cargo[r] -= n
			if h.cargo[r] == 0 {
				delete(h.cargo, r)
			}
			moves = append(moves, Move{Kind: MoveDeposit, Actor: h.ID, Target: s.ID, Room: s.Pos.Room, Resource: r, Amount: n})
		}
		h.pos = s.Pos
	}
	return moves
}

// stepProduction runs sources and sinks, ticks cooldowns and removes empty
// piles.
func (w *World) stepProduction() {
	for _, s := range w.sortedStructures() {
		if s.Produce > 0 {
			s.add(transfer.ResourceEnergy, s.Produce)
		}
		if s.Consume > 0 {
			s.take(transfer.ResourceEnergy, s.Consume)
		}
		if s.Cooldown > 0 {
			s.Cooldown--
		}
		if s.decays() && s.Used() == 0 {
			delete(w.structures, s.ID)
		}
	}
}
