package world

import (
	"fmt"

	"colonysim.ai/internal/sim/transfer"
)

const (
	harvestMediumFill    = 0.75
	harvestLowFill       = 0.5
	controllerActiveFill = 0.75
)

func (w *World) registerGenerators() {
	for _, room := range w.rooms() {
		w.queue.RegisterGenerator(room, transfer.TypeFlagHaul|transfer.TypeFlagUse, w.haulGenerator)
		w.queue.RegisterGenerator(room, transfer.TypeFlagLink, w.linkGenerator)
		w.queue.RegisterGenerator(room, transfer.TypeFlagTerminal, w.terminalGenerator)
	}
}

type requester struct {
	sink transfer.RequestSink
	t    transfer.Target
	typ  transfer.Type
}

func (r requester) withdraw(res transfer.Resource, p transfer.Priority, n int) {
	r.sink.RequestWithdraw(transfer.WithdrawRequest{Target: r.t, Resource: res, Priority: p, Amount: n, Type: r.typ})
}

func (r requester) deposit(res transfer.Resource, p transfer.Priority, n int) {
	r.sink.RequestDeposit(transfer.DepositRequest{Target: r.t, Resource: res, Priority: p, Amount: n, Type: r.typ})
}

// withdrawAll offers the whole store at one tier.
func (r requester) withdrawAll(s *Structure, p transfer.Priority) {
	for _, res := range sortedKeys(s.Store) {
		r.withdraw(res, p, s.Store[res])
	}
}

// wantMissing asks for the gap to each standing stock target.
func (r requester) wantMissing(s *Structure, p transfer.Priority) {
	free := s.Free()
	for _, res := range sortedKeys(s.Want) {
		n := min(s.Want[res]-s.Store[res], free)
		if n > 0 {
			r.deposit(res, p, n)
			free -= n
		}
	}
}

func harvestPriority(fill float64) transfer.Priority {
	switch {
	case fill > harvestMediumFill:
		return transfer.PriorityMedium
	case fill > harvestLowFill:
		return transfer.PriorityLow
	default:
		return transfer.PriorityNone
	}
}

func (w *World) liveStructures(view transfer.WorldView, room transfer.RoomName, keep func(*Structure) bool) ([]*Structure, error) {
	var out []*Structure
	for _, s := range w.roomStructures(room) {
		if !keep(s) || !view.IsValid(s.Target()) {
			continue
		}
		if s.Broken {
			return nil, fmt.Errorf("%s %s: broken", s.Kind, s.ID)
		}
		out = append(out, s)
	}
	return out, nil
}

func (w *World) haulGenerator(view transfer.WorldView, sink transfer.RequestSink, room transfer.RoomName) error {
	structures, err := w.liveStructures(view, room, func(*Structure) bool { return true })
	if err != nil {
		return err
	}
	for _, s := range structures {
		r := requester{sink: sink, t: s.Target(), typ: transfer.TypeHaul}
		switch s.Kind {
		case transfer.KindSpawn, transfer.KindExtension:
			r.deposit(transfer.ResourceEnergy, transfer.PriorityHigh, s.Free())
		case transfer.KindTower:
			r.deposit(transfer.ResourceEnergy, transfer.PriorityMedium, s.Free())
		case transfer.KindStorage, transfer.KindTerminal:
			r.withdrawAll(s, transfer.PriorityNone)
			r.deposit(transfer.AnyResource, transfer.PriorityNone, s.Free())
		case transfer.KindContainer:
			switch s.Role {
			case RoleHarvest:
				r.withdrawAll(s, harvestPriority(s.Fill()))
			case RoleController:
				p := transfer.PriorityLow
				if s.Fill() >= controllerActiveFill {
					p = transfer.PriorityNone
				}
				r.deposit(transfer.ResourceEnergy, p, s.Free())
				use := requester{sink: sink, t: s.Target(), typ: transfer.TypeUse}
				use.withdraw(transfer.ResourceEnergy, transfer.PriorityNone, s.Store[transfer.ResourceEnergy])
			default:
				r.deposit(transfer.AnyResource, transfer.PriorityNone, s.Free())
				r.withdrawAll(s, transfer.PriorityNone)
			}
		case transfer.KindResource, transfer.KindRuin, transfer.KindTombstone:
			r.withdrawAll(s, transfer.PriorityHigh)
		case transfer.KindLink:
			if s.Role == RoleStorage {
				r.withdraw(transfer.ResourceEnergy, transfer.PriorityMedium, s.Store[transfer.ResourceEnergy])
			}
		default:
			r.wantMissing(s, transfer.PriorityLow)
		}
	}
	return nil
}

func (w *World) linkGenerator(view transfer.WorldView, sink transfer.RequestSink, room transfer.RoomName) error {
	links, err := w.liveStructures(view, room, func(s *Structure) bool { return s.Kind == transfer.KindLink })
	if err != nil {
		return err
	}
	for _, s := range links {
		r := requester{sink: sink, t: s.Target(), typ: transfer.TypeLink}
		switch s.Role {
		case RoleSource:
			r.withdraw(transfer.ResourceEnergy, transfer.PriorityMedium, s.Store[transfer.ResourceEnergy])
		case RoleStorage:
			r.deposit(transfer.ResourceEnergy, transfer.PriorityNone, s.Free())
		case RoleController:
			r.deposit(transfer.ResourceEnergy, transfer.PriorityLow, s.Free())
		}
	}
	return nil
}

func (w *World) terminalGenerator(view transfer.WorldView, sink transfer.RequestSink, room transfer.RoomName) error {
	terminals, err := w.liveStructures(view, room, func(s *Structure) bool { return s.Kind == transfer.KindTerminal })
	if err != nil {
		return err
	}
	for _, s := range terminals {
		r := requester{sink: sink, t: s.Target(), typ: transfer.TypeTerminal}
		r.wantMissing(s, transfer.PriorityLow)
		for _, res := range sortedKeys(s.Store) {
			keep := s.Want[res]
			if res == transfer.ResourceEnergy {
				keep = max(keep, w.cfg.TerminalMinEnergy)
			}
			if surplus := s.Store[res] - keep; surplus > 0 {
				r.withdraw(res, transfer.PriorityNone, surplus)
			}
		}
	}
	return nil
}
