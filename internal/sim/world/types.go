package world

import (
	"sort"

	"colonysim.ai/internal/sim/transfer"
)

// Role refines what a container or link is used for.
type Role string

const (
	RoleNone       Role = ""
	RoleHarvest    Role = "harvest"
	RoleController Role = "controller"
	RoleStorage    Role = "storage"
	RoleSource     Role = "source"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleNone, RoleHarvest, RoleController, RoleStorage, RoleSource:
		return r, true
	}
	return "", false
}

// Structure is anything with a store that takes part in transfers.
type Structure struct {
	ID       string
	Kind     transfer.TargetKind
	Role     Role
	Pos      transfer.Position
	Capacity int
	Store    map[transfer.Resource]int

	// Want is a standing stock target for labs, factories, terminals and
	// similar consumers.
	Want map[transfer.Resource]int

	// Produce adds energy each step; Consume drains it.
	Produce int
	Consume int

	Cooldown int

	// Broken makes every generator reading the structure fail.
	Broken bool
}

func (s *Structure) Target() transfer.Target {
	return transfer.Target{Kind: s.Kind, ID: s.ID, Pos: s.Pos}
}

func (s *Structure) Used() int {
	n := 0
	for _, v := range s.Store {
		n += v
	}
	return n
}

func (s *Structure) Free() int { return max(0, s.Capacity-s.Used()) }

// Fill is the used fraction of capacity, or 0 without a capacity.
func (s *Structure) Fill() float64 {
	if s.Capacity <= 0 {
		return 0
	}
	return float64(s.Used()) / float64(s.Capacity)
}

// add stores up to n of r and returns what fit.
func (s *Structure) add(r transfer.Resource, n int) int {
	n = min(n, s.Free())
	if n <= 0 {
		return 0
	}
	if s.Store == nil {
		s.Store = map[transfer.Resource]int{}
	}
	s.Store[r] += n
	return n
}

// take removes up to n of r and returns what was removed.
func (s *Structure) take(r transfer.Resource, n int) int {
	n = min(n, s.Store[r])
	if n <= 0 {
		return 0
	}
	s.Store[r] -= n
	if s.Store[r] == 0 {
		delete(s.Store, r)
	}
	return n
}

// decays reports whether the structure disappears once empty.
func (s *Structure) decays() bool {
	switch s.Kind {
	case transfer.KindResource, transfer.KindRuin, transfer.KindTombstone:
		return true
	}
	return false
}

// Hauler is a carrier creep. It implements haul.Carrier.
type Hauler struct {
	ID       string
	Capacity int

	pos   transfer.Position
	cargo map[transfer.Resource]int
}

func (h *Hauler) Pos() transfer.Position { return h.pos }

func (h *Hauler) FreeCapacity() int { return max(0, h.Capacity-h.carried()) }

func (h *Hauler) Cargo() map[transfer.Resource]int {
	out := make(map[transfer.Resource]int, len(h.cargo))
	for r, n := range h.cargo {
		if n > 0 {
			out[r] = n
		}
	}
	return out
}

func (h *Hauler) carried() int {
	n := 0
	for _, v := range h.cargo {
		n += v
	}
	return n
}

// HaulerSpec describes a hauler in a layout.
type HaulerSpec struct {
	ID       string
	Pos      transfer.Position
	Capacity int
	Cargo    map[transfer.Resource]int
}

// Layout is the initial colony handed to New.
type Layout struct {
	Structures []Structure
	Haulers    []HaulerSpec
}

// Move is one applied resource movement.
type Move struct {
	Kind     string            `json:"kind"`
	Actor    string            `json:"actor"`
	Target   string            `json:"target"`
	Room     transfer.RoomName `json:"room"`
	Resource transfer.Resource `json:"resource"`
	Amount   int               `json:"amount"`
}

const (
	MoveWithdraw = "withdraw"
	MoveDeposit  = "deposit"
	MoveLink     = "link"
	MoveTerminal = "terminal"
)

func sortedKeys(m map[transfer.Resource]int) []transfer.Resource {
	out := make([]transfer.Resource, 0, len(m))
	for r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func copyStore(m map[transfer.Resource]int) map[transfer.Resource]int {
	out := make(map[transfer.Resource]int, len(m))
	for r, n := range m {
		if n != 0 {
			out[r] = n
		}
	}
	return out
}
