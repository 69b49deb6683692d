package transfer

import "sort"

// ResourceStats aggregates one bucket across every node in a room.
type ResourceStats struct {
	Amount  int `json:"amount"`
	Pending int `json:"pending"`
}

func (s ResourceStats) Unfulfilled() int { return max(0, s.Amount-s.Pending) }

// RoomStats is maintained incrementally on every request and registration.
type RoomStats struct {
	TotalWithdrawal       int
	TotalActiveWithdrawal int
	TotalDeposit          int
	TotalActiveDeposit    int

	WithdrawalPriorities PriorityFlags
	DepositPriorities    PriorityFlags

	Withdrawals map[Key]*ResourceStats
	Deposits    map[Key]*ResourceStats
}

func newRoomStats() RoomStats {
	return RoomStats{
		Withdrawals: map[Key]*ResourceStats{},
		Deposits:    map[Key]*ResourceStats{},
	}
}

func statsFor(m map[Key]*ResourceStats, k Key) *ResourceStats {
	s := m[k]
	if s == nil {
		s = &ResourceStats{}
		m[k] = s
	}
	return s
}

// RoomLedger holds every node of one room.
type RoomLedger struct {
	nodes map[Target]*Node
	stats RoomStats
}

func NewRoomLedger() *RoomLedger {
	return &RoomLedger{
		nodes: map[Target]*Node{},
		stats: newRoomStats(),
	}
}

func (rl *RoomLedger) Stats() *RoomStats { return &rl.stats }

// Node returns the node for t, creating it on first touch.
func (rl *RoomLedger) Node(t Target) *Node {
	n := rl.nodes[t]
	if n == nil {
		n = NewNode()
		rl.nodes[t] = n
	}
	return n
}

func (rl *RoomLedger) TryNode(t Target) (*Node, bool) {
	n, ok := rl.nodes[t]
	return n, ok
}

func (rl *RoomLedger) NodeCount() int { return len(rl.nodes) }

// Targets lists node keys in a stable order.
func (rl *RoomLedger) Targets() []Target {
	out := make([]Target, 0, len(rl.nodes))
	for t := range rl.nodes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

func (rl *RoomLedger) requestWithdraw(t Target, k Key, amount int) {
	rl.Node(t).RequestWithdraw(k, amount)
	rl.stats.TotalWithdrawal += amount
	if PriorityFlagsActive.Has(k.Priority) {
		rl.stats.TotalActiveWithdrawal += amount
	}
	rl.stats.WithdrawalPriorities |= k.Priority.Flag()
	statsFor(rl.stats.Withdrawals, k).Amount += amount
}

func (rl *RoomLedger) requestDeposit(t Target, k Key, amount int) {
	rl.Node(t).RequestDeposit(k, amount)
	rl.stats.TotalDeposit += amount
	if PriorityFlagsActive.Has(k.Priority) {
		rl.stats.TotalActiveDeposit += amount
	}
	rl.stats.DepositPriorities |= k.Priority.Flag()
	statsFor(rl.stats.Deposits, k).Amount += amount
}

func (rl *RoomLedger) registerPickup(t WithdrawTicket) {
	rl.Node(t.Target).RegisterPickup(t.Resources)
	for r, entries := range t.Resources {
		for _, e := range entries {
			statsFor(rl.stats.Withdrawals, Key{Resource: r, Priority: e.Priority, Type: e.Type}).Pending += e.Amount
		}
	}
}

func (rl *RoomLedger) registerDelivery(t DepositTicket) {
	rl.Node(t.Target).RegisterDelivery(t.Resources)
	for _, entries := range t.Resources {
		for _, e := range entries {
			statsFor(rl.stats.Deposits, Key{Resource: e.TargetResource, Priority: e.Priority, Type: e.Type}).Pending += e.Amount
		}
	}
}
