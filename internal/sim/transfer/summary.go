package transfer

import "sort"

type KeyStats struct {
	Resource Resource `json:"resource"`
	Priority Priority `json:"priority"`
	Type     Type     `json:"type"`
	Amount   int      `json:"amount"`
	Pending  int      `json:"pending"`
}

// RoomSummary is a flat copy of one room's aggregates.
type RoomSummary struct {
	Room                  RoomName   `json:"room"`
	Nodes                 int        `json:"nodes"`
	TotalWithdrawal       int        `json:"total_withdrawal"`
	TotalActiveWithdrawal int        `json:"total_active_withdrawal"`
	TotalDeposit          int        `json:"total_deposit"`
	TotalActiveDeposit    int        `json:"total_active_deposit"`
	Withdrawals           []KeyStats `json:"withdrawals,omitempty"`
	Deposits              []KeyStats `json:"deposits,omitempty"`
}

func flattenStats(m map[Key]*ResourceStats) []KeyStats {
	if len(m) == 0 {
		return nil
	}
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Type < b.Type
	})
	out := make([]KeyStats, 0, len(keys))
	for _, k := range keys {
		s := m[k]
		out = append(out, KeyStats{Resource: k.Resource, Priority: k.Priority, Type: k.Type, Amount: s.Amount, Pending: s.Pending})
	}
	return out
}

// Summary runs any generators still pending and reports every room in name
// order.
func (q *Queue) Summary() []RoomSummary {
	q.FlushAll()
	rooms := q.Rooms()
	out := make([]RoomSummary, 0, len(rooms))
	for _, name := range rooms {
		rl, ok := q.rooms[name]
		if !ok {
			continue
		}
		out = append(out, RoomSummary{
			Room:                  name,
			Nodes:                 rl.NodeCount(),
			TotalWithdrawal:       rl.stats.TotalWithdrawal,
			TotalActiveWithdrawal: rl.stats.TotalActiveWithdrawal,
			TotalDeposit:          rl.stats.TotalDeposit,
			TotalActiveDeposit:    rl.stats.TotalActiveDeposit,
			Withdrawals:           flattenStats(rl.stats.Withdrawals),
			Deposits:              flattenStats(rl.stats.Deposits),
		})
	}
	return out
}
