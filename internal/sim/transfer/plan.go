package transfer

type demandSplit struct {
	active   int
	inactive int
}

// TotalUnfulfilled estimates how much of each resource could still be moved
// by typ movers between pickupRooms and deliveryRooms. Unfulfilled supply is
// matched against unfulfilled demand in three passes: active to active,
// inactive supply to active demand, then active supply to inactive demand.
// Inactive to inactive is never counted. Specific demand is served before
// wildcard demand in every pass.
func (q *Queue) TotalUnfulfilled(pickupRooms, deliveryRooms []RoomName, typ Type) map[Resource]int {
	withdrawals := map[Resource]*demandSplit{}
	deposits := map[Resource]*demandSplit{}

	collect := func(dst map[Resource]*demandSplit, stats map[Key]*ResourceStats) {
		for k, s := range stats {
			if k.Type != typ {
				continue
			}
			e := dst[k.Resource]
			if e == nil {
				e = &demandSplit{}
				dst[k.Resource] = e
			}
			if PriorityFlagsActive.Has(k.Priority) {
				e.active += s.Unfulfilled()
			} else {
				e.inactive += s.Unfulfilled()
			}
		}
	}
	for _, name := range uniqueRooms(pickupRooms) {
		if rl, ok := q.Room(name, typ.Flag()); ok {
			collect(withdrawals, rl.stats.Withdrawals)
		}
	}
	for _, name := range uniqueRooms(deliveryRooms) {
		if rl, ok := q.Room(name, typ.Flag()); ok {
			collect(deposits, rl.stats.Deposits)
		}
	}

	out := map[Resource]int{}
	match := func(supply, demand *int, r Resource) {
		n := min(*supply, *demand)
		if n <= 0 {
			return
		}
		*supply -= n
		*demand -= n
		out[r] += n
	}
	pass := func(supplySide func(*demandSplit) *int, demandSide func(*demandSplit) *int) {
		for _, r := range sortedResources(deposits) {
			if r.IsAny() {
				continue
			}
			if w, ok := withdrawals[r]; ok {
				match(supplySide(w), demandSide(deposits[r]), r)
			}
		}
		if anyDemand, ok := deposits[AnyResource]; ok {
			for _, r := range sortedResources(withdrawals) {
				match(supplySide(withdrawals[r]), demandSide(anyDemand), r)
			}
		}
	}
	active := func(s *demandSplit) *int { return &s.active }
	inactive := func(s *demandSplit) *int { return &s.inactive }

	pass(active, active)
	pass(inactive, active)
	pass(active, inactive)

	for r, n := range out {
		if n <= 0 {
			delete(out, r)
		}
	}
	return out
}
