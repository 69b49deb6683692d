package transfer

// SelectPickups runs SelectPickup on every node of rooms whose declared
// withdrawal tiers intersect priorities. Tickets are independent of each
// other; nothing is reserved.
func (q *Queue) SelectPickups(rooms []RoomName, priorities PriorityFlags, types TypeFlags, desired map[Resource]int, capacity Capacity) []WithdrawTicket {
	if capacity.Empty() || len(desired) == 0 {
		return nil
	}
	var out []WithdrawTicket
	for _, name := range uniqueRooms(rooms) {
		rl, ok := q.Room(name, types)
		if !ok || !rl.stats.WithdrawalPriorities.Intersects(priorities) {
			continue
		}
		for _, t := range rl.Targets() {
			res := rl.nodes[t].SelectPickup(priorities, types, desired, capacity)
			if len(res) > 0 {
				out = append(out, WithdrawTicket{Target: t, Resources: res})
			}
		}
	}
	return out
}

// SelectDeliveries mirrors SelectPickups on the deposit side. A nil filter
// accepts every target.
func (q *Queue) SelectDeliveries(rooms []RoomName, priorities PriorityFlags, types TypeFlags, available map[Resource]int, capacity Capacity, filter Filter) []DepositTicket {
	if capacity.Empty() || len(available) == 0 {
		return nil
	}
	if filter == nil {
		filter = FilterAll
	}
	var out []DepositTicket
	for _, name := range uniqueRooms(rooms) {
		rl, ok := q.Room(name, types)
		if !ok || !rl.stats.DepositPriorities.Intersects(priorities) {
			continue
		}
		for _, t := range rl.Targets() {
			if !filter(t) {
				continue
			}
			res := rl.nodes[t].SelectDelivery(priorities, types, available, capacity)
			if len(res) > 0 {
				out = append(out, DepositTicket{Target: t, Resources: res})
			}
		}
	}
	return out
}

// SelectSingleDeliveryForRoom returns the largest single-resource delivery
// in room.
func (q *Queue) SelectSingleDeliveryForRoom(room RoomName, priorities PriorityFlags, types TypeFlags, available map[Resource]int, capacity Capacity) (DepositTicket, bool) {
	if capacity.Empty() || len(available) == 0 {
		return DepositTicket{}, false
	}
	rl, ok := q.Room(room, types)
	if !ok || !rl.stats.DepositPriorities.Intersects(priorities) {
		return DepositTicket{}, false
	}
	var best DepositTicket
	found := false
	for _, t := range rl.Targets() {
		res := rl.nodes[t].SelectSingleDelivery(priorities, types, available, capacity)
		if len(res) == 0 {
			continue
		}
		d := DepositTicket{Target: t, Resources: res}
		if !found || d.Total() > best.Total() {
			best, found = d, true
		}
	}
	return best, found
}

func (q *Queue) SelectSingleDelivery(rooms []RoomName, priorities PriorityFlags, types TypeFlags, available map[Resource]int, capacity Capacity) (DepositTicket, bool) {
	var best DepositTicket
	found := false
	for _, room := range uniqueRooms(rooms) {
		d, ok := q.SelectSingleDeliveryForRoom(room, priorities, types, available, capacity)
		if ok && (!found || d.Total() > best.Total()) {
			best, found = d, true
		}
	}
	return best, found
}

// AvailableWithdrawalTotals reads the room aggregates; it reserves nothing.
func (q *Queue) AvailableWithdrawalTotals(rooms []RoomName, types TypeFlags, priorities PriorityFlags) map[Resource]int {
	out := map[Resource]int{}
	for _, name := range uniqueRooms(rooms) {
		rl, ok := q.Room(name, types)
		if !ok {
			continue
		}
		for k, s := range rl.stats.Withdrawals {
			if !k.allowed(priorities, types) {
				continue
			}
			if v := s.Unfulfilled(); v > 0 {
				out[k.Resource] += v
			}
		}
	}
	return out
}

// AvailableDepositTotals is keyed by bucket; the wildcard bucket appears
// under AnyResource.
func (q *Queue) AvailableDepositTotals(rooms []RoomName, types TypeFlags, priorities PriorityFlags) map[Resource]int {
	out := map[Resource]int{}
	for _, name := range uniqueRooms(rooms) {
		rl, ok := q.Room(name, types)
		if !ok {
			continue
		}
		for k, s := range rl.stats.Deposits {
			if !k.allowed(priorities, types) {
				continue
			}
			if v := s.Unfulfilled(); v > 0 {
				out[k.Resource] += v
			}
		}
	}
	return out
}

// GetPickupFromTarget proposes taking as much of resource as capacity allows
// from one known target.
func (q *Queue) GetPickupFromTarget(target Target, priorities PriorityFlags, types TypeFlags, capacity Capacity, resource Resource) (WithdrawTicket, bool) {
	if capacity.Empty() {
		return WithdrawTicket{}, false
	}
	n, ok := q.node(target, types)
	if !ok {
		return WithdrawTicket{}, false
	}
	res := n.SelectPickup(priorities, types, map[Resource]int{resource: capacity.Max()}, capacity)
	if len(res) == 0 {
		return WithdrawTicket{}, false
	}
	return WithdrawTicket{Target: target, Resources: res}, true
}
