package transfer

// score rates moving amount over dist tiles. A zero distance counts as one.
func score(amount, dist int) float64 {
	if dist < 1 {
		dist = 1
	}
	return float64(amount) / float64(dist)
}

// fitDelivery trims d to what the pickup actually carries. Specific buckets
// are matched resource by resource; wildcard room is then handed out to
// whatever is left over, in resource order.
func fitDelivery(d DepositTicket, picked map[Resource]int) DepositTicket {
	left := make(map[Resource]int, len(picked))
	for r, n := range picked {
		left[r] = n
	}
	out := DepositTicket{Target: d.Target, Resources: map[Resource][]DepositEntry{}}
	var wildcard []DepositEntry
	for _, r := range sortedResources(d.Resources) {
		for _, e := range d.Resources[r] {
			if e.TargetResource.IsAny() {
				wildcard = append(wildcard, e)
				continue
			}
			amt := min(e.Amount, left[r])
			if amt <= 0 {
				continue
			}
			e.Amount = amt
			addDepositEntry(out.Resources, r, e)
			left[r] -= amt
		}
	}
	for _, w := range wildcard {
		room := w.Amount
		for _, r := range sortedResources(left) {
			if room <= 0 {
				break
			}
			amt := min(room, left[r])
			if amt <= 0 {
				continue
			}
			addDepositEntry(out.Resources, r, DepositEntry{TargetResource: AnyResource, Amount: amt, Type: w.Type, Priority: w.Priority})
			left[r] -= amt
			room -= amt
		}
	}
	return out
}

// SelectBestDelivery searches one (pickup, delivery) tier combination. Every
// delivery that wants some of the offered supply is paired with every pickup
// able to feed it, and the pair moving the most per tile travelled wins:
// moved / (range(from, pickup) + range(pickup, delivery)).
func (q *Queue) SelectBestDelivery(pickupRooms, deliveryRooms []RoomName, pickupPriorities, deliveryPriorities PriorityFlags, typ Type, from Position, capacity Capacity, filter Filter) (WithdrawTicket, DepositTicket, bool) {
	if capacity.Empty() {
		return WithdrawTicket{}, DepositTicket{}, false
	}
	supply := q.AvailableWithdrawalTotals(pickupRooms, typ.Flag(), pickupPriorities)
	if len(supply) == 0 {
		return WithdrawTicket{}, DepositTicket{}, false
	}

	var (
		bestPickup   WithdrawTicket
		bestDelivery DepositTicket
		bestScore    float64
		found        bool
	)
	for _, d := range q.SelectDeliveries(deliveryRooms, deliveryPriorities, typ.Flag(), supply, capacity, filter) {
		wanted := d.bucketDemand()
		for _, p := range q.SelectPickups(pickupRooms, pickupPriorities, typ.Flag(), wanted, capacity) {
			dist := from.RangeTo(p.Target.Pos) + p.Target.Pos.RangeTo(d.Target.Pos)
			s := score(p.Total(), dist)
			if !found || s > bestScore {
				bestPickup, bestDelivery, bestScore, found = p, d, s, true
			}
		}
	}
	if !found {
		return WithdrawTicket{}, DepositTicket{}, false
	}
	return bestPickup, fitDelivery(bestDelivery, bestPickup.TotalsByResource()), true
}

// SelectPickupAndDelivery tries tier pairs from ActivePriorityPairs in order
// and returns the first match. Nothing is reserved.
func (q *Queue) SelectPickupAndDelivery(pickupRooms, deliveryRooms []RoomName, allowed PriorityFlags, typ Type, from Position, capacity Capacity, filter Filter) (WithdrawTicket, DepositTicket, bool) {
	for _, pair := range ActivePriorityPairs(allowed, allowed) {
		p, d, ok := q.SelectBestDelivery(pickupRooms, deliveryRooms, pair.Pickup.Flag(), pair.Delivery.Flag(), typ, from, capacity, filter)
		if ok {
			return p, d, true
		}
	}
	return WithdrawTicket{}, DepositTicket{}, false
}

// GetDelivery picks the delivery moving the most per tile from anchor.
func (q *Queue) GetDelivery(rooms []RoomName, priorities PriorityFlags, types TypeFlags, available map[Resource]int, capacity Capacity, anchor Position, filter Filter) (DepositTicket, bool) {
	if capacity.Empty() {
		return DepositTicket{}, false
	}
	var (
		best      DepositTicket
		bestScore float64
		found     bool
	)
	for _, d := range q.SelectDeliveries(rooms, priorities, types, available, capacity, filter) {
		s := score(d.Total(), anchor.RangeTo(d.Target.Pos))
		if !found || s > bestScore {
			best, bestScore, found = d, s, true
		}
	}
	return best, found
}

// GetDeliveryFromTarget finds where the supply at a fixed pickup target
// should go, scored from anchor.
func (q *Queue) GetDeliveryFromTarget(deliveryRooms []RoomName, target Target, pickupPriorities, deliveryPriorities PriorityFlags, typ Type, capacity Capacity, anchor Position, filter Filter) (WithdrawTicket, DepositTicket, bool) {
	if capacity.Empty() {
		return WithdrawTicket{}, DepositTicket{}, false
	}
	n, ok := q.node(target, typ.Flag())
	if !ok {
		return WithdrawTicket{}, DepositTicket{}, false
	}
	supply := n.AvailableWithdrawalTotals(typ.Flag(), pickupPriorities)
	if len(supply) == 0 {
		return WithdrawTicket{}, DepositTicket{}, false
	}
	d, ok := q.GetDelivery(deliveryRooms, deliveryPriorities, typ.Flag(), supply, capacity, anchor, filter)
	if !ok {
		return WithdrawTicket{}, DepositTicket{}, false
	}
	res := n.SelectPickup(pickupPriorities, typ.Flag(), d.TotalsByResource(), capacity)
	if len(res) == 0 {
		return WithdrawTicket{}, DepositTicket{}, false
	}
	p := WithdrawTicket{Target: target, Resources: res}
	return p, fitDelivery(d, p.TotalsByResource()), true
}

// GetAdditionalDeliveryFromTarget is GetDeliveryFromTarget for a target that
// is already being visited: any pickup tier qualifies, except that None
// supply is never paired with None demand.
func (q *Queue) GetAdditionalDeliveryFromTarget(deliveryRooms []RoomName, target Target, deliveryPriorities PriorityFlags, typ Type, capacity Capacity, anchor Position, filter Filter) (WithdrawTicket, DepositTicket, bool) {
	pickupPriorities := PriorityFlagsAll
	if deliveryPriorities.Has(PriorityNone) {
		pickupPriorities = pickupPriorities.Without(PriorityFlagNone)
	}
	return q.GetDeliveryFromTarget(deliveryRooms, target, pickupPriorities, deliveryPriorities, typ, capacity, anchor, filter)
}
