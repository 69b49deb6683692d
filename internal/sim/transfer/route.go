package transfer

// GetAdditionalDeliveries extends a chosen pickup and its deliveries with
// more stops fed from the same pickup target. Delivery tiers are walked from
// most to least wanted; each stop is anchored at the last delivery and must
// lie within rangeLimit of an existing stop. Every extra pair is registered
// as it is found, merged into pickup, and either merged into the delivery
// with the same target or appended. Appending re-orders the stops as a
// nearest-neighbour chain from the pickup position.
func (q *Queue) GetAdditionalDeliveries(deliveryRooms []RoomName, allowed PriorityFlags, typ Type, capacity Capacity, pickup *WithdrawTicket, deliveries *[]DepositTicket, filter Filter, rangeLimit int) {
	if capacity.Empty() || pickup == nil || deliveries == nil {
		return
	}
	if filter == nil {
		filter = FilterAll
	}
	remaining := capacity
	nearStops := func(t Target) bool {
		if !filter(t) {
			return false
		}
		for _, d := range *deliveries {
			if d.Target.Pos.RangeTo(t.Pos) <= rangeLimit {
				return true
			}
		}
		return false
	}

	for _, tier := range allowed.Priorities() {
		for !remaining.Empty() && len(*deliveries) > 0 {
			last := (*deliveries)[len(*deliveries)-1]
			extraPickup, extraDelivery, ok := q.GetAdditionalDeliveryFromTarget(deliveryRooms, pickup.Target, tier.Flag(), typ, remaining, last.Target.Pos, nearStops)
			if !ok {
				break
			}
			q.RegisterPickup(extraPickup)
			q.RegisterDelivery(extraDelivery)
			pickup.CombineWith(extraPickup)
			remaining.Consume(extraPickup.Total())

			merged := false
			for i := range *deliveries {
				if (*deliveries)[i].Target == extraDelivery.Target {
					(*deliveries)[i].CombineWith(extraDelivery)
					merged = true
					break
				}
			}
			if !merged {
				*deliveries = append(*deliveries, extraDelivery)
				*deliveries = orderStops(pickup.Target.Pos, *deliveries)
			}
		}
		if remaining.Empty() {
			return
		}
	}
}

// orderStops chains stops greedily, always visiting the nearest remaining
// stop next. Ties keep the earlier stop.
func orderStops(start Position, stops []DepositTicket) []DepositTicket {
	pending := append([]DepositTicket(nil), stops...)
	out := make([]DepositTicket, 0, len(stops))
	cur := start
	for len(pending) > 0 {
		best := 0
		bestDist := cur.RangeTo(pending[0].Target.Pos)
		for i := 1; i < len(pending); i++ {
			if d := cur.RangeTo(pending[i].Target.Pos); d < bestDist {
				best, bestDist = i, d
			}
		}
		next := pending[best]
		out = append(out, next)
		cur = next.Target.Pos
		pending = append(pending[:best], pending[best+1:]...)
	}
	return out
}
