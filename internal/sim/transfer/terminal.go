package transfer

import "math"

// TransactionCost is the energy spent per unit sent between two terminals.
func TransactionCost(from, to RoomName) float64 {
	d := float64(LinearDistance(from, to))
	return 1 - math.Exp(-d/30)
}

// GetTerminalDelivery picks the single-resource terminal delivery with the
// best units-per-energy ratio. Each room's capacity is limited to what
// energy can pay for at that room's distance from source.
func (q *Queue) GetTerminalDelivery(rooms []RoomName, priorities PriorityFlags, types TypeFlags, energy int, available map[Resource]int, capacity Capacity, source RoomName) (DepositTicket, bool) {
	if capacity.Empty() {
		return DepositTicket{}, false
	}
	var (
		best      DepositTicket
		bestScore float64
		found     bool
	)
	for _, room := range uniqueRooms(rooms) {
		perUnit := TransactionCost(source, room)
		roomCap := capacity
		if perUnit > 0 {
			affordable := int(math.Floor(float64(energy) / perUnit))
			roomCap = Finite(capacity.Clamp(affordable))
		}
		d, ok := q.SelectSingleDeliveryForRoom(room, priorities, types, available, roomCap)
		if !ok {
			continue
		}
		moved := d.Total()
		cost := math.Max(1, math.Ceil(perUnit*float64(moved)))
		s := float64(moved) / cost
		if !found || s > bestScore {
			best, bestScore, found = d, s, true
		}
	}
	return best, found
}

// GetTerminalDeliveryFromTarget sends from a terminal to any other known
// room.
func (q *Queue) GetTerminalDeliveryFromTarget(target Target, pickupPriorities, deliveryPriorities PriorityFlags, typ Type, energy int, capacity Capacity) (WithdrawTicket, DepositTicket, bool) {
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
	source := target.Pos.Room
	var others []RoomName
	for _, r := range q.Rooms() {
		if r != source {
			others = append(others, r)
		}
	}
	d, ok := q.GetTerminalDelivery(others, deliveryPriorities, typ.Flag(), energy, supply, capacity, source)
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
