// Package haul turns transfer queue queries into work for a single carrier.
// Every helper registers the tickets it returns, so two carriers asking in
// the same step never receive the same units.
package haul

import "colonysim.ai/internal/sim/transfer"

// Carrier is anything that can move resources between targets.
type Carrier interface {
	Pos() transfer.Position
	FreeCapacity() int
	Cargo() map[transfer.Resource]int
}

// Plan selects what a carrier should look for.
type Plan struct {
	PickupRooms   []transfer.RoomName
	DeliveryRooms []transfer.RoomName
	Priorities    transfer.PriorityFlags
	Type          transfer.Type
	Filter        transfer.Filter
	Capacity      transfer.Capacity

	// Secondary tiers are tried for extra stops after the main pair is
	// chosen. Unset disables extra stops.
	SecondaryPriorities transfer.PriorityFlags
	SecondaryRange      int
}

// Route is one pickup followed by ordered delivery stops.
type Route struct {
	Pickup     transfer.WithdrawTicket  `json:"pickup"`
	Deliveries []transfer.DepositTicket `json:"deliveries"`
}

func (r Route) Total() int { return r.Pickup.Total() }

func cargoTotal(cargo map[transfer.Resource]int) int {
	n := 0
	for _, v := range cargo {
		if v > 0 {
			n += v
		}
	}
	return n
}

func score(amount, dist int) float64 {
	if dist < 1 {
		dist = 1
	}
	return float64(amount) / float64(dist)
}

// PickupFillResource finds the pickup that fills the carrier's free capacity
// with resource at the best amount per tile.
func PickupFillResource(c Carrier, q *transfer.Queue, rooms []transfer.RoomName, priorities transfer.PriorityFlags, types transfer.TypeFlags, resource transfer.Resource) (transfer.WithdrawTicket, bool) {
	free := c.FreeCapacity()
	if free <= 0 {
		return transfer.WithdrawTicket{}, false
	}
	var (
		best      transfer.WithdrawTicket
		bestScore float64
		found     bool
	)
	for _, p := range q.SelectPickups(rooms, priorities, types, map[transfer.Resource]int{resource: free}, transfer.Finite(free)) {
		s := score(p.Total(), c.Pos().RangeTo(p.Target.Pos))
		if !found || s > bestScore {
			best, bestScore, found = p, s, true
		}
	}
	if !found {
		return transfer.WithdrawTicket{}, false
	}
	q.RegisterPickup(best)
	return best, true
}

// DeliverCurrentCargo plans stops for everything the carrier holds. Each
// stop is chosen from the previous one; planning ends when the cargo is
// placed or no target wants the rest.
func DeliverCurrentCargo(c Carrier, q *transfer.Queue, rooms []transfer.RoomName, priorities transfer.PriorityFlags, types transfer.TypeFlags, filter transfer.Filter) ([]transfer.DepositTicket, bool) {
	left := map[transfer.Resource]int{}
	for r, n := range c.Cargo() {
		if n > 0 {
			left[r] = n
		}
	}
	var stops []transfer.DepositTicket
	anchor := c.Pos()
	for cargoTotal(left) > 0 {
		d, ok := q.GetDelivery(rooms, priorities, types, left, transfer.Finite(cargoTotal(left)), anchor, filter)
		if !ok {
			break
		}
		q.RegisterDelivery(d)
		for r, n := range d.TotalsByResource() {
			left[r] -= n
			if left[r] <= 0 {
				delete(left, r)
			}
		}
		stops = append(stops, d)
		anchor = d.Target.Pos
	}
	return stops, len(stops) > 0
}

// PickupAndDelivery chooses a pickup and delivery pair within plan.Capacity,
// then extends it with extra stops from the same pickup.
func PickupAndDelivery(c Carrier, q *transfer.Queue, plan Plan) (Route, bool) {
	capacity := plan.Capacity
	p, d, ok := q.SelectPickupAndDelivery(plan.PickupRooms, plan.DeliveryRooms, plan.Priorities, plan.Type, c.Pos(), capacity, plan.Filter)
	if !ok {
		return Route{}, false
	}
	q.RegisterPickup(p)
	q.RegisterDelivery(d)
	capacity.Consume(p.Total())

	route := Route{Pickup: p, Deliveries: []transfer.DepositTicket{d}}
	if plan.SecondaryPriorities != transfer.PriorityFlagsUnset && !capacity.Empty() {
		q.GetAdditionalDeliveries(plan.DeliveryRooms, plan.SecondaryPriorities, plan.Type, capacity, &route.Pickup, &route.Deliveries, plan.Filter, plan.SecondaryRange)
	}
	return route, true
}

// PickupAndDeliveryFullCapacity is PickupAndDelivery sized to the carrier's
// free capacity.
func PickupAndDeliveryFullCapacity(c Carrier, q *transfer.Queue, plan Plan) (Route, bool) {
	free := c.FreeCapacity()
	if free <= 0 {
		return Route{}, false
	}
	plan.Capacity = transfer.Finite(free)
	return PickupAndDelivery(c, q, plan)
}
