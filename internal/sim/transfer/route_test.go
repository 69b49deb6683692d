package transfer

import "testing"

func TestGetAdditionalDeliveries_ExtendsWithinRange(t *testing.T) {
	q, _ := newTestQueue(t)
	c := at(KindContainer, "c", 10, 10)
	spawn := at(KindSpawn, "spawn", 12, 10)
	extA := at(KindExtension, "ext-a", 14, 10)
	extB := at(KindExtension, "ext-b", 40, 40)
	withdraw(q, c, ResourceEnergy, PriorityHigh, 100)
	deposit(q, spawn, ResourceEnergy, PriorityHigh, 30)
	deposit(q, extA, ResourceEnergy, PriorityHigh, 20)
	deposit(q, extB, ResourceEnergy, PriorityHigh, 20)

	capacity := Finite(100)
	p, d, ok := q.SelectPickupAndDelivery(rooms, rooms, PriorityFlagsAll, TypeHaul, c.Pos, capacity, nil)
	if !ok || d.Target != spawn || p.Total() != 30 {
		t.Fatalf("ok=%v delivery=%v pickup=%d", ok, d.Target, p.Total())
	}
	q.RegisterPickup(p)
	q.RegisterDelivery(d)
	capacity.Consume(p.Total())

	deliveries := []DepositTicket{d}
	q.GetAdditionalDeliveries(rooms, PriorityFlagsAll, TypeHaul, capacity, &p, &deliveries, nil, 5)

	if p.Total() != 50 {
		t.Fatalf("pickup total=%d want=50", p.Total())
	}
	if len(deliveries) != 2 {
		t.Fatalf("deliveries=%d want=2", len(deliveries))
	}
	if deliveries[0].Target != spawn || deliveries[1].Target != extA {
		t.Fatalf("order=%v,%v want spawn,ext-a", deliveries[0].Target, deliveries[1].Target)
	}
	if got := depositTotal(deliveries); got != p.Total() {
		t.Fatalf("delivered=%d picked=%d", got, p.Total())
	}

	// The far extension is still open for another hauler.
	left := q.SelectDeliveries(rooms, PriorityFlagsAll, TypeFlagHaul, map[Resource]int{ResourceEnergy: 100}, Infinite(), nil)
	if len(left) != 1 || left[0].Target != extB || left[0].Total() != 20 {
		t.Fatalf("left=%+v", left)
	}
}

func TestGetAdditionalDeliveries_MergesSameTarget(t *testing.T) {
	q, _ := newTestQueue(t)
	c := at(KindContainer, "c", 10, 10)
	s := at(KindStorage, "s", 12, 10)
	withdraw(q, c, ResourceEnergy, PriorityHigh, 40)
	withdraw(q, c, "oxygen", PriorityHigh, 40)
	deposit(q, s, ResourceEnergy, PriorityHigh, 40)
	deposit(q, s, "oxygen", PriorityLow, 40)

	capacity := Finite(60)
	p, d, ok := q.SelectPickupAndDelivery(rooms, rooms, PriorityFlagsAll, TypeHaul, c.Pos, capacity, nil)
	if !ok || p.Total() != 40 {
		t.Fatalf("ok=%v pickup=%d want 40", ok, p.Total())
	}
	q.RegisterPickup(p)
	q.RegisterDelivery(d)
	capacity.Consume(p.Total())

	deliveries := []DepositTicket{d}
	q.GetAdditionalDeliveries(rooms, PriorityFlagsAll, TypeHaul, capacity, &p, &deliveries, nil, 3)
	if len(deliveries) != 1 {
		t.Fatalf("deliveries=%d want=1 (merged)", len(deliveries))
	}
	totals := deliveries[0].TotalsByResource()
	if totals[ResourceEnergy] != 40 || totals["oxygen"] != 20 {
		t.Fatalf("totals=%v want energy=40 oxygen=20", totals)
	}
	if p.Total() != 60 {
		t.Fatalf("pickup=%d want=60", p.Total())
	}
}

func TestOrderStops_NearestNeighbourChain(t *testing.T) {
	start := Position{Room: testRoom, X: 0, Y: 0}
	a := DepositTicket{Target: at(KindExtension, "a", 10, 0)}
	b := DepositTicket{Target: at(KindExtension, "b", 3, 0)}
	c := DepositTicket{Target: at(KindExtension, "c", 12, 0)}
	got := orderStops(start, []DepositTicket{a, b, c})
	want := []string{"b", "a", "c"}
	for i, id := range want {
		if got[i].Target.ID != id {
			t.Fatalf("stop[%d]=%s want=%s", i, got[i].Target.ID, id)
		}
	}
}
