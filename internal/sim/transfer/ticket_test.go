package transfer

import "testing"

func TestWithdrawTicket_CombineMergesSameTier(t *testing.T) {
	a := WithdrawTicket{Resources: map[Resource][]WithdrawEntry{
		ResourceEnergy: {{Amount: 10, Type: TypeHaul, Priority: PriorityHigh}},
	}}
	b := WithdrawTicket{Resources: map[Resource][]WithdrawEntry{
		ResourceEnergy: {
			{Amount: 5, Type: TypeHaul, Priority: PriorityHigh},
			{Amount: 7, Type: TypeHaul, Priority: PriorityLow},
		},
		"oxygen": {{Amount: 3, Type: TypeHaul, Priority: PriorityNone}},
	}}
	a.CombineWith(b)

	if got := len(a.Resources[ResourceEnergy]); got != 2 {
		t.Fatalf("energy entries=%d want=2", got)
	}
	if a.Resources[ResourceEnergy][0].Amount != 15 {
		t.Fatalf("merged high amount=%d want=15", a.Resources[ResourceEnergy][0].Amount)
	}
	if a.Total() != 25 {
		t.Fatalf("Total=%d want=25", a.Total())
	}
}

func TestWithdrawTicket_ConsumeDropsEmptyEntries(t *testing.T) {
	w := WithdrawTicket{Resources: map[Resource][]WithdrawEntry{
		ResourceEnergy: {
			{Amount: 4, Type: TypeHaul, Priority: PriorityHigh},
			{Amount: 6, Type: TypeHaul, Priority: PriorityLow},
		},
	}}
	w.ConsumeWithdrawal(ResourceEnergy, 5)
	entries := w.Resources[ResourceEnergy]
	if len(entries) != 1 || entries[0].Amount != 5 || entries[0].Priority != PriorityLow {
		t.Fatalf("entries=%+v want one low entry of 5", entries)
	}
	w.ConsumeWithdrawal(ResourceEnergy, 5)
	if !w.Empty() {
		t.Fatalf("ticket not empty: %+v", w.Resources)
	}
	if _, ok := w.Resources[ResourceEnergy]; ok {
		t.Fatalf("empty resource key left behind")
	}
	if _, _, ok := w.NextWithdrawal(); ok {
		t.Fatalf("NextWithdrawal on empty ticket")
	}
}

func TestDepositTicket_KeepsBucketsApart(t *testing.T) {
	var d DepositTicket
	d.CombineWith(DepositTicket{Resources: map[Resource][]DepositEntry{
		ResourceEnergy: {
			{TargetResource: ResourceEnergy, Amount: 10, Type: TypeHaul, Priority: PriorityLow},
			{TargetResource: AnyResource, Amount: 5, Type: TypeHaul, Priority: PriorityLow},
		},
	}})
	if len(d.Resources[ResourceEnergy]) != 2 {
		t.Fatalf("entries=%+v want specific and wildcard kept apart", d.Resources[ResourceEnergy])
	}
	demand := d.bucketDemand()
	if demand[ResourceEnergy] != 10 || demand[AnyResource] != 5 {
		t.Fatalf("bucketDemand=%v", demand)
	}
}

func TestConsumeFromDeposits_SpillsOver(t *testing.T) {
	ds := []DepositTicket{
		{Resources: map[Resource][]DepositEntry{ResourceEnergy: {{TargetResource: ResourceEnergy, Amount: 10}}}},
		{Resources: map[Resource][]DepositEntry{ResourceEnergy: {{TargetResource: ResourceEnergy, Amount: 10}}}},
	}
	ConsumeFromDeposits(ds, ResourceEnergy, 14)
	if !ds[0].Empty() {
		t.Fatalf("first deposit left=%d want=0", ds[0].Total())
	}
	if ds[1].Total() != 6 {
		t.Fatalf("second deposit left=%d want=6", ds[1].Total())
	}
}
