package transfer

import "testing"

func TestActivePriorityPairs_Order(t *testing.T) {
	pairs := ActivePriorityPairs(PriorityFlagsAll, PriorityFlagsAll)
	if len(pairs) != 15 {
		t.Fatalf("len=%d want=15", len(pairs))
	}
	if pairs[0] != (PriorityPair{PriorityHigh, PriorityHigh}) {
		t.Fatalf("first=%v want high/high", pairs[0])
	}
	want := []PriorityPair{
		{PriorityHigh, PriorityHigh},
		{PriorityHigh, PriorityMedium},
		{PriorityMedium, PriorityHigh},
		{PriorityMedium, PriorityMedium},
	}
	for i, w := range want {
		if pairs[i] != w {
			t.Fatalf("pairs[%d]=%v want=%v", i, pairs[i], w)
		}
	}
	for i := 1; i < len(pairs); i++ {
		if pairs[i-1].worst() > pairs[i].worst() {
			t.Fatalf("pairs not ordered by worse tier at %d: %v then %v", i, pairs[i-1], pairs[i])
		}
	}
	for _, p := range pairs {
		if p.Pickup == PriorityNone && p.Delivery == PriorityNone {
			t.Fatalf("none/none must be excluded")
		}
	}
}

func TestActivePriorityPairs_EitherSideAllowed(t *testing.T) {
	pairs := ActivePriorityPairs(PriorityFlagHigh, PriorityFlagHigh)
	// (High, x) for every x plus (x, High) for every x, counted once.
	if len(pairs) != 7 {
		t.Fatalf("len=%d want=7: %v", len(pairs), pairs)
	}
	for _, p := range pairs {
		if p.Pickup != PriorityHigh && p.Delivery != PriorityHigh {
			t.Fatalf("unexpected pair %v", p)
		}
	}
	if got := ActivePriorityPairs(PriorityFlagsUnset, PriorityFlagsUnset); len(got) != 0 {
		t.Fatalf("unset flags produced %v", got)
	}
}

func TestPriorityFlags_ParseAndString(t *testing.T) {
	f, ok := ParsePriorityFlags("high|none")
	if !ok || f != PriorityFlagHigh|PriorityFlagNone {
		t.Fatalf("parse=%v,%v", f, ok)
	}
	if f.String() != "high|none" {
		t.Fatalf("String=%q", f.String())
	}
	if f, _ := ParsePriorityFlags("active"); f != PriorityFlagsActive {
		t.Fatalf("active=%v", f)
	}
	if _, ok := ParsePriorityFlags("urgent"); ok {
		t.Fatalf("expected parse failure")
	}
	if !PriorityFlagsAll.Contains(PriorityFlagsActive) || PriorityFlagsActive.Has(PriorityNone) {
		t.Fatalf("flag set relations broken")
	}
}
