package transfer

import (
	"math"
	"testing"
)

func terminalAt(room RoomName, id string) Target {
	return Target{Kind: KindTerminal, ID: id, Pos: Position{Room: room, X: 25, Y: 25}}
}

func TestTransactionCost(t *testing.T) {
	if got := TransactionCost("W1N1", "W1N1"); got != 0 {
		t.Fatalf("same room cost=%v want=0", got)
	}
	want := 1 - math.Exp(-2.0/30)
	if got := TransactionCost("W1N1", "W3N2"); math.Abs(got-want) > 1e-12 {
		t.Fatalf("cost=%v want=%v", got, want)
	}
}

func TestGetTerminalDeliveryFromTarget_PrefersCheaperRoom(t *testing.T) {
	q, _ := newTestQueue(t)
	src := terminalAt("W1N1", "t-src")
	near := terminalAt("W2N1", "t-near")
	far := terminalAt("W5N1", "t-far")
	q.RequestWithdraw(WithdrawRequest{Target: src, Resource: "oxygen", Priority: PriorityHigh, Amount: 500, Type: TypeTerminal})
	q.RequestDeposit(DepositRequest{Target: far, Resource: "oxygen", Priority: PriorityLow, Amount: 300, Type: TypeTerminal})
	q.RequestDeposit(DepositRequest{Target: near, Resource: "oxygen", Priority: PriorityLow, Amount: 300, Type: TypeTerminal})

	p, d, ok := q.GetTerminalDeliveryFromTarget(src, PriorityFlagsAll, PriorityFlagsAll, TypeTerminal, 1000, Infinite())
	if !ok {
		t.Fatalf("no terminal delivery")
	}
	if d.Target != near || d.Total() != 300 || p.Total() != 300 {
		t.Fatalf("delivery=%v total=%d pickup=%d", d.Target, d.Total(), p.Total())
	}
}

func TestGetTerminalDeliveryFromTarget_EnergyLimitsAmount(t *testing.T) {
	q, _ := newTestQueue(t)
	src := terminalAt("W1N1", "t-src")
	dst := terminalAt("W2N1", "t-dst")
	q.RequestWithdraw(WithdrawRequest{Target: src, Resource: "oxygen", Priority: PriorityHigh, Amount: 500, Type: TypeTerminal})
	q.RequestDeposit(DepositRequest{Target: dst, Resource: "oxygen", Priority: PriorityLow, Amount: 500, Type: TypeTerminal})

	_, d, ok := q.GetTerminalDeliveryFromTarget(src, PriorityFlagsAll, PriorityFlagsAll, TypeTerminal, 5, Infinite())
	if !ok {
		t.Fatalf("no terminal delivery")
	}
	want := int(math.Floor(5 / TransactionCost("W1N1", "W2N1")))
	if d.Total() != want {
		t.Fatalf("moved=%d want=%d", d.Total(), want)
	}
	if _, _, ok := q.GetTerminalDeliveryFromTarget(src, PriorityFlagsAll, PriorityFlagsAll, TypeTerminal, 0, Infinite()); ok {
		t.Fatalf("delivery found with no energy")
	}
}

func TestGetTerminalDelivery_SkipsSourceRoom(t *testing.T) {
	q, _ := newTestQueue(t)
	src := terminalAt("W1N1", "t-src")
	q.RequestWithdraw(WithdrawRequest{Target: src, Resource: "oxygen", Priority: PriorityHigh, Amount: 100, Type: TypeTerminal})
	q.RequestDeposit(DepositRequest{Target: at(KindStorage, "local", 20, 20), Resource: "oxygen", Priority: PriorityLow, Amount: 100, Type: TypeTerminal})

	if _, _, ok := q.GetTerminalDeliveryFromTarget(src, PriorityFlagsAll, PriorityFlagsAll, TypeTerminal, 1000, Infinite()); ok {
		t.Fatalf("terminal delivered into its own room")
	}
}
