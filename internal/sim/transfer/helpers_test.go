package transfer

import (
	"bytes"
	"log"
	"testing"
)

const testRoom RoomName = "W1N1"

type staticView struct{ invalid map[string]bool }

func (v staticView) IsValid(t Target) bool { return !v.invalid[t.ID] }

func newTestQueue(t *testing.T) (*Queue, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewQueue(staticView{}, log.New(&buf, "", 0)), &buf
}

func at(kind TargetKind, id string, x, y int) Target {
	return Target{Kind: kind, ID: id, Pos: Position{Room: testRoom, X: x, Y: y}}
}

func withdraw(q *Queue, t Target, r Resource, p Priority, amount int) {
	q.RequestWithdraw(WithdrawRequest{Target: t, Resource: r, Priority: p, Amount: amount, Type: TypeHaul})
}

func deposit(q *Queue, t Target, r Resource, p Priority, amount int) {
	q.RequestDeposit(DepositRequest{Target: t, Resource: r, Priority: p, Amount: amount, Type: TypeHaul})
}

func withdrawTotal(ts []WithdrawTicket) int {
	n := 0
	for _, t := range ts {
		n += t.Total()
	}
	return n
}

func depositTotal(ts []DepositTicket) int {
	n := 0
	for _, t := range ts {
		n += t.Total()
	}
	return n
}

func checkNoEmptyEntries(t *testing.T, resources map[Resource][]WithdrawEntry) {
	t.Helper()
	for r, entries := range resources {
		if len(entries) == 0 {
			t.Fatalf("resource %s has no entries", r)
		}
		for _, e := range entries {
			if e.Amount <= 0 {
				t.Fatalf("resource %s has entry amount=%d", r, e.Amount)
			}
		}
	}
}
