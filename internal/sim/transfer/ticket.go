package transfer

// WithdrawEntry is one priority-tagged amount inside a withdraw ticket.
type WithdrawEntry struct {
	Amount   int      `json:"amount"`
	Type     Type     `json:"type"`
	Priority Priority `json:"priority"`
}

// WithdrawTicket claims resources from one target.
type WithdrawTicket struct {
	Target    Target                       `json:"target"`
	Resources map[Resource][]WithdrawEntry `json:"resources"`
}

func addWithdrawEntry(m map[Resource][]WithdrawEntry, r Resource, e WithdrawEntry) {
	if e.Amount <= 0 {
		return
	}
	entries := m[r]
	for i := range entries {
		if entries[i].Priority == e.Priority && entries[i].Type == e.Type {
			entries[i].Amount += e.Amount
			return
		}
	}
	m[r] = append(entries, e)
}

// CombineWith merges another ticket for the same target into t.
func (t *WithdrawTicket) CombineWith(other WithdrawTicket) {
	if t.Resources == nil {
		t.Resources = map[Resource][]WithdrawEntry{}
	}
	for _, r := range sortedResources(other.Resources) {
		for _, e := range other.Resources[r] {
			addWithdrawEntry(t.Resources, r, e)
		}
	}
}

func (t WithdrawTicket) Total() int {
	n := 0
	for _, entries := range t.Resources {
		for _, e := range entries {
			n += e.Amount
		}
	}
	return n
}

func (t WithdrawTicket) TotalsByResource() map[Resource]int {
	out := make(map[Resource]int, len(t.Resources))
	for r, entries := range t.Resources {
		for _, e := range entries {
			out[r] += e.Amount
		}
	}
	return out
}

func (t WithdrawTicket) Empty() bool { return t.Total() == 0 }

// NextWithdrawal returns the first resource still to be taken.
func (t WithdrawTicket) NextWithdrawal() (Resource, int, bool) {
	for _, r := range sortedResources(t.Resources) {
		n := 0
		for _, e := range t.Resources[r] {
			n += e.Amount
		}
		if n > 0 {
			return r, n, true
		}
	}
	return "", 0, false
}

// ConsumeWithdrawal removes amount of r from the ticket, most wanted entries
// first, and drops entries that reach zero.
func (t *WithdrawTicket) ConsumeWithdrawal(r Resource, amount int) {
	entries, ok := t.Resources[r]
	if !ok {
		return
	}
	kept := entries[:0]
	for _, e := range entries {
		use := min(e.Amount, amount)
		e.Amount -= use
		amount -= use
		if e.Amount > 0 {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(t.Resources, r)
		return
	}
	t.Resources[r] = kept
}

// DepositEntry is one priority-tagged amount inside a deposit ticket.
// TargetResource names the bucket it was drawn from and is AnyResource for
// the wildcard bucket.
type DepositEntry struct {
	TargetResource Resource `json:"target_resource"`
	Amount         int      `json:"amount"`
	Type           Type     `json:"type"`
	Priority       Priority `json:"priority"`
}

// DepositTicket claims room at one target.
type DepositTicket struct {
	Target    Target                      `json:"target"`
	Resources map[Resource][]DepositEntry `json:"resources"`
}

func addDepositEntry(m map[Resource][]DepositEntry, r Resource, e DepositEntry) {
	if e.Amount <= 0 {
		return
	}
	entries := m[r]
	for i := range entries {
		if entries[i].Priority == e.Priority && entries[i].Type == e.Type && entries[i].TargetResource == e.TargetResource {
			entries[i].Amount += e.Amount
			return
		}
	}
	m[r] = append(entries, e)
}

func (t *DepositTicket) CombineWith(other DepositTicket) {
	if t.Resources == nil {
		t.Resources = map[Resource][]DepositEntry{}
	}
	for _, r := range sortedResources(other.Resources) {
		for _, e := range other.Resources[r] {
			addDepositEntry(t.Resources, r, e)
		}
	}
}

func (t DepositTicket) Total() int {
	n := 0
	for _, entries := range t.Resources {
		for _, e := range entries {
			n += e.Amount
		}
	}
	return n
}

func (t DepositTicket) TotalsByResource() map[Resource]int {
	out := make(map[Resource]int, len(t.Resources))
	for r, entries := range t.Resources {
		for _, e := range entries {
			out[r] += e.Amount
		}
	}
	return out
}

func (t DepositTicket) Empty() bool { return t.Total() == 0 }

// bucketDemand folds the ticket back into "what the target wants", keyed by
// the bucket each entry came from.
func (t DepositTicket) bucketDemand() map[Resource]int {
	out := map[Resource]int{}
	for _, entries := range t.Resources {
		for _, e := range entries {
			out[e.TargetResource] += e.Amount
		}
	}
	return out
}

func (t DepositTicket) NextDeposit() (Resource, int, bool) {
	for _, r := range sortedResources(t.Resources) {
		n := 0
		for _, e := range t.Resources[r] {
			n += e.Amount
		}
		if n > 0 {
			return r, n, true
		}
	}
	return "", 0, false
}

// ConsumeDeposit removes up to amount of r and returns what was removed.
func (t *DepositTicket) ConsumeDeposit(r Resource, amount int) int {
	entries, ok := t.Resources[r]
	if !ok {
		return 0
	}
	consumed := 0
	kept := entries[:0]
	for _, e := range entries {
		use := min(e.Amount, amount-consumed)
		e.Amount -= use
		consumed += use
		if e.Amount > 0 {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(t.Resources, r)
	} else {
		t.Resources[r] = kept
	}
	return consumed
}

// ConsumeFromDeposits removes amount of r across deposits in order.
func ConsumeFromDeposits(deposits []DepositTicket, r Resource, amount int) {
	for i := range deposits {
		if amount <= 0 {
			return
		}
		amount -= deposits[i].ConsumeDeposit(r, amount)
	}
}
