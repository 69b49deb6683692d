package transfer

import "sort"

// Key buckets a declared amount. On the deposit side Resource may be
// AnyResource.
type Key struct {
	Resource Resource `json:"resource"`
	Priority Priority `json:"priority"`
	Type     Type     `json:"type"`
}

func (k Key) matches(r Resource, priorities PriorityFlags, types TypeFlags) bool {
	return k.Resource == r && priorities.Has(k.Priority) && types.Has(k.Type)
}

func (k Key) allowed(priorities PriorityFlags, types TypeFlags) bool {
	return priorities.Has(k.Priority) && types.Has(k.Type)
}

// keysByResource orders by resource, then priority, then type.
func keysByResource(m map[Key]int) []Key {
	out := make([]Key, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Type < b.Type
	})
	return out
}

// keysByPriority orders by priority, then resource, then type.
func keysByPriority(m map[Key]int) []Key {
	out := keysByResource(m)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// Node is the per-target ledger of declared and promised amounts.
type Node struct {
	withdrawals        map[Key]int
	pendingWithdrawals map[Key]int
	deposits           map[Key]int
	pendingDeposits    map[Key]int
}

func NewNode() *Node {
	return &Node{
		withdrawals:        map[Key]int{},
		pendingWithdrawals: map[Key]int{},
		deposits:           map[Key]int{},
		pendingDeposits:    map[Key]int{},
	}
}

func (n *Node) RequestWithdraw(k Key, amount int) { n.withdrawals[k] += amount }
func (n *Node) RequestDeposit(k Key, amount int)  { n.deposits[k] += amount }

func (n *Node) Withdrawal(k Key) int        { return n.withdrawals[k] }
func (n *Node) PendingWithdrawal(k Key) int { return n.pendingWithdrawals[k] }
func (n *Node) Deposit(k Key) int           { return n.deposits[k] }
func (n *Node) PendingDeposit(k Key) int    { return n.pendingDeposits[k] }

func (n *Node) AvailableWithdrawal(k Key) int {
	return max(0, n.withdrawals[k]-n.pendingWithdrawals[k])
}

func (n *Node) AvailableDeposit(k Key) int {
	return max(0, n.deposits[k]-n.pendingDeposits[k])
}

func (n *Node) RegisterPickup(resources map[Resource][]WithdrawEntry) {
	for r, entries := range resources {
		for _, e := range entries {
			n.pendingWithdrawals[Key{Resource: r, Priority: e.Priority, Type: e.Type}] += e.Amount
		}
	}
}

func (n *Node) RegisterDelivery(resources map[Resource][]DepositEntry) {
	for _, entries := range resources {
		for _, e := range entries {
			n.pendingDeposits[Key{Resource: e.TargetResource, Priority: e.Priority, Type: e.Type}] += e.Amount
		}
	}
}

// AvailableWithdrawalTotals sums what is still offered per resource.
func (n *Node) AvailableWithdrawalTotals(types TypeFlags, priorities PriorityFlags) map[Resource]int {
	out := map[Resource]int{}
	for k := range n.withdrawals {
		if !k.allowed(priorities, types) {
			continue
		}
		if v := n.AvailableWithdrawal(k); v > 0 {
			out[k.Resource] += v
		}
	}
	return out
}

// AvailableDepositTotals sums what is still wanted per bucket.
func (n *Node) AvailableDepositTotals(types TypeFlags, priorities PriorityFlags) map[Resource]int {
	out := map[Resource]int{}
	for k := range n.deposits {
		if !k.allowed(priorities, types) {
			continue
		}
		if v := n.AvailableDeposit(k); v > 0 {
			out[k.Resource] += v
		}
	}
	return out
}

// SelectPickup proposes withdrawals for the desired resources. Named
// resources are served first, most wanted tier first. A desired AnyResource
// amount is then filled from whatever is left at the node.
func (n *Node) SelectPickup(priorities PriorityFlags, types TypeFlags, desired map[Resource]int, capacity Capacity) map[Resource][]WithdrawEntry {
	out := map[Resource][]WithdrawEntry{}
	if capacity.Empty() {
		return out
	}
	taken := map[Key]int{}
	keys := keysByResource(n.withdrawals)

	for _, r := range sortedResources(desired) {
		if r.IsAny() {
			continue
		}
		want := desired[r]
		for _, k := range keys {
			if want <= 0 || capacity.Empty() {
				break
			}
			if !k.matches(r, priorities, types) {
				continue
			}
			amt := capacity.Clamp(min(n.AvailableWithdrawal(k), want))
			if amt <= 0 {
				continue
			}
			addWithdrawEntry(out, r, WithdrawEntry{Amount: amt, Type: k.Type, Priority: k.Priority})
			taken[k] += amt
			want -= amt
			capacity.Consume(amt)
		}
	}

	if anyWant := desired[AnyResource]; anyWant > 0 && !capacity.Empty() {
		fill := Finite(anyWant)
		for _, k := range keysByPriority(n.withdrawals) {
			if fill.Empty() || capacity.Empty() {
				break
			}
			if !k.allowed(priorities, types) {
				continue
			}
			amt := fill.Clamp(capacity.Clamp(n.AvailableWithdrawal(k) - taken[k]))
			if amt <= 0 {
				continue
			}
			addWithdrawEntry(out, k.Resource, WithdrawEntry{Amount: amt, Type: k.Type, Priority: k.Priority})
			taken[k] += amt
			fill.Consume(amt)
			capacity.Consume(amt)
		}
	}
	return out
}

// SelectDelivery proposes deposits for the offered resources. Specific
// buckets are filled first; wildcard buckets then absorb what is left,
// apportioned across the offered resources.
func (n *Node) SelectDelivery(priorities PriorityFlags, types TypeFlags, available map[Resource]int, capacity Capacity) map[Resource][]DepositEntry {
	out := map[Resource][]DepositEntry{}
	if capacity.Empty() {
		return out
	}
	placed := map[Resource]int{}
	keys := keysByResource(n.deposits)

	for _, r := range sortedResources(available) {
		if r.IsAny() {
			continue
		}
		remaining := available[r]
		for _, k := range keys {
			if remaining <= 0 || capacity.Empty() {
				break
			}
			if !k.matches(r, priorities, types) {
				continue
			}
			amt := capacity.Clamp(min(n.AvailableDeposit(k), remaining))
			if amt <= 0 {
				continue
			}
			addDepositEntry(out, r, DepositEntry{TargetResource: r, Amount: amt, Type: k.Type, Priority: k.Priority})
			placed[r] += amt
			remaining -= amt
			capacity.Consume(amt)
		}
	}

	for _, k := range keysByPriority(n.deposits) {
		if capacity.Empty() {
			break
		}
		if !k.matches(AnyResource, priorities, types) {
			continue
		}
		room := Finite(n.AvailableDeposit(k))
		for _, r := range sortedResources(available) {
			if room.Empty() || capacity.Empty() {
				break
			}
			if r.IsAny() {
				continue
			}
			amt := room.Clamp(capacity.Clamp(available[r] - placed[r]))
			if amt <= 0 {
				continue
			}
			addDepositEntry(out, r, DepositEntry{TargetResource: AnyResource, Amount: amt, Type: k.Type, Priority: k.Priority})
			placed[r] += amt
			room.Consume(amt)
			capacity.Consume(amt)
		}
	}
	return out
}

// SelectSingleDelivery proposes a deposit of exactly one resource: the one
// the node can take the most of.
func (n *Node) SelectSingleDelivery(priorities PriorityFlags, types TypeFlags, available map[Resource]int, capacity Capacity) map[Resource][]DepositEntry {
	var best map[Resource][]DepositEntry
	bestTotal := 0
	keys := keysByPriority(n.deposits)

	for _, r := range sortedResources(available) {
		if r.IsAny() {
			continue
		}
		entries := map[Resource][]DepositEntry{}
		remaining := available[r]
		budget := capacity
		total := 0
		for _, bucket := range []Resource{r, AnyResource} {
			for _, k := range keys {
				if remaining <= 0 || budget.Empty() {
					break
				}
				if !k.matches(bucket, priorities, types) {
					continue
				}
				amt := budget.Clamp(min(n.AvailableDeposit(k), remaining))
				if amt <= 0 {
					continue
				}
				addDepositEntry(entries, r, DepositEntry{TargetResource: bucket, Amount: amt, Type: k.Type, Priority: k.Priority})
				remaining -= amt
				total += amt
				budget.Consume(amt)
			}
		}
		if total > bestTotal {
			best, bestTotal = entries, total
		}
	}
	if best == nil {
		return map[Resource][]DepositEntry{}
	}
	return best
}
