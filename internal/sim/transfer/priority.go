package transfer

import (
	"fmt"
	"sort"
	"strings"
)

// Priority is a want-level attached to every declared withdrawal or deposit.
// Lower values are more wanted.
type Priority uint8

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
	PriorityNone
)

var AllPriorities = [...]Priority{PriorityHigh, PriorityMedium, PriorityLow, PriorityNone}

func (p Priority) Flag() PriorityFlags { return PriorityFlags(1) << p }

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	case PriorityNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParsePriority accepts the names produced by String.
func ParsePriority(s string) (Priority, bool) {
	for _, p := range AllPriorities {
		if strings.EqualFold(s, p.String()) {
			return p, true
		}
	}
	return 0, false
}

// PriorityFlags is a set of priorities.
type PriorityFlags uint8

const (
	PriorityFlagsUnset PriorityFlags = 0

	PriorityFlagHigh   = PriorityFlags(1) << PriorityHigh
	PriorityFlagMedium = PriorityFlags(1) << PriorityMedium
	PriorityFlagLow    = PriorityFlags(1) << PriorityLow
	PriorityFlagNone   = PriorityFlags(1) << PriorityNone

	PriorityFlagsActive = PriorityFlagHigh | PriorityFlagMedium | PriorityFlagLow
	PriorityFlagsAll    = PriorityFlagsActive | PriorityFlagNone
)

func (f PriorityFlags) Has(p Priority) bool                   { return f&p.Flag() != 0 }
func (f PriorityFlags) Intersects(o PriorityFlags) bool       { return f&o != 0 }
func (f PriorityFlags) Contains(o PriorityFlags) bool         { return f&o == o }
func (f PriorityFlags) Without(o PriorityFlags) PriorityFlags { return f &^ o }

// Priorities lists the members of f from most to least wanted.
func (f PriorityFlags) Priorities() []Priority {
	out := make([]Priority, 0, len(AllPriorities))
	for _, p := range AllPriorities {
		if f.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

func (f PriorityFlags) String() string {
	if f == PriorityFlagsUnset {
		return "unset"
	}
	parts := make([]string, 0, 4)
	for _, p := range f.Priorities() {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, "|")
}

// ParsePriorityFlags parses "high|low", "all" or "active".
func ParsePriorityFlags(s string) (PriorityFlags, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unset":
		return PriorityFlagsUnset, true
	case "all":
		return PriorityFlagsAll, true
	case "active":
		return PriorityFlagsActive, true
	}
	var f PriorityFlags
	for _, part := range strings.Split(s, "|") {
		p, ok := ParsePriority(strings.TrimSpace(part))
		if !ok {
			return 0, false
		}
		f |= p.Flag()
	}
	return f, true
}

// PriorityPair is a (pickup, delivery) priority combination.
type PriorityPair struct {
	Pickup   Priority
	Delivery Priority
}

func (pp PriorityPair) worst() Priority {
	if pp.Pickup > pp.Delivery {
		return pp.Pickup
	}
	return pp.Delivery
}

// ActivePriorityPairs returns every pair where either side is allowed, minus
// (None, None). Pairs are ordered by their worse tier, then pickup tier, then
// delivery tier, so (High, High) always comes first.
func ActivePriorityPairs(pickup, delivery PriorityFlags) []PriorityPair {
	out := make([]PriorityPair, 0, len(AllPriorities)*len(AllPriorities))
	for _, p1 := range AllPriorities {
		for _, p2 := range AllPriorities {
			if !pickup.Has(p1) && !delivery.Has(p2) {
				continue
			}
			if p1 == PriorityNone && p2 == PriorityNone {
				continue
			}
			out = append(out, PriorityPair{Pickup: p1, Delivery: p2})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.worst() != b.worst() {
			return a.worst() < b.worst()
		}
		if a.Pickup != b.Pickup {
			return a.Pickup < b.Pickup
		}
		return a.Delivery < b.Delivery
	})
	return out
}

// Type describes which kind of mover may service a request.
type Type uint8

const (
	TypeHaul Type = iota
	TypeLink
	TypeTerminal
	TypeUse
)

var AllTypes = [...]Type{TypeHaul, TypeLink, TypeTerminal, TypeUse}

func (t Type) Flag() TypeFlags { return TypeFlags(1) << t }

func (t Type) String() string {
	switch t {
	case TypeHaul:
		return "haul"
	case TypeLink:
		return "link"
	case TypeTerminal:
		return "terminal"
	case TypeUse:
		return "use"
	default:
		return "unknown"
	}
}

type TypeFlags uint8

const (
	TypeFlagHaul     = TypeFlags(1) << TypeHaul
	TypeFlagLink     = TypeFlags(1) << TypeLink
	TypeFlagTerminal = TypeFlags(1) << TypeTerminal
	TypeFlagUse      = TypeFlags(1) << TypeUse

	TypeFlagsAll = TypeFlagHaul | TypeFlagLink | TypeFlagTerminal | TypeFlagUse
)

func (f TypeFlags) Has(t Type) bool             { return f&t.Flag() != 0 }
func (f TypeFlags) Intersects(o TypeFlags) bool { return f&o != 0 }

func (f TypeFlags) String() string {
	parts := make([]string, 0, 4)
	for _, t := range AllTypes {
		if f.Has(t) {
			parts = append(parts, t.String())
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Priority) UnmarshalText(b []byte) error {
	v, ok := ParsePriority(string(b))
	if !ok {
		return fmt.Errorf("unknown priority %q", string(b))
	}
	*p = v
	return nil
}

func ParseType(s string) (Type, bool) {
	for _, t := range AllTypes {
		if strings.EqualFold(s, t.String()) {
			return t, true
		}
	}
	return 0, false
}

func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Type) UnmarshalText(b []byte) error {
	v, ok := ParseType(string(b))
	if !ok {
		return fmt.Errorf("unknown transfer type %q", string(b))
	}
	*t = v
	return nil
}
