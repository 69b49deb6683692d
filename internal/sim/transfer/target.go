package transfer

import (
	"fmt"
	"sort"
	"strconv"
)

// Resource is a kind of stored material such as "energy".
type Resource string

// AnyResource is the wildcard. It is only meaningful on the deposit side and
// as a "fill with anything" desired amount.
const AnyResource Resource = "*"

const ResourceEnergy Resource = "energy"

func (r Resource) IsAny() bool { return r == AnyResource }

func sortedResources[V any](m map[Resource]V) []Resource {
	out := make([]Resource, 0, len(m))
	for r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RoomName names a 50x50 room, e.g. "W1N1" or "E3S2".
type RoomName string

const RoomSize = 50

// farRange is used between rooms whose names carry no coordinates.
const farRange = 1000

// Coords maps a room name onto the global room grid. E0 and S0 are the
// first non-negative columns and rows; W0 and N0 are -1.
func (n RoomName) Coords() (x, y int, err error) {
	s := string(n)
	if len(s) < 4 {
		return 0, 0, fmt.Errorf("room name %q: too short", s)
	}
	i := 1
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 1 || i >= len(s)-1 {
		return 0, 0, fmt.Errorf("room name %q: malformed", s)
	}
	hx, err := strconv.Atoi(s[1:i])
	if err != nil {
		return 0, 0, fmt.Errorf("room name %q: %w", s, err)
	}
	hy, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return 0, 0, fmt.Errorf("room name %q: %w", s, err)
	}
	switch s[0] {
	case 'E', 'e':
		x = hx
	case 'W', 'w':
		x = -hx - 1
	default:
		return 0, 0, fmt.Errorf("room name %q: bad horizontal prefix", s)
	}
	switch s[i] {
	case 'S', 's':
		y = hy
	case 'N', 'n':
		y = -hy - 1
	default:
		return 0, 0, fmt.Errorf("room name %q: bad vertical prefix", s)
	}
	return x, y, nil
}

// LinearDistance is the room-grid Chebyshev distance between two rooms.
func LinearDistance(a, b RoomName) int {
	if a == b {
		return 0
	}
	ax, ay, err1 := a.Coords()
	bx, by, err2 := b.Coords()
	if err1 != nil || err2 != nil {
		return farRange / RoomSize
	}
	return max(abs(ax-bx), abs(ay-by))
}

// Position is a tile inside a room.
type Position struct {
	Room RoomName `json:"room" yaml:"room"`
	X    int      `json:"x" yaml:"x"`
	Y    int      `json:"y" yaml:"y"`
}

func (p Position) String() string { return fmt.Sprintf("%s[%d,%d]", p.Room, p.X, p.Y) }

// RangeTo is the Chebyshev tile distance, across room borders when both room
// names carry coordinates.
func (p Position) RangeTo(o Position) int {
	if p.Room == o.Room {
		return max(abs(p.X-o.X), abs(p.Y-o.Y))
	}
	ax, ay, err1 := p.Room.Coords()
	bx, by, err2 := o.Room.Coords()
	if err1 != nil || err2 != nil {
		return farRange
	}
	gx := (ax-bx)*RoomSize + p.X - o.X
	gy := (ay-by)*RoomSize + p.Y - o.Y
	return max(abs(gx), abs(gy))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type TargetKind uint8

const (
	KindContainer TargetKind = iota
	KindSpawn
	KindExtension
	KindStorage
	KindTower
	KindLink
	KindRuin
	KindTombstone
	KindResource
	KindTerminal
	KindLab
	KindFactory
	KindNuker
	KindPowerSpawn
)

var kindNames = [...]string{
	KindContainer:  "container",
	KindSpawn:      "spawn",
	KindExtension:  "extension",
	KindStorage:    "storage",
	KindTower:      "tower",
	KindLink:       "link",
	KindRuin:       "ruin",
	KindTombstone:  "tombstone",
	KindResource:   "resource",
	KindTerminal:   "terminal",
	KindLab:        "lab",
	KindFactory:    "factory",
	KindNuker:      "nuker",
	KindPowerSpawn: "power_spawn",
}

func (k TargetKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

func ParseTargetKind(s string) (TargetKind, bool) {
	for i, name := range kindNames {
		if name == s {
			return TargetKind(i), true
		}
	}
	return 0, false
}

func (k TargetKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *TargetKind) UnmarshalText(b []byte) error {
	v, ok := ParseTargetKind(string(b))
	if !ok {
		return fmt.Errorf("unknown target kind %q", string(b))
	}
	*k = v
	return nil
}

// Target identifies an addressable resource holder. Pos is fixed for the
// lifetime of the object.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id"`
	Pos  Position   `json:"pos"`
}

func (t Target) String() string { return t.Kind.String() + ":" + t.ID }

func (t Target) less(o Target) bool {
	if t.ID != o.ID {
		return t.ID < o.ID
	}
	return t.Kind < o.Kind
}

// Filter decides whether a delivery target may be considered.
type Filter func(Target) bool

func FilterAll(Target) bool { return true }

// FilterStorage accepts bulk stores only.
func FilterStorage(t Target) bool {
	switch t.Kind {
	case KindContainer, KindStorage, KindTerminal:
		return true
	}
	return false
}

func FilterLink(t Target) bool { return t.Kind == KindLink }

func FilterTerminal(t Target) bool { return t.Kind == KindTerminal }

func (f Filter) And(g Filter) Filter {
	return func(t Target) bool { return f(t) && g(t) }
}

// WorldView is the read-only world handed to generators.
type WorldView interface {
	IsValid(t Target) bool
}
