package observer

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"

	"colonysim.ai/internal/observerproto"
	"colonysim.ai/internal/sim/world"
)

// Hub fans step log entries out to observer sessions. WriteStep runs on the
// world loop goroutine and never blocks.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session

	dropped atomic.Uint64
}

type session struct {
	id string

	mu      sync.Mutex
	rooms   map[string]bool
	noMoves bool

	out chan []byte
}

func NewHub() *Hub {
	return &Hub{sessions: map[string]*session{}}
}

func (h *Hub) add(s *session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Dropped counts step messages not delivered because a session was slow.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (s *session) update(sub observerproto.SubscribeMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noMoves = sub.NoMoves
	s.rooms = nil
	if len(sub.Rooms) > 0 {
		s.rooms = make(map[string]bool, len(sub.Rooms))
		for _, r := range sub.Rooms {
			s.rooms[r] = true
		}
	}
}

func (s *session) filter() (rooms map[string]bool, noMoves bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms, s.noMoves
}

func (h *Hub) WriteStep(e world.StepLogEntry) error {
	h.mu.RLock()
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()
	if len(sessions) == 0 {
		return nil
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].id < sessions[j].id })

	// Sessions with the same filter share one encoding.
	cache := map[string][]byte{}
	for _, s := range sessions {
		rooms, noMoves := s.filter()
		key := filterKey(rooms, noMoves)
		b, ok := cache[key]
		if !ok {
			var err error
			b, err = json.Marshal(buildStepMsg(e, rooms, noMoves))
			if err != nil {
				return err
			}
			cache[key] = b
		}
		select {
		case s.out <- b:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

func filterKey(rooms map[string]bool, noMoves bool) string {
	keys := make([]string, 0, len(rooms))
	for r := range rooms {
		keys = append(keys, r)
	}
	sort.Strings(keys)
	b, _ := json.Marshal(struct {
		R []string
		N bool
	}{keys, noMoves})
	return string(b)
}

func buildStepMsg(e world.StepLogEntry, rooms map[string]bool, noMoves bool) observerproto.StepMsg {
	msg := observerproto.StepMsg{
		Type:            observerproto.TypeStep,
		ProtocolVersion: observerproto.Version,
		Step:            e.Step,
		Digest:          e.Digest,
		GeneratorErrors: e.GeneratorErrors,
	}
	keep := func(room string) bool { return rooms == nil || rooms[room] }
	if !noMoves {
		for _, m := range e.Moves {
			if !keep(string(m.Room)) {
				continue
			}
			msg.Moves = append(msg.Moves, observerproto.Move{
				Kind:     m.Kind,
				Actor:    m.Actor,
				Target:   m.Target,
				Room:     string(m.Room),
				Resource: string(m.Resource),
				Amount:   m.Amount,
			})
		}
	}
	for _, rs := range e.Rooms {
		if keep(string(rs.Room)) {
			msg.Summary = append(msg.Summary, rs)
		}
	}
	if rooms == nil && len(e.Backlog) > 0 {
		msg.Backlog = make(map[string]int, len(e.Backlog))
		for r, n := range e.Backlog {
			msg.Backlog[string(r)] = n
		}
	}
	return msg
}
