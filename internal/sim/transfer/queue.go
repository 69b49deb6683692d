package transfer

import (
	"io"
	"log"
	"sort"
)

type WithdrawRequest struct {
	Target   Target
	Resource Resource
	Priority Priority
	Amount   int
	Type     Type
}

// DepositRequest may name AnyResource to accept anything.
type DepositRequest struct {
	Target   Target
	Resource Resource
	Priority Priority
	Amount   int
	Type     Type
}

// RequestSink receives producer declarations.
type RequestSink interface {
	RequestWithdraw(req WithdrawRequest)
	RequestDeposit(req DepositRequest)
}

// Generator declares the requests of one room on first demand.
type Generator func(view WorldView, sink RequestSink, room RoomName) error

type generatorEntry struct {
	types TypeFlags
	fn    Generator
}

type QueueStats struct {
	GeneratorsRun   int `json:"generators_run"`
	GeneratorErrors int `json:"generator_errors"`
}

// Queue is the per-step registry of every room ledger. It is not safe for
// concurrent use; the step goroutine owns it.
type Queue struct {
	view WorldView
	log  *log.Logger

	generators map[RoomName][]generatorEntry
	rooms      map[RoomName]*RoomLedger
	stats      QueueStats
}

func NewQueue(view WorldView, logger *log.Logger) *Queue {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Queue{
		view:       view,
		log:        logger,
		generators: map[RoomName][]generatorEntry{},
		rooms:      map[RoomName]*RoomLedger{},
	}
}

// SetView swaps the world view handed to generators.
func (q *Queue) SetView(view WorldView) { q.view = view }

func (q *Queue) Stats() QueueStats { return q.stats }

// RegisterGenerator adds a lazy producer for room. It runs at most once, on
// the first query that touches room with an intersecting type.
func (q *Queue) RegisterGenerator(room RoomName, types TypeFlags, fn Generator) {
	q.generators[room] = append(q.generators[room], generatorEntry{types: types, fn: fn})
}

// stagedSink buffers a generator's requests so a failing generator
// contributes nothing.
type stagedSink struct {
	withdrawals []WithdrawRequest
	deposits    []DepositRequest
}

func (s *stagedSink) RequestWithdraw(req WithdrawRequest) { s.withdrawals = append(s.withdrawals, req) }
func (s *stagedSink) RequestDeposit(req DepositRequest)   { s.deposits = append(s.deposits, req) }

func (q *Queue) nextGenerator(room RoomName, types TypeFlags) (generatorEntry, bool) {
	entries := q.generators[room]
	for i, e := range entries {
		if !e.types.Intersects(types) {
			continue
		}
		entries = append(entries[:i], entries[i+1:]...)
		if len(entries) == 0 {
			delete(q.generators, room)
		} else {
			q.generators[room] = entries
		}
		return e, true
	}
	return generatorEntry{}, false
}

func (q *Queue) flush(room RoomName, types TypeFlags) {
	for {
		e, ok := q.nextGenerator(room, types)
		if !ok {
			return
		}
		q.stats.GeneratorsRun++
		var sink stagedSink
		if err := e.fn(q.view, &sink, room); err != nil {
			q.stats.GeneratorErrors++
			q.log.Printf("transfer generator error: room=%s types=%s: %v", room, e.types, err)
			continue
		}
		for _, req := range sink.withdrawals {
			q.RequestWithdraw(req)
		}
		for _, req := range sink.deposits {
			q.RequestDeposit(req)
		}
	}
}

// FlushAll runs every pending generator.
func (q *Queue) FlushAll() {
	for _, room := range q.pendingRooms() {
		q.flush(room, TypeFlagsAll)
	}
}

func (q *Queue) pendingRooms() []RoomName {
	out := make([]RoomName, 0, len(q.generators))
	for r := range q.generators {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Room flushes the generators for room and types, then returns its ledger.
func (q *Queue) Room(room RoomName, types TypeFlags) (*RoomLedger, bool) {
	q.flush(room, types)
	rl, ok := q.rooms[room]
	return rl, ok
}

func (q *Queue) ledger(room RoomName) *RoomLedger {
	rl := q.rooms[room]
	if rl == nil {
		rl = NewRoomLedger()
		q.rooms[room] = rl
	}
	return rl
}

func (q *Queue) node(t Target, types TypeFlags) (*Node, bool) {
	rl, ok := q.Room(t.Pos.Room, types)
	if !ok {
		return nil, false
	}
	return rl.TryNode(t)
}

// Rooms is the sorted union of rooms holding data and rooms with generators
// still to run.
func (q *Queue) Rooms() []RoomName {
	seen := make(map[RoomName]struct{}, len(q.rooms)+len(q.generators))
	out := make([]RoomName, 0, len(q.rooms)+len(q.generators))
	for r := range q.rooms {
		seen[r] = struct{}{}
		out = append(out, r)
	}
	for r := range q.generators {
		if _, ok := seen[r]; !ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (q *Queue) RequestWithdraw(req WithdrawRequest) {
	if req.Amount <= 0 || req.Resource.IsAny() {
		return
	}
	k := Key{Resource: req.Resource, Priority: req.Priority, Type: req.Type}
	q.ledger(req.Target.Pos.Room).requestWithdraw(req.Target, k, req.Amount)
}

func (q *Queue) RequestDeposit(req DepositRequest) {
	if req.Amount <= 0 {
		return
	}
	k := Key{Resource: req.Resource, Priority: req.Priority, Type: req.Type}
	q.ledger(req.Target.Pos.Room).requestDeposit(req.Target, k, req.Amount)
}

// RegisterPickup turns the ticket's amounts into pending withdrawals.
func (q *Queue) RegisterPickup(t WithdrawTicket) {
	q.ledger(t.Target.Pos.Room).registerPickup(t)
}

// RegisterDelivery turns the ticket's amounts into pending deposits.
func (q *Queue) RegisterDelivery(t DepositTicket) {
	q.ledger(t.Target.Pos.Room).registerDelivery(t)
}

// Clear discards every ledger, generator and counter.
func (q *Queue) Clear() {
	q.rooms = map[RoomName]*RoomLedger{}
	q.generators = map[RoomName][]generatorEntry{}
	q.stats = QueueStats{}
}

func uniqueRooms(rooms []RoomName) []RoomName {
	if len(rooms) < 2 {
		return rooms
	}
	seen := make(map[RoomName]struct{}, len(rooms))
	out := make([]RoomName, 0, len(rooms))
	for _, r := range rooms {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
