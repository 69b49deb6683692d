package world

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync/atomic"

	"colonysim.ai/internal/persistence/snapshot"
	"colonysim.ai/internal/sim/transfer"
)

// World is a single-threaded deterministic colony.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg WorldConfig
	log *log.Logger

	step atomic.Uint64

	structures map[string]*Structure
	haulers    map[string]*Hauler
	queue      *transfer.Queue

	admin chan adminReq
	stop  chan struct{}

	// Optional sinks (may be nil). Implemented in internal/persistence/*.
	stepLogger   StepLogger
	snapshotSink chan<- snapshot.SnapshotV1

	movedTotal uint64
	movesTotal uint64

	metrics atomic.Value
}

type StepLogger interface {
	WriteStep(entry StepLogEntry) error
}

// StepLogEntry is everything a step produced, in deterministic order.
type StepLogEntry struct {
	Step            uint64                    `json:"step"`
	RunID           string                    `json:"run_id,omitempty"`
	Moves           []Move                    `json:"moves,omitempty"`
	Rooms           []transfer.RoomSummary    `json:"rooms,omitempty"`
	Backlog         map[transfer.Resource]int `json:"backlog,omitempty"`
	GeneratorErrors int                       `json:"generator_errors,omitempty"`
	Digest          string                    `json:"digest"`
}

var ErrInvalidLayout = errors.New("invalid layout")

func New(cfg WorldConfig, layout Layout, logger *log.Logger) (*World, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	w := &World{
		cfg:        cfg,
		log:        logger,
		structures: map[string]*Structure{},
		haulers:    map[string]*Hauler{},
		admin:      make(chan adminReq, 16),
		stop:       make(chan struct{}),
	}
	w.queue = transfer.NewQueue(w, logger)

	for _, s := range layout.Structures {
		if err := w.addStructure(s); err != nil {
			return nil, err
		}
	}
	for _, h := range layout.Haulers {
		if err := w.addHauler(h); err != nil {
			return nil, err
		}
	}
	w.publishMetrics(WorldMetrics{})
	return w, nil
}

func (w *World) addStructure(s Structure) error {
	if s.ID == "" {
		return fmt.Errorf("%w: structure without id", ErrInvalidLayout)
	}
	if _, dup := w.structures[s.ID]; dup {
		return fmt.Errorf("%w: duplicate structure %q", ErrInvalidLayout, s.ID)
	}
	if _, _, err := s.Pos.Room.Coords(); err != nil {
		return fmt.Errorf("%w: structure %q: %v", ErrInvalidLayout, s.ID, err)
	}
	if s.Capacity < 0 || s.Produce < 0 || s.Consume < 0 {
		return fmt.Errorf("%w: structure %q: negative capacity or rate", ErrInvalidLayout, s.ID)
	}
	cp := s
	cp.Store = copyStore(s.Store)
	cp.Want = copyStore(s.Want)
	w.structures[s.ID] = &cp
	return nil
}

func (w *World) addHauler(h HaulerSpec) error {
	if h.ID == "" {
		return fmt.Errorf("%w: hauler without id", ErrInvalidLayout)
	}
	if _, dup := w.haulers[h.ID]; dup {
		return fmt.Errorf("%w: duplicate hauler %q", ErrInvalidLayout, h.ID)
	}
	if _, _, err := h.Pos.Room.Coords(); err != nil {
		return fmt.Errorf("%w: hauler %q: %v", ErrInvalidLayout, h.ID, err)
	}
	if h.Capacity <= 0 {
		return fmt.Errorf("%w: hauler %q: capacity must be > 0", ErrInvalidLayout, h.ID)
	}
	w.haulers[h.ID] = &Hauler{ID: h.ID, Capacity: h.Capacity, pos: h.Pos, cargo: copyStore(h.Cargo)}
	return nil
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) StepRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.StepRateHz
}

// CurrentStep is the number of the next step to run.
func (w *World) CurrentStep() uint64 { return w.step.Load() }

func (w *World) SetStepLogger(l StepLogger) { w.stepLogger = l }

func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

// IsValid reports whether t still names a live structure at its position.
func (w *World) IsValid(t transfer.Target) bool {
	s, ok := w.structures[t.ID]
	return ok && s.Kind == t.Kind && s.Pos == t.Pos
}

func (w *World) rooms() []transfer.RoomName {
	seen := map[transfer.RoomName]bool{}
	var out []transfer.RoomName
	add := func(r transfer.RoomName) {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	for _, s := range w.structures {
		add(s.Pos.Room)
	}
	for _, h := range w.haulers {
		add(h.pos.Room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (w *World) sortedStructures() []*Structure {
	out := make([]*Structure, 0, len(w.structures))
	for _, s := range w.structures {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) roomStructures(room transfer.RoomName) []*Structure {
	var out []*Structure
	for _, s := range w.sortedStructures() {
		if s.Pos.Room == room {
			out = append(out, s)
		}
	}
	return out
}

func (w *World) sortedHaulers() []*Hauler {
	out := make([]*Hauler, 0, len(w.haulers))
	for _, h := range w.haulers {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Structure returns a copy of the named structure.
func (w *World) Structure(id string) (Structure, bool) {
	s, ok := w.structures[id]
	if !ok {
		return Structure{}, false
	}
	cp := *s
	cp.Store = copyStore(s.Store)
	cp.Want = copyStore(s.Want)
	return cp, true
}

// HaulerState returns the position and cargo of the named hauler.
func (w *World) HaulerState(id string) (transfer.Position, map[transfer.Resource]int, bool) {
	h, ok := w.haulers[id]
	if !ok {
		return transfer.Position{}, nil, false
	}
	return h.pos, h.Cargo(), true
}
