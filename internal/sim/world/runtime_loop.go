package world

import (
	"context"
	"errors"
	"time"

	"colonysim.ai/internal/persistence/snapshot"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.StepRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingAdmin []adminReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.admin:
			pendingAdmin = append(pendingAdmin, req)
		case <-ticker.C:
			w.stepInternal()
			w.handleAdminRequests(pendingAdmin)
			pendingAdmin = pendingAdmin[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single step using the same ordering as
// Run. It is intended for deterministic replays/tests.
func (w *World) StepOnce() (step uint64, digest string) {
	e := w.stepInternal()
	return e.Step, e.Digest
}

type adminKind int

const (
	adminState adminKind = iota
	adminSnapshot
)

type adminReq struct {
	kind adminKind
	resp chan adminResp
}

type adminResp struct {
	step uint64
	snap snapshot.SnapshotV1
	err  string
}

func (w *World) request(ctx context.Context, kind adminKind) (adminResp, error) {
	if w == nil || w.admin == nil {
		return adminResp{}, errors.New("admin requests not available")
	}
	resp := make(chan adminResp, 1)
	select {
	case w.admin <- adminReq{kind: kind, resp: resp}:
	case <-ctx.Done():
		return adminResp{}, ctx.Err()
	}
	select {
	case r := <-resp:
		if r.err != "" {
			return r, errors.New(r.err)
		}
		return r, nil
	case <-ctx.Done():
		return adminResp{}, ctx.Err()
	}
}

// RequestState returns a copy of the colony taken between steps. It is safe
// to call from other goroutines (e.g. HTTP handlers).
func (w *World) RequestState(ctx context.Context) (snapshot.SnapshotV1, error) {
	r, err := w.request(ctx, adminState)
	return r.snap, err
}

// RequestSnapshot asks the world loop to push a snapshot into the sink.
func (w *World) RequestSnapshot(ctx context.Context) (step uint64, err error) {
	r, err := w.request(ctx, adminSnapshot)
	return r.step, err
}

func (w *World) handleAdminRequests(reqs []adminReq) {
	if len(reqs) == 0 {
		return
	}
	cur := w.step.Load()
	last := uint64(0)
	if cur > 0 {
		last = cur - 1
	}
	snap := w.ExportSnapshot(last)

	for _, r := range reqs {
		resp := adminResp{step: last, snap: snap}
		if r.kind == adminSnapshot {
			resp.snap = snapshot.SnapshotV1{}
			if w.snapshotSink == nil {
				resp.err = "snapshot sink not configured"
			} else {
				select {
				case w.snapshotSink <- snap:
				default:
					resp.err = "snapshot sink backpressure"
				}
			}
		}
		if r.resp == nil {
			continue
		}
		select {
		case r.resp <- resp:
		default:
			// Client timed out; don't block the loop.
		}
	}
}
