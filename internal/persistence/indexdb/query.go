package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// Reader runs queries against an index written by SQLiteIndex, either in
// process or from a separate admin process.
type Reader struct{ db *sql.DB }

func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

// Reader shares the writer's connection; call Flush first to see queued rows.
func (s *SQLiteIndex) Reader() *Reader { return &Reader{db: s.db} }

type StepRow struct {
	Step            uint64 `json:"step"`
	RunID           string `json:"run_id"`
	Digest          string `json:"digest"`
	Moves           int    `json:"moves"`
	Moved           int    `json:"moved"`
	GeneratorErrors int    `json:"generator_errors"`
	BacklogJSON     string `json:"backlog_json"`
}

type RoomRow struct {
	Step                  uint64 `json:"step"`
	Room                  string `json:"room"`
	Nodes                 int    `json:"nodes"`
	TotalWithdrawal       int    `json:"total_withdrawal"`
	TotalActiveWithdrawal int    `json:"total_active_withdrawal"`
	TotalDeposit          int    `json:"total_deposit"`
	TotalActiveDeposit    int    `json:"total_active_deposit"`
}

type MoveRow struct {
	Step     uint64 `json:"step"`
	Seq      int    `json:"seq"`
	Kind     string `json:"kind"`
	Actor    string `json:"actor"`
	Target   string `json:"target"`
	Room     string `json:"room"`
	Resource string `json:"resource"`
	Amount   int    `json:"amount"`
}

type SnapshotRow struct {
	Step       uint64 `json:"step"`
	Path       string `json:"path"`
	WorldID    string `json:"world_id"`
	RunID      string `json:"run_id"`
	Structures int    `json:"structures"`
	Haulers    int    `json:"haulers"`
	MovedTotal uint64 `json:"moved_total"`
}

func (r *Reader) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// ListSteps returns up to limit steps at or after from, oldest first.
func (r *Reader) ListSteps(ctx context.Context, from uint64, limit int) ([]StepRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT step,run_id,digest,moves,moved,generator_errors,backlog_json FROM steps WHERE step>=? ORDER BY step LIMIT ?`, int64(from), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StepRow
	for rows.Next() {
		var s StepRow
		var step int64
		if err := rows.Scan(&step, &s.RunID, &s.Digest, &s.Moves, &s.Moved, &s.GeneratorErrors, &s.BacklogJSON); err != nil {
			return nil, err
		}
		s.Step = uint64(step)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Reader) LatestStep(ctx context.Context) (uint64, bool, error) {
	var step sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(step) FROM steps`).Scan(&step); err != nil {
		return 0, false, err
	}
	if !step.Valid {
		return 0, false, nil
	}
	return uint64(step.Int64), true, nil
}

func (r *Reader) RoomStatsAt(ctx context.Context, step uint64) ([]RoomRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT room,nodes,total_withdrawal,total_active_withdrawal,total_deposit,total_active_deposit FROM room_stats WHERE step=? ORDER BY room`, int64(step))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RoomRow
	for rows.Next() {
		rr := RoomRow{Step: step}
		if err := rows.Scan(&rr.Room, &rr.Nodes, &rr.TotalWithdrawal, &rr.TotalActiveWithdrawal, &rr.TotalDeposit, &rr.TotalActiveDeposit); err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// MovesFor returns the latest moves where id was the actor or the target,
// newest first.
func (r *Reader) MovesFor(ctx context.Context, id string, limit int) ([]MoveRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT step,seq,kind,actor,target,room,resource,amount FROM moves WHERE actor=? OR target=? ORDER BY step DESC, seq DESC LIMIT ?`, id, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MoveRow
	for rows.Next() {
		var m MoveRow
		var step int64
		if err := rows.Scan(&step, &m.Seq, &m.Kind, &m.Actor, &m.Target, &m.Room, &m.Resource, &m.Amount); err != nil {
			return nil, err
		}
		m.Step = uint64(step)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Reader) Snapshots(ctx context.Context, limit int) ([]SnapshotRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT step,path,world_id,run_id,structures,haulers,moved_total FROM snapshots ORDER BY step DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotRow
	for rows.Next() {
		var s SnapshotRow
		var step, moved int64
		if err := rows.Scan(&step, &s.Path, &s.WorldID, &s.RunID, &s.Structures, &s.Haulers, &moved); err != nil {
			return nil, err
		}
		s.Step, s.MovedTotal = uint64(step), uint64(moved)
		out = append(out, s)
	}
	return out, rows.Err()
}
