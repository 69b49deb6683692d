package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"colonysim.ai/internal/persistence/snapshot"
	"colonysim.ai/internal/sim/tuning"
	"colonysim.ai/internal/sim/world"
)

const SchemaVersion = "1"

// Path is where a world keeps its index under the runtime data directory.
func Path(dataDir, worldID string) string {
	return filepath.Join(dataDir, "worlds", worldID, "index", "colony.sqlite")
}

// SQLiteIndex is a secondary, queryable copy of the step log. Writes are
// queued and dropped when the writer falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropStep     atomic.Uint64
	dropSnapshot atomic.Uint64
	writeErrors  atomic.Uint64
}

type reqKind int

const (
	reqStep reqKind = iota + 1
	reqSnapshot
	reqFlush
)

type req struct {
	kind reqKind

	step     world.StepLogEntry
	snapshot snapshotRow
	done     chan struct{}
}

type snapshotRow struct {
	Step       uint64
	Path       string
	WorldID    string
	RunID      string
	Structures int
	Haulers    int
	MovedTotal uint64
}

type IndexStats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropStepTotal     uint64 `json:"drop_step_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
	WriteErrorTotal   uint64 `json:"write_error_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			step INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL,
			digest TEXT NOT NULL,
			moves INTEGER NOT NULL,
			moved INTEGER NOT NULL,
			generator_errors INTEGER NOT NULL,
			backlog_json TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS room_stats (
			step INTEGER NOT NULL,
			room TEXT NOT NULL,
			nodes INTEGER NOT NULL,
			total_withdrawal INTEGER NOT NULL,
			total_active_withdrawal INTEGER NOT NULL,
			total_deposit INTEGER NOT NULL,
			total_active_deposit INTEGER NOT NULL,
			PRIMARY KEY (step, room)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_room_stats_room_step ON room_stats(room, step);`,
		`CREATE TABLE IF NOT EXISTS moves (
			step INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			actor TEXT NOT NULL,
			target TEXT NOT NULL,
			room TEXT NOT NULL,
			resource TEXT NOT NULL,
			amount INTEGER NOT NULL,
			PRIMARY KEY (step, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_moves_actor_step ON moves(actor, step);`,
		`CREATE INDEX IF NOT EXISTS idx_moves_target_step ON moves(target, step);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			step INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			world_id TEXT NOT NULL,
			run_id TEXT NOT NULL,
			structures INTEGER NOT NULL,
			haulers INTEGER NOT NULL,
			moved_total INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteStep implements world.StepLogger.
func (s *SQLiteIndex) WriteStep(entry world.StepLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqStep, step: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropStep.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Step:       snap.Header.Step,
		Path:       path,
		WorldID:    snap.Header.WorldID,
		RunID:      snap.Header.RunID,
		Structures: len(snap.Structures),
		Haulers:    len(snap.Haulers),
		MovedTotal: snap.Counters.MovedTotal,
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// Flush commits everything queued so far.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Stats() IndexStats {
	if s == nil {
		return IndexStats{}
	}
	return IndexStats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropStepTotal:     s.dropStep.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		WriteErrorTotal:   s.writeErrors.Load(),
	}
}

// UpsertRun records which run and tuning produced the rows in this index.
func (s *SQLiteIndex) UpsertRun(worldID, runID string, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)

	rows := [][2]string{
		{"schema_version", SchemaVersion},
		{"world_id", worldID},
		{"run_id", runID},
		{"tuning_json", string(b)},
		{"tuning_digest", hex.EncodeToString(sum[:])},
		{"started_at", time.Now().UTC().Format(time.RFC3339Nano)},
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r[0], r[1]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertStep, _ := s.db.Prepare(`INSERT OR REPLACE INTO steps(step,run_id,digest,moves,moved,generator_errors,backlog_json,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertRoom, _ := s.db.Prepare(`INSERT OR REPLACE INTO room_stats(step,room,nodes,total_withdrawal,total_active_withdrawal,total_deposit,total_active_deposit) VALUES(?,?,?,?,?,?,?)`)
	insertMove, _ := s.db.Prepare(`INSERT OR REPLACE INTO moves(step,seq,kind,actor,target,room,resource,amount) VALUES(?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(step,path,world_id,run_id,structures,haulers,moved_total) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertStep, insertRoom, insertMove, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrors.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		s.writeErrors.Add(1)
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return true
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqStep:
			e := r.step
			raw, _ := json.Marshal(e)
			backlog, _ := json.Marshal(e.Backlog)
			moved := 0
			for _, m := range e.Moves {
				if m.Kind != world.MoveDeposit {
					moved += m.Amount
				}
			}
			if !exec(insertStep, int64(e.Step), e.RunID, e.Digest, len(e.Moves), moved, e.GeneratorErrors, string(backlog), string(raw)) {
				continue
			}
			ok := true
			for _, rs := range e.Rooms {
				if ok = exec(insertRoom, int64(e.Step), string(rs.Room), rs.Nodes,
					rs.TotalWithdrawal, rs.TotalActiveWithdrawal, rs.TotalDeposit, rs.TotalActiveDeposit); !ok {
					break
				}
			}
			if !ok {
				continue
			}
			for i, m := range e.Moves {
				if !exec(insertMove, int64(e.Step), i, m.Kind, m.Actor, m.Target, string(m.Room), string(m.Resource), m.Amount) {
					break
				}
			}

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, int64(sn.Step), sn.Path, sn.WorldID, sn.RunID, sn.Structures, sn.Haulers, int64(sn.MovedTotal))
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
