package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"colonysim.ai/internal/persistence/archive"
	persistlog "colonysim.ai/internal/persistence/log"
	"colonysim.ai/internal/persistence/snapshot"
	"colonysim.ai/internal/sim/scenario"
	"colonysim.ai/internal/sim/tuning"
	"colonysim.ai/internal/sim/world"
	"colonysim.ai/internal/transport/observer"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "http listen address")
		worldID      = flag.String("world", "", "world id (default: scenario world_id)")
		scenarioPath = flag.String("scenario", "./configs/scenarios/two-rooms.yaml", "scenario used when starting a fresh colony")
		tuningPath   = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		disableDB    = flag.Bool("disable_db", false, "disable the sqlite step index")

		snapPath      = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest    = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
		keepSnapshots = flag.Int("keep_snapshots", 24, "snapshots kept under <world>/snapshots (0 keeps all)")
		archiveEvery  = flag.Uint64("archive_every", 0, "copy snapshots at multiples of this step into <world>/archives (0 disables)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	sc, err := scenario.Load(*scenarioPath)
	if err != nil {
		logger.Fatalf("load scenario: %v", err)
	}
	id := strings.TrimSpace(*worldID)
	if id == "" {
		id = sc.WorldID
	}
	if id == "" {
		logger.Fatalf("world id: set -world or world_id in %s", *scenarioPath)
	}

	worldDir := filepath.Join(*dataDir, "worlds", id)
	_ = os.MkdirAll(worldDir, 0o755)

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(worldDir)
	}

	// Tuning is required for a fresh colony; a resume takes its parameters
	// from the snapshot.
	tune, tuneErr := tuning.Load(*tuningPath)
	if tuneErr != nil {
		if snapshotToLoad == "" || !os.IsNotExist(tuneErr) {
			logger.Fatalf("load tuning: %v", tuneErr)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	cfg := sc.Config(world.ConfigFromTuning(id, tune))
	cfg.ID = id
	cfg.RunID = uuid.NewString()

	w, err := newWorld(cfg, sc, snapshotToLoad, logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	logger.Printf("world=%s run=%s step=%d rate=%dHz", w.ID(), cfg.RunID, w.CurrentStep(), w.StepRateHz())

	idx, err := openRuntimeIndex(*dataDir, id, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertRun(id, cfg.RunID, tune); err != nil {
			logger.Printf("index backend: upsert run: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	stepLog := persistlog.NewStepLogger(worldDir)
	defer stepLog.Close()
	hub := observer.NewHub()

	loggers := multiStepLogger{stepLog, hub}
	if idx != nil {
		loggers = append(loggers, idx)
	}
	w.SetStepLogger(loggers)

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Step))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				// Replay from this snapshot needs the steps before it on disk.
				if err := stepLog.Sync(); err != nil {
					logger.Printf("step log sync: %v", err)
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
				if _, ok, err := archive.ArchiveSnapshot(worldDir, path, snap, *archiveEvery); err != nil {
					logger.Printf("archive snapshot: %v", err)
				} else if ok {
					logger.Printf("archived snapshot step=%d", snap.Header.Step)
				}
				if _, err := archive.PruneSnapshots(worldDir, *keepSnapshots); err != nil {
					logger.Printf("prune snapshots: %v", err)
				}
			}
		}
	}()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	rt := &serverRuntime{
		world:      w,
		hub:        hub,
		idx:        idx,
		logger:     logger,
		adminHTTP:  envBool("COLONY_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
		pprofHTTP:  envBool("COLONY_ENABLE_PPROF_HTTP", false),
		observerWS: envBool("COLONY_ENABLE_OBSERVER_WS", true),
	}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           rt.mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// newWorld builds the colony from the scenario, or from snapPath when set.
func newWorld(cfg world.WorldConfig, sc scenario.Scenario, snapPath string, logger *log.Logger) (*world.World, error) {
	if snapPath == "" {
		layout, err := sc.Layout()
		if err != nil {
			return nil, err
		}
		return world.New(cfg, layout, logger)
	}

	snap, err := snapshot.ReadSnapshot(snapPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if snap.Header.WorldID != "" && snap.Header.WorldID != cfg.ID {
		return nil, fmt.Errorf("snapshot world id mismatch: flag=%s snap=%s", cfg.ID, snap.Header.WorldID)
	}
	w, err := world.New(cfg, world.Layout{}, logger)
	if err != nil {
		return nil, err
	}
	if err := w.ImportSnapshot(snap); err != nil {
		return nil, fmt.Errorf("import snapshot: %w", err)
	}
	logger.Printf("resumed from snapshot=%s step=%d", filepath.Base(snapPath), snap.Header.Step)
	return w, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestStep uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		step, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || step > bestStep {
			bestStep = step
			best = filepath.Join(dir, name)
		}
	}
	return best
}

// multiStepLogger fans a step out to every sink. A failing sink does not
// stop the others.
type multiStepLogger []world.StepLogger

func (m multiStepLogger) WriteStep(entry world.StepLogEntry) error {
	for _, l := range m {
		if l != nil {
			_ = l.WriteStep(entry)
		}
	}
	return nil
}
