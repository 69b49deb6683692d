package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"colonysim.ai/internal/persistence/indexdb"
	"colonysim.ai/internal/persistence/snapshot"
	"colonysim.ai/internal/sim/tuning"
	"colonysim.ai/internal/sim/world"
)

type runtimeIndex interface {
	world.StepLogger
	Close() error
	UpsertRun(worldID, runID string, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	Stats() indexdb.IndexStats
}

func openRuntimeIndex(dataDir, worldID string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("COLONY_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(indexdb.Path(dataDir, worldID))
	default:
		return nil, fmt.Errorf("unsupported COLONY_INDEX_BACKEND: %s", backend)
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
