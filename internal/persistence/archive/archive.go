package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"colonysim.ai/internal/persistence/snapshot"
)

type Meta struct {
	Step       uint64 `json:"step"`
	WorldID    string `json:"world_id"`
	RunID      string `json:"run_id,omitempty"`
	Snapshot   string `json:"snapshot"`
	CreatedAt  string `json:"created_at"`
	Structures int    `json:"structures"`
	Haulers    int    `json:"haulers"`
	MovedTotal uint64 `json:"moved_total"`
}

// ArchiveSnapshot copies a snapshot taken at a multiple of every into
// `worldDir/archives/step_<N>/`, next to a meta.json. Archived copies are
// never pruned.
func ArchiveSnapshot(worldDir, snapshotPath string, snap snapshot.SnapshotV1, every uint64) (archivedPath string, archived bool, err error) {
	step := snap.Header.Step
	if every == 0 || step == 0 || step%every != 0 {
		return "", false, nil
	}

	archiveDir := filepath.Join(worldDir, "archives", fmt.Sprintf("step_%012d", step))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := Meta{
		Step:       step,
		WorldID:    snap.Header.WorldID,
		RunID:      snap.Header.RunID,
		Snapshot:   filepath.Base(dst),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		Structures: len(snap.Structures),
		Haulers:    len(snap.Haulers),
		MovedTotal: snap.Counters.MovedTotal,
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}
	return dst, true, nil
}

// PruneSnapshots removes all but the newest keep snapshots under
// `worldDir/snapshots`. keep <= 0 disables pruning.
func PruneSnapshots(worldDir string, keep int) (removed []string, err error) {
	if keep <= 0 {
		return nil, nil
	}
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	type snapFile struct {
		step uint64
		name string
	}
	var files []snapFile
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		step, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		files = append(files, snapFile{step: step, name: name})
	}
	if len(files) <= keep {
		return nil, nil
	}
	sort.Slice(files, func(i, j int) bool { return files[i].step > files[j].step })

	for _, f := range files[keep:] {
		path := filepath.Join(dir, f.name)
		if err := os.Remove(path); err != nil {
			return removed, err
		}
		removed = append(removed, path)
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
