package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	RunID   string `json:"run_id,omitempty"`
	Step    uint64 `json:"step"`
}

// SnapshotV1 is the full colony state after Header.Step has been applied.
type SnapshotV1 struct {
	Header Header `json:"header"`

	StepRateHz int      `json:"step_rate_hz"`
	Config     ConfigV1 `json:"config"`

	Structures []StructureV1 `json:"structures"`
	Haulers    []HaulerV1    `json:"haulers"`

	Counters CountersV1 `json:"counters"`
}

// ConfigV1 carries the operational parameters that change step results.
type ConfigV1 struct {
	HaulerSecondaryPriorities string `json:"hauler_secondary_priorities,omitempty"`
	HaulerSecondaryRange      int    `json:"hauler_secondary_range,omitempty"`
	LinkMinTransfer           int    `json:"link_min_transfer,omitempty"`
	LinkLossPermille          int    `json:"link_loss_permille,omitempty"`
	TerminalMinEnergy         int    `json:"terminal_min_energy,omitempty"`
	TerminalSendLimit         int    `json:"terminal_send_limit,omitempty"`
	TerminalCooldownSteps     int    `json:"terminal_cooldown_steps,omitempty"`
	SnapshotEverySteps        int    `json:"snapshot_every_steps,omitempty"`
}

type StructureV1 struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	Role     string         `json:"role,omitempty"`
	Room     string         `json:"room"`
	X        int            `json:"x"`
	Y        int            `json:"y"`
	Capacity int            `json:"capacity"`
	Store    map[string]int `json:"store,omitempty"`
	Want     map[string]int `json:"want,omitempty"`
	Produce  int            `json:"produce,omitempty"`
	Consume  int            `json:"consume,omitempty"`
	Cooldown int            `json:"cooldown,omitempty"`
	Broken   bool           `json:"broken,omitempty"`
}

type HaulerV1 struct {
	ID       string         `json:"id"`
	Room     string         `json:"room"`
	X        int            `json:"x"`
	Y        int            `json:"y"`
	Capacity int            `json:"capacity"`
	Cargo    map[string]int `json:"cargo,omitempty"`
}

type CountersV1 struct {
	MovedTotal uint64 `json:"moved_total"`
	Moves      uint64 `json:"moves"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func openReader(path string) (*os.File, *zstd.Decoder, *bufio.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, nil, err
	}
	return f, dec, bufio.NewReaderSize(dec, 256*1024), nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, dec, br, err := openReader(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()
	defer dec.Close()

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("snapshot header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("snapshot version %d: unsupported", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, dec, br, err := openReader(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	defer dec.Close()

	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	return h, nil
}
