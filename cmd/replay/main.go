package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	persistlog "colonysim.ai/internal/persistence/log"
	"colonysim.ai/internal/persistence/snapshot"
	"colonysim.ai/internal/sim/scenario"
	"colonysim.ai/internal/sim/tuning"
	"colonysim.ai/internal/sim/world"
)

func main() {
	var (
		worldDir     = flag.String("world_dir", "", "world data dir containing steps/steps-*.jsonl.zst")
		snapPath     = flag.String("snapshot", "", "path to .snap.zst to start from (optional)")
		scenarioPath = flag.String("scenario", "./configs/scenarios/two-rooms.yaml", "scenario used when no snapshot is given")
		tuningPath   = flag.String("tuning", "./configs/tuning.yaml", "tuning used when no snapshot is given")
		fromStep     = flag.Uint64("from_step", 0, "start verifying from step (inclusive, optional)")
		toStep       = flag.Uint64("to_step", 0, "stop at step (inclusive, optional)")
	)
	flag.Parse()

	var (
		w   *world.World
		err error
	)
	if strings.TrimSpace(*snapPath) != "" {
		var snap snapshot.SnapshotV1
		snap, err = snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot v%d world=%s run=%s step=%d structures=%d haulers=%d moved_total=%d\n",
			snap.Header.Version, snap.Header.WorldID, snap.Header.RunID, snap.Header.Step,
			len(snap.Structures), len(snap.Haulers), snap.Counters.MovedTotal)
		if *worldDir == "" {
			return
		}
		w, err = fromSnapshot(snap)
	} else {
		if *worldDir == "" {
			fmt.Fprintln(os.Stderr, "missing -world_dir")
			os.Exit(2)
		}
		w, err = fromScenario(*scenarioPath, *tuningPath)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}

	start := w.CurrentStep()
	res, err := replay(w, *worldDir, *fromStep, *toStep)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d steps (from step=%d, last=%d, skipped=%d)\n", res.Checked, start, res.Last, res.Skipped)
}

func fromSnapshot(snap snapshot.SnapshotV1) (*world.World, error) {
	w, err := world.New(world.WorldConfig{ID: snap.Header.WorldID, RunID: snap.Header.RunID}, world.Layout{}, nil)
	if err != nil {
		return nil, err
	}
	if err := w.ImportSnapshot(snap); err != nil {
		return nil, fmt.Errorf("import snapshot: %w", err)
	}
	return w, nil
}

func fromScenario(scenarioPath, tuningPath string) (*world.World, error) {
	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		return nil, err
	}
	tune, err := tuning.Load(tuningPath)
	if err != nil {
		return nil, err
	}
	layout, err := sc.Layout()
	if err != nil {
		return nil, err
	}
	return world.New(sc.Config(world.ConfigFromTuning(sc.WorldID, tune)), layout, nil)
}

type result struct {
	Checked uint64
	Skipped uint64
	Last    uint64
}

// replay steps w once per logged entry and compares digests. Entries below
// the world's current step are skipped: a resumed run logs again the steps
// after its snapshot.
func replay(w *world.World, worldDir string, verifyFrom, toStep uint64) (result, error) {
	var res result
	stepped := false
	err := persistlog.ReadSteps(worldDir, func(e world.StepLogEntry) error {
		if toStep != 0 && e.Step > toStep {
			return io.EOF
		}
		cur := w.CurrentStep()
		if e.Step < cur {
			res.Skipped++
			return nil
		}
		if e.Step != cur {
			return fmt.Errorf("step gap: want=%d got=%d", cur, e.Step)
		}

		step, digest := w.StepOnce()
		if step != e.Step {
			return fmt.Errorf("internal step mismatch: stepped=%d entry=%d", step, e.Step)
		}
		stepped = true
		res.Last = step
		if step >= verifyFrom {
			res.Checked++
			if digest != e.Digest {
				return fmt.Errorf("digest mismatch at step %d: got=%s want=%s", step, digest, e.Digest)
			}
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	if !stepped {
		return res, errors.New("no step entries to replay")
	}
	return res, nil
}
