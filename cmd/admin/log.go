package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	persistlog "colonysim.ai/internal/persistence/log"
	"colonysim.ai/internal/sim/world"
)

type logRow struct {
	Step            uint64 `json:"step"`
	RunID           string `json:"run_id"`
	Moves           int    `json:"moves"`
	Moved           int    `json:"moved"`
	GeneratorErrors int    `json:"generator_errors"`
	Digest          string `json:"digest"`
}

func newLogCommand(opts *rootOptions) *cobra.Command {
	var from, to uint64
	var limit int
	var actor string
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Read the compressed step log directly",
		Long: `Read steps/steps-*.jsonl.zst without the index. With --actor, lists the
individual moves that structure or hauler took part in instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.worldDir()
			if err != nil {
				return err
			}

			var rows [][]string
			var steps []logRow
			var moves []world.Move
			err = persistlog.ReadSteps(dir, func(e world.StepLogEntry) error {
				if e.Step < from {
					return nil
				}
				if (to != 0 && e.Step > to) || (limit > 0 && len(rows) >= limit) {
					return io.EOF
				}
				if actor != "" {
					for _, m := range e.Moves {
						if m.Actor != actor && m.Target != actor {
							continue
						}
						moves = append(moves, m)
						rows = append(rows, []string{u64(e.Step), m.Kind, m.Actor, m.Target, string(m.Room), string(m.Resource), strconv.Itoa(m.Amount)})
					}
					return nil
				}
				r := logRow{Step: e.Step, RunID: e.RunID, Moves: len(e.Moves), GeneratorErrors: e.GeneratorErrors, Digest: e.Digest}
				for _, m := range e.Moves {
					if m.Kind != world.MoveDeposit {
						r.Moved += m.Amount
					}
				}
				steps = append(steps, r)
				rows = append(rows, []string{u64(r.Step), r.RunID, strconv.Itoa(r.Moves), strconv.Itoa(r.Moved), strconv.Itoa(r.GeneratorErrors), short(r.Digest)})
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if actor != "" {
				return opts.render(out, fmt.Sprintf("log moves for %s", actor),
					[]string{"Step", "Kind", "Actor", "Target", "Room", "Resource", "Amount"}, rows, moves)
			}
			return opts.render(out, fmt.Sprintf("log steps from %d", from),
				[]string{"Step", "Run", "Moves", "Moved", "Gen Errors", "Digest"}, rows, steps)
		},
	}
	cmd.Flags().Uint64Var(&from, "from", 0, "first step")
	cmd.Flags().Uint64Var(&to, "to", 0, "last step (0: no limit)")
	cmd.Flags().IntVar(&limit, "limit", 100, "row limit (0: no limit)")
	cmd.Flags().StringVar(&actor, "actor", "", "only moves involving this structure or hauler")
	return cmd
}
