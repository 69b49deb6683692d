package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"colonysim.ai/internal/persistence/indexdb"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Show which run and tuning wrote the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.openIndex()
			if err != nil {
				return err
			}
			defer r.Close()

			meta := map[string]string{}
			var rows [][]string
			for _, k := range []string{"schema_version", "world_id", "run_id", "started_at", "tuning_digest"} {
				v, err := r.Meta(cmd.Context(), k)
				if err != nil {
					return err
				}
				meta[k] = v
				rows = append(rows, []string{k, v})
			}
			return opts.render(cmd.OutOrStdout(), "run", []string{"Key", "Value"}, rows, meta)
		},
	}
}

func newStepsCommand(opts *rootOptions) *cobra.Command {
	var from uint64
	var limit int
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "List indexed steps, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.openIndex()
			if err != nil {
				return err
			}
			defer r.Close()

			steps, err := r.ListSteps(cmd.Context(), from, limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(steps))
			for _, s := range steps {
				rows = append(rows, []string{
					u64(s.Step), strconv.Itoa(s.Moves), strconv.Itoa(s.Moved),
					strconv.Itoa(s.GeneratorErrors), s.BacklogJSON, short(s.Digest),
				})
			}
			return opts.render(cmd.OutOrStdout(), fmt.Sprintf("steps from %d", from),
				[]string{"Step", "Moves", "Moved", "Gen Errors", "Backlog", "Digest"}, rows, steps)
		},
	}
	cmd.Flags().Uint64Var(&from, "from", 0, "first step")
	cmd.Flags().IntVar(&limit, "limit", 20, "result limit")
	return cmd
}

func newRoomsCommand(opts *rootOptions) *cobra.Command {
	var step uint64
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Show per-room queue totals at a step (default: latest)",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.openIndex()
			if err != nil {
				return err
			}
			defer r.Close()

			if !cmd.Flags().Changed("step") {
				latest, ok, err := r.LatestStep(cmd.Context())
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no steps indexed")
				}
				step = latest
			}
			rooms, err := r.RoomStatsAt(cmd.Context(), step)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(rooms))
			for _, rr := range rooms {
				rows = append(rows, []string{
					rr.Room, strconv.Itoa(rr.Nodes),
					strconv.Itoa(rr.TotalWithdrawal), strconv.Itoa(rr.TotalActiveWithdrawal),
					strconv.Itoa(rr.TotalDeposit), strconv.Itoa(rr.TotalActiveDeposit),
				})
			}
			return opts.render(cmd.OutOrStdout(), fmt.Sprintf("rooms at step %d", step),
				[]string{"Room", "Nodes", "Withdraw", "Active Withdraw", "Deposit", "Active Deposit"}, rows, rooms)
		},
	}
	cmd.Flags().Uint64Var(&step, "step", 0, "step to show")
	return cmd
}

func newMovesCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "moves <id>",
		Short: "Show the latest moves a structure or hauler took part in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.openIndex()
			if err != nil {
				return err
			}
			defer r.Close()

			moves, err := r.MovesFor(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(moves))
			for _, m := range moves {
				rows = append(rows, []string{u64(m.Step), m.Kind, m.Actor, m.Target, m.Room, m.Resource, strconv.Itoa(m.Amount)})
			}
			return opts.render(cmd.OutOrStdout(), "moves for "+args[0],
				[]string{"Step", "Kind", "Actor", "Target", "Room", "Resource", "Amount"}, rows, moves)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "result limit")
	return cmd
}

func newSnapshotsCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List recorded snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.openIndex()
			if err != nil {
				return err
			}
			defer r.Close()

			snaps, err := r.Snapshots(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), "snapshots",
				[]string{"Step", "Run", "Structures", "Haulers", "Moved Total", "Path"}, snapshotRows(snaps), snaps)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "result limit")
	return cmd
}

func snapshotRows(snaps []indexdb.SnapshotRow) [][]string {
	rows := make([][]string, 0, len(snaps))
	for _, s := range snaps {
		rows = append(rows, []string{
			u64(s.Step), s.RunID, strconv.Itoa(s.Structures), strconv.Itoa(s.Haulers), u64(s.MovedTotal), s.Path,
		})
	}
	return rows
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
