package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"colonysim.ai/internal/persistence/indexdb"
)

type rootOptions struct {
	DataDir string
	WorldID string
	DBPath  string
	Format  string
	URL     string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "colony-admin",
		Short: "Inspect colony runtime data and a running server",
		Long: `Inspect a colony's step index, step log and snapshots under the data
directory, or query a running server's local admin endpoints.

Examples:
  colony-admin worlds
  colony-admin steps --world colony-1 --from 100
  colony-admin moves h1 --world colony-1
  colony-admin state --url http://127.0.0.1:8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.DataDir, "data", "./data", "runtime data directory")
	pf.StringVar(&opts.WorldID, "world", "", "world id")
	pf.StringVar(&opts.DBPath, "db", "", "sqlite index path (default: <data>/worlds/<world>/index/colony.sqlite)")
	pf.StringVar(&opts.Format, "format", "table", "output format: table or json")
	pf.StringVar(&opts.URL, "url", "http://127.0.0.1:8080", "server base url")

	root.AddCommand(
		newWorldsCommand(opts),
		newRunCommand(opts),
		newStepsCommand(opts),
		newRoomsCommand(opts),
		newMovesCommand(opts),
		newSnapshotsCommand(opts),
		newLogCommand(opts),
		newStateCommand(opts),
		newSnapshotCommand(opts),
	)
	return root
}

func newWorldsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worlds",
		Short: "List worlds in the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := os.ReadDir(filepath.Join(opts.DataDir, "worlds"))
			if err != nil {
				return err
			}
			var names []string
			for _, e := range entries {
				if e.IsDir() {
					names = append(names, e.Name())
				}
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), names)
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func (o *rootOptions) worldDir() (string, error) {
	if strings.TrimSpace(o.WorldID) == "" {
		return "", fmt.Errorf("missing --world")
	}
	return filepath.Join(o.DataDir, "worlds", o.WorldID), nil
}

func (o *rootOptions) openIndex() (*indexdb.Reader, error) {
	path := strings.TrimSpace(o.DBPath)
	if path == "" {
		if strings.TrimSpace(o.WorldID) == "" {
			return nil, fmt.Errorf("missing --world or --db")
		}
		path = indexdb.Path(o.DataDir, o.WorldID)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	return indexdb.OpenReader(path)
}

// render writes rows as a table, or v as JSON when --format=json.
func (o *rootOptions) render(out io.Writer, title string, header []string, rows [][]string, v any) error {
	if o.Format == "json" {
		return writeJSON(out, v)
	}
	if title != "" {
		color.New(color.FgCyan, color.Bold).Fprintln(out, title)
	}
	if len(rows) == 0 {
		color.New(color.FgYellow).Fprintln(out, "no rows")
		return nil
	}
	table := tablewriter.NewTable(out, tablewriter.WithHeader(header))
	for _, r := range rows {
		if err := table.Append(r); err != nil {
			return err
		}
	}
	return table.Render()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
