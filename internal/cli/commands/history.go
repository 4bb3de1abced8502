package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/mapsql/internal/cli/output"
	"github.com/leapstack-labs/mapsql/internal/state"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command and its subcommands.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently used mapping and DDL files",
		Long: `Show the most recently used mapping and DDL files, newest first.

Each list keeps the last ten distinct files. DDL files in the history are
searched for target tables during key resolution.`,
		Example: `  mapsql history
  mapsql history runs --limit 5
  mapsql history clear --kind ddl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryList(cmd)
		},
	}

	cmd.AddCommand(newHistoryClearCommand())
	cmd.AddCommand(newHistoryRunsCommand())
	cmd.AddCommand(newHistoryRunCommand())
	return cmd
}

func runHistoryList(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	store := cmdCtx.Engine.Store()
	mappings, err := store.ListHistory(state.HistoryMappingFiles)
	if err != nil {
		return err
	}
	ddls, err := store.ListHistory(state.HistoryDDLFiles)
	if err != nil {
		return err
	}
	out := output.HistoryOutput{MappingFiles: nonNil(mappings), DDLFiles: nonNil(ddls)}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	for _, section := range []struct {
		title string
		files []string
	}{
		{"Mapping Files", out.MappingFiles},
		{"DDL Files", out.DDLFiles},
	} {
		r.Header(2, section.title)
		if len(section.files) == 0 {
			r.Muted("(empty)")
		} else if r.EffectiveMode() == output.ModeMarkdown {
			r.Println(output.FormatList(section.files))
		} else {
			for i, f := range section.files {
				r.Printf("  %2d. %s\n", i+1, r.Styles().ModelPath.Render(f))
			}
		}
		r.Println("")
	}
	return nil
}

func newHistoryClearCommand() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear file history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kinds, err := historyKinds(kind)
			if err != nil {
				return err
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, k := range kinds {
				if err := cmdCtx.Engine.Store().ClearHistory(k); err != nil {
					return err
				}
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("Cleared %s history", kind))
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "all", "History to clear (mapping|ddl|all)")
	_ = cmd.RegisterFlagCompletionFunc("kind", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"mapping", "ddl", "all"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func historyKinds(kind string) ([]state.HistoryKind, error) {
	switch kind {
	case "mapping", "mappings":
		return []state.HistoryKind{state.HistoryMappingFiles}, nil
	case "ddl":
		return []state.HistoryKind{state.HistoryDDLFiles}, nil
	case "all", "":
		return []state.HistoryKind{state.HistoryMappingFiles, state.HistoryDDLFiles}, nil
	}
	return nil, fmt.Errorf("unknown history kind %q (want mapping, ddl or all)", kind)
}

func newHistoryRunsCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent generation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := cmdCtx.Engine.Store().ListRuns(limit)
			if err != nil {
				return err
			}
			out := output.RunsOutput{Runs: make([]output.RunInfo, 0, len(runs))}
			for _, run := range runs {
				out.Runs = append(out.Runs, toRunInfo(run, nil))
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(out)
			}
			r.Header(1, "Runs")
			if len(out.Runs) == 0 {
				r.Muted("No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(out.Runs))
			for _, run := range out.Runs {
				rows = append(rows, []string{
					run.ID,
					run.StartedAt.Local().Format(time.DateTime),
					run.Target,
					run.Status,
					run.Mapping,
				})
			}
			r.Table([]string{"ID", "Started", "Target", "Status", "Mapping"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

func newHistoryRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <id>",
		Short: "Show one generation run and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			store := cmdCtx.Engine.Store()
			run, err := store.GetRun(args[0])
			if err != nil {
				return err
			}
			arts, err := store.GetRunArtifacts(run.ID)
			if err != nil {
				return err
			}
			info := toRunInfo(run, arts)

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(info)
			}
			r.Header(1, "Run "+info.ID)
			r.Println(output.FormatKeyValue("Target", info.Target))
			r.Println(output.FormatKeyValue("Mapping", info.Mapping))
			r.Println(output.FormatKeyValue("Status", info.Status))
			r.Println(output.FormatKeyValue("Started", info.StartedAt.Local().Format(time.DateTime)))
			if info.Error != "" {
				r.Println(output.FormatKeyValue("Error", info.Error))
			}
			if len(info.Artifacts) > 0 {
				r.Println("")
				rows := make([][]string, 0, len(info.Artifacts))
				for _, a := range info.Artifacts {
					rows = append(rows, []string{a.Kind, a.Path})
				}
				r.Table([]string{"Kind", "Path"}, rows)
			}
			return nil
		},
	}
}

func toRunInfo(run *state.Run, arts []*state.RunArtifact) output.RunInfo {
	info := output.RunInfo{
		ID:          run.ID,
		Mapping:     run.MappingPath,
		Target:      run.Target,
		Status:      string(run.Status),
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Error:       run.Error,
	}
	for _, a := range arts {
		info.Artifacts = append(info.Artifacts, output.RunArtifact{Kind: a.Kind, Path: a.Path})
	}
	return info
}
