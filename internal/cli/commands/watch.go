package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/mapsql/internal/cli/output"
	"github.com/leapstack-labs/mapsql/internal/engine"
	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <mapping...>",
		Short: "Regenerate artifacts when mappings or DDL files change",
		Long: `Generate every mapping once, then watch the files and regenerate on change.

A changed mapping regenerates itself and every mapping downstream of it.
A change to a configured DDL file regenerates everything. Stop with Ctrl+C.`,
		Example: `  mapsql watch mappings/*.xlsx --ddl ddl/F_ORDERS.sql`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args)
		},
	}
	cmd.Flags().StringSlice("artifacts", nil, "Artifacts to generate (config,model,sources,merge,insert,job,schedule)")
	cmd.Flags().StringSlice("ddl", nil, "DDL files searched for the target table and watched")
	return cmd
}

func runWatch(cmd *cobra.Command, paths []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := cmdCtx.Renderer
	if r.EffectiveMode() != output.ModeJSON {
		r.Muted(fmt.Sprintf("Watching %d mappings, press Ctrl+C to stop", len(paths)))
	}
	return cmdCtx.Engine.Watch(ctx, paths, watchReporter(r))
}

// watchReporter prints one line (or one JSON object) per regeneration.
func watchReporter(r *output.Renderer) engine.WatchFunc {
	return func(res *engine.Result, err error) {
		var gen output.GenerateResult
		switch {
		case res != nil:
			gen = toGenerateResult(res)
			if err != nil {
				gen.Status = "failed"
				gen.Error = err.Error()
			}
		case err == nil:
			return
		default:
			r.Error(err.Error())
			return
		}

		if r.EffectiveMode() == output.ModeJSON {
			_ = r.JSON(gen)
			return
		}
		detail := fmt.Sprintf("(%d files)", len(gen.Files))
		if gen.Error != "" {
			detail = gen.Error
		}
		r.StatusLine(gen.Target, gen.Status, detail)
	}
}
