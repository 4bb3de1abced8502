package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/mapsql/internal/cli/output"
	"github.com/leapstack-labs/mapsql/internal/mapping"
	"github.com/spf13/cobra"
)

// TemplateOptions holds options for the template command.
type TemplateOptions struct {
	DDL   string
	Out   string
	Force bool
}

// NewTemplateCommand creates the template command.
func NewTemplateCommand() *cobra.Command {
	opts := &TemplateOptions{}

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Create a mapping workbook from a target DDL",
		Long: `Build a mapping workbook for the table defined in a DDL file.

The Mapping sheet lists every DDL column with audit columns pre-filled, five
blank LEFT join rows and WHERE/GROUP BY rows. A Config sheet carries the
default schedule.`,
		Example: `  mapsql template --ddl ddl/F_ORDERS.sql
  mapsql template --ddl ddl/F_ORDERS.sql --out mappings/F_ORDERS.xlsx --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTemplate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DDL, "ddl", "", "DDL file of the target table (required)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "Workbook path (default: <SCHEMA>_<TABLE>.xlsx)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite an existing workbook")
	_ = cmd.MarkFlagRequired("ddl")
	_ = cmd.MarkFlagFilename("ddl", "sql")
	_ = cmd.MarkFlagFilename("out", "xlsx")

	return cmd
}

func runTemplate(cmd *cobra.Command, opts *TemplateOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	schema, err := cmdCtx.Engine.ParseDDL(opts.DDL)
	if err != nil {
		return err
	}

	wb, err := mapping.BuildTemplate(schema, mapping.TemplateOptions{
		DefaultCron:        cmdCtx.Cfg.Schedule.DefaultCron,
		MergeUpdateExclude: cmdCtx.Cfg.Compiler.MergeUpdateExclude,
	})
	if err != nil {
		return err
	}

	out := opts.Out
	if out == "" {
		out = strings.ReplaceAll(schema.Name, ".", "_") + ".xlsx"
	}
	if _, err := os.Stat(out); err == nil && !opts.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", out)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", out, err)
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := wb.WriteXLSX(out); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	cmdCtx.Logger.Info("template written", slog.String("table", schema.Name), slog.String("path", out))

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"table": schema.Name, "path": out, "columns": len(schema.Columns)})
	}
	r.Success(fmt.Sprintf("Wrote %s mapping template to %s (%d columns)", schema.Name, out, len(schema.Columns)))
	return nil
}
