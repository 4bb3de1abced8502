package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/mapsql/internal/cli/output"
	"github.com/leapstack-labs/mapsql/pkg/core"
	"github.com/spf13/cobra"
)

// NewDDLCommand creates the ddl command.
func NewDDLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ddl <file.sql>",
		Short: "Parse a CREATE TABLE statement",
		Long: `Parse a target table DDL file and show its columns and key constraints.

The file is remembered in the DDL history, where later generations look for
the target table when no --ddl file is given.`,
		Example: `  mapsql ddl ddl/F_ORDERS.sql
  mapsql ddl ddl/F_ORDERS.sql -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDDL(cmd, args[0])
		},
	}
}

func runDDL(cmd *cobra.Command, path string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	schema, err := cmdCtx.Engine.ParseDDL(path)
	if err != nil {
		return err
	}
	return renderDDL(cmdCtx.Renderer, buildDDLOutput(path, schema))
}

func buildDDLOutput(path string, schema *core.TableSchema) output.DDLOutput {
	out := output.DDLOutput{
		File:        path,
		Table:       schema.Name,
		Columns:     make([]output.DDLColumn, 0, len(schema.Columns)),
		UniqueKeys:  nonNil(schema.Keys.UniqueKeys),
		PrimaryKeys: nonNil(schema.Keys.PrimaryKeys),
	}
	for _, c := range schema.Columns {
		out.Columns = append(out.Columns, output.DDLColumn{Name: c.Name, Type: c.Type})
	}
	return out
}

func renderDDL(r *output.Renderer, out output.DDLOutput) error {
	mode := r.EffectiveMode()
	if mode == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, out.Table)
	if mode == output.ModeMarkdown {
		r.Println(output.FormatKeyValue("File", out.File))
		r.Println(output.FormatKeyValue("Unique Keys", listOrNone(out.UniqueKeys)))
		r.Println(output.FormatKeyValue("Primary Keys", listOrNone(out.PrimaryKeys)))
		r.Println("")
	} else {
		r.Muted(out.File)
		r.Printf("%s %s\n", r.Styles().Bold.Render("unique keys:"), listOrNone(out.UniqueKeys))
		r.Printf("%s %s\n", r.Styles().Bold.Render("primary keys:"), listOrNone(out.PrimaryKeys))
	}

	rows := make([][]string, 0, len(out.Columns))
	for i, c := range out.Columns {
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), c.Name, c.Type})
	}
	r.Table([]string{"#", "Column", "Type"}, rows)
	return nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
