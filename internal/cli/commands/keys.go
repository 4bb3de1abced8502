package commands

import (
	"fmt"

	"github.com/leapstack-labs/mapsql/internal/cli/output"
	"github.com/leapstack-labs/mapsql/internal/keys"
	"github.com/spf13/cobra"
)

// NewKeysCommand creates the keys command.
func NewKeysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys <mapping>",
		Short: "Explain the unique key chosen for a mapping",
		Long: `Run unique key resolution for a mapping without writing any artifacts.

Every step of the resolution chain is listed with the keys it found and
whether it was accepted, from the target DDL down to the first-column
fallback.`,
		Example: `  mapsql keys mappings/F_ORDERS.xlsx
  mapsql keys mappings/F_ORDERS.xlsx --ddl ddl/F_ORDERS.sql`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeys(cmd, args[0])
		},
	}
	cmd.Flags().StringSlice("ddl", nil, "DDL files searched for the target table")
	return cmd
}

func runKeys(cmd *cobra.Command, path string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	spec, err := cmdCtx.Engine.LoadSpec(path)
	if err != nil {
		return err
	}
	_, res, ddlPath := cmdCtx.Engine.Resolve(spec)
	return renderKeys(cmdCtx.Renderer, buildKeysOutput(spec.Name(), res, ddlPath))
}

func buildKeysOutput(model string, res keys.Resolution, ddlPath string) output.KeysOutput {
	out := output.KeysOutput{
		Model:     model,
		UniqueKey: nonNil(res.Keys),
		Step:      string(res.Step),
		TargetDDL: ddlPath,
		Decisions: make([]output.KeyDecision, 0, len(res.Decisions)),
	}
	for _, d := range res.Decisions {
		out.Decisions = append(out.Decisions, output.KeyDecision{
			Step:     string(d.Step),
			Keys:     nonNil(d.Keys),
			Accepted: d.Accepted,
			Reason:   d.Reason,
		})
	}
	return out
}

func renderKeys(r *output.Renderer, out output.KeysOutput) error {
	mode := r.EffectiveMode()
	if mode == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, "Unique Key: "+out.Model)
	if mode == output.ModeMarkdown {
		r.Println(output.FormatKeyValue("Keys", listOrNone(out.UniqueKey)))
		r.Println(output.FormatKeyValue("Decided By", out.Step))
		if out.TargetDDL != "" {
			r.Println(output.FormatKeyValue("Target DDL", out.TargetDDL))
		}
		r.Println("")
	} else {
		r.Printf("%s %s %s\n", r.Styles().Bold.Render("keys:"), listOrNone(out.UniqueKey), r.Styles().Muted.Render("("+out.Step+")"))
		if out.TargetDDL != "" {
			r.Muted("target DDL: " + out.TargetDDL)
		}
	}

	rows := make([][]string, 0, len(out.Decisions))
	for i, d := range out.Decisions {
		verdict := "rejected"
		if d.Accepted {
			verdict = "accepted"
		}
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), d.Step, listOrNone(d.Keys), verdict, d.Reason})
	}
	r.Table([]string{"#", "Step", "Keys", "Result", "Reason"}, rows)
	return nil
}
