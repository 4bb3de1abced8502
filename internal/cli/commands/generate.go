package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/mapsql/internal/cli/output"
	"github.com/leapstack-labs/mapsql/internal/engine"
	"github.com/spf13/cobra"
)

// GenerateOptions holds options for the generate command.
type GenerateOptions struct {
	FromJSON []string
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate [mapping...]",
		Short: "Generate dbt artifacts from mapping files",
		Long: `Compile mapping workbooks (.xlsx or .csv) into dbt models, macros,
job descriptors and schedule descriptors.

With several mappings the batch is ordered by data dependencies: a mapping
whose target is read by another through ref() is generated first.
Interchange documents written by an earlier run can be fed back with
--from-json.`,
		Example: `  # Generate the default artifacts for one mapping
  mapsql generate mappings/STG_ORDERS.xlsx

  # Include merge and insert macros
  mapsql generate mappings/*.xlsx --artifacts model,merge,insert,job

  # Regenerate from an interchange document
  mapsql generate --from-json config/STG_ORDERS.json

  # Point key resolution at the target DDL
  mapsql generate mappings/F_ORDERS.xlsx --ddl ddl/F_ORDERS.sql`,
		Aliases: []string{"gen"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, append(args, opts.FromJSON...))
		},
	}

	cmd.Flags().StringSliceVar(&opts.FromJSON, "from-json", nil, "Interchange documents to generate from")
	cmd.Flags().StringSlice("artifacts", nil, "Artifacts to generate (config,model,sources,merge,insert,job,schedule)")
	cmd.Flags().StringSlice("ddl", nil, "DDL files searched for the target table")
	cmd.Flags().String("insert-mode", "", "Merge/insert output (macro|sql)")

	_ = cmd.RegisterFlagCompletionFunc("insert-mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"macro", "sql"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runGenerate(cmd *cobra.Command, inputs []string) error {
	if len(inputs) == 0 {
		return errors.New("no mapping files given")
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	ctx := cmd.Context()

	var (
		results []*engine.Result
		failed  *engine.Result
		genErr  error
	)
	if len(inputs) == 1 {
		res, err := eng.Generate(ctx, inputs[0])
		switch {
		case err != nil:
			failed = res
		case res != nil:
			results = append(results, res)
		}
		genErr = err
	} else {
		results, genErr = eng.GenerateAll(ctx, inputs)
	}

	out := buildGenerateOutput(results, failed, genErr)
	if err := renderGenerate(cmdCtx.Renderer, out); err != nil {
		return err
	}
	return genErr
}

// buildGenerateOutput summarizes completed results and, when a generation
// got far enough to be logged, the failed one.
func buildGenerateOutput(results []*engine.Result, failed *engine.Result, genErr error) output.GenerateOutput {
	out := output.GenerateOutput{Results: make([]output.GenerateResult, 0, len(results)+1)}
	for _, res := range results {
		r := toGenerateResult(res)
		out.Results = append(out.Results, r)
		out.Summary.Files += len(r.Files)
	}
	if genErr != nil {
		out.Summary.Failed++
		if failed != nil {
			r := toGenerateResult(failed)
			r.Status = "failed"
			r.Error = genErr.Error()
			out.Results = append(out.Results, r)
			out.Summary.Files += len(r.Files)
		}
	}
	out.Summary.Mappings = len(out.Results)
	return out
}

func toGenerateResult(res *engine.Result) output.GenerateResult {
	r := output.GenerateResult{
		Mapping:    res.Path,
		Target:     res.Spec.Name(),
		RunID:      res.RunID,
		Status:     "completed",
		UniqueKey:  res.Spec.UniqueKey,
		KeySource:  string(res.Keys.Step),
		TargetDDL:  res.TargetDDL,
		Files:      make([]output.GeneratedFile, 0, len(res.Files)),
		DurationMS: res.Duration.Milliseconds(),
	}
	for _, f := range res.Files {
		r.Files = append(r.Files, output.GeneratedFile{Kind: string(f.Kind), Path: f.Path})
	}
	return r
}

func renderGenerate(r *output.Renderer, out output.GenerateOutput) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		generateMarkdown(r, out)
	default:
		generateText(r, out)
	}
	return nil
}

func generateText(r *output.Renderer, out output.GenerateOutput) {
	for _, res := range out.Results {
		detail := fmt.Sprintf("(%d files)", len(res.Files))
		if len(res.UniqueKey) > 0 {
			detail = fmt.Sprintf("(%d files, unique key %s via %s)", len(res.Files), strings.Join(res.UniqueKey, ", "), res.KeySource)
		}
		if res.Status == "failed" {
			detail = res.Error
		}
		r.StatusLine(res.Target, res.Status, detail)
		for _, f := range res.Files {
			r.Printf("      %s\n", r.Styles().Muted.Render(f.Kind+": "+f.Path))
		}
	}
	if out.Summary.Failed == 0 && out.Summary.Mappings > 0 {
		r.Println("")
		r.Success(fmt.Sprintf("Generated %d files for %d mappings", out.Summary.Files, out.Summary.Mappings))
	}
}

func generateMarkdown(r *output.Renderer, out output.GenerateOutput) {
	r.Println(output.FormatHeader(1, "Generated Artifacts"))
	r.Println("")
	for _, res := range out.Results {
		r.Println(output.FormatHeader(2, res.Target))
		r.Println(output.FormatKeyValue("Status", res.Status))
		if res.Mapping != "" {
			r.Println(output.FormatKeyValue("Mapping", res.Mapping))
		}
		if len(res.UniqueKey) > 0 {
			r.Println(output.FormatKeyValue("Unique Key", strings.Join(res.UniqueKey, ", ")+" ("+res.KeySource+")"))
		}
		if res.TargetDDL != "" {
			r.Println(output.FormatKeyValue("Target DDL", res.TargetDDL))
		}
		if res.Error != "" {
			r.Println(output.FormatKeyValue("Error", res.Error))
		}
		r.Println("")
		if len(res.Files) > 0 {
			rows := make([][]string, 0, len(res.Files))
			for _, f := range res.Files {
				rows = append(rows, []string{f.Kind, f.Path})
			}
			r.Table([]string{"Kind", "Path"}, rows)
			r.Println("")
		}
	}
	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Mappings", fmt.Sprintf("%d", out.Summary.Mappings)))
	r.Println(output.FormatKeyValue("Files", fmt.Sprintf("%d", out.Summary.Files)))
	r.Println(output.FormatKeyValue("Failed", fmt.Sprintf("%d", out.Summary.Failed)))
}
