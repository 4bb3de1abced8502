package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/mapsql/internal/cli/output"
	"github.com/leapstack-labs/mapsql/internal/dag"
	"github.com/spf13/cobra"
)

// GraphQuerier provides read-only access to DAG structure.
type GraphQuerier interface {
	Node(id string) (*dag.Node, bool)
	Parents(id string) []string
	Children(id string) []string
	Len() int
	EdgeCount() int
}

// NewDAGCommand creates the dag command.
func NewDAGCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dag <mapping...>",
		Short: "Show the dependency graph of a batch of mappings",
		Long: `Display the dependency graph (DAG) of a batch of mappings.

A mapping depends on another when it reads that mapping's target through a
ref() source or a ref() join. Mappings are grouped by level: every mapping
in a level only depends on earlier levels.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the DAG
  mapsql dag mappings/*.xlsx

  # Output as JSON
  mapsql dag mappings/*.xlsx --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDAG(cmd, args)
		},
	}

	return cmd
}

func runDAG(cmd *cobra.Command, paths []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer

	graph, err := cmdCtx.Engine.LoadGraph(paths)
	if err != nil {
		return fmt.Errorf("failed to load mappings: %w", err)
	}

	// Get execution levels
	levels, err := graph.Levels()
	if err != nil {
		return fmt.Errorf("failed to get execution levels: %w", err)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return dagJSON(r, graph, levels)
	case output.ModeMarkdown:
		return dagMarkdown(r, graph, levels)
	default:
		return dagText(r, graph, levels)
	}
}

// dagText outputs DAG in styled text format.
func dagText(r *output.Renderer, graph GraphQuerier, levels [][]string) error {
	styles := r.Styles()

	r.Header(1, "Dependency Graph")

	for i, level := range levels {
		r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", i)))
		for _, model := range level {
			deps := graph.Parents(model)
			children := graph.Children(model)

			r.Printf("  %s %s\n", styles.ModelPath.Render(model), styles.Muted.Render(nodePath(graph, model)))
			if len(deps) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("depends on:"), strings.Join(deps, ", "))
			}
			if len(children) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("used by:"), strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d models, %d dependencies", graph.Len(), graph.EdgeCount())))

	return nil
}

// dagMarkdown outputs DAG in markdown format.
func dagMarkdown(r *output.Renderer, graph GraphQuerier, levels [][]string) error {
	r.Println(output.FormatHeader(1, "Dependency Graph"))
	r.Println("")

	for i, level := range levels {
		levelName := fmt.Sprintf("Level %d", i)
		if i == 0 {
			levelName = "Level 0 (Roots)"
		}
		r.Println(output.FormatHeader(2, levelName))

		for _, model := range level {
			deps := graph.Parents(model)
			children := graph.Children(model)

			r.Printf("- %s (%s)\n", model, nodePath(graph, model))
			if len(deps) > 0 {
				r.Printf("  - depends on: %s\n", strings.Join(deps, ", "))
			}
			if len(children) > 0 {
				r.Printf("  - used by: %s\n", strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Models", fmt.Sprintf("%d", graph.Len())))
	r.Println(output.FormatKeyValue("Total Dependencies", fmt.Sprintf("%d", graph.EdgeCount())))

	return nil
}

// dagJSON outputs DAG in JSON format.
func dagJSON(r *output.Renderer, graph GraphQuerier, levels [][]string) error {
	dagOutput := output.DAGOutput{
		Levels:      make([]output.DAGLevel, 0, len(levels)),
		TotalModels: graph.Len(),
		TotalEdges:  graph.EdgeCount(),
	}

	for i, level := range levels {
		dagLevel := output.DAGLevel{
			Level:  i,
			Models: make([]output.DAGNode, 0, len(level)),
		}

		for _, model := range level {
			dagLevel.Models = append(dagLevel.Models, output.DAGNode{
				Model:     model,
				Path:      nodePath(graph, model),
				DependsOn: nonNil(graph.Parents(model)),
				UsedBy:    nonNil(graph.Children(model)),
			})
		}

		dagOutput.Levels = append(dagOutput.Levels, dagLevel)
	}

	return r.JSON(dagOutput)
}

func nodePath(graph GraphQuerier, id string) string {
	if n, ok := graph.Node(id); ok {
		return n.Path
	}
	return ""
}
