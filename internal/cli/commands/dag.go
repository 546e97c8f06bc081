package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gridsight-labs/gridsight/internal/cli/output"
)

// NewDAGCommand creates the dag command.
func NewDAGCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dag",
		Short: "Show the metric dependency graph",
		Long: `Display the dependency graph between metrics and columns: the
evaluation order, each metric's direct dependencies, and the depth
levels (level 0 metrics depend only on columns).`,
		Example: `  # Show the graph
  gridsight dag

  # As JSON
  gridsight dag --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDAG(cmd)
		},
	}
	return cmd
}

type dagOutput struct {
	Order        []string            `json:"order"`
	Dependencies map[string][]string `json:"dependencies"`
	Levels       [][]string          `json:"levels"`
}

func runDAG(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	plan, err := cmdCtx.Engine.Plan()
	if err != nil {
		return err
	}

	levels, err := plan.Graph.Levels()
	if err != nil {
		return err
	}

	deps := make(map[string][]string, len(plan.Order))
	for _, id := range plan.Order {
		deps[id] = plan.Graph.Dependencies(id)
	}

	r := cmdCtx.Renderer
	if r.Mode() == output.ModeJSON {
		return r.JSON(dagOutput{Order: plan.Order, Dependencies: deps, Levels: levels})
	}

	r.Println(r.Styles().Header.Render("Evaluation order"))
	for i, id := range plan.Order {
		line := fmt.Sprintf("%2d. %s", i+1, id)
		if d := deps[id]; len(d) > 0 {
			line += r.Styles().Muted.Render(" <- " + strings.Join(d, ", "))
		}
		r.Println(line)
	}

	r.Println("")
	r.Println(r.Styles().Header.Render("Depth levels"))
	for depth, ids := range levels {
		r.Printf("level %d: %s\n", depth, strings.Join(ids, ", "))
	}
	return nil
}
