package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gridsight-labs/gridsight/internal/cli/output"
	"github.com/gridsight-labs/gridsight/internal/engine"
	"github.com/gridsight-labs/gridsight/internal/hierarchy"
)

// NewEvalCommand creates the eval command.
func NewEvalCommand() *cobra.Command {
	var filterSpec string

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate all metrics at a drill-down position",
		Long: `Evaluate every metric over the dataset, optionally narrowed by a
hierarchy filter. Filters select one value per level from the top down;
selecting a shallow level discards any deeper selection. Metrics with
no data render as a dash.`,
		Example: `  # Evaluate over the whole dataset
  gridsight eval

  # Drill into one region
  gridsight eval --filter "L0=North"

  # Drill two levels deep
  gridsight eval --filter "L0=North,L1=N2"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEval(cmd, filterSpec)
		},
	}

	cmd.Flags().StringVarP(&filterSpec, "filter", "f", "", "Drill-down filter as level=value pairs, shallowest first")
	return cmd
}

// parseFilterSpec turns "L0=North,L1=N2" into a filter path, applying
// each selection through the drill-down rules so level order and level
// skipping are enforced.
func parseFilterSpec(levels []hierarchy.Level, spec string) (hierarchy.Path, error) {
	if spec == "" {
		return nil, nil
	}

	var path hierarchy.Path
	for _, pair := range strings.Split(spec, ",") {
		levelID, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("invalid filter %q: want level=value", pair)
		}
		next, err := hierarchy.SelectNode(levels, path, levelID, value, value)
		if err != nil {
			return nil, err
		}
		path = next
	}
	return path, nil
}

func runEval(cmd *cobra.Command, filterSpec string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	path, err := parseFilterSpec(eng.Levels(), filterSpec)
	if err != nil {
		return err
	}

	snap, err := eng.Snapshot(path)
	if err != nil {
		var invalid *engine.InvalidConfigError
		if errors.As(err, &invalid) {
			r := cmdCtx.Renderer
			rows := make([][]string, 0, len(invalid.Result.Errors))
			for _, e := range invalid.Result.Errors {
				rows = append(rows, []string{string(e.Kind), e.MetricID, e.Message})
			}
			r.Table([]string{"KIND", "METRIC", "DETAIL"}, rows)
		}
		return err
	}

	r := cmdCtx.Renderer
	if r.Mode() == output.ModeJSON {
		return r.JSON(snap)
	}

	if len(path) > 0 {
		var crumbs []string
		for _, entry := range path {
			crumbs = append(crumbs, fmt.Sprintf("%s=%s", entry.LevelID, entry.Value))
		}
		r.Println(r.Styles().Muted.Render("filter: " + strings.Join(crumbs, " > ")))
	}

	rows := make([][]string, 0, len(snap.Metrics))
	for _, mv := range snap.Metrics {
		formatted := mv.Formatted
		if mv.Color != "" {
			formatted = r.Styles().MetricColor(mv.Color).Render(formatted)
		}
		rows = append(rows, []string{mv.Name, formatted, mv.Color})
	}
	r.Table([]string{"METRIC", "VALUE", "COLOR"}, rows)

	if level, values, ok := eng.DrillOptions(path); ok && len(values) > 0 {
		r.Println(r.Styles().Muted.Render(
			fmt.Sprintf("drill into %s: %s", level.ID, strings.Join(values, ", "))))
	}
	return nil
}
