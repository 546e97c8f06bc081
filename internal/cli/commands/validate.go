package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridsight-labs/gridsight/internal/cli/output"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the dashboard configuration",
		Long: `Check column classification, metric formulas, the dependency graph
and hierarchy levels. Every problem is reported, not just the first;
an invalid configuration can still be saved as a draft, but evaluation
refuses to run until it validates.`,
		Example: `  # Validate the default dashboard
  gridsight validate

  # Validate a specific document
  gridsight validate -d boards/sales.yaml

  # Machine-readable report
  gridsight validate --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd)
		},
	}
	return cmd
}

func runValidate(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := cmdCtx.Engine.Validate()
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.Mode() == output.ModeJSON {
		if err := r.JSON(result); err != nil {
			return err
		}
		if !result.Valid {
			return fmt.Errorf("%d validation error(s)", len(result.Errors))
		}
		return nil
	}

	doc := cmdCtx.Engine.Document()
	if result.Valid {
		r.Println(r.Styles().Success.Render("✓") + fmt.Sprintf(" %s: %d columns, %d metrics, %d hierarchy levels",
			doc.Name, len(doc.Columns), len(doc.Metrics), len(doc.Levels)))
		return nil
	}

	r.Println(r.Styles().Error.Render(fmt.Sprintf("%s: %d validation error(s)", doc.Name, len(result.Errors))))
	rows := make([][]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		rows = append(rows, []string{string(e.Kind), e.MetricID, e.Message})
	}
	r.Table([]string{"KIND", "METRIC", "DETAIL"}, rows)
	return fmt.Errorf("%d validation error(s)", len(result.Errors))
}
