package commands

import (
	"github.com/spf13/cobra"

	"github.com/gridsight-labs/gridsight/internal/cli/output"
	"github.com/gridsight-labs/gridsight/internal/project"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List columns, metrics and hierarchy levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}
	return cmd
}

func runList(cmd *cobra.Command) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)

	doc, err := project.Load(cmdCtx.Cfg.Dashboard)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.Mode() == output.ModeJSON {
		return r.JSON(doc)
	}

	r.Println(r.Styles().Header.Render("Columns"))
	colRows := make([][]string, 0, len(doc.Columns))
	for _, c := range doc.Columns {
		colRows = append(colRows, []string{c.ColumnName, c.Alias, string(c.Classification)})
	}
	r.Table([]string{"COLUMN", "ALIAS", "CLASSIFICATION"}, colRows)

	r.Println("")
	r.Println(r.Styles().Header.Render("Metrics"))
	metricRows := make([][]string, 0, len(doc.Metrics))
	for _, m := range doc.Metrics {
		definition := m.Formula
		if m.IsLeaf() {
			definition = "column " + m.Column
		}
		metricRows = append(metricRows, []string{m.ID, m.Name, definition, string(m.Aggregation)})
	}
	r.Table([]string{"ID", "NAME", "DEFINITION", "AGGREGATION"}, metricRows)

	if len(doc.Levels) > 0 {
		r.Println("")
		r.Println(r.Styles().Header.Render("Hierarchy"))
		levelRows := make([][]string, 0, len(doc.Levels))
		for _, l := range doc.Levels {
			levelRows = append(levelRows, []string{l.ID, l.ColumnName})
		}
		r.Table([]string{"LEVEL", "COLUMN"}, levelRows)
	}
	return nil
}
