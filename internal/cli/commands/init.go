package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const initConfigYAML = `# gridsight configuration
dashboard: dashboard.yaml
state_path: .gridsight/state.db
output: text
`

const initDashboardYAML = `name: Sales Overview
dataset: data/sales.csv

columns:
  - column: Region
    classification: categorical
    alias: region
  - column: District
    classification: categorical
    alias: district
  - column: Sales
    classification: numeric
    alias: sales
  - column: Cost
    classification: numeric
    alias: cost

metrics:
  - id: total_sales
    name: Total Sales
    column: sales
    aggregation: sum
  - id: total_cost
    name: Total Cost
    column: cost
    aggregation: sum
  - id: margin
    name: Margin
    formula: total_sales - total_cost
    aggregation: sum
    color_rules:
      - operator: ">"
        value: 0
        color: green
      - operator: "<="
        value: 0
        color: red
  - id: margin_pct
    name: Margin %
    formula: margin / total_sales * 100
    aggregation: sum

levels:
  - id: region
    order: 0
    column: Region
  - id: district
    order: 1
    column: District
`

const initSampleCSV = `Region,District,Sales,Cost
North,N1,1200,700
North,N2,950,610
South,S1,480,390
South,S2,1730,1240
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Scaffold a new gridsight project",
		Long: `Create a starter project: a gridsight.yaml config, a dashboard
document with sample metrics and a small sample dataset.`,
		Example: `  # Scaffold into the current directory
  gridsight init

  # Scaffold into a new directory
  gridsight init sales-dashboard`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, dir)
		},
	}
	return cmd
}

func runInit(cmd *cobra.Command, dir string) error {
	files := []struct {
		name    string
		content string
	}{
		{"gridsight.yaml", initConfigYAML},
		{"dashboard.yaml", initDashboardYAML},
		{filepath.Join("data", "sales.csv"), initSampleCSV},
	}

	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists; refusing to overwrite", path)
		}
	}

	for _, f := range files {
		path := filepath.Join(dir, f.name)
		content := f.content
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "  gridsight validate")
	fmt.Fprintln(cmd.OutOrStdout(), "  gridsight eval")
	fmt.Fprintln(cmd.OutOrStdout(), "  gridsight eval --filter \"region=North\"")
	return nil
}
