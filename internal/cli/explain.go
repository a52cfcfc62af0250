package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safequery/safequery/internal/gauntlet"
)

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	var dbID string
	var registry string

	cmd := &cobra.Command{
		Use:   "explain [schema.yaml] <sql>",
		Short: "Show the TRC formula and English reading of a query",
		Long: `Run the gauntlet and, when the query passes, print only the tuple
relational calculus explanation: the canonical symbolic formula and
its compositional English gloss. A rejected query prints the failing
stage's errors instead.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}
			g, sqlText, err := resolveSchemaAndSQL(formatter, dbID, registry, args)
			if err != nil {
				return err
			}

			report := gauntlet.Run(sqlText, g)
			if !report.OverallValid {
				return outputReport(formatter, report)
			}

			if formatter.Format == "json" {
				if err := formatter.Success(report.TRC); err != nil {
					return err
				}
				return nil
			}
			fmt.Fprintln(formatter.Writer, report.TRC.FormulaText)
			fmt.Fprintln(formatter.Writer, report.TRC.NaturalLanguage)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbID, "db", "", "database id in the schema registry")
	cmd.Flags().StringVar(&registry, "registry", ".safequery", "schema registry directory")
	return cmd
}
