package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/safequery/safequery/internal/extract"
	"github.com/safequery/safequery/internal/store"
)

// NewExtractCommand creates the extract command.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	var output string
	var save bool
	var registry string

	cmd := &cobra.Command{
		Use:   "extract <database.sqlite>",
		Short: "Build a schema graph from a SQLite database",
		Long: `Walk a SQLite database file and emit its schema graph as YAML, ready
for use with validate. With --save the schema is stored in the registry
and the assigned database id is printed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}

			g, err := extract.FromSQLite(cmd.Context(), args[0])
			if err != nil {
				return outputCommandError(formatter, ErrCodeExtractFailed, err.Error())
			}
			formatter.VerboseLog("Extracted %d table(s) from %s", len(g.Tables), args[0])

			if save {
				reg, err := store.Open(registry)
				if err != nil {
					return outputCommandError(formatter, ErrCodeGeneric, err.Error())
				}
				id, err := reg.Save(g)
				if err != nil {
					return outputCommandError(formatter, ErrCodeWriteFailed, err.Error())
				}
				if formatter.Format == "json" {
					return formatter.Success(map[string]string{"database_id": id})
				}
				fmt.Fprintln(formatter.Writer, id)
				return nil
			}

			data, err := yaml.Marshal(g)
			if err != nil {
				return outputCommandError(formatter, ErrCodeGeneric, err.Error())
			}
			if output == "" {
				fmt.Fprint(formatter.Writer, string(data))
				return nil
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return outputCommandError(formatter, ErrCodeWriteFailed, err.Error())
			}
			formatter.VerboseLog("Wrote schema to %s", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&save, "save", false, "store the schema in the registry")
	cmd.Flags().StringVar(&registry, "registry", ".safequery", "schema registry directory")
	return cmd
}
