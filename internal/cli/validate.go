package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safequery/safequery/internal/gauntlet"
	"github.com/safequery/safequery/internal/schema"
	"github.com/safequery/safequery/internal/store"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var dbID string
	var registry string

	cmd := &cobra.Command{
		Use:   "validate [schema.yaml] <sql>",
		Short: "Run the three-stage validation gauntlet on a SQL statement",
		Long: `Run a candidate SQL statement through the validation gauntlet:
syntactic validation, semantic validation against the schema graph, and
the TRC safety proof. The full report is printed; the exit code is 0
when the query passes every stage and 1 when any stage rejects it.

The schema comes from a YAML schema file, or from the registry when
--db is given.`,
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
			return outputReport(formatter, report)
		},
	}

	cmd.Flags().StringVar(&dbID, "db", "", "database id in the schema registry")
	cmd.Flags().StringVar(&registry, "registry", ".safequery", "schema registry directory")
	return cmd
}

// resolveSchemaAndSQL loads the schema graph from the registry or a
// schema file and returns it with the SQL text to validate.
func resolveSchemaAndSQL(formatter *OutputFormatter, dbID, registry string, args []string) (*schema.Graph, string, error) {
	if dbID != "" {
		if len(args) != 1 {
			return nil, "", outputCommandError(formatter, ErrCodeNoQuery, "with --db, pass the SQL statement as the only argument")
		}
		reg, err := store.Open(registry)
		if err != nil {
			return nil, "", outputCommandError(formatter, ErrCodeGeneric, err.Error())
		}
		g, err := reg.Load(dbID)
		if err != nil {
			code := ErrCodeSchemaLoad
			if errors.Is(err, store.ErrNotFound) {
				code = ErrCodeNotFound
			}
			return nil, "", outputCommandError(formatter, code, err.Error())
		}
		formatter.VerboseLog("Loaded schema %s from registry (%d tables)", dbID, len(g.Tables))
		return g, args[0], nil
	}

	if len(args) != 2 {
		return nil, "", outputCommandError(formatter, ErrCodeNoQuery, "pass a schema file and the SQL statement")
	}
	g, err := schema.Load(args[0])
	if err != nil {
		return nil, "", outputCommandError(formatter, ErrCodeSchemaLoad, err.Error())
	}
	formatter.VerboseLog("Loaded schema %s (%d tables)", args[0], len(g.Tables))
	return g, args[1], nil
}

// outputReport prints the gauntlet report and maps the verdict to the
// exit code: rejection is a validation failure, not a command error.
func outputReport(formatter *OutputFormatter, report *gauntlet.Report) error {
	if formatter.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
		if !report.OverallValid {
			return NewExitError(ExitFailure, "query rejected")
		}
		return nil
	}

	writeStage := func(name string, st gauntlet.StageResult) {
		switch {
		case st.Skipped:
			fmt.Fprintf(formatter.Writer, "- %s: skipped\n", name)
		case st.Valid:
			fmt.Fprintf(formatter.Writer, "✓ %s\n", name)
		default:
			fmt.Fprintf(formatter.Writer, "✗ %s\n", name)
			for _, e := range st.Errors {
				fmt.Fprintf(formatter.Writer, "    %s\n", e)
			}
		}
	}
	writeStage("syntactic", report.Syntactic)
	writeStage("semantic", report.Semantic)
	writeStage("logical", report.Logical)

	if report.TRC != nil {
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintln(formatter.Writer, report.TRC.FormulaText)
		fmt.Fprintln(formatter.Writer, report.TRC.NaturalLanguage)
	}

	if !report.OverallValid {
		return NewExitError(ExitFailure, "query rejected")
	}
	return nil
}

// outputCommandError reports a command-level problem (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
