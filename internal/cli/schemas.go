package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safequery/safequery/internal/store"
)

// NewSchemasCommand creates the schemas command group for managing the
// registry.
func NewSchemasCommand(rootOpts *RootOptions) *cobra.Command {
	var registry string

	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "Manage the schema registry",
	}
	cmd.PersistentFlags().StringVar(&registry, "registry", ".safequery", "schema registry directory")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List stored database ids",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}
			reg, err := store.Open(registry)
			if err != nil {
				return outputCommandError(formatter, ErrCodeGeneric, err.Error())
			}
			ids, err := reg.List()
			if err != nil {
				return outputCommandError(formatter, ErrCodeGeneric, err.Error())
			}
			if formatter.Format == "json" {
				return formatter.Success(map[string][]string{"database_ids": ids})
			}
			for _, id := range ids {
				fmt.Fprintln(formatter.Writer, id)
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:           "delete <database-id>",
		Short:         "Remove a stored schema",
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
			reg, err := store.Open(registry)
			if err != nil {
				return outputCommandError(formatter, ErrCodeGeneric, err.Error())
			}
			if err := reg.Delete(args[0]); err != nil {
				code := ErrCodeGeneric
				if errors.Is(err, store.ErrNotFound) {
					code = ErrCodeNotFound
				}
				return outputCommandError(formatter, code, err.Error())
			}
			formatter.VerboseLog("Deleted schema %s", args[0])
			return nil
		},
	}

	cmd.AddCommand(list)
	cmd.AddCommand(del)
	return cmd
}
