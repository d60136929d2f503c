package main

import (
	"fmt"

	"github.com/spf13/cobra"

	repopg "github.com/prodline-labs/prodline-go/internal/repo/postgres"
)

func newSchemaCommand(ctx *commandContext) *cobra.Command {
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Database schema utilities",
	}

	var printOnly bool
	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Create tracker tables and indexes if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				_, err := fmt.Fprint(cmd.OutOrStdout(), repopg.Schema)
				return err
			}
			db, err := ctx.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			if err := repopg.EnsureSchema(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
	applyCmd.Flags().BoolVar(&printOnly, "print", false, "Print the DDL instead of applying it")

	schemaCmd.AddCommand(applyCmd)
	return schemaCmd
}
