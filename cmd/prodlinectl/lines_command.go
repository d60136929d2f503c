package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/prodline-labs/prodline-go/internal/domain"
	"github.com/prodline-labs/prodline-go/internal/repo"
)

func newLinesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "lines",
		Short: "List the production lines stored in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, closeFn, err := ctx.transactor(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			var lines []domain.Line
			err = tx.InTx(cmd.Context(), repo.TxOptions{ReadOnly: true}, func(c context.Context, s repo.Store) error {
				var err error
				lines, err = s.ListLines(c)
				return err
			})
			if err != nil {
				return fmt.Errorf("list lines: %w", err)
			}

			if asJSON {
				type lineJSON struct {
					ID       int64  `json:"id"`
					Name     string `json:"nome_linha"`
					Location string `json:"localizacao,omitempty"`
				}
				out := make([]lineJSON, 0, len(lines))
				for _, l := range lines {
					out = append(out, lineJSON{ID: l.ID, Name: l.Name, Location: l.Location})
				}
				return writeJSON(cmd, out)
			}
			if len(lines) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no lines; run prodlinectl seed")
				return nil
			}
			rows := make([][]string, 0, len(lines))
			for _, l := range lines {
				rows = append(rows, []string{strconv.FormatInt(l.ID, 10), l.Name, l.Location})
			}
			view := tableView{
				columns: []column{{title: "ID", numeric: true}, {title: "Linha"}, {title: "Localização"}},
				rows:    rows,
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
