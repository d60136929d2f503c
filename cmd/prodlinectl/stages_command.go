package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStagesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "Show the configured stage sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.stages()
			if err != nil {
				return err
			}
			stages := cfg.Stages.Stages()
			if asJSON {
				type stageJSON struct {
					Position    int    `json:"posicao"`
					ID          int64  `json:"id"`
					Name        string `json:"nome_etapa"`
					Description string `json:"descricao,omitempty"`
				}
				out := make([]stageJSON, 0, len(stages))
				for _, s := range stages {
					out = append(out, stageJSON{Position: s.Position, ID: s.ID, Name: s.Name, Description: s.Description})
				}
				return writeJSON(cmd, out)
			}
			rows := make([][]string, 0, len(stages))
			for _, s := range stages {
				rows = append(rows, []string{strconv.Itoa(s.Position), strconv.FormatInt(s.ID, 10), s.Name, s.Description})
			}
			view := tableView{
				columns: []column{{title: "Pos", numeric: true}, {title: "ID", numeric: true}, {title: "Etapa"}, {title: "Descrição"}},
				rows:    rows,
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
