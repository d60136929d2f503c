package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/prodline-labs/prodline-go/internal/service/analytics"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze <productId>",
		Short: "Show cycle and idle times for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || productID < 1 {
				return fmt.Errorf("invalid product id %q", args[0])
			}
			cfg, err := ctx.stages()
			if err != nil {
				return err
			}
			tx, closeFn, err := ctx.transactor(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			svc, err := analytics.New(tx, cfg.Stages)
			if err != nil {
				return err
			}
			result, err := svc.AnalyzeProduct(cmd.Context(), productID)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, analysisJSON(result))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderAnalysis(result))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

type stageTimingJSON struct {
	StageID     int64    `json:"etapaId"`
	StageName   string   `json:"nomeEtapa"`
	Position    int      `json:"posicao,omitempty"`
	DurationSec *float64 `json:"duracaoEtapa"`
	IdleSec     float64  `json:"tempoDeOcio"`
}

type analysisOutput struct {
	ProductID     int64             `json:"produtoId"`
	Stages        []stageTimingJSON `json:"analisePorEtapa"`
	TotalIdleSec  float64           `json:"ocioTotalSegundos"`
	TotalCycleSec float64           `json:"cicloTotalSegundos"`
}

func analysisJSON(a analytics.Analysis) analysisOutput {
	out := analysisOutput{
		ProductID:     a.ProductID,
		Stages:        make([]stageTimingJSON, 0, len(a.Stages)),
		TotalIdleSec:  a.TotalIdleSeconds(),
		TotalCycleSec: a.TotalCycleSeconds(),
	}
	for _, s := range a.Stages {
		row := stageTimingJSON{StageID: s.StageID, StageName: s.StageName, Position: s.Position, IdleSec: s.Idle.Seconds()}
		if s.Duration != nil {
			secs := s.Duration.Seconds()
			row.DurationSec = &secs
		}
		out.Stages = append(out.Stages, row)
	}
	return out
}

func renderAnalysis(a analytics.Analysis) string {
	rows := make([][]string, 0, len(a.Stages))
	for _, s := range a.Stages {
		name := s.StageName
		if name == "" {
			name = fmt.Sprintf("etapa %d", s.StageID)
		}
		rows = append(rows, []string{
			name,
			formatTime(s.StartedAt),
			formatTime(s.FinishedAt),
			formatDuration(s.Duration),
			s.Idle.Round(time.Second).String(),
		})
	}
	view := tableView{
		columns: []column{{title: "Etapa"}, {title: "Início"}, {title: "Fim"}, {title: "Ciclo", numeric: true}, {title: "Ócio", numeric: true}},
		rows:    rows,
		footer: []string{
			"Total",
			"",
			"",
			a.TotalCycle.Round(time.Second).String(),
			a.TotalIdle.Round(time.Second).String(),
		},
	}
	return fmt.Sprintf("Produto %d\n%s", a.ProductID, view.render())
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func formatDuration(d *time.Duration) string {
	if d == nil {
		return "-"
	}
	return d.Round(time.Second).String()
}
