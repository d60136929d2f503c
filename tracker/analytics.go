package main

import (
	"net/http"
	"time"

	"github.com/prodline-labs/prodline-go/internal/service/analytics"
)

type stageTimingView struct {
	EtapaID   int64      `json:"etapaId"`
	NomeEtapa string     `json:"nomeEtapa"`
	Posicao   int        `json:"posicao,omitempty"`
	Inicio    *time.Time `json:"inicio"`
	Fim       *time.Time `json:"fim"`
	// DuracaoEtapa and TempoDeOcio are seconds.
	DuracaoEtapa *float64 `json:"duracaoEtapa"`
	TempoDeOcio  float64  `json:"tempoDeOcio"`
}

type analysisResponse struct {
	ProdutoID          int64             `json:"produtoId"`
	AnalisePorEtapa    []stageTimingView `json:"analisePorEtapa"`
	OcioTotalSegundos  float64           `json:"ocioTotalSegundos"`
	CicloTotalSegundos float64           `json:"cicloTotalSegundos"`
}

func newAnalysisResponse(a analytics.Analysis) analysisResponse {
	out := analysisResponse{
		ProdutoID:          a.ProductID,
		AnalisePorEtapa:    make([]stageTimingView, 0, len(a.Stages)),
		OcioTotalSegundos:  a.TotalIdleSeconds(),
		CicloTotalSegundos: a.TotalCycleSeconds(),
	}
	for _, s := range a.Stages {
		view := stageTimingView{
			EtapaID:     s.StageID,
			NomeEtapa:   s.StageName,
			Posicao:     s.Position,
			Inicio:      s.StartedAt,
			Fim:         s.FinishedAt,
			TempoDeOcio: s.Idle.Seconds(),
		}
		if s.Duration != nil {
			secs := s.Duration.Seconds()
			view.DuracaoEtapa = &secs
		}
		out.AnalisePorEtapa = append(out.AnalisePorEtapa, view)
	}
	return out
}

func (api *trackerAPI) handleAnalyzeProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "produtoId")
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}
	analysis, err := api.analytics.AnalyzeProduct(r.Context(), productID)
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, newAnalysisResponse(analysis))
}
