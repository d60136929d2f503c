package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prodline-labs/prodline-go/internal/domain"
)

type openAlertRequest struct {
	LinhaID   int64  `json:"linha_id" validate:"required,min=1"`
	EtapaID   *int64 `json:"etapa_id,omitempty" validate:"omitempty,min=1"`
	Descricao string `json:"descricao,omitempty" validate:"max=500"`
}

type alertView struct {
	ID             int64      `json:"id"`
	LinhaID        int64      `json:"linha_id"`
	EtapaID        *int64     `json:"etapa_id"`
	Descricao      string     `json:"descricao"`
	InicioAlertaTS time.Time  `json:"inicio_alerta_ts"`
	FimAlertaTS    *time.Time `json:"fim_alerta_ts"`
	StatusAlerta   string     `json:"status_alerta"`
}

func newAlertView(a domain.Alert) alertView {
	return alertView{
		ID:             a.ID,
		LinhaID:        a.LineID,
		EtapaID:        a.StageID,
		Descricao:      a.Description,
		InicioAlertaTS: a.OpenedAt,
		FimAlertaTS:    a.ClosedAt,
		StatusAlerta:   string(a.Status),
	}
}

func (api *trackerAPI) handleOpenAlert(w http.ResponseWriter, r *http.Request) {
	var req openAlertRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeInvalidJSON(w, r, err)
		return
	}
	if err := api.validate.Struct(req); err != nil {
		api.writeServiceError(w, r, err)
		return
	}
	alert, err := api.alerts.Open(r.Context(), req.LinhaID, req.EtapaID, req.Descricao)
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, newAlertView(alert))
}

func (api *trackerAPI) handleResolveStageAlert(w http.ResponseWriter, r *http.Request) {
	lineID, err := pathID(r, "linhaId")
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}
	stageID, err := pathID(r, "etapaId")
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}
	api.resolveAlert(w, r, lineID, &stageID)
}

func (api *trackerAPI) handleResolveLineAlert(w http.ResponseWriter, r *http.Request) {
	lineID, err := pathID(r, "linhaId")
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}
	api.resolveAlert(w, r, lineID, nil)
}

func (api *trackerAPI) resolveAlert(w http.ResponseWriter, r *http.Request, lineID int64, stageID *int64) {
	alert, err := api.alerts.Resolve(r.Context(), lineID, stageID)
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, newAlertView(alert))
}

type listAlertsResponse struct {
	Alertas []alertView `json:"alertas"`
}

func (api *trackerAPI) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.AlertFilter{Status: domain.AlertStatus(strings.TrimSpace(q.Get("status")))}
	fields := map[string]string{}
	if raw := strings.TrimSpace(q.Get("linha_id")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 1 {
			fields["linha_id"] = "linha_id must be a positive integer"
		}
		filter.LineID = v
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			fields["limit"] = "limit must be a positive integer"
		}
		filter.Limit = v
	}
	if len(fields) > 0 {
		api.writeServiceError(w, r, domain.NewValidationError("Erro de validação", fields))
		return
	}

	list, err := api.alerts.List(r.Context(), filter)
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}
	out := listAlertsResponse{Alertas: make([]alertView, 0, len(list))}
	for _, a := range list {
		out.Alertas = append(out.Alertas, newAlertView(a))
	}
	api.writeJSON(w, http.StatusOK, out)
}
