package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prodline-labs/prodline-go/internal/domain"
)

type eventRequest struct {
	Tipo    string `json:"tipo" validate:"required,oneof=start stop"`
	Etapa   int    `json:"etapa" validate:"required,min=1"`
	LinhaID int64  `json:"linha_id" validate:"required,min=1"`
}

type eventResponse struct {
	Message   string `json:"message"`
	ProdutoID int64  `json:"produtoId"`
}

func (api *trackerAPI) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeInvalidJSON(w, r, err)
		return
	}
	if err := api.validate.Struct(req); err != nil {
		api.writeServiceError(w, r, err)
		return
	}

	ev := domain.Event{Kind: domain.EventKind(req.Tipo), Stage: req.Etapa, LineID: req.LinhaID}
	res, err := api.events.Process(r.Context(), ev)
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, eventResponse{
		Message:   fmt.Sprintf("Evento '%s' para etapa %d na linha %d processado com sucesso.", req.Tipo, req.Etapa, req.LinhaID),
		ProdutoID: res.ProductID,
	})
}

type associateRequest struct {
	NumeroSerie string `json:"numero_serie" validate:"required,min=1,max=128"`
	LinhaID     int64  `json:"linha_id" validate:"required,min=1"`
}

type productView struct {
	ID            int64      `json:"id"`
	NSerie        *string    `json:"n_serie"`
	LinhaID       int64      `json:"linha_id"`
	StatusGeral   string     `json:"status_geral"`
	DataCriacao   time.Time  `json:"data_criacao"`
	DataConclusao *time.Time `json:"data_conclusao"`
}

func newProductView(p domain.Product) productView {
	return productView{
		ID:            p.ID,
		NSerie:        p.Serial,
		LinhaID:       p.LineID,
		StatusGeral:   string(p.Status),
		DataCriacao:   p.CreatedAt,
		DataConclusao: p.CompletedAt,
	}
}

type associateResponse struct {
	Message string      `json:"message"`
	Produto productView `json:"produto"`
}

func (api *trackerAPI) handleAssociateSerial(w http.ResponseWriter, r *http.Request) {
	var req associateRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeInvalidJSON(w, r, err)
		return
	}
	if err := api.validate.Struct(req); err != nil {
		api.writeServiceError(w, r, err)
		return
	}

	product, err := api.serials.Associate(r.Context(), req.NumeroSerie, req.LinhaID)
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}
	serial := ""
	if product.Serial != nil {
		serial = *product.Serial
	}
	api.writeJSON(w, http.StatusOK, associateResponse{
		Message: fmt.Sprintf("Número de série '%s' associado com sucesso.", serial),
		Produto: newProductView(product),
	})
}
