package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prodline-labs/prodline-go/internal/domain"
	"github.com/prodline-labs/prodline-go/internal/platform/validation"
	"github.com/prodline-labs/prodline-go/internal/service/alerts"
	"github.com/prodline-labs/prodline-go/internal/service/analytics"
	"github.com/prodline-labs/prodline-go/internal/service/events"
	"github.com/prodline-labs/prodline-go/internal/service/serials"
)

type trackerAPI struct {
	logger    *slog.Logger
	validate  *validation.Validator
	events    *events.Processor
	serials   *serials.Service
	analytics *analytics.Service
	alerts    *alerts.Service
}

func (api *trackerAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/eventos", api.handleEvent)
	mux.HandleFunc("POST /api/scanner/associar-ao-ultimo", api.handleAssociateSerial)

	mux.HandleFunc("GET /api/alertas", api.handleListAlerts)
	mux.HandleFunc("POST /api/alertas", api.handleOpenAlert)
	mux.HandleFunc("PATCH /api/alertas/{linhaId}/resolver", api.handleResolveLineAlert)
	mux.HandleFunc("PATCH /api/alertas/{linhaId}/{etapaId}/resolver", api.handleResolveStageAlert)

	mux.HandleFunc("GET /api/produtos/{produtoId}/analise-tempo", api.handleAnalyzeProduct)
}

type errorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

const internalErrorMessage = "Erro interno do servidor."

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple JSON values")
	}
	return nil
}

func (api *trackerAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *trackerAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	api.writeJSON(w, status, errorResponse{
		Error:     code,
		Message:   message,
		RequestID: r.Header.Get("X-Request-Id"),
	})
}

func (api *trackerAPI) writeInvalidJSON(w http.ResponseWriter, r *http.Request, err error) {
	api.logger.Info("invalid request body", "request_id", r.Header.Get("X-Request-Id"), "error", err)
	api.writeError(w, r, http.StatusBadRequest, "invalid_json", "Corpo da requisição inválido.")
}

// writeServiceError maps classified failures to their status codes. Anything
// unclassified is logged in full and answered with a generic 500.
func (api *trackerAPI) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := r.Header.Get("X-Request-Id")

	var de *domain.Error
	if !errors.As(err, &de) || de.Kind == domain.KindInternal {
		api.logger.Error("request failed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error", internalErrorMessage)
		return
	}

	status := http.StatusInternalServerError
	switch de.Kind {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindConflict:
		status = http.StatusConflict
	}
	api.writeJSON(w, status, errorResponse{
		Error:     de.Code,
		Message:   de.Message,
		Fields:    de.Fields,
		RequestID: requestID,
	})
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, domain.NewValidationError("Erro de validação", map[string]string{
			name: name + " must be a positive integer",
		})
	}
	return id, nil
}
