package main

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/prodline-labs/prodline-go/internal/domain"
)

const apiVersion = "1.0.0"

func errorSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("fields", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema())).
		WithProperty("request_id", openapi3.NewStringSchema()).
		WithRequired([]string{"error", "request_id"})
}

func productSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewInt64Schema()).
		WithProperty("n_serie", openapi3.NewStringSchema().WithNullable()).
		WithProperty("linha_id", openapi3.NewInt64Schema()).
		WithProperty("status_geral", openapi3.NewStringSchema().WithEnum(
			string(domain.ProductInProgress), string(domain.ProductCompleted), string(domain.ProductCancelled))).
		WithProperty("data_criacao", openapi3.NewDateTimeSchema()).
		WithProperty("data_conclusao", openapi3.NewDateTimeSchema().WithNullable())
}

func alertSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewInt64Schema()).
		WithProperty("linha_id", openapi3.NewInt64Schema()).
		WithProperty("etapa_id", openapi3.NewInt64Schema().WithNullable()).
		WithProperty("descricao", openapi3.NewStringSchema()).
		WithProperty("inicio_alerta_ts", openapi3.NewDateTimeSchema()).
		WithProperty("fim_alerta_ts", openapi3.NewDateTimeSchema().WithNullable()).
		WithProperty("status_alerta", openapi3.NewStringSchema().WithEnum(string(domain.AlertOpen), string(domain.AlertResolved)))
}

func positiveID() *openapi3.Schema {
	return openapi3.NewInt64Schema().WithMin(1)
}

func operation(id, tag, summary string) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = id
	op.Tags = []string{tag}
	op.Summary = summary
	op.Responses = openapi3.NewResponsesWithCapacity(4)
	op.AddResponse(http.StatusInternalServerError, openapi3.NewResponse().
		WithDescription("Erro interno").
		WithJSONSchema(errorSchema()))
	return op
}

func withBody(op *openapi3.Operation, schema *openapi3.Schema) *openapi3.Operation {
	op.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(schema)}
	op.AddResponse(http.StatusBadRequest, openapi3.NewResponse().
		WithDescription("Requisição inválida").
		WithJSONSchema(errorSchema()))
	return op
}

func withPathIDs(op *openapi3.Operation, names ...string) *openapi3.Operation {
	for _, name := range names {
		op.AddParameter(openapi3.NewPathParameter(name).WithRequired(true).WithSchema(positiveID()))
	}
	op.AddResponse(http.StatusBadRequest, openapi3.NewResponse().
		WithDescription("Parâmetro inválido").
		WithJSONSchema(errorSchema()))
	return op
}

func notFound(op *openapi3.Operation, description string) *openapi3.Operation {
	op.AddResponse(http.StatusNotFound, openapi3.NewResponse().
		WithDescription(description).
		WithJSONSchema(errorSchema()))
	return op
}

// openAPIDocument describes the public tracker routes for the configured
// stage sequence.
func openAPIDocument(stages domain.StageSequence) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Linha de Produção API",
			Description: "Rastreamento de produtos por etapa, associação de número de série, alertas e análise de tempos.",
			Version:     apiVersion,
		},
		Paths: openapi3.NewPaths(),
	}

	events := withBody(operation("processEvent", "Eventos", "Processa um evento de início ou fim de etapa"),
		openapi3.NewObjectSchema().
			WithProperty("tipo", openapi3.NewStringSchema().WithEnum(string(domain.EventStart), string(domain.EventStop))).
			WithProperty("etapa", openapi3.NewIntegerSchema().WithMin(1).WithMax(float64(stages.Len()))).
			WithProperty("linha_id", positiveID()).
			WithRequired([]string{"tipo", "etapa", "linha_id"}))
	events.AddResponse(http.StatusOK, openapi3.NewResponse().
		WithDescription("Evento processado").
		WithJSONSchema(openapi3.NewObjectSchema().
			WithProperty("message", openapi3.NewStringSchema()).
			WithProperty("produtoId", openapi3.NewInt64Schema())))
	notFound(events, "Nenhum produto elegível para a transição")
	doc.AddOperation("/api/eventos", http.MethodPost, events)

	scanner := withBody(operation("associateSerial", "Scanner", "Associa um número de série ao último produto concluído da linha"),
		openapi3.NewObjectSchema().
			WithProperty("numero_serie", openapi3.NewStringSchema().WithMinLength(1).WithMaxLength(128)).
			WithProperty("linha_id", positiveID()).
			WithRequired([]string{"numero_serie", "linha_id"}))
	scanner.AddResponse(http.StatusOK, openapi3.NewResponse().
		WithDescription("Número de série associado").
		WithJSONSchema(openapi3.NewObjectSchema().
			WithProperty("message", openapi3.NewStringSchema()).
			WithProperty("produto", productSchema())))
	notFound(scanner, "Nenhum produto concluído aguardando número de série")
	scanner.AddResponse(http.StatusConflict, openapi3.NewResponse().
		WithDescription("Número de série já em uso").
		WithJSONSchema(errorSchema()))
	doc.AddOperation("/api/scanner/associar-ao-ultimo", http.MethodPost, scanner)

	openAlert := withBody(operation("openAlert", "Alertas", "Cria um novo alerta na linha"),
		openapi3.NewObjectSchema().
			WithProperty("linha_id", positiveID()).
			WithProperty("etapa_id", positiveID()).
			WithProperty("descricao", openapi3.NewStringSchema().WithMaxLength(500)).
			WithRequired([]string{"linha_id"}))
	openAlert.AddResponse(http.StatusCreated, openapi3.NewResponse().
		WithDescription("Alerta criado").
		WithJSONSchema(alertSchema()))
	notFound(openAlert, "Linha ou etapa inexistente")
	doc.AddOperation("/api/alertas", http.MethodPost, openAlert)

	listAlerts := operation("listAlerts", "Alertas", "Lista alertas, mais recentes primeiro")
	listAlerts.AddParameter(openapi3.NewQueryParameter("linha_id").WithSchema(positiveID()))
	listAlerts.AddParameter(openapi3.NewQueryParameter("status").WithSchema(
		openapi3.NewStringSchema().WithEnum(string(domain.AlertOpen), string(domain.AlertResolved))))
	listAlerts.AddParameter(openapi3.NewQueryParameter("limit").WithSchema(
		openapi3.NewIntegerSchema().WithMin(1).WithMax(500)))
	listAlerts.AddResponse(http.StatusOK, openapi3.NewResponse().
		WithDescription("Alertas").
		WithJSONSchema(openapi3.NewObjectSchema().
			WithProperty("alertas", openapi3.NewArraySchema().WithItems(alertSchema()))))
	listAlerts.AddResponse(http.StatusBadRequest, openapi3.NewResponse().
		WithDescription("Filtro inválido").
		WithJSONSchema(errorSchema()))
	doc.AddOperation("/api/alertas", http.MethodGet, listAlerts)

	resolveStage := withPathIDs(operation("resolveStageAlert", "Alertas", "Resolve o último alerta aberto para uma linha e etapa"), "linhaId", "etapaId")
	resolveStage.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("Alerta resolvido").WithJSONSchema(alertSchema()))
	notFound(resolveStage, "Nenhum alerta aberto")
	doc.AddOperation("/api/alertas/{linhaId}/{etapaId}/resolver", http.MethodPatch, resolveStage)

	resolveLine := withPathIDs(operation("resolveLineAlert", "Alertas", "Resolve o último alerta aberto da linha sem etapa"), "linhaId")
	resolveLine.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("Alerta resolvido").WithJSONSchema(alertSchema()))
	notFound(resolveLine, "Nenhum alerta aberto")
	doc.AddOperation("/api/alertas/{linhaId}/resolver", http.MethodPatch, resolveLine)

	stageTiming := openapi3.NewObjectSchema().
		WithProperty("etapaId", openapi3.NewInt64Schema()).
		WithProperty("nomeEtapa", openapi3.NewStringSchema()).
		WithProperty("posicao", openapi3.NewIntegerSchema()).
		WithProperty("inicio", openapi3.NewDateTimeSchema().WithNullable()).
		WithProperty("fim", openapi3.NewDateTimeSchema().WithNullable()).
		WithProperty("duracaoEtapa", openapi3.NewFloat64Schema().WithNullable()).
		WithProperty("tempoDeOcio", openapi3.NewFloat64Schema())
	analyze := withPathIDs(operation("analyzeProduct", "Análises", "Calcula tempos de ciclo e ociosidade de um produto"), "produtoId")
	analyze.AddResponse(http.StatusOK, openapi3.NewResponse().
		WithDescription("Análise de tempos").
		WithJSONSchema(openapi3.NewObjectSchema().
			WithProperty("produtoId", openapi3.NewInt64Schema()).
			WithProperty("analisePorEtapa", openapi3.NewArraySchema().WithItems(stageTiming)).
			WithProperty("ocioTotalSegundos", openapi3.NewFloat64Schema()).
			WithProperty("cicloTotalSegundos", openapi3.NewFloat64Schema())))
	notFound(analyze, "Produto não encontrado ou sem histórico")
	doc.AddOperation("/api/produtos/{produtoId}/analise-tempo", http.MethodGet, analyze)

	return doc
}

// documentationHandler serves the document rendered once at startup.
func documentationHandler(doc *openapi3.T) (http.HandlerFunc, error) {
	body, err := doc.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}, nil
}
