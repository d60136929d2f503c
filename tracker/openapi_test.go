package main

import (
	"context"
	"net/http"
	"testing"

	"github.com/prodline-labs/prodline-go/internal/domain"
)

func TestOpenAPIDocumentValidates(t *testing.T) {
	doc := openAPIDocument(domain.MustDefaultSequence())
	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("validate: %v", err)
	}

	routes := map[string]string{
		"/api/eventos":                              http.MethodPost,
		"/api/scanner/associar-ao-ultimo":           http.MethodPost,
		"/api/alertas":                              http.MethodGet,
		"/api/alertas/{linhaId}/resolver":           http.MethodPatch,
		"/api/alertas/{linhaId}/{etapaId}/resolver": http.MethodPatch,
		"/api/produtos/{produtoId}/analise-tempo":   http.MethodGet,
	}
	for path, method := range routes {
		item := doc.Paths.Value(path)
		if item == nil || item.GetOperation(method) == nil {
			t.Fatalf("missing %s %s", method, path)
		}
	}
	if doc.Paths.Value("/api/alertas").GetOperation(http.MethodPost) == nil {
		t.Fatalf("missing POST /api/alertas")
	}
}

func TestOpenAPIStageBoundFollowsSequence(t *testing.T) {
	seq, err := domain.NewStageSequence([]domain.Stage{
		{ID: 1, Position: 1, Name: "a"},
		{ID: 2, Position: 2, Name: "b"},
	})
	if err != nil {
		t.Fatalf("sequence: %v", err)
	}
	op := openAPIDocument(seq).Paths.Value("/api/eventos").GetOperation(http.MethodPost)
	etapa := op.RequestBody.Value.Content.Get("application/json").Schema.Value.Properties["etapa"].Value
	if etapa.Max == nil || *etapa.Max != 2 {
		t.Fatalf("etapa max=%v, want 2", etapa.Max)
	}
}
