package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prodline-labs/prodline-go/internal/domain"
	"github.com/prodline-labs/prodline-go/internal/repo"
	"github.com/prodline-labs/prodline-go/internal/repo/memstore"
	"github.com/prodline-labs/prodline-go/internal/service/events"
)

func newTestContext(store *memstore.Store) *commandContext {
	c := newCommandContext()
	c.stagesFile = ""
	c.openDB = func(context.Context) (*sql.DB, error) {
		return nil, errors.New("database unavailable in tests")
	}
	c.transactor = func(context.Context) (repo.Transactor, func(), error) {
		return store, func() {}, nil
	}
	return c
}

func runCLI(t *testing.T, c *commandContext, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(c)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestStagesCommandRendersDefaultSequence(t *testing.T) {
	out, _, err := runCLI(t, newTestContext(memstore.New()), "stages")
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	for _, want := range []string{"Pos", "Etapa", "MONTAGEM DA CARCAÇA", "ACABAMENTO"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stages output missing %q:\n%s", want, out)
		}
	}
}

func TestStagesCommandKeepsHeaderCase(t *testing.T) {
	out, _, err := runCLI(t, newTestContext(memstore.New()), "stages")
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	if strings.Contains(out, "POS") || strings.Contains(out, "ETAPA") {
		t.Fatalf("headers were upper-cased:\n%s", out)
	}
}

func TestLinesCommandListsSeededLines(t *testing.T) {
	c := newTestContext(memstore.New())

	out, _, err := runCLI(t, c, "lines")
	if err != nil {
		t.Fatalf("lines: %v", err)
	}
	if !strings.Contains(out, "prodlinectl seed") {
		t.Fatalf("expected seed hint on empty store, got %q", out)
	}

	if _, _, err := runCLI(t, c, "seed"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	out, _, err = runCLI(t, c, "lines")
	if err != nil {
		t.Fatalf("lines: %v", err)
	}
	for _, want := range []string{"Linha 1", "Linha 5", "Galpão Inferior", "Localização"} {
		if !strings.Contains(out, want) {
			t.Fatalf("lines output missing %q:\n%s", want, out)
		}
	}

	out, _, err = runCLI(t, c, "lines", "--json")
	if err != nil {
		t.Fatalf("lines --json: %v", err)
	}
	var lines []struct {
		ID   int64  `json:"id"`
		Name string `json:"nome_linha"`
	}
	if err := json.Unmarshal([]byte(out), &lines); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(lines) != 5 || lines[0].ID != 1 || lines[4].Name != "Linha 5" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

func TestStagesCommandUsesStagesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.yaml")
	body := "schema: prodline.stages.v1\nstages:\n  - id: 10\n    name: Solda\n  - id: 11\n    name: Teste\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write stages file: %v", err)
	}
	out, _, err := runCLI(t, newTestContext(memstore.New()), "--stages", path, "stages", "--json")
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	var stages []struct {
		Position int    `json:"posicao"`
		ID       int64  `json:"id"`
		Name     string `json:"nome_etapa"`
	}
	if err := json.Unmarshal([]byte(out), &stages); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(stages) != 2 || stages[0].ID != 10 || stages[1].Name != "Teste" || stages[1].Position != 2 {
		t.Fatalf("unexpected stages: %+v", stages)
	}
}

func TestStagesCommandRejectsMissingFile(t *testing.T) {
	_, _, err := runCLI(t, newTestContext(memstore.New()), "--stages", filepath.Join(t.TempDir(), "missing.yaml"), "stages")
	if err == nil {
		t.Fatalf("expected error for missing stages file")
	}
}

func TestSeedThenAnalyze(t *testing.T) {
	store := memstore.New()
	c := newTestContext(store)

	out, _, err := runCLI(t, c, "seed")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out, "seeded 5 lines and 5 stages") {
		t.Fatalf("unexpected seed output: %q", out)
	}
	// Seeding twice is an upsert.
	if _, _, err := runCLI(t, c, "seed"); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(90 * time.Second)
		return now
	}
	p, err := events.New(store, domain.MustDefaultSequence(), events.WithClock(clock))
	if err != nil {
		t.Fatalf("events.New: %v", err)
	}
	var productID int64
	for stage := 1; stage <= 5; stage++ {
		for _, kind := range []domain.EventKind{domain.EventStart, domain.EventStop} {
			res, err := p.Process(context.Background(), domain.Event{Kind: kind, Stage: stage, LineID: 2})
			if err != nil {
				t.Fatalf("%s stage %d: %v", kind, stage, err)
			}
			productID = res.ProductID
		}
	}

	out, _, err = runCLI(t, c, "analyze", "1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "Produto 1") || !strings.Contains(out, "Total") || !strings.Contains(out, "ACABAMENTO") {
		t.Fatalf("unexpected analyze output:\n%s", out)
	}

	out, _, err = runCLI(t, c, "analyze", "1", "--json")
	if err != nil {
		t.Fatalf("analyze --json: %v", err)
	}
	var got analysisOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.ProductID != productID || len(got.Stages) != 5 {
		t.Fatalf("unexpected analysis: %+v", got)
	}
	for i, s := range got.Stages {
		if s.DurationSec == nil || *s.DurationSec != 90 {
			t.Fatalf("stage %d duration = %v, want 90", i+1, s.DurationSec)
		}
		want := 90.0
		if i == 0 {
			want = 0
		}
		if s.IdleSec != want {
			t.Fatalf("stage %d idle = %v, want %v", i+1, s.IdleSec, want)
		}
	}
	if got.TotalIdleSec != 360 || got.TotalCycleSec != 450 {
		t.Fatalf("totals idle=%v cycle=%v", got.TotalIdleSec, got.TotalCycleSec)
	}
}

func TestAnalyzeRejectsBadProductID(t *testing.T) {
	c := newTestContext(memstore.New())
	for _, arg := range []string{"abc", "0", "-3"} {
		if _, _, err := runCLI(t, c, "analyze", "--", arg); err == nil {
			t.Fatalf("expected error for %q", arg)
		}
	}
}

func TestAnalyzeUnknownProduct(t *testing.T) {
	_, _, err := runCLI(t, newTestContext(memstore.NewSeeded(domain.DefaultLines(), domain.DefaultStages())), "analyze", "42")
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}
}

func TestSchemaApplyPrint(t *testing.T) {
	out, _, err := runCLI(t, newTestContext(memstore.New()), "schema", "apply", "--print")
	if err != nil {
		t.Fatalf("schema apply --print: %v", err)
	}
	if !strings.Contains(out, "CREATE TABLE IF NOT EXISTS") {
		t.Fatalf("expected DDL, got:\n%s", out)
	}
}

func TestSchemaApplyReportsDatabaseError(t *testing.T) {
	_, _, err := runCLI(t, newTestContext(memstore.New()), "schema", "apply")
	if err == nil || !strings.Contains(err.Error(), "database unavailable") {
		t.Fatalf("expected database error, got %v", err)
	}
}

func TestTableViewKeepsTitlesAndPadsRows(t *testing.T) {
	view := tableView{
		columns: []column{{title: "Etapa"}, {title: "Ciclo", numeric: true}},
		rows:    [][]string{{"only"}, {"a", "1s", "dropped"}},
		footer:  []string{"Total", "1s"},
	}
	out := view.render()
	for _, want := range []string{"Etapa", "Ciclo", "only", "Total"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
	for _, unwanted := range []string{"ETAPA", "TOTAL", "dropped"} {
		if strings.Contains(out, unwanted) {
			t.Fatalf("table contains %q:\n%s", unwanted, out)
		}
	}
	if (tableView{}).render() != "" {
		t.Fatalf("expected empty output without columns")
	}
}
