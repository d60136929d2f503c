package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
}

func TestConfigFromEnv_InvalidValues(t *testing.T) {
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "many")
	t.Setenv("DATABASE_PING_TIMEOUT", "soon")
	if _, err := ConfigFromEnv(); err == nil {
		t.Fatalf("ConfigFromEnv() expected error")
	}
}

func TestConfigValidate_IdleAboveOpen(t *testing.T) {
	cfg := Config{URL: defaultURL, PingTimeout: 1, MaxOpenConns: 2, MaxIdleConns: 3}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate() expected error")
	}
}

func TestConfigValidate_ReportsAllProblems(t *testing.T) {
	err := Config{URL: "postgres://%zz", MaxOpenConns: 0}.Validate()
	if err == nil {
		t.Fatalf("Validate() expected error")
	}
	for _, want := range []string{"DATABASE_URL", "DATABASE_PING_TIMEOUT", "DATABASE_MAX_OPEN_CONNS"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestConnConfig_ApplicationName(t *testing.T) {
	cc, err := Config{URL: defaultURL}.connConfig()
	if err != nil {
		t.Fatalf("connConfig() err=%v", err)
	}
	if got := cc.RuntimeParams["application_name"]; got != defaultApplicationName {
		t.Fatalf("application_name=%q", got)
	}

	cc, err = Config{URL: defaultURL + "&application_name=ops", ApplicationName: "tracker"}.connConfig()
	if err != nil {
		t.Fatalf("connConfig() err=%v", err)
	}
	if got := cc.RuntimeParams["application_name"]; got != "ops" {
		t.Fatalf("explicit application_name overridden: %q", got)
	}
}

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("update: %w", &pgconn.PgError{Code: "23505", ConstraintName: "produto_n_serie_key"})
	if !IsUniqueViolation(unique) {
		t.Fatalf("expected unique violation")
	}
	if IsForeignKeyViolation(unique) {
		t.Fatalf("unexpected foreign key violation")
	}
	if got := ConstraintName(unique); got != "produto_n_serie_key" {
		t.Fatalf("ConstraintName()=%q", got)
	}
	if !IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("expected foreign key violation")
	}
	if IsUniqueViolation(errors.New("boom")) {
		t.Fatalf("plain error classified as unique violation")
	}
}

type failingPool struct{}

func (failingPool) Conn(context.Context) (*sql.Conn, error) {
	return nil, errors.New("pool exhausted")
}

func TestWithTx_AcquireFailure(t *testing.T) {
	called := false
	err := WithTx(context.Background(), failingPool{}, nil, func(*sql.Tx) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatalf("WithTx() expected error")
	}
	if called {
		t.Fatalf("fn must not run without a connection")
	}
}

func TestWithTx_NilPool(t *testing.T) {
	if err := WithTx(context.Background(), nil, nil, func(*sql.Tx) error { return nil }); err == nil {
		t.Fatalf("WithTx() expected error for nil pool")
	}
}
