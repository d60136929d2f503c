package postgres

import (
	"context"
	"fmt"
)

// Schema creates the tracker tables. Every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS linha_producao (
	id          BIGSERIAL PRIMARY KEY,
	nome_linha  TEXT NOT NULL,
	localizacao TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS etapa (
	id         BIGSERIAL PRIMARY KEY,
	nome_etapa TEXT NOT NULL,
	descricao  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS produto (
	id             BIGSERIAL PRIMARY KEY,
	n_serie        TEXT UNIQUE,
	linha_id       BIGINT NOT NULL CONSTRAINT produto_linha_id_fkey REFERENCES linha_producao(id),
	status_geral   TEXT NOT NULL DEFAULT 'Em producao'
		CHECK (status_geral IN ('Em producao', 'Concluido', 'Cancelado')),
	data_criacao   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	data_conclusao TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS produto_linha_status_idx ON produto (linha_id, status_geral);

CREATE TABLE IF NOT EXISTS historico_etapa (
	id         BIGSERIAL PRIMARY KEY,
	produto_id BIGINT NOT NULL CONSTRAINT historico_etapa_produto_id_fkey REFERENCES produto(id) ON DELETE CASCADE,
	etapa_id   BIGINT NOT NULL CONSTRAINT historico_etapa_etapa_id_fkey REFERENCES etapa(id),
	inicio_ts  TIMESTAMPTZ,
	fim_ts     TIMESTAMPTZ,
	UNIQUE (produto_id, etapa_id),
	CHECK (fim_ts IS NULL OR inicio_ts IS NOT NULL)
);

CREATE TABLE IF NOT EXISTS alerta (
	id               BIGSERIAL PRIMARY KEY,
	linha_id         BIGINT NOT NULL CONSTRAINT alerta_linha_id_fkey REFERENCES linha_producao(id),
	etapa_id         BIGINT CONSTRAINT alerta_etapa_id_fkey REFERENCES etapa(id),
	descricao        TEXT NOT NULL,
	inicio_alerta_ts TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	fim_alerta_ts    TIMESTAMPTZ,
	status_alerta    TEXT NOT NULL DEFAULT 'Aberto'
		CHECK (status_alerta IN ('Aberto', 'Resolvido'))
);

CREATE INDEX IF NOT EXISTS alerta_linha_etapa_status_idx ON alerta (linha_id, etapa_id, status_alerta);
`

// foreignKeys maps the constraint names declared in Schema to their table
// and referencing column.
var foreignKeys = map[string][2]string{
	"produto_linha_id_fkey":           {"produto", "linha_id"},
	"historico_etapa_produto_id_fkey": {"historico_etapa", "produto_id"},
	"historico_etapa_etapa_id_fkey":   {"historico_etapa", "etapa_id"},
	"alerta_linha_id_fkey":            {"alerta", "linha_id"},
	"alerta_etapa_id_fkey":            {"alerta", "etapa_id"},
}

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, db DB) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
