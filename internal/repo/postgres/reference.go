package postgres

import (
	"context"
	"fmt"

	"github.com/prodline-labs/prodline-go/internal/domain"
)

const (
	upsertLineQuery = `INSERT INTO linha_producao (id, nome_linha, localizacao)
	 VALUES ($1, $2, $3)
	 ON CONFLICT (id) DO UPDATE SET nome_linha = EXCLUDED.nome_linha, localizacao = EXCLUDED.localizacao`

	upsertStageQuery = `INSERT INTO etapa (id, nome_etapa, descricao)
	 VALUES ($1, $2, $3)
	 ON CONFLICT (id) DO UPDATE SET nome_etapa = EXCLUDED.nome_etapa, descricao = EXCLUDED.descricao`

	listLinesQuery = `SELECT id, nome_linha, localizacao FROM linha_producao ORDER BY id ASC`

	// Explicit ids bypass the identity sequences; realign them after seeding.
	syncSequencesQuery = `SELECT
	 setval(pg_get_serial_sequence('linha_producao', 'id'), COALESCE((SELECT MAX(id) FROM linha_producao), 1)),
	 setval(pg_get_serial_sequence('etapa', 'id'), COALESCE((SELECT MAX(id) FROM etapa), 1))`
)

func (s *Store) UpsertLine(ctx context.Context, line domain.Line) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, upsertLineQuery, line.ID, line.Name, line.Location); err != nil {
		return fmt.Errorf("upsert line %d: %w", line.ID, mapError(err))
	}
	return nil
}

func (s *Store) UpsertStage(ctx context.Context, stage domain.Stage) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, upsertStageQuery, stage.ID, stage.Name, stage.Description); err != nil {
		return fmt.Errorf("upsert stage %d: %w", stage.ID, mapError(err))
	}
	return nil
}

func (s *Store) ListLines(ctx context.Context) ([]domain.Line, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, listLinesQuery)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	return collect(rows, func(row rowScanner) (domain.Line, error) {
		var l domain.Line
		err := row.Scan(&l.ID, &l.Name, &l.Location)
		return l, err
	})
}

// SyncSequences moves the id sequences past explicitly seeded rows.
func (s *Store) SyncSequences(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, syncSequencesQuery); err != nil {
		return fmt.Errorf("sync sequences: %w", err)
	}
	return nil
}
