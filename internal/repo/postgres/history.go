package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/prodline-labs/prodline-go/internal/domain"
	"github.com/prodline-labs/prodline-go/internal/repo"
)

const historyColumns = `id, produto_id, etapa_id, inicio_ts, fim_ts`

const (
	insertStageHistoryQuery = `INSERT INTO historico_etapa (produto_id, etapa_id)
	 SELECT $1, stage_id FROM unnest($2::bigint[]) AS stage_id
	 RETURNING ` + historyColumns

	listStageHistoryQuery = `SELECT ` + historyColumns + `
	 FROM historico_etapa
	 WHERE produto_id = ANY($1)
	 ORDER BY produto_id ASC, etapa_id ASC`

	setStageStartedQuery = `UPDATE historico_etapa
	 SET inicio_ts = $3
	 WHERE produto_id = $1 AND etapa_id = $2 AND inicio_ts IS NULL`

	setStageFinishedQuery = `UPDATE historico_etapa
	 SET fim_ts = $3
	 WHERE produto_id = $1 AND etapa_id = $2 AND inicio_ts IS NOT NULL AND fim_ts IS NULL`
)

func (s *Store) CreateStageHistory(ctx context.Context, productID int64, stageIDs []int64) ([]domain.StageHistory, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, insertStageHistoryQuery, productID, stageIDs)
	if err != nil {
		return nil, fmt.Errorf("insert stage history: %w", mapError(err))
	}
	out, err := collect(rows, scanHistory)
	if err != nil {
		return nil, fmt.Errorf("insert stage history: %w", mapError(err))
	}
	return out, nil
}

func (s *Store) ListStageHistory(ctx context.Context, productIDs []int64) ([]domain.StageHistory, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if len(productIDs) == 0 {
		return []domain.StageHistory{}, nil
	}
	rows, err := s.db.QueryContext(ctx, listStageHistoryQuery, productIDs)
	if err != nil {
		return nil, fmt.Errorf("list stage history: %w", mapError(err))
	}
	return collect(rows, scanHistory)
}

func (s *Store) SetStageStarted(ctx context.Context, productID, stageID int64, at time.Time) error {
	return s.touchStage(ctx, setStageStartedQuery, productID, stageID, at)
}

func (s *Store) SetStageFinished(ctx context.Context, productID, stageID int64, at time.Time) error {
	return s.touchStage(ctx, setStageFinishedQuery, productID, stageID, at)
}

func (s *Store) touchStage(ctx context.Context, query string, productID, stageID int64, at time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, productID, stageID, normalizeTime(at))
	if err != nil {
		return fmt.Errorf("update stage %d of product %d: %w", stageID, productID, mapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("stage %d of product %d: %w", stageID, productID, repo.ErrNotFound)
	}
	return nil
}
