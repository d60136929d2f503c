package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prodline-labs/prodline-go/internal/domain"
)

const alertColumns = `id, linha_id, etapa_id, descricao, inicio_alerta_ts, fim_alerta_ts, status_alerta`

const (
	insertAlertQuery = `INSERT INTO alerta (linha_id, etapa_id, descricao, inicio_alerta_ts, status_alerta)
	 VALUES ($1, $2, $3, $4, $5)
	 RETURNING ` + alertColumns

	lockLatestOpenAlertQuery = `SELECT ` + alertColumns + `
	 FROM alerta
	 WHERE linha_id = $1 AND etapa_id IS NOT DISTINCT FROM $2 AND status_alerta = $3
	 ORDER BY inicio_alerta_ts DESC, id DESC
	 LIMIT 1
	 FOR UPDATE`

	resolveAlertQuery = `UPDATE alerta
	 SET fim_alerta_ts = $2, status_alerta = $3
	 WHERE id = $1
	 RETURNING ` + alertColumns

	listAlertsBaseQuery = `SELECT ` + alertColumns + ` FROM alerta`

	defaultAlertLimit = 100
	maxAlertLimit     = 500
)

func (s *Store) InsertAlert(ctx context.Context, alert domain.Alert) (domain.Alert, error) {
	if err := s.ready(); err != nil {
		return domain.Alert{}, err
	}
	status := alert.Status
	if status == "" {
		status = domain.AlertOpen
	}
	row := s.db.QueryRowContext(ctx, insertAlertQuery,
		alert.LineID,
		alert.StageID,
		alert.Description,
		normalizeTime(alert.OpenedAt),
		string(status),
	)
	a, err := scanAlert(row)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("insert alert: %w", mapError(err))
	}
	return a, nil
}

func (s *Store) LockLatestOpenAlert(ctx context.Context, lineID int64, stageID *int64) (domain.Alert, error) {
	if err := s.ready(); err != nil {
		return domain.Alert{}, err
	}
	a, err := scanAlert(s.db.QueryRowContext(ctx, lockLatestOpenAlertQuery, lineID, stageID, string(domain.AlertOpen)))
	if err != nil {
		return domain.Alert{}, mapError(err)
	}
	return a, nil
}

func (s *Store) ResolveAlert(ctx context.Context, id int64, at time.Time) (domain.Alert, error) {
	if err := s.ready(); err != nil {
		return domain.Alert{}, err
	}
	a, err := scanAlert(s.db.QueryRowContext(ctx, resolveAlertQuery, id, normalizeTime(at), string(domain.AlertResolved)))
	if err != nil {
		return domain.Alert{}, fmt.Errorf("resolve alert %d: %w", id, mapError(err))
	}
	return a, nil
}

func (s *Store) ListAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	query, args := buildListAlertsQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", mapError(err))
	}
	return collect(rows, scanAlert)
}

func buildListAlertsQuery(filter domain.AlertFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.LineID > 0 {
		args = append(args, filter.LineID)
		where = append(where, fmt.Sprintf("linha_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status_alerta = $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}
	args = append(args, limit)

	var b strings.Builder
	b.WriteString(listAlertsBaseQuery)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY inicio_alerta_ts DESC, id DESC LIMIT $%d", len(args))
	return b.String(), args
}
