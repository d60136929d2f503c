// Package alerts opens and resolves line and stage alerts.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prodline-labs/prodline-go/internal/domain"
	"github.com/prodline-labs/prodline-go/internal/repo"
)

const (
	maxDescriptionLength = 500
	MaxListLimit         = 500
)

// Recorder counts alert opens and resolves by outcome.
type Recorder interface {
	AlertChanged(action, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) AlertChanged(string, string) {}

// Service opens, resolves and lists line and stage alerts.
type Service struct {
	tx      repo.Transactor
	logger  *slog.Logger
	metrics Recorder
	now     func() time.Time
}

func New(tx repo.Transactor, logger *slog.Logger, metrics Recorder) (*Service, error) {
	if tx == nil {
		return nil, errors.New("transactor is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Service{tx: tx, logger: logger, metrics: metrics, now: time.Now}, nil
}

// SetClock replaces the time source used for open and close timestamps.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Open records a new open alert. Several open alerts may coexist for the
// same line and stage.
func (s *Service) Open(ctx context.Context, lineID int64, stageID *int64, description string) (alert domain.Alert, err error) {
	defer func() { s.metrics.AlertChanged("open", domain.Outcome(err)) }()

	description = strings.TrimSpace(description)
	if err := validateScope(lineID, stageID); err != nil {
		return domain.Alert{}, err
	}
	if len(description) > maxDescriptionLength {
		return domain.Alert{}, domain.NewValidationError("Erro de validação", map[string]string{
			"descricao": fmt.Sprintf("descricao must be at most %d characters", maxDescriptionLength),
		})
	}
	if description == "" {
		description = domain.DefaultAlertDescription(lineID, stageID)
	}

	err = s.tx.InTx(ctx, repo.TxOptions{}, func(ctx context.Context, st repo.Store) error {
		var err error
		alert, err = st.InsertAlert(ctx, domain.Alert{
			LineID:      lineID,
			StageID:     stageID,
			Description: description,
			OpenedAt:    s.now().UTC().Truncate(time.Microsecond),
			Status:      domain.AlertOpen,
		})
		return err
	})
	if errors.Is(err, repo.ErrMissingReference) {
		notFound := domain.Wrap(domain.ErrLineNotFound, "Linha de produção %d não encontrada.", lineID)
		if stageID != nil && repo.MissingColumn(err) == "etapa_id" {
			notFound = domain.Wrap(domain.ErrStageNotFound, "Etapa %d não encontrada.", *stageID)
		}
		notFound.Err = err
		return domain.Alert{}, notFound
	}
	if err != nil {
		return domain.Alert{}, err
	}
	s.logger.Info("alert opened", "alert_id", alert.ID, "line_id", lineID, "stage_id", stageLabel(stageID))
	return alert, nil
}

// Resolve closes the most recently opened open alert for exactly (lineID,
// stageID). A nil stageID only matches line-scoped alerts.
func (s *Service) Resolve(ctx context.Context, lineID int64, stageID *int64) (alert domain.Alert, err error) {
	defer func() { s.metrics.AlertChanged("resolve", domain.Outcome(err)) }()

	if err := validateScope(lineID, stageID); err != nil {
		return domain.Alert{}, err
	}
	err = s.tx.InTx(ctx, repo.TxOptions{}, func(ctx context.Context, st repo.Store) error {
		open, err := st.LockLatestOpenAlert(ctx, lineID, stageID)
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Wrap(domain.ErrNoOpenAlert, "Nenhum alerta aberto encontrado para esta linha e etapa.")
		}
		if err != nil {
			return fmt.Errorf("lock open alert: %w", err)
		}
		alert, err = st.ResolveAlert(ctx, open.ID, s.now().UTC().Truncate(time.Microsecond))
		return err
	})
	if err != nil {
		return domain.Alert{}, err
	}
	s.logger.Info("alert resolved", "alert_id", alert.ID, "line_id", lineID, "stage_id", stageLabel(stageID))
	return alert, nil
}

// List returns alerts newest first.
func (s *Service) List(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	fields := map[string]string{}
	if filter.LineID < 0 {
		fields["linha_id"] = "linha_id must be at least 1"
	}
	if filter.Status != "" && !filter.Status.Valid() {
		fields["status"] = fmt.Sprintf("status must be one of: %s %s", domain.AlertOpen, domain.AlertResolved)
	}
	if filter.Limit < 0 || filter.Limit > MaxListLimit {
		fields["limit"] = fmt.Sprintf("limit must be between 1 and %d", MaxListLimit)
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError("Erro de validação", fields)
	}

	var out []domain.Alert
	err := s.tx.InTx(ctx, repo.TxOptions{ReadOnly: true}, func(ctx context.Context, st repo.Store) error {
		var err error
		out, err = st.ListAlerts(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return out, nil
}

func validateScope(lineID int64, stageID *int64) error {
	fields := map[string]string{}
	if lineID < 1 {
		fields["linha_id"] = "linha_id must be at least 1"
	}
	if stageID != nil && *stageID < 1 {
		fields["etapa_id"] = "etapa_id must be at least 1"
	}
	if len(fields) > 0 {
		return domain.NewValidationError("Erro de validação", fields)
	}
	return nil
}

func stageLabel(stageID *int64) any {
	if stageID == nil {
		return nil
	}
	return *stageID
}
