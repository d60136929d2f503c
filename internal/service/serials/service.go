// Package serials binds scanned serial numbers to completed products.
package serials

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

const maxSerialLength = 128

// Recorder counts association attempts by outcome.
type Recorder interface {
	SerialAssociated(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) SerialAssociated(string) {}

// Service assigns scanned serial numbers to the most recently completed
// unlabeled product of a line.
type Service struct {
	tx      repo.Transactor
	logger  *slog.Logger
	metrics Recorder
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
	return &Service{tx: tx, logger: logger, metrics: metrics}, nil
}

// Associate assigns serial to the most recently completed product on lineID
// that has none. The candidate row stays locked until the assignment commits,
// so concurrent calls never claim the same product.
func (s *Service) Associate(ctx context.Context, serial string, lineID int64) (product domain.Product, err error) {
	defer func() { s.metrics.SerialAssociated(domain.Outcome(err)) }()

	serial = strings.TrimSpace(serial)
	if err := validate(serial, lineID); err != nil {
		return domain.Product{}, err
	}

	start := time.Now()
	err = s.tx.InTx(ctx, repo.TxOptions{}, func(ctx context.Context, st repo.Store) error {
		candidate, err := st.LockLatestUnlabeled(ctx, lineID)
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Wrap(domain.ErrNoCompletedProductPending,
				"Nenhum produto concluído aguardando número de série foi encontrado.")
		}
		if err != nil {
			return fmt.Errorf("lock latest unlabeled product: %w", err)
		}
		product, err = st.AssignSerial(ctx, candidate.ID, serial)
		if errors.Is(err, repo.ErrDuplicate) {
			conflict := domain.Wrap(domain.ErrSerialAlreadyInUse, "O número de série '%s' já está em uso.", serial)
			conflict.Err = err
			return conflict
		}
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.Info("serial associated",
		"product_id", product.ID,
		"line_id", lineID,
		"serial", serial,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return product, nil
}

func validate(serial string, lineID int64) error {
	fields := map[string]string{}
	switch {
	case serial == "":
		fields["numero_serie"] = "numero_serie is required"
	case len(serial) > maxSerialLength:
		fields["numero_serie"] = fmt.Sprintf("numero_serie must be at most %d characters", maxSerialLength)
	}
	if lineID < 1 {
		fields["linha_id"] = "linha_id must be at least 1"
	}
	if len(fields) > 0 {
		return domain.NewValidationError("Erro de validação", fields)
	}
	return nil
}
