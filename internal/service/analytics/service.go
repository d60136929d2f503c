package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/prodline-labs/prodline-go/internal/domain"
	"github.com/prodline-labs/prodline-go/internal/repo"
)

// Service answers cycle and idle time queries from stage history.
type Service struct {
	tx     repo.Transactor
	stages domain.StageSequence
}

func New(tx repo.Transactor, stages domain.StageSequence) (*Service, error) {
	if tx == nil {
		return nil, errors.New("transactor is required")
	}
	if stages.Len() == 0 {
		return nil, errors.New("stage sequence is empty")
	}
	return &Service{tx: tx, stages: stages}, nil
}

// AnalyzeProduct reads the product's history in a read-only transaction.
func (s *Service) AnalyzeProduct(ctx context.Context, productID int64) (Analysis, error) {
	if productID < 1 {
		return Analysis{}, domain.NewValidationError("Erro de validação", map[string]string{
			"produtoId": "produtoId must be a positive integer",
		})
	}
	var rows []domain.StageHistory
	err := s.tx.InTx(ctx, repo.TxOptions{ReadOnly: true}, func(ctx context.Context, st repo.Store) error {
		var err error
		rows, err = st.ListStageHistory(ctx, []int64{productID})
		return err
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("list stage history for product %d: %w", productID, err)
	}
	if len(rows) == 0 {
		return Analysis{}, domain.Wrap(domain.ErrProductNotFound, "Produto não encontrado ou sem histórico para análise.")
	}
	return Compute(s.stages, productID, rows), nil
}
