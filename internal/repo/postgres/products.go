package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/prodline-labs/prodline-go/internal/domain"
)

const productColumns = `id, n_serie, linha_id, status_geral, data_criacao, data_conclusao`

const (
	insertProductQuery = `INSERT INTO produto (linha_id, status_geral, data_criacao)
	 VALUES ($1, $2, $3)
	 RETURNING ` + productColumns

	selectProductQuery = `SELECT ` + productColumns + `
	 FROM produto
	 WHERE id = $1`

	lockProductsOnLineQuery = `SELECT ` + productColumns + `
	 FROM produto
	 WHERE linha_id = $1 AND status_geral = ANY($2)
	 ORDER BY id ASC
	 FOR UPDATE`

	completeProductQuery = `UPDATE produto
	 SET status_geral = $2, data_conclusao = $3
	 WHERE id = $1 AND status_geral <> $2
	 RETURNING ` + productColumns

	lockLatestUnlabeledQuery = `SELECT ` + productColumns + `
	 FROM produto
	 WHERE status_geral = $1 AND n_serie IS NULL AND linha_id = $2
	 ORDER BY data_conclusao DESC NULLS LAST, id DESC
	 LIMIT 1
	 FOR UPDATE`

	assignSerialQuery = `UPDATE produto
	 SET n_serie = $2
	 WHERE id = $1 AND n_serie IS NULL
	 RETURNING ` + productColumns
)

func (s *Store) CreateProduct(ctx context.Context, lineID int64, createdAt time.Time) (domain.Product, error) {
	if err := s.ready(); err != nil {
		return domain.Product{}, err
	}
	row := s.db.QueryRowContext(ctx, insertProductQuery, lineID, string(domain.ProductInProgress), normalizeTime(createdAt))
	p, err := scanProduct(row)
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", mapError(err))
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	if err := s.ready(); err != nil {
		return domain.Product{}, err
	}
	p, err := scanProduct(s.db.QueryRowContext(ctx, selectProductQuery, id))
	if err != nil {
		return domain.Product{}, mapError(err)
	}
	return p, nil
}

func (s *Store) LockProductsOnLine(ctx context.Context, lineID int64, statuses []domain.ProductStatus) ([]domain.Product, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, string(st))
	}
	rows, err := s.db.QueryContext(ctx, lockProductsOnLineQuery, lineID, names)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", mapError(err))
	}
	return collect(rows, scanProduct)
}

func (s *Store) CompleteProduct(ctx context.Context, id int64, at time.Time) (domain.Product, error) {
	if err := s.ready(); err != nil {
		return domain.Product{}, err
	}
	p, err := scanProduct(s.db.QueryRowContext(ctx, completeProductQuery, id, string(domain.ProductCompleted), normalizeTime(at)))
	if err != nil {
		return domain.Product{}, fmt.Errorf("complete product %d: %w", id, mapError(err))
	}
	return p, nil
}

func (s *Store) LockLatestUnlabeled(ctx context.Context, lineID int64) (domain.Product, error) {
	if err := s.ready(); err != nil {
		return domain.Product{}, err
	}
	p, err := scanProduct(s.db.QueryRowContext(ctx, lockLatestUnlabeledQuery, string(domain.ProductCompleted), lineID))
	if err != nil {
		return domain.Product{}, mapError(err)
	}
	return p, nil
}

func (s *Store) AssignSerial(ctx context.Context, id int64, serial string) (domain.Product, error) {
	if err := s.ready(); err != nil {
		return domain.Product{}, err
	}
	p, err := scanProduct(s.db.QueryRowContext(ctx, assignSerialQuery, id, serial))
	if err != nil {
		return domain.Product{}, fmt.Errorf("assign serial to product %d: %w", id, mapError(err))
	}
	return p, nil
}
