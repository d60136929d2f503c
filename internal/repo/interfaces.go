package repo

import (
	"context"
	"time"

	"github.com/prodline-labs/prodline-go/internal/domain"
)

// ProductRepository manages products. Lock methods take row locks that are
// held until the surrounding transaction ends.
type ProductRepository interface {
	CreateProduct(ctx context.Context, lineID int64, createdAt time.Time) (domain.Product, error)
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	// LockProductsOnLine locks every product on lineID whose status is in
	// statuses, ordered by id.
	LockProductsOnLine(ctx context.Context, lineID int64, statuses []domain.ProductStatus) ([]domain.Product, error)
	CompleteProduct(ctx context.Context, id int64, at time.Time) (domain.Product, error)
	// LockLatestUnlabeled locks the most recently completed product on lineID
	// that has no serial number.
	LockLatestUnlabeled(ctx context.Context, lineID int64) (domain.Product, error)
	AssignSerial(ctx context.Context, id int64, serial string) (domain.Product, error)
}

// StageHistoryRepository manages per-product stage rows.
type StageHistoryRepository interface {
	CreateStageHistory(ctx context.Context, productID int64, stageIDs []int64) ([]domain.StageHistory, error)
	ListStageHistory(ctx context.Context, productIDs []int64) ([]domain.StageHistory, error)
	// SetStageStarted and SetStageFinished return ErrNotFound when the row is
	// missing or already carries the timestamp.
	SetStageStarted(ctx context.Context, productID, stageID int64, at time.Time) error
	SetStageFinished(ctx context.Context, productID, stageID int64, at time.Time) error
}

// AlertRepository manages line alerts.
type AlertRepository interface {
	InsertAlert(ctx context.Context, alert domain.Alert) (domain.Alert, error)
	// LockLatestOpenAlert matches stageID exactly, nil matching only
	// line-scoped alerts.
	LockLatestOpenAlert(ctx context.Context, lineID int64, stageID *int64) (domain.Alert, error)
	ResolveAlert(ctx context.Context, id int64, at time.Time) (domain.Alert, error)
	ListAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error)
}

// ReferenceRepository seeds and reads lines and stages.
type ReferenceRepository interface {
	UpsertLine(ctx context.Context, line domain.Line) error
	UpsertStage(ctx context.Context, stage domain.Stage) error
	ListLines(ctx context.Context) ([]domain.Line, error)
}

// Store is the full repository surface visible inside a transaction.
type Store interface {
	ProductRepository
	StageHistoryRepository
	AlertRepository
	ReferenceRepository
}

// TxOptions configures a transaction started by a Transactor.
type TxOptions struct {
	ReadOnly bool
}

// Transactor runs fn atomically. A non-nil error from fn rolls back every
// write fn made.
type Transactor interface {
	InTx(ctx context.Context, opts TxOptions, fn func(ctx context.Context, s Store) error) error
}
