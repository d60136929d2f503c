// Package events applies start/stop stage events from the line to product
// stage history.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prodline-labs/prodline-go/internal/domain"
	"github.com/prodline-labs/prodline-go/internal/repo"
	"github.com/prodline-labs/prodline-go/internal/tracking"
)

// Recorder counts processed events by kind and outcome.
type Recorder interface {
	EventProcessed(kind, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) EventProcessed(string, string) {}

// Processor applies line events to product stage history. It is safe for
// concurrent use; all coordination happens in the store transaction.
type Processor struct {
	tx      repo.Transactor
	stages  domain.StageSequence
	logger  *slog.Logger
	metrics Recorder
	now     func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(p *Processor) {
		if r != nil {
			p.metrics = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

func New(tx repo.Transactor, stages domain.StageSequence, opts ...Option) (*Processor, error) {
	if tx == nil {
		return nil, errors.New("transactor is required")
	}
	if stages.Len() == 0 {
		return nil, errors.New("stage sequence is empty")
	}
	p := &Processor{
		tx:      tx,
		stages:  stages,
		logger:  slog.Default(),
		metrics: nopRecorder{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Result describes the product an event was applied to.
type Result struct {
	ProductID int64
	Event     domain.Event
	// Completed is set when a stop on the final stage finished the product.
	Completed bool
}

// Process applies ev in a single transaction. Stage 1 start creates a
// product; any other transition picks the lowest product id eligible for it.
func (p *Processor) Process(ctx context.Context, ev domain.Event) (res Result, err error) {
	defer func() { p.metrics.EventProcessed(kindLabel(ev.Kind), domain.Outcome(err)) }()

	if err := ev.Validate(p.stages); err != nil {
		return Result{}, err
	}
	at := p.now().UTC().Truncate(time.Microsecond)

	err = p.tx.InTx(ctx, repo.TxOptions{}, func(ctx context.Context, st repo.Store) error {
		var txErr error
		switch {
		case ev.Kind == domain.EventStart && ev.Stage == 1:
			res, txErr = p.createProduct(ctx, st, ev, at)
		case ev.Kind == domain.EventStart:
			res, txErr = p.advance(ctx, st, ev, at)
		default:
			res, txErr = p.stop(ctx, st, ev, at)
		}
		return txErr
	})
	if err != nil {
		return Result{}, err
	}

	p.logger.Info("stage event applied",
		"kind", string(ev.Kind),
		"stage", ev.Stage,
		"line_id", ev.LineID,
		"product_id", res.ProductID,
		"completed", res.Completed,
	)
	return res, nil
}

func (p *Processor) createProduct(ctx context.Context, st repo.Store, ev domain.Event, at time.Time) (Result, error) {
	product, err := st.CreateProduct(ctx, ev.LineID, at)
	if err != nil {
		if errors.Is(err, repo.ErrMissingReference) {
			notFound := domain.Wrap(domain.ErrLineNotFound, "Linha de produção %d não encontrada.", ev.LineID)
			notFound.Err = err
			return Result{}, notFound
		}
		return Result{}, err
	}
	rows, err := st.CreateStageHistory(ctx, product.ID, p.stages.IDs())
	if err != nil {
		return Result{}, fmt.Errorf("create stage history for product %d: %w", product.ID, err)
	}
	track, err := tracking.NewTrack(p.stages, product, rows)
	if err != nil {
		return Result{}, err
	}
	if err := p.startStage(ctx, st, &track, 1, at); err != nil {
		return Result{}, err
	}
	return Result{ProductID: product.ID, Event: ev}, nil
}

func (p *Processor) loadTracks(ctx context.Context, st repo.Store, lineID int64, statuses ...domain.ProductStatus) ([]tracking.Track, error) {
	products, err := st.LockProductsOnLine(ctx, lineID, statuses)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(products))
	for _, prod := range products {
		ids = append(ids, prod.ID)
	}
	history, err := st.ListStageHistory(ctx, ids)
	if err != nil {
		return nil, err
	}
	tracks, rejected := tracking.Build(p.stages, products, history)
	for _, r := range rejected {
		p.logger.ErrorContext(ctx, "product history is inconsistent, skipping",
			"product_id", r.ProductID,
			"line_id", lineID,
			"error", r.Err,
		)
	}
	return tracks, nil
}

func (p *Processor) advance(ctx context.Context, st repo.Store, ev domain.Event, at time.Time) (Result, error) {
	tracks, err := p.loadTracks(ctx, st, ev.LineID, domain.ProductInProgress)
	if err != nil {
		return Result{}, err
	}
	i, ok := tracking.SelectForStart(tracks, ev.Stage)
	if !ok {
		return Result{}, domain.Wrap(domain.ErrNoMatchingProduct,
			"Nenhum produto encontrado aguardando a etapa %d na linha %d.", ev.Stage, ev.LineID)
	}
	if err := p.startStage(ctx, st, &tracks[i], ev.Stage, at); err != nil {
		return Result{}, err
	}
	return Result{ProductID: tracks[i].Product.ID, Event: ev}, nil
}

func (p *Processor) stop(ctx context.Context, st repo.Store, ev domain.Event, at time.Time) (Result, error) {
	// Completed products cannot occupy a stage, so they are never locked here.
	tracks, err := p.loadTracks(ctx, st, ev.LineID, domain.ProductInProgress, domain.ProductCancelled)
	if err != nil {
		return Result{}, err
	}
	i, ok := tracking.SelectForStop(tracks, ev.Stage)
	if !ok {
		return Result{}, domain.Wrap(domain.ErrNoMatchingProduct,
			"Nenhum produto encontrado ocupando a etapa %d na linha %d.", ev.Stage, ev.LineID)
	}
	track := &tracks[i]
	row, err := track.Finish(ev.Stage, at)
	if err != nil {
		return Result{}, err
	}
	if err := track.Validate(); err != nil {
		return Result{}, err
	}
	if err := st.SetStageFinished(ctx, row.ProductID, row.StageID, at); err != nil {
		return Result{}, err
	}
	res := Result{ProductID: track.Product.ID, Event: ev}
	if p.stages.IsFinal(ev.Stage) {
		if _, err := st.CompleteProduct(ctx, track.Product.ID, at); err != nil {
			return Result{}, err
		}
		res.Completed = true
	}
	return res, nil
}

func (p *Processor) startStage(ctx context.Context, st repo.Store, track *tracking.Track, position int, at time.Time) error {
	row, err := track.Start(position, at)
	if err != nil {
		return err
	}
	if err := track.Validate(); err != nil {
		return err
	}
	return st.SetStageStarted(ctx, row.ProductID, row.StageID, at)
}

func kindLabel(k domain.EventKind) string {
	if !k.Valid() {
		return "invalid"
	}
	return string(k)
}
