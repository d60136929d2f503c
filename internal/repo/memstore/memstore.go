// Package memstore is an in-memory repo.Transactor. Transactions are fully
// serialized and roll back by restoring a snapshot taken at begin.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prodline-labs/prodline-go/internal/domain"
	"github.com/prodline-labs/prodline-go/internal/repo"
)

type state struct {
	lines    map[int64]domain.Line
	stages   map[int64]domain.Stage
	products map[int64]domain.Product
	history  map[int64]domain.StageHistory
	alerts   map[int64]domain.Alert
	serials  map[string]int64
	nextID   int64
}

func newState() state {
	return state{
		lines:    map[int64]domain.Line{},
		stages:   map[int64]domain.Stage{},
		products: map[int64]domain.Product{},
		history:  map[int64]domain.StageHistory{},
		alerts:   map[int64]domain.Alert{},
		serials:  map[string]int64{},
	}
}

func (s state) clone() state {
	out := state{
		lines:    make(map[int64]domain.Line, len(s.lines)),
		stages:   make(map[int64]domain.Stage, len(s.stages)),
		products: make(map[int64]domain.Product, len(s.products)),
		history:  make(map[int64]domain.StageHistory, len(s.history)),
		alerts:   make(map[int64]domain.Alert, len(s.alerts)),
		serials:  make(map[string]int64, len(s.serials)),
		nextID:   s.nextID,
	}
	for k, v := range s.lines {
		out.lines[k] = v
	}
	for k, v := range s.stages {
		out.stages[k] = v
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.history {
		out.history[k] = v
	}
	for k, v := range s.alerts {
		out.alerts[k] = v
	}
	for k, v := range s.serials {
		out.serials[k] = v
	}
	return out
}

// Store holds the shared state. The zero value is not usable; call New.
type Store struct {
	mu    sync.Mutex
	state state
}

func New() *Store {
	return &Store{state: newState()}
}

// NewSeeded returns a store with lines and stages already present.
func NewSeeded(lines []domain.Line, stages []domain.Stage) *Store {
	s := New()
	for _, l := range lines {
		s.state.lines[l.ID] = l
	}
	for _, st := range stages {
		s.state.stages[st.ID] = st
	}
	return s
}

func (s *Store) InTx(ctx context.Context, _ repo.TxOptions, fn func(ctx context.Context, st repo.Store) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	tx := &txStore{state: &s.state}
	defer func() {
		if r := recover(); r != nil {
			s.state = snapshot
			panic(r)
		}
		if err != nil {
			s.state = snapshot
		}
	}()
	return fn(ctx, tx)
}

type txStore struct {
	state *state
}

func (t *txStore) id() int64 {
	t.state.nextID++
	return t.state.nextID
}

func missingRef(table, column string, id int64) error {
	return &repo.ReferenceError{Table: table, Column: column, Err: fmt.Errorf("no row with id %d", id)}
}

func ts(at time.Time) *time.Time {
	v := at.UTC()
	return &v
}

func (t *txStore) CreateProduct(_ context.Context, lineID int64, createdAt time.Time) (domain.Product, error) {
	if _, ok := t.state.lines[lineID]; !ok {
		return domain.Product{}, missingRef("produto", "linha_id", lineID)
	}
	p := domain.Product{ID: t.id(), LineID: lineID, Status: domain.ProductInProgress, CreatedAt: createdAt.UTC()}
	t.state.products[p.ID] = p
	return p, nil
}

func (t *txStore) GetProduct(_ context.Context, id int64) (domain.Product, error) {
	p, ok := t.state.products[id]
	if !ok {
		return domain.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (t *txStore) LockProductsOnLine(_ context.Context, lineID int64, statuses []domain.ProductStatus) ([]domain.Product, error) {
	want := make(map[domain.ProductStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	out := make([]domain.Product, 0)
	for _, p := range t.state.products {
		if p.LineID == lineID && want[p.Status] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *txStore) CompleteProduct(_ context.Context, id int64, at time.Time) (domain.Product, error) {
	p, ok := t.state.products[id]
	if !ok || p.Status == domain.ProductCompleted {
		return domain.Product{}, fmt.Errorf("complete product %d: %w", id, repo.ErrNotFound)
	}
	p.Status = domain.ProductCompleted
	p.CompletedAt = ts(at)
	t.state.products[id] = p
	return p, nil
}

func (t *txStore) LockLatestUnlabeled(_ context.Context, lineID int64) (domain.Product, error) {
	var (
		best  domain.Product
		found bool
	)
	for _, p := range t.state.products {
		if p.LineID != lineID || p.Status != domain.ProductCompleted || p.Serial != nil {
			continue
		}
		if !found || newerCompletion(p, best) {
			best, found = p, true
		}
	}
	if !found {
		return domain.Product{}, repo.ErrNotFound
	}
	return best, nil
}

func newerCompletion(a, b domain.Product) bool {
	switch {
	case a.CompletedAt == nil && b.CompletedAt == nil:
		return a.ID > b.ID
	case a.CompletedAt == nil:
		return false
	case b.CompletedAt == nil:
		return true
	case !a.CompletedAt.Equal(*b.CompletedAt):
		return a.CompletedAt.After(*b.CompletedAt)
	default:
		return a.ID > b.ID
	}
}

func (t *txStore) AssignSerial(_ context.Context, id int64, serial string) (domain.Product, error) {
	p, ok := t.state.products[id]
	if !ok || p.Serial != nil {
		return domain.Product{}, fmt.Errorf("assign serial to product %d: %w", id, repo.ErrNotFound)
	}
	if owner, taken := t.state.serials[serial]; taken {
		return domain.Product{}, fmt.Errorf("%w: produto_n_serie_key: serial held by product %d", repo.ErrDuplicate, owner)
	}
	v := serial
	p.Serial = &v
	t.state.products[id] = p
	t.state.serials[serial] = id
	return p, nil
}

func (t *txStore) CreateStageHistory(_ context.Context, productID int64, stageIDs []int64) ([]domain.StageHistory, error) {
	if _, ok := t.state.products[productID]; !ok {
		return nil, missingRef("historico_etapa", "produto_id", productID)
	}
	seen := map[int64]bool{}
	for _, h := range t.state.history {
		if h.ProductID == productID {
			seen[h.StageID] = true
		}
	}
	out := make([]domain.StageHistory, 0, len(stageIDs))
	for _, stageID := range stageIDs {
		if _, ok := t.state.stages[stageID]; !ok {
			return nil, missingRef("historico_etapa", "etapa_id", stageID)
		}
		if seen[stageID] {
			return nil, fmt.Errorf("insert stage history: %w: produto_id %d etapa_id %d", repo.ErrDuplicate, productID, stageID)
		}
		seen[stageID] = true
		h := domain.StageHistory{ID: t.id(), ProductID: productID, StageID: stageID}
		t.state.history[h.ID] = h
		out = append(out, h)
	}
	return out, nil
}

func (t *txStore) ListStageHistory(_ context.Context, productIDs []int64) ([]domain.StageHistory, error) {
	want := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		want[id] = true
	}
	out := make([]domain.StageHistory, 0)
	for _, h := range t.state.history {
		if want[h.ProductID] {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].StageID < out[j].StageID
	})
	return out, nil
}

func (t *txStore) findHistory(productID, stageID int64) (domain.StageHistory, bool) {
	for _, h := range t.state.history {
		if h.ProductID == productID && h.StageID == stageID {
			return h, true
		}
	}
	return domain.StageHistory{}, false
}

func (t *txStore) SetStageStarted(_ context.Context, productID, stageID int64, at time.Time) error {
	h, ok := t.findHistory(productID, stageID)
	if !ok || h.Started() {
		return fmt.Errorf("stage %d of product %d: %w", stageID, productID, repo.ErrNotFound)
	}
	h.StartedAt = ts(at)
	t.state.history[h.ID] = h
	return nil
}

func (t *txStore) SetStageFinished(_ context.Context, productID, stageID int64, at time.Time) error {
	h, ok := t.findHistory(productID, stageID)
	if !ok || !h.Occupied() {
		return fmt.Errorf("stage %d of product %d: %w", stageID, productID, repo.ErrNotFound)
	}
	h.FinishedAt = ts(at)
	t.state.history[h.ID] = h
	return nil
}

func (t *txStore) InsertAlert(_ context.Context, alert domain.Alert) (domain.Alert, error) {
	if _, ok := t.state.lines[alert.LineID]; !ok {
		return domain.Alert{}, missingRef("alerta", "linha_id", alert.LineID)
	}
	if alert.StageID != nil {
		if _, ok := t.state.stages[*alert.StageID]; !ok {
			return domain.Alert{}, missingRef("alerta", "etapa_id", *alert.StageID)
		}
		v := *alert.StageID
		alert.StageID = &v
	}
	if alert.Status == "" {
		alert.Status = domain.AlertOpen
	}
	alert.ID = t.id()
	alert.OpenedAt = alert.OpenedAt.UTC()
	alert.ClosedAt = nil
	t.state.alerts[alert.ID] = alert
	return alert, nil
}

func sameStage(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (t *txStore) LockLatestOpenAlert(_ context.Context, lineID int64, stageID *int64) (domain.Alert, error) {
	var (
		best  domain.Alert
		found bool
	)
	for _, a := range t.state.alerts {
		if a.LineID != lineID || a.Status != domain.AlertOpen || !sameStage(a.StageID, stageID) {
			continue
		}
		if !found || newerAlert(a, best) {
			best, found = a, true
		}
	}
	if !found {
		return domain.Alert{}, repo.ErrNotFound
	}
	return best, nil
}

func newerAlert(a, b domain.Alert) bool {
	if !a.OpenedAt.Equal(b.OpenedAt) {
		return a.OpenedAt.After(b.OpenedAt)
	}
	return a.ID > b.ID
}

func (t *txStore) ResolveAlert(_ context.Context, id int64, at time.Time) (domain.Alert, error) {
	a, ok := t.state.alerts[id]
	if !ok {
		return domain.Alert{}, fmt.Errorf("resolve alert %d: %w", id, repo.ErrNotFound)
	}
	a.ClosedAt = ts(at)
	a.Status = domain.AlertResolved
	t.state.alerts[id] = a
	return a, nil
}

func (t *txStore) ListAlerts(_ context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	out := make([]domain.Alert, 0)
	for _, a := range t.state.alerts {
		if filter.LineID > 0 && a.LineID != filter.LineID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return newerAlert(out[i], out[j]) })
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *txStore) UpsertLine(_ context.Context, line domain.Line) error {
	if line.ID <= 0 {
		return errors.New("line id must be positive")
	}
	t.state.lines[line.ID] = line
	return nil
}

func (t *txStore) UpsertStage(_ context.Context, stage domain.Stage) error {
	if stage.ID <= 0 {
		return errors.New("stage id must be positive")
	}
	t.state.stages[stage.ID] = stage
	return nil
}

func (t *txStore) ListLines(_ context.Context) ([]domain.Line, error) {
	out := make([]domain.Line, 0, len(t.state.lines))
	for _, l := range t.state.lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
