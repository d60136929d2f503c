package tracking

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/prodline-labs/prodline-go/internal/domain"
)

var (
	ErrInvalidTransition = errors.New("invalid stage transition")
	ErrBrokenChain       = errors.New("stage history breaks completion chain")
	ErrIncompleteHistory = errors.New("stage history does not match stage sequence")
)

// Track is a product together with its history rows ordered by stage
// position.
type Track struct {
	Product domain.Product
	rows    []domain.StageHistory
}

// NewTrack orders history by seq and checks the chain. Every configured
// stage must have exactly one row and no row may reference an unknown stage.
func NewTrack(seq domain.StageSequence, product domain.Product, history []domain.StageHistory) (Track, error) {
	if len(history) != seq.Len() {
		return Track{}, fmt.Errorf("product %d: %w: %d rows for %d stages", product.ID, ErrIncompleteHistory, len(history), seq.Len())
	}
	rows := make([]domain.StageHistory, seq.Len())
	filled := make([]bool, seq.Len())
	for _, h := range history {
		if h.ProductID != product.ID {
			return Track{}, fmt.Errorf("product %d: history row %d belongs to product %d", product.ID, h.ID, h.ProductID)
		}
		stage, ok := seq.ByID(h.StageID)
		if !ok {
			return Track{}, fmt.Errorf("product %d: %w: unknown stage id %d", product.ID, ErrIncompleteHistory, h.StageID)
		}
		i := stage.Position - 1
		if filled[i] {
			return Track{}, fmt.Errorf("product %d: %w: stage id %d repeated", product.ID, ErrIncompleteHistory, h.StageID)
		}
		rows[i] = h
		filled[i] = true
	}
	t := Track{Product: product, rows: rows}
	if err := t.Validate(); err != nil {
		return Track{}, err
	}
	return t, nil
}

func (t Track) Len() int {
	return len(t.rows)
}

// Row returns the history row at a 1-based stage position.
func (t Track) Row(position int) (domain.StageHistory, bool) {
	if position < 1 || position > len(t.rows) {
		return domain.StageHistory{}, false
	}
	return t.rows[position-1], true
}

// Validate checks the prefix-completion chain.
func (t Track) Validate() error {
	for i, row := range t.rows {
		if row.Finished() && !row.Started() {
			return fmt.Errorf("product %d stage %d: %w: finished without start", t.Product.ID, i+1, ErrBrokenChain)
		}
		if i > 0 && row.Started() && !t.rows[i-1].Finished() {
			return fmt.Errorf("product %d stage %d: %w: started before stage %d finished", t.Product.ID, i+1, ErrBrokenChain, i)
		}
	}
	return nil
}

// CanStart reports whether position is the next stage to begin.
func (t Track) CanStart(position int) bool {
	row, ok := t.Row(position)
	if !ok || row.Started() {
		return false
	}
	if position == 1 {
		return true
	}
	prev, _ := t.Row(position - 1)
	return prev.Finished()
}

// Occupies reports whether the product is currently inside position.
func (t Track) Occupies(position int) bool {
	row, ok := t.Row(position)
	return ok && row.Occupied()
}

func (t *Track) Start(position int, at time.Time) (domain.StageHistory, error) {
	if !t.CanStart(position) {
		return domain.StageHistory{}, fmt.Errorf("product %d: start stage %d: %w", t.Product.ID, position, ErrInvalidTransition)
	}
	ts := at
	t.rows[position-1].StartedAt = &ts
	return t.rows[position-1], nil
}

func (t *Track) Finish(position int, at time.Time) (domain.StageHistory, error) {
	if !t.Occupies(position) {
		return domain.StageHistory{}, fmt.Errorf("product %d: finish stage %d: %w", t.Product.ID, position, ErrInvalidTransition)
	}
	ts := at
	t.rows[position-1].FinishedAt = &ts
	return t.rows[position-1], nil
}

// Rejected is a product whose history could not form a valid Track.
type Rejected struct {
	ProductID int64
	Err       error
}

// Build groups history by product and returns tracks ordered by product id.
// Products whose history fails NewTrack are left out and reported in
// rejected, so they never become transition candidates.
func Build(seq domain.StageSequence, products []domain.Product, history []domain.StageHistory) (tracks []Track, rejected []Rejected) {
	byProduct := make(map[int64][]domain.StageHistory, len(products))
	for _, h := range history {
		byProduct[h.ProductID] = append(byProduct[h.ProductID], h)
	}
	tracks = make([]Track, 0, len(products))
	for _, p := range products {
		t, err := NewTrack(seq, p, byProduct[p.ID])
		if err != nil {
			rejected = append(rejected, Rejected{ProductID: p.ID, Err: err})
			continue
		}
		tracks = append(tracks, t)
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Product.ID < tracks[j].Product.ID })
	sort.Slice(rejected, func(i, j int) bool { return rejected[i].ProductID < rejected[j].ProductID })
	return tracks, rejected
}
