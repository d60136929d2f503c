package tracking

import (
	"errors"
	"testing"
	"time"

	"github.com/prodline-labs/prodline-go/internal/domain"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func ts(min int) *time.Time {
	v := t0.Add(time.Duration(min) * time.Minute)
	return &v
}

func history(productID int64, spans ...[2]*time.Time) []domain.StageHistory {
	out := make([]domain.StageHistory, 0, 5)
	for i := 0; i < 5; i++ {
		h := domain.StageHistory{ID: productID*10 + int64(i), ProductID: productID, StageID: int64(i + 1)}
		if i < len(spans) {
			h.StartedAt, h.FinishedAt = spans[i][0], spans[i][1]
		}
		out = append(out, h)
	}
	return out
}

func product(id int64) domain.Product {
	return domain.Product{ID: id, LineID: 1, Status: domain.ProductInProgress, CreatedAt: t0}
}

func TestNewTrack_OrdersRowsByPosition(t *testing.T) {
	seq := domain.MustDefaultSequence()
	rows := history(7, [2]*time.Time{ts(0), ts(1)}, [2]*time.Time{ts(2), nil})
	rows[0], rows[4] = rows[4], rows[0]

	track, err := NewTrack(seq, product(7), rows)
	if err != nil {
		t.Fatalf("NewTrack: %v", err)
	}
	for pos := 1; pos <= 5; pos++ {
		row, ok := track.Row(pos)
		if !ok || row.StageID != int64(pos) {
			t.Fatalf("position %d: got stage %d ok=%v", pos, row.StageID, ok)
		}
	}
	if !track.Occupies(2) || track.Occupies(1) {
		t.Fatalf("expected stage 2 occupied only")
	}
}

func TestNewTrack_RejectsMalformedHistory(t *testing.T) {
	seq := domain.MustDefaultSequence()
	cases := []struct {
		name string
		rows []domain.StageHistory
		want error
	}{
		{name: "missing row", rows: history(1)[:4], want: ErrIncompleteHistory},
		{name: "unknown stage", rows: func() []domain.StageHistory {
			h := history(1)
			h[3].StageID = 99
			return h
		}(), want: ErrIncompleteHistory},
		{name: "repeated stage", rows: func() []domain.StageHistory {
			h := history(1)
			h[3].StageID = 1
			return h
		}(), want: ErrIncompleteHistory},
		{name: "finish without start", rows: history(1, [2]*time.Time{nil, ts(1)}), want: ErrBrokenChain},
		{name: "start before previous finish", rows: history(1, [2]*time.Time{ts(0), nil}, [2]*time.Time{ts(1), nil}), want: ErrBrokenChain},
		{name: "gap in chain", rows: history(1, [2]*time.Time{ts(0), ts(1)}, [2]*time.Time{nil, nil}, [2]*time.Time{ts(3), nil}), want: ErrBrokenChain},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTrack(seq, product(1), tc.rows)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v, want %v", err, tc.want)
			}
		})
	}
}

func TestNewTrack_RejectsForeignRows(t *testing.T) {
	rows := history(1)
	rows[2].ProductID = 2
	if _, err := NewTrack(domain.MustDefaultSequence(), product(1), rows); err == nil {
		t.Fatalf("expected error for row owned by another product")
	}
}

func TestTrack_StartFinishWalk(t *testing.T) {
	seq := domain.MustDefaultSequence()
	track, err := NewTrack(seq, product(3), history(3))
	if err != nil {
		t.Fatalf("NewTrack: %v", err)
	}

	if track.CanStart(2) {
		t.Fatalf("stage 2 must not be startable before stage 1")
	}
	if _, err := track.Finish(1, t0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("finish before start: err=%v", err)
	}

	for pos := 1; pos <= seq.Len(); pos++ {
		row, err := track.Start(pos, t0.Add(time.Duration(pos)*time.Minute))
		if err != nil {
			t.Fatalf("start %d: %v", pos, err)
		}
		if row.StartedAt == nil || row.FinishedAt != nil {
			t.Fatalf("start %d: unexpected row %+v", pos, row)
		}
		if _, err := track.Start(pos, t0); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("double start %d: err=%v", pos, err)
		}
		if pos < seq.Len() && track.CanStart(pos+1) {
			t.Fatalf("stage %d startable while %d occupied", pos+1, pos)
		}
		if _, err := track.Finish(pos, t0.Add(time.Duration(pos)*time.Minute+30*time.Second)); err != nil {
			t.Fatalf("finish %d: %v", pos, err)
		}
		if err := track.Validate(); err != nil {
			t.Fatalf("validate after %d: %v", pos, err)
		}
	}
	for pos := 1; pos <= seq.Len(); pos++ {
		if track.Occupies(pos) || track.CanStart(pos) {
			t.Fatalf("stage %d still open after full walk", pos)
		}
	}
}

func TestBuild_SortsByProductID(t *testing.T) {
	seq := domain.MustDefaultSequence()
	var rows []domain.StageHistory
	rows = append(rows, history(9)...)
	rows = append(rows, history(4)...)
	tracks, rejected := Build(seq, []domain.Product{product(9), product(4)}, rows)
	if len(rejected) != 0 {
		t.Fatalf("Build rejected: %+v", rejected)
	}
	if len(tracks) != 2 || tracks[0].Product.ID != 4 || tracks[1].Product.ID != 9 {
		t.Fatalf("unexpected order: %+v", tracks)
	}
}

func TestBuild_SetsAsideMalformedProducts(t *testing.T) {
	seq := domain.MustDefaultSequence()
	var rows []domain.StageHistory
	rows = append(rows, history(1, [2]*time.Time{ts(0), nil})[:4]...)
	rows = append(rows, history(3, [2]*time.Time{ts(2), nil})...)
	broken := history(2, [2]*time.Time{nil, ts(1)})
	rows = append(rows, broken...)

	tracks, rejected := Build(seq, []domain.Product{product(3), product(2), product(1)}, rows)
	if len(tracks) != 1 || tracks[0].Product.ID != 3 {
		t.Fatalf("tracks=%+v, want only product 3", tracks)
	}
	if len(rejected) != 2 || rejected[0].ProductID != 1 || rejected[1].ProductID != 2 {
		t.Fatalf("rejected=%+v", rejected)
	}
	if !errors.Is(rejected[0].Err, ErrIncompleteHistory) || !errors.Is(rejected[1].Err, ErrBrokenChain) {
		t.Fatalf("rejected errors: %v / %v", rejected[0].Err, rejected[1].Err)
	}
	i, ok := SelectForStop(tracks, 1)
	if !ok || tracks[i].Product.ID != 3 {
		t.Fatalf("SelectForStop(1) = %d,%v", i, ok)
	}
}

func TestSelectForStart_LowestEligibleID(t *testing.T) {
	seq := domain.MustDefaultSequence()
	done := [2]*time.Time{ts(0), ts(1)}
	var rows []domain.StageHistory
	rows = append(rows, history(5, done)...)
	rows = append(rows, history(2, done)...)
	rows = append(rows, history(1, [2]*time.Time{ts(0), nil})...)
	tracks, rejected := Build(seq, []domain.Product{product(5), product(2), product(1)}, rows)
	if len(rejected) != 0 {
		t.Fatalf("Build rejected: %+v", rejected)
	}

	i, ok := SelectForStart(tracks, 2)
	if !ok || tracks[i].Product.ID != 2 {
		t.Fatalf("SelectForStart(2) = %d,%v", i, ok)
	}
	if _, ok := SelectForStart(tracks, 3); ok {
		t.Fatalf("no product has finished stage 2")
	}
}

func TestSelectForStart_SkipsNonProgressProducts(t *testing.T) {
	seq := domain.MustDefaultSequence()
	cancelled := product(1)
	cancelled.Status = domain.ProductCancelled
	tracks, rejected := Build(seq, []domain.Product{cancelled}, history(1, [2]*time.Time{ts(0), ts(1)}))
	if len(rejected) != 0 {
		t.Fatalf("Build rejected: %+v", rejected)
	}
	if _, ok := SelectForStart(tracks, 2); ok {
		t.Fatalf("cancelled product must not be advanced")
	}
}

func TestSelectForStop_LowestOccupyingID(t *testing.T) {
	seq := domain.MustDefaultSequence()
	var rows []domain.StageHistory
	rows = append(rows, history(8, [2]*time.Time{ts(0), nil})...)
	rows = append(rows, history(6, [2]*time.Time{ts(0), nil})...)
	rows = append(rows, history(3, [2]*time.Time{ts(0), ts(1)})...)
	tracks, rejected := Build(seq, []domain.Product{product(8), product(6), product(3)}, rows)
	if len(rejected) != 0 {
		t.Fatalf("Build rejected: %+v", rejected)
	}
	i, ok := SelectForStop(tracks, 1)
	if !ok || tracks[i].Product.ID != 6 {
		t.Fatalf("SelectForStop(1) = %d,%v", i, ok)
	}
	if _, ok := SelectForStop(tracks, 2); ok {
		t.Fatalf("nobody occupies stage 2")
	}
}
