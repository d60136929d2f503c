// Package analytics derives cycle and idle times from a product's stage
// history.
package analytics

import (
	"sort"
	"time"

	"github.com/prodline-labs/prodline-go/internal/domain"
)

// StageTiming is the analysis of one history row.
type StageTiming struct {
	StageID    int64
	StageName  string
	Position   int
	StartedAt  *time.Time
	FinishedAt *time.Time
	// Duration is nil unless both timestamps are present.
	Duration *time.Duration
	// Idle is the wait between the previous row's finish and this row's
	// start, zero when either is missing.
	Idle time.Duration
}

// Analysis is the per-stage timing of one product plus its totals. Totals
// only count rows that have both timestamps.
type Analysis struct {
	ProductID  int64
	Stages     []StageTiming
	TotalIdle  time.Duration
	TotalCycle time.Duration
}

func (a Analysis) TotalIdleSeconds() float64 {
	return a.TotalIdle.Seconds()
}

func (a Analysis) TotalCycleSeconds() float64 {
	return a.TotalCycle.Seconds()
}

// Compute analyzes rows of a single product. Rows are ordered by configured
// stage position; rows for stages outside seq follow, ordered by stage id.
func Compute(seq domain.StageSequence, productID int64, rows []domain.StageHistory) Analysis {
	ordered := make([]domain.StageHistory, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, ki := position(seq, ordered[i].StageID)
		pj, kj := position(seq, ordered[j].StageID)
		if ki != kj {
			return ki
		}
		if ki {
			return pi < pj
		}
		return ordered[i].StageID < ordered[j].StageID
	})

	out := Analysis{ProductID: productID, Stages: make([]StageTiming, 0, len(ordered))}
	var prevFinish *time.Time
	for _, row := range ordered {
		timing := StageTiming{
			StageID:    row.StageID,
			StartedAt:  row.StartedAt,
			FinishedAt: row.FinishedAt,
		}
		if stage, ok := seq.ByID(row.StageID); ok {
			timing.StageName = stage.Name
			timing.Position = stage.Position
		}
		if row.StartedAt != nil && row.FinishedAt != nil {
			d := row.FinishedAt.Sub(*row.StartedAt)
			timing.Duration = &d
			out.TotalCycle += d
		}
		if prevFinish != nil && row.StartedAt != nil {
			timing.Idle = row.StartedAt.Sub(*prevFinish)
			out.TotalIdle += timing.Idle
		}
		prevFinish = row.FinishedAt
		out.Stages = append(out.Stages, timing)
	}
	return out
}

func position(seq domain.StageSequence, stageID int64) (int, bool) {
	stage, ok := seq.ByID(stageID)
	if !ok {
		return 0, false
	}
	return stage.Position, true
}
