package domain

import "time"

// StageHistory is a product's occupancy record for one stage.
type StageHistory struct {
	ID         int64
	ProductID  int64
	StageID    int64
	StartedAt  *time.Time
	FinishedAt *time.Time
}

func (h StageHistory) Started() bool {
	return h.StartedAt != nil
}

func (h StageHistory) Finished() bool {
	return h.FinishedAt != nil
}

// Occupied reports a started, unfinished stage.
func (h StageHistory) Occupied() bool {
	return h.Started() && !h.Finished()
}
