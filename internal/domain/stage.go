package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Stage is one step of the manufacturing sequence. Position is 1-based and
// is what events refer to; ID is the stage's row identity.
type Stage struct {
	ID          int64
	Position    int
	Name        string
	Description string
}

// StageSequence is the ordered, immutable list of configured stages.
type StageSequence struct {
	stages []Stage
	byID   map[int64]int
}

// NewStageSequence validates stages and orders them by position. Positions
// must be exactly 1..N and ids unique and positive.
func NewStageSequence(stages []Stage) (StageSequence, error) {
	if len(stages) == 0 {
		return StageSequence{}, errors.New("at least one stage is required")
	}
	ordered := make([]Stage, len(stages))
	copy(ordered, stages)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	byID := make(map[int64]int, len(ordered))
	for i, s := range ordered {
		if s.Position != i+1 {
			return StageSequence{}, fmt.Errorf("stage positions must be contiguous from 1: got %d at index %d", s.Position, i)
		}
		if s.ID <= 0 {
			return StageSequence{}, fmt.Errorf("stage %d: id must be positive", s.Position)
		}
		if strings.TrimSpace(s.Name) == "" {
			return StageSequence{}, fmt.Errorf("stage %d: name is required", s.Position)
		}
		if _, dup := byID[s.ID]; dup {
			return StageSequence{}, fmt.Errorf("stage id %d is duplicated", s.ID)
		}
		byID[s.ID] = i
	}
	return StageSequence{stages: ordered, byID: byID}, nil
}

func (q StageSequence) Len() int {
	return len(q.stages)
}

// At returns the stage at a 1-based position.
func (q StageSequence) At(position int) (Stage, bool) {
	if position < 1 || position > len(q.stages) {
		return Stage{}, false
	}
	return q.stages[position-1], true
}

func (q StageSequence) ByID(id int64) (Stage, bool) {
	i, ok := q.byID[id]
	if !ok {
		return Stage{}, false
	}
	return q.stages[i], true
}

func (q StageSequence) IsFinal(position int) bool {
	return position == len(q.stages) && position > 0
}

func (q StageSequence) Stages() []Stage {
	out := make([]Stage, len(q.stages))
	copy(out, q.stages)
	return out
}

func (q StageSequence) IDs() []int64 {
	out := make([]int64, len(q.stages))
	for i, s := range q.stages {
		out[i] = s.ID
	}
	return out
}

// DefaultStages is the five-stage assembly sequence used when no stage file
// is configured.
func DefaultStages() []Stage {
	return []Stage{
		{ID: 1, Position: 1, Name: "1 - MONTAGEM DA CARCAÇA", Description: "Montagem da carcaça do produto"},
		{ID: 2, Position: 2, Name: "2 - MOTORIZAÇÃO DO CLIMATIZADOR", Description: "Motorização do climatizador"},
		{ID: 3, Position: 3, Name: "3 - INSPEÇÃO INICIAL", Description: "Inspeção inicial do produto"},
		{ID: 4, Position: 4, Name: "4 - FECHAMENTO DE ESTRUTURA", Description: "Fechamento da estrutura do produto"},
		{ID: 5, Position: 5, Name: "5 - ACABAMENTO", Description: "Acabamento do produto e embalagem"},
	}
}

// MustDefaultSequence panics only if DefaultStages is malformed.
func MustDefaultSequence() StageSequence {
	seq, err := NewStageSequence(DefaultStages())
	if err != nil {
		panic(err)
	}
	return seq
}
