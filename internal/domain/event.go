package domain

import "fmt"

// EventKind is the transition an event requests.
type EventKind string

const (
	EventStart EventKind = "start"
	EventStop  EventKind = "stop"
)

func (k EventKind) Valid() bool {
	return k == EventStart || k == EventStop
}

// Event is an inbound stage transition signal from the line.
type Event struct {
	Kind   EventKind
	Stage  int
	LineID int64
}

// Validate checks the event against the configured sequence.
func (e Event) Validate(seq StageSequence) error {
	fields := map[string]string{}
	if !e.Kind.Valid() {
		fields["tipo"] = "tipo must be one of: start stop"
	}
	if _, ok := seq.At(e.Stage); !ok {
		fields["etapa"] = fmt.Sprintf("etapa must be between 1 and %d", seq.Len())
	}
	if e.LineID < 1 {
		fields["linha_id"] = "linha_id must be at least 1"
	}
	if len(fields) > 0 {
		return NewValidationError("Erro de validação", fields)
	}
	return nil
}
