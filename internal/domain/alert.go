package domain

import (
	"fmt"
	"time"
)

// AlertStatus values are stored verbatim in alerta.status_alerta.
type AlertStatus string

const (
	AlertOpen     AlertStatus = "Aberto"
	AlertResolved AlertStatus = "Resolvido"
)

func (s AlertStatus) Valid() bool {
	return s == AlertOpen || s == AlertResolved
}

// Alert is scoped to a line and, optionally, one of its stages.
type Alert struct {
	ID          int64
	LineID      int64
	StageID     *int64
	Description string
	OpenedAt    time.Time
	ClosedAt    *time.Time
	Status      AlertStatus
}

// AlertFilter narrows ListAlerts. A zero LineID or Status does not filter;
// a zero Limit means the store default.
type AlertFilter struct {
	LineID int64
	Status AlertStatus
	Limit  int
}

// DefaultAlertDescription is used when an alert is opened without text.
func DefaultAlertDescription(lineID int64, stageID *int64) string {
	if stageID == nil {
		return fmt.Sprintf("Alerta na linha %d", lineID)
	}
	return fmt.Sprintf("Alerta na linha %d, etapa %d", lineID, *stageID)
}
