package domain

import "time"

// ProductStatus values are stored verbatim in produto.status_geral.
type ProductStatus string

const (
	ProductInProgress ProductStatus = "Em producao"
	ProductCompleted  ProductStatus = "Concluido"
	// ProductCancelled is representable but nothing assigns it yet.
	ProductCancelled ProductStatus = "Cancelado"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductInProgress, ProductCompleted, ProductCancelled:
		return true
	default:
		return false
	}
}

// Product is one physical unit moving through the stages of a line.
type Product struct {
	ID          int64
	Serial      *string
	LineID      int64
	Status      ProductStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

func (p Product) HasSerial() bool {
	return p.Serial != nil && *p.Serial != ""
}
