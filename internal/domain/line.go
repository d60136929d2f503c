package domain

// Line is a physical production line. Reference data.
type Line struct {
	ID       int64
	Name     string
	Location string
}

// DefaultLines are seeded when no line list is configured.
func DefaultLines() []Line {
	return []Line{
		{ID: 1, Name: "Linha 1", Location: "Galpão Superior"},
		{ID: 2, Name: "Linha 2", Location: "Galpão Superior"},
		{ID: 3, Name: "Linha 3", Location: "Galpão Superior"},
		{ID: 4, Name: "Linha 4", Location: "Galpão Inferior"},
		{ID: 5, Name: "Linha 5", Location: "Galpão Inferior"},
	}
}
