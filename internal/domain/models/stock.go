package models

// StockEntry tracks the standard sheets on hand for one material/thickness pair.
type StockEntry struct {
	Material  FixedString
	Thickness float64
	Quantity  int32
}

// Matches reports whether the entry is the exact (material, thickness) pair.
func (e StockEntry) Matches(material string, thickness float64) bool {
	return e.Material.String() == material && e.Thickness == thickness
}

// DefaultStock is the seed inventory used until a stock file exists.
func DefaultStock() []StockEntry {
	return []StockEntry{
		{Material: MustFixedString("Comun", MaterialWidth), Thickness: 1.5, Quantity: 10},
		{Material: MustFixedString("Acero", MaterialWidth), Thickness: 2.0, Quantity: 5},
		{Material: MustFixedString("Galvanizada", MaterialWidth), Thickness: 1.8, Quantity: 8},
	}
}
