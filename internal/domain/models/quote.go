package models

import "time"

// DateLayout is the dd/mm/yyyy format quotes are stored with.
const DateLayout = "02/01/2006"

// Quote is one priced cutting job.
type Quote struct {
	ClientName    FixedString
	ClientNumber  int32
	Date          FixedString
	Product       FixedString
	Material      FixedString
	Thickness     float64 // mm
	Width         float64 // cm
	Height        float64 // cm
	SheetPrice    float64
	LaborCost     float64
	MarginPercent float64
	TotalPrice    float64
}

// ParsedDate parses the stored date text.
func (q Quote) ParsedDate() (time.Time, error) {
	return time.Parse(DateLayout, q.Date.String())
}
