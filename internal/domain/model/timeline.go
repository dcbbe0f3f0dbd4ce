package model

// Timeline item tones.
const (
	ToneDefault  = "default"
	TonePositive = "positive"
	ToneWarning  = "warning"
)

// TimelineItem is one rendered timeline entry.
type TimelineItem struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Tone        string `json:"tone"`
	Icon        string `json:"icon"`
}

// Milestone kinds.
const (
	MilestoneHero     = "hero"
	MilestoneDonation = "donation"
	MilestoneCapital  = "capital"
	MilestoneWar      = "war"
	MilestoneLegend   = "legend"
	MilestoneBuilder  = "builder"
	MilestoneLeague   = "league"
)

// MilestoneHighlight is a notable threshold crossing.
type MilestoneHighlight struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Detail      string `json:"detail"`
	DateISO     string `json:"dateIso"`
	DateDisplay string `json:"dateDisplay"`
}
