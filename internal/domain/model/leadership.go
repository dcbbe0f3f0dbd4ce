package model

// Movement types.
const (
	MovementJoined   = "joined"
	MovementDeparted = "departed"
	MovementReturned = "returned"
)

// Tenure actions.
const (
	TenureGranted = "granted"
	TenureRevoked = "revoked"
)

// Joiner review statuses.
const (
	JoinerNew      = "new"
	JoinerReviewed = "reviewed"
)

// Movement records a player joining, leaving or returning to the clan.
type Movement struct {
	ID         string `json:"id"`
	PlayerTag  string `json:"playerTag"`
	Type       string `json:"type"`
	OccurredAt string `json:"occurredAt"`
	Reason     string `json:"reason,omitempty"`
	RecordedBy string `json:"recordedBy,omitempty"`
}

// TenureAction records tenure being granted or revoked.
type TenureAction struct {
	ID         string `json:"id"`
	PlayerTag  string `json:"playerTag"`
	Action     string `json:"action"`
	OccurredAt string `json:"occurredAt"`
	Reason     string `json:"reason,omitempty"`
	RecordedBy string `json:"recordedBy,omitempty"`
}

// Warning is a leadership warning. Active warnings have not been cleared.
type Warning struct {
	ID        string `json:"id"`
	PlayerTag string `json:"playerTag"`
	Text      string `json:"text"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"createdAt"`
	CreatedBy string `json:"createdBy,omitempty"`
}

// Note is a free-form leadership note.
type Note struct {
	ID        string `json:"id"`
	PlayerTag string `json:"playerTag"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
	CreatedBy string `json:"createdBy,omitempty"`
}

// JoinerEvent is emitted when a new member is detected on the roster.
type JoinerEvent struct {
	ID         string `json:"id"`
	PlayerTag  string `json:"playerTag"`
	Status     string `json:"status"`
	DetectedAt string `json:"detectedAt"`
	Summary    string `json:"summary,omitempty"`
}

// LeadershipRecords groups a player's auxiliary leadership collections.
type LeadershipRecords struct {
	Movements     []Movement     `json:"movements"`
	TenureActions []TenureAction `json:"tenureActions"`
	Warnings      []Warning      `json:"warnings"`
	Notes         []Note         `json:"notes"`
	JoinerEvents  []JoinerEvent  `json:"joinerEvents"`
}

// Empty reports whether there are no records of any kind.
func (r LeadershipRecords) Empty() bool {
	return len(r.Movements)+len(r.TenureActions)+len(r.Warnings)+len(r.Notes)+len(r.JoinerEvents) == 0
}
