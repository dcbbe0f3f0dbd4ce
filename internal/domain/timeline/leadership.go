package timeline

import (
	"strconv"
	"strings"
	"time"

	"github.com/okian/clashintel/internal/domain/model"
)

var movementDisplay = map[string]display{ //nolint:gochecknoglobals // fixed lookup
	model.MovementJoined:   {"Joined the clan", IconJoin, model.TonePositive},
	model.MovementDeparted: {"Departed the clan", IconDepart, model.ToneWarning},
	model.MovementReturned: {"Returned to the clan", IconReturn, model.TonePositive},
}

var tenureDisplay = map[string]display{ //nolint:gochecknoglobals // fixed lookup
	model.TenureGranted: {"Tenure granted", IconTenure, model.TonePositive},
	model.TenureRevoked: {"Tenure revoked", IconTenure, model.ToneWarning},
}

// recordID prefers the record's own id and falls back to its position.
func recordID(kind, id string, index int) string {
	if id != "" {
		return kind + "-" + id
	}
	return kind + "-" + strconv.Itoa(index)
}

// eventDate parses a record timestamp and returns it in a canonical form.
func eventDate(raw string) (string, time.Time, bool) {
	t, ok := model.ParseDate(raw)
	if !ok {
		return "", time.Time{}, false
	}
	if len(strings.TrimSpace(raw)) == len(model.DateLayout) {
		return t.Format(model.DateLayout), t, true
	}
	return t.Format(time.RFC3339), t, true
}

func withActor(text, actor string) string {
	if actor == "" {
		return text
	}
	return text + " (by " + actor + ")"
}

func movementItems(movements []model.Movement) []entry {
	out := make([]entry, 0, len(movements))
	for i, m := range movements {
		disp, ok := movementDisplay[strings.ToLower(m.Type)]
		if !ok {
			continue
		}
		date, at, ok := eventDate(m.OccurredAt)
		if !ok {
			continue
		}
		desc := m.Reason
		if desc == "" {
			desc = disp.title
		}
		out = append(out, entry{at: at, item: model.TimelineItem{
			ID:          recordID("movement", m.ID, i),
			Date:        date,
			Title:       disp.title,
			Description: withActor(desc, m.RecordedBy),
			Tone:        disp.tone,
			Icon:        disp.icon,
		}})
	}
	return out
}

func tenureItems(actions []model.TenureAction) []entry {
	out := make([]entry, 0, len(actions))
	for i, a := range actions {
		disp, ok := tenureDisplay[strings.ToLower(a.Action)]
		if !ok {
			continue
		}
		date, at, ok := eventDate(a.OccurredAt)
		if !ok {
			continue
		}
		desc := a.Reason
		if desc == "" {
			desc = disp.title
		}
		out = append(out, entry{at: at, item: model.TimelineItem{
			ID:          recordID("tenure", a.ID, i),
			Date:        date,
			Title:       disp.title,
			Description: withActor(desc, a.RecordedBy),
			Tone:        disp.tone,
			Icon:        disp.icon,
		}})
	}
	return out
}

func warningItems(warnings []model.Warning) []entry {
	out := make([]entry, 0, len(warnings))
	for i, w := range warnings {
		date, at, ok := eventDate(w.CreatedAt)
		if !ok {
			continue
		}
		title := "Warning (cleared)"
		if w.Active {
			title = "Active warning"
		}
		out = append(out, entry{at: at, item: model.TimelineItem{
			ID:          recordID("warning", w.ID, i),
			Date:        date,
			Title:       title,
			Description: withActor(w.Text, w.CreatedBy),
			Tone:        model.ToneWarning,
			Icon:        IconWarning,
		}})
	}
	return out
}

func noteItems(notes []model.Note) []entry {
	out := make([]entry, 0, len(notes))
	for i, n := range notes {
		if strings.TrimSpace(n.Text) == "" {
			continue
		}
		date, at, ok := eventDate(n.CreatedAt)
		if !ok {
			continue
		}
		out = append(out, entry{at: at, item: model.TimelineItem{
			ID:          recordID("note", n.ID, i),
			Date:        date,
			Title:       "Leadership note",
			Description: withActor(n.Text, n.CreatedBy),
			Tone:        model.ToneDefault,
			Icon:        IconNote,
		}})
	}
	return out
}

func joinerItems(events []model.JoinerEvent) []entry {
	out := make([]entry, 0, len(events))
	for i, j := range events {
		date, at, ok := eventDate(j.DetectedAt)
		if !ok {
			continue
		}
		disp := display{"New joiner detected", IconJoiner, model.TonePositive}
		desc := "Awaiting leadership review"
		if strings.EqualFold(j.Status, model.JoinerReviewed) {
			disp = display{"Joiner reviewed", IconNote, model.ToneDefault}
			desc = "Reviewed by leadership"
		}
		if j.Summary != "" {
			desc = j.Summary
		}
		out = append(out, entry{at: at, item: model.TimelineItem{
			ID:          recordID("joiner", j.ID, i),
			Date:        date,
			Title:       disp.title,
			Description: desc,
			Tone:        disp.tone,
			Icon:        disp.icon,
		}})
	}
	return out
}
