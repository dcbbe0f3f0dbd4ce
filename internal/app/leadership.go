package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/clashintel/internal/adapters/repository"
	"github.com/okian/clashintel/internal/domain/model"
	"github.com/okian/clashintel/pkg/logger"
)

// stamp returns raw when it parses as a date, the current time when raw is
// empty, and ErrInvalidDate otherwise.
func (s *Service) stamp(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.now().UTC().Format(time.RFC3339), nil
	}
	if _, ok := model.ParseDate(raw); !ok {
		return "", fmt.Errorf("%w: %q", model.ErrInvalidDate, raw)
	}
	return raw, nil
}

// persist stores one leadership record and drops the player's cached view.
func (s *Service) persist(ctx context.Context, op, tag string, save func(repository.Store) error) error {
	store, profiles, err := s.deps()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := save(store); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	profiles.Invalidate(tag)
	s.logger.Info(ctx, "leadership record added", logger.String("op", op), logger.String("tag", tag))
	return nil
}

// AddNote records a leadership note.
func (s *Service) AddNote(ctx context.Context, n model.Note) (model.Note, error) {
	const op = "service.add_note"
	tag, err := model.NormalizeTag(n.PlayerTag)
	if err != nil {
		return model.Note{}, fmt.Errorf("%s: %w", op, err)
	}
	if n.Text = strings.TrimSpace(n.Text); n.Text == "" {
		return model.Note{}, fmt.Errorf("%s: %w: empty note", op, model.ErrInvalidRecord)
	}
	if n.CreatedAt, err = s.stamp(n.CreatedAt); err != nil {
		return model.Note{}, fmt.Errorf("%s: %w", op, err)
	}
	n.ID, n.PlayerTag = uuid.NewString(), tag

	return n, s.persist(ctx, op, tag, func(st repository.Store) error { return st.AddNote(ctx, n) })
}

// AddWarning records a leadership warning. New warnings are active.
func (s *Service) AddWarning(ctx context.Context, w model.Warning) (model.Warning, error) {
	const op = "service.add_warning"
	tag, err := model.NormalizeTag(w.PlayerTag)
	if err != nil {
		return model.Warning{}, fmt.Errorf("%s: %w", op, err)
	}
	if w.Text = strings.TrimSpace(w.Text); w.Text == "" {
		return model.Warning{}, fmt.Errorf("%s: %w: empty warning", op, model.ErrInvalidRecord)
	}
	if w.CreatedAt, err = s.stamp(w.CreatedAt); err != nil {
		return model.Warning{}, fmt.Errorf("%s: %w", op, err)
	}
	w.ID, w.PlayerTag = uuid.NewString(), tag

	return w, s.persist(ctx, op, tag, func(st repository.Store) error { return st.AddWarning(ctx, w) })
}

// AddMovement records a clan join, departure or return.
func (s *Service) AddMovement(ctx context.Context, m model.Movement) (model.Movement, error) {
	const op = "service.add_movement"
	tag, err := model.NormalizeTag(m.PlayerTag)
	if err != nil {
		return model.Movement{}, fmt.Errorf("%s: %w", op, err)
	}
	if !slices.Contains([]string{model.MovementJoined, model.MovementDeparted, model.MovementReturned}, m.Type) {
		return model.Movement{}, fmt.Errorf("%s: %w: movement type %q", op, model.ErrInvalidRecord, m.Type)
	}
	if m.OccurredAt, err = s.stamp(m.OccurredAt); err != nil {
		return model.Movement{}, fmt.Errorf("%s: %w", op, err)
	}
	m.ID, m.PlayerTag = uuid.NewString(), tag

	return m, s.persist(ctx, op, tag, func(st repository.Store) error { return st.AddMovement(ctx, m) })
}

// AddTenureAction records tenure being granted or revoked.
func (s *Service) AddTenureAction(ctx context.Context, a model.TenureAction) (model.TenureAction, error) {
	const op = "service.add_tenure"
	tag, err := model.NormalizeTag(a.PlayerTag)
	if err != nil {
		return model.TenureAction{}, fmt.Errorf("%s: %w", op, err)
	}
	if a.Action != model.TenureGranted && a.Action != model.TenureRevoked {
		return model.TenureAction{}, fmt.Errorf("%s: %w: tenure action %q", op, model.ErrInvalidRecord, a.Action)
	}
	if a.OccurredAt, err = s.stamp(a.OccurredAt); err != nil {
		return model.TenureAction{}, fmt.Errorf("%s: %w", op, err)
	}
	a.ID, a.PlayerTag = uuid.NewString(), tag

	return a, s.persist(ctx, op, tag, func(st repository.Store) error { return st.AddTenureAction(ctx, a) })
}

// AddJoinerEvent records a detected or reviewed joiner. Status defaults to new.
func (s *Service) AddJoinerEvent(ctx context.Context, j model.JoinerEvent) (model.JoinerEvent, error) {
	const op = "service.add_joiner_event"
	tag, err := model.NormalizeTag(j.PlayerTag)
	if err != nil {
		return model.JoinerEvent{}, fmt.Errorf("%s: %w", op, err)
	}
	if j.Status == "" {
		j.Status = model.JoinerNew
	}
	if j.Status != model.JoinerNew && j.Status != model.JoinerReviewed {
		return model.JoinerEvent{}, fmt.Errorf("%s: %w: joiner status %q", op, model.ErrInvalidRecord, j.Status)
	}
	if j.DetectedAt, err = s.stamp(j.DetectedAt); err != nil {
		return model.JoinerEvent{}, fmt.Errorf("%s: %w", op, err)
	}
	j.ID, j.PlayerTag = uuid.NewString(), tag

	return j, s.persist(ctx, op, tag, func(st repository.Store) error { return st.AddJoinerEvent(ctx, j) })
}
