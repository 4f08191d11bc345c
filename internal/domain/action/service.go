package action

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/slog"
)

type Servicer interface {
	List(ctx context.Context, userID int, status string) ([]Action, error)
	Decide(ctx context.Context, userID int, id, decision string) (Action, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "action_service"),
	}
}

// List возвращает действия пользователя; пустой status - все действия
func (s *Service) List(ctx context.Context, userID int, status string) ([]Action, error) {
	st := Status(status)
	if st != "" && !st.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.repo.List(ctx, userID, st)
}

// Decide одобряет или отклоняет действие. Решение принимается один раз.
func (s *Service) Decide(ctx context.Context, userID int, id, decision string) (Action, error) {
	to := Status(decision)
	if to != StatusApproved && to != StatusRejected {
		return Action{}, fmt.Errorf("%w: %q", ErrInvalidStatus, decision)
	}

	a, err := s.repo.Decide(ctx, userID, id, to)
	if err == nil {
		s.log.Info("action decided", "action_id", id, "user_id", userID, "status", to)
		return a, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Action{}, fmt.Errorf("decide action: %w", err)
	}

	existing, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return Action{}, err
	}
	return existing, fmt.Errorf("%w: %s", ErrAlreadyDecided, existing.Status)
}
