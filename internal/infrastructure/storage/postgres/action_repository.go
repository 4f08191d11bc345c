package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"spratt/internal/domain/action"
)

const actionColumns = `id::text, recording_id::text, user_id, action_type, title, description, status,
       metadata, created_at, decided_at`

type ActionRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewActionRepository(db *Storage, log *slog.Logger) *ActionRepository {
	return &ActionRepository{
		db:  db,
		log: log.With("component", "action_repository"),
	}
}

func (r *ActionRepository) List(ctx context.Context, userID int, status action.Status) ([]action.Action, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT `+actionColumns+` FROM actions
         WHERE user_id = $1 AND ($2::text = '' OR status = $2::text)
         ORDER BY created_at DESC`,
		userID, string(status))
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var result []action.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		result = append(result, a)
	}

	return result, rows.Err()
}

func (r *ActionRepository) Get(ctx context.Context, userID int, id string) (action.Action, error) {
	if _, err := uuid.Parse(id); err != nil {
		return action.Action{}, action.ErrNotFound
	}

	a, err := scanAction(r.db.Pool().QueryRow(ctx,
		`SELECT `+actionColumns+` FROM actions WHERE id = $1::uuid AND user_id = $2`,
		id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return action.Action{}, action.ErrNotFound
		}
		return action.Action{}, fmt.Errorf("select action: %w", err)
	}
	return a, nil
}

func (r *ActionRepository) Decide(ctx context.Context, userID int, id string, status action.Status) (action.Action, error) {
	if _, err := uuid.Parse(id); err != nil {
		return action.Action{}, action.ErrNotFound
	}

	a, err := scanAction(r.db.Pool().QueryRow(ctx,
		`UPDATE actions SET status = $3, decided_at = NOW()
         WHERE id = $1::uuid AND user_id = $2 AND status = $4
         RETURNING `+actionColumns,
		id, userID, string(status), string(action.StatusPending)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return action.Action{}, action.ErrNotFound
		}
		return action.Action{}, fmt.Errorf("update action: %w", err)
	}
	return a, nil
}

func scanAction(row pgx.Row) (action.Action, error) {
	var (
		a          action.Action
		actionType string
		status     string
	)
	err := row.Scan(
		&a.ID,
		&a.RecordingID,
		&a.UserID,
		&actionType,
		&a.Title,
		&a.Description,
		&status,
		&a.Metadata,
		&a.CreatedAt,
		&a.DecidedAt,
	)
	a.Type = action.Type(actionType)
	a.Status = action.Status(status)
	return a, err
}
