package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/dance-battle/models"
	"github.com/lib/pq"
)

var (
	ErrScoreOutOfRange       = errors.New("score value out of range")
	ErrScoreInvalidReference = errors.New("score references a missing tournament, participant or judge")
)

type ScoreRepository interface {
	// Upsert создаёт оценку или заменяет значение существующей для (participant, judge, tournament).
	Upsert(ctx context.Context, exec SQLExecutor, score *models.Score) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Score, error)
	DeleteByParticipants(ctx context.Context, exec SQLExecutor, participantIDs []int) (int64, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresScoreRepository struct {
	db *sql.DB
}

func NewPostgresScoreRepository(db *sql.DB) ScoreRepository {
	return &postgresScoreRepository{db: db}
}

func (r *postgresScoreRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresScoreRepository) Upsert(ctx context.Context, exec SQLExecutor, s *models.Score) error {
	query := `
		INSERT INTO scores (tournament_id, participant_id, judge_id, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (participant_id, judge_id, tournament_id)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		s.TournamentID, s.ParticipantID, s.JudgeID, s.Value,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if pqErr, ok := asPQError(err); ok {
			switch pqErr.Code {
			case pqCheckViolation:
				return ErrScoreOutOfRange
			case pqForeignKeyViolation:
				return ErrScoreInvalidReference
			}
		}
		return fmt.Errorf("failed to upsert score: %w", err)
	}
	return nil
}

func (r *postgresScoreRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Score, error) {
	query := `
		SELECT id, tournament_id, participant_id, judge_id, value, created_at, updated_at
		FROM scores
		WHERE tournament_id = $1
		ORDER BY participant_id ASC, judge_id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	scores := make([]*models.Score, 0)
	for rows.Next() {
		s := &models.Score{}
		if err := rows.Scan(&s.ID, &s.TournamentID, &s.ParticipantID, &s.JudgeID, &s.Value, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

func (r *postgresScoreRepository) DeleteByParticipants(ctx context.Context, exec SQLExecutor, participantIDs []int) (int64, error) {
	if len(participantIDs) == 0 {
		return 0, nil
	}
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM scores WHERE participant_id = ANY($1)`, pq.Array(participantIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to delete scores: %w", err)
	}
	return result.RowsAffected()
}

func (r *postgresScoreRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	if _, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM scores WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete scores for tournament %d: %w", tournamentID, err)
	}
	return nil
}
