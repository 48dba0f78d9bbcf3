package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/dance-battle/models"
)

var (
	ErrVoteConflict         = errors.New("judge already voted in this match")
	ErrVoteInvalidReference = errors.New("vote references a missing match, judge or participant")
)

type VoteRepository interface {
	Create(ctx context.Context, exec SQLExecutor, vote *models.Vote) error
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Vote, error)
	DeleteByMatch(ctx context.Context, exec SQLExecutor, matchID int) (int64, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresVoteRepository struct {
	db *sql.DB
}

func NewPostgresVoteRepository(db *sql.DB) VoteRepository {
	return &postgresVoteRepository{db: db}
}

func (r *postgresVoteRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create полагается на UNIQUE(judge_id, match_id): повторный голос отклоняется атомарно.
func (r *postgresVoteRepository) Create(ctx context.Context, exec SQLExecutor, v *models.Vote) error {
	query := `
		INSERT INTO votes (match_id, judge_id, voted_for)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query, v.MatchID, v.JudgeID, v.VotedFor.ParticipantID).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		if pqErr, ok := asPQError(err); ok {
			switch pqErr.Code {
			case pqUniqueViolation:
				return ErrVoteConflict
			case pqForeignKeyViolation:
				return ErrVoteInvalidReference
			}
		}
		return fmt.Errorf("failed to create vote: %w", err)
	}
	return nil
}

func (r *postgresVoteRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Vote, error) {
	query := `
		SELECT id, match_id, judge_id, voted_for, created_at
		FROM votes
		WHERE match_id = $1
		ORDER BY id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes for match %d: %w", matchID, err)
	}
	defer rows.Close()

	votes := make([]*models.Vote, 0)
	for rows.Next() {
		v := &models.Vote{}
		if err := rows.Scan(&v.ID, &v.MatchID, &v.JudgeID, &v.VotedFor.ParticipantID, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func (r *postgresVoteRepository) DeleteByMatch(ctx context.Context, exec SQLExecutor, matchID int) (int64, error) {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM votes WHERE match_id = $1`, matchID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete votes for match %d: %w", matchID, err)
	}
	return result.RowsAffected()
}

func (r *postgresVoteRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	query := `DELETE FROM votes WHERE match_id IN (SELECT id FROM matches WHERE tournament_id = $1)`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, tournamentID); err != nil {
		return fmt.Errorf("failed to delete votes for tournament %d: %w", tournamentID, err)
	}
	return nil
}
