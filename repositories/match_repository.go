package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/dance-battle/models"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchPositionTaken     = errors.New("match already exists at this round and position")
	ErrMatchSlotOccupied      = errors.New("match slot already occupied")
	ErrMatchAlreadyResolved   = errors.New("match already has a winner")
	ErrMatchWinnerNotInMatch  = errors.New("match winner is not one of its participants")
	ErrMatchInvalidReference  = errors.New("match references a missing tournament or participant")
	ErrMatchInvalidSlotNumber = errors.New("match slot must be 1 or 2")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByRoundPositionForUpdate(ctx context.Context, exec SQLExecutor, tournamentID, round, position int) (*models.Match, error)
	// ListByTournament возвращает матчи в порядке (round, position).
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	// FindCurrent returns the lowest (round, position) match with both slots filled
	// and no winner, or ErrMatchNotFound.
	FindCurrent(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.Match, error)
	// FillSlot записывает участника в пустой слот; занятый слот даёт ErrMatchSlotOccupied.
	FillSlot(ctx context.Context, exec SQLExecutor, matchID, slot, participantID int) error
	// SetWinner ставит победителя только нерешённому матчу.
	SetWinner(ctx context.Context, exec SQLExecutor, matchID, winnerID int) error
	IncrementRematch(ctx context.Context, exec SQLExecutor, matchID int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, round, position, match_number,
	participant1_id, participant2_id, winner_id, rematch_count, created_at, updated_at`

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.Round, &m.Position, &m.MatchNumber,
		&m.Participant1ID, &m.Participant2ID, &m.WinnerID, &m.RematchCount, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.RefreshState()
	return m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches (tournament_id, round, position, match_number, participant1_id, participant2_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, rematch_count, created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		m.TournamentID, m.Round, m.Position, m.MatchNumber, m.Participant1ID, m.Participant2ID,
	).Scan(&m.ID, &m.RematchCount, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return r.handleMatchError(err)
	}
	m.RefreshState()
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT`+matchColumns+` FROM matches WHERE id = $1`, id)
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT`+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresMatchRepository) GetByRoundPositionForUpdate(ctx context.Context, exec SQLExecutor, tournamentID, round, position int) (*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1 AND round = $2 AND position = $3
		FOR UPDATE`
	return r.getOne(ctx, exec, query, tournamentID, round, position)
}

func (r *postgresMatchRepository) FindCurrent(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1
		  AND participant1_id IS NOT NULL
		  AND participant2_id IS NOT NULL
		  AND winner_id IS NULL
		ORDER BY round ASC, position ASC
		LIMIT 1`
	return r.getOne(ctx, exec, query, tournamentID)
}

func (r *postgresMatchRepository) getOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Match, error) {
	m, err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1
		ORDER BY round ASC, position ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) FillSlot(ctx context.Context, exec SQLExecutor, matchID, slot, participantID int) error {
	var query string
	switch slot {
	case 1:
		query = `UPDATE matches SET participant1_id = $1, updated_at = NOW() WHERE id = $2 AND participant1_id IS NULL`
	case 2:
		query = `UPDATE matches SET participant2_id = $1, updated_at = NOW() WHERE id = $2 AND participant2_id IS NULL`
	default:
		return ErrMatchInvalidSlotNumber
	}

	result, err := r.getExecutor(exec).ExecContext(ctx, query, participantID, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchSlotOccupied)
}

func (r *postgresMatchRepository) SetWinner(ctx context.Context, exec SQLExecutor, matchID, winnerID int) error {
	query := `UPDATE matches SET winner_id = $1, updated_at = NOW() WHERE id = $2 AND winner_id IS NULL`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, winnerID, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchAlreadyResolved)
}

func (r *postgresMatchRepository) IncrementRematch(ctx context.Context, exec SQLExecutor, matchID int) error {
	query := `UPDATE matches SET rematch_count = rematch_count + 1, updated_at = NOW() WHERE id = $1`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error) {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return 0, r.handleMatchError(err)
	}
	return result.RowsAffected()
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok {
		switch pqErr.Code {
		case pqUniqueViolation:
			if pqErr.Constraint == "matches_tournament_id_round_position_key" {
				return ErrMatchPositionTaken
			}
		case pqForeignKeyViolation:
			return ErrMatchInvalidReference
		case pqCheckViolation:
			if pqErr.Constraint == "matches_winner_in_match_check" {
				return ErrMatchWinnerNotInMatch
			}
		}
	}
	return err
}
