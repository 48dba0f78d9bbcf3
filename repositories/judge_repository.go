package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/dance-battle/models"
)

var (
	ErrJudgeNotFound          = errors.New("judge not found")
	ErrJudgeTournamentInvalid = errors.New("judge tournament conflict or invalid")
)

type JudgeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, judge *models.Judge) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Judge, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Judge, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresJudgeRepository struct {
	db *sql.DB
}

func NewPostgresJudgeRepository(db *sql.DB) JudgeRepository {
	return &postgresJudgeRepository{db: db}
}

func (r *postgresJudgeRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresJudgeRepository) Create(ctx context.Context, exec SQLExecutor, j *models.Judge) error {
	query := `
		INSERT INTO judges (tournament_id, name, image_url)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query, j.TournamentID, j.Name, j.ImageURL).Scan(&j.ID, &j.CreatedAt)
	if err != nil {
		if pqErr, ok := asPQError(err); ok && pqErr.Code == pqForeignKeyViolation {
			return ErrJudgeTournamentInvalid
		}
		return fmt.Errorf("failed to create judge: %w", err)
	}
	return nil
}

func (r *postgresJudgeRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Judge, error) {
	query := `SELECT id, tournament_id, name, image_url, created_at FROM judges WHERE id = $1`
	j := &models.Judge{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, id).Scan(&j.ID, &j.TournamentID, &j.Name, &j.ImageURL, &j.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJudgeNotFound
		}
		return nil, fmt.Errorf("failed to get judge %d: %w", id, err)
	}
	return j, nil
}

func (r *postgresJudgeRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Judge, error) {
	query := `
		SELECT id, tournament_id, name, image_url, created_at
		FROM judges
		WHERE tournament_id = $1
		ORDER BY id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list judges for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	judges := make([]*models.Judge, 0)
	for rows.Next() {
		j := &models.Judge{}
		if err := rows.Scan(&j.ID, &j.TournamentID, &j.Name, &j.ImageURL, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan judge: %w", err)
		}
		judges = append(judges, j)
	}
	return judges, rows.Err()
}

func (r *postgresJudgeRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM judges WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count judges for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresJudgeRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM judges WHERE tournament_id = $1`, tournamentID)
	return err
}
