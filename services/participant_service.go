package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/dance-battle/brackets"
	"github.com/Dosada05/dance-battle/models"
	"github.com/Dosada05/dance-battle/repositories"
)

type RegisterParticipantInput struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

type RegisterJudgeInput struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

type RegistrationResult struct {
	Participant *models.Participant `json:"participant"`
	Tournament  *models.Tournament  `json:"tournament"`
}

// ParticipantService регистрирует участников и судей и пересчитывает статус
// турнира по числу участников.
type ParticipantService interface {
	RegisterParticipant(ctx context.Context, tournamentID int, input RegisterParticipantInput) (*RegistrationResult, error)
	DeleteParticipant(ctx context.Context, participantID int) (*models.Tournament, error)
	GetParticipant(ctx context.Context, participantID int) (*models.Participant, error)
	ListParticipants(ctx context.Context, tournamentID int) ([]*models.Participant, error)

	RegisterJudge(ctx context.Context, tournamentID int, input RegisterJudgeInput) (*models.Judge, error)
	GetJudge(ctx context.Context, judgeID int) (*models.Judge, error)
	ListJudges(ctx context.Context, tournamentID int) ([]*models.Judge, error)
}

type participantService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	judgeRepo       repositories.JudgeRepository
	matchRepo       repositories.MatchRepository
	scoreRepo       repositories.ScoreRepository
	notifier        Notifier
	logger          *slog.Logger
}

func NewParticipantService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	judgeRepo repositories.JudgeRepository,
	matchRepo repositories.MatchRepository,
	scoreRepo repositories.ScoreRepository,
	notifier Notifier,
	logger *slog.Logger,
) ParticipantService {
	if logger == nil {
		logger = slog.Default()
	}
	return &participantService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		judgeRepo:       judgeRepo,
		matchRepo:       matchRepo,
		scoreRepo:       scoreRepo,
		notifier:        notifierOrNoop(notifier),
		logger:          logger,
	}
}

func (s *participantService) RegisterParticipant(ctx context.Context, tournamentID int, input RegisterParticipantInput) (*RegistrationResult, error) {
	name, err := normalizeName(input.Name)
	if err != nil {
		return nil, err
	}

	var result *RegistrationResult
	var previous models.TournamentStatus
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !t.Status.AcceptsRegistration() {
			return fmt.Errorf("%w: status %s", ErrRegistrationClosed, t.Status)
		}
		previous = t.Status

		number, err := s.tournamentRepo.NextRegistrationNumber(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		p := &models.Participant{
			TournamentID:       tournamentID,
			Name:               name,
			ImageURL:           input.ImageURL,
			RegistrationNumber: number,
		}
		if err := s.participantRepo.Create(ctx, exec, p); err != nil {
			return handleRepositoryError(err)
		}
		t.NextRegistrationNumber = number + 1

		if err := s.discardBracket(ctx, exec, tournamentID); err != nil {
			return err
		}
		if err := s.applyHeadcount(ctx, exec, t); err != nil {
			return err
		}
		result = &RegistrationResult{Participant: p, Tournament: t}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("participant registered",
		slog.Int("tournament_id", tournamentID),
		slog.Int("participant_id", result.Participant.ID),
		slog.Int("registration_number", result.Participant.RegistrationNumber))
	s.afterHeadcountChange(ctx, previous, result.Tournament)
	return result, nil
}

func (s *participantService) DeleteParticipant(ctx context.Context, participantID int) (*models.Tournament, error) {
	p, err := s.participantRepo.GetByID(ctx, nil, participantID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	var tournament *models.Tournament
	var previous models.TournamentStatus
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, p.TournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !t.Status.AcceptsRegistration() {
			return fmt.Errorf("%w: status %s", ErrRegistrationClosed, t.Status)
		}
		previous = t.Status

		if err := s.discardBracket(ctx, exec, t.ID); err != nil {
			return err
		}
		if _, err := s.scoreRepo.DeleteByParticipants(ctx, exec, []int{participantID}); err != nil {
			return err
		}
		if err := s.participantRepo.Delete(ctx, exec, participantID); err != nil {
			return handleRepositoryError(err)
		}
		if err := s.applyHeadcount(ctx, exec, t); err != nil {
			return err
		}
		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("participant deleted",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("participant_id", participantID))
	s.afterHeadcountChange(ctx, previous, tournament)
	return tournament, nil
}

func (s *participantService) GetParticipant(ctx context.Context, participantID int) (*models.Participant, error) {
	p, err := s.participantRepo.GetByID(ctx, nil, participantID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return p, nil
}

func (s *participantService) ListParticipants(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// RegisterJudge закрыт после старта: число судей задаёт порог голосов.
func (s *participantService) RegisterJudge(ctx context.Context, tournamentID int, input RegisterJudgeInput) (*models.Judge, error) {
	name, err := normalizeName(input.Name)
	if err != nil {
		return nil, err
	}

	judge := &models.Judge{TournamentID: tournamentID, Name: name, ImageURL: input.ImageURL}
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !t.Status.AcceptsRegistration() {
			return fmt.Errorf("%w: status %s", ErrRegistrationClosed, t.Status)
		}
		return handleRepositoryError(s.judgeRepo.Create(ctx, exec, judge))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("judge registered", slog.Int("tournament_id", tournamentID), slog.Int("judge_id", judge.ID))
	return judge, nil
}

func (s *participantService) GetJudge(ctx context.Context, judgeID int) (*models.Judge, error) {
	j, err := s.judgeRepo.GetByID(ctx, nil, judgeID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return j, nil
}

func (s *participantService) ListJudges(ctx context.Context, tournamentID int) ([]*models.Judge, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	return s.judgeRepo.ListByTournament(ctx, nil, tournamentID)
}

// applyHeadcount выставляет статус строго по (count, target).
func (s *participantService) applyHeadcount(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	count, err := s.participantRepo.CountByTournament(ctx, exec, t.ID)
	if err != nil {
		return err
	}
	next := models.StatusForHeadcount(count, t.ParticipantCount)
	if next == t.Status {
		return nil
	}
	if err := changeStatus(t.Status, next); err != nil {
		return err
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, exec, t.ID, next); err != nil {
		return handleRepositoryError(err)
	}
	t.Status = next
	return nil
}

// discardBracket удаляет заранее сгенерированную, но не запущенную сетку.
func (s *participantService) discardBracket(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	removed, err := s.matchRepo.DeleteByTournament(ctx, exec, tournamentID)
	if err != nil {
		return handleRepositoryError(err)
	}
	if removed > 0 {
		s.logger.Info("stale bracket discarded", slog.Int("tournament_id", tournamentID), slog.Int64("matches", removed))
	}
	return nil
}

func (s *participantService) afterHeadcountChange(ctx context.Context, previous models.TournamentStatus, t *models.Tournament) {
	if previous != t.Status {
		s.logger.Info("tournament status changed",
			slog.Int("tournament_id", t.ID),
			slog.String("from", string(previous)),
			slog.String("status", string(t.Status)))
	}
	s.notifier.Publish(ctx, t.ID, brackets.MessageTournamentUpdated, t)
}
