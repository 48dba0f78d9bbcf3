package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/dance-battle/brackets"
	"github.com/Dosada05/dance-battle/models"
	"github.com/Dosada05/dance-battle/repositories"
)

type CreateTournamentInput struct {
	EventID          int    `json:"event_id"`
	Name             string `json:"name"`
	DanceStyle       string `json:"dance_style"`
	ParticipantCount int    `json:"participant_count"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	// GetTournament возвращает турнир вместе с участниками, судьями и матчами.
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	// StartTournament переводит READY_TO_BRACKET -> ACTIVE при полностью сгенерированной сетке.
	StartTournament(ctx context.Context, id int) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id int) error
}

type tournamentService struct {
	tx              repositories.Transactor
	eventRepo       repositories.EventRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	judgeRepo       repositories.JudgeRepository
	matchRepo       repositories.MatchRepository
	cascade         *cascadeDeleter
	notifier        Notifier
	logger          *slog.Logger
}

func NewTournamentService(
	tx repositories.Transactor,
	eventRepo repositories.EventRepository,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	judgeRepo repositories.JudgeRepository,
	matchRepo repositories.MatchRepository,
	scoreRepo repositories.ScoreRepository,
	voteRepo repositories.VoteRepository,
	notifier Notifier,
	logger *slog.Logger,
) TournamentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &tournamentService{
		tx:              tx,
		eventRepo:       eventRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		judgeRepo:       judgeRepo,
		matchRepo:       matchRepo,
		cascade: &cascadeDeleter{
			tournamentRepo:  tournamentRepo,
			participantRepo: participantRepo,
			judgeRepo:       judgeRepo,
			matchRepo:       matchRepo,
			scoreRepo:       scoreRepo,
			voteRepo:        voteRepo,
		},
		notifier: notifierOrNoop(notifier),
		logger:   logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	name, err := normalizeName(input.Name)
	if err != nil {
		return nil, err
	}
	if !brackets.IsPowerOfTwo(input.ParticipantCount) || input.ParticipantCount < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTournamentInvalidSize, input.ParticipantCount)
	}
	if _, err := s.eventRepo.GetByID(ctx, nil, input.EventID); err != nil {
		return nil, handleRepositoryError(err)
	}

	t := &models.Tournament{
		EventID:          input.EventID,
		Name:             name,
		DanceStyle:       input.DanceStyle,
		ParticipantCount: input.ParticipantCount,
		Status:           models.StatusPending,
	}
	if err := s.tournamentRepo.Create(ctx, nil, t); err != nil {
		return nil, handleRepositoryError(err)
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", t.ID),
		slog.Int("event_id", t.EventID),
		slog.Int("participant_count", t.ParticipantCount))
	return t, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	var (
		participants []*models.Participant
		judges       []*models.Judge
		matches      []*models.Match
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		participants, err = s.participantRepo.ListByTournament(gCtx, nil, id)
		return err
	})
	g.Go(func() error {
		var err error
		judges, err = s.judgeRepo.ListByTournament(gCtx, nil, id)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gCtx, nil, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load details for tournament %d: %w", id, err)
	}

	t.Participants = participantsToValues(participants)
	t.Judges = make([]models.Judge, 0, len(judges))
	for _, j := range judges {
		t.Judges = append(t.Judges, *j)
	}
	attachParticipants(matches, participants)
	t.Matches = make([]models.Match, 0, len(matches))
	for _, m := range matches {
		t.Matches = append(t.Matches, *m)
	}
	return t, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidationFailed, *filter.Status)
	}
	tournaments, err := s.tournamentRepo.List(ctx, nil, filter)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return tournaments, nil
}

func (s *tournamentService) StartTournament(ctx context.Context, id int) (*models.Tournament, error) {
	var started *models.Tournament
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.Status != models.StatusReadyToBracket {
			return fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, t.Status, models.StatusActive)
		}

		count, err := s.participantRepo.CountByTournament(ctx, exec, id)
		if err != nil {
			return err
		}
		if count != t.ParticipantCount {
			return fmt.Errorf("%w: have %d, need %d", ErrParticipantCountMismatch, count, t.ParticipantCount)
		}
		matchCount, err := s.matchRepo.CountByTournament(ctx, exec, id)
		if err != nil {
			return err
		}
		if matchCount != t.ParticipantCount-1 {
			return ErrBracketNotGenerated
		}

		if err := s.tournamentRepo.UpdateStatus(ctx, exec, id, models.StatusActive); err != nil {
			return handleRepositoryError(err)
		}
		t.Status = models.StatusActive
		started = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament status changed",
		slog.Int("tournament_id", id),
		slog.String("status", string(models.StatusActive)))
	s.notifier.Publish(ctx, id, brackets.MessageTournamentUpdated, started)
	return started, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, id int) error {
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, id); err != nil {
			return handleRepositoryError(err)
		}
		return s.cascade.deleteTournament(ctx, exec, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("tournament deleted", slog.Int("tournament_id", id))
	return nil
}

// attachParticipants заполняет Participant1/Participant2 у матчей для отображения сетки.
func attachParticipants(matches []*models.Match, participants []*models.Participant) {
	byID := make(map[int]*models.Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}
	for _, m := range matches {
		if m.Participant1ID != nil {
			m.Participant1 = byID[*m.Participant1ID]
		}
		if m.Participant2ID != nil {
			m.Participant2 = byID[*m.Participant2ID]
		}
		m.RefreshState()
	}
}

// cascadeDeleter удаляет турнир и все зависимые записи в порядке
// votes -> scores -> matches -> participants -> judges -> tournament.
type cascadeDeleter struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	judgeRepo       repositories.JudgeRepository
	matchRepo       repositories.MatchRepository
	scoreRepo       repositories.ScoreRepository
	voteRepo        repositories.VoteRepository
}

func (c *cascadeDeleter) deleteTournament(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	if err := c.voteRepo.DeleteByTournament(ctx, exec, id); err != nil {
		return err
	}
	if err := c.scoreRepo.DeleteByTournament(ctx, exec, id); err != nil {
		return err
	}
	if _, err := c.matchRepo.DeleteByTournament(ctx, exec, id); err != nil {
		return handleRepositoryError(err)
	}
	// Победитель ссылается на участника, снимаем ссылку до удаления участников.
	if err := c.tournamentRepo.UpdateWinner(ctx, exec, id, nil); err != nil {
		return handleRepositoryError(err)
	}
	if err := c.participantRepo.DeleteByTournament(ctx, exec, id); err != nil {
		return handleRepositoryError(err)
	}
	if err := c.judgeRepo.DeleteByTournament(ctx, exec, id); err != nil {
		return err
	}
	return handleRepositoryError(c.tournamentRepo.Delete(ctx, exec, id))
}
