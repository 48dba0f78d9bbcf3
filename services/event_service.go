package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dosada05/dance-battle/models"
	"github.com/Dosada05/dance-battle/repositories"
)

type CreateEventInput struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

type EventService interface {
	CreateEvent(ctx context.Context, input CreateEventInput) (*models.Event, error)
	GetEvent(ctx context.Context, id int) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	// DeleteEvent удаляет событие вместе со всеми его турнирами в одной транзакции.
	DeleteEvent(ctx context.Context, id int) error
}

type eventService struct {
	tx             repositories.Transactor
	eventRepo      repositories.EventRepository
	tournamentRepo repositories.TournamentRepository
	cascade        *cascadeDeleter
	logger         *slog.Logger
}

func NewEventService(
	tx repositories.Transactor,
	eventRepo repositories.EventRepository,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	judgeRepo repositories.JudgeRepository,
	matchRepo repositories.MatchRepository,
	scoreRepo repositories.ScoreRepository,
	voteRepo repositories.VoteRepository,
	logger *slog.Logger,
) EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &eventService{
		tx:             tx,
		eventRepo:      eventRepo,
		tournamentRepo: tournamentRepo,
		cascade: &cascadeDeleter{
			tournamentRepo:  tournamentRepo,
			participantRepo: participantRepo,
			judgeRepo:       judgeRepo,
			matchRepo:       matchRepo,
			scoreRepo:       scoreRepo,
			voteRepo:        voteRepo,
		},
		logger: logger,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, input CreateEventInput) (*models.Event, error) {
	name, err := normalizeName(input.Name)
	if err != nil {
		return nil, err
	}
	if input.Date.IsZero() {
		return nil, ErrEventDateRequired
	}
	e := &models.Event{Name: name, Date: input.Date}
	if err := s.eventRepo.Create(ctx, nil, e); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.Info("event created", slog.Int("event_id", e.ID))
	return e, nil
}

func (s *eventService) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	e, err := s.eventRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	tournaments, err := s.tournamentRepo.List(ctx, nil, repositories.ListTournamentsFilter{EventID: &id})
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	e.Tournaments = tournaments
	return e, nil
}

func (s *eventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	events, err := s.eventRepo.List(ctx, nil)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return events, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, id int) error {
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.eventRepo.GetByID(ctx, exec, id); err != nil {
			return handleRepositoryError(err)
		}
		tournaments, err := s.tournamentRepo.List(ctx, exec, repositories.ListTournamentsFilter{EventID: &id})
		if err != nil {
			return err
		}
		for _, t := range tournaments {
			if err := s.cascade.deleteTournament(ctx, exec, t.ID); err != nil {
				return err
			}
		}
		return handleRepositoryError(s.eventRepo.Delete(ctx, exec, id))
	})
	if err != nil {
		return err
	}
	s.logger.Info("event deleted", slog.Int("event_id", id))
	return nil
}
