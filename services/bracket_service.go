package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/Dosada05/dance-battle/brackets"
	"github.com/Dosada05/dance-battle/models"
	"github.com/Dosada05/dance-battle/repositories"
)

type BracketResult struct {
	Tournament *models.Tournament `json:"tournament"`
	Matches    []*models.Match    `json:"matches"`
}

type BracketService interface {
	// GenerateBrackets строит всю сетку в одной транзакции. Статус остаётся
	// READY_TO_BRACKET, запуск выполняет TournamentService.StartTournament.
	GenerateBrackets(ctx context.Context, tournamentID int) (*BracketResult, error)
}

type bracketService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	voteRepo        repositories.VoteRepository
	generator       brackets.BracketGenerator
	notifier        Notifier
	logger          *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewBracketService создаёт сервис. rng можно передать для детерминированного посева;
// nil означает глобальный источник.
func NewBracketService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	voteRepo repositories.VoteRepository,
	rng *rand.Rand,
	notifier Notifier,
	logger *slog.Logger,
) BracketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &bracketService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		voteRepo:        voteRepo,
		generator:       brackets.NewSingleEliminationGenerator(),
		notifier:        notifierOrNoop(notifier),
		logger:          logger,
		rng:             rng,
	}
}

func (s *bracketService) GenerateBrackets(ctx context.Context, tournamentID int) (*BracketResult, error) {
	var result *BracketResult
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.Status != models.StatusReadyToBracket {
			return fmt.Errorf("%w: status %s", ErrTournamentNotReadyForBracket, t.Status)
		}

		participants, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if len(participants) < 2 {
			return fmt.Errorf("%w: found %d", ErrNotEnoughParticipants, len(participants))
		}
		if len(participants) != t.ParticipantCount {
			return fmt.Errorf("%w: have %d, need %d", ErrParticipantCountMismatch, len(participants), t.ParticipantCount)
		}

		// Несыгранная сетка заменяется целиком.
		if err := s.voteRepo.DeleteByTournament(ctx, exec, tournamentID); err != nil {
			return err
		}
		if _, err := s.matchRepo.DeleteByTournament(ctx, exec, tournamentID); err != nil {
			return handleRepositoryError(err)
		}

		bracketMatches, err := s.generate(ctx, t, participants)
		if err != nil {
			return mapGeneratorError(err)
		}

		matches := make([]*models.Match, 0, len(bracketMatches))
		for _, bm := range bracketMatches {
			m := &models.Match{
				TournamentID:   tournamentID,
				Round:          bm.Round,
				Position:       bm.OrderInRound,
				MatchNumber:    bm.MatchNumber,
				Participant1ID: bm.Participant1ID,
				Participant2ID: bm.Participant2ID,
			}
			if err := s.matchRepo.Create(ctx, exec, m); err != nil {
				return handleRepositoryError(err)
			}
			matches = append(matches, m)
		}
		attachParticipants(matches, participants)

		result = &BracketResult{Tournament: t, Matches: matches}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("matches", len(result.Matches)),
		slog.String("generator", s.generator.GetName()))
	s.notifier.Publish(ctx, tournamentID, brackets.MessageBracketGenerated, result)
	return result, nil
}

func (s *bracketService) generate(ctx context.Context, t *models.Tournament, participants []*models.Participant) ([]*brackets.BracketMatch, error) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		Tournament:   t,
		Participants: participants,
		Rand:         s.rng,
	})
}

func mapGeneratorError(err error) error {
	switch {
	case errors.Is(err, brackets.ErrNotEnoughParticipants):
		return fmt.Errorf("%w: %v", ErrNotEnoughParticipants, err)
	case errors.Is(err, brackets.ErrParticipantCountMismatch):
		return fmt.Errorf("%w: %v", ErrParticipantCountMismatch, err)
	case errors.Is(err, brackets.ErrBracketSizeNotPowerOfTwo):
		return fmt.Errorf("%w: %v", ErrTournamentInvalidSize, err)
	}
	return err
}
