package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/dance-battle/brackets"
	"github.com/Dosada05/dance-battle/models"
	"github.com/Dosada05/dance-battle/repositories"
)

type CastVoteInput struct {
	MatchID int               `json:"match_id"`
	JudgeID int               `json:"judge_id"`
	Choice  models.VoteChoice `json:"voted_for"`
}

// ResolutionResult описывает состояние матча после голоса или решения администратора.
type ResolutionResult struct {
	Outcome     brackets.Outcome   `json:"outcome"`
	Reason      string             `json:"reason,omitempty"`
	Match       *models.Match      `json:"match"`
	Vote        *models.Vote       `json:"vote,omitempty"`
	VotesCast   int                `json:"votes_cast"`
	TotalJudges int                `json:"total_judges"`
	Tournament  *models.Tournament `json:"tournament,omitempty"`
}

// TournamentCompleted is true when this decision resolved the final.
func (r *ResolutionResult) TournamentCompleted() bool {
	return r.Tournament != nil && r.Tournament.Status == models.StatusCompleted
}

type MatchService interface {
	Mode() brackets.ResolutionMode
	CastVote(ctx context.Context, input CastVoteInput) (*ResolutionResult, error)
	DeclareWinner(ctx context.Context, matchID, winnerID int) (*ResolutionResult, error)
	// FinishMatchByScores завершает матч по средним оценкам отбора при любом режиме.
	// Равные средние означают переигровку.
	FinishMatchByScores(ctx context.Context, matchID int) (*ResolutionResult, error)
	// ResetMatch очищает голоса нерешённого матча и увеличивает rematch_count.
	ResetMatch(ctx context.Context, matchID int) (*models.Match, error)
	// GetCurrentMatch возвращает nil, если готовых к бою матчей нет.
	GetCurrentMatch(ctx context.Context, tournamentID int) (*models.Match, error)
	ListMatches(ctx context.Context, tournamentID int) ([]*models.Match, error)
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	ListVotes(ctx context.Context, matchID int) ([]*models.Vote, error)
}

type matchService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	judgeRepo       repositories.JudgeRepository
	matchRepo       repositories.MatchRepository
	scoreRepo       repositories.ScoreRepository
	voteRepo        repositories.VoteRepository
	resolver        brackets.Resolver
	notifier        Notifier
	logger          *slog.Logger
}

func NewMatchService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	judgeRepo repositories.JudgeRepository,
	matchRepo repositories.MatchRepository,
	scoreRepo repositories.ScoreRepository,
	voteRepo repositories.VoteRepository,
	resolver brackets.Resolver,
	notifier Notifier,
	logger *slog.Logger,
) MatchService {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = brackets.JudgeVoteTally{}
	}
	return &matchService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		judgeRepo:       judgeRepo,
		matchRepo:       matchRepo,
		scoreRepo:       scoreRepo,
		voteRepo:        voteRepo,
		resolver:        resolver,
		notifier:        notifierOrNoop(notifier),
		logger:          logger,
	}
}

func (s *matchService) Mode() brackets.ResolutionMode {
	return s.resolver.Mode()
}

func (s *matchService) CastVote(ctx context.Context, input CastVoteInput) (*ResolutionResult, error) {
	if s.resolver.Mode() != brackets.ModeJudgeVote {
		return nil, ErrVotingDisabled
	}

	var result *ResolutionResult
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetByIDForUpdate(ctx, exec, input.MatchID)
		if err != nil {
			return handleRepositoryError(err)
		}
		t, err := s.tournamentRepo.GetByID(ctx, exec, m.TournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.Status != models.StatusActive {
			return fmt.Errorf("%w: status %s", ErrTournamentNotActive, t.Status)
		}
		if !m.IsReady() {
			return fmt.Errorf("%w: match %d is %s", ErrMatchNotReady, m.ID, m.ComputeState())
		}
		judge, err := s.judgeRepo.GetByID(ctx, exec, input.JudgeID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if judge.TournamentID != m.TournamentID {
			return ErrJudgeNotInTournament
		}
		if !input.Choice.IsTie() && !m.HasParticipant(*input.Choice.ParticipantID) {
			return fmt.Errorf("%w: participant %d", ErrVoteChoiceNotInMatch, *input.Choice.ParticipantID)
		}

		vote := &models.Vote{MatchID: m.ID, JudgeID: judge.ID, VotedFor: input.Choice}
		if err := s.voteRepo.Create(ctx, exec, vote); err != nil {
			return handleRepositoryError(err)
		}

		votes, err := s.voteRepo.ListByMatch(ctx, exec, m.ID)
		if err != nil {
			return err
		}
		totalJudges, err := s.judgeRepo.CountByTournament(ctx, exec, m.TournamentID)
		if err != nil {
			return err
		}

		decision, err := s.resolver.Resolve(brackets.ResolutionInput{
			Match:       m,
			Votes:       votesToValues(votes),
			TotalJudges: totalJudges,
		})
		if err != nil {
			return mapResolverError(err)
		}

		result = &ResolutionResult{
			Outcome:     decision.Outcome,
			Reason:      decision.Reason,
			Match:       m,
			Vote:        vote,
			VotesCast:   len(votes),
			TotalJudges: totalJudges,
		}

		switch decision.Outcome {
		case brackets.OutcomeTieRematch:
			if err := s.resetVotes(ctx, exec, m); err != nil {
				return err
			}
			result.VotesCast = 0
		case brackets.OutcomeResolved:
			if err := s.advance(ctx, exec, t, m, *decision.WinnerID); err != nil {
				return err
			}
			result.Tournament = t
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("vote cast",
		slog.Int("tournament_id", result.Match.TournamentID),
		slog.Int("match_id", result.Match.ID),
		slog.Int("judge_id", input.JudgeID),
		slog.String("choice", input.Choice.String()),
		slog.String("outcome", string(result.Outcome)))
	s.publishResolution(ctx, result)
	return result, nil
}

func (s *matchService) DeclareWinner(ctx context.Context, matchID, winnerID int) (*ResolutionResult, error) {
	if s.resolver.Mode() != brackets.ModeAdmin {
		return nil, ErrDeclaringDisabled
	}
	if winnerID <= 0 {
		return nil, ErrWinnerRequired
	}

	var result *ResolutionResult
	noop := false
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			return handleRepositoryError(err)
		}
		// Повторное объявление того же победителя ничего не меняет и не продвигает его снова.
		if m.WinnerID != nil {
			if *m.WinnerID != winnerID {
				return fmt.Errorf("%w: match %d won by %d", ErrMatchAlreadyResolved, m.ID, *m.WinnerID)
			}
			noop = true
			result = &ResolutionResult{Outcome: brackets.OutcomeResolved, Reason: "already resolved", Match: m}
			return nil
		}

		t, err := s.tournamentRepo.GetByID(ctx, exec, m.TournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.Status != models.StatusActive {
			return fmt.Errorf("%w: status %s", ErrTournamentNotActive, t.Status)
		}

		decision, err := s.resolver.Resolve(brackets.ResolutionInput{Match: m, DeclaredWinnerID: &winnerID})
		if err != nil {
			return mapResolverError(err)
		}
		if err := s.advance(ctx, exec, t, m, *decision.WinnerID); err != nil {
			return err
		}
		result = &ResolutionResult{
			Outcome:    decision.Outcome,
			Reason:     decision.Reason,
			Match:      m,
			Tournament: t,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if noop {
		return result, nil
	}

	s.publishResolution(ctx, result)
	return result, nil
}

func (s *matchService) FinishMatchByScores(ctx context.Context, matchID int) (*ResolutionResult, error) {
	var result *ResolutionResult
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			return handleRepositoryError(err)
		}
		t, err := s.tournamentRepo.GetByID(ctx, exec, m.TournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.Status != models.StatusActive {
			return fmt.Errorf("%w: status %s", ErrTournamentNotActive, t.Status)
		}
		if !m.IsReady() {
			return fmt.Errorf("%w: match %d is %s", ErrMatchNotReady, m.ID, m.ComputeState())
		}

		scores, err := s.scoreRepo.ListByTournament(ctx, exec, m.TournamentID)
		if err != nil {
			return err
		}
		totals := make(map[int]brackets.ScoreTotal, 2)
		for _, sc := range scores {
			if !m.HasParticipant(sc.ParticipantID) {
				continue
			}
			total := totals[sc.ParticipantID]
			total.Sum += sc.Value
			total.Count++
			totals[sc.ParticipantID] = total
		}

		decision, err := brackets.ScoreAggregate{}.Resolve(brackets.ResolutionInput{Match: m, Scores: totals})
		if err != nil {
			return mapResolverError(err)
		}
		result = &ResolutionResult{Outcome: decision.Outcome, Reason: decision.Reason, Match: m}

		switch decision.Outcome {
		case brackets.OutcomeTieRematch:
			return s.resetVotes(ctx, exec, m)
		case brackets.OutcomeResolved:
			if err := s.advance(ctx, exec, t, m, *decision.WinnerID); err != nil {
				return err
			}
			result.Tournament = t
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match finished by scores",
		slog.Int("tournament_id", result.Match.TournamentID),
		slog.Int("match_id", result.Match.ID),
		slog.String("outcome", string(result.Outcome)),
		slog.String("reason", result.Reason))
	s.publishResolution(ctx, result)
	return result, nil
}

func (s *matchService) ResetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	var match *models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			return handleRepositoryError(err)
		}
		t, err := s.tournamentRepo.GetByID(ctx, exec, m.TournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.Status != models.StatusActive {
			return fmt.Errorf("%w: status %s", ErrTournamentNotActive, t.Status)
		}
		if !m.IsReady() {
			return fmt.Errorf("%w: match %d is %s", ErrMatchNotReady, m.ID, m.ComputeState())
		}
		if err := s.resetVotes(ctx, exec, m); err != nil {
			return err
		}
		match = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match reset for rematch",
		slog.Int("tournament_id", match.TournamentID),
		slog.Int("match_id", match.ID),
		slog.Int("rematch_count", match.RematchCount))
	s.notifier.Publish(ctx, match.TournamentID, brackets.MessageMatchUpdated, match)
	return match, nil
}

func (s *matchService) GetCurrentMatch(ctx context.Context, tournamentID int) (*models.Match, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	m, err := s.matchRepo.FindCurrent(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := s.loadMatchParticipants(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *matchService) ListMatches(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	attachParticipants(matches, participants)
	return matches, nil
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if err := s.loadMatchParticipants(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *matchService) ListVotes(ctx context.Context, matchID int) ([]*models.Vote, error) {
	if _, err := s.matchRepo.GetByID(ctx, nil, matchID); err != nil {
		return nil, handleRepositoryError(err)
	}
	return s.voteRepo.ListByMatch(ctx, nil, matchID)
}

// advance записывает победителя и продвигает его в следующий матч.
// У финала родителя нет: турнир завершается.
func (s *matchService) advance(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, m *models.Match, winnerID int) error {
	if err := s.matchRepo.SetWinner(ctx, exec, m.ID, winnerID); err != nil {
		return handleRepositoryError(err)
	}
	m.WinnerID = &winnerID
	m.RefreshState()

	parentRef, hasParent, err := brackets.ParentOf(t.ParticipantCount, m.Round, m.Position)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBracketInconsistent, err)
	}

	if !hasParent {
		if err := changeStatus(t.Status, models.StatusCompleted); err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, exec, t.ID, models.StatusCompleted); err != nil {
			return handleRepositoryError(err)
		}
		if err := s.tournamentRepo.UpdateWinner(ctx, exec, t.ID, &winnerID); err != nil {
			return handleRepositoryError(err)
		}
		t.Status = models.StatusCompleted
		t.WinnerParticipantID = &winnerID
		s.logger.Info("tournament status changed",
			slog.Int("tournament_id", t.ID),
			slog.String("status", string(models.StatusCompleted)),
			slog.Int("winner_participant_id", winnerID))
		return nil
	}

	parent, err := s.matchRepo.GetByRoundPositionForUpdate(ctx, exec, t.ID, parentRef.Round, parentRef.Position)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return fmt.Errorf("%w: missing match round %d position %d", ErrBracketInconsistent, parentRef.Round, parentRef.Position)
		}
		return err
	}
	occupant := parent.Participant1ID
	if parentRef.Slot == brackets.Slot2 {
		occupant = parent.Participant2ID
	}
	if occupant != nil {
		return fmt.Errorf("%w: match %d slot %d holds participant %d", ErrBracketSlotOccupied, parent.ID, parentRef.Slot, *occupant)
	}
	if err := s.matchRepo.FillSlot(ctx, exec, parent.ID, int(parentRef.Slot), winnerID); err != nil {
		return handleRepositoryError(err)
	}

	s.logger.Info("match resolved",
		slog.Int("tournament_id", t.ID),
		slog.Int("match_id", m.ID),
		slog.Int("winner_id", winnerID),
		slog.Int("next_match_id", parent.ID))
	return nil
}

// resetVotes: переигровка того же матча, победитель остаётся пустым.
func (s *matchService) resetVotes(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	if _, err := s.voteRepo.DeleteByMatch(ctx, exec, m.ID); err != nil {
		return err
	}
	if err := s.matchRepo.IncrementRematch(ctx, exec, m.ID); err != nil {
		return handleRepositoryError(err)
	}
	m.RematchCount++
	return nil
}

func (s *matchService) loadMatchParticipants(ctx context.Context, m *models.Match) error {
	for _, slot := range []struct {
		id  *int
		dst **models.Participant
	}{{m.Participant1ID, &m.Participant1}, {m.Participant2ID, &m.Participant2}} {
		if slot.id == nil {
			continue
		}
		p, err := s.participantRepo.GetByID(ctx, nil, *slot.id)
		if err != nil {
			return handleRepositoryError(err)
		}
		*slot.dst = p
	}
	m.RefreshState()
	return nil
}

func (s *matchService) publishResolution(ctx context.Context, result *ResolutionResult) {
	tournamentID := result.Match.TournamentID
	if result.Vote != nil {
		s.notifier.Publish(ctx, tournamentID, brackets.MessageVoteCast, map[string]interface{}{
			"match_id":     result.Match.ID,
			"votes_cast":   result.VotesCast,
			"total_judges": result.TotalJudges,
			"outcome":      result.Outcome,
		})
	}
	if result.Outcome != brackets.OutcomePending {
		s.notifier.Publish(ctx, tournamentID, brackets.MessageMatchUpdated, result.Match)
	}
	if result.TournamentCompleted() {
		s.notifier.Publish(ctx, tournamentID, brackets.MessageTournamentUpdated, result.Tournament)
	}
}

func mapResolverError(err error) error {
	switch {
	case errors.Is(err, brackets.ErrMatchNotReady):
		return fmt.Errorf("%w: %v", ErrMatchNotReady, err)
	case errors.Is(err, brackets.ErrWinnerNotInMatch):
		return fmt.Errorf("%w: %v", ErrWinnerNotInMatch, err)
	case errors.Is(err, brackets.ErrNoDeclaredWinner):
		return ErrWinnerRequired
	case errors.Is(err, brackets.ErrNoScores):
		return fmt.Errorf("%w: %v", ErrMatchScoresMissing, err)
	case errors.Is(err, brackets.ErrNoJudges), errors.Is(err, brackets.ErrTooManyBallots):
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return err
}
