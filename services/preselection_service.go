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

type SubmitScoreInput struct {
	TournamentID  int `json:"tournament_id"`
	ParticipantID int `json:"participant_id"`
	JudgeID       int `json:"judge_id"`
	Value         int `json:"value"`
}

type PreselectionResult struct {
	Tournament   *models.Tournament    `json:"tournament"`
	CutPerformed bool                  `json:"cut_performed"`
	Remaining    []*models.Participant `json:"remaining_participants"`
	Eliminated   []int                 `json:"eliminated_participant_ids,omitempty"`
}

type PreselectionService interface {
	SubmitScore(ctx context.Context, input SubmitScoreInput) (*models.Score, error)
	// FinishJudgeScoring отмечает, что судья закончил оценивание; когда все судьи
	// оценили всех участников, выполняется отбор.
	FinishJudgeScoring(ctx context.Context, judgeID int) (*PreselectionResult, error)
	// FinishPreselection выполняет отбор принудительно (администратор).
	FinishPreselection(ctx context.Context, tournamentID int) (*PreselectionResult, error)
	ListStandings(ctx context.Context, tournamentID int) ([]models.ParticipantStanding, error)
	// ReconcilePending проверяет все турниры в PRESELECTION и выполняет отбор там,
	// где оценки полные. Возвращает число выполненных отборов.
	ReconcilePending(ctx context.Context) (int, error)
}

type preselectionService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	judgeRepo       repositories.JudgeRepository
	scoreRepo       repositories.ScoreRepository
	notifier        Notifier
	logger          *slog.Logger
}

func NewPreselectionService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	judgeRepo repositories.JudgeRepository,
	scoreRepo repositories.ScoreRepository,
	notifier Notifier,
	logger *slog.Logger,
) PreselectionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &preselectionService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		judgeRepo:       judgeRepo,
		scoreRepo:       scoreRepo,
		notifier:        notifierOrNoop(notifier),
		logger:          logger,
	}
}

func (s *preselectionService) SubmitScore(ctx context.Context, input SubmitScoreInput) (*models.Score, error) {
	if input.Value < models.MinScoreValue || input.Value > models.MaxScoreValue {
		return nil, fmt.Errorf("%w: got %d", ErrScoreOutOfRange, input.Value)
	}

	score := &models.Score{
		TournamentID:  input.TournamentID,
		ParticipantID: input.ParticipantID,
		JudgeID:       input.JudgeID,
		Value:         input.Value,
	}
	// Блокировка турнира сериализует оценки с отбором.
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, input.TournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		p, err := s.participantRepo.GetByID(ctx, exec, input.ParticipantID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if p.TournamentID != t.ID {
			return ErrParticipantNotInTournament
		}
		j, err := s.judgeRepo.GetByID(ctx, exec, input.JudgeID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if j.TournamentID != t.ID {
			return ErrJudgeNotInTournament
		}
		if t.Status != models.StatusPreselection {
			return fmt.Errorf("%w: status %s", ErrScoringClosed, t.Status)
		}
		return handleRepositoryError(s.scoreRepo.Upsert(ctx, exec, score))
	})
	if err != nil {
		return nil, err
	}
	return score, nil
}

func (s *preselectionService) FinishJudgeScoring(ctx context.Context, judgeID int) (*PreselectionResult, error) {
	judge, err := s.judgeRepo.GetByID(ctx, nil, judgeID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	var result *PreselectionResult
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, judge.TournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		snap, err := s.loadSnapshot(ctx, exec, t.ID)
		if err != nil {
			return err
		}
		// Отбор уже выполнен (или не нужен): повторный вызов ничего не меняет.
		if t.Status != models.StatusPreselection {
			result = &PreselectionResult{Tournament: t, Remaining: snap.participants}
			return nil
		}
		if !judgeCoversAll(scoredPairs(snap.scores), judgeID, snap.participants) {
			return fmt.Errorf("%w: judge %d", ErrJudgeScoringIncomplete, judgeID)
		}
		if !hasFullCoverage(snap.participants, snap.judges, snap.scores) {
			result = &PreselectionResult{Tournament: t, Remaining: snap.participants}
			return nil
		}
		result, err = s.cut(ctx, exec, t, snap)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterCut(ctx, result)
	return result, nil
}

func (s *preselectionService) FinishPreselection(ctx context.Context, tournamentID int) (*PreselectionResult, error) {
	var result *PreselectionResult
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.Status != models.StatusPreselection {
			return fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, t.Status, models.StatusReadyToBracket)
		}
		snap, err := s.loadSnapshot(ctx, exec, t.ID)
		if err != nil {
			return err
		}
		result, err = s.cut(ctx, exec, t, snap)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterCut(ctx, result)
	return result, nil
}

func (s *preselectionService) ListStandings(ctx context.Context, tournamentID int) ([]models.ParticipantStanding, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	scores, err := s.scoreRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	return rankStandings(participants, scores), nil
}

func (s *preselectionService) ReconcilePending(ctx context.Context) (int, error) {
	status := models.StatusPreselection
	pending, err := s.tournamentRepo.List(ctx, nil, repositories.ListTournamentsFilter{Status: &status})
	if err != nil {
		return 0, fmt.Errorf("failed to list tournaments in preselection: %w", err)
	}

	performed := 0
	for _, candidate := range pending {
		if err := ctx.Err(); err != nil {
			return performed, err
		}
		var result *PreselectionResult
		err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
			t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, candidate.ID)
			if err != nil {
				return handleRepositoryError(err)
			}
			if t.Status != models.StatusPreselection {
				return nil
			}
			snap, err := s.loadSnapshot(ctx, exec, t.ID)
			if err != nil {
				return err
			}
			if !hasFullCoverage(snap.participants, snap.judges, snap.scores) {
				return nil
			}
			result, err = s.cut(ctx, exec, t, snap)
			return err
		})
		if err != nil {
			if errors.Is(err, ErrTournamentNotFound) {
				continue
			}
			s.logger.Warn("preselection reconcile failed",
				slog.Int("tournament_id", candidate.ID),
				slog.Any("error", err))
			continue
		}
		if result != nil && result.CutPerformed {
			performed++
			s.afterCut(ctx, result)
		}
	}
	return performed, nil
}

type preselectionSnapshot struct {
	participants []*models.Participant
	judges       []*models.Judge
	scores       []*models.Score
}

func (s *preselectionService) loadSnapshot(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (*preselectionSnapshot, error) {
	participants, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, err
	}
	judges, err := s.judgeRepo.ListByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, err
	}
	scores, err := s.scoreRepo.ListByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, err
	}
	return &preselectionSnapshot{participants: participants, judges: judges, scores: scores}, nil
}

// cut оставляет participant_count лучших по средней оценке, удаляет остальных
// вместе с их оценками и переводит турнир в READY_TO_BRACKET.
// Вызывается под блокировкой строки турнира.
func (s *preselectionService) cut(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, snap *preselectionSnapshot) (*PreselectionResult, error) {
	standings := rankStandings(snap.participants, snap.scores)

	scored := 0
	for _, st := range standings {
		if st.ScoreCount > 0 {
			scored++
		}
	}
	if scored < t.ParticipantCount {
		return nil, fmt.Errorf("%w: %d scored, need %d", ErrPreselectionUnderfilled, scored, t.ParticipantCount)
	}

	kept := make(map[int]bool, t.ParticipantCount)
	eliminated := make([]int, 0, len(standings)-t.ParticipantCount)
	for i, st := range standings {
		if i < t.ParticipantCount {
			kept[st.Participant.ID] = true
		} else {
			eliminated = append(eliminated, st.Participant.ID)
		}
	}

	if _, err := s.scoreRepo.DeleteByParticipants(ctx, exec, eliminated); err != nil {
		return nil, err
	}
	if _, err := s.participantRepo.DeleteMany(ctx, exec, eliminated); err != nil {
		return nil, handleRepositoryError(err)
	}
	ok, err := s.tournamentRepo.UpdateStatusIf(ctx, exec, t.ID, models.StatusPreselection, models.StatusReadyToBracket)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: tournament %d left preselection", ErrTournamentInvalidStatusTransition, t.ID)
	}
	t.Status = models.StatusReadyToBracket

	// Оставшиеся в порядке регистрации.
	remaining := make([]*models.Participant, 0, len(kept))
	for _, p := range snap.participants {
		if kept[p.ID] {
			remaining = append(remaining, p)
		}
	}

	return &PreselectionResult{
		Tournament:   t,
		CutPerformed: true,
		Remaining:    remaining,
		Eliminated:   eliminated,
	}, nil
}

func (s *preselectionService) afterCut(ctx context.Context, result *PreselectionResult) {
	if result == nil || !result.CutPerformed {
		return
	}
	s.logger.Info("preselection cut",
		slog.Int("tournament_id", result.Tournament.ID),
		slog.Int("kept", len(result.Remaining)),
		slog.Int("eliminated", len(result.Eliminated)))
	s.notifier.Publish(ctx, result.Tournament.ID, brackets.MessageTournamentUpdated, result.Tournament)
}
