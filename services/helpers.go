package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Dosada05/dance-battle/brackets"
	"github.com/Dosada05/dance-battle/models"
	"github.com/Dosada05/dance-battle/repositories"
)

// handleRepositoryError переводит ошибки репозиториев в ошибки сервисов.
func handleRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repositories.ErrEventNotFound):
		return ErrEventNotFound
	case errors.Is(err, repositories.ErrTournamentNotFound),
		errors.Is(err, repositories.ErrParticipantTournamentInvalid),
		errors.Is(err, repositories.ErrJudgeTournamentInvalid):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentInvalidEvent):
		return ErrEventNotFound
	case errors.Is(err, repositories.ErrParticipantNotFound):
		return ErrParticipantNotFound
	case errors.Is(err, repositories.ErrJudgeNotFound):
		return ErrJudgeNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrVoteConflict):
		return ErrAlreadyVoted
	case errors.Is(err, repositories.ErrScoreOutOfRange):
		return ErrScoreOutOfRange
	case errors.Is(err, repositories.ErrMatchSlotOccupied):
		return ErrBracketSlotOccupied
	case errors.Is(err, repositories.ErrMatchWinnerNotInMatch):
		return ErrWinnerNotInMatch
	case errors.Is(err, repositories.ErrMatchAlreadyResolved):
		return ErrMatchAlreadyResolved
	case errors.Is(err, repositories.ErrScoreInvalidReference),
		errors.Is(err, repositories.ErrVoteInvalidReference),
		errors.Is(err, repositories.ErrMatchInvalidReference),
		errors.Is(err, repositories.ErrParticipantRegistrationNumberTaken),
		errors.Is(err, repositories.ErrMatchPositionTaken),
		errors.Is(err, repositories.ErrParticipantInUse),
		errors.Is(err, repositories.ErrTournamentInUse),
		errors.Is(err, repositories.ErrEventInUse):
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return err
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	return name, nil
}

func changeStatus(current, next models.TournamentStatus) error {
	if !current.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, current, next)
	}
	return nil
}

// rankStandings считает среднюю оценку каждого участника и сортирует по убыванию.
// При равенстве выше стоит участник с меньшим регистрационным номером.
func rankStandings(participants []*models.Participant, scores []*models.Score) []models.ParticipantStanding {
	type agg struct{ sum, count int }
	byParticipant := make(map[int]*agg, len(participants))
	for _, p := range participants {
		byParticipant[p.ID] = &agg{}
	}
	for _, s := range scores {
		if a, ok := byParticipant[s.ParticipantID]; ok {
			a.sum += s.Value
			a.count++
		}
	}

	standings := make([]models.ParticipantStanding, 0, len(participants))
	for _, p := range participants {
		a := byParticipant[p.ID]
		st := models.ParticipantStanding{Participant: *p, ScoreCount: a.count, ScoreSum: a.sum}
		if a.count > 0 {
			st.AverageScore = float64(a.sum) / float64(a.count)
		}
		standings = append(standings, st)
	}

	sort.SliceStable(standings, func(i, j int) bool {
		cmp := brackets.CompareAverages(
			brackets.ScoreTotal{Sum: standings[i].ScoreSum, Count: standings[i].ScoreCount},
			brackets.ScoreTotal{Sum: standings[j].ScoreSum, Count: standings[j].ScoreCount},
		)
		if cmp != 0 {
			return cmp > 0
		}
		return standings[i].Participant.RegistrationNumber < standings[j].Participant.RegistrationNumber
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

// hasFullCoverage — каждый судья оценил каждого участника.
func hasFullCoverage(participants []*models.Participant, judges []*models.Judge, scores []*models.Score) bool {
	if len(judges) == 0 || len(participants) == 0 {
		return false
	}
	scored := scoredPairs(scores)
	for _, j := range judges {
		if !judgeCoversAll(scored, j.ID, participants) {
			return false
		}
	}
	return true
}

type scorePair struct{ judgeID, participantID int }

func scoredPairs(scores []*models.Score) map[scorePair]struct{} {
	pairs := make(map[scorePair]struct{}, len(scores))
	for _, s := range scores {
		pairs[scorePair{judgeID: s.JudgeID, participantID: s.ParticipantID}] = struct{}{}
	}
	return pairs
}

func judgeCoversAll(scored map[scorePair]struct{}, judgeID int, participants []*models.Participant) bool {
	for _, p := range participants {
		if _, ok := scored[scorePair{judgeID: judgeID, participantID: p.ID}]; !ok {
			return false
		}
	}
	return true
}

func votesToValues(votes []*models.Vote) []models.Vote {
	out := make([]models.Vote, 0, len(votes))
	for _, v := range votes {
		out = append(out, *v)
	}
	return out
}

func participantsToValues(slice []*models.Participant) []models.Participant {
	result := make([]models.Participant, 0, len(slice))
	for _, p := range slice {
		if p != nil {
			result = append(result, *p)
		}
	}
	return result
}
