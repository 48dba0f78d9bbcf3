package brackets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/dance-battle/models"
)

// ResolutionMode выбирается один раз на развёртывание (RESOLUTION_MODE).
type ResolutionMode string

const (
	ModeJudgeVote ResolutionMode = "judge_vote"
	ModeAdmin     ResolutionMode = "admin"
)

func ParseResolutionMode(s string) (ResolutionMode, error) {
	switch ResolutionMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeJudgeVote, "":
		return ModeJudgeVote, nil
	case ModeAdmin:
		return ModeAdmin, nil
	default:
		return "", fmt.Errorf("unknown resolution mode %q (expected %q or %q)", s, ModeJudgeVote, ModeAdmin)
	}
}

type Outcome string

const (
	OutcomePending    Outcome = "pending"
	OutcomeResolved   Outcome = "resolved"
	OutcomeTieRematch Outcome = "tie_rematch"
)

var (
	ErrMatchNotReady    = errors.New("match is not ready for a decision (needs exactly two participants and no winner)")
	ErrWinnerNotInMatch = errors.New("winner is not a participant of this match")
	ErrNoJudges         = errors.New("tournament has no judges to tally votes")
	ErrNoDeclaredWinner = errors.New("winner must be declared")
	ErrTooManyBallots   = errors.New("more ballots than judges")
	ErrNoScores         = errors.New("neither participant has preselection scores")
)

type Decision struct {
	Outcome  Outcome
	WinnerID *int
	Reason   string
}

type ResolutionInput struct {
	Match            *models.Match
	Votes            []models.Vote
	TotalJudges      int
	DeclaredWinnerID *int
	// Scores — суммы оценок отбора по id участника.
	Scores map[int]ScoreTotal
}

// ScoreTotal — сумма и число оценок участника на отборе.
type ScoreTotal struct {
	Sum   int
	Count int
}

// CompareAverages сравнивает средние a и b без деления: >0 если a выше,
// <0 если ниже, 0 при равенстве. Участник без оценок имеет среднее 0.
func CompareAverages(a, b ScoreTotal) int {
	left, right := 0, 0
	if a.Count > 0 {
		left = a.Sum * max(b.Count, 1)
	}
	if b.Count > 0 {
		right = b.Sum * max(a.Count, 1)
	}
	switch {
	case left > right:
		return 1
	case left < right:
		return -1
	}
	return 0
}

// Resolver decides the outcome of a READY match.
type Resolver interface {
	Mode() ResolutionMode
	Resolve(in ResolutionInput) (Decision, error)
}

func NewResolver(mode ResolutionMode) (Resolver, error) {
	switch mode {
	case ModeJudgeVote:
		return JudgeVoteTally{}, nil
	case ModeAdmin:
		return AdminDecision{}, nil
	default:
		return nil, fmt.Errorf("unknown resolution mode %q", mode)
	}
}

// AdminDecision — победителя называет администратор.
type AdminDecision struct{}

func (AdminDecision) Mode() ResolutionMode { return ModeAdmin }

func (AdminDecision) Resolve(in ResolutionInput) (Decision, error) {
	if in.Match == nil || !in.Match.IsReady() {
		return Decision{}, ErrMatchNotReady
	}
	if in.DeclaredWinnerID == nil {
		return Decision{}, ErrNoDeclaredWinner
	}
	if !in.Match.HasParticipant(*in.DeclaredWinnerID) {
		return Decision{}, fmt.Errorf("%w: participant %d, match %d", ErrWinnerNotInMatch, *in.DeclaredWinnerID, in.Match.ID)
	}
	winner := *in.DeclaredWinnerID
	return Decision{Outcome: OutcomeResolved, WinnerID: &winner, Reason: "declared by admin"}, nil
}

// JudgeVoteTally ждёт голоса всех судей турнира. Единогласная ничья и равное
// число голосов за обоих участников отправляют матч на переигровку.
type JudgeVoteTally struct{}

func (JudgeVoteTally) Mode() ResolutionMode { return ModeJudgeVote }

func (JudgeVoteTally) Resolve(in ResolutionInput) (Decision, error) {
	if in.Match == nil || !in.Match.IsReady() {
		return Decision{}, ErrMatchNotReady
	}
	if in.TotalJudges < 1 {
		return Decision{}, ErrNoJudges
	}
	if len(in.Votes) > in.TotalJudges {
		return Decision{}, fmt.Errorf("%w: %d ballots, %d judges", ErrTooManyBallots, len(in.Votes), in.TotalJudges)
	}
	if len(in.Votes) < in.TotalJudges {
		return Decision{Outcome: OutcomePending}, nil
	}

	p1, p2 := *in.Match.Participant1ID, *in.Match.Participant2ID
	counts := map[int]int{p1: 0, p2: 0}
	ties := 0
	for _, v := range in.Votes {
		if v.VotedFor.IsTie() {
			ties++
			continue
		}
		id := *v.VotedFor.ParticipantID
		if _, ok := counts[id]; !ok {
			return Decision{}, fmt.Errorf("%w: ballot %d voted for participant %d", ErrWinnerNotInMatch, v.ID, id)
		}
		counts[id]++
	}

	if ties == len(in.Votes) {
		return Decision{Outcome: OutcomeTieRematch, Reason: "all judges voted tie"}, nil
	}
	if counts[p1] == counts[p2] {
		return Decision{Outcome: OutcomeTieRematch, Reason: fmt.Sprintf("split decision %d-%d", counts[p1], counts[p2])}, nil
	}
	winner := p1
	if counts[p2] > counts[p1] {
		winner = p2
	}
	return Decision{
		Outcome:  OutcomeResolved,
		WinnerID: &winner,
		Reason:   fmt.Sprintf("%d-%d with %d tie ballots", max(counts[p1], counts[p2]), min(counts[p1], counts[p2]), ties),
	}, nil
}

// ScoreAggregate решает матч по средней оценке отбора. Работает при любом
// RESOLUTION_MODE: это ручное завершение матча администратором.
// Равные средние отправляют матч на переигровку.
type ScoreAggregate struct{}

func (ScoreAggregate) Resolve(in ResolutionInput) (Decision, error) {
	if in.Match == nil || !in.Match.IsReady() {
		return Decision{}, ErrMatchNotReady
	}
	p1, p2 := *in.Match.Participant1ID, *in.Match.Participant2ID
	s1, s2 := in.Scores[p1], in.Scores[p2]
	if s1.Count == 0 && s2.Count == 0 {
		return Decision{}, fmt.Errorf("%w: match %d", ErrNoScores, in.Match.ID)
	}

	reason := fmt.Sprintf("average %d/%d vs %d/%d", s1.Sum, s1.Count, s2.Sum, s2.Count)
	switch cmp := CompareAverages(s1, s2); {
	case cmp > 0:
		return Decision{Outcome: OutcomeResolved, WinnerID: &p1, Reason: reason}, nil
	case cmp < 0:
		return Decision{Outcome: OutcomeResolved, WinnerID: &p2, Reason: reason}, nil
	}
	return Decision{Outcome: OutcomeTieRematch, Reason: "equal average scores: " + reason}, nil
}
