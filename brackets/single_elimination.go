package brackets

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/Dosada05/dance-battle/models"
)

var (
	ErrNotEnoughParticipants    = errors.New("not enough participants to generate a single elimination bracket (minimum 2)")
	ErrParticipantCountMismatch = errors.New("participant count does not match the tournament bracket size")
)

// BracketMatch — матч до сохранения. Связь с родителем не хранится,
// её вычисляет ParentOf по (Round, OrderInRound).
type BracketMatch struct {
	Round        int
	OrderInRound int
	MatchNumber  int

	Participant1ID *int
	Participant2ID *int
}

type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket строит всё дерево матчей сразу: раунд r содержит N/2^r матчей,
// участники (после случайной перестановки) расставляются только в первый раунд.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	participants := params.Participants
	n := len(participants)

	if n < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrNotEnoughParticipants, n)
	}
	if params.Tournament != nil && params.Tournament.ParticipantCount != n {
		return nil, fmt.Errorf("%w: have %d, bracket size %d", ErrParticipantCountMismatch, n, params.Tournament.ParticipantCount)
	}
	numRounds, err := RoundCount(n)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Стабильный порядок по регистрационному номеру перед перемешиванием,
	// чтобы результат зависел только от источника случайности.
	seeded := make([]*models.Participant, n)
	copy(seeded, participants)
	sort.SliceStable(seeded, func(i, j int) bool {
		return seeded[i].RegistrationNumber < seeded[j].RegistrationNumber
	})
	shuffle(seeded, params.Rand)

	allGeneratedMatches := make([]*BracketMatch, 0, n-1)
	matchNumber := 0

	for r := 1; r <= numRounds; r++ {
		matchesInRound := n >> uint(r)
		for pos := 1; pos <= matchesInRound; pos++ {
			matchNumber++
			bm := &BracketMatch{
				Round:        r,
				OrderInRound: pos,
				MatchNumber:  matchNumber,
			}
			if r == 1 {
				p1 := seeded[2*(pos-1)].ID
				p2 := seeded[2*(pos-1)+1].ID
				bm.Participant1ID = &p1
				bm.Participant2ID = &p2
			}
			allGeneratedMatches = append(allGeneratedMatches, bm)
		}
	}

	return allGeneratedMatches, nil
}

func shuffle(participants []*models.Participant, r *rand.Rand) {
	swap := func(i, j int) { participants[i], participants[j] = participants[j], participants[i] }
	if r != nil {
		r.Shuffle(len(participants), swap)
		return
	}
	rand.Shuffle(len(participants), swap)
}
