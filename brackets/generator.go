package brackets

import (
	"context"
	"math/rand/v2"

	"github.com/Dosada05/dance-battle/models"
)

type GenerateBracketParams struct {
	Tournament   *models.Tournament
	Participants []*models.Participant
	// Rand используется для случайного посева; nil — глобальный источник.
	Rand *rand.Rand
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() string
}
