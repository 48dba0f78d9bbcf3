package brackets

import (
	"errors"
	"fmt"
	"math/bits"
)

var (
	ErrBracketSizeNotPowerOfTwo = errors.New("bracket size must be a power of two and at least 2")
	ErrRoundOutOfRange          = errors.New("round is outside the bracket")
	ErrPositionOutOfRange       = errors.New("position is outside the round")
)

// Slot — позиция участника внутри матча (1 или 2).
type Slot int

const (
	Slot1 Slot = 1
	Slot2 Slot = 2
)

func IsPowerOfTwo(n int) bool {
	return n >= 2 && n&(n-1) == 0
}

// RoundCount returns k for a bracket of size n = 2^k.
func RoundCount(size int) (int, error) {
	if !IsPowerOfTwo(size) {
		return 0, fmt.Errorf("%w: got %d", ErrBracketSizeNotPowerOfTwo, size)
	}
	return bits.TrailingZeros(uint(size)), nil
}

// MatchesInRound returns size / 2^round.
func MatchesInRound(size, round int) (int, error) {
	rounds, err := RoundCount(size)
	if err != nil {
		return 0, err
	}
	if round < 1 || round > rounds {
		return 0, fmt.Errorf("%w: round %d of %d", ErrRoundOutOfRange, round, rounds)
	}
	return size >> uint(round), nil
}

// FirstMatchNumber — сквозной номер первого матча раунда (нумерация с 1, по раундам).
func FirstMatchNumber(size, round int) (int, error) {
	if _, err := MatchesInRound(size, round); err != nil {
		return 0, err
	}
	first := 1
	for r := 1; r < round; r++ {
		first += size >> uint(r)
	}
	return first, nil
}

// MatchNumber converts a (round, position) pair into the tournament-wide match number.
func MatchNumber(size, round, position int) (int, error) {
	count, err := MatchesInRound(size, round)
	if err != nil {
		return 0, err
	}
	if position < 1 || position > count {
		return 0, fmt.Errorf("%w: position %d of %d in round %d", ErrPositionOutOfRange, position, count, round)
	}
	first, err := FirstMatchNumber(size, round)
	if err != nil {
		return 0, err
	}
	return first + position - 1, nil
}

// ParentRef указывает, куда уходит победитель матча.
type ParentRef struct {
	Round    int
	Position int
	Slot     Slot
}

// ParentOf returns the match fed by (round, position): (round+1, ceil(position/2)).
// Odd positions feed slot 1, even positions feed slot 2. ok is false for the final.
func ParentOf(size, round, position int) (ParentRef, bool, error) {
	rounds, err := RoundCount(size)
	if err != nil {
		return ParentRef{}, false, err
	}
	count, err := MatchesInRound(size, round)
	if err != nil {
		return ParentRef{}, false, err
	}
	if position < 1 || position > count {
		return ParentRef{}, false, fmt.Errorf("%w: position %d of %d in round %d", ErrPositionOutOfRange, position, count, round)
	}
	if round == rounds {
		return ParentRef{}, false, nil
	}
	slot := Slot1
	if position%2 == 0 {
		slot = Slot2
	}
	return ParentRef{Round: round + 1, Position: (position + 1) / 2, Slot: slot}, true, nil
}
