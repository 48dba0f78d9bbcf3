package models

import "time"

// MatchState вычисляется из записи матча и не хранится в БД.
type MatchState string

const (
	MatchStateEmpty    MatchState = "EMPTY"
	MatchStateWaiting  MatchState = "WAITING"
	MatchStateReady    MatchState = "READY"
	MatchStateResolved MatchState = "RESOLVED"
)

type Match struct {
	ID             int       `json:"id"`
	TournamentID   int       `json:"tournament_id"`
	Round          int       `json:"round"`
	Position       int       `json:"position"`
	MatchNumber    int       `json:"match_number"`
	Participant1ID *int      `json:"participant1_id,omitempty"`
	Participant2ID *int      `json:"participant2_id,omitempty"`
	WinnerID       *int      `json:"winner_id,omitempty"`
	RematchCount   int       `json:"rematch_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	State        MatchState   `json:"state"`
	Participant1 *Participant `json:"participant1,omitempty"`
	Participant2 *Participant `json:"participant2,omitempty"`
}

// ParticipantIDs returns the occupied slots in slot order.
func (m *Match) ParticipantIDs() []int {
	ids := make([]int, 0, 2)
	if m.Participant1ID != nil {
		ids = append(ids, *m.Participant1ID)
	}
	if m.Participant2ID != nil {
		ids = append(ids, *m.Participant2ID)
	}
	return ids
}

func (m *Match) HasParticipant(participantID int) bool {
	for _, id := range m.ParticipantIDs() {
		if id == participantID {
			return true
		}
	}
	return false
}

func (m *Match) ComputeState() MatchState {
	switch {
	case m.WinnerID != nil:
		return MatchStateResolved
	case len(m.ParticipantIDs()) == 2:
		return MatchStateReady
	case len(m.ParticipantIDs()) == 1:
		return MatchStateWaiting
	default:
		return MatchStateEmpty
	}
}

// RefreshState обновляет поле State после загрузки или изменения матча.
func (m *Match) RefreshState() {
	m.State = m.ComputeState()
}

func (m *Match) IsReady() bool {
	return m.ComputeState() == MatchStateReady
}
