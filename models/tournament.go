package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusPending        TournamentStatus = "PENDING"
	StatusPreselection   TournamentStatus = "PRESELECTION"
	StatusReadyToBracket TournamentStatus = "READY_TO_BRACKET"
	StatusActive         TournamentStatus = "ACTIVE"
	StatusCompleted      TournamentStatus = "COMPLETED"
)

// allowedTransitions описывает допустимые переходы статусов.
// Переходы между PENDING, PRESELECTION и READY_TO_BRACKET выполняет только
// пересчёт по числу участников; ACTIVE достигается только через старт,
// COMPLETED только через финальный матч.
var allowedTransitions = map[TournamentStatus][]TournamentStatus{
	StatusPending:        {StatusPreselection, StatusReadyToBracket},
	StatusPreselection:   {StatusPending, StatusReadyToBracket},
	StatusReadyToBracket: {StatusPending, StatusPreselection, StatusActive},
	StatusActive:         {StatusCompleted},
	StatusCompleted:      {},
}

func (s TournamentStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// Staying in the same status is always allowed.
func (s TournamentStatus) CanTransitionTo(next TournamentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsRegistration is false once the bracket is locked.
func (s TournamentStatus) AcceptsRegistration() bool {
	return s != StatusActive && s != StatusCompleted
}

// StatusForHeadcount вычисляет статус регистрации исключительно по (count, target).
func StatusForHeadcount(count, target int) TournamentStatus {
	switch {
	case count < target:
		return StatusPending
	case count == target:
		return StatusReadyToBracket
	default:
		return StatusPreselection
	}
}

// Tournament представляет турнир.
type Tournament struct {
	ID                     int              `json:"id" db:"id"`
	EventID                int              `json:"event_id" db:"event_id"`
	Name                   string           `json:"name" db:"name"`
	DanceStyle             string           `json:"dance_style" db:"dance_style"`
	ParticipantCount       int              `json:"participant_count" db:"participant_count"`
	Status                 TournamentStatus `json:"status" db:"status"`
	NextRegistrationNumber int              `json:"next_registration_number" db:"next_registration_number"`
	WinnerParticipantID    *int             `json:"winner_participant_id,omitempty" db:"winner_participant_id"`
	CreatedAt              time.Time        `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Participants []Participant `json:"participants,omitempty" db:"-"`
	Judges       []Judge       `json:"judges,omitempty" db:"-"`
	Matches      []Match       `json:"matches,omitempty" db:"-"`
}
