package services

import (
	"errors"
	"fmt"
)

// Категории ошибок. Каждая конкретная ошибка оборачивает ровно одну из них,
// по ним handlers выбирают HTTP статус.
var (
	ErrNotFound         = errors.New("requested resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("operation conflicts with current state")
	ErrIntegrity        = errors.New("data integrity violation")

	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")
)

// Ресурс не найден
var (
	ErrEventNotFound       = fmt.Errorf("%w: event not found", ErrNotFound)
	ErrTournamentNotFound  = fmt.Errorf("%w: tournament not found", ErrNotFound)
	ErrParticipantNotFound = fmt.Errorf("%w: participant not found", ErrNotFound)
	ErrJudgeNotFound       = fmt.Errorf("%w: judge not found", ErrNotFound)
	ErrMatchNotFound       = fmt.Errorf("%w: match not found", ErrNotFound)
)

// Ошибки валидации
var (
	ErrNameRequired               = fmt.Errorf("%w: name is required", ErrValidationFailed)
	ErrEventDateRequired          = fmt.Errorf("%w: event date is required", ErrValidationFailed)
	ErrTournamentInvalidSize      = fmt.Errorf("%w: participant count must be a power of two and at least 2", ErrValidationFailed)
	ErrScoreOutOfRange            = fmt.Errorf("%w: score must be between 1 and 10", ErrValidationFailed)
	ErrParticipantNotInTournament = fmt.Errorf("%w: participant does not belong to this tournament", ErrValidationFailed)
	ErrJudgeNotInTournament       = fmt.Errorf("%w: judge does not belong to this tournament", ErrValidationFailed)
	ErrVoteChoiceNotInMatch       = fmt.Errorf("%w: voted participant is not in this match", ErrValidationFailed)
	ErrJudgeScoringIncomplete     = fmt.Errorf("%w: judge has not scored every participant", ErrValidationFailed)
	ErrPreselectionUnderfilled    = fmt.Errorf("%w: fewer scored participants than the bracket size", ErrValidationFailed)
	ErrImageTypeNotAllowed        = fmt.Errorf("%w: image content type is not allowed", ErrValidationFailed)
	ErrImageTooLarge              = fmt.Errorf("%w: image is too large", ErrValidationFailed)
	ErrWinnerRequired             = fmt.Errorf("%w: winner is required", ErrValidationFailed)
	ErrMatchScoresMissing         = fmt.Errorf("%w: neither participant has preselection scores", ErrValidationFailed)
)

// Конфликты с текущим состоянием
var (
	ErrTournamentInvalidStatusTransition = fmt.Errorf("%w: invalid tournament status transition", ErrConflict)
	ErrRegistrationClosed                = fmt.Errorf("%w: tournament no longer accepts registration changes", ErrConflict)
	ErrScoringClosed                     = fmt.Errorf("%w: tournament is not in preselection", ErrConflict)
	ErrTournamentNotReadyForBracket      = fmt.Errorf("%w: tournament is not ready for bracket generation", ErrConflict)
	ErrParticipantCountMismatch          = fmt.Errorf("%w: participant count does not match the bracket size", ErrConflict)
	ErrBracketNotGenerated               = fmt.Errorf("%w: bracket has not been generated", ErrConflict)
	ErrTournamentNotActive               = fmt.Errorf("%w: tournament is not active", ErrConflict)
	ErrMatchNotReady                     = fmt.Errorf("%w: match is not ready", ErrConflict)
	ErrMatchAlreadyResolved              = fmt.Errorf("%w: match already has a different winner", ErrConflict)
	ErrAlreadyVoted                      = fmt.Errorf("%w: judge already voted in this match", ErrConflict)
	ErrVotingDisabled                    = fmt.Errorf("%w: matches are decided by the administrator", ErrConflict)
	ErrDeclaringDisabled                 = fmt.Errorf("%w: matches are decided by judge votes", ErrConflict)
	ErrUploadsDisabled                   = fmt.Errorf("%w: image storage is not configured", ErrConflict)
)

// Нарушения целостности данных
var (
	ErrNotEnoughParticipants = fmt.Errorf("%w: at least 2 participants are required", ErrIntegrity)
	ErrWinnerNotInMatch      = fmt.Errorf("%w: winner is not a participant of this match", ErrIntegrity)
	ErrBracketSlotOccupied   = fmt.Errorf("%w: next match slot is already occupied", ErrIntegrity)
	ErrBracketInconsistent   = fmt.Errorf("%w: bracket structure is inconsistent", ErrIntegrity)
)

// Аутентификация
var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid admin password", ErrAuthenticationFailed)
)
