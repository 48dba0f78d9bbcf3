package models

import "time"

const (
	MinScoreValue = 1
	MaxScoreValue = 10
)

type Score struct {
	ID            int       `json:"id"`
	TournamentID  int       `json:"tournament_id"`
	ParticipantID int       `json:"participant_id"`
	JudgeID       int       `json:"judge_id"`
	Value         int       `json:"value"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
