package models

import "time"

type Participant struct {
	ID                 int       `json:"id"`
	TournamentID       int       `json:"tournament_id"`
	Name               string    `json:"name"`
	ImageURL           string    `json:"image_url"`
	RegistrationNumber int       `json:"registration_number"`
	CreatedAt          time.Time `json:"created_at"`
}

// ParticipantStanding — участник вместе с результатами предварительного отбора.
type ParticipantStanding struct {
	Participant  Participant `json:"participant"`
	ScoreCount   int         `json:"score_count"`
	ScoreSum     int         `json:"score_sum"`
	AverageScore float64     `json:"average_score"`
	Rank         int         `json:"rank"`
}
