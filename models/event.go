package models

import "time"

// Event группирует несколько турниров (разные стили в один день).
type Event struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"created_at"`

	Tournaments []Tournament `json:"tournaments,omitempty"`
}
