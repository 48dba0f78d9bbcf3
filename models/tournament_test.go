package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusForHeadcount(t *testing.T) {
	assert.Equal(t, StatusPending, StatusForHeadcount(0, 4))
	assert.Equal(t, StatusPending, StatusForHeadcount(3, 4))
	assert.Equal(t, StatusReadyToBracket, StatusForHeadcount(4, 4))
	assert.Equal(t, StatusPreselection, StatusForHeadcount(5, 4))
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to TournamentStatus
		allowed  bool
	}{
		{StatusPending, StatusReadyToBracket, true},
		{StatusPending, StatusPreselection, true},
		{StatusPreselection, StatusReadyToBracket, true},
		{StatusReadyToBracket, StatusPending, true},
		{StatusReadyToBracket, StatusActive, true},
		{StatusActive, StatusCompleted, true},
		{StatusPending, StatusActive, false},
		{StatusPreselection, StatusActive, false},
		{StatusActive, StatusPending, false},
		{StatusCompleted, StatusActive, false},
		{StatusReadyToBracket, StatusCompleted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}

	assert.True(t, StatusActive.CanTransitionTo(StatusActive))
	assert.False(t, TournamentStatus("ARCHIVED").IsValid())
	assert.True(t, StatusPreselection.AcceptsRegistration())
	assert.False(t, StatusActive.AcceptsRegistration())
	assert.False(t, StatusCompleted.AcceptsRegistration())
}

func TestMatchState(t *testing.T) {
	a, b := 1, 2
	m := &Match{}
	assert.Equal(t, MatchStateEmpty, m.ComputeState())

	m.Participant2ID = &b
	assert.Equal(t, MatchStateWaiting, m.ComputeState())
	assert.False(t, m.IsReady())

	m.Participant1ID = &a
	assert.True(t, m.IsReady())
	assert.Equal(t, []int{1, 2}, m.ParticipantIDs())
	assert.True(t, m.HasParticipant(2))
	assert.False(t, m.HasParticipant(3))

	m.WinnerID = &a
	m.RefreshState()
	assert.Equal(t, MatchStateResolved, m.State)
}
