package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteChoiceUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		tie     bool
		id      int
		wantErr bool
	}{
		{in: `"tie"`, tie: true},
		{in: `17`, id: 17},
		{in: `"17"`, id: 17},
		{in: `null`, wantErr: true},
		{in: `0`, wantErr: true},
		{in: `-3`, wantErr: true},
		{in: `"draw"`, wantErr: true},
		{in: `"17abc"`, wantErr: true},
		{in: `1.5`, wantErr: true},
		{in: `{}`, wantErr: true},
	}
	for _, tt := range tests {
		var c VoteChoice
		err := json.Unmarshal([]byte(tt.in), &c)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidVoteChoice, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.tie, c.IsTie(), tt.in)
		if !tt.tie {
			assert.Equal(t, tt.id, *c.ParticipantID, tt.in)
		}
	}
}

func TestVoteChoiceMarshal(t *testing.T) {
	out, err := json.Marshal(Vote{ID: 1, VotedFor: TieChoice()})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"voted_for":"tie"`)

	out, err = json.Marshal(Vote{ID: 2, VotedFor: ChoiceFor(9)})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"voted_for":9`)

	assert.Equal(t, "tie", TieChoice().String())
	assert.Equal(t, "participant:9", ChoiceFor(9).String())
}
