package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TieVote — значение голоса «ничья» в JSON.
const TieVote = "tie"

var ErrInvalidVoteChoice = errors.New(`vote must be a participant id or "tie"`)

// VoteChoice is either a participant id or the tie sentinel (nil ParticipantID).
type VoteChoice struct {
	ParticipantID *int
}

func TieChoice() VoteChoice {
	return VoteChoice{}
}

func ChoiceFor(participantID int) VoteChoice {
	return VoteChoice{ParticipantID: &participantID}
}

func (c VoteChoice) IsTie() bool {
	return c.ParticipantID == nil
}

func (c VoteChoice) String() string {
	if c.IsTie() {
		return TieVote
	}
	return fmt.Sprintf("participant:%d", *c.ParticipantID)
}

func (c VoteChoice) MarshalJSON() ([]byte, error) {
	if c.IsTie() {
		return json.Marshal(TieVote)
	}
	return json.Marshal(*c.ParticipantID)
}

// UnmarshalJSON принимает число, строку с числом или "tie".
func (c *VoteChoice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ErrInvalidVoteChoice
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ErrInvalidVoteChoice
		}
		if s == TieVote {
			c.ParticipantID = nil
			return nil
		}
		var id int
		if _, err := fmt.Sscanf(s, "%d", &id); err != nil || fmt.Sprint(id) != s || id <= 0 {
			return ErrInvalidVoteChoice
		}
		c.ParticipantID = &id
		return nil
	}
	var id int
	if err := json.Unmarshal(data, &id); err != nil || id <= 0 {
		return ErrInvalidVoteChoice
	}
	c.ParticipantID = &id
	return nil
}

type Vote struct {
	ID        int        `json:"id"`
	MatchID   int        `json:"match_id"`
	JudgeID   int        `json:"judge_id"`
	VotedFor  VoteChoice `json:"voted_for"`
	CreatedAt time.Time  `json:"created_at"`
}
