package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/dance-battle/brackets"
	"github.com/Dosada05/dance-battle/models"
	"github.com/Dosada05/dance-battle/repositories"
)

func TestCreateTournamentValidation(t *testing.T) {
	env := newTestEnv(t, brackets.ModeJudgeVote)
	ctx := context.Background()
	base := env.createTournament(t, 2)

	for _, size := range []int{-2, 0, 1, 3, 6, 12} {
		_, err := env.tournaments.CreateTournament(ctx, CreateTournamentInput{EventID: base.EventID, Name: "x", ParticipantCount: size})
		assert.ErrorIs(t, err, ErrTournamentInvalidSize, "size %d", size)
		assert.ErrorIs(t, err, ErrValidationFailed)
	}

	_, err := env.tournaments.CreateTournament(ctx, CreateTournamentInput{EventID: base.EventID, Name: "   ", ParticipantCount: 4})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = env.tournaments.CreateTournament(ctx, CreateTournamentInput{EventID: 9999, Name: "orphan", ParticipantCount: 4})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, models.StatusPending, base.Status)
}

func TestRegistrationRecomputesStatus(t *testing.T) {
	env := newTestEnv(t, brackets.ModeJudgeVote)
	ctx := context.Background()
	tr := env.createTournament(t, 4)

	expected := []models.TournamentStatus{
		models.StatusPending,
		models.StatusPending,
		models.StatusPending,
		models.StatusReadyToBracket,
		models.StatusPreselection,
	}
	var registered []*models.Participant
	for i, want := range expected {
		res, err := env.participants.RegisterParticipant(ctx, tr.ID, RegisterParticipantInput{Name: "dancer"})
		require.NoError(t, err)
		assert.Equal(t, want, res.Tournament.Status, "after registration %d", i+1)
		assert.Equal(t, i+1, res.Participant.RegistrationNumber)
		registered = append(registered, res.Participant)
	}

	updated, err := env.participants.DeleteParticipant(ctx, registered[4].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReadyToBracket, updated.Status)

	updated, err = env.participants.DeleteParticipant(ctx, registered[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)

	// Номера не переиспользуются после удаления.
	res, err := env.participants.RegisterParticipant(ctx, tr.ID, RegisterParticipantInput{Name: "late"})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Participant.RegistrationNumber)
	assert.Equal(t, models.StatusReadyToBracket, res.Tournament.Status)
	assert.Equal(t, models.StatusReadyToBracket, env.tournament(t, tr.ID).Status)
	assert.GreaterOrEqual(t, env.notifier.count(brackets.MessageTournamentUpdated), 8)
}

func TestRegistrationRejectsEmptyName(t *testing.T) {
	env := newTestEnv(t, brackets.ModeJudgeVote)
	tr := env.createTournament(t, 2)

	_, err := env.participants.RegisterParticipant(context.Background(), tr.ID, RegisterParticipantInput{Name: "\t"})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = env.participants.RegisterParticipant(context.Background(), 4242, RegisterParticipantInput{Name: "ghost"})
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestRegistrationClosedOnceActive(t *testing.T) {
	env := newTestEnv(t, brackets.ModeJudgeVote)
	ctx := context.Background()
	tr := env.createTournament(t, 2)
	ps := env.register(t, tr.ID, 2)
	env.addJudges(t, tr.ID, 1)
	env.startBracket(t, tr.ID)

	_, err := env.participants.RegisterParticipant(ctx, tr.ID, RegisterParticipantInput{Name: "late"})
	assert.ErrorIs(t, err, ErrRegistrationClosed)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.participants.DeleteParticipant(ctx, ps[0].ID)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.participants.RegisterJudge(ctx, tr.ID, RegisterJudgeInput{Name: "late judge"})
	assert.ErrorIs(t, err, ErrConflict)

	list, err := env.participants.ListParticipants(ctx, tr.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestParticipantChangeDiscardsGeneratedBracket(t *testing.T) {
	env := newTestEnv(t, brackets.ModeJudgeVote)
	ctx := context.Background()
	tr := env.createTournament(t, 4)
	env.register(t, tr.ID, 4)

	res, err := env.brackets.GenerateBrackets(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, res.Matches, 3)
	assert.Equal(t, models.StatusReadyToBracket, res.Tournament.Status)

	extra := env.register(t, tr.ID, 1)[0]
	assert.Equal(t, models.StatusPreselection, env.tournament(t, tr.ID).Status)
	count, err := memMatchRepo{env.store}.CountByTournament(ctx, nil, tr.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = env.participants.DeleteParticipant(ctx, extra.ID)
	require.NoError(t, err)
	_, err = env.tournaments.StartTournament(ctx, tr.ID)
	assert.ErrorIs(t, err, ErrBracketNotGenerated)
}

func TestGenerateBracketsPreconditions(t *testing.T) {
	env := newTestEnv(t, brackets.ModeJudgeVote)
	ctx := context.Background()
	tr := env.createTournament(t, 4)
	env.register(t, tr.ID, 3)

	_, err := env.brackets.GenerateBrackets(ctx, tr.ID)
	assert.ErrorIs(t, err, ErrTournamentNotReadyForBracket)

	_, err = env.brackets.GenerateBrackets(ctx, 777)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestGenerateBracketsReplacesUnstartedBracket(t *testing.T) {
	env := newTestEnv(t, brackets.ModeJudgeVote)
	ctx := context.Background()
	tr := env.createTournament(t, 8)
	ps := env.register(t, tr.ID, 8)

	first, err := env.brackets.GenerateBrackets(ctx, tr.ID)
	require.NoError(t, err)
	second, err := env.brackets.GenerateBrackets(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, second.Matches, 7)
	assert.NotEqual(t, first.Matches[0].ID, second.Matches[0].ID)

	stored, err := memMatchRepo{env.store}.ListByTournament(ctx, nil, tr.ID)
	require.NoError(t, err)
	require.Len(t, stored, 7)

	seated := map[int]int{}
	for _, m := range stored {
		if m.Round == 1 {
			require.True(t, m.IsReady())
			for _, id := range m.ParticipantIDs() {
				seated[id]++
			}
		} else {
			assert.Equal(t, models.MatchStateEmpty, m.State)
		}
	}
	require.Len(t, seated, len(ps))
	for _, p := range ps {
		assert.Equal(t, 1, seated[p.ID], "participant %d seated once", p.ID)
	}
	assert.Equal(t, 2, env.notifier.count(brackets.MessageBracketGenerated))
}

func TestStartTournamentPreconditions(t *testing.T) {
	env := newTestEnv(t, brackets.ModeJudgeVote)
	ctx := context.Background()
	tr := env.createTournament(t, 2)

	_, err := env.tournaments.StartTournament(ctx, tr.ID)
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)

	env.register(t, tr.ID, 2)
	_, err = env.tournaments.StartTournament(ctx, tr.ID)
	assert.ErrorIs(t, err, ErrBracketNotGenerated)

	_, err = env.brackets.GenerateBrackets(ctx, tr.ID)
	require.NoError(t, err)
	started, err := env.tournaments.StartTournament(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, started.Status)

	_, err = env.tournaments.StartTournament(ctx, tr.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetTournamentLoadsDetails(t *testing.T) {
	env := newTestEnv(t, brackets.ModeJudgeVote)
	tr := env.createTournament(t, 4)
	env.register(t, tr.ID, 4)
	env.addJudges(t, tr.ID, 3)
	env.startBracket(t, tr.ID)

	got, err := env.tournaments.GetTournament(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.Len(t, got.Participants, 4)
	assert.Len(t, got.Judges, 3)
	require.Len(t, got.Matches, 3)
	assert.NotNil(t, got.Matches[0].Participant1)
	assert.NotNil(t, got.Matches[0].Participant2)
	assert.Equal(t, models.MatchStateReady, got.Matches[0].State)

	_, err = env.tournaments.GetTournament(context.Background(), 31337)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTournamentsFilters(t *testing.T) {
	env := newTestEnv(t, brackets.ModeJudgeVote)
	ctx := context.Background()
	a := env.createTournament(t, 2)
	env.createTournament(t, 4)
	env.register(t, a.ID, 2)

	ready := models.StatusReadyToBracket
	list, err := env.tournaments.ListTournaments(ctx, repositories.ListTournamentsFilter{Status: &ready})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	bogus := models.TournamentStatus("FINISHED")
	_, err = env.tournaments.ListTournaments(ctx, repositories.ListTournamentsFilter{Status: &bogus})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestDeleteTournamentCascades(t *testing.T) {
	env := newTestEnv(t, brackets.ModeJudgeVote)
	ctx := context.Background()
	tr := env.createTournament(t, 2)
	ps := env.register(t, tr.ID, 2)
	judges := env.addJudges(t, tr.ID, 2)
	env.startBracket(t, tr.ID)
	final := env.match(t, tr.ID, 1, 1)
	env.vote(t, final.ID, judges[0].ID, models.ChoiceFor(ps[0].ID))

	require.NoError(t, env.tournaments.DeleteTournament(ctx, tr.ID))

	assert.Empty(t, env.store.tournaments)
	assert.Empty(t, env.store.participants)
	assert.Empty(t, env.store.judges)
	assert.Empty(t, env.store.matches)
	assert.Empty(t, env.store.votes)
	assert.Len(t, env.store.events, 1)

	err := env.tournaments.DeleteTournament(ctx, tr.ID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestDeleteCompletedTournamentClearsWinner(t *testing.T) {
	env := newTestEnv(t, brackets.ModeAdmin)
	ctx := context.Background()
	tr := env.createTournament(t, 2)
	env.register(t, tr.ID, 2)
	env.startBracket(t, tr.ID)
	final := env.match(t, tr.ID, 1, 1)
	_, err := env.matches.DeclareWinner(ctx, final.ID, *final.Participant2ID)
	require.NoError(t, err)

	require.NoError(t, env.tournaments.DeleteTournament(ctx, tr.ID))
	assert.Empty(t, env.store.tournaments)
	assert.Empty(t, env.store.participants)
}

func TestDeleteEventCascadesTournaments(t *testing.T) {
	env := newTestEnv(t, brackets.ModeJudgeVote)
	ctx := context.Background()
	tr := env.createTournament(t, 2)
	ps := env.register(t, tr.ID, 3)
	judges := env.addJudges(t, tr.ID, 1)
	_, err := env.preselection.SubmitScore(ctx, SubmitScoreInput{TournamentID: tr.ID, ParticipantID: ps[0].ID, JudgeID: judges[0].ID, Value: 7})
	require.NoError(t, err)

	second, err := env.tournaments.CreateTournament(ctx, CreateTournamentInput{EventID: tr.EventID, Name: "Popping", ParticipantCount: 4})
	require.NoError(t, err)

	event, err := env.events.GetEvent(ctx, tr.EventID)
	require.NoError(t, err)
	assert.Len(t, event.Tournaments, 2)

	require.NoError(t, env.events.DeleteEvent(ctx, tr.EventID))
	assert.Empty(t, env.store.events)
	assert.Empty(t, env.store.tournaments)
	assert.Empty(t, env.store.scores)
	assert.Empty(t, env.store.participants)

	_, err = env.tournaments.GetTournament(ctx, second.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateEventValidation(t *testing.T) {
	env := newTestEnv(t, brackets.ModeJudgeVote)
	ctx := context.Background()

	_, err := env.events.CreateEvent(ctx, CreateEventInput{Name: "No date"})
	assert.ErrorIs(t, err, ErrEventDateRequired)

	_, err = env.events.CreateEvent(ctx, CreateEventInput{})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = env.events.GetEvent(ctx, 5)
	assert.ErrorIs(t, err, ErrEventNotFound)
}
