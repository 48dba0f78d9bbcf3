package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dosada05/dance-battle/brackets"
	"github.com/Dosada05/dance-battle/models"
)

type testEnv struct {
	store    *memStore
	notifier *recordingNotifier

	events       EventService
	tournaments  TournamentService
	participants ParticipantService
	preselection PreselectionService
	brackets     BracketService
	matches      MatchService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, mode brackets.ResolutionMode) *testEnv {
	t.Helper()
	store := newMemStore()
	notifier := &recordingNotifier{}
	logger := discardLogger()

	eventRepo := memEventRepo{store}
	tournamentRepo := memTournamentRepo{store}
	participantRepo := memParticipantRepo{store}
	judgeRepo := memJudgeRepo{store}
	matchRepo := memMatchRepo{store}
	scoreRepo := memScoreRepo{store}
	voteRepo := memVoteRepo{store}

	resolver, err := brackets.NewResolver(mode)
	require.NoError(t, err)

	return &testEnv{
		store:        store,
		notifier:     notifier,
		events:       NewEventService(store, eventRepo, tournamentRepo, participantRepo, judgeRepo, matchRepo, scoreRepo, voteRepo, logger),
		tournaments:  NewTournamentService(store, eventRepo, tournamentRepo, participantRepo, judgeRepo, matchRepo, scoreRepo, voteRepo, notifier, logger),
		participants: NewParticipantService(store, tournamentRepo, participantRepo, judgeRepo, matchRepo, scoreRepo, notifier, logger),
		preselection: NewPreselectionService(store, tournamentRepo, participantRepo, judgeRepo, scoreRepo, notifier, logger),
		brackets:     NewBracketService(store, tournamentRepo, participantRepo, matchRepo, voteRepo, rand.New(rand.NewPCG(11, 29)), notifier, logger),
		matches:      NewMatchService(store, tournamentRepo, participantRepo, judgeRepo, matchRepo, scoreRepo, voteRepo, resolver, notifier, logger),
	}
}

func (e *testEnv) createTournament(t *testing.T, size int) *models.Tournament {
	t.Helper()
	ctx := context.Background()
	event, err := e.events.CreateEvent(ctx, CreateEventInput{Name: "Battle Night", Date: time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	tournament, err := e.tournaments.CreateTournament(ctx, CreateTournamentInput{
		EventID:          event.ID,
		Name:             "Breaking 1x1",
		DanceStyle:       "breaking",
		ParticipantCount: size,
	})
	require.NoError(t, err)
	return tournament
}

func (e *testEnv) register(t *testing.T, tournamentID, n int) []*models.Participant {
	t.Helper()
	out := make([]*models.Participant, 0, n)
	for i := 0; i < n; i++ {
		res, err := e.participants.RegisterParticipant(context.Background(), tournamentID, RegisterParticipantInput{Name: fmt.Sprintf("dancer %d", i+1)})
		require.NoError(t, err)
		out = append(out, res.Participant)
	}
	return out
}

func (e *testEnv) addJudges(t *testing.T, tournamentID, n int) []*models.Judge {
	t.Helper()
	out := make([]*models.Judge, 0, n)
	for i := 0; i < n; i++ {
		j, err := e.participants.RegisterJudge(context.Background(), tournamentID, RegisterJudgeInput{Name: fmt.Sprintf("judge %d", i+1)})
		require.NoError(t, err)
		out = append(out, j)
	}
	return out
}

// startBracket генерирует сетку и запускает турнир.
func (e *testEnv) startBracket(t *testing.T, tournamentID int) []*models.Match {
	t.Helper()
	ctx := context.Background()
	res, err := e.brackets.GenerateBrackets(ctx, tournamentID)
	require.NoError(t, err)
	_, err = e.tournaments.StartTournament(ctx, tournamentID)
	require.NoError(t, err)
	return res.Matches
}

func (e *testEnv) tournament(t *testing.T, id int) *models.Tournament {
	t.Helper()
	tr, err := memTournamentRepo{e.store}.GetByID(context.Background(), nil, id)
	require.NoError(t, err)
	return tr
}

func (e *testEnv) match(t *testing.T, tournamentID, round, position int) *models.Match {
	t.Helper()
	m, err := memMatchRepo{e.store}.GetByRoundPositionForUpdate(context.Background(), nil, tournamentID, round, position)
	require.NoError(t, err)
	return m
}

func (e *testEnv) vote(t *testing.T, matchID, judgeID int, choice models.VoteChoice) *ResolutionResult {
	t.Helper()
	res, err := e.matches.CastVote(context.Background(), CastVoteInput{MatchID: matchID, JudgeID: judgeID, Choice: choice})
	require.NoError(t, err)
	return res
}
