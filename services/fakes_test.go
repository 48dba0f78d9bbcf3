package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/dance-battle/models"
	"github.com/Dosada05/dance-battle/repositories"
)

// memStore — хранилище в памяти, реализующее интерфейсы репозиториев.
// Транзакции сериализуются и откатываются восстановлением снимка.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID       int
	events       map[int]models.Event
	tournaments  map[int]models.Tournament
	participants map[int]models.Participant
	judges       map[int]models.Judge
	scores       map[int]models.Score
	matches      map[int]models.Match
	votes        map[int]models.Vote
}

func newMemStore() *memStore {
	return &memStore{
		events:       map[int]models.Event{},
		tournaments:  map[int]models.Tournament{},
		participants: map[int]models.Participant{},
		judges:       map[int]models.Judge{},
		scores:       map[int]models.Score{},
		matches:      map[int]models.Match{},
		votes:        map[int]models.Vote{},
	}
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMatch(m models.Match) *models.Match {
	m.Participant1ID = copyInt(m.Participant1ID)
	m.Participant2ID = copyInt(m.Participant2ID)
	m.WinnerID = copyInt(m.WinnerID)
	m.Participant1, m.Participant2 = nil, nil
	m.RefreshState()
	return &m
}

func cloneTournament(t models.Tournament) *models.Tournament {
	t.WinnerParticipantID = copyInt(t.WinnerParticipantID)
	t.Participants, t.Judges, t.Matches = nil, nil, nil
	return &t
}

func cloneMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

type memSnapshot struct {
	nextID       int
	events       map[int]models.Event
	tournaments  map[int]models.Tournament
	participants map[int]models.Participant
	judges       map[int]models.Judge
	scores       map[int]models.Score
	matches      map[int]models.Match
	votes        map[int]models.Vote
}

// Значения указателей внутри структур не мутируются на месте, поэтому
// поверхностной копии карт достаточно.
func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		nextID:       s.nextID,
		events:       cloneMap(s.events),
		tournaments:  cloneMap(s.tournaments),
		participants: cloneMap(s.participants),
		judges:       cloneMap(s.judges),
		scores:       cloneMap(s.scores),
		matches:      cloneMap(s.matches),
		votes:        cloneMap(s.votes),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.events = snap.events
	s.tournaments = snap.tournaments
	s.participants = snap.participants
	s.judges = snap.judges
	s.scores = snap.scores
	s.matches = snap.matches
	s.votes = snap.votes
}

func (s *memStore) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// --- events ---

type memEventRepo struct{ s *memStore }

func (r memEventRepo) Create(_ context.Context, _ repositories.SQLExecutor, e *models.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = r.s.id()
	e.CreatedAt = time.Now()
	r.s.events[e.ID] = *e
	return nil
}

func (r memEventRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	return &e, nil
}

func (r memEventRepo) List(_ context.Context, _ repositories.SQLExecutor) ([]models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Event, 0, len(r.s.events))
	for _, e := range r.s.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memEventRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[id]; !ok {
		return repositories.ErrEventNotFound
	}
	for _, t := range r.s.tournaments {
		if t.EventID == id {
			return repositories.ErrEventInUse
		}
	}
	delete(r.s.events, id)
	return nil
}

// --- tournaments ---

type memTournamentRepo struct{ s *memStore }

func (r memTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[t.EventID]; !ok {
		return repositories.ErrTournamentInvalidEvent
	}
	t.ID = r.s.id()
	t.NextRegistrationNumber = 1
	t.CreatedAt = time.Now()
	r.s.tournaments[t.ID] = *cloneTournament(*t)
	return nil
}

func (r memTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return cloneTournament(t), nil
}

func (r memTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r memTournamentRepo) List(_ context.Context, _ repositories.SQLExecutor, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Tournament, 0)
	for _, t := range r.s.tournaments {
		if filter.EventID != nil && t.EventID != *filter.EventID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, *cloneTournament(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memTournamentRepo) update(id int, fn func(t *models.Tournament)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	fn(&t)
	r.s.tournaments[id] = t
	return nil
}

func (r memTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	return r.update(id, func(t *models.Tournament) { t.Status = status })
}

func (r memTournamentRepo) UpdateStatusIf(_ context.Context, _ repositories.SQLExecutor, id int, from, to models.TournamentStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	r.s.tournaments[id] = t
	return true, nil
}

func (r memTournamentRepo) NextRegistrationNumber(_ context.Context, _ repositories.SQLExecutor, id int) (int, error) {
	var n int
	err := r.update(id, func(t *models.Tournament) {
		n = t.NextRegistrationNumber
		t.NextRegistrationNumber++
	})
	return n, err
}

func (r memTournamentRepo) UpdateWinner(_ context.Context, _ repositories.SQLExecutor, id int, winner *int) error {
	return r.update(id, func(t *models.Tournament) { t.WinnerParticipantID = copyInt(winner) })
}

func (r memTournamentRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	for _, p := range r.s.participants {
		if p.TournamentID == id {
			return repositories.ErrTournamentInUse
		}
	}
	for _, j := range r.s.judges {
		if j.TournamentID == id {
			return repositories.ErrTournamentInUse
		}
	}
	for _, m := range r.s.matches {
		if m.TournamentID == id {
			return repositories.ErrTournamentInUse
		}
	}
	delete(r.s.tournaments, id)
	return nil
}

// --- participants ---

type memParticipantRepo struct{ s *memStore }

func (r memParticipantRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[p.TournamentID]; !ok {
		return repositories.ErrParticipantTournamentInvalid
	}
	for _, other := range r.s.participants {
		if other.TournamentID == p.TournamentID && other.RegistrationNumber == p.RegistrationNumber {
			return repositories.ErrParticipantRegistrationNumberTaken
		}
	}
	p.ID = r.s.id()
	p.CreatedAt = time.Now()
	r.s.participants[p.ID] = *p
	return nil
}

func (r memParticipantRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	return &p, nil
}

func (r memParticipantRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Participant, 0)
	for _, p := range r.s.participants {
		if p.TournamentID == tournamentID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegistrationNumber < out[j].RegistrationNumber })
	return out, nil
}

func (r memParticipantRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	list, err := r.ListByTournament(ctx, exec, tournamentID)
	return len(list), err
}

func (r memParticipantRepo) referenced(id int) bool {
	for _, m := range r.s.matches {
		if m.HasParticipant(id) {
			return true
		}
	}
	for _, sc := range r.s.scores {
		if sc.ParticipantID == id {
			return true
		}
	}
	return false
}

func (r memParticipantRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.participants[id]; !ok {
		return repositories.ErrParticipantNotFound
	}
	if r.referenced(id) {
		return repositories.ErrParticipantInUse
	}
	delete(r.s.participants, id)
	return nil
}

func (r memParticipantRepo) DeleteMany(_ context.Context, _ repositories.SQLExecutor, ids []int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if r.referenced(id) {
			return 0, repositories.ErrParticipantInUse
		}
	}
	for _, id := range ids {
		if _, ok := r.s.participants[id]; ok {
			delete(r.s.participants, id)
			n++
		}
	}
	return n, nil
}

func (r memParticipantRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.participants {
		if p.TournamentID != tournamentID {
			continue
		}
		if r.referenced(id) {
			return repositories.ErrParticipantInUse
		}
		delete(r.s.participants, id)
	}
	return nil
}

// --- judges ---

type memJudgeRepo struct{ s *memStore }

func (r memJudgeRepo) Create(_ context.Context, _ repositories.SQLExecutor, j *models.Judge) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[j.TournamentID]; !ok {
		return repositories.ErrJudgeTournamentInvalid
	}
	j.ID = r.s.id()
	j.CreatedAt = time.Now()
	r.s.judges[j.ID] = *j
	return nil
}

func (r memJudgeRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Judge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.judges[id]
	if !ok {
		return nil, repositories.ErrJudgeNotFound
	}
	return &j, nil
}

func (r memJudgeRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Judge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Judge, 0)
	for _, j := range r.s.judges {
		if j.TournamentID == tournamentID {
			j := j
			out = append(out, &j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

func (r memJudgeRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	list, err := r.ListByTournament(ctx, exec, tournamentID)
	return len(list), err
}

func (r memJudgeRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, j := range r.s.judges {
		if j.TournamentID == tournamentID {
			delete(r.s.judges, id)
		}
	}
	return nil
}

// --- scores ---

type memScoreRepo struct{ s *memStore }

func (r memScoreRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, sc *models.Score) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sc.Value < 1 || sc.Value > 10 {
		return repositories.ErrScoreOutOfRange
	}
	if _, ok := r.s.participants[sc.ParticipantID]; !ok {
		return repositories.ErrScoreInvalidReference
	}
	now := time.Now()
	for id, existing := range r.s.scores {
		if existing.ParticipantID == sc.ParticipantID && existing.JudgeID == sc.JudgeID && existing.TournamentID == sc.TournamentID {
			existing.Value = sc.Value
			existing.UpdatedAt = now
			r.s.scores[id] = existing
			*sc = existing
			return nil
		}
	}
	sc.ID = r.s.id()
	sc.CreatedAt, sc.UpdatedAt = now, now
	r.s.scores[sc.ID] = *sc
	return nil
}

func (r memScoreRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Score, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Score, 0)
	for _, sc := range r.s.scores {
		if sc.TournamentID == tournamentID {
			sc := sc
			out = append(out, &sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memScoreRepo) DeleteByParticipants(_ context.Context, _ repositories.SQLExecutor, ids []int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	drop := map[int]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	var n int64
	for id, sc := range r.s.scores {
		if drop[sc.ParticipantID] {
			delete(r.s.scores, id)
			n++
		}
	}
	return n, nil
}

func (r memScoreRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, sc := range r.s.scores {
		if sc.TournamentID == tournamentID {
			delete(r.s.scores, id)
		}
	}
	return nil
}

// --- matches ---

type memMatchRepo struct{ s *memStore }

func (r memMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.matches {
		if other.TournamentID == m.TournamentID && other.Round == m.Round && other.Position == m.Position {
			return repositories.ErrMatchPositionTaken
		}
	}
	m.ID = r.s.id()
	m.CreatedAt, m.UpdatedAt = time.Now(), time.Now()
	m.RefreshState()
	r.s.matches[m.ID] = *cloneMatch(*m)
	return nil
}

func (r memMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return cloneMatch(m), nil
}

func (r memMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r memMatchRepo) GetByRoundPositionForUpdate(_ context.Context, _ repositories.SQLExecutor, tournamentID, round, position int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.matches {
		if m.TournamentID == tournamentID && m.Round == round && m.Position == position {
			return cloneMatch(m), nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r memMatchRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.s.matches {
		if m.TournamentID == tournamentID {
			out = append(out, cloneMatch(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (r memMatchRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	list, err := r.ListByTournament(ctx, exec, tournamentID)
	return len(list), err
}

func (r memMatchRepo) FindCurrent(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (*models.Match, error) {
	list, err := r.ListByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, err
	}
	for _, m := range list {
		if m.Participant1ID != nil && m.Participant2ID != nil && m.WinnerID == nil {
			return m, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r memMatchRepo) update(id int, fn func(m *models.Match) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	c := cloneMatch(m)
	if err := fn(c); err != nil {
		return err
	}
	c.UpdatedAt = time.Now()
	r.s.matches[id] = *c
	return nil
}

func (r memMatchRepo) FillSlot(_ context.Context, _ repositories.SQLExecutor, matchID, slot, participantID int) error {
	return r.update(matchID, func(m *models.Match) error {
		target := &m.Participant1ID
		switch slot {
		case 1:
		case 2:
			target = &m.Participant2ID
		default:
			return repositories.ErrMatchInvalidSlotNumber
		}
		if *target != nil {
			return repositories.ErrMatchSlotOccupied
		}
		*target = copyInt(&participantID)
		return nil
	})
}

func (r memMatchRepo) SetWinner(_ context.Context, _ repositories.SQLExecutor, matchID, winnerID int) error {
	return r.update(matchID, func(m *models.Match) error {
		if m.WinnerID != nil {
			return repositories.ErrMatchAlreadyResolved
		}
		if !m.HasParticipant(winnerID) {
			return repositories.ErrMatchWinnerNotInMatch
		}
		m.WinnerID = copyInt(&winnerID)
		return nil
	})
}

func (r memMatchRepo) IncrementRematch(_ context.Context, _ repositories.SQLExecutor, matchID int) error {
	return r.update(matchID, func(m *models.Match) error {
		m.RematchCount++
		return nil
	})
}

func (r memMatchRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, m := range r.s.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		for _, v := range r.s.votes {
			if v.MatchID == id {
				return 0, repositories.ErrMatchInvalidReference
			}
		}
		delete(r.s.matches, id)
		n++
	}
	return n, nil
}

// --- votes ---

type memVoteRepo struct{ s *memStore }

func (r memVoteRepo) Create(_ context.Context, _ repositories.SQLExecutor, v *models.Vote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.votes {
		if other.MatchID == v.MatchID && other.JudgeID == v.JudgeID {
			return repositories.ErrVoteConflict
		}
	}
	v.ID = r.s.id()
	v.CreatedAt = time.Now()
	stored := *v
	stored.VotedFor = models.VoteChoice{ParticipantID: copyInt(v.VotedFor.ParticipantID)}
	r.s.votes[v.ID] = stored
	return nil
}

func (r memVoteRepo) ListByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) ([]*models.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Vote, 0)
	for _, v := range r.s.votes {
		if v.MatchID == matchID {
			v := v
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memVoteRepo) DeleteByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, v := range r.s.votes {
		if v.MatchID == matchID {
			delete(r.s.votes, id)
			n++
		}
	}
	return n, nil
}

func (r memVoteRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, v := range r.s.votes {
		if m, ok := r.s.matches[v.MatchID]; ok && m.TournamentID == tournamentID {
			delete(r.s.votes, id)
		}
	}
	return nil
}

// recordingNotifier запоминает типы опубликованных сообщений.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Publish(_ context.Context, _ int, messageType string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, messageType)
}

func (n *recordingNotifier) count(messageType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.messages {
		if m == messageType {
			c++
		}
	}
	return c
}
