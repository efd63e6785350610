package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ktladder/ktladder-backend/internal/models"
	"github.com/ktladder/ktladder-backend/internal/repository"
	"github.com/ktladder/ktladder-backend/pkg/distributed"
)

var errInjected = errors.New("injected failure")

// memoryDB is an in-memory repository.Transactor. Transactions work on a copy of the
// state that replaces the live one only when fn succeeds.
type memoryDB struct {
	txMu   sync.Mutex
	state  *memState
	faults *faults
}

type faults struct {
	mu sync.Mutex
	// fail the n-th snapshot write (1-based); 0 disables
	failSnapshotAt int
	snapshotWrites int
}

func (f *faults) snapshotWrite() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshotWrites++
	if f.failSnapshotAt > 0 && f.snapshotWrites == f.failSnapshotAt {
		return errInjected
	}
	return nil
}

type memState struct {
	mu           sync.Mutex
	players      map[int64]models.Player
	games        map[int64]models.Game
	nextPlayerID int64
	nextGameID   int64
	faults       *faults
}

func newMemoryDB() *memoryDB {
	f := &faults{}
	return &memoryDB{
		faults: f,
		state: &memState{
			players: make(map[int64]models.Player),
			games:   make(map[int64]models.Game),
			faults:  f,
		},
	}
}

func (db *memoryDB) Stores() repository.Stores {
	return db.state.stores()
}

func (db *memoryDB) WithinTx(ctx context.Context, fn func(stores repository.Stores) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := db.state.clone()
	if err := fn(work.stores()); err != nil {
		return err
	}

	db.state.mu.Lock()
	db.state.players = work.players
	db.state.games = work.games
	db.state.nextPlayerID = work.nextPlayerID
	db.state.nextGameID = work.nextGameID
	db.state.mu.Unlock()

	return nil
}

func (s *memState) clone() *memState {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &memState{
		players:      make(map[int64]models.Player, len(s.players)),
		games:        make(map[int64]models.Game, len(s.games)),
		nextPlayerID: s.nextPlayerID,
		nextGameID:   s.nextGameID,
		faults:       s.faults,
	}
	for id, p := range s.players {
		c.players[id] = p
	}
	for id, g := range s.games {
		c.games[id] = g
	}
	return c
}

func (s *memState) stores() repository.Stores {
	return repository.Stores{
		Players: &memPlayers{s},
		Games:   &memGames{s},
	}
}

type memPlayers struct{ s *memState }

func (r *memPlayers) Create(_ context.Context, tag string) (*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.players {
		if p.Tag == tag {
			return nil, repository.ErrDuplicateTag
		}
	}

	r.s.nextPlayerID++
	p := models.Player{
		ID:        r.s.nextPlayerID,
		Tag:       tag,
		EloRating: models.DefaultEloRating,
		CreatedAt: time.Now().UTC(),
	}
	r.s.players[p.ID] = p
	return &p, nil
}

func (r *memPlayers) FindByID(_ context.Context, id int64) (*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.players[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memPlayers) FindByTag(_ context.Context, tag string) (*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.players {
		if p.Tag == tag {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (r *memPlayers) FindAll(_ context.Context) ([]*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*models.Player, 0, len(r.s.players))
	for _, p := range r.s.players {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EloRating != out[j].EloRating {
			return out[i].EloRating > out[j].EloRating
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memPlayers) UpdateRating(_ context.Context, id int64, rating, gamesPlayed int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.players[id]
	if !ok {
		return errors.New("player not found")
	}
	p.EloRating, p.GamesPlayed = rating, gamesPlayed
	r.s.players[id] = p
	return nil
}

func (r *memPlayers) ResetRatings(_ context.Context, rating int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, p := range r.s.players {
		p.EloRating, p.GamesPlayed = rating, 0
		r.s.players[id] = p
	}
	return nil
}

type memGames struct{ s *memState }

func (r *memGames) Create(_ context.Context, game *models.Game) (*models.Game, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.players[game.Player1.PlayerID]; !ok {
		return nil, errors.New("player1 does not exist")
	}
	if _, ok := r.s.players[game.Player2.PlayerID]; !ok {
		return nil, errors.New("player2 does not exist")
	}

	r.s.nextGameID++
	g := *game
	g.ID = r.s.nextGameID
	g.CreatedAt = time.Now().UTC()
	if g.PlayedAt.IsZero() {
		g.PlayedAt = g.CreatedAt
	}
	g.ClearSnapshot()
	r.s.games[g.ID] = g
	return &g, nil
}

func (r *memGames) FindByID(_ context.Context, id int64) (*models.Game, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g, ok := r.s.games[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (r *memGames) Find(_ context.Context, filter models.GameFilter) ([]*models.Game, error) {
	games := r.sorted(func(a, b *models.Game) bool {
		if !a.PlayedAt.Equal(b.PlayedAt) {
			return a.PlayedAt.After(b.PlayedAt)
		}
		return a.ID > b.ID
	})

	out := make([]*models.Game, 0, len(games))
	for _, g := range games {
		if filter.PlayerID != 0 && g.Player1.PlayerID != filter.PlayerID && g.Player2.PlayerID != filter.PlayerID {
			continue
		}
		if filter.Killteam != "" && g.Player1.Killteam != filter.Killteam && g.Player2.Killteam != filter.Killteam {
			continue
		}
		if filter.Country != "" && g.Country != filter.Country {
			continue
		}
		out = append(out, g)
	}

	if filter.Limit > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
		if len(out) > filter.Limit {
			out = out[:filter.Limit]
		}
	}
	return out, nil
}

func (r *memGames) FindAllChronological(_ context.Context) ([]*models.Game, error) {
	return r.sorted(func(a, b *models.Game) bool {
		if !a.PlayedAt.Equal(b.PlayedAt) {
			return a.PlayedAt.Before(b.PlayedAt)
		}
		return a.ID < b.ID
	}), nil
}

func (r *memGames) UpdateRatingSnapshot(_ context.Context, id int64, snapshot models.RatingSnapshot) error {
	if err := r.s.faults.snapshotWrite(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g, ok := r.s.games[id]
	if !ok {
		return errors.New("game not found")
	}
	g.ApplySnapshot(snapshot)
	r.s.games[id] = g
	return nil
}

func (r *memGames) ClearRatingSnapshots(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, g := range r.s.games {
		g.ClearSnapshot()
		r.s.games[id] = g
	}
	return nil
}

func (r *memGames) sorted(less func(a, b *models.Game) bool) []*models.Game {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*models.Game, 0, len(r.s.games))
	for _, g := range r.s.games {
		g := g
		out = append(out, &g)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// chanLock is a process-local RatingLock for tests.
type chanLock struct {
	ch chan struct{}
}

func newChanLock() *chanLock {
	return &chanLock{ch: make(chan struct{}, 1)}
}

func (l *chanLock) Acquire(ctx context.Context, _ func(error)) (func(), error) {
	select {
	case l.ch <- struct{}{}:
		return l.releaser(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *chanLock) TryAcquire(context.Context, func(error)) (func(), error) {
	select {
	case l.ch <- struct{}{}:
		return l.releaser(), nil
	default:
		return nil, distributed.ErrLockNotAcquired
	}
}

func (l *chanLock) releaser() func() {
	var once sync.Once
	return func() { once.Do(func() { <-l.ch }) }
}

// losableLock hands out a lock that the test can take away while it is held.
type losableLock struct {
	chanLock
	mu     sync.Mutex
	onLost func(error)
}

func newLosableLock() *losableLock {
	return &losableLock{chanLock: chanLock{ch: make(chan struct{}, 1)}}
}

func (l *losableLock) Acquire(ctx context.Context, onLost func(error)) (func(), error) {
	release, err := l.chanLock.Acquire(ctx, nil)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.onLost = onLost
	l.mu.Unlock()
	return release, nil
}

// lose simulates the lock expiring under its holder.
func (l *losableLock) lose() {
	l.mu.Lock()
	onLost := l.onLost
	l.mu.Unlock()
	if onLost != nil {
		onLost(distributed.ErrLockNotHeld)
	}
}

type recordedEvent struct {
	Type    string
	Payload interface{}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) Publish(eventType string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: eventType, Payload: payload})
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
