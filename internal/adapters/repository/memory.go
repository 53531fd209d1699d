package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/okian/huddle/internal/domain/model"
)

// MemoryStore keeps every entity in process memory.
type MemoryStore struct {
	mu sync.RWMutex

	users    map[string]model.User
	teams    map[string]model.Team
	teamIDs  []string // insertion order
	games    map[string]model.Game
	moments  map[momentKey]model.KeyMoment
	comments map[string]model.Comment
	closed   bool
}

type momentKey struct{ team, game, id string }

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    map[string]model.User{},
		teams:    map[string]model.Team{},
		games:    map[string]model.Game{},
		moments:  map[momentKey]model.KeyMoment{},
		comments: map[string]model.Comment{},
	}
}

// PutUser stores a user.
func (s *MemoryStore) PutUser(ctx context.Context, u model.User) error {
	if err := validateUser(u); err != nil {
		return err
	}
	return s.write(ctx, func() { s.users[u.ID] = u })
}

// PutTeam stores a team together with its roster.
func (s *MemoryStore) PutTeam(ctx context.Context, t model.Team) error {
	if err := validateTeam(t); err != nil {
		return err
	}
	t.CoachIDs = slices.Clone(t.CoachIDs)
	t.PlayerIDs = slices.Clone(t.PlayerIDs)
	return s.write(ctx, func() {
		if _, ok := s.teams[t.ID]; !ok {
			s.teamIDs = append(s.teamIDs, t.ID)
		}
		s.teams[t.ID] = t
	})
}

// PutGame stores a game.
func (s *MemoryStore) PutGame(ctx context.Context, g model.Game) error {
	if err := validateGame(g); err != nil {
		return err
	}
	return s.write(ctx, func() { s.games[g.ID] = g })
}

// PutKeyMoment stores a key moment.
func (s *MemoryStore) PutKeyMoment(ctx context.Context, km model.KeyMoment) error {
	if err := validateKeyMoment(km); err != nil {
		return err
	}
	km.TargetPlayerIDs = slices.Clone(km.TargetPlayerIDs)
	return s.write(ctx, func() { s.moments[momentKey{km.TeamID, km.GameID, km.ID}] = km })
}

// PutComment stores a comment.
func (s *MemoryStore) PutComment(ctx context.Context, c model.Comment) error {
	if err := validateComment(c); err != nil {
		return err
	}
	return s.write(ctx, func() { s.comments[c.ID] = c })
}

func (s *MemoryStore) write(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	fn()
	return nil
}

func (s *MemoryStore) read(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	return s.mu.RUnlock, nil
}

// TeamsCoachedBy returns the ids of teams listing coachID as a coach.
func (s *MemoryStore) TeamsCoachedBy(ctx context.Context, coachID string) ([]string, error) {
	return s.teamsWhere(ctx, func(t model.Team) bool { return t.HasCoach(coachID) })
}

// TeamsEnrolledBy returns the ids of teams listing playerID as a player.
func (s *MemoryStore) TeamsEnrolledBy(ctx context.Context, playerID string) ([]string, error) {
	return s.teamsWhere(ctx, func(t model.Team) bool { return t.HasPlayer(playerID) })
}

func (s *MemoryStore) teamsWhere(ctx context.Context, match func(model.Team) bool) ([]string, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ids := []string{}
	for _, id := range s.teamIDs {
		if match(s.teams[id]) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// FetchSince returns comments on the teams' games created at or after since, newest first.
func (s *MemoryStore) FetchSince(ctx context.Context, teamIDs []string, since time.Time) ([]model.Comment, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := []model.Comment{}
	for _, c := range s.comments {
		g, ok := s.games[c.GameID]
		if !ok || !slices.Contains(teamIDs, g.TeamID) || c.CreatedAt.Before(since) {
			continue
		}
		out = append(out, c)
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(cs []model.Comment) {
	sort.SliceStable(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.After(cs[j].CreatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
}

// TeamForGame returns the team owning gameID.
func (s *MemoryStore) TeamForGame(ctx context.Context, gameID string) (string, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()

	g, ok := s.games[gameID]
	if !ok {
		return "", notFound("game", gameID)
	}
	return g.TeamID, nil
}

// TitleForGame returns the title of gameID within teamID.
func (s *MemoryStore) TitleForGame(ctx context.Context, teamID, gameID string) (string, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()

	g, ok := s.games[gameID]
	if !ok || g.TeamID != teamID {
		return "", notFound("game", gameID)
	}
	return g.Title, nil
}

// GetKeyMoment returns the key moment identified by team, game and id.
func (s *MemoryStore) GetKeyMoment(ctx context.Context, teamID, gameID, keyMomentID string) (model.KeyMoment, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return model.KeyMoment{}, err
	}
	defer unlock()

	km, ok := s.moments[momentKey{teamID, gameID, keyMomentID}]
	if !ok {
		return model.KeyMoment{}, notFound("key moment", keyMomentID)
	}
	km.TargetPlayerIDs = slices.Clone(km.TargetPlayerIDs)
	return km, nil
}

// GetUser returns a user by id.
func (s *MemoryStore) GetUser(ctx context.Context, userID string) (model.User, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return model.User{}, err
	}
	defer unlock()

	u, ok := s.users[userID]
	if !ok {
		return model.User{}, notFound("user", userID)
	}
	return u, nil
}

// Counts returns the number of stored entities by kind.
func (s *MemoryStore) Counts(ctx context.Context) (map[string]int, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return map[string]int{
		"users":       len(s.users),
		"teams":       len(s.teams),
		"games":       len(s.games),
		"key_moments": len(s.moments),
		"comments":    len(s.comments),
	}, nil
}

// Close releases the store. Later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
