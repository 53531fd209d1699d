package digest_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var errTransport = errors.New("transport: connection reset")

// fakeWorld is an in-test implementation of every directory that counts calls.
type fakeWorld struct {
	mu sync.Mutex

	session    string
	sessionErr error

	teams    []model.Team
	games    map[string]model.Game
	moments  map[string]model.KeyMoment // key: team/game/id
	users    map[string]model.User
	comments []model.Comment

	teamsErr    error
	commentsErr error
	titleErr    map[string]error

	teamCalls      int
	commentCalls   int
	teamForGame    map[string]int
	titleForGame   map[string]int
	userGets       map[string]int
	keyMomentGets  int
	lastFetchSince time.Time
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		games:        map[string]model.Game{},
		moments:      map[string]model.KeyMoment{},
		users:        map[string]model.User{},
		titleErr:     map[string]error{},
		teamForGame:  map[string]int{},
		titleForGame: map[string]int{},
		userGets:     map[string]int{},
	}
}

func (w *fakeWorld) addMoment(km model.KeyMoment) {
	w.moments[km.TeamID+"/"+km.GameID+"/"+km.ID] = km
}

func (w *fakeWorld) CurrentUser(context.Context) (string, error) {
	if w.sessionErr != nil {
		return "", w.sessionErr
	}
	if w.session == "" {
		return "", errors.New("no session")
	}
	return w.session, nil
}

func (w *fakeWorld) TeamsCoachedBy(_ context.Context, coachID string) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.teamCalls++
	if w.teamsErr != nil {
		return nil, w.teamsErr
	}
	var ids []string
	for _, t := range w.teams {
		if t.HasCoach(coachID) {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

func (w *fakeWorld) TeamsEnrolledBy(_ context.Context, playerID string) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.teamCalls++
	if w.teamsErr != nil {
		return nil, w.teamsErr
	}
	ids := []string{}
	for _, t := range w.teams {
		if t.HasPlayer(playerID) {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

// FetchSince returns the stored comments in insertion order, applying only the team scope.
// The lower bound is recorded but not applied so the builder's own window check is exercised.
func (w *fakeWorld) FetchSince(_ context.Context, teamIDs []string, since time.Time) ([]model.Comment, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.commentCalls++
	w.lastFetchSince = since
	if w.commentsErr != nil {
		return nil, w.commentsErr
	}
	scope := map[string]bool{}
	for _, id := range teamIDs {
		scope[id] = true
	}
	var out []model.Comment
	for _, c := range w.comments {
		g, ok := w.games[c.GameID]
		if ok && !scope[g.TeamID] {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (w *fakeWorld) TeamForGame(_ context.Context, gameID string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.teamForGame[gameID]++
	g, ok := w.games[gameID]
	if !ok {
		return "", fmt.Errorf("game %s: %w", gameID, model.ErrNotFound)
	}
	return g.TeamID, nil
}

func (w *fakeWorld) TitleForGame(_ context.Context, teamID, gameID string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.titleForGame[gameID]++
	if err := w.titleErr[gameID]; err != nil {
		return "", err
	}
	g, ok := w.games[gameID]
	if !ok || g.TeamID != teamID {
		return "", fmt.Errorf("game %s: %w", gameID, model.ErrNotFound)
	}
	return g.Title, nil
}

func (w *fakeWorld) Get(_ context.Context, userID string) (model.User, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.userGets[userID]++
	u, ok := w.users[userID]
	if !ok {
		return model.User{}, fmt.Errorf("user %s: %w", userID, model.ErrNotFound)
	}
	return u, nil
}

// keyMoments adapts the world to KeyMomentStore, whose Get collides with UserDirectory.Get.
type keyMoments struct{ w *fakeWorld }

func (k keyMoments) Get(_ context.Context, teamID, gameID, keyMomentID string) (model.KeyMoment, error) {
	k.w.mu.Lock()
	defer k.w.mu.Unlock()
	k.w.keyMomentGets++
	km, ok := k.w.moments[teamID+"/"+gameID+"/"+keyMomentID]
	if !ok {
		return model.KeyMoment{}, fmt.Errorf("key moment %s: %w", keyMomentID, model.ErrNotFound)
	}
	return km, nil
}

func (w *fakeWorld) totalUserGets() int {
	n := 0
	for _, v := range w.userGets {
		n += v
	}
	return n
}

func commentIDs(d model.Digest) []string {
	ids := make([]string, 0, len(d.Comments))
	for _, c := range d.Comments {
		ids = append(ids, c.ID)
	}
	return ids
}

// concurrentFanout runs every index on its own goroutine.
type concurrentFanout struct{}

func (concurrentFanout) Each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = fn(ctx, i)
		}(i)
	}
	wg.Wait()
	return errors.Join(errs...)
}
