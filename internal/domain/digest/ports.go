package digest

import (
	"context"
	"time"

	"github.com/okian/huddle/internal/domain/model"
)

// AuthProvider resolves the identity of the current session.
type AuthProvider interface {
	// CurrentUser returns the authenticated user id or an error if there is none.
	CurrentUser(ctx context.Context) (string, error)
}

// TeamDirectory scopes digests to teams.
type TeamDirectory interface {
	TeamsCoachedBy(ctx context.Context, coachID string) ([]string, error)
	// TeamsEnrolledBy returns an empty slice, not an error, for a player without teams.
	TeamsEnrolledBy(ctx context.Context, playerID string) ([]string, error)
}

// CommentStore lists comments in a time window.
type CommentStore interface {
	// FetchSince returns comments on games of teamIDs created at or after since.
	FetchSince(ctx context.Context, teamIDs []string, since time.Time) ([]model.Comment, error)
}

// GameDirectory resolves game ownership and titles.
type GameDirectory interface {
	TeamForGame(ctx context.Context, gameID string) (string, error)
	TitleForGame(ctx context.Context, teamID, gameID string) (string, error)
}

// KeyMomentStore resolves key moments.
type KeyMomentStore interface {
	Get(ctx context.Context, teamID, gameID, keyMomentID string) (model.KeyMoment, error)
}

// UserDirectory resolves users.
type UserDirectory interface {
	Get(ctx context.Context, userID string) (model.User, error)
}

// Fanout runs fn for every index in [0, n). Implementations may run calls
// concurrently; they must return only after every started call has finished.
type Fanout interface {
	Each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error
}

// Directories bundles the collaborators a Builder reads from.
type Directories struct {
	Auth       AuthProvider
	Teams      TeamDirectory
	Comments   CommentStore
	Games      GameDirectory
	KeyMoments KeyMomentStore
	Users      UserDirectory
}

// sequential is the Fanout used when none is configured.
type sequential struct{}

func (sequential) Each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, i); err != nil {
			return err
		}
	}
	return nil
}
