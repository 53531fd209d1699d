// Package repository provides entity directories backing digest builds.
package repository

import (
	"context"
	"time"

	"github.com/okian/huddle/internal/domain/model"
)

// Reader exposes every read a digest build needs.
type Reader interface {
	TeamsCoachedBy(ctx context.Context, coachID string) ([]string, error)
	TeamsEnrolledBy(ctx context.Context, playerID string) ([]string, error)
	FetchSince(ctx context.Context, teamIDs []string, since time.Time) ([]model.Comment, error)
	TeamForGame(ctx context.Context, gameID string) (string, error)
	TitleForGame(ctx context.Context, teamID, gameID string) (string, error)
	GetKeyMoment(ctx context.Context, teamID, gameID, keyMomentID string) (model.KeyMoment, error)
	GetUser(ctx context.Context, userID string) (model.User, error)
}

// Writer stores entities. Put operations replace existing rows with the same id.
type Writer interface {
	PutUser(ctx context.Context, u model.User) error
	PutTeam(ctx context.Context, t model.Team) error
	PutGame(ctx context.Context, g model.Game) error
	PutKeyMoment(ctx context.Context, km model.KeyMoment) error
	PutComment(ctx context.Context, c model.Comment) error
}

// Store provides read/write access to teams, games, key moments, users and comments.
type Store interface {
	Reader
	Writer

	// Counts returns the number of stored entities by kind.
	Counts(ctx context.Context) (map[string]int, error)
	Close() error
}

// KeyMoments adapts a Reader to a single-method key moment lookup.
type KeyMoments struct{ R Reader }

// Get resolves a key moment.
func (k KeyMoments) Get(ctx context.Context, teamID, gameID, keyMomentID string) (model.KeyMoment, error) {
	return k.R.GetKeyMoment(ctx, teamID, gameID, keyMomentID)
}

// Users adapts a Reader to a single-method user lookup.
type Users struct{ R Reader }

// Get resolves a user.
func (u Users) Get(ctx context.Context, userID string) (model.User, error) {
	return u.R.GetUser(ctx, userID)
}
