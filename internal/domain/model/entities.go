// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// ErrNotFound is returned by entity directories when a point lookup misses.
var ErrNotFound = errors.New("entity not found")

// Role identifies how a user participates in a team.
type Role string

// Known roles.
const (
	RoleCoach   Role = "coach"
	RolePlayer  Role = "player"
	RoleUnknown Role = "unknown"
)

// ParseRole maps a stored role string to a Role. Anything unrecognised is RoleUnknown.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleCoach:
		return RoleCoach
	case RolePlayer:
		return RolePlayer
	default:
		return RoleUnknown
	}
}

// User is a coach or player account.
type User struct {
	ID        string
	Role      Role
	FirstName string
	LastName  string
}

// DisplayName composes the name shown next to a comment.
func (u User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}

// Team scopes games and comments. Rosters are references only.
type Team struct {
	ID        string
	Name      string
	CoachIDs  []string
	PlayerIDs []string
}

// HasCoach reports whether userID coaches the team.
func (t Team) HasCoach(userID string) bool { return slices.Contains(t.CoachIDs, userID) }

// HasPlayer reports whether userID is enrolled in the team.
func (t Team) HasPlayer(userID string) bool { return slices.Contains(t.PlayerIDs, userID) }

// Game belongs to exactly one team.
type Game struct {
	ID     string
	TeamID string
	Title  string
}

// Comment is a piece of feedback attached to a key moment of a game.
// The owning team is not embedded and has to be resolved through the game.
type Comment struct {
	ID          string
	GameID      string
	KeyMomentID string
	AuthorID    string
	Body        string
	CreatedAt   time.Time
}

// KeyMoment is a segment of a game that feedback is attached to.
type KeyMoment struct {
	ID              string
	TeamID          string
	GameID          string
	TargetPlayerIDs []string
}

// Targets reports whether playerID is one of the players the moment is for.
func (k KeyMoment) Targets(playerID string) bool {
	return slices.Contains(k.TargetPlayerIDs, playerID)
}
