package digest

import (
	"github.com/okian/huddle/internal/domain/model"
)

// Audience is the tagged variant a digest is built for. The role selects how
// teams are scoped and whether comments must target the subject.
type Audience struct {
	role    model.Role
	subject string
}

// Coach returns the audience for a coach digest.
func Coach(coachID string) Audience { return Audience{role: model.RoleCoach, subject: coachID} }

// Player returns the audience for a player digest.
func Player(playerID string) Audience { return Audience{role: model.RolePlayer, subject: playerID} }

// Role returns the audience role.
func (a Audience) Role() model.Role { return a.role }

// Subject returns the coach or player id.
func (a Audience) Subject() string { return a.subject }

// requiresSession reports whether the build must match an authenticated identity.
func (a Audience) requiresSession() bool { return a.role == model.RoleCoach }

// requiresTargeting reports whether comments must target the subject through their key moment.
func (a Audience) requiresTargeting() bool { return a.role == model.RolePlayer }
