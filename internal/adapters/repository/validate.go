package repository

import (
	"strings"

	"github.com/okian/huddle/internal/domain/model"
)

func validateUser(u model.User) error {
	if strings.TrimSpace(u.ID) == "" {
		return invalid("user", "id is required")
	}
	return nil
}

func validateTeam(t model.Team) error {
	if strings.TrimSpace(t.ID) == "" {
		return invalid("team", "id is required")
	}
	return nil
}

func validateGame(g model.Game) error {
	switch {
	case strings.TrimSpace(g.ID) == "":
		return invalid("game", "id is required")
	case strings.TrimSpace(g.TeamID) == "":
		return invalid("game", "team id is required")
	}
	return nil
}

func validateKeyMoment(km model.KeyMoment) error {
	switch {
	case strings.TrimSpace(km.ID) == "":
		return invalid("key moment", "id is required")
	case strings.TrimSpace(km.TeamID) == "" || strings.TrimSpace(km.GameID) == "":
		return invalid("key moment", "team and game ids are required")
	}
	return nil
}

func validateComment(c model.Comment) error {
	switch {
	case strings.TrimSpace(c.ID) == "":
		return invalid("comment", "id is required")
	case strings.TrimSpace(c.GameID) == "":
		return invalid("comment", "game id is required")
	case strings.TrimSpace(c.AuthorID) == "":
		return invalid("comment", "author id is required")
	case c.CreatedAt.IsZero():
		return invalid("comment", "created at is required")
	}
	return nil
}
