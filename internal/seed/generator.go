// Package seed generates and loads deterministic synthetic teams, games and
// comments for local development.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/huddle/internal/adapters/repository"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/pkg/logger"
)

// namespace scopes the name-based ids produced by the generator.
var namespace = uuid.MustParse("6f1c1c1e-8a0b-4d4e-9a55-2f4b8d1e0c11")

var (
	firstNames = []string{"Ada", "Bo", "Cleo", "Dev", "Eli", "Fay", "Gus", "Hana", "Ivo", "Jun", "Kai", "Lia"}
	lastNames  = []string{"Berg", "Cruz", "Diaz", "Eng", "Frey", "Hale", "Ito", "Kerr", "Lund", "Moss"}
	opponents  = []string{"Harbor FC", "North Stars", "Valley United", "Red Kites", "Old Town"}
	remarks    = []string{
		"Great press here",
		"Watch your first touch",
		"Nice overlap on the left",
		"Track back earlier",
		"Good call on the switch",
		"Keep the line higher",
	}
)

// Dataset is a generated set of entities.
type Dataset struct {
	Users      []model.User
	Teams      []model.Team
	Games      []model.Game
	KeyMoments []model.KeyMoment
	Comments   []model.Comment
}

func id(kind string, parts ...any) string {
	return uuid.NewSHA1(namespace, fmt.Appendf(nil, "%s/%v", kind, parts)).String()
}

// Generate builds a dataset from cfg. The same cfg always yields the same dataset.
func Generate(cfg Config) Dataset {
	r := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	var ds Dataset

	user := func(role model.Role, team, n int) model.User {
		u := model.User{
			ID:        id(string(role), team, n),
			Role:      role,
			FirstName: firstNames[r.IntN(len(firstNames))],
			LastName:  lastNames[r.IntN(len(lastNames))],
		}
		ds.Users = append(ds.Users, u)
		return u
	}

	for t := range cfg.Teams {
		team := model.Team{ID: id("team", t), Name: fmt.Sprintf("Squad %d", t+1)}
		for c := range cfg.CoachesPerTeam {
			team.CoachIDs = append(team.CoachIDs, user(model.RoleCoach, t, c).ID)
		}
		for p := range cfg.PlayersPerTeam {
			team.PlayerIDs = append(team.PlayerIDs, user(model.RolePlayer, t, p).ID)
		}
		ds.Teams = append(ds.Teams, team)

		members := append(append([]string{}, team.CoachIDs...), team.PlayerIDs...)
		for g := range cfg.GamesPerTeam {
			game := model.Game{
				ID:     id("game", t, g),
				TeamID: team.ID,
				Title:  "vs " + opponents[r.IntN(len(opponents))],
			}
			ds.Games = append(ds.Games, game)

			var moments []string
			for m := range cfg.MomentsPerGame {
				km := model.KeyMoment{ID: id("moment", t, g, m), TeamID: team.ID, GameID: game.ID}
				for _, pid := range team.PlayerIDs {
					if r.IntN(3) == 0 {
						km.TargetPlayerIDs = append(km.TargetPlayerIDs, pid)
					}
				}
				moments = append(moments, km.ID)
				ds.KeyMoments = append(ds.KeyMoments, km)
			}

			for c := range cfg.CommentsPerGame {
				cm := model.Comment{
					ID:        id("comment", t, g, c),
					GameID:    game.ID,
					Body:      remarks[r.IntN(len(remarks))],
					CreatedAt: cfg.Now.Add(-time.Duration(r.Int64N(int64(cfg.Span) + 1))).Truncate(time.Millisecond),
				}
				if len(members) > 0 {
					cm.AuthorID = members[r.IntN(len(members))]
				}
				if len(moments) > 0 && r.IntN(2) == 0 {
					cm.KeyMomentID = moments[r.IntN(len(moments))]
				}
				ds.Comments = append(ds.Comments, cm)
			}
		}
	}
	return ds
}

// Load writes ds into w.
func Load(ctx context.Context, w repository.Writer, ds Dataset) error {
	start := time.Now()
	for _, u := range ds.Users {
		if err := w.PutUser(ctx, u); err != nil {
			return fmt.Errorf("load user: %w", err)
		}
	}
	for _, t := range ds.Teams {
		if err := w.PutTeam(ctx, t); err != nil {
			return fmt.Errorf("load team: %w", err)
		}
	}
	for _, g := range ds.Games {
		if err := w.PutGame(ctx, g); err != nil {
			return fmt.Errorf("load game: %w", err)
		}
	}
	for _, km := range ds.KeyMoments {
		if err := w.PutKeyMoment(ctx, km); err != nil {
			return fmt.Errorf("load key moment: %w", err)
		}
	}
	for _, c := range ds.Comments {
		if c.AuthorID == "" {
			continue
		}
		if err := w.PutComment(ctx, c); err != nil {
			return fmt.Errorf("load comment: %w", err)
		}
	}

	logger.Get().Info(ctx, "seeded dataset",
		logger.Int("users", len(ds.Users)),
		logger.Int("teams", len(ds.Teams)),
		logger.Int("games", len(ds.Games)),
		logger.Int("keyMoments", len(ds.KeyMoments)),
		logger.Int("comments", len(ds.Comments)),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

// FirstOf returns the first user in ds with role, if any.
func FirstOf(ds Dataset, role model.Role) (model.User, bool) {
	for _, u := range ds.Users {
		if u.Role == role {
			return u, true
		}
	}
	return model.User{}, false
}
